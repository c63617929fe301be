// flaked 以 HTTP 服务的形式签发雪花 ID。
//
//	flaked --config ./flaked.yaml
//	FLAKE_LASTID_DRIVER=redis FLAKE_CONNECTORS_REDIS_ADDR=10.0.0.5:6379 flaked
//	flaked --config ./flaked.yaml --issue-token order-service
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/ceyewan/flake/auth"
	"github.com/ceyewan/flake/clog"
	"github.com/ceyewan/flake/internal/app"
)

func main() {
	var configPath, tokenSubject string
	pflag.StringVarP(&configPath, "config", "c", "", "path to flaked.yaml (default: ./flaked.yaml or ./config/flaked.yaml)")
	pflag.StringVar(&tokenSubject, "issue-token", "", "print a token for the given subject using the auth config and exit")
	pflag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, configPath, tokenSubject)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "flaked:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, tokenSubject string) error {
	bootLogger := clog.Must(clog.NewProdDefaultConfig(), clog.WithNamespace(app.ServiceName))

	cfg, loader, err := app.Load(ctx, configPath, bootLogger)
	if err != nil {
		return err
	}

	if tokenSubject != "" {
		authn, err := auth.New(&cfg.Auth)
		if err != nil {
			return err
		}
		token, err := authn.GenerateToken(ctx, tokenSubject)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	if err := a.WatchLogLevel(ctx, loader); err != nil {
		a.Logger.Warn("log level hot reload disabled", clog.Error(err))
	}
	return a.Run(ctx)
}
