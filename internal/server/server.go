// Package server 把 idgen.Generator 暴露为 HTTP 服务。
//
//	GET /v1/id              单个 ID
//	GET /v1/ids?count=N     批量 ID，1 <= N <= MaxBatch
//	GET /v1/ids/:id         解码 ID
//	GET /v1/identity        节点标签与 epoch
//	GET /healthz            健康检查
//	GET /metrics            Prometheus 指标
//
// 配置了 Authenticator 时发号接口要求 Bearer 令牌，限流按令牌的 sub 计算。
// ID 一律以十进制字符串返回，避免 JSON 客户端丢失精度。
package server

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ceyewan/flake/auth"
	"github.com/ceyewan/flake/clog"
	"github.com/ceyewan/flake/idgen"
	"github.com/ceyewan/flake/metrics"
	"github.com/ceyewan/flake/ratelimit"
	"github.com/ceyewan/flake/trace"
	"github.com/ceyewan/flake/xerrors"
)

// DefaultMaxBatch 单次批量请求的上限
const DefaultMaxBatch = 1000

// Config HTTP 服务配置
//
//	http:
//	  addr: ":8080"
//	  max_batch: 1000
//	  shutdown_timeout: 10s
type Config struct {
	Addr              string        `mapstructure:"addr"`
	ServiceName       string        `mapstructure:"service_name"`
	MaxBatch          int           `mapstructure:"max_batch"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.ServiceName == "" {
		c.ServiceName = "flaked"
	}
	if c.MaxBatch <= 0 {
		c.MaxBatch = DefaultMaxBatch
	}
	if c.ReadHeaderTimeout <= 0 {
		c.ReadHeaderTimeout = 5 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
}

// HealthCheck 依赖探测函数，例如 Connector.HealthCheck
type HealthCheck func(ctx context.Context) error

// Server flaked 的 HTTP 服务
type Server struct {
	cfg     Config
	gen     *idgen.Generator
	logger  clog.Logger
	meter   metrics.Meter
	limiter ratelimit.Limiter
	auth    auth.Authenticator
	checks  map[string]HealthCheck

	engine *gin.Engine
	srv    *http.Server
}

// New 创建服务并注册路由
func New(cfg *Config, gen *idgen.Generator, opts ...Option) (*Server, error) {
	if gen == nil {
		return nil, xerrors.WithCode(xerrors.ErrInvalidInput, "SERVER_GENERATOR_NIL")
	}
	c := Config{}
	if cfg != nil {
		c = *cfg
	}
	c.setDefaults()

	o := applyOptions(opts)
	s := &Server{
		cfg:     c,
		gen:     gen,
		logger:  o.logger,
		meter:   o.meter,
		limiter: o.limiter,
		auth:    o.auth,
		checks:  o.checks,
	}

	httpMetrics, err := metrics.NewHTTPMetrics(o.meter, c.ServiceName)
	if err != nil {
		return nil, xerrors.Wrap(err, "create http metrics")
	}

	s.engine = gin.New()
	s.engine.Use(gin.Recovery())
	s.engine.Use(trace.GinMiddleware(c.ServiceName), trace.GinTraceID())
	s.engine.Use(httpMetrics.GinMiddleware())
	s.routes()

	s.srv = &http.Server{
		Addr:              c.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: c.ReadHeaderTimeout,
	}
	return s, nil
}

func (s *Server) routes() {
	var authn, limit []gin.HandlerFunc
	var key ratelimit.KeyFunc
	if s.auth != nil {
		authn = append(authn, s.auth.GinMiddleware())
		key = auth.Subject
	}
	if s.limiter != nil {
		limit = append(limit, ratelimit.GinMiddleware(s.limiter, key, ratelimit.QueryCost("count")))
	}

	v1 := s.engine.Group("/v1")
	v1.GET("/id", slices.Concat(authn, limit, []gin.HandlerFunc{s.handleID})...)
	// count 在限流之前校验，越界的请求返回 400 且不消耗令牌
	v1.GET("/ids", slices.Concat(authn, []gin.HandlerFunc{s.batchCount}, limit, []gin.HandlerFunc{s.handleIDs})...)
	v1.GET("/ids/:id", s.handleDecode)
	v1.GET("/identity", s.handleIdentity)

	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(s.meter.Handler()))
}

// Handler 返回路由，便于测试或挂到其他 http.Server
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run 监听 cfg.Addr 直到 ctx 取消，然后在 ShutdownTimeout 内优雅关闭
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", clog.String("addr", s.cfg.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !xerrors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return xerrors.Wrap(err, "http server")
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()
	s.logger.Info("http server shutting down")
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return xerrors.Wrap(err, "shutdown http server")
	}
	return nil
}
