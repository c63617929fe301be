package auth

import (
	"time"

	"github.com/ceyewan/flake/xerrors"
)

// Config 认证配置
//
//	auth:
//	  enabled: true
//	  secret_key: "at-least-32-characters-long-secret"
//	  issuer: "flaked"
//	  token_ttl: 24h
type Config struct {
	// Enabled 为 false 时 flaked 不挂载认证中间件
	Enabled bool `mapstructure:"enabled"`

	// SecretKey HS256 签名密钥，至少 32 字符
	SecretKey string `mapstructure:"secret_key"`

	// Issuer 非空时签发写入 iss，校验时要求一致
	Issuer string `mapstructure:"issuer"`

	// Audience 非空时签发写入 aud，校验时要求包含
	Audience string `mapstructure:"audience"`

	// TokenTTL 令牌有效期，默认 24h
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

func (c *Config) setDefaults() {
	if c.TokenTTL <= 0 {
		c.TokenTTL = 24 * time.Hour
	}
}

func (c *Config) validate() error {
	if len(c.SecretKey) < 32 {
		return xerrors.Wrap(ErrInvalidConfig, "secret_key must be at least 32 characters")
	}
	return nil
}
