// Package auth 用 HS256 JWT 保护 flaked 的发号接口。
//
// 令牌的 sub 标识调用方，开启认证后限流也按 sub 计算。
//
//	authenticator, _ := auth.New(&auth.Config{SecretKey: "..."})
//	token, _ := authenticator.GenerateToken(ctx, "order-service")
//	r.Use(authenticator.GinMiddleware())
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/ceyewan/flake/clog"
	"github.com/ceyewan/flake/metrics"
	"github.com/ceyewan/flake/xerrors"
)

// Claims JWT 载荷
type Claims struct {
	jwt.RegisteredClaims
}

// Authenticator 签发并校验令牌
type Authenticator interface {
	// GenerateToken 为 subject 签发令牌，有效期为 Config.TokenTTL
	GenerateToken(ctx context.Context, subject string) (string, error)

	// ValidateToken 校验签名、有效期以及 issuer/audience
	ValidateToken(ctx context.Context, token string) (*Claims, error)

	// GinMiddleware 校验 Authorization: Bearer <token>，失败返回 401
	GinMiddleware() gin.HandlerFunc
}

type jwtAuth struct {
	cfg       Config
	logger    clog.Logger
	validated metrics.Counter
	parser    *jwt.Parser
	now       func() time.Time
}

// New 创建 Authenticator
func New(cfg *Config, opts ...Option) (Authenticator, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig
	}
	c := *cfg
	c.setDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}

	o := applyOptions(opts)
	validated, err := o.meter.Counter(MetricTokensValidated, "Tokens validated by the auth middleware")
	if err != nil {
		return nil, xerrors.Wrap(err, "create validated counter")
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if c.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(c.Issuer))
	}
	if c.Audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(c.Audience))
	}

	return &jwtAuth{
		cfg:       c,
		logger:    o.logger,
		validated: validated,
		parser:    jwt.NewParser(parserOpts...),
		now:       time.Now,
	}, nil
}

func (a *jwtAuth) GenerateToken(_ context.Context, subject string) (string, error) {
	if subject == "" {
		return "", xerrors.Wrap(ErrInvalidClaims, "empty subject")
	}
	now := a.now()
	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    a.cfg.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.cfg.TokenTTL)),
	}}
	if a.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{a.cfg.Audience}
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(a.cfg.SecretKey))
	if err != nil {
		return "", xerrors.Wrap(err, "sign token")
	}
	return token, nil
}

func (a *jwtAuth) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := a.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return []byte(a.cfg.SecretKey), nil
	})
	if err != nil {
		kind, mapped := classify(err)
		a.validated.Inc(ctx, metrics.L(LabelStatus, "error"), metrics.L(LabelErrorType, kind))
		a.logger.DebugContext(ctx, "token rejected", clog.String("reason", kind), clog.Error(err))
		return nil, mapped
	}
	if claims.Subject == "" {
		a.validated.Inc(ctx, metrics.L(LabelStatus, "error"), metrics.L(LabelErrorType, "invalid_claims"))
		return nil, ErrInvalidClaims
	}

	a.validated.Inc(ctx, metrics.L(LabelStatus, "success"))
	return claims, nil
}

func classify(err error) (string, error) {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired", ErrExpiredToken
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "invalid_signature", ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenInvalidIssuer), errors.Is(err, jwt.ErrTokenInvalidAudience),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return "invalid_claims", ErrInvalidClaims
	default:
		return "invalid_token", ErrInvalidToken
	}
}
