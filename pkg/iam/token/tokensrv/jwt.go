package tokensrv

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Abraxas-365/gatekeep/pkg/config"
	"github.com/Abraxas-365/gatekeep/pkg/iam/token"
)

// JWTSigner signs claims with material resolved once at startup.
type JWTSigner struct {
	method   jwt.SigningMethod
	key      any
	issuer   string
	audience []string
	subject  string
	ttl      time.Duration
	now      func() time.Time
}

// NewJWTSigner accepts HS256/384/512 with a shared secret, or RS256/384/512
// with a PEM encoded RSA private key.
func NewJWTSigner(cfg config.JWTConfig, secret []byte) (*JWTSigner, error) {
	method := jwt.GetSigningMethod(cfg.Algorithm)
	if method == nil {
		return nil, token.ErrUnsupportedSigner(cfg.Algorithm)
	}

	var key any
	switch method.(type) {
	case *jwt.SigningMethodHMAC:
		if len(secret) == 0 {
			return nil, token.ErrInvalidSigningKey(nil)
		}
		key = secret
	case *jwt.SigningMethodRSA:
		pk, err := jwt.ParseRSAPrivateKeyFromPEM(secret)
		if err != nil {
			return nil, token.ErrInvalidSigningKey(err)
		}
		key = pk
	default:
		return nil, token.ErrUnsupportedSigner(cfg.Algorithm)
	}

	return &JWTSigner{
		method:   method,
		key:      key,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		subject:  cfg.Subject,
		ttl:      cfg.TTL,
		now:      time.Now,
	}, nil
}

// Sign copies payload into the claim set. Registered claims from config
// are only filled in when payload does not set them.
func (s *JWTSigner) Sign(payload map[string]any) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{}
	for k, v := range payload {
		claims[k] = v
	}
	setDefault(claims, "iat", now.Unix())
	if s.ttl > 0 {
		setDefault(claims, "exp", now.Add(s.ttl).Unix())
	}
	if s.issuer != "" {
		setDefault(claims, "iss", s.issuer)
	}
	if s.subject != "" {
		setDefault(claims, "sub", s.subject)
	}
	if len(s.audience) > 0 {
		setDefault(claims, "aud", s.audience)
	}

	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.key)
	if err != nil {
		return "", token.ErrSigningFailed(err)
	}
	return signed, nil
}

func setDefault(claims jwt.MapClaims, key string, v any) {
	if _, ok := claims[key]; !ok {
		claims[key] = v
	}
}
