package tokensrv

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abraxas-365/gatekeep/pkg/config"
	"github.com/Abraxas-365/gatekeep/pkg/errx"
	"github.com/Abraxas-365/gatekeep/pkg/iam/token"
)

func TestHMACSigner(t *testing.T) {
	cfg := config.JWTConfig{Algorithm: "HS384", Issuer: "gatekeep", Audience: []string{"api"}, Subject: "svc", TTL: time.Hour}
	s, err := NewJWTSigner(cfg, []byte("secret"))
	require.NoError(t, err)

	signed, err := s.Sign(map[string]any{"consumerId": "u1", "sub": "override"})
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(signed, claims, func(*jwt.Token) (any, error) { return []byte("secret"), nil },
		jwt.WithValidMethods([]string{"HS384"}), jwt.WithIssuer("gatekeep"), jwt.WithAudience("api"))
	require.NoError(t, err)
	assert.Equal(t, "u1", claims["consumerId"])
	assert.Equal(t, "override", claims["sub"])
	assert.NotNil(t, claims["exp"])
}

func TestRSASigner(t *testing.T) {
	pk, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	pemKey := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(pk)})

	s, err := NewJWTSigner(config.JWTConfig{Algorithm: "RS256", TTL: time.Minute}, pemKey)
	require.NoError(t, err)
	signed, err := s.Sign(map[string]any{"consumerId": "app1"})
	require.NoError(t, err)

	parsed, err := jwt.Parse(signed, func(*jwt.Token) (any, error) { return &pk.PublicKey, nil }, jwt.WithValidMethods([]string{"RS256"}))
	require.NoError(t, err)
	assert.True(t, parsed.Valid)
}

func TestSignerRejectsBadConfig(t *testing.T) {
	_, err := NewJWTSigner(config.JWTConfig{Algorithm: "none"}, []byte("x"))
	assert.True(t, errx.Is(err, token.ErrUnsupportedSigner("none")))

	_, err = NewJWTSigner(config.JWTConfig{Algorithm: "RS256"}, []byte("not pem"))
	assert.True(t, errx.IsType(err, errx.TypeCrypto))

	_, err = NewJWTSigner(config.JWTConfig{Algorithm: "HS256"}, nil)
	assert.True(t, errx.IsType(err, errx.TypeCrypto))
}
