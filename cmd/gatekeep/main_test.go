package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Abraxas-365/gatekeep/pkg/config"
	"github.com/Abraxas-365/gatekeep/pkg/iam/token"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Namespace: "EG",
		Store:     config.StoreConfig{Mode: "memory"},
		Tokens:    config.TokenConfig{AccessTTL: time.Hour, RefreshTTL: 24 * time.Hour, AuthCodeTTL: time.Minute},
		JWT:       config.JWTConfig{Algorithm: "HS256", Issuer: "gatekeep", TTL: time.Hour, Secret: "jwt-secret"},
		Crypto:    config.CryptoConfig{CipherAlgorithm: "aes-256-gcm", CipherKey: "test-key", BcryptCost: bcrypt.MinCost},
		Recon:     config.ReconConfig{Concurrency: 1, MaxAttempts: 3, PollInterval: 10 * time.Millisecond, RetryDelay: time.Second, ShutdownTimeout: time.Second},
	}
}

func get(t *testing.T, app *fiber.App, path, authorization string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set(fiber.HeaderAuthorization, authorization)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := map[string]any{}
	require.NoError(t, json.Unmarshal(raw, &body))
	return resp.StatusCode, body
}

func TestServerRoutes(t *testing.T) {
	ctx := context.Background()
	container := NewContainer(ctx, memoryConfig())
	app := newApp(container)

	status, body := get(t, app, "/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "memory", body["store"])

	u, err := container.IAM.UserService.Insert(ctx, map[string]any{
		"username": "ada", "firstname": "Ada", "lastname": "Lovelace",
	})
	require.NoError(t, err)
	pair, err := container.IAM.TokenService.Save(ctx, token.Criteria{ConsumerID: u.ID.String()}, token.SaveOptions{})
	require.NoError(t, err)

	status, body = get(t, app, "/v1/whoami", "Bearer "+pair.AccessToken)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, u.ID.String(), body["consumer_id"])
	assert.Equal(t, "ada", body["name"])

	status, _ = get(t, app, "/v1/whoami", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = get(t, app, "/nope", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body["code"])
}

func TestBackgroundServicesStopWithContext(t *testing.T) {
	cfg := memoryConfig()
	cfg.Recon.Enabled = true
	container := NewContainer(context.Background(), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := container.StartBackgroundServices(ctx)
	cancel()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("reconciler did not stop")
	}
}
