// cmd/gatekeep/container.go
//
// Root composition root. Owns infrastructure (store, queue, file access) and
// composes the IAM container on top of it.
package main

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Abraxas-365/gatekeep/pkg/config"
	"github.com/Abraxas-365/gatekeep/pkg/fsx/fsxlocal"
	"github.com/Abraxas-365/gatekeep/pkg/iam/iamcontainer"
	"github.com/Abraxas-365/gatekeep/pkg/iam/keyspace"
	"github.com/Abraxas-365/gatekeep/pkg/kvx"
	"github.com/Abraxas-365/gatekeep/pkg/kvx/kvxmemory"
	"github.com/Abraxas-365/gatekeep/pkg/kvx/kvxredis"
	"github.com/Abraxas-365/gatekeep/pkg/logx"
	"github.com/Abraxas-365/gatekeep/pkg/reconx"
	"github.com/Abraxas-365/gatekeep/pkg/reconx/reconxmemory"
	"github.com/Abraxas-365/gatekeep/pkg/reconx/reconxredis"
)

// Container holds shared infrastructure and the composed IAM container.
type Container struct {
	Config *config.Config

	// Infrastructure
	Redis *redis.Client
	Store kvx.Store
	Queue reconx.Queue

	IAM *iamcontainer.Container
}

func NewContainer(ctx context.Context, cfg *config.Config) *Container {
	logx.Info("Initializing application container...")

	c := &Container{Config: cfg}

	c.initInfrastructure(ctx)
	c.initModules(ctx)

	logx.Info("Application container initialized")
	return c
}

// ---------------------------------------------------------------------------
// Infrastructure: store and reconciliation queue
// ---------------------------------------------------------------------------

func (c *Container) initInfrastructure(ctx context.Context) {
	logx.Info("Initializing infrastructure...")

	switch c.Config.Store.Mode {
	case "redis":
		c.Redis = redis.NewClient(&redis.Options{
			Addr:     c.Config.Store.Addr,
			Password: c.Config.Store.Password,
			DB:       c.Config.Store.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := c.Redis.Ping(pingCtx).Err(); err != nil {
			logx.Fatalf("Failed to connect to Redis: %v", err)
		}
		c.Store = kvxredis.New(c.Redis)
		c.Queue = reconxredis.New(c.Redis, keyspace.New(c.Config.Namespace))
		logx.WithField("addr", c.Config.Store.Addr).Info("  Redis connected")

	case "memory":
		c.Store = kvxmemory.New()
		c.Queue = reconxmemory.New()
		logx.Warn("  In-memory store configured, state is lost on exit")

	default:
		logx.Fatalf("Unknown STORE_MODE: %s (use 'redis' or 'memory')", c.Config.Store.Mode)
	}

	logx.Info("Infrastructure initialized")
}

// ---------------------------------------------------------------------------
// Module composition
// ---------------------------------------------------------------------------

func (c *Container) initModules(ctx context.Context) {
	logx.Info("Initializing modules...")

	files, err := fsxlocal.NewLocalFileSystem(".")
	if err != nil {
		logx.Fatalf("Failed to open working directory: %v", err)
	}

	models, err := config.LoadModels(ctx, files, c.Config.ModelsDir)
	if err != nil {
		logx.WithError(err).Fatal("Failed to load model declarations")
	}
	secret, err := c.Config.JWT.SigningSecret(ctx, files)
	if err != nil {
		logx.WithError(err).Fatal("Failed to load JWT signing material")
	}

	c.IAM, err = iamcontainer.New(iamcontainer.Deps{
		Store:     c.Store,
		Queue:     c.Queue,
		Cfg:       c.Config,
		Models:    models,
		JWTSecret: secret,
	})
	if err != nil {
		logx.WithError(err).Fatal("Failed to build IAM container")
	}
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// StartBackgroundServices runs the reconciler until ctx is cancelled. The
// returned channel closes once it has stopped.
func (c *Container) StartBackgroundServices(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	if !c.Config.Recon.Enabled {
		logx.Info("Reconciler disabled")
		close(done)
		return done
	}

	logx.Info("Starting background services...")
	go func() {
		defer close(done)
		if err := c.IAM.Reconciler.Start(ctx); err != nil {
			logx.WithError(err).Error("Reconciler stopped with error")
		}
	}()
	return done
}

func (c *Container) Ping(ctx context.Context) error {
	if c.Redis == nil {
		return nil
	}
	return c.Redis.Ping(ctx).Err()
}

func (c *Container) Cleanup() {
	logx.Info("Cleaning up resources...")

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logx.Errorf("Error closing Redis: %v", err)
		} else {
			logx.Info("  Redis connection closed")
		}
	}

	logx.Info("Cleanup complete")
}
