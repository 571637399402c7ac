// Package iamcontainer wires the identity and credential core of the
// gateway: scopes, credentials, users, applications, tokens, authorization
// codes and the authentication facade that ties them together.
//
// # Overview
//
// The core is split into sub-packages that share one layout:
//
//   - iam/scope      : the registry of declared scope names
//   - iam/credential : typed credentials (key or password) owned by a consumer
//   - iam/user       : user consumers with model-validated properties
//   - iam/application: application consumers owned by a user
//   - iam/token      : opaque access and refresh tokens, JWT minting
//   - iam/authcode   : single-use OAuth authorization codes
//   - iam/auth       : authentication, scope authorization, fiber middleware
//
// # Architecture
//
//	Middleware  →  Service Layer  →  Repository Interface  →  Infrastructure (kvx store)
//
// Each sub-domain exposes its own error registry (e.g., "SCOPE", "USER",
// "TOKEN"), its entities, and a Repository port implemented in <domain>infra
// on top of kvx. Every key is prefixed by the configured namespace.
//
// # Cascades
//
// Removing a user removes its applications and credentials. Removing an
// application removes its credentials. Removing a scope strips it from every
// credential. When a cascade fails part-way the remainder is queued on the
// reconx runner and retried in the background.
//
// # Quick Start
//
//	iamc, err := iamcontainer.New(iamcontainer.Deps{
//		Store:     kvxredis.New(rdb),
//		Queue:     reconxredis.New(rdb, keyspace.New(cfg.Namespace)),
//		Cfg:       cfg,
//		Models:    models,
//		JWTSecret: secret,
//	})
//
// Protect a route:
//
//	app.Get("/orders", iamc.AuthMiddleware.RequireToken("orders:read"), listOrders)
//	app.Post("/ingest", iamc.AuthMiddleware.RequireKey("key-auth", "ingest:write"), ingest)
//
// Read the authenticated context inside a handler:
//
//	ac, ok := auth.FromCtx(c)
//	if !ok { ... }
//	fmt.Println(ac.ConsumerID, ac.ConsumerKind, ac.Scopes)
package iamcontainer
