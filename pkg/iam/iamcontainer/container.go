package iamcontainer

import (
	"github.com/Abraxas-365/gatekeep/pkg/config"
	"github.com/Abraxas-365/gatekeep/pkg/cryptox"
	"github.com/Abraxas-365/gatekeep/pkg/iam/application/applicationinfra"
	"github.com/Abraxas-365/gatekeep/pkg/iam/application/applicationsrv"
	"github.com/Abraxas-365/gatekeep/pkg/iam/auth"
	"github.com/Abraxas-365/gatekeep/pkg/iam/auth/authinfra"
	"github.com/Abraxas-365/gatekeep/pkg/iam/authcode/authcodeinfra"
	"github.com/Abraxas-365/gatekeep/pkg/iam/authcode/authcodesrv"
	"github.com/Abraxas-365/gatekeep/pkg/iam/credential"
	"github.com/Abraxas-365/gatekeep/pkg/iam/credential/credentialinfra"
	"github.com/Abraxas-365/gatekeep/pkg/iam/credential/credentialsrv"
	"github.com/Abraxas-365/gatekeep/pkg/iam/keyspace"
	"github.com/Abraxas-365/gatekeep/pkg/iam/scope/scopeinfra"
	"github.com/Abraxas-365/gatekeep/pkg/iam/scope/scopesrv"
	"github.com/Abraxas-365/gatekeep/pkg/iam/token/tokeninfra"
	"github.com/Abraxas-365/gatekeep/pkg/iam/token/tokensrv"
	"github.com/Abraxas-365/gatekeep/pkg/iam/user/userinfra"
	"github.com/Abraxas-365/gatekeep/pkg/iam/user/usersrv"
	"github.com/Abraxas-365/gatekeep/pkg/kvx"
	"github.com/Abraxas-365/gatekeep/pkg/logx"
	"github.com/Abraxas-365/gatekeep/pkg/reconx"
	"github.com/Abraxas-365/gatekeep/pkg/schemax"
)

// ---------------------------------------------------------------------------
// Deps: explicit external dependencies this bounded context requires.
// ---------------------------------------------------------------------------

type Deps struct {
	Store kvx.Store
	Queue reconx.Queue
	Cfg   *config.Config
	// Models are the resolved model declarations, defaults included.
	Models config.Models
	// JWTSecret is the signing material, resolved once at startup.
	JWTSecret []byte
}

// ---------------------------------------------------------------------------
// Container: the public surface of the IAM module.
// ---------------------------------------------------------------------------

type Container struct {
	Keys keyspace.Keys

	ScopeService       *scopesrv.ScopeService
	CredentialService  *credentialsrv.CredentialService
	UserService        *usersrv.UserService
	ApplicationService *applicationsrv.ApplicationService
	TokenService       *tokensrv.TokenService
	CodeService        *authcodesrv.CodeService
	AuthService        *auth.AuthService

	// Middleware, used by cmd/ to protect routes
	AuthMiddleware *auth.Middleware

	// Reconciler re-runs cascades that failed part-way. cmd/ starts it.
	Reconciler *reconx.Runner
}

// ---------------------------------------------------------------------------
// New: constructs the entire IAM dependency graph.
// Order matters: infra → repos → services → middleware → reconciler.
// ---------------------------------------------------------------------------

func New(deps Deps) (*Container, error) {
	logx.Info("Initializing IAM container...")

	cfg := deps.Cfg
	c := &Container{Keys: keyspace.New(cfg.Namespace)}

	// ── Infrastructure ───────────────────────────────────────────────────

	hasher := cryptox.NewBcryptHasher(cfg.Crypto.BcryptCost)
	cipher, err := cryptox.NewAESGCM(cfg.Crypto.CipherAlgorithm, cfg.Crypto.CipherKey)
	if err != nil {
		return nil, err
	}
	signer, err := tokensrv.NewJWTSigner(cfg.JWT, deps.JWTSecret)
	if err != nil {
		return nil, err
	}
	types, err := credential.NewTypes(deps.Models.Credentials, hasher, cryptox.NewCompactID)
	if err != nil {
		return nil, err
	}

	validator := schemax.New()
	if err := credentialsrv.RegisterSchemas(validator, types); err != nil {
		return nil, err
	}
	if err := validator.Register(usersrv.SchemaRef, deps.Models.Users); err != nil {
		return nil, err
	}
	if err := validator.Register(applicationsrv.SchemaRef, deps.Models.Applications); err != nil {
		return nil, err
	}

	c.Reconciler = reconx.NewRunner(deps.Queue, cryptox.NewCompactID,
		reconx.WithConcurrency(cfg.Recon.Concurrency),
		reconx.WithMaxAttempts(cfg.Recon.MaxAttempts),
		reconx.WithPollInterval(cfg.Recon.PollInterval),
		reconx.WithRetryDelay(cfg.Recon.RetryDelay),
		reconx.WithShutdownTimeout(cfg.Recon.ShutdownTimeout),
	)

	// ── Repositories ─────────────────────────────────────────────────────

	scopeRepo := scopeinfra.NewKVScopeRepository(deps.Store, c.Keys)
	credentialRepo := credentialinfra.NewKVCredentialRepository(deps.Store, c.Keys)
	userRepo := userinfra.NewKVUserRepository(deps.Store, c.Keys)
	applicationRepo := applicationinfra.NewKVApplicationRepository(deps.Store, c.Keys)
	tokenRepo := tokeninfra.NewKVTokenRepository(deps.Store, c.Keys)
	codeRepo := authcodeinfra.NewKVCodeRepository(deps.Store, c.Keys)

	// ── Domain services ──────────────────────────────────────────────────

	c.ScopeService = scopesrv.NewScopeService(scopeRepo, c.Reconciler)

	c.CredentialService = credentialsrv.NewCredentialService(
		credentialRepo,
		types,
		c.ScopeService,
		validator,
		c.Reconciler,
	)

	c.ApplicationService = applicationsrv.NewApplicationService(
		applicationRepo,
		deps.Models.Applications,
		validator,
		userRepo,
		c.CredentialService,
		c.Reconciler,
		cryptox.NewID,
	)

	c.UserService = usersrv.NewUserService(
		userRepo,
		deps.Models.Users,
		validator,
		c.ApplicationService,
		c.CredentialService,
		c.Reconciler,
		cryptox.NewID,
	)

	c.TokenService = tokensrv.NewTokenService(
		tokenRepo,
		cipher,
		signer,
		cfg.Tokens.AccessTTL,
		cfg.Tokens.RefreshTTL,
		cryptox.NewCompactID,
	)

	c.CodeService = authcodesrv.NewCodeService(codeRepo, cfg.Tokens.AuthCodeTTL, cryptox.NewCompactID)

	c.AuthService = auth.NewAuthService(
		c.CredentialService,
		c.TokenService,
		c.UserService,
		c.ApplicationService,
		c.ScopeService,
		hasher,
		authinfra.NewLogxAuditService(),
	)

	// ── Middleware ───────────────────────────────────────────────────────

	c.AuthMiddleware = auth.NewMiddleware(c.AuthService)

	// ── Reconciliation handlers ──────────────────────────────────────────

	c.Reconciler.Handle(reconx.KindScopeRemoval, c.ScopeService.Reconcile)
	c.Reconciler.Handle(reconx.KindCredentialsRemoval, c.CredentialService.Reconcile)
	c.Reconciler.Handle(reconx.KindApplicationRemoval, c.ApplicationService.Reconcile)
	c.Reconciler.Handle(reconx.KindUserRemoval, c.UserService.Reconcile)

	logx.WithField("namespace", cfg.Namespace).Info("IAM container initialized")
	return c, nil
}
