package iamcontainer

import (
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/vibevault/userservice/pkg/config"
	"github.com/vibevault/userservice/pkg/iam/auth"
	"github.com/vibevault/userservice/pkg/iam/auth/authapi"
	"github.com/vibevault/userservice/pkg/iam/auth/authinfra"
	"github.com/vibevault/userservice/pkg/iam/auth/authsrv"
	"github.com/vibevault/userservice/pkg/iam/role/roleapi"
	"github.com/vibevault/userservice/pkg/iam/role/roleinfra"
	"github.com/vibevault/userservice/pkg/iam/role/rolesrv"
	"github.com/vibevault/userservice/pkg/iam/signingkey"
	"github.com/vibevault/userservice/pkg/iam/signingkey/keyinfra"
	"github.com/vibevault/userservice/pkg/iam/signingkey/keysrv"
	"github.com/vibevault/userservice/pkg/iam/user/userinfra"
	"github.com/vibevault/userservice/pkg/logx"
)

// ---------------------------------------------------------------------------
// Deps: explicit external dependencies this bounded context requires.
// No hidden globals, no ambient state, everything comes through here.
// ---------------------------------------------------------------------------

type Deps struct {
	DB    *sqlx.DB
	Redis *redis.Client
	Cfg   *config.Config
}

// ---------------------------------------------------------------------------
// Container: the public surface of the IAM module.
// Only expose what cmd/ actually needs; repos and infra stay private.
// ---------------------------------------------------------------------------

type Container struct {
	// Services
	AuthService *authsrv.AuthService
	RoleService *rolesrv.RoleService
	KeyService  *keysrv.Service

	// Handlers, needed by cmd/ to register routes
	AuthHandlers *authapi.Handlers
	RoleHandlers *roleapi.Handlers

	// Middleware, needed by cmd/ to protect route groups
	AuthMiddleware *auth.TokenMiddleware
}

// New constructs the entire IAM dependency graph.
// Order matters: repos, infra, services, handlers, middleware.
func New(deps Deps) *Container {
	logx.Info("initializing IAM container")

	c := &Container{}
	alg := signingkey.DefaultAlgorithm()

	// Repositories
	userRepo := userinfra.NewPostgresUserRepository(deps.DB)
	roleRepo := roleinfra.NewPostgresRoleRepository(deps.DB)
	assignmentRepo := roleinfra.NewPostgresAssignmentRepository(deps.DB)
	keyRepo := keyinfra.NewPostgresKeyRepository(deps.DB)

	sessionRepo := authinfra.NewPostgresSessionRepository(deps.DB)
	if deps.Redis != nil {
		sessionRepo = authinfra.NewCachedSessionRepository(sessionRepo, deps.Redis)
		logx.Info("session cache enabled")
	}

	// Infrastructure services
	hasher := authinfra.NewBcryptPasswordHasher(deps.Cfg.Auth.BcryptCost)
	clients := authinfra.NewContextClientInfo()

	// Domain services
	c.KeyService = keysrv.NewService(keyRepo, alg, deps.Cfg.Auth.SigningKeyWindow)
	c.RoleService = rolesrv.NewRoleService(roleRepo)

	issuer := auth.NewTokenIssuer(
		deps.Cfg.Auth.Issuer,
		deps.Cfg.Auth.Audience,
		deps.Cfg.Auth.TokenTTL,
		alg,
	)
	validator := auth.NewTokenValidator(
		sessionRepo,
		assignmentRepo,
		c.KeyService,
		deps.Cfg.Auth.Issuer,
		deps.Cfg.Auth.Audience,
		alg,
	)

	c.AuthService = authsrv.NewAuthService(
		userRepo,
		roleRepo,
		assignmentRepo,
		sessionRepo,
		c.KeyService,
		hasher,
		clients,
		issuer,
		validator,
		authsrv.Policy{MinPasswordLength: deps.Cfg.Auth.MinPasswordLength},
	)

	// Handlers and middleware
	c.AuthMiddleware = auth.NewTokenMiddleware(validator)
	c.AuthHandlers = authapi.NewHandlers(c.AuthService)
	c.RoleHandlers = roleapi.NewHandlers(c.RoleService)

	logx.Info("IAM container initialized")
	return c
}
