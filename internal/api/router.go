package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/kevinwu530/querybase/internal/app"
	iauth "github.com/kevinwu530/querybase/internal/auth"
	"github.com/kevinwu530/querybase/internal/cache"
	"github.com/kevinwu530/querybase/internal/handlers"
	"github.com/kevinwu530/querybase/internal/middleware"
	"github.com/kevinwu530/querybase/internal/permissions"
	"github.com/kevinwu530/querybase/internal/services"
	"github.com/kevinwu530/querybase/internal/vault"
	"github.com/kevinwu530/querybase/pkg/mail"
)

// Dependencies carries the shared infrastructure the router wires handlers to.
type Dependencies struct {
	DB     *gorm.DB
	JWT    *iauth.JWTService
	Config *app.Config
	Cache  cache.Store
	Mailer mail.Mailer
	Crypto *vault.Crypto
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if deps.JWT == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if deps.Config == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if deps.Crypto == nil {
		return nil, fmt.Errorf("vault crypto must be provided")
	}

	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	if deps.Config.Server.CSRF.Enabled {
		r.Use(middleware.CSRF())
	}
	// Basic rate limiting: 100 requests/minute per IP+path
	if deps.Cache != nil {
		r.Use(middleware.RateLimitWithStore(middleware.NewRedisRateStore(deps.Cache), 100, time.Minute))
	} else {
		r.Use(middleware.RateLimit(100, time.Minute))
	}

	if deps.Config.Monitoring.Health.Enabled {
		r.GET("/health", handlers.Health())
	}
	if deps.Config.Monitoring.Prometheus.Enabled {
		endpoint := deps.Config.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	checker, err := permissions.NewChecker(deps.DB)
	if err != nil {
		return nil, err
	}

	svcs, err := buildServices(deps)
	if err != nil {
		return nil, err
	}

	api := r.Group("/api")
	api.Use(middleware.Auth(deps.JWT))

	registerWorkspaceRoutes(api, checker, svcs)
	registerConversationRoutes(api, svcs)
	registerInvitationRoutes(api, svcs)
	registerAPIKeyRoutes(api, svcs)
	registerAuditRoutes(api, checker, svcs)

	return r, nil
}

type routerServices struct {
	workspaces    *services.WorkspaceService
	members       *services.MemberService
	connections   *services.ConnectionService
	conversations *services.ConversationService
	apiKeys       *services.APIKeyService
	audit         *services.AuditService
}

func buildServices(deps Dependencies) (*routerServices, error) {
	audit, err := services.NewAuditService(deps.DB)
	if err != nil {
		return nil, err
	}

	workspaces, err := services.NewWorkspaceService(deps.DB, audit)
	if err != nil {
		return nil, err
	}

	memberOpts := []services.MemberOption{}
	if base := deps.Config.Invitations.BaseURL; base != "" {
		memberOpts = append(memberOpts, services.WithInviteBaseURL(base))
	} else if base := deps.Config.Server.BaseURL; base != "" {
		memberOpts = append(memberOpts, services.WithInviteBaseURL(base))
	}
	if expiry := deps.Config.Invitations.Expiry; expiry > 0 {
		memberOpts = append(memberOpts, services.WithInviteExpiry(expiry))
	}
	members, err := services.NewMemberService(deps.DB, audit, deps.Mailer, memberOpts...)
	if err != nil {
		return nil, err
	}

	connections, err := services.NewConnectionService(deps.DB, audit)
	if err != nil {
		return nil, err
	}

	checker, err := permissions.NewChecker(deps.DB)
	if err != nil {
		return nil, err
	}
	conversations, err := services.NewConversationService(deps.DB, audit, checker)
	if err != nil {
		return nil, err
	}

	apiKeys, err := services.NewAPIKeyService(deps.DB, deps.Crypto, audit)
	if err != nil {
		return nil, err
	}

	return &routerServices{
		workspaces:    workspaces,
		members:       members,
		connections:   connections,
		conversations: conversations,
		apiKeys:       apiKeys,
		audit:         audit,
	}, nil
}
