package server

import (
	"fmt"
	"net/http"

	"pipeline-crm/internal/config"
	"pipeline-crm/internal/crm"
	"pipeline-crm/internal/handlers"
	"pipeline-crm/internal/identity"
	"pipeline-crm/internal/metrics"
	"pipeline-crm/internal/middleware"
	"pipeline-crm/internal/session"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Deps struct {
	Users *identity.Service
	CRM   *crm.Service
	Log   logrus.FieldLogger
}

func NewRouter(cfg *config.Config, deps Deps) (*gin.Engine, error) {
	store, err := newSessionStore(cfg)
	if err != nil {
		return nil, err
	}
	store.Options(session.CookieOptions(cfg.SessionSecure))

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(deps.Log))
	r.Use(sessions.Sessions(session.Name, store))
	r.Use(middleware.InjectUser(deps.Users, deps.Log))

	h := handlers.New(deps.Users, deps.CRM, deps.Log)

	r.GET("/", h.Index)
	r.POST("/", h.Dispatch)

	// HEALTHCHECK
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	return r, nil
}

// NewMetricsRouter serves /metrics. It listens on its own port so scrapes never reach the
// public listener.
func NewMetricsRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/metrics", metrics.Handler())
	return r
}

func newSessionStore(cfg *config.Config) (sessions.Store, error) {
	secret := []byte(cfg.SessionSecret)
	switch cfg.SessionStore {
	case config.SessionStoreRedis:
		store, err := redis.NewStore(10, "tcp", cfg.RedisAddr, cfg.RedisPassword, secret)
		if err != nil {
			return nil, fmt.Errorf("redis session store: %w", err)
		}
		return store, nil
	default:
		return cookie.NewStore(secret), nil
	}
}
