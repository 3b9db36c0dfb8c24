package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/learnhub/community/internal/content"
	"github.com/learnhub/community/internal/engagement"
	"github.com/learnhub/community/internal/ranking"
	"github.com/learnhub/community/internal/thread"
	"github.com/learnhub/community/pkg/logging"
)

// HealthChecker reports whether a dependency is reachable
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Router sets up API routes
type Router struct {
	handler   *JSONRPCHandler
	community *CommunityAPI
	checks    map[string]HealthChecker
	logger    *zap.Logger
}

// NewRouter creates a new API router
func NewRouter(c *content.Service, e *engagement.Engine, t *thread.Service, r *ranking.Service) *Router {
	router := &Router{
		handler:   NewJSONRPCHandler(),
		community: NewCommunityAPI(c, e, t, r),
		checks:    make(map[string]HealthChecker),
		logger:    logging.WithComponent("api-router"),
	}

	router.registerMethods()

	return router
}

// AddHealthCheck includes a dependency in the /health response
func (r *Router) AddHealthCheck(name string, hc HealthChecker) {
	r.checks[name] = hc
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	engine.Use(ActorMiddleware(), AccessLog(r.logger))

	engine.GET("/health", r.healthHandler)
	engine.GET("/.well-known/healthcheck.json", r.healthHandler)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// JSON-RPC endpoint
	engine.POST("/", r.handler.Handle)
}

// registerMethods registers all API methods
func (r *Router) registerMethods() {
	api := r.community

	// Posts
	r.handler.RegisterMethod("community.create_post", api.CreatePost)
	r.handler.RegisterMethod("community.get_post", api.GetPost)
	r.handler.RegisterMethod("community.get_post_admin", api.GetPostAdmin)
	r.handler.RegisterMethod("community.update_post", api.UpdatePost)
	r.handler.RegisterMethod("community.delete_post", api.DeletePost)

	// Reactions
	r.handler.RegisterMethod("community.toggle_like", api.ToggleLike)
	r.handler.RegisterMethod("community.toggle_dislike", api.ToggleDislike)
	r.handler.RegisterMethod("community.toggle_bookmark", api.ToggleBookmark)

	// Threads
	r.handler.RegisterMethod("community.add_comment", api.AddComment)
	r.handler.RegisterMethod("community.add_reply", api.AddReply)
	r.handler.RegisterMethod("community.delete_comment", api.DeleteComment)
	r.handler.RegisterMethod("community.toggle_comment_like", api.ToggleCommentLike)

	// Listings
	r.handler.RegisterMethod("community.list_posts", api.ListPosts)
	r.handler.RegisterMethod("community.list_trending", api.ListTrending)
}

// healthHandler handles health check requests
func (r *Router) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := gin.H{}
	for name, hc := range r.checks {
		if err := hc.Health(ctx); err != nil {
			r.logger.Warn("Health check failed", zap.String("dependency", name), zap.Error(err))
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "OK"
	}

	body := gin.H{
		"status":  "OK",
		"service": "community-api",
	}
	if status != http.StatusOK {
		body["status"] = "DEGRADED"
	}
	if len(deps) > 0 {
		body["dependencies"] = deps
	}
	c.JSON(status, body)
}
