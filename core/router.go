package core

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// RouterDeps carries the components NewRouter wires into routes.
// State, Status and Gatherer may be nil.
type RouterDeps struct {
	Logger   *slog.Logger
	Accounts *AccountService
	Codec    *TokenCodec
	State    *DispatcherState
	Status   *StatusService
	Gatherer prometheus.Gatherer
}

// NewRouter constructs the Gin engine with routes wired.
func NewRouter(cfg Config, deps RouterDeps) *gin.Engine {
	startedAt := time.Now()
	logger := deps.Logger
	if logger == nil {
		logger = discardLogger()
	}

	r := gin.New()

	// Global middleware: recovery -> request id -> log -> origin/CORS -> error translation
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger(logger))
	r.Use(OriginRefererMiddleware(cfg))
	r.Use(ResponseTranslator(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	accounts := deps.Accounts
	api := r.Group("/api")
	{
		api.GET("/status", func(c *gin.Context) {
			c.JSON(http.StatusOK, CollectSystemStatus(c.Request.Context(), deps.State, deps.Status, startedAt))
		})

		api.GET("/status/instances/:id", func(c *gin.Context) {
			if deps.Status == nil {
				respondError(c, http.StatusNotFound, "NOT_FOUND", "instance not found")
				return
			}
			hb, err := deps.Status.InstanceByID(c.Request.Context(), c.Param("id"))
			if errors.Is(err, redis.Nil) {
				respondError(c, http.StatusNotFound, "NOT_FOUND", "instance not found")
				return
			}
			if err != nil {
				_ = c.Error(err)
				return
			}
			c.JSON(http.StatusOK, hb)
		})

		api.POST("/users/login", func(c *gin.Context) {
			var req loginRequest
			if !bindBody(c, &req) {
				return
			}
			out, err := accounts.Login(c.Request.Context(), req.User)
			if err != nil {
				_ = c.Error(err)
				return
			}
			c.JSON(http.StatusOK, userEnvelope{User: out})
		})

		api.POST("/users", func(c *gin.Context) {
			var req registerRequest
			if !bindBody(c, &req) {
				return
			}
			out, err := accounts.Register(c.Request.Context(), req.User)
			if err != nil {
				_ = c.Error(err)
				return
			}
			c.JSON(http.StatusCreated, userEnvelope{User: out})
		})

		authed := api.Group("/user", AuthGate(deps.Codec, logger))
		authed.GET("", func(c *gin.Context) {
			ac, _ := AuthContextFrom(c)
			out, err := accounts.Current(c.Request.Context(), ac.Subject)
			if err != nil {
				handleLookupError(c, err)
				return
			}
			c.JSON(http.StatusOK, userEnvelope{User: out})
		})

		authed.PUT("", func(c *gin.Context) {
			ac, _ := AuthContextFrom(c)
			var req updateRequest
			if !bindBody(c, &req) {
				return
			}
			out, err := accounts.Update(c.Request.Context(), ac.Subject, req.User)
			if err != nil {
				handleLookupError(c, err)
				return
			}
			c.JSON(http.StatusOK, userEnvelope{User: out})
		})
	}

	return r
}

// bindBody decodes the JSON body into dst. A malformed body aborts with a
// bare 422.
func bindBody(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.AbortWithStatus(http.StatusUnprocessableEntity)
		return false
	}
	return true
}

// handleLookupError answers 404 for a token whose account no longer exists
// and defers everything else to ResponseTranslator.
func handleLookupError(c *gin.Context, err error) {
	if errors.Is(err, ErrUserNotFound) {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "user not found")
		return
	}
	_ = c.Error(err)
}
