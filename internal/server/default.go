package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"

	"github.com/sennetconsortium/senotype-editor/pkg/application"
	"github.com/sennetconsortium/senotype-editor/pkg/configuration"
	"github.com/sennetconsortium/senotype-editor/pkg/constants"
	"github.com/sennetconsortium/senotype-editor/pkg/httpapi"
	"github.com/sennetconsortium/senotype-editor/pkg/middleware"
	"github.com/sennetconsortium/senotype-editor/pkg/server"
)

type DefaultOptions struct {
	Logger        *logrus.Logger
	Configuration *configuration.Configuration
	Application   application.Application
	DB            *sqlx.DB
	// LimiterStore is shared with the module-level limits; nil builds one from the configuration.
	LimiterStore limiter.Store
}

// LimiterStore builds the rate limit store selected by the configuration,
// falling back to memory when redis cannot be reached.
func LimiterStore(conf *configuration.Configuration, log logrus.FieldLogger) limiter.Store {
	if conf.RateLimit.Storage == "redis" {
		store, err := middleware.NewRedisStore(conf.RateLimit.RedisURL)
		if err == nil {
			return store
		}
		log.WithError(err).Warn("Failed to create Redis store for rate limiting, falling back to memory")
	}
	return middleware.NewMemoryStore()
}

func Default(options *DefaultOptions) (*server.HTTPServer, error) {
	app := options.Application
	conf := options.Configuration

	loggerOpts := middleware.DefaultLoggerOptions()
	loggerOpts.RequestIDHeader = conf.RequestIDHeader
	loggerOpts.RealIPHeader = conf.RealIPHeader

	// Core middleware stack with tracing capabilities
	middlewares := []mux.MiddlewareFunc{
		middleware.WithLogger(options.Logger, loggerOpts),

		middleware.TracedMiddleware("database"),
		middleware.Provide(constants.AppKey, app),
		middleware.ProvideDB(options.DB),

		middleware.TracedMiddleware("cors"),
		middleware.Cors(conf.AllowedOrigins...),

		middleware.TracedMiddleware("identity"),
		middleware.WithIdentity(conf.Auth),
	}

	if conf.RateLimit.Enabled {
		store := options.LimiterStore
		if store == nil {
			store = LimiterStore(conf, options.Logger)
		}
		middlewares = append(middlewares,
			middleware.TracedMiddleware("rateLimit"),
			middleware.RateLimit(middleware.RateLimitConfig{
				RequestsPerPeriod: conf.RateLimit.GlobalRPS,
				Store:             store,
			}),
		)
	}

	middlewares = append(middlewares,
		middleware.TracedMiddleware("requestParams"),
		middleware.RequestParams(),
	)

	app.RegisterMiddleware(middlewares...)

	return server.NewHTTPServer(app, NotFound(), MethodNotAllowed()), nil
}

func NotFound() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = httpapi.WriteError(w, http.StatusNotFound, "NOT_FOUND", "page not found", map[string]string{"path": r.URL.Path})
	})
}

func MethodNotAllowed() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = httpapi.WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", map[string]string{"method": r.Method})
	})
}
