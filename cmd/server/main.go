package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sennetconsortium/senotype-editor/internal/server"
	"github.com/sennetconsortium/senotype-editor/modules"
	"github.com/sennetconsortium/senotype-editor/modules/senotype"
	"github.com/sennetconsortium/senotype-editor/modules/senotype/infrastructure/persistence"
	"github.com/sennetconsortium/senotype-editor/pkg/application"
	"github.com/sennetconsortium/senotype-editor/pkg/configuration"
	"github.com/sennetconsortium/senotype-editor/pkg/eventbus"
	"github.com/sennetconsortium/senotype-editor/pkg/metrics"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	defer conf.Unload()
	logger := conf.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *sqlx.DB
	if conf.Database.Driver != "memory" {
		var err error
		db, err = persistence.Open(ctx, conf.Database)
		if err != nil {
			panic(err)
		}
		defer db.Close()
		if conf.Database.Driver == "sqlite" {
			if _, err := persistence.Migrate(ctx, db); err != nil {
				panic(err)
			}
		}
	}

	app := application.New(&application.ApplicationOptions{
		DB:       db,
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
		Huber: application.NewHub(&application.HuberOptions{
			Logger: logger,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		}),
	})
	if err := modules.Load(app, modules.BuiltInModules(&senotype.ModuleOptions{
		Configuration: conf,
		Context:       ctx,
		Registerer:    prometheus.DefaultRegisterer,
	})...); err != nil {
		log.Fatalf("failed to load modules: %v", err)
	}

	if conf.Prometheus.Enabled {
		app.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path, prometheus.DefaultGatherer))
	}
	serverInstance, err := server.Default(&server.DefaultOptions{
		Logger:        logger,
		Configuration: conf,
		Application:   app,
		DB:            db,
	})
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}

	srv := serverInstance.Server(conf.SocketAddress)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("graceful shutdown failed")
		}
	}()
	log.Printf("Listening on: %s://%s\n", conf.Scheme(), conf.SocketAddress)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("failed to start server: %v", err)
	}
}
