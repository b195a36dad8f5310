package senotype

import (
	"context"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"

	"github.com/sennetconsortium/senotype-editor/modules/senotype/domain/aggregates/submission"
	"github.com/sennetconsortium/senotype-editor/modules/senotype/domain/entities/valueset"
	"github.com/sennetconsortium/senotype-editor/modules/senotype/infrastructure/archive"
	"github.com/sennetconsortium/senotype-editor/modules/senotype/infrastructure/lookup"
	"github.com/sennetconsortium/senotype-editor/modules/senotype/infrastructure/persistence"
	"github.com/sennetconsortium/senotype-editor/modules/senotype/presentation/controllers"
	"github.com/sennetconsortium/senotype-editor/modules/senotype/services"
	"github.com/sennetconsortium/senotype-editor/pkg/application"
	"github.com/sennetconsortium/senotype-editor/pkg/configuration"
	"github.com/sennetconsortium/senotype-editor/pkg/metrics"
	"github.com/sennetconsortium/senotype-editor/pkg/middleware"
)

type ModuleOptions struct {
	Configuration *configuration.Configuration
	// Context bounds background work such as the session janitor.
	Context context.Context
	// Registerer receives the editor metrics; nil skips registration.
	Registerer prometheus.Registerer
	// LimiterStore backs the lookup and session rate limits.
	LimiterStore limiter.Store
	// Repository and Valuesets override the database backends.
	Repository submission.Repository
	Valuesets  valueset.Repository
}

func NewModule(opts *ModuleOptions) application.Module {
	return &Module{opts: opts}
}

type Module struct {
	opts *ModuleOptions
}

func (m *Module) Register(app application.Application) error {
	cfg := m.opts.Configuration
	ctx := m.opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	log := app.Logger().WithField("component", "senotype")

	repo, valuesets, err := m.repositories(app.DB())
	if err != nil {
		return err
	}
	editorMetrics := metrics.NewEditor(m.opts.Registerer)
	fetcher := lookup.NewFetcherFromConfig(cfg.Lookup, log.WithField("component", "lookup"), editorMetrics)
	archiver, err := archive.Open(ctx, cfg.Archive)
	if err != nil {
		return err
	}

	senlib := services.NewSenlibService(repo, valuesets, log)
	sessions := services.NewSessionStore(cfg.SessionTTL, editorMetrics, log.WithField("component", "sessions"))
	editorService := services.NewEditorService(services.EditorServiceOptions{
		Senlib:    senlib,
		Catalog:   services.NewCatalog(lookup.Profiles(cfg.Lookup)),
		Fetcher:   fetcher,
		Sessions:  sessions,
		EntityURL: cfg.Lookup.EntityURL,
		Token:     cfg.Lookup.EntityToken,
		Logger:    log,
	})
	app.RegisterServices(
		senlib,
		editorService,
		services.NewSubmissionService(repo, senlib, archiver, app.EventPublisher(), editorMetrics),
		services.NewFTUService(fetcher, cfg.Lookup.FTUURL, cfg.Lookup.FTUCacheTTL, log.WithField("component", "ftu")),
	)
	go sessions.Run(ctx)

	hub := app.Websocket()
	app.EventPublisher().Subscribe(func(e *submission.SavedEvent) error {
		return controllers.BroadcastSaved(hub, e)
	})

	limit := m.lookupLimiter(cfg)
	app.RegisterControllers(
		controllers.NewHealthController(),
		controllers.NewEditController(app, controllers.EditControllerOptions{
			Limiter:       limit,
			MaxUploadSize: cfg.MaxUploadSize,
		}),
		controllers.NewUpdateController(app),
		controllers.NewLookupController(app, limit),
		controllers.NewDetailController(app, lookup.NewLinks(cfg.Links), cfg.Lookup.OntologyURL),
	)
	log.WithFields(logrus.Fields{"archive": cfg.Archive.Backend, "database": cfg.Database.Driver}).Info("senotype: module registered")
	return nil
}

func (m *Module) repositories(db *sqlx.DB) (submission.Repository, valueset.Repository, error) {
	repo, valuesets := m.opts.Repository, m.opts.Valuesets
	if repo != nil && valuesets != nil {
		return repo, valuesets, nil
	}
	if db != nil {
		if repo == nil {
			repo = persistence.NewSenlibRepository(db)
		}
		if valuesets == nil {
			valuesets = persistence.NewValuesetRepository(db)
		}
		return repo, valuesets, nil
	}
	if repo == nil {
		repo = persistence.NewMemoryRepository()
	}
	if valuesets == nil {
		terms := persistence.StaticValuesets{}
		if path := m.opts.Configuration.ValuesetPath; path != "" {
			fixture, err := persistence.LoadFixture(path)
			if err != nil {
				return nil, nil, err
			}
			terms = fixture.Valuesets
		}
		valuesets = terms
	}
	return repo, valuesets, nil
}

func (m *Module) lookupLimiter(cfg *configuration.Configuration) mux.MiddlewareFunc {
	if !cfg.RateLimit.Enabled || cfg.RateLimit.LookupRPS <= 0 {
		return nil
	}
	return middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerPeriod: cfg.RateLimit.LookupRPS,
		Store:             m.opts.LimiterStore,
	})
}

func (m *Module) Name() string {
	return "senotype"
}
