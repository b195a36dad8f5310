package controllers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/sennetconsortium/senotype-editor/modules/senotype/infrastructure/lookup"
	"github.com/sennetconsortium/senotype-editor/modules/senotype/presentation/mappers"
	"github.com/sennetconsortium/senotype-editor/modules/senotype/services"
	"github.com/sennetconsortium/senotype-editor/pkg/application"
	"github.com/sennetconsortium/senotype-editor/pkg/composables"
	"github.com/sennetconsortium/senotype-editor/pkg/editor"
	"github.com/sennetconsortium/senotype-editor/pkg/httpapi"
)

// LookupController proxies vocabulary searches for pages that query the
// external services directly.
type LookupController struct {
	editor  *services.EditorService
	senlib  *services.SenlibService
	ftu     *services.FTUService
	limiter mux.MiddlewareFunc
}

func NewLookupController(app application.Application, limiter mux.MiddlewareFunc) application.Controller {
	return &LookupController{
		editor:  app.Service(services.EditorService{}).(*services.EditorService),
		senlib:  app.Service(services.SenlibService{}).(*services.SenlibService),
		ftu:     app.Service(services.FTUService{}).(*services.FTUService),
		limiter: limiter,
	}
}

func (c *LookupController) Key() string {
	return "/lookup"
}

func (c *LookupController) Register(r *mux.Router) {
	lookups := r.PathPrefix("/lookup").Subrouter()
	if c.limiter != nil {
		lookups.Use(c.limiter)
	}
	lookups.HandleFunc("/{profile}", c.Lookup).Methods(http.MethodGet)

	r.HandleFunc("/valueset", c.Valueset).Methods(http.MethodGet)
	r.HandleFunc("/ftu", c.FTU).Methods(http.MethodGet)
}

// FTU returns the organ > FTU > part tree that feeds the ftu selector.
func (c *LookupController) FTU(w http.ResponseWriter, r *http.Request) {
	tree, err := c.ftu.Tree(r.Context())
	if err != nil {
		composables.UseLogger(r.Context()).WithError(err).Warn("lookup: ftu tree unavailable")
		writeAPIError(w, http.StatusBadGateway, "LOOKUP_FAILED", "the FTU source did not answer")
		return
	}
	if tree == nil {
		tree = []lookup.FTUNode{}
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, tree)
}

func (c *LookupController) Lookup(w http.ResponseWriter, r *http.Request) {
	profile, ok := c.editor.Catalog().Profile(pathVar(r, "profile"))
	if !ok {
		writeAPIError(w, http.StatusNotFound, "UNKNOWN_PROFILE", "unknown lookup profile")
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		_ = httpapi.WriteJSON(w, http.StatusOK, []editor.LookupResult{})
		return
	}
	results, err := editor.RunLookup(r.Context(), c.editor.FetcherFor(useIdentity(r)), profile, q)
	if err != nil {
		composables.UseLogger(r.Context()).WithError(err).WithField("profile", profile.Name()).Warn("lookup: proxy failed")
		writeAPIError(w, http.StatusBadGateway, "LOOKUP_FAILED", "the vocabulary service did not answer")
		return
	}
	if results == nil {
		results = []editor.LookupResult{}
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, results)
}

// Valueset returns the closed vocabulary of predicate, fuzzy-filtered by q.
func (c *LookupController) Valueset(w http.ResponseWriter, r *http.Request) {
	predicate := strings.TrimSpace(r.URL.Query().Get("predicate"))
	if predicate == "" {
		writeAPIError(w, http.StatusBadRequest, "INVALID_QUERY", "predicate is required")
		return
	}
	vs, err := c.senlib.Valuesets(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, mappers.ValuesetOptions(vs.Search(predicate, r.URL.Query().Get("q"))))
}
