package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sennetconsortium/senotype-editor/modules/senotype/infrastructure/lookup"
	"github.com/sennetconsortium/senotype-editor/modules/senotype/services"
	"github.com/sennetconsortium/senotype-editor/pkg/application"
	"github.com/sennetconsortium/senotype-editor/pkg/composables"
)

// DetailController redirects the "view externally" links of list entries
// to the page of the vocabulary that owns the code.
type DetailController struct {
	editor      *services.EditorService
	links       lookup.Links
	ontologyURL string
}

// NewDetailController resolves organ codes through the ontology API at ontologyURL.
func NewDetailController(app application.Application, links lookup.Links, ontologyURL string) application.Controller {
	return &DetailController{
		editor:      app.Service(services.EditorService{}).(*services.EditorService),
		links:       links,
		ontologyURL: ontologyURL,
	}
}

func (c *DetailController) Key() string {
	return "/detail"
}

func (c *DetailController) Register(r *mux.Router) {
	r.HandleFunc("/bio/{sab}/detail/{id}", c.Bio).Methods(http.MethodGet)
	r.HandleFunc("/citation/detail/{id}", c.resolveWith(c.links.Citation)).Methods(http.MethodGet)
	r.HandleFunc("/origin/detail/{id}", c.resolveWith(c.links.Origin)).Methods(http.MethodGet)
	r.HandleFunc("/doi/detail/{id:.+}", c.resolveWith(c.links.DOI)).Methods(http.MethodGet)
	r.HandleFunc("/dataset/portal/{id}", c.resolveWith(c.links.Portal)).Methods(http.MethodGet)
	r.HandleFunc("/dataset/detail/{id}", c.Dataset).Methods(http.MethodGet)
	r.HandleFunc("/detail/{id}", c.resolveWith(c.links.Resolve)).Methods(http.MethodGet)
	r.HandleFunc("/organs/home", c.OrganHome).Methods(http.MethodGet)
	r.HandleFunc("/organs/{id}", c.Organ).Methods(http.MethodGet)
}

func (c *DetailController) OrganHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, c.links.OrganHome(), http.StatusFound)
}

// Organ finds the UBERON code in the ontology organs list and redirects to
// the portal page of its organ term.
func (c *DetailController) Organ(w http.ResponseWriter, r *http.Request) {
	body, err := c.editor.FetcherFor(useIdentity(r)).Fetch(r.Context(), lookup.OrgansQuery(c.ontologyURL))
	if err != nil {
		composables.UseLogger(r.Context()).WithError(err).Warn("detail: organ lookup failed")
		writeAPIError(w, http.StatusBadGateway, "LOOKUP_FAILED", "the ontology service did not answer")
		return
	}
	organs, err := lookup.ParseOrgans(body)
	if err != nil {
		composables.UseLogger(r.Context()).WithError(err).Warn("detail: bad organs payload")
		writeAPIError(w, http.StatusBadGateway, "LOOKUP_FAILED", "the ontology service sent an unreadable answer")
		return
	}
	organ, ok := lookup.FindOrgan(organs, pathVar(r, "id"))
	if !ok {
		redirect(w, r, "", false)
		return
	}
	target, ok := c.links.Organ(organ)
	redirect(w, r, target, ok)
}

func (c *DetailController) Bio(w http.ResponseWriter, r *http.Request) {
	target, ok := c.links.Bio(pathVar(r, "sab"), pathVar(r, "id"))
	redirect(w, r, target, ok)
}

func (c *DetailController) resolveWith(resolve func(string) (string, bool)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target, ok := resolve(pathVar(r, "id"))
		redirect(w, r, target, ok)
	}
}

// Dataset looks the SenNet ID up in the entity API to find the portal uuid.
func (c *DetailController) Dataset(w http.ResponseWriter, r *http.Request) {
	profile, ok := c.editor.Catalog().Profile(lookup.Dataset)
	if !ok {
		writeAPIError(w, http.StatusNotFound, "UNKNOWN_PROFILE", "dataset lookups are not configured")
		return
	}
	body, err := c.editor.FetcherFor(useIdentity(r)).Fetch(r.Context(), profile.BuildQuery(pathVar(r, "id")))
	if err != nil {
		composables.UseLogger(r.Context()).WithError(err).Warn("detail: entity lookup failed")
		writeAPIError(w, http.StatusBadGateway, "LOOKUP_FAILED", "the entity service did not answer")
		return
	}
	entity, err := lookup.ParseEntity(body)
	if err != nil || entity == nil {
		redirect(w, r, "", false)
		return
	}
	target, ok := c.links.Portal(entity.UUID)
	redirect(w, r, target, ok)
}

func redirect(w http.ResponseWriter, r *http.Request, target string, ok bool) {
	if !ok {
		writeAPIError(w, http.StatusNotFound, "UNKNOWN_CODE", "no external page for this code")
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}
