package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sennetconsortium/senotype-editor/modules/senotype/domain/aggregates/submission"
	"github.com/sennetconsortium/senotype-editor/modules/senotype/presentation/mappers"
	"github.com/sennetconsortium/senotype-editor/modules/senotype/presentation/viewmodels"
	"github.com/sennetconsortium/senotype-editor/modules/senotype/services"
	"github.com/sennetconsortium/senotype-editor/pkg/application"
	"github.com/sennetconsortium/senotype-editor/pkg/composables"
	"github.com/sennetconsortium/senotype-editor/pkg/httpapi"
)

type UpdateController struct {
	editor      *services.EditorService
	submissions *services.SubmissionService
}

func NewUpdateController(app application.Application) application.Controller {
	return &UpdateController{
		editor:      app.Service(services.EditorService{}).(*services.EditorService),
		submissions: app.Service(services.SubmissionService{}).(*services.SubmissionService),
	}
}

func (c *UpdateController) Key() string {
	return "/update"
}

func (c *UpdateController) Register(r *mux.Router) {
	r.HandleFunc("/update", c.Update).Methods(http.MethodPost)
}

// Update stores the assembled form. With ?session= the originating editor
// session shows validation errors and is closed after a successful save.
func (c *UpdateController) Update(w http.ResponseWriter, r *http.Request) {
	identity := useIdentity(r)
	if !identity.Authenticated() {
		writeAPIError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "sign in to save senotypes")
		return
	}
	dto, err := composables.UseForm(&submission.UpdateDTO{}, r)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "INVALID_FORM", "invalid form")
		return
	}
	dto.ReadLists(r.Form)

	session := r.URL.Query().Get("session")
	if errs, ok := dto.Ok(); !ok {
		fieldErrors := mappers.FieldErrors(errs)
		if session != "" {
			c.editor.ReportErrors(session, identity, fieldErrors)
		}
		_ = httpapi.WriteJSON(w, http.StatusUnprocessableEntity, viewmodels.ValidationErrors{Errors: fieldErrors})
		return
	}

	res, err := c.submissions.Submit(r.Context(), dto, identity)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if session != "" {
		if _, err := c.editor.Session(session, identity); err == nil {
			c.editor.Close(session)
		}
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, res)
}
