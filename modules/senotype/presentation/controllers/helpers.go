package controllers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/gorilla/mux"

	"github.com/sennetconsortium/senotype-editor/modules/senotype/domain/aggregates/submission"
	"github.com/sennetconsortium/senotype-editor/modules/senotype/services"
	"github.com/sennetconsortium/senotype-editor/pkg/composables"
	"github.com/sennetconsortium/senotype-editor/pkg/editor"
	"github.com/sennetconsortium/senotype-editor/pkg/httpapi"
)

// editorRejections are command errors caused by the request rather than the server.
var editorRejections = []error{
	editor.ErrUnknownControl,
	editor.ErrUnknownList,
	editor.ErrUnknownNode,
	editor.ErrUnknownBinding,
	editor.ErrReadOnly,
	editor.ErrEmptyKey,
	editor.ErrActionRequired,
	editor.ErrInvalidAction,
	editor.ErrIndexOutOfRange,
	editor.ErrUnknownSubmit,
	editor.ErrImportIncomplete,
	editor.ErrNoImport,
	editor.ErrSessionClosed,
}

func requestID(w http.ResponseWriter) string {
	return w.Header().Get("X-Request-Id")
}

func writeAPIError(w http.ResponseWriter, status int, code, message string) {
	var meta map[string]string
	if id := requestID(w); id != "" {
		meta = map[string]string{"request_id": id}
	}
	_ = httpapi.WriteError(w, status, code, message, meta)
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, submission.ErrNotFound):
		writeAPIError(w, http.StatusNotFound, "SENOTYPE_NOT_FOUND", err.Error())
	case errors.Is(err, services.ErrSessionNotFound):
		writeAPIError(w, http.StatusNotFound, "SESSION_NOT_FOUND", err.Error())
	case errors.Is(err, submission.ErrNotAuthorized), errors.Is(err, services.ErrSessionForbidden):
		writeAPIError(w, http.StatusForbidden, "FORBIDDEN", err.Error())
	case errors.Is(err, submission.ErrPublished), errors.Is(err, submission.ErrOpenVersion):
		writeAPIError(w, http.StatusConflict, "CONFLICT", err.Error())
	case errors.Is(err, submission.ErrInvalidID):
		writeAPIError(w, http.StatusBadRequest, "INVALID_ID", err.Error())
	case isRejection(err):
		writeAPIError(w, http.StatusUnprocessableEntity, "EDITOR_REJECTED", err.Error())
	default:
		composables.UseLogger(r.Context()).WithError(err).Error("senotype: request failed")
		writeAPIError(w, http.StatusInternalServerError, "INTERNAL", "internal server error")
	}
}

func isRejection(err error) bool {
	for _, target := range editorRejections {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// useIdentity returns the caller, or an anonymous identity.
func useIdentity(r *http.Request) *composables.Identity {
	identity, err := composables.UseIdentity(r.Context())
	if err != nil {
		return &composables.Identity{}
	}
	return identity
}

func decodeJSON(body io.ReadCloser, out any) error {
	defer func() { _ = body.Close() }()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

func pathVar(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}
