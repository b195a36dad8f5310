package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/sennetconsortium/senotype-editor/modules/senotype/presentation/viewmodels"
	"github.com/sennetconsortium/senotype-editor/modules/senotype/services"
	"github.com/sennetconsortium/senotype-editor/pkg/application"
	"github.com/sennetconsortium/senotype-editor/pkg/editor"
	"github.com/sennetconsortium/senotype-editor/pkg/httpapi"
)

const (
	// SenlibChannel receives a message whenever a senotype is saved.
	SenlibChannel = "senlib"

	sessionChannelPrefix = "session:"
	defaultUploadSize    = 5 << 20
)

type EditControllerOptions struct {
	// Limiter guards the session routes; nil disables it.
	Limiter       mux.MiddlewareFunc
	MaxUploadSize int64
}

type EditController struct {
	app       application.Application
	editor    *services.EditorService
	hub       application.Huber
	limiter   mux.MiddlewareFunc
	maxUpload int64
}

func NewEditController(app application.Application, opts EditControllerOptions) application.Controller {
	c := &EditController{
		app:       app,
		editor:    app.Service(services.EditorService{}).(*services.EditorService),
		hub:       app.Websocket(),
		limiter:   opts.Limiter,
		maxUpload: opts.MaxUploadSize,
	}
	if c.maxUpload <= 0 {
		c.maxUpload = defaultUploadSize
	}
	if c.hub != nil {
		c.hub.OnMessage(c.onSocketMessage)
	}
	return c
}

func (c *EditController) Key() string {
	return "/edit"
}

func (c *EditController) Register(r *mux.Router) {
	r.HandleFunc("/edit", c.Edit).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/senlib/ws", c.SenlibSocket).Methods(http.MethodGet)

	sessions := r.PathPrefix("/edit/sessions/{id}").Subrouter()
	if c.limiter != nil {
		sessions.Use(c.limiter)
	}
	sessions.HandleFunc("/commands", c.Command).Methods(http.MethodPost)
	sessions.HandleFunc("/import", c.Import).Methods(http.MethodPost)
	sessions.HandleFunc("/ws", c.SessionSocket).Methods(http.MethodGet)
	sessions.HandleFunc("", c.CloseSession).Methods(http.MethodDelete)
}

// Edit opens a session for selected_node_id and returns its state.
func (c *EditController) Edit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeAPIError(w, http.StatusBadRequest, "INVALID_FORM", "invalid form")
		return
	}
	sess, err := c.editor.Open(r.Context(), services.OpenParams{
		SelectedID: r.Form.Get(editor.SelectedNodeField),
		Identity:   useIdentity(r),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	id := sess.Editor.ID()
	_ = httpapi.WriteJSON(w, http.StatusOK, viewmodels.EditPage{
		SessionID: id,
		UpdateURL: "/update?session=" + id,
		SocketURL: "/edit/sessions/" + id + "/ws",
		State:     sess.Editor.State(),
	})
}

func (c *EditController) Command(w http.ResponseWriter, r *http.Request) {
	var cmd editor.Command
	if err := decodeJSON(r.Body, &cmd); err != nil {
		writeAPIError(w, http.StatusBadRequest, "INVALID_BODY", "invalid json body")
		return
	}
	res, err := c.editor.Apply(r.Context(), pathVar(r, "id"), useIdentity(r), cmd)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, res)
}

// Import validates an uploaded marker file into the session's pending import.
// The list defaults to the specified markers.
func (c *EditController) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, c.maxUpload)
	if err := r.ParseMultipartForm(c.maxUpload); err != nil {
		writeAPIError(w, http.StatusBadRequest, "INVALID_UPLOAD", "upload a csv or xlsx file")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "INVALID_UPLOAD", "file is required")
		return
	}
	defer file.Close()

	list := strings.TrimSpace(r.FormValue("list"))
	if list == "" {
		list = "marker"
	}
	report, state, err := c.editor.Import(r.Context(), pathVar(r, "id"), useIdentity(r), list, header.Filename, file)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, viewmodels.ImportResult{Report: report, Ready: report.Ready(), State: state})
}

func (c *EditController) CloseSession(w http.ResponseWriter, r *http.Request) {
	id := pathVar(r, "id")
	if _, err := c.editor.Session(id, useIdentity(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	c.editor.Close(id)
	w.WriteHeader(http.StatusNoContent)
}

// SessionSocket upgrades to a websocket carrying commands for one session.
func (c *EditController) SessionSocket(w http.ResponseWriter, r *http.Request) {
	id := pathVar(r, "id")
	if _, err := c.editor.Session(id, useIdentity(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	c.serveSocket(w, r, sessionChannelPrefix+id)
}

// SenlibSocket streams save notifications so open trees can refresh.
func (c *EditController) SenlibSocket(w http.ResponseWriter, r *http.Request) {
	c.serveSocket(w, r, SenlibChannel)
}

func (c *EditController) serveSocket(w http.ResponseWriter, r *http.Request, channel string) {
	if c.hub == nil {
		writeAPIError(w, http.StatusServiceUnavailable, "NO_WEBSOCKET", "websocket hub is not configured")
		return
	}
	c.hub.ServeHTTP(w, r.WithContext(application.WithChannel(r.Context(), channel)))
}

func (c *EditController) onSocketMessage(ctx context.Context, conn application.Connection, msg []byte) error {
	id, ok := strings.CutPrefix(conn.Channel(), sessionChannelPrefix)
	if !ok {
		return nil
	}
	var out viewmodels.SocketMessage
	var cmd editor.Command
	if err := json.Unmarshal(msg, &cmd); err != nil {
		out.Error = "invalid command"
	} else if res, err := c.editor.ApplyVerified(ctx, id, cmd); err != nil {
		out.Error = err.Error()
	} else {
		out.Result = res
	}
	body, err := json.Marshal(out)
	if err != nil {
		return errors.Wrap(err, "encode socket reply")
	}
	if err := conn.SendMessage(body); err != nil {
		return err
	}
	if out.Result != nil && out.Result.Navigation != nil {
		c.app.Logger().WithFields(logrus.Fields{"session": id, "node": out.Result.Navigation.NodeID}).Debug("editor: socket session navigated")
	}
	return nil
}

// BroadcastSaved notifies senlib listeners that a senotype changed.
func BroadcastSaved(hub application.Huber, payload any) error {
	if hub == nil {
		return nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "encode saved event")
	}
	hub.Broadcast(SenlibChannel, body)
	return nil
}
