package viewmodels

import (
	"github.com/sennetconsortium/senotype-editor/pkg/editor"
)

// EditPage is the payload of the edit page: the full state of a fresh session.
type EditPage struct {
	SessionID string       `json:"session_id"`
	UpdateURL string       `json:"update_url"`
	SocketURL string       `json:"socket_url"`
	State     editor.State `json:"state"`
}

type ImportResult struct {
	Report *editor.ImportReport `json:"report"`
	Ready  bool                 `json:"ready"`
	State  editor.State         `json:"state"`
}

type ValidationErrors struct {
	Errors []editor.FieldError `json:"errors"`
}

// ValuesetOption is one row of a valueset dropdown.
type ValuesetOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// SocketMessage is written back on the editor websocket for every command.
type SocketMessage struct {
	Result *editor.Result `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}
