package editor

import "errors"

var (
	ErrUnknownControl   = errors.New("editor: unknown control")
	ErrUnknownList      = errors.New("editor: unknown list")
	ErrUnknownNode      = errors.New("editor: unknown tree node")
	ErrUnknownBinding   = errors.New("editor: unknown lookup binding")
	ErrReadOnly         = errors.New("editor: control is read-only")
	ErrEmptyKey         = errors.New("editor: identity key is empty")
	ErrActionRequired   = errors.New("editor: regulation action is required")
	ErrInvalidAction    = errors.New("editor: invalid regulation action")
	ErrIndexOutOfRange  = errors.New("editor: index out of range")
	ErrUnknownSubmit    = errors.New("editor: unknown submit action")
	ErrImportIncomplete = errors.New("editor: import has unresolved rows")
	ErrNoImport         = errors.New("editor: no pending import")
	ErrSessionClosed    = errors.New("editor: session navigated away")
)
