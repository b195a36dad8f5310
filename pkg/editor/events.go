package editor

type ListOp string

const (
	ListLoaded  ListOp = "load"
	ListAdded   ListOp = "add"
	ListRemoved ListOp = "remove"
	ListPurged  ListOp = "purge"
)

// ControlChanged is published after a scalar control's value or checked state changed.
type ControlChanged struct {
	ID string
}

// ListMutated is published after any structural change of a list editor.
type ListMutated struct {
	List  string
	Op    ListOp
	Count int
}

// ErrorsReported is published whenever the displayed server validation errors are replaced.
type ErrorsReported struct {
	Count int
}

// FormChanged is the coarse notification that follows every control or list mutation.
type FormChanged struct {
	Source string
}
