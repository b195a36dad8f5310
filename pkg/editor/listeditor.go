package editor

import (
	"fmt"
	"strings"
)

// Entry is one row of a list editor. A blank Key marks a placeholder row.
type Entry struct {
	Key     string `json:"key"`
	Display string `json:"display"`
	Action  Action `json:"action,omitempty"`
}

func (e Entry) placeholder() bool {
	return strings.TrimSpace(e.Key) == ""
}

// Field is one name/value pair of the wire payload.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ListEditor owns the ordered entries of one assertion type. Submission field
// names are derived from position on demand and never stored.
type ListEditor struct {
	kind    ListKind
	bus     publisher
	entries []Entry
	locked  bool
}

type publisher interface {
	Publish(args ...interface{})
}

func (l *ListEditor) Kind() ListKind { return l.kind }
func (l *ListEditor) Len() int       { return len(l.entries) }
func (l *ListEditor) Locked() bool   { return l.locked }

func (l *ListEditor) Entries() []Entry {
	return append([]Entry(nil), l.entries...)
}

// Load replaces the entries with server-provided rows, placeholders included.
func (l *ListEditor) Load(entries []Entry) {
	l.entries = append([]Entry(nil), entries...)
	l.notify(ListLoaded)
}

// Add appends an entry unless one with the same identity already exists.
// Directional lists use (key, action) as the identity.
func (l *ListEditor) Add(key, display string, action Action) (bool, error) {
	if l.locked {
		return false, ErrReadOnly
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return false, ErrEmptyKey
	}
	if l.kind.Directional {
		if action == ActionNone {
			return false, ErrActionRequired
		}
	} else {
		action = ActionNone
	}

	purged := l.purgePlaceholders()
	if l.indexOf(key, action) >= 0 {
		if purged {
			l.notify(ListPurged)
		}
		return false, nil
	}
	if display == "" {
		display = key
	}
	l.entries = append(l.entries, Entry{Key: key, Display: display, Action: action})
	l.notify(ListAdded)
	return true, nil
}

func (l *ListEditor) Remove(index int) error {
	if l.locked {
		return ErrReadOnly
	}
	if index < 0 || index >= len(l.entries) {
		return fmt.Errorf("%w: %s[%d]", ErrIndexOutOfRange, l.kind.Name, index)
	}
	l.entries = append(l.entries[:index], l.entries[index+1:]...)
	l.notify(ListRemoved)
	return nil
}

// RemoveKey removes the entry with the given identity; it reports whether one was found.
func (l *ListEditor) RemoveKey(key string, action Action) (bool, error) {
	if !l.kind.Directional {
		action = ActionNone
	}
	i := l.indexOf(strings.TrimSpace(key), action)
	if i < 0 {
		return false, nil
	}
	return true, l.Remove(i)
}

func (l *ListEditor) Contains(key string, action Action) bool {
	if !l.kind.Directional {
		action = ActionNone
	}
	return l.indexOf(key, action) >= 0
}

func (l *ListEditor) indexOf(key string, action Action) int {
	for i, e := range l.entries {
		if e.Key == key && e.Action == action {
			return i
		}
	}
	return -1
}

func (l *ListEditor) purgePlaceholders() bool {
	kept := l.entries[:0]
	for _, e := range l.entries {
		if !e.placeholder() {
			kept = append(kept, e)
		}
	}
	purged := len(kept) != len(l.entries)
	l.entries = kept
	return purged
}

// Fields returns the positional wire fields: {prefix}-{i} and, for
// directional lists, {prefix}-action-{i}.
func (l *ListEditor) Fields() []Field {
	prefix := l.kind.prefix()
	fields := make([]Field, 0, len(l.entries))
	for i, e := range l.entries {
		fields = append(fields, Field{Name: fmt.Sprintf("%s-%d", prefix, i), Value: e.Key})
		if l.kind.Directional {
			fields = append(fields, Field{Name: fmt.Sprintf("%s-action-%d", prefix, i), Value: string(e.Action)})
		}
	}
	return fields
}

// Link returns the external link for entry i, if the list kind has one.
func (l *ListEditor) Link(i int) (string, string, bool) {
	if l.kind.Link == nil || i < 0 || i >= len(l.entries) || l.entries[i].placeholder() {
		return "", "", false
	}
	href, title := l.kind.Link.Build(l.entries[i].Key)
	return href, title, true
}

// Accept adds a lookup result; it makes the list a LookupTarget.
func (l *ListEditor) Accept(r LookupResult, display string, action Action) (bool, error) {
	return l.Add(r.ID, display, action)
}

func (l *ListEditor) setLocked(locked bool) {
	l.locked = locked
}

func (l *ListEditor) notify(op ListOp) {
	l.bus.Publish(&ListMutated{List: l.kind.Name, Op: op, Count: len(l.entries)})
	l.bus.Publish(&FormChanged{Source: l.kind.ContainerID()})
}
