package services

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/sennetconsortium/senotype-editor/pkg/editor"
	"github.com/sennetconsortium/senotype-editor/pkg/metrics"
)

func TestSessionStore_Expiry(t *testing.T) {
	t.Parallel()

	m := metrics.NewEditor(prometheus.NewRegistry())
	store := NewSessionStore(time.Minute, m, quietLogger())
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	store.Put(&Session{Editor: editor.New(editor.Config{SessionID: "s1", Logger: quietLogger()})})
	store.Put(&Session{Editor: editor.New(editor.Config{SessionID: "s2", Logger: quietLogger()})})
	require.InDelta(t, 2, testutil.ToFloat64(m.Sessions), 0)

	now = now.Add(50 * time.Second)
	_, ok := store.Get("s1")
	require.True(t, ok, "get refreshes the deadline")

	now = now.Add(30 * time.Second)
	require.Equal(t, 1, store.Sweep())
	_, ok = store.Get("s2")
	require.False(t, ok)
	_, ok = store.Get("s1")
	require.True(t, ok)
	require.InDelta(t, 1, testutil.ToFloat64(m.Sessions), 0)

	now = now.Add(2 * time.Minute)
	_, ok = store.Get("s1")
	require.False(t, ok)
	require.Zero(t, store.Len())
	require.InDelta(t, 0, testutil.ToFloat64(m.Sessions), 0)
}
