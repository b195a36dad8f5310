package eventbus

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type args struct {
	data any
}

func bufferedLogger(level logrus.Level) (*logrus.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	log := logrus.New()
	log.SetOutput(buf)
	log.SetLevel(level)
	return log, buf
}

func TestPublisher_PublishWithoutMatch(t *testing.T) {
	t.Parallel()
	type other struct{}

	log, buf := bufferedLogger(logrus.DebugLevel)
	publisher := NewEventPublisher(log)
	publisher.Subscribe(func(e *args) {
		t.Error("should not be called")
	})
	publisher.Publish(&other{})

	require.Contains(t, buf.String(), "no matching subscribers")
}

func TestPublisher_Subscribe(t *testing.T) {
	t.Parallel()

	log, _ := bufferedLogger(logrus.WarnLevel)
	publisher := NewEventPublisher(log)
	var got any
	publisher.Subscribe(func(e *args) {
		got = e.data
	})
	publisher.Publish(&args{data: "test"})

	require.Equal(t, "test", got)
	require.Equal(t, 1, publisher.SubscribersCount())
}

func TestPublisher_Unsubscribe(t *testing.T) {
	t.Parallel()

	publisher := NewEventPublisher(nil)
	calls := 0
	handler := func(e *args) { calls++ }
	publisher.Subscribe(handler)
	publisher.Publish(&args{})
	publisher.Unsubscribe(handler)
	publisher.Publish(&args{})

	require.Equal(t, 1, calls)
	require.Zero(t, publisher.SubscribersCount())
}

func TestPublisher_NilArgument(t *testing.T) {
	t.Parallel()

	publisher := NewEventPublisher(nil)
	var got *args
	called := false
	publisher.Subscribe(func(e *args) { got, called = e, true })
	require.NoError(t, publisher.PublishE(nil))
	require.True(t, called)
	require.Nil(t, got)
}

func TestMatchSignature(t *testing.T) {
	t.Parallel()
	type a struct{}
	type b struct{}

	require.True(t, MatchSignature(func(e *a) {}, []any{&a{}}))
	require.False(t, MatchSignature(func(e *a) {}, []any{&b{}}))
	require.False(t, MatchSignature(func(e *a) {}, []any{}))
	require.False(t, MatchSignature(func(e *a) {}, []any{&a{}, &a{}}))
	require.True(t, MatchSignature(func(ctx context.Context) {}, []any{context.Background()}))
	require.True(t, MatchSignature(func(e *a) {}, []any{nil}))
	require.False(t, MatchSignature("not a func", []any{}))
}

func TestPublisher_PanicRecovery(t *testing.T) {
	t.Parallel()

	t.Run("handler panic is caught and logged", func(t *testing.T) {
		log, buf := bufferedLogger(logrus.ErrorLevel)
		publisher := NewEventPublisher(log)
		publisher.Subscribe(func(e *args) {
			panic("intentional panic for testing")
		})

		require.NotPanics(t, func() { publisher.Publish(&args{data: "test"}) })
		require.Contains(t, buf.String(), "panicked")
		require.Contains(t, buf.String(), "intentional panic for testing")
	})

	t.Run("other handlers still run", func(t *testing.T) {
		log, _ := bufferedLogger(logrus.ErrorLevel)
		publisher := NewEventPublisher(log)

		var first, third bool
		publisher.Subscribe(func(e *args) { first = true })
		publisher.Subscribe(func(e *args) { panic("handler 2 panic") })
		publisher.Subscribe(func(e *args) { third = true })

		publisher.Publish(&args{data: "test"})
		require.True(t, first)
		require.True(t, third)
	})
}

func TestPublisher_PublishE(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrNoSubscribers when none match", func(t *testing.T) {
		publisher := NewEventPublisher(logrus.New())
		require.ErrorIs(t, publisher.PublishE(&args{data: "x"}), ErrNoSubscribers)
	})

	t.Run("returns joined errors from multiple handlers", func(t *testing.T) {
		publisher := NewEventPublisher(logrus.New())

		err1 := errors.New("err1")
		err2 := errors.New("err2")
		publisher.Subscribe(func(e *args) error { return err1 })
		publisher.Subscribe(func(e *args) error { return nil })
		publisher.Subscribe(func(e *args) error { return err2 })

		err := publisher.PublishE(&args{data: "x"})
		require.ErrorIs(t, err, err1)
		require.ErrorIs(t, err, err2)
	})

	t.Run("panic is surfaced as error and other handlers still run", func(t *testing.T) {
		publisher := NewEventPublisher(nil)
		called := false
		publisher.Subscribe(func(e *args) error { panic("boom") })
		publisher.Subscribe(func(e *args) error { called = true; return nil })

		require.Error(t, publisher.PublishE(&args{data: "x"}))
		require.True(t, called)
	})

	t.Run("invalid handler return is surfaced as ErrInvalidHandlerReturn", func(t *testing.T) {
		publisher := NewEventPublisher(nil)
		publisher.Subscribe(func(e *args) int { return 1 })

		require.ErrorIs(t, publisher.PublishE(&args{data: "x"}), ErrInvalidHandlerReturn)
	})
}
