package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakePurger struct {
	calledWith time.Time
	removed    int64
	err        error
}

func (f *fakePurger) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	f.calledWith = now
	return f.removed, f.err
}

type fakeNotifier struct {
	email, code string
}

func (f *fakeNotifier) SendResetCode(_ context.Context, email, code string) error {
	f.email, f.code = email, code
	return nil
}

func TestProcessorSessionCleanup(t *testing.T) {
	purger := &fakePurger{removed: 3}
	p := NewProcessor(purger, &fakeNotifier{}, zerolog.Nop())
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	err := p.Handle(context.Background(), redis.XMessage{
		ID:     "1-0",
		Values: Task{Type: TypeSessionCleanup}.Values(),
	})
	require.NoError(t, err)
	require.Equal(t, fixed, purger.calledWith)
}

func TestProcessorSessionCleanupError(t *testing.T) {
	purger := &fakePurger{err: errors.New("db down")}
	p := NewProcessor(purger, &fakeNotifier{}, zerolog.Nop())

	err := p.Handle(context.Background(), redis.XMessage{Values: Task{Type: TypeSessionCleanup}.Values()})
	require.Error(t, err)
}

func TestProcessorResetCode(t *testing.T) {
	notifier := &fakeNotifier{}
	p := NewProcessor(&fakePurger{}, notifier, zerolog.Nop())

	err := p.Handle(context.Background(), redis.XMessage{
		Values: Task{Type: TypeResetCode, UserID: "u1", Email: "a@x.com", Code: "123456"}.Values(),
	})
	require.NoError(t, err)
	require.Equal(t, "a@x.com", notifier.email)
	require.Equal(t, "123456", notifier.code)
}

func TestProcessorDropsUndecodableMessage(t *testing.T) {
	purger := &fakePurger{}
	notifier := &fakeNotifier{}
	p := NewProcessor(purger, notifier, zerolog.Nop())

	for _, values := range []map[string]interface{}{
		{"foo": "bar"},
		{"email": "a@x.com"},
		{"type": TypeResetCode, "email": []int{1}},
	} {
		require.NoError(t, p.Handle(context.Background(), redis.XMessage{ID: "9-0", Values: values}))
	}
	require.Zero(t, purger.calledWith)
	require.Empty(t, notifier.email)
}

func TestProcessorIgnoresUnknownType(t *testing.T) {
	p := NewProcessor(&fakePurger{}, &fakeNotifier{}, zerolog.Nop())
	err := p.Handle(context.Background(), redis.XMessage{Values: map[string]interface{}{"type": "thumbnail"}})
	require.NoError(t, err)
}

func TestMaskCode(t *testing.T) {
	require.Equal(t, "****56", MaskCode("123456"))
	require.Equal(t, "**", MaskCode("12"))
	require.Equal(t, "", MaskCode(""))
}

func TestTaskValuesOmitEmpty(t *testing.T) {
	values := Task{Type: TypeSessionCleanup}.Values()
	require.Equal(t, map[string]any{"type": TypeSessionCleanup}, values)
}
