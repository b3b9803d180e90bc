package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"qitrader/internal/core"
	"qitrader/internal/event"
	"qitrader/pkg/logging"
)

func testLogger(t *testing.T) core.Logger {
	t.Helper()
	logger, err := logging.NewZapLogger("ERROR")
	require.NoError(t, err)
	return logger
}

type fakeComponent struct {
	name    string
	initErr error

	mu      sync.Mutex
	inits   int
	started bool
}

func (f *fakeComponent) Name() string { return f.name }

func (f *fakeComponent) Init(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inits++
	return f.initErr
}

func (f *fakeComponent) Run(ctx context.Context) error {
	f.mu.Lock()
	f.started = true
	f.mu.Unlock()
	<-ctx.Done()
	return ctx.Err()
}

func TestPublishRoutesToTypedHandlers(t *testing.T) {
	e := New(testLogger(t))

	var got *event.Tick
	e.RegisterCallback(event.TypeTick, Typed(func(_ context.Context, tick *event.Tick) error {
		got = tick
		return nil
	}))

	tick := &event.Tick{Meta: event.Meta{Symbol: "BTC-USDT"}}
	require.NoError(t, e.Publish(context.Background(), event.TypeTick, tick))
	require.Same(t, tick, got)
}

func TestPublishRejectsMismatchedPayload(t *testing.T) {
	e := New(testLogger(t))

	called := false
	e.RegisterCallback(event.TypeTick, Typed(func(_ context.Context, _ *event.Tick) error {
		called = true
		return nil
	}))

	err := e.Publish(context.Background(), event.TypeTick, &event.Book{})
	require.Error(t, err)
	require.False(t, called, "mismatched publish must not reach handlers")
}

func TestPublishPreservesRegistrationOrder(t *testing.T) {
	e := New(testLogger(t))

	var order []int
	for i := 0; i < 5; i++ {
		e.RegisterCallback(event.TypeMessage, Typed(func(_ context.Context, _ *event.Message) error {
			order = append(order, i)
			return nil
		}))
	}

	require.NoError(t, e.Publish(context.Background(), event.TypeMessage, &event.Message{Text: "x"}))
	require.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestPublishFIFOPerProducer(t *testing.T) {
	e := New(testLogger(t))

	var seen []string
	e.RegisterCallback(event.TypeMessage, Typed(func(_ context.Context, msg *event.Message) error {
		seen = append(seen, msg.Text)
		return nil
	}))

	for _, text := range []string{"a", "b", "c", "d"} {
		require.NoError(t, e.Publish(context.Background(), event.TypeMessage, &event.Message{Text: text}))
	}
	require.Equal(t, []string{"a", "b", "c", "d"}, seen)
}

func TestWildcardReceivesEverything(t *testing.T) {
	e := New(testLogger(t))

	var types []event.Type
	e.RegisterCallback(event.TypeAll, func(_ context.Context, ev *event.Event) error {
		types = append(types, ev.Type)
		return nil
	})

	require.NoError(t, e.Publish(context.Background(), event.TypeTick, &event.Tick{}))
	require.NoError(t, e.Publish(context.Background(), event.TypeBook, &event.Book{}))
	require.Equal(t, []event.Type{event.TypeTick, event.TypeBook}, types)
}

func TestHandlerFailureDoesNotStopRemaining(t *testing.T) {
	e := New(testLogger(t))

	var reached bool
	e.RegisterCallback(event.TypeMessage, Typed(func(_ context.Context, _ *event.Message) error {
		return errors.New("boom")
	}))
	e.RegisterCallback(event.TypeMessage, Typed(func(_ context.Context, _ *event.Message) error {
		reached = true
		return nil
	}))

	require.NoError(t, e.Publish(context.Background(), event.TypeMessage, &event.Message{Text: "x"}))
	require.True(t, reached)
}

func TestQuitCancelsSubsequentHandlers(t *testing.T) {
	e := New(testLogger(t))

	var after bool
	e.RegisterCallback(event.TypeMessage, Typed(func(ctx context.Context, _ *event.Message) error {
		// A quit arriving mid-dispatch must stop the rest of the chain.
		return e.Publish(ctx, event.TypeQuit, &event.Quit{})
	}))
	e.RegisterCallback(event.TypeMessage, Typed(func(_ context.Context, _ *event.Message) error {
		after = true
		return nil
	}))

	require.NoError(t, e.Publish(context.Background(), event.TypeMessage, &event.Message{Text: "x"}))
	require.False(t, after, "handlers after a quit must not run")
}

func TestRunInitializesOnceThenStarts(t *testing.T) {
	e := New(testLogger(t))

	a := &fakeComponent{name: "a"}
	b := &fakeComponent{name: "b"}
	e.RegisterComponent(a)
	e.RegisterComponent(b)
	e.RegisterComponent(a) // idempotent

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()

	require.Eventually(t, func() bool {
		a.mu.Lock()
		defer a.mu.Unlock()
		return a.started
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, e.Publish(context.Background(), event.TypeQuit, &event.Quit{}))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop after quit")
	}

	require.Equal(t, 1, a.inits, "duplicate registration must not re-init")
	require.Equal(t, 1, b.inits)
}

func TestRunFailsFastOnInitError(t *testing.T) {
	e := New(testLogger(t))

	bad := &fakeComponent{name: "bad", initErr: errors.New("no credentials")}
	after := &fakeComponent{name: "after"}
	e.RegisterComponent(bad)
	e.RegisterComponent(after)

	err := e.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "bad")
	require.False(t, after.started, "run tasks must not start after an init failure")
}

func TestStopCancelsComponents(t *testing.T) {
	e := New(testLogger(t))
	e.RegisterComponent(&fakeComponent{name: "c"})

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()

	time.Sleep(50 * time.Millisecond)
	e.Stop()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop")
	}
}
