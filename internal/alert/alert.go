// Package alert delivers Message events to outbound notification channels.
package alert

import (
	"context"
	"sync"
	"time"

	"github.com/alitto/pond"

	"qitrader/internal/core"
	"qitrader/internal/engine"
	"qitrader/internal/event"
)

// Channel is one delivery target for notifications.
type Channel interface {
	Send(ctx context.Context, text string) error
	Name() string
}

// Notifier is the engine component consuming Message events. Deliveries fan
// out on a worker pool so a slow channel never blocks the dispatcher.
type Notifier struct {
	engine  *engine.Engine
	logger  core.Logger
	pool    *pond.WorkerPool
	timeout time.Duration

	mu       sync.RWMutex
	channels []Channel
}

func NewNotifier(eng *engine.Engine, logger core.Logger) *Notifier {
	log := logger.WithField("component", "notifier")
	return &Notifier{
		engine:  eng,
		logger:  log,
		timeout: 10 * time.Second,
		pool: pond.New(4, 256,
			pond.MinWorkers(1),
			pond.IdleTimeout(60*time.Second),
			pond.Strategy(pond.Balanced()),
			pond.PanicHandler(func(p interface{}) {
				log.Error("notifier pool panic recovered", "panic", p)
			}),
		),
	}
}

// AddChannel registers a delivery target.
func (n *Notifier) AddChannel(ch Channel) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.channels = append(n.channels, ch)
	n.logger.Info("added notification channel", "name", ch.Name())
}

func (n *Notifier) Name() string { return "notifier" }

func (n *Notifier) Init(ctx context.Context) error {
	n.engine.RegisterCallback(event.TypeMessage, engine.Typed(func(_ context.Context, msg *event.Message) error {
		n.dispatch(msg.Text)
		return nil
	}))
	return nil
}

func (n *Notifier) Run(ctx context.Context) error {
	<-ctx.Done()
	n.pool.StopAndWait()
	return ctx.Err()
}

func (n *Notifier) dispatch(text string) {
	n.mu.RLock()
	channels := append([]Channel(nil), n.channels...)
	n.mu.RUnlock()

	for _, ch := range channels {
		n.pool.Submit(func() {
			ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
			defer cancel()

			if err := ch.Send(ctx, text); err != nil {
				n.logger.Error("failed to send notification", "channel", ch.Name(), "error", err)
			}
		})
	}
}
