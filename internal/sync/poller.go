package sync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/randomly-source/guided-surveys/internal/domain"
)

// DefaultPollInterval is the reference session re-fetch period.
const DefaultPollInterval = 2 * time.Second

// SessionGetter is the read the poller needs from the backing store.
type SessionGetter interface {
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
}

// Poller re-fetches the session row on a fixed period and feeds it through
// the same SessionChanged path as the push channel, compensating for missed
// or undeliverable feed events. It deliberately does not poll response
// rows; answer content relies on push delivery plus the initial load, and
// session control state is the priority to keep in sync.
type Poller struct {
	sessionID string
	getter    SessionGetter
	mirror    *Mirror
	interval  time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller creates a poller. interval <= 0 selects DefaultPollInterval.
func NewPoller(sessionID string, getter SessionGetter, mirror *Mirror, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		sessionID: sessionID,
		getter:    getter,
		mirror:    mirror,
		interval:  interval,
	}
}

// Start launches the polling loop. Calling Start on a running poller is a
// no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.loop(ctx, p.done)
}

// Stop cancels the polling loop and waits for it to exit. Idempotent.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	done := p.done
	p.cancel = nil
	p.done = nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.tick(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// tick fetches the session row and reconciles it into the mirror, dropping
// structurally identical refreshes so duplicate deliveries never cause
// render storms.
func (p *Poller) tick(ctx context.Context) {
	fetched, err := p.getter.GetSession(ctx, p.sessionID)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		// Leave the prior mirror untouched: stale-but-consistent beats
		// null-and-broken.
		slog.Warn("Poll fetch failed", "session_id", p.sessionID, "error", err)
		return
	}
	if fetched == nil {
		return
	}

	if current := p.mirror.Session(); fetched.Equal(current) {
		return
	}
	p.mirror.Apply(SessionChanged{Session: fetched})
}
