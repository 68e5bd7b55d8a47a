// Package poller runs the client side of notification delivery: it calls the transfer
// endpoint on an interval, forwards new notifications to a sink and stops with a
// FORCE_LOGOUT message once the account is banned.
package poller

import (
	"context"
	"sync"
	"time"

	"Campus_Community/internal/logging"
	"Campus_Community/internal/model"

	"github.com/rs/zerolog"
)

// API is what the poller needs from the community server. *Client implements it.
type API interface {
	Transfer(ctx context.Context) ([]model.Notification, error)
	Status(ctx context.Context) (model.BanStatus, error)
}

// Command mirrors the START_POLLING / STOP_POLLING messages.
type Command struct {
	Type     string
	Interval time.Duration
}

// Sink receives NEW_NOTIFICATIONS and FORCE_LOGOUT messages. It is called from the
// polling goroutine and must not call back into the Poller synchronously.
type Sink func(model.PollMessage)

type Poller struct {
	api             API
	sink            Sink
	defaultInterval time.Duration
	log             zerolog.Logger

	mu     sync.Mutex
	parent context.Context
	cancel context.CancelFunc
	gen    uint64
	done   chan struct{}
}

func New(api API, sink Sink, defaultInterval time.Duration) *Poller {
	return &Poller{
		api:             api,
		sink:            sink,
		defaultInterval: model.ClampInterval(defaultInterval, 15*time.Second),
		log:             logging.Component("poller"),
		parent:          context.Background(),
	}
}

// Start binds the poller to ctx and begins polling at the default interval.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	p.parent = ctx
	p.mu.Unlock()
	p.Handle(Command{Type: model.MsgStartPolling})
}

// Stop cancels the timer; an in-flight poll still delivers what it already transferred.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

// Handle applies one command. A second START_POLLING replaces the running timer.
func (p *Poller) Handle(cmd Command) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch cmd.Type {
	case model.MsgStartPolling:
		p.stopLocked()
		interval := model.ClampInterval(cmd.Interval, p.defaultInterval)
		ctx, cancel := context.WithCancel(p.parent)
		p.gen++
		p.cancel = cancel
		p.done = make(chan struct{})
		go p.loop(ctx, p.gen, interval, p.done)
		p.log.Debug().Dur("interval", interval).Msg("polling started")
	case model.MsgStopPolling:
		p.stopLocked()
	default:
		p.log.Warn().Str("type", cmd.Type).Msg("unknown command")
	}
}

// Running reports whether a polling loop is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Done is closed when the current loop exits; nil when nothing was started.
func (p *Poller) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

func (p *Poller) stopLocked() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

func (p *Poller) loop(ctx context.Context, gen uint64, interval time.Duration, done chan struct{}) {
	defer close(done)
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		if !p.tick(ctx) {
			// 被封禁：只清理自己这一代，避免误停后启动的循环
			p.mu.Lock()
			if p.gen == gen {
				p.stopLocked()
			}
			p.mu.Unlock()
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// tick 返回 false 表示已强制登出，循环应结束
func (p *Poller) tick(ctx context.Context) bool {
	list, err := p.api.Transfer(ctx)
	switch {
	case IsLogout(err):
		p.forceLogout("")
		return false
	case err != nil:
		if ctx.Err() == nil {
			p.log.Warn().Err(err).Msg("transfer failed")
		}
	case len(list) > 0:
		p.sink(model.PollMessage{Type: model.MsgNewNotifications, Notifications: list})
	}

	st, err := p.api.Status(ctx)
	switch {
	case IsLogout(err):
		p.forceLogout("")
		return false
	case err != nil:
		if ctx.Err() == nil {
			p.log.Warn().Err(err).Msg("ban status check failed")
		}
	case st.Banned:
		p.forceLogout(st.Reason)
		return false
	}
	return true
}

func (p *Poller) forceLogout(reason string) {
	p.log.Info().Str("reason", reason).Msg("forced logout")
	p.sink(model.PollMessage{Type: model.MsgForceLogout, Reason: reason})
}
