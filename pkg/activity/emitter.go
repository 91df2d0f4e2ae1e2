package activity

import (
	"context"
	"strings"
	"time"
)

// DefaultChannel is stamped on events that carry no channel.
const DefaultChannel = "annotations"

// Config holds the defaults an Emitter stamps onto events.
type Config struct {
	Enabled  bool
	Channel  string
	ActorID  string
	TenantID string
	// Clock stamps OccurredAt. Defaults to time.Now.
	Clock func() time.Time
}

// Emitter delivers engine events to hooks.
type Emitter struct {
	hooks Hooks
	cfg   Config
}

// NewEmitter returns an emitter over hooks. It is disabled when cfg.Enabled is
// false or no hook remains after dropping nil entries.
func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	cfg.Channel = strings.TrimSpace(cfg.Channel)
	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Emitter{hooks: hooks.Compact(), cfg: cfg}
}

// Enabled reports whether Emit delivers anything.
func (e *Emitter) Enabled() bool {
	return e != nil && e.cfg.Enabled && len(e.hooks) > 0
}

// Emit fills a missing channel, actor, tenant and timestamp from the config
// and notifies the hooks.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Enabled() {
		return nil
	}
	if strings.TrimSpace(event.Channel) == "" {
		event.Channel = e.cfg.Channel
	}
	if strings.TrimSpace(event.ActorID) == "" {
		event.ActorID = e.cfg.ActorID
	}
	if strings.TrimSpace(event.TenantID) == "" {
		event.TenantID = e.cfg.TenantID
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = e.cfg.Clock()
	}
	return e.hooks.Notify(ctx, event)
}
