package statuscheck

import (
	"context"
	"errors"
	"time"
)

// Pinger models the minimal capability needed to check a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures the Checker.
type Options struct {
	// Sessions is nil when sessions live in memory.
	Sessions   Pinger
	Provider   string
	Model      string
	Configured bool
	PDFBackend string
}

// Checker aggregates readiness of the pieces a plan request depends on.
type Checker struct {
	opts Options
}

// Status represents the readiness of a subsystem.
type Status struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Summary bundles all subsystem statuses.
type Summary struct {
	OK       bool   `json:"ok"`
	Sessions Status `json:"sessions"`
	Provider Status `json:"provider"`
	PDF      Status `json:"pdf"`
}

func New(opts Options) *Checker { return &Checker{opts: opts} }

// Summary returns the current status snapshot. The service is OK when the
// session store answers; a missing credential only degrades generation.
func (c *Checker) Summary(ctx context.Context) Summary {
	s := Summary{
		Sessions: c.checkSessions(ctx),
		Provider: c.checkProvider(),
		PDF:      Status{OK: true, Message: c.opts.PDFBackend},
	}
	s.OK = s.Sessions.OK
	return s
}

func (c *Checker) checkSessions(ctx context.Context) Status {
	if c.opts.Sessions == nil {
		return Status{OK: true, Message: "memory"}
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.opts.Sessions.Ping(ctx); err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	return Status{OK: true, Message: "redis connected"}
}

func (c *Checker) checkProvider() Status {
	if !c.opts.Configured {
		return Status{OK: false, Message: c.opts.Provider + ": API key missing"}
	}
	return Status{OK: true, Message: c.opts.Provider + " " + c.opts.Model}
}

func trimError(err error) string {
	if err == nil {
		return ""
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	msg := err.Error()
	if len(msg) > 120 {
		return msg[:120]
	}
	return msg
}
