package fix

import (
	"log"
	"time"
)

func (o Options) withDefaults() Options {
	if o.PrecisionFactor <= 0 {
		o.PrecisionFactor = DefaultPrecisionFactor
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logf == nil {
		o.Logf = log.Printf
	}
	return o
}

// core is the state shared by both assemblers: the provider status and the
// pending fix, owned exclusively by the assembler.
type core struct {
	opts     Options
	listener Listener

	status  Status
	pending Fix
}

func newCore(l Listener, opts Options) core {
	return core{opts: opts.withDefaults(), listener: l, status: OutOfService}
}

// setStatus reports a transition only when the status actually changes.
func (c *core) setStatus(s Status, extras Extras, updateTimeMs int64) {
	if c.status == s {
		return
	}
	c.status = s
	if c.listener != nil {
		c.listener.OnStatusChange(s, extras, updateTimeMs)
	}
}

// emit hands the pending fix to the listener and starts a new one.
func (c *core) emit(gnssTimeMs int64) {
	now := c.opts.Now()
	snap := Snapshot{Fix: c.pending, Time: gnssTimeMs, ReceivedAt: now}
	snap.Fix.Extras.SystemTimeFix = ptr(now.UnixMilli())
	c.pending = Fix{}
	if c.listener != nil {
		c.listener.OnFix(snap)
	}
}

func (c *core) resetPending() { c.pending = Fix{} }

func (c *core) nowMs() int64 { return c.opts.Now().UnixMilli() }

// Status returns the current provider status.
func (c *core) Status() Status { return c.status }

// Pending returns a copy of the fix being assembled.
func (c *core) Pending() Fix { return c.pending }
