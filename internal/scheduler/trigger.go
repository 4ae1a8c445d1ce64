// File: internal/scheduler/trigger.go
package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Trigger produces firing instants for the recurring batch loop.
type Trigger interface {
	// Start arms the trigger and returns the channel firings arrive on.
	Start() (<-chan time.Time, error)
	// Stop disarms the trigger. No firings are delivered after Stop returns.
	Stop()
}

// CronTrigger fires on a standard 5-field cron expression. The firing channel
// holds a single slot; a tick arriving while the previous one is still
// unconsumed is dropped rather than queued.
type CronTrigger struct {
	expr  string
	cron  *cron.Cron
	fires chan time.Time
}

var _ Trigger = (*CronTrigger)(nil)

// NewCronTrigger creates a trigger for the given cron expression. The
// expression is validated at Start.
func NewCronTrigger(expr string) *CronTrigger {
	return &CronTrigger{
		expr:  expr,
		fires: make(chan time.Time, 1),
	}
}

func (t *CronTrigger) Start() (<-chan time.Time, error) {
	c := cron.New()
	_, err := c.AddFunc(t.expr, func() {
		select {
		case t.fires <- time.Now():
		default:
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", t.expr, err)
	}
	t.cron = c
	c.Start()
	return t.fires, nil
}

func (t *CronTrigger) Stop() {
	if t.cron != nil {
		// Stop returns a context that completes once in-flight jobs finish;
		// our job only does a non-blocking send, so waiting is cheap.
		<-t.cron.Stop().Done()
	}
}
