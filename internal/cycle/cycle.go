package cycle

import (
	"fmt"
	"sync"
	"time"

	"github.com/jinzhu/now"
)

// epoch is the request date used when an endpoint must be harvested from the
// beginning.
var epoch = time.Unix(0, 0).UTC()

// Cycle is the authoritative state machine over endpoints between runs. It is
// the single shared mutable object touched by every worker; one mutex guards
// the overview and the dispensed set.
type Cycle struct {
	mu        sync.Mutex
	overview  *Overview
	props     Properties
	dispensed map[string]bool
	clock     func() time.Time
}

// New creates a cycle over the given overview.
func New(overview *Overview, props Properties) *Cycle {
	if !props.Mode.Valid() {
		panic(fmt.Sprintf("cycle: unknown mode %q", props.Mode))
	}

	return &Cycle{
		overview:  overview,
		props:     props,
		dispensed: make(map[string]bool),
		clock:     time.Now,
	}
}

// SetClock injects a clock. Used in tests.
func (c *Cycle) SetClock(clock func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clock = clock
}

// Properties returns the cycle-wide properties.
func (c *Cycle) Properties() Properties {
	return c.props
}

// Next returns an endpoint eligible for harvesting that has not been handed
// out before in this process lifetime, nil when none remain. Endpoints
// already attempted today are skipped.
func (c *Cycle) Next() *Endpoint {
	c.mu.Lock()
	defer c.mu.Unlock()

	today := now.New(c.clock().UTC()).BeginningOfDay()

	for _, e := range c.overview.Endpoints() {
		if !e.Attempted.IsZero() && !now.New(e.Attempted.UTC()).BeginningOfDay().Before(today) {
			// attempted today, skip
			continue
		}

		if c.dispensed[e.URI] {
			continue
		}

		c.dispensed[e.URI] = true

		return e
	}

	return nil
}

// NextFor looks up or creates the endpoint matching URI and group. Used for
// targeted single-endpoint runs.
func (c *Cycle) NextFor(uri, group string) *Endpoint {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.overview.Endpoint(uri, group)
	c.dispensed[e.URI] = true

	return e
}

// Register makes sure an endpoint record exists for the given URI and group.
func (c *Cycle) Register(uri, group string) *Endpoint {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.overview.Endpoint(uri, group)
}

// DoHarvest decides whether the endpoint should be contacted now.
func (c *Cycle) DoHarvest(e *Endpoint) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.props.Mode {
	case ModeNormal, ModeRefresh:
		return !e.Blocked

	case ModeRetry:
		if !e.Retry {
			return false
		}
		// retry only when an attempt failed after the last success
		return !e.Attempted.Equal(e.Harvested.Time)
	}

	panic(fmt.Sprintf("cycle: unknown mode %q", c.props.Mode))
}

// RequestDate returns the "from" timestamp for selective harvesting of the
// endpoint under the cycle's mode.
func (c *Cycle) RequestDate(e *Endpoint) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.props.Mode {
	case ModeNormal:
		if e.Blocked || !e.AllowIncremental {
			return epoch
		}

		if !c.props.From.IsZero() {
			return c.props.From
		}

		if e.Harvested.IsZero() {
			return epoch
		}

		return e.Harvested.Time

	case ModeRetry:
		if !e.Retry {
			return epoch
		}

		if e.Attempted.Equal(e.Harvested.Time) || e.Attempted.IsZero() {
			return epoch
		}

		return e.Attempted.Time

	case ModeRefresh:
		return epoch
	}

	panic(fmt.Sprintf("cycle: unknown mode %q", c.props.Mode))
}

// RecordAttempt marks the endpoint attempted now, and harvested on success.
// The in-memory update happens before the flush so an in-process retry still
// observes progress; a flush failure is fatal to the caller.
func (c *Cycle) RecordAttempt(e *Endpoint, succeeded bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts := Timestamp{c.clock().UTC().Truncate(time.Second)}
	e.Attempted = ts

	if succeeded {
		e.Harvested = ts
	}

	if err := c.overview.Save(); err != nil {
		return fmt.Errorf("persisting overview: %w", err)
	}

	return nil
}
