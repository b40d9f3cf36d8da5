package worker

import (
	"context"
	"fmt"
	"sync"

	"oaiharvest/internal/action"
	"oaiharvest/internal/config"
	"oaiharvest/internal/cycle"
	"oaiharvest/internal/logger"
	"oaiharvest/internal/provider"
)

// Result aggregates the outcomes of one controller run.
type Result struct {
	Attempted  int
	Succeeded  int
	Failed     int
	Skipped    int
	PersistErr error
}

// Controller drives the outer loop: dispense endpoints from the cycle, gate
// them through DoHarvest, and dispatch workers onto the pool.
type Controller struct {
	cfg     *config.Config
	cyc     *cycle.Cycle
	pool    *Pool
	factory *action.Factory
	log     *logger.Logger

	mu     sync.Mutex
	result Result
}

// NewController creates a controller over a loaded configuration and cycle.
func NewController(cfg *config.Config, cyc *cycle.Cycle, factory *action.Factory, log *logger.Logger) *Controller {
	return &Controller{
		cfg:     cfg,
		cyc:     cyc,
		pool:    NewPool(cyc.Properties().Limit),
		factory: factory,
		log:     log,
	}
}

// Run harvests every eligible endpoint. The cycle returning no further
// endpoint is the sole termination signal.
func (c *Controller) Run(ctx context.Context) (Result, error) {
	byURI, err := c.registerEndpoints()
	if err != nil {
		return Result{}, err
	}

	for {
		e := c.cyc.Next()
		if e == nil {
			break
		}

		pc, ok := byURI[e.URI]
		if !ok {
			c.log.WithField("endpoint", e.URI).Debug("endpoint not in configuration, skipping")

			continue
		}

		if err := c.dispatch(ctx, pc, e); err != nil {
			break
		}
	}

	c.pool.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.result, nil
}

// RunEndpoint harvests a single endpoint by URI, creating its overview
// record when needed.
func (c *Controller) RunEndpoint(ctx context.Context, uri string) (Result, error) {
	normalised, err := provider.NormalizeBaseURL(uri)
	if err != nil {
		return Result{}, err
	}

	var target *config.ProviderConfig

	for i := range c.cfg.Providers {
		p := &c.cfg.Providers[i]

		id, err := provider.NormalizeBaseURL(p.URL)
		if err != nil {
			continue
		}

		if id == normalised {
			target = p

			break
		}
	}

	if target == nil {
		return Result{}, fmt.Errorf("endpoint %s is not configured", uri)
	}

	e := c.cyc.NextFor(normalised, target.Group)

	if err := c.dispatch(ctx, *target, e); err != nil {
		return Result{}, err
	}

	c.pool.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.result, nil
}

// registerEndpoints makes sure every enabled provider has an overview record
// and returns the configuration indexed by endpoint identity.
func (c *Controller) registerEndpoints() (map[string]config.ProviderConfig, error) {
	byURI := make(map[string]config.ProviderConfig)

	for _, pc := range c.cfg.EnabledProviders() {
		uri, err := provider.NormalizeBaseURL(pc.URL)
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", pc.URL, err)
		}

		c.cyc.Register(uri, pc.Group)
		byURI[uri] = pc
	}

	return byURI, nil
}

// dispatch gates the endpoint and starts its worker on the pool.
func (c *Controller) dispatch(ctx context.Context, pc config.ProviderConfig, e *cycle.Endpoint) error {
	if !c.cyc.DoHarvest(e) {
		c.log.WithField("endpoint", e.URI).Info("endpoint skipped by cycle")

		c.mu.Lock()
		c.result.Skipped++
		c.mu.Unlock()

		return nil
	}

	w, err := c.buildWorker(pc, e)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.result.Attempted++
	c.mu.Unlock()

	return c.pool.Start(ctx, func(ctx context.Context) {
		out := w.Run(ctx)

		c.mu.Lock()
		defer c.mu.Unlock()

		if out.Succeeded {
			c.result.Succeeded++
		} else {
			c.result.Failed++
		}

		if out.PersistErr != nil {
			c.result.PersistErr = out.PersistErr
		}
	})
}

// buildWorker constructs a worker with its own provider and freshly built
// action sequences; parser and stylesheet state is never shared.
func (c *Controller) buildWorker(pc config.ProviderConfig, e *cycle.Endpoint) (*Worker, error) {
	sequences, err := c.factory.Sequences(c.cfg.Sequences)
	if err != nil {
		return nil, err
	}

	w := &Worker{
		Sequences:    sequences,
		ScenarioName: c.cyc.Properties().Scenario,
		Cycle:        c.cyc,
		Endpoint:     e,
		Log:          c.log,
	}

	if pc.IsStatic() {
		sp, err := provider.NewStatic(pc.Name, pc.URL, pc.Path, c.log)
		if err != nil {
			return nil, err
		}

		sp.Prefixes = pc.Prefixes
		w.Static = sp
	} else {
		lp, err := provider.New(pc.Name, pc.URL, c.log)
		if err != nil {
			return nil, err
		}

		lp.Prefixes = pc.Prefixes
		lp.Timeout = pc.GetTimeout()

		if pc.MaxRetries > 0 {
			lp.MaxRetries = pc.MaxRetries
		}

		w.Live = lp
	}

	return w, nil
}
