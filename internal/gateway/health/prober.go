package health

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	gatewaymetrics "github.com/opsdeck/opsdeck-backend/internal/gateway/metrics"
	httppkg "github.com/opsdeck/opsdeck-backend/pkg/http"
	"github.com/opsdeck/opsdeck-backend/pkg/logging"
)

const probeTimeout = 5 * time.Second

// Target is one endpoint the prober checks.
type Target struct {
	Name string
	URL  string
}

// Result is the outcome of the last probe of a target.
type Result struct {
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Up        bool      `json:"up"`
	LatencyMS int64     `json:"latency_ms"`
	CheckedAt time.Time `json:"checked_at"`
	Error     string    `json:"error,omitempty"`
}

// Prober periodically checks upstream health endpoints and records the
// outcome in metrics and on the health endpoint.
type Prober struct {
	logger   logging.Logger
	metrics  *gatewaymetrics.Metrics
	client   *httppkg.HTTPClient
	cron     *cron.Cron
	schedule string
	targets  []Target

	mu      sync.RWMutex
	results map[string]Result
}

// NewProber creates a prober for the given targets. The metrics set may be
// nil.
func NewProber(logger logging.Logger, metrics *gatewaymetrics.Metrics, schedule string, targets []Target) (*Prober, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if schedule == "" {
		return nil, fmt.Errorf("probe schedule cannot be empty")
	}

	clientConfig := httppkg.DefaultHTTPRetryConfig()
	clientConfig.Timeout = probeTimeout
	clientConfig.RetryConfig.MaxRetries = 1
	clientConfig.RetryConfig.ShouldRetry = func(err error, attempt int) bool {
		var httpErr *httppkg.HTTPError
		return !errors.As(err, &httpErr)
	}

	client, err := httppkg.NewHTTPClient(clientConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create probe HTTP client: %w", err)
	}

	return &Prober{
		logger:   logger,
		metrics:  metrics,
		client:   client,
		cron:     cron.New(),
		schedule: schedule,
		targets:  targets,
		results:  make(map[string]Result),
	}, nil
}

// Start runs one probe pass immediately and then follows the schedule.
func (p *Prober) Start(ctx context.Context) error {
	if _, err := p.cron.AddFunc(p.schedule, func() {
		p.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("invalid probe schedule %q: %w", p.schedule, err)
	}

	go p.RunOnce(ctx)
	p.cron.Start()
	p.logger.Infof("Health prober started with schedule %q for %d targets", p.schedule, len(p.targets))
	return nil
}

// Stop halts the schedule and releases the probe client.
func (p *Prober) Stop() {
	p.cron.Stop()
	p.client.Close()
}

// RunOnce probes every target concurrently and records the results.
func (p *Prober) RunOnce(ctx context.Context) {
	var wg sync.WaitGroup
	for _, target := range p.targets {
		wg.Add(1)
		go func(target Target) {
			defer wg.Done()
			p.probe(ctx, target)
		}(target)
	}
	wg.Wait()
}

// Results returns the latest probe outcomes in target order.
func (p *Prober) Results() []Result {
	p.mu.RLock()
	defer p.mu.RUnlock()

	results := make([]Result, 0, len(p.targets))
	for _, target := range p.targets {
		if result, ok := p.results[target.Name]; ok {
			results = append(results, result)
		}
	}
	return results
}

// AllUp reports whether every probed target answered its last probe.
func (p *Prober) AllUp() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, result := range p.results {
		if !result.Up {
			return false
		}
	}
	return true
}

func (p *Prober) probe(ctx context.Context, target Target) {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	start := time.Now()
	up := false
	probeErr := ""

	resp, err := p.client.Get(probeCtx, target.URL)
	if err != nil {
		probeErr = err.Error()
	} else {
		// Any response below 500 proves the service is answering; an
		// unauthenticated 401 on a probe path still counts.
		up = resp.StatusCode < 500
		if !up {
			probeErr = fmt.Sprintf("status %d", resp.StatusCode)
		}
		_ = resp.Body.Close()
	}

	result := Result{
		Name:      target.Name,
		URL:       target.URL,
		Up:        up,
		LatencyMS: time.Since(start).Milliseconds(),
		CheckedAt: time.Now().UTC(),
		Error:     probeErr,
	}

	p.record(result)
}

func (p *Prober) record(result Result) {
	p.mu.Lock()
	previous, known := p.results[result.Name]
	p.results[result.Name] = result
	p.mu.Unlock()

	if p.metrics != nil {
		p.metrics.SetUpstreamUp(result.Name, result.Up)
	}

	switch {
	case !known && !result.Up:
		p.logger.Warnf("Upstream %s is down: %s", result.Name, result.Error)
	case known && previous.Up && !result.Up:
		p.logger.Warnf("Upstream %s went down: %s", result.Name, result.Error)
	case known && !previous.Up && result.Up:
		p.logger.Infof("Upstream %s recovered", result.Name)
	}
}
