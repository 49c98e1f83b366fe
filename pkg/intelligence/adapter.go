package intelligence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-integrity/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-integrity/pkg/logging"
	"github.com/ekaya-inc/ekaya-integrity/pkg/metrics"
	"github.com/ekaya-inc/ekaya-integrity/pkg/models"
	"github.com/ekaya-inc/ekaya-integrity/pkg/retry"
)

// SettingsSource supplies the current settings snapshot.
// This interface breaks the import cycle between intelligence and services.
type SettingsSource interface {
	Snapshot(ctx context.Context) (*models.Settings, error)
}

// Result is a successful analysis.
type Result struct {
	Provider   ProviderName
	Assessment *models.Assessment
	Elapsed    time.Duration
}

// Adapter is the provider-agnostic entry point for submission analysis.
type Adapter interface {
	// Analyze runs req through the configured provider.
	// Failures wrap apperrors.ErrDependencyFailed.
	Analyze(ctx context.Context, req Request) (*Result, error)
}

// AdapterConfig tunes retries and the circuit breaker.
type AdapterConfig struct {
	Retry   *retry.Config
	Circuit CircuitBreakerConfig
}

type adapter struct {
	settings SettingsSource
	factory  Factory
	metrics  *metrics.Metrics
	logger   *zap.Logger
	cfg      AdapterConfig

	mu         sync.Mutex
	generation uint64
	selected   Provider
	breakers   map[ProviderName]*CircuitBreaker
}

// NewAdapter creates an Adapter. metrics may be nil.
func NewAdapter(settings SettingsSource, factory Factory, cfg AdapterConfig, m *metrics.Metrics, logger *zap.Logger) Adapter {
	if cfg.Retry == nil {
		cfg.Retry = retry.DefaultConfig()
	}
	return &adapter{
		settings: settings,
		factory:  factory,
		metrics:  m,
		logger:   logger.Named("intelligence"),
		cfg:      cfg,
		breakers: make(map[ProviderName]*CircuitBreaker),
	}
}

func (a *adapter) Analyze(ctx context.Context, req Request) (*Result, error) {
	snap, err := a.settings.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve settings: %w", apperrors.ErrDependencyFailed, err)
	}

	provider, err := a.providerFor(snap)
	if err != nil {
		return nil, err
	}
	name := provider.Name()
	req.CheckCitations = snap.EnableCitationCheck

	breaker := a.breaker(name)
	if err := breaker.Allow(); err != nil {
		a.metrics.ObserveProviderCall(string(name), metrics.OutcomeRejected, 0)
		return nil, fmt.Errorf("%w: %w", apperrors.ErrDependencyFailed, err)
	}

	retryCfg := *a.cfg.Retry
	retryCfg.OnRetry = func(attempt int, err error, wait time.Duration) {
		a.metrics.IncProviderRetry(string(name))
		a.logger.Warn("Retrying analysis provider",
			zap.String("provider", string(name)),
			zap.String("submission_id", req.SubmissionID.String()),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.String("error", logging.SanitizeError(err)))
	}

	start := time.Now()
	assessment, err := retry.DoWithResult(ctx, &retryCfg, func(ctx context.Context) (*models.Assessment, error) {
		return provider.Analyze(ctx, req)
	})
	elapsed := time.Since(start)

	if err != nil {
		if !errors.Is(err, context.Canceled) {
			breaker.RecordFailure()
		}
		a.metrics.ObserveProviderCall(string(name), metrics.OutcomeError, elapsed)
		a.metrics.SetCircuitOpen(string(name), breaker.State() != CircuitClosed)
		a.logger.Error("Analysis provider failed",
			zap.String("provider", string(name)),
			zap.String("submission_id", req.SubmissionID.String()),
			zap.Duration("elapsed", elapsed),
			zap.Int("consecutive_failures", breaker.ConsecutiveFailures()),
			zap.String("error", logging.SanitizeError(err)))
		return nil, fmt.Errorf("%w: %s analysis: %w", apperrors.ErrDependencyFailed, name, err)
	}

	breaker.RecordSuccess()
	a.metrics.ObserveProviderCall(string(name), metrics.OutcomeSuccess, elapsed)
	a.metrics.SetCircuitOpen(string(name), false)

	a.logger.Info("Analysis completed",
		zap.String("provider", string(name)),
		zap.String("submission_id", req.SubmissionID.String()),
		zap.Float64("ai_risk", assessment.AIRisk.Score),
		zap.Float64("citation_score", assessment.Citations.Score),
		zap.Duration("elapsed", elapsed))

	return &Result{Provider: name, Assessment: assessment, Elapsed: elapsed}, nil
}

// providerFor returns the provider for snap, building it only when the snapshot generation changes.
// The lock covers selection only, never the provider call.
func (a *adapter) providerFor(snap *models.Settings) (Provider, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.selected != nil && a.generation == snap.Generation {
		return a.selected, nil
	}

	name := ProviderMock
	if snap.EnableLLMAnalysis {
		parsed, err := ParseProviderName(snap.Provider)
		if err != nil {
			return nil, err
		}
		name = parsed
	}

	provider, err := a.factory.Create(name, snap.APIKey(string(name)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrDependencyFailed, err)
	}

	a.selected = provider
	a.generation = snap.Generation
	a.logger.Info("Analysis provider selected",
		zap.String("provider", string(name)),
		zap.Uint64("settings_generation", snap.Generation))
	return provider, nil
}

func (a *adapter) breaker(name ProviderName) *CircuitBreaker {
	a.mu.Lock()
	defer a.mu.Unlock()

	cb, ok := a.breakers[name]
	if !ok {
		cb = NewCircuitBreaker(name, a.cfg.Circuit)
		a.breakers[name] = cb
	}
	return cb
}

var _ Adapter = (*adapter)(nil)
