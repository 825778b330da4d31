// Package governor wraps adapter invocations with pacing and recovery policy.
package governor

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/ingest"
)

// Policy captures retry, backoff and pacing knobs.
type Policy struct {
	MaxAttempts          int
	BaseDelay            time.Duration
	MaxDelay             time.Duration
	JitterFraction       float64
	BlockedCooldown      time.Duration
	MaxSessionsPerSource int
	OriginQPS            float64
}

// Governor enforces the policy around one adapter call at a time per source.
// It owns the session lifecycle: acquire before the first attempt, rotate on
// block, release on every exit path.
type Governor struct {
	policy   Policy
	pool     ingest.SessionPool
	logger   *zap.Logger
	sems     map[ingest.SourceID]chan struct{}
	limiters sync.Map

	// sleep is swapped out in tests to observe backoff without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds a Governor over the session pool.
func New(policy Policy, pool ingest.SessionPool, logger *zap.Logger) *Governor {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 3
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = 500 * time.Millisecond
	}
	if policy.MaxDelay <= 0 {
		policy.MaxDelay = 30 * time.Second
	}
	if policy.MaxSessionsPerSource <= 0 {
		policy.MaxSessionsPerSource = 1
	}
	sems := make(map[ingest.SourceID]chan struct{}, len(ingest.AllSources()))
	for _, s := range ingest.AllSources() {
		sems[s] = make(chan struct{}, policy.MaxSessionsPerSource)
	}
	return &Governor{
		policy: policy,
		pool:   pool,
		logger: logger,
		sems:   sems,
		sleep:  sleepCtx,
	}
}

// Invoke runs the adapter under the policy and returns its items or a
// terminal classified failure. Classified failures are never swallowed; the
// caller records them in the run report.
func (g *Governor) Invoke(ctx context.Context, adapter ingest.SourceAdapter, run ingest.RunContext) ([]ingest.CandidateItem, error) {
	source := adapter.Source()
	release, err := g.acquireSlot(ctx, source)
	if err != nil {
		return nil, err
	}
	defer release()

	session, err := g.pool.Acquire(ctx, source)
	if err != nil {
		return nil, err
	}
	defer func() {
		if session != nil {
			session.Close()
		}
	}()

	var lastErr error
	for attempt := 1; attempt <= g.policy.MaxAttempts; attempt++ {
		if err := g.waitOriginBudget(ctx, source); err != nil {
			return nil, ingest.Transient(fmt.Errorf("origin budget: %w", err))
		}

		items, scanErr := adapter.Scan(ctx, session, run)
		if scanErr == nil {
			return items, nil
		}
		lastErr = scanErr
		class := ingest.Classify(scanErr)
		ingest.Failures.WithLabelValues(string(source), string(class)).Inc()

		switch class {
		case ingest.ClassStructural:
			// Retrying cannot fix a layout change.
			g.logger.Error("structural failure, not retrying",
				zap.String("source", string(source)), zap.Error(scanErr))
			return nil, scanErr
		case ingest.ClassEmptyResult, ingest.ClassEmptyContent:
			// Zero yield is an outcome, not a failure to retry.
			return nil, scanErr
		case ingest.ClassBlocked:
			if attempt == g.policy.MaxAttempts {
				break
			}
			// Never retry a block on the same identity.
			rotated, rotErr := g.pool.Rotate(ctx, source, session)
			session = rotated
			if rotErr != nil {
				return nil, rotErr
			}
			delay := g.backoff(attempt) + g.policy.BlockedCooldown
			g.logger.Warn("blocked, rotated identity and cooling down",
				zap.String("source", string(source)),
				zap.Duration("delay", delay))
			if err := g.sleep(ctx, delay); err != nil {
				return nil, ingest.Transient(err)
			}
			ingest.Retries.WithLabelValues(string(source)).Inc()
		default:
			if attempt == g.policy.MaxAttempts {
				break
			}
			delay := g.backoff(attempt)
			g.logger.Warn("transient failure, backing off",
				zap.String("source", string(source)),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(scanErr))
			if err := g.sleep(ctx, delay); err != nil {
				return nil, ingest.Transient(err)
			}
			ingest.Retries.WithLabelValues(string(source)).Inc()
		}
	}

	// Attempts exhausted: surface the original classified error.
	return nil, lastErr
}

func (g *Governor) acquireSlot(ctx context.Context, source ingest.SourceID) (func(), error) {
	sem, ok := g.sems[source]
	if !ok {
		return func() {}, nil
	}
	select {
	case sem <- struct{}{}:
		return func() { <-sem }, nil
	case <-ctx.Done():
		return nil, ingest.Transient(fmt.Errorf("session slot wait canceled: %w", ctx.Err()))
	}
}

// backoff returns the jittered exponential delay for an attempt (1-based).
// Jitter only ever adds, so successive delays are strictly increasing as long
// as the jitter fraction stays below 1.
func (g *Governor) backoff(attempt int) time.Duration {
	delay := float64(g.policy.BaseDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(g.policy.MaxDelay) {
		delay = float64(g.policy.MaxDelay)
	}
	jitterLimit := time.Duration(delay * g.policy.JitterFraction)
	return time.Duration(delay) + randomJitter(jitterLimit)
}

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	bound := big.NewInt(int64(limit))
	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}

func (g *Governor) waitOriginBudget(ctx context.Context, source ingest.SourceID) error {
	if g.policy.OriginQPS <= 0 {
		return nil
	}
	val, _ := g.limiters.LoadOrStore(source, rate.NewLimiter(rate.Limit(g.policy.OriginQPS), 1))
	limiter, ok := val.(*rate.Limiter)
	if !ok {
		return fmt.Errorf("unexpected limiter type %T", val)
	}
	return limiter.Wait(ctx)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
