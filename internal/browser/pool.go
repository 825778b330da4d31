package browser

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/ingest"
)

// Pool hands out sessions per source, cycling through the configured
// identities round-robin. Rotation after a block always moves to a different
// identity when more than one is configured.
type Pool struct {
	cfg        Config
	logger     *zap.Logger
	mu         sync.Mutex
	identities map[ingest.SourceID][]Identity
	next       map[ingest.SourceID]int

	// newSession is swapped out in tests to avoid launching Chrome.
	newSession func(cfg Config, id Identity, logger *zap.Logger) (ingest.Session, error)
}

// NewPool builds a pool over the per-source identity sets.
func NewPool(cfg Config, identities map[ingest.SourceID][]Identity, logger *zap.Logger) *Pool {
	return &Pool{
		cfg:        cfg,
		logger:     logger,
		identities: identities,
		next:       make(map[ingest.SourceID]int),
		newSession: func(cfg Config, id Identity, logger *zap.Logger) (ingest.Session, error) {
			return NewSession(cfg, id, logger)
		},
	}
}

// Acquire returns a ready session on the source's next identity.
func (p *Pool) Acquire(ctx context.Context, source ingest.SourceID) (ingest.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, ingest.Transient(fmt.Errorf("acquire session: %w", err))
	}
	identity, err := p.pick(source, "")
	if err != nil {
		return nil, err
	}
	p.logger.Debug("acquiring browser session",
		zap.String("source", string(source)),
		zap.String("identity", identity.Name))
	return p.newSession(p.cfg, identity, p.logger)
}

// Rotate closes old and returns a session on a different identity. With a
// single configured identity the same profile is relaunched fresh, which at
// least resets the browser fingerprint.
func (p *Pool) Rotate(ctx context.Context, source ingest.SourceID, old ingest.Session) (ingest.Session, error) {
	avoid := ""
	if old != nil {
		avoid = old.Identity()
		old.Close()
	}
	if err := ctx.Err(); err != nil {
		return nil, ingest.Transient(fmt.Errorf("rotate session: %w", err))
	}
	identity, err := p.pick(source, avoid)
	if err != nil {
		return nil, err
	}
	ingest.Rotations.WithLabelValues(string(source)).Inc()
	p.logger.Info("rotated session identity",
		zap.String("source", string(source)),
		zap.String("from", avoid),
		zap.String("to", identity.Name))
	return p.newSession(p.cfg, identity, p.logger)
}

func (p *Pool) pick(source ingest.SourceID, avoid string) (Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := p.identities[source]
	if len(ids) == 0 {
		return Identity{}, ingest.Structural(fmt.Errorf("no identities configured for source %s", source))
	}
	for range ids {
		identity := ids[p.next[source]%len(ids)]
		p.next[source]++
		if identity.Name != avoid || len(ids) == 1 {
			return identity, nil
		}
	}
	return ids[0], nil
}
