package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/brbzalck/projeto-news-reddit-power-automate/internal/ingest"
)

type stubSession struct {
	identity string
	closed   bool
}

func (s *stubSession) Identity() string { return s.identity }
func (s *stubSession) Navigate(context.Context, string) (ingest.PageSnapshot, error) {
	return ingest.PageSnapshot{}, nil
}
func (s *stubSession) ScrollBottom(context.Context, int, time.Duration) error { return nil }
func (s *stubSession) Content(context.Context) (ingest.PageSnapshot, error) {
	return ingest.PageSnapshot{}, nil
}
func (s *stubSession) Close() { s.closed = true }

func stubPool(identities map[ingest.SourceID][]Identity) *Pool {
	p := NewPool(Config{}, identities, zap.NewNop())
	p.newSession = func(_ Config, id Identity, _ *zap.Logger) (ingest.Session, error) {
		return &stubSession{identity: id.Name}, nil
	}
	return p
}

func TestAcquireRoundRobinsIdentities(t *testing.T) {
	p := stubPool(map[ingest.SourceID][]Identity{
		ingest.SourceWeibo: {{Name: "a"}, {Name: "b"}},
	})

	s1, err := p.Acquire(context.Background(), ingest.SourceWeibo)
	require.NoError(t, err)
	s2, err := p.Acquire(context.Background(), ingest.SourceWeibo)
	require.NoError(t, err)
	s3, err := p.Acquire(context.Background(), ingest.SourceWeibo)
	require.NoError(t, err)

	require.Equal(t, "a", s1.Identity())
	require.Equal(t, "b", s2.Identity())
	require.Equal(t, "a", s3.Identity())
}

func TestRotateMovesToDifferentIdentity(t *testing.T) {
	p := stubPool(map[ingest.SourceID][]Identity{
		ingest.SourceTwitter: {{Name: "a"}, {Name: "b"}},
	})

	old, err := p.Acquire(context.Background(), ingest.SourceTwitter)
	require.NoError(t, err)

	next, err := p.Rotate(context.Background(), ingest.SourceTwitter, old)
	require.NoError(t, err)
	require.NotEqual(t, old.Identity(), next.Identity())
	require.True(t, old.(*stubSession).closed, "rotation closes the burned session")
}

func TestRotateWithSingleIdentityRelaunches(t *testing.T) {
	p := stubPool(map[ingest.SourceID][]Identity{
		ingest.SourceTwitter: {{Name: "only"}},
	})

	old, err := p.Acquire(context.Background(), ingest.SourceTwitter)
	require.NoError(t, err)
	next, err := p.Rotate(context.Background(), ingest.SourceTwitter, old)
	require.NoError(t, err)
	require.Equal(t, "only", next.Identity())
}

func TestAcquireWithoutIdentitiesIsStructural(t *testing.T) {
	p := stubPool(nil)
	_, err := p.Acquire(context.Background(), ingest.SourceWSJ)
	require.Error(t, err)
	require.True(t, ingest.IsClass(err, ingest.ClassStructural))
}
