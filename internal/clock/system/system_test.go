package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNowIsUTC(t *testing.T) {
	clk := New()
	got := clk.Now()
	require.Equal(t, time.UTC, got.Location(), "record timestamps must be UTC before they reach the store")
	require.WithinDuration(t, time.Now().UTC(), got, time.Second)
}

func TestNowNeverGoesBackwards(t *testing.T) {
	clk := New()
	first := clk.Now()
	second := clk.Now()
	require.False(t, second.Before(first))
}
