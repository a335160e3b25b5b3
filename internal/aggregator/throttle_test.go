package aggregator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSymbolThrottle_AllowsFirstThenBlocksWithinInterval(t *testing.T) {
	th := newSymbolThrottle(time.Minute)
	now := time.Unix(1_700_000_000, 0)

	assert.True(t, th.Allow("BTCUSDT", now))
	assert.False(t, th.Allow("BTCUSDT", now.Add(30*time.Second)))
	assert.True(t, th.Allow("BTCUSDT", now.Add(61*time.Second)))
}

func TestSymbolThrottle_IsPerSymbol(t *testing.T) {
	th := newSymbolThrottle(time.Minute)
	now := time.Unix(1_700_000_000, 0)

	assert.True(t, th.Allow("BTCUSDT", now))
	assert.True(t, th.Allow("ETHUSDT", now))
}
