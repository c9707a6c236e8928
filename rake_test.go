package cardroom_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openpoker/cardroom"
)

func TestRakeAmount(t *testing.T) {
	cfg := cardroom.RakeConfig{Percent: 0.05, Cap: 10}

	assert.Equal(t, int64(5), cardroom.RakeAmount(100, cfg))
	assert.Equal(t, int64(10), cardroom.RakeAmount(1000, cfg), "cap limits the take")
	assert.Equal(t, int64(0), cardroom.RakeAmount(0, cfg))
	assert.Equal(t, int64(0), cardroom.RakeAmount(-50, cfg))
	assert.Equal(t, int64(0), cardroom.RakeAmount(19, cfg), "truncates toward zero")
	assert.Equal(t, int64(1), cardroom.RakeAmount(20, cfg))
}

func TestRakeAmount_NoPolicy(t *testing.T) {
	assert.Equal(t, int64(0), cardroom.RakeAmount(500, cardroom.RakeConfig{}))
}

func TestRakeAmount_UncappedPercent(t *testing.T) {
	cfg := cardroom.RakeConfig{Percent: 0.1}
	assert.Equal(t, int64(100), cardroom.RakeAmount(1000, cfg))
}
