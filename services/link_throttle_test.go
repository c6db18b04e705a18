package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teleshop/db"
)

func TestCooldownSecondsForFailCount(t *testing.T) {
	tests := []struct {
		failCount int
		want      int
	}{
		{-1, 1},
		{0, 1},
		{1, 2},
		{2, 4},
		{3, 8},
		{4, 16},
		{5, 30}, // 32 capped
		{10, 30},
		{31, 30},
		{100, 30},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CooldownSecondsForFailCount(tt.failCount), "failCount=%d", tt.failCount)
	}
}

func TestLinkThrottle_Integration(t *testing.T) {
	ctx := withTestDB(t)
	const identity = "999999997"

	wait, err := LinkThrottleWaitSeconds(ctx, identity)
	require.NoError(t, err)
	assert.Zero(t, wait)

	require.NoError(t, RecordLinkFailed(ctx, identity))
	wait, err = LinkThrottleWaitSeconds(ctx, identity)
	require.NoError(t, err)
	assert.InDelta(t, 2, wait, 1)

	require.NoError(t, RecordLinkFailed(ctx, identity))
	wait, err = LinkThrottleWaitSeconds(ctx, identity)
	require.NoError(t, err)
	assert.InDelta(t, 4, wait, 1)

	require.NoError(t, RecordLinkSuccess(ctx, identity))
	wait, err = LinkThrottleWaitSeconds(ctx, identity)
	require.NoError(t, err)
	assert.Zero(t, wait)
}

func TestLinkThrottle_ManyFailuresStayCapped(t *testing.T) {
	ctx := withTestDB(t)
	const identity = "999999996"

	_, err := db.Pool.Exec(ctx, `
		INSERT INTO link_throttle (identity, fail_count, last_failed_at, cooldown_until)
		VALUES ($1, 40, now() - interval '1 minute', now() - interval '1 minute')`, identity)
	require.NoError(t, err)

	wait, err := LinkThrottleWaitSeconds(ctx, identity)
	require.NoError(t, err)
	assert.Zero(t, wait)

	require.NoError(t, RecordLinkFailed(ctx, identity))
	wait, err = LinkThrottleWaitSeconds(ctx, identity)
	require.NoError(t, err)
	assert.InDelta(t, LinkCooldownCapSeconds, wait, 1)

	var failCount int
	require.NoError(t, db.Pool.QueryRow(ctx, `SELECT fail_count FROM link_throttle WHERE identity = $1`, identity).Scan(&failCount))
	assert.Equal(t, 41, failCount)
}
