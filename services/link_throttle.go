package services

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/jackc/pgx/v5"

	"teleshop/db"
)

// LinkCooldownCapSeconds bounds the wait after repeated wrong binding codes.
const LinkCooldownCapSeconds = 30

// linkCooldownMaxExponent is the first exponent whose power of two reaches the
// cap. Larger exponents are clamped to it so the int cast never overflows.
const linkCooldownMaxExponent = 5

// LinkThrottleWaitSeconds returns how many seconds the chat must wait before
// trying another binding code (0 if it may try now).
func LinkThrottleWaitSeconds(ctx context.Context, identity string) (int, error) {
	var cooldownUntil *time.Time
	err := db.Pool.QueryRow(ctx, `
		SELECT cooldown_until FROM link_throttle WHERE identity = $1`,
		identity,
	).Scan(&cooldownUntil)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if cooldownUntil == nil {
		return 0, nil
	}
	if until := *cooldownUntil; time.Now().Before(until) {
		return int(time.Until(until).Seconds()) + 1, nil
	}
	return 0, nil
}

// RecordLinkFailed counts a wrong code and sets cooldown_until to
// now() + min(30, 2^fail_count) seconds.
func RecordLinkFailed(ctx context.Context, identity string) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO link_throttle (identity, fail_count, last_failed_at, cooldown_until, updated_at)
		VALUES ($1, 1, now(), now() + (LEAST($2, POWER(2, 1)::int) || ' seconds')::interval, now())
		ON CONFLICT (identity) DO UPDATE SET
			fail_count = link_throttle.fail_count + 1,
			last_failed_at = now(),
			cooldown_until = now() + (LEAST($2, POWER(2, LEAST(link_throttle.fail_count + 1, $3))::int) || ' seconds')::interval,
			updated_at = now()`,
		identity, LinkCooldownCapSeconds, linkCooldownMaxExponent,
	)
	return err
}

// RecordLinkSuccess clears the counter for the chat.
func RecordLinkSuccess(ctx context.Context, identity string) error {
	_, err := db.Pool.Exec(ctx, `DELETE FROM link_throttle WHERE identity = $1`, identity)
	return err
}

// CooldownSecondsForFailCount mirrors the SQL above: min(30, 2^failCount).
func CooldownSecondsForFailCount(failCount int) int {
	s := int(math.Pow(2, float64(min(max(failCount, 0), linkCooldownMaxExponent))))
	return min(s, LinkCooldownCapSeconds)
}
