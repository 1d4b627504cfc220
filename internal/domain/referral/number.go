package referral

import (
	"context"
	"fmt"
	"time"
)

// FormatNumber renders a referral number for the given calendar date and
// daily sequence, e.g. REF-20260829-0005.
func FormatNumber(date time.Time, seq int) string {
	return fmt.Sprintf("REF-%s-%04d", date.Format("20060102"), seq)
}

// ReferralCounter counts referrals created on a calendar day. Satisfied
// by the referral repository.
type ReferralCounter interface {
	CountCreatedOn(ctx context.Context, day time.Time) (int, error)
}

// NumberGenerator mints date-scoped sequential referral numbers. The
// count-then-format step is not race-free on its own: callers must run
// Next and the subsequent insert inside one transaction, backed by the
// unique constraint on referral_number, and retry once on conflict.
type NumberGenerator struct {
	counter ReferralCounter
}

func NewNumberGenerator(counter ReferralCounter) *NumberGenerator {
	return &NumberGenerator{counter: counter}
}

// Next returns the next referral number for the given date. The date is
// normalized to UTC so the stamped day and the counted day always agree,
// whatever the process timezone.
func (g *NumberGenerator) Next(ctx context.Context, onDate time.Time) (string, error) {
	onDate = onDate.UTC()
	n, err := g.counter.CountCreatedOn(ctx, onDate)
	if err != nil {
		return "", fmt.Errorf("count referrals for %s: %w", onDate.Format("2006-01-02"), err)
	}
	return FormatNumber(onDate, n+1), nil
}
