package referral

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// maxAttempts bounds the regenerate-on-collision loop. The candidate space is
// small (9000 suffixes per prefix), so exhaustion only happens when a prefix
// is pathologically popular.
const maxAttempts = 10

// ErrExhausted is returned when no unused code could be found.
var ErrExhausted = errors.New("failed to allocate a unique referral code")

// CodeChecker reports whether a referral code is already held by a user.
type CodeChecker interface {
	ReferralCodeExists(ctx context.Context, code string) (bool, error)
}

// Allocator produces referral codes that are unused at the moment of the
// check. The caller persists the chosen code; the referral_code column's
// unique index is the backstop against concurrent allocations.
type Allocator struct {
	store CodeChecker
}

// NewAllocator constructs an Allocator.
func NewAllocator(store CodeChecker) *Allocator {
	return &Allocator{store: store}
}

// Allocate returns a referral code derived from the email's local part:
// its first three characters uppercased, followed by four random digits.
func (a *Allocator) Allocate(ctx context.Context, email string) (string, error) {
	prefix := codePrefix(email)

	for i := 0; i < maxAttempts; i++ {
		suffix, err := randomInRange(1000, 9999)
		if err != nil {
			return "", fmt.Errorf("referral code suffix: %w", err)
		}

		candidate := fmt.Sprintf("%s%d", prefix, suffix)

		exists, err := a.store.ReferralCodeExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("referral code lookup: %w", err)
		}
		if !exists {
			return candidate, nil
		}
	}

	return "", ErrExhausted
}

func codePrefix(email string) string {
	local := email
	if at := strings.Index(email, "@"); at >= 0 {
		local = email[:at]
	}
	if len(local) > 3 {
		local = local[:3]
	}
	return strings.ToUpper(local)
}

// randomInRange draws uniformly from [min, max].
func randomInRange(min, max int64) (int64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(max-min+1))
	if err != nil {
		return 0, err
	}
	return min + n.Int64(), nil
}
