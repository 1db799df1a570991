// Package keycodec holds the pure functions behind license issuance: opaque
// key-code generation, mentor-id generation, and the plan-to-expiry table.
// Uniqueness of generated values is the caller's responsibility.
package keycodec

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"qtportal/pkg/contracts/domain"
)

// codeAlphabet is the 36-symbol alphabet license codes draw from.
const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const (
	codeGroups    = 5
	codeGroupSize = 5
)

// GenerateCode returns a license code of five hyphen-separated groups of five
// characters, e.g. "7K2FQ-MN80A-XXD1P-40LZR-BC9TW". Randomness comes from
// crypto/rand.
func GenerateCode() string {
	var b strings.Builder
	b.Grow(codeGroups*codeGroupSize + codeGroups - 1)

	for g := 0; g < codeGroups; g++ {
		if g > 0 {
			b.WriteByte('-')
		}
		for i := 0; i < codeGroupSize; i++ {
			b.WriteByte(codeAlphabet[randInt(len(codeAlphabet))])
		}
	}
	return b.String()
}

// GenerateMentorID returns a uniform random 6-digit mentor id in
// [100000, 999999].
func GenerateMentorID() int {
	span := domain.MentorIDMax - domain.MentorIDMin + 1
	return domain.MentorIDMin + randInt(span)
}

// randInt returns a uniform random int in [0, n) from crypto/rand. A failing
// system randomness source is unrecoverable, so it panics.
func randInt(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic(fmt.Sprintf("keycodec: crypto/rand failed: %v", err))
	}
	return int(v.Int64())
}

// ExpiryFor computes the expiry timestamp for a plan code from the issuance
// instant. Unrecognized plan codes fall back to 30 days. Lifetime plans get a
// 100-year sentinel. Calendar month and year additions clamp the day to the
// last day of the target month: Jan 31 + 3 months is Apr 30, never May 1.
func ExpiryFor(planCode string, issuedAt time.Time) time.Time {
	switch planCode {
	case domain.Plan3Days:
		return issuedAt.AddDate(0, 0, 3)
	case domain.Plan5Days:
		return issuedAt.AddDate(0, 0, 5)
	case domain.Plan30Days:
		return issuedAt.AddDate(0, 0, 30)
	case domain.Plan3Months:
		return addMonths(issuedAt, 3)
	case domain.Plan6Months:
		return addMonths(issuedAt, 6)
	case domain.Plan1Year:
		return addMonths(issuedAt, 12)
	case domain.PlanLifetime:
		return addMonths(issuedAt, 12*100)
	default:
		return issuedAt.AddDate(0, 0, 30)
	}
}

// PlanDisplayName returns the human-readable name for a plan code, or the
// code itself when unrecognized.
func PlanDisplayName(planCode string) string {
	switch planCode {
	case domain.Plan3Days:
		return "3 Days"
	case domain.Plan5Days:
		return "5 Days"
	case domain.Plan30Days:
		return "30 Days"
	case domain.Plan3Months:
		return "3 Months"
	case domain.Plan6Months:
		return "6 Months"
	case domain.Plan1Year:
		return "1 Year"
	case domain.PlanLifetime:
		return "Lifetime"
	default:
		return planCode
	}
}

// addMonths adds n calendar months keeping the day-of-month, clamped to the
// last day of the target month. time.AddDate is avoided here because it
// normalizes overflow (Jan 31 + 1 month = Mar 2/3).
func addMonths(t time.Time, n int) time.Time {
	year, month, day := t.Date()

	total := int(month) - 1 + n
	year += total / 12
	month = time.Month(total%12 + 1)

	if last := lastDayOfMonth(year, month); day > last {
		day = last
	}

	h, m, s := t.Clock()
	return time.Date(year, month, day, h, m, s, t.Nanosecond(), t.Location())
}

// lastDayOfMonth returns the number of days in the given month.
func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
