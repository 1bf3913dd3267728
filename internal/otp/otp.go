// Package otp holds active one-time-password attempts with TTL and attempt
// limits, plus the phone and code helpers shared by the stores and the
// delivery channel.
package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Outcome is the result of a single verification attempt.
type Outcome int

const (
	// OutcomeValid means the code and phone matched and the entry was
	// atomically marked verified.
	OutcomeValid Outcome = iota + 1
	// OutcomeInvalid means the code or phone did not match; the attempt
	// counter was incremented and the entry retained.
	OutcomeInvalid
	// OutcomeNotFound means no entry exists for the reference id.
	OutcomeNotFound
	// OutcomeExpired means the entry outlived its TTL and was removed.
	OutcomeExpired
	// OutcomeAlreadyVerified means the entry was consumed earlier.
	OutcomeAlreadyVerified
	// OutcomeTooManyAttempts means the attempt cap was reached and the
	// entry was removed.
	OutcomeTooManyAttempts
)

func (o Outcome) String() string {
	switch o {
	case OutcomeValid:
		return "valid"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeExpired:
		return "expired"
	case OutcomeAlreadyVerified:
		return "already_verified"
	case OutcomeTooManyAttempts:
		return "too_many_attempts"
	default:
		return "unknown"
	}
}

// Store keeps active OTP entries keyed by reference id. Implementations
// must serialize Verify per reference id so the attempt counter and the
// verified flag transition exactly once per call.
type Store interface {
	Put(ctx context.Context, referenceID, phone, code string, now time.Time) error
	Verify(ctx context.Context, referenceID, phone, code string, now time.Time) (Outcome, error)
	// Remove drops an entry, used to roll back a Put after a failed delivery.
	Remove(ctx context.Context, referenceID string) error
	// Cleanup removes expired entries. Idempotent.
	Cleanup(ctx context.Context, now time.Time) error
}

// NewReferenceID returns a fresh opaque handle for an OTP attempt.
func NewReferenceID() string {
	return "otp_" + uuid.NewString()
}

// GenerateCode returns a uniform 6-digit decimal code.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// PhoneRules validates and normalizes phone numbers for one locale. The
// accepted forms are +<prefix>, <prefix> or a leading 0, with 10-13 digits
// in total.
type PhoneRules struct {
	prefix  string
	pattern *regexp.Regexp
}

// NewPhoneRules builds the rules for the given international prefix
// (e.g. "62").
func NewPhoneRules(prefix string) PhoneRules {
	return PhoneRules{
		prefix:  prefix,
		pattern: regexp.MustCompile(fmt.Sprintf(`^(\+%s|%s|0)[0-9]{9,12}$`, prefix, prefix)),
	}
}

// Valid reports whether the phone number matches an accepted form.
func (r PhoneRules) Valid(phone string) bool {
	return r.pattern.MatchString(phone)
}

// Normalize strips non-digits and rewrites a leading 0 to the
// international prefix. Normalized forms are what the stores compare.
func (r PhoneRules) Normalize(phone string) string {
	var b strings.Builder
	for _, c := range phone {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	digits := b.String()
	if strings.HasPrefix(digits, "0") {
		return r.prefix + digits[1:]
	}
	return digits
}

// International formats the phone as +<normalized digits> for delivery.
func (r PhoneRules) International(phone string) string {
	return "+" + r.Normalize(phone)
}
