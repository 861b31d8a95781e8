package config

import (
	"os"
	"strings"
	"time"
)

// SlipValidityDays is how long a generated broking slip may be submitted to the insurer.
//
// Set via env:
// - SLIP_VALIDITY_DAYS=30
func SlipValidityDays() int {
	days := intFromEnv("SLIP_VALIDITY_DAYS", 30)
	if days <= 0 {
		return 30
	}
	return days
}

// SequenceMaxRetries bounds how often a conflicting counter allocation is retried
// before it fails with SEQUENCE_EXHAUSTED.
func SequenceMaxRetries() int {
	n := intFromEnv("SEQUENCE_MAX_RETRIES", 5)
	if n <= 0 {
		return 5
	}
	return n
}

// OverrideAuthorityRoles lists the roles allowed to issue endorsements below the
// minimum premium (subject to their override limit).
//
// Set via env:
// - OVERRIDE_AUTHORITY_ROLES="md,ceo"
//
// Role names are case-insensitive.
func OverrideAuthorityRoles() []string {
	raw := os.Getenv("OVERRIDE_AUTHORITY_ROLES")
	if strings.TrimSpace(raw) == "" {
		return []string{"md"}
	}
	roles := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if r := strings.ToLower(strings.TrimSpace(part)); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}

// ExpirySweepInterval is the period of the in-process auto-expiry loop.
// Zero disables the loop (run cmd/policy-expiry-sweep from a scheduler instead).
func ExpirySweepInterval() time.Duration {
	return time.Duration(intFromEnv("EXPIRY_SWEEP_INTERVAL_MINUTES", 0)) * time.Minute
}

// RatingCacheTTL controls how long resolved line-of-business ratings stay in Redis.
func RatingCacheTTL() time.Duration {
	return time.Duration(intFromEnv("RATING_CACHE_TTL_SECONDS", 300)) * time.Second
}

// OutboxDispatchEnabled turns on the lifecycle event publisher.
//
// Set via env:
// - OUTBOX_DISPATCH=true
func OutboxDispatchEnabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("OUTBOX_DISPATCH")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
