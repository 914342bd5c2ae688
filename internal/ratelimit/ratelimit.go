package ratelimit

import (
	"context"
	"time"

	"csfcompass.org/internal/obs"
)

// Operations with fixed-window budgets.
const (
	OpValidate   = "validate"
	OpUpdateItem = "update_item"
)

// Counter is a key/TTL counter store. Increment must be atomic per key and
// the first increment of a key starts its window; later increments must not
// extend it. Counters self-expire, so no cleanup coordination is needed
// across service instances.
type Counter interface {
	Increment(ctx context.Context, key string, ttl time.Duration) (count int64, remaining time.Duration, err error)
}

// Rule is a fixed-window budget for one operation.
type Rule struct {
	Limit  int64
	Window time.Duration
}

// DefaultRules returns the delegation workflow budgets.
func DefaultRules() map[string]Rule {
	return map[string]Rule{
		OpValidate:   {Limit: 10, Window: time.Minute},
		OpUpdateItem: {Limit: 30, Window: time.Minute},
	}
}

// Decision is the outcome of an Allow call. RetryAfter is only meaningful
// when Allowed is false.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter enforces fixed-window budgets per (operation, identity) pair.
// Operations without a rule are always allowed. If the counter store is
// unreachable the limiter fails open: availability of the delegation
// workflow outweighs strict enforcement.
type Limiter struct {
	counter Counter
	rules   map[string]Rule
}

// New builds a Limiter. Nil rules fall back to DefaultRules.
func New(counter Counter, rules map[string]Rule) *Limiter {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Limiter{counter: counter, rules: rules}
}

// Allow records one request for (op, identity) and reports whether it fits
// the window budget.
func (l *Limiter) Allow(ctx context.Context, op, identity string) Decision {
	rule, ok := l.rules[op]
	if !ok {
		return Decision{Allowed: true}
	}

	count, remaining, err := l.counter.Increment(ctx, op+":"+identity, rule.Window)
	if err != nil {
		obs.Logger().WithError(err).WithField("operation", op).Warn("rate limit counter unavailable, allowing request")
		return Decision{Allowed: true}
	}
	if count > rule.Limit {
		if remaining <= 0 || remaining > rule.Window {
			remaining = rule.Window
		}
		return Decision{Allowed: false, RetryAfter: remaining}
	}
	return Decision{Allowed: true}
}
