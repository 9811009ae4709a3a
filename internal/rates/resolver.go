package rates

import (
	"context"

	"github.com/vqcheckout/wardrate/internal/cache"
)

// Resolver evaluates rate rules for a destination in priority order.
// First applicable rule wins when it stops; block rules short-circuit
// unconditionally.
type Resolver struct {
	store *Store
	cache *cache.Cache
}

// NewResolver constructs a Resolver.
func NewResolver(store *Store, c *cache.Cache) *Resolver {
	return &Resolver{store: store, cache: c}
}

// Resolve returns the shipping decision for (instance, ward, subtotal).
// Decisions are cached under a subtotal-bucketed key; a cached decision
// is returned as-is with CacheHit set, even if the underlying rules
// changed since (staleness bounded by TTL and explicit invalidation).
func (r *Resolver) Resolve(ctx context.Context, instanceID uint64, wardCode string, subtotal float64) (Decision, error) {
	key := cache.RateMatch(instanceID, wardCode, subtotal)

	var cached Decision
	if r.cache.GetJSON(ctx, key, &cached) {
		cached.CacheHit = true
		return cached, nil
	}

	rules, errLoad := r.store.GetRatesForWard(ctx, instanceID, wardCode)
	if errLoad != nil {
		return Decision{}, errLoad
	}

	decision := evaluate(rules, subtotal)

	decision.CacheHit = false
	r.cache.SetJSON(ctx, key, decision, cache.TTLMedium)
	return decision, nil
}

// evaluate walks the priority-ordered rule list.
func evaluate(rules []Rule, subtotal float64) Decision {
	var matched *Decision

	for _, rule := range rules {
		if rule.IsBlockRule {
			// Blocks are absolute: no later rule can override them.
			return Decision{
				RateID:  rule.ID,
				Label:   rule.Label,
				Cost:    0,
				Blocked: true,
			}
		}

		cost, applies := effectiveCost(rule, subtotal)
		if !applies {
			continue
		}

		matched = &Decision{
			RateID:  rule.ID,
			Label:   rule.Label,
			Cost:    cost,
			Blocked: false,
		}
		if rule.StopAfterMatch {
			break
		}
		// Non-stopping match: keep scanning, a later applicable rule
		// overwrites this one.
	}

	if matched == nil {
		return Decision{
			RateID:  0,
			Label:   "",
			Cost:    0,
			Blocked: false,
			Meta:    map[string]any{"fallback": true},
		}
	}
	return *matched
}

// effectiveCost evaluates a rule's conditions against the subtotal.
// Min and max bounds are inclusive; free_shipping_min forces the cost
// to zero once reached.
func effectiveCost(rule Rule, subtotal float64) (float64, bool) {
	cond := rule.Conditions
	if cond == nil {
		return rule.BaseCost, true
	}
	if cond.Min != nil && subtotal < *cond.Min {
		return 0, false
	}
	if cond.Max != nil && subtotal > *cond.Max {
		return 0, false
	}
	if cond.FreeShippingMin != nil && subtotal >= *cond.FreeShippingMin {
		return 0, true
	}
	return rule.BaseCost, true
}
