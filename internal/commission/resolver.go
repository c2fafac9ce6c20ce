package commission

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/marketbay/payouts-backend/pkg/db/models"
	"github.com/marketbay/payouts-backend/pkg/enums"
	"github.com/marketbay/payouts-backend/pkg/logger"
	"github.com/marketbay/payouts-backend/pkg/redis"
)

const cacheScope = "commission-rules"

// Resolver loads the active rule set and picks the rule for an order item.
// The active set is cached in Redis with a short TTL; cache failures fall
// through to the database.
type Resolver struct {
	repo  Repository
	cache redis.CacheStore
	ttl   time.Duration
	logg  *logger.Logger
}

// NewResolver wires a rule resolver. cache may be nil, which disables caching.
func NewResolver(repo Repository, cache redis.CacheStore, ttl time.Duration, logg *logger.Logger) (*Resolver, error) {
	if repo == nil {
		return nil, fmt.Errorf("commission repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Resolver{repo: repo, cache: cache, ttl: ttl, logg: logg}, nil
}

// ActiveRules returns the rule set in effect at the given instant.
func (r *Resolver) ActiveRules(ctx context.Context, at time.Time) ([]models.CommissionRule, error) {
	if rules, ok := r.fromCache(ctx); ok {
		return inEffect(rules, at), nil
	}

	rules, err := r.repo.ListActive(ctx, at)
	if err != nil {
		return nil, err
	}
	r.toCache(ctx, rules)
	return rules, nil
}

// ItemScope identifies the scopes an order item can match.
type ItemScope struct {
	SellerID   uuid.UUID
	CategoryID *uuid.UUID
	ProductID  uuid.UUID
}

// scope precedence, tightest first
var scopePrecedence = []enums.CommissionEntityType{
	enums.CommissionEntityTypeSeller,
	enums.CommissionEntityTypeCategory,
	enums.CommissionEntityTypeProduct,
	enums.CommissionEntityTypeGlobal,
}

// ResolveForItem picks the single rule that applies to the item: the tightest
// matching scope wins, then the highest priority within that scope. A nil
// return means no rule matched and the default commission rate applies.
func (r *Resolver) ResolveForItem(rules []models.CommissionRule, item ItemScope, at time.Time) *models.CommissionRule {
	for _, scope := range scopePrecedence {
		var best *models.CommissionRule
		for i := range rules {
			rule := &rules[i]
			if rule.EntityType != scope || !rule.InEffect(at) {
				continue
			}
			if !matchesScope(rule, item) {
				continue
			}
			if best == nil || rule.Priority > best.Priority {
				best = rule
			}
		}
		if best != nil {
			return best
		}
	}
	return nil
}

func matchesScope(rule *models.CommissionRule, item ItemScope) bool {
	switch rule.EntityType {
	case enums.CommissionEntityTypeGlobal:
		return true
	case enums.CommissionEntityTypeSeller:
		return rule.EntityID != nil && *rule.EntityID == item.SellerID
	case enums.CommissionEntityTypeCategory:
		return rule.EntityID != nil && item.CategoryID != nil && *rule.EntityID == *item.CategoryID
	case enums.CommissionEntityTypeProduct:
		return rule.EntityID != nil && *rule.EntityID == item.ProductID
	default:
		return false
	}
}

func inEffect(rules []models.CommissionRule, at time.Time) []models.CommissionRule {
	out := rules[:0]
	for _, rule := range rules {
		if rule.InEffect(at) {
			out = append(out, rule)
		}
	}
	return out
}

func (r *Resolver) fromCache(ctx context.Context) ([]models.CommissionRule, bool) {
	if r.cache == nil {
		return nil, false
	}
	raw, err := r.cache.Get(ctx, r.cache.CacheKey(cacheScope, "active"))
	if err != nil {
		if !redis.IsNil(err) {
			r.logg.Warn(ctx, "commission rule cache read failed")
		}
		return nil, false
	}
	var rules []models.CommissionRule
	if err := json.Unmarshal([]byte(raw), &rules); err != nil {
		r.logg.Warn(ctx, "commission rule cache entry corrupt")
		return nil, false
	}
	return rules, true
}

func (r *Resolver) toCache(ctx context.Context, rules []models.CommissionRule) {
	if r.cache == nil {
		return
	}
	raw, err := json.Marshal(rules)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, r.cache.CacheKey(cacheScope, "active"), string(raw), r.ttl); err != nil {
		r.logg.Warn(ctx, "commission rule cache write failed")
	}
}
