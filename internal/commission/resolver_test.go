package commission

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marketbay/payouts-backend/pkg/db/models"
	"github.com/marketbay/payouts-backend/pkg/enums"
	"github.com/marketbay/payouts-backend/pkg/logger"
	goredis "github.com/redis/go-redis/v9"
)

type fakeRepository struct {
	rules []models.CommissionRule
	calls int
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) ListActive(ctx context.Context, at time.Time) ([]models.CommissionRule, error) {
	f.calls++
	var out []models.CommissionRule
	for _, rule := range f.rules {
		if rule.InEffect(at) {
			out = append(out, rule)
		}
	}
	return out, nil
}

type fakeCache struct {
	data map[string]string
}

func (f *fakeCache) Get(ctx context.Context, key string) (string, error) {
	v, ok := f.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (f *fakeCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	f.data[key] = value.(string)
	return nil
}

func (f *fakeCache) CacheKey(scope, id string) string {
	return "mb:cache:" + scope + ":" + id
}

func newTestResolver(t *testing.T, repo Repository) *Resolver {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	r, err := NewResolver(repo, &fakeCache{data: map[string]string{}}, time.Minute, logg)
	if err != nil {
		t.Fatalf("resolver: %v", err)
	}
	return r
}

func uuidPtr(id uuid.UUID) *uuid.UUID {
	return &id
}

func TestResolveForItemScopePrecedence(t *testing.T) {
	sellerID := uuid.New()
	categoryID := uuid.New()
	productID := uuid.New()
	now := time.Now()

	rules := []models.CommissionRule{
		{ID: uuid.New(), Type: enums.CommissionRuleTypePercentage, EntityType: enums.CommissionEntityTypeGlobal, Rate: dec("0.05"), Priority: 100, IsActive: true},
		{ID: uuid.New(), Type: enums.CommissionRuleTypePercentage, EntityType: enums.CommissionEntityTypeProduct, EntityID: uuidPtr(productID), Rate: dec("0.04"), Priority: 10, IsActive: true},
		{ID: uuid.New(), Type: enums.CommissionRuleTypePercentage, EntityType: enums.CommissionEntityTypeCategory, EntityID: uuidPtr(categoryID), Rate: dec("0.03"), Priority: 10, IsActive: true},
		{ID: uuid.New(), Type: enums.CommissionRuleTypePercentage, EntityType: enums.CommissionEntityTypeSeller, EntityID: uuidPtr(sellerID), Rate: dec("0.02"), Priority: 1, IsActive: true},
	}

	resolver := newTestResolver(t, &fakeRepository{rules: rules})
	item := ItemScope{SellerID: sellerID, CategoryID: uuidPtr(categoryID), ProductID: productID}

	// seller scope wins regardless of priority elsewhere
	got := resolver.ResolveForItem(rules, item, now)
	if got == nil || got.EntityType != enums.CommissionEntityTypeSeller {
		t.Fatalf("expected seller rule, got %+v", got)
	}

	// without a seller rule, category beats product
	got = resolver.ResolveForItem(rules[:3], item, now)
	if got == nil || got.EntityType != enums.CommissionEntityTypeCategory {
		t.Fatalf("expected category rule, got %+v", got)
	}

	// an unrelated seller falls back to global
	other := ItemScope{SellerID: uuid.New(), ProductID: uuid.New()}
	got = resolver.ResolveForItem(rules, other, now)
	if got == nil || got.EntityType != enums.CommissionEntityTypeGlobal {
		t.Fatalf("expected global rule, got %+v", got)
	}
}

func TestResolveForItemPriorityWithinScope(t *testing.T) {
	sellerID := uuid.New()
	now := time.Now()

	rules := []models.CommissionRule{
		{ID: uuid.New(), Type: enums.CommissionRuleTypePercentage, EntityType: enums.CommissionEntityTypeSeller, EntityID: uuidPtr(sellerID), Rate: dec("0.02"), Priority: 1, IsActive: true},
		{ID: uuid.New(), Type: enums.CommissionRuleTypePercentage, EntityType: enums.CommissionEntityTypeSeller, EntityID: uuidPtr(sellerID), Rate: dec("0.07"), Priority: 9, IsActive: true},
	}

	resolver := newTestResolver(t, &fakeRepository{rules: rules})
	got := resolver.ResolveForItem(rules, ItemScope{SellerID: sellerID, ProductID: uuid.New()}, now)
	if got == nil || !got.Rate.Equal(dec("0.07")) {
		t.Fatalf("expected priority 9 rule, got %+v", got)
	}
}

func TestResolveForItemValidityWindow(t *testing.T) {
	now := time.Now()
	expired := now.Add(-time.Hour)

	rules := []models.CommissionRule{
		{ID: uuid.New(), Type: enums.CommissionRuleTypePercentage, EntityType: enums.CommissionEntityTypeGlobal, Rate: dec("0.09"), IsActive: true, ValidTo: &expired},
		{ID: uuid.New(), Type: enums.CommissionRuleTypePercentage, EntityType: enums.CommissionEntityTypeGlobal, Rate: dec("0.05"), IsActive: false},
	}

	resolver := newTestResolver(t, &fakeRepository{rules: rules})
	got := resolver.ResolveForItem(rules, ItemScope{SellerID: uuid.New(), ProductID: uuid.New()}, now)
	if got != nil {
		t.Fatalf("expected no applicable rule, got %+v", got)
	}
}

func TestActiveRulesCaches(t *testing.T) {
	repo := &fakeRepository{rules: []models.CommissionRule{
		{ID: uuid.New(), Type: enums.CommissionRuleTypePercentage, EntityType: enums.CommissionEntityTypeGlobal, Rate: dec("0.05"), IsActive: true},
	}}
	resolver := newTestResolver(t, repo)
	ctx := context.Background()
	now := time.Now()

	first, err := resolver.ActiveRules(ctx, now)
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	second, err := resolver.ActiveRules(ctx, now)
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected one rule per load, got %d and %d", len(first), len(second))
	}
	if repo.calls != 1 {
		t.Fatalf("expected a single db read, got %d", repo.calls)
	}
}

func TestActiveRulesWithoutCache(t *testing.T) {
	repo := &fakeRepository{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	resolver, err := NewResolver(repo, nil, time.Minute, logg)
	if err != nil {
		t.Fatalf("resolver: %v", err)
	}

	if _, err := resolver.ActiveRules(context.Background(), time.Now()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := resolver.ActiveRules(context.Background(), time.Now()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if repo.calls != 2 {
		t.Fatalf("expected two db reads without cache, got %d", repo.calls)
	}
}
