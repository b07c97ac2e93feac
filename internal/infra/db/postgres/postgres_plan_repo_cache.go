package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ege-billing/internal/domain/model"
	"ege-billing/internal/domain/ports/repository"
	"ege-billing/internal/infra/metrics"
	red "ege-billing/internal/infra/redis"
)

var _ repository.PlanCatalog = (*planRepoCacheDecorator)(nil)

// planRepoCacheDecorator fronts the plan catalog with Redis. The catalog is
// read on every activation, so the read-through cache keeps the hot path off
// the database; writes invalidate.
type planRepoCacheDecorator struct {
	inner repository.PlanCatalog
	cache red.RedisClient
	ttl   time.Duration
}

func NewPlanRepoCacheDecorator(inner repository.PlanCatalog, cache red.RedisClient) repository.PlanCatalog {
	return &planRepoCacheDecorator{
		inner: inner,
		cache: cache,
		ttl:   1 * time.Hour,
	}
}

func (d *planRepoCacheDecorator) FindByID(ctx context.Context, id string) (*model.Plan, error) {
	key := fmt.Sprintf("plan:%s", id)
	// A cache error (redis down, key missing) degrades to a DB read.
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		metrics.IncCacheRequest("plan", "hit")
		var plan model.Plan
		if json.Unmarshal([]byte(val), &plan) == nil {
			return &plan, nil
		}
	}

	metrics.IncCacheRequest("plan", "miss")
	plan, err := d.inner.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if plan != nil {
		bytes, _ := json.Marshal(plan)
		_ = d.cache.Set(ctx, key, bytes, d.ttl)
	}
	return plan, nil
}

func (d *planRepoCacheDecorator) ListAll(ctx context.Context) ([]*model.Plan, error) {
	key := "plans:all"
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		metrics.IncCacheRequest("plan_list", "hit")
		var plans []*model.Plan
		if json.Unmarshal([]byte(val), &plans) == nil {
			return plans, nil
		}
	}

	metrics.IncCacheRequest("plan_list", "miss")
	plans, err := d.inner.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(plans) > 0 {
		bytes, _ := json.Marshal(plans)
		_ = d.cache.Set(ctx, key, bytes, d.ttl)
	}
	return plans, nil
}

// Save invalidates both the per-plan key and the full list.
func (d *planRepoCacheDecorator) Save(ctx context.Context, plan *model.Plan) error {
	_ = d.cache.Del(ctx, fmt.Sprintf("plan:%s", plan.ID))
	_ = d.cache.Del(ctx, "plans:all")
	return d.inner.Save(ctx, plan)
}
