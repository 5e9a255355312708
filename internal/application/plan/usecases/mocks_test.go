package usecases

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tasklane/tasklane/internal/domain/plan"
)

type mockPlanRepo struct {
	mu     sync.Mutex
	plans  map[uint]*plan.Plan
	nextID uint
	err    error
}

func newMockPlanRepo() *mockPlanRepo {
	return &mockPlanRepo{plans: make(map[uint]*plan.Plan)}
}

func (m *mockPlanRepo) Create(ctx context.Context, p *plan.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.nextID++
	if err := p.SetID(m.nextID); err != nil {
		return err
	}
	m.plans[p.ID()] = p
	return nil
}

func (m *mockPlanRepo) GetByID(ctx context.Context, id uint) (*plan.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.plans[id]
	if !ok {
		return nil, plan.ErrPlanNotFound
	}
	return p, nil
}

func (m *mockPlanRepo) GetBySlug(ctx context.Context, slug string) (*plan.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.plans {
		if p.Slug() == slug {
			return p, nil
		}
	}
	return nil, plan.ErrPlanNotFound
}

func (m *mockPlanRepo) Update(ctx context.Context, p *plan.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.plans[p.ID()] = p
	return nil
}

func (m *mockPlanRepo) List(ctx context.Context, filter plan.PlanFilter) ([]*plan.Plan, int64, error) {
	all, _ := m.sorted(func(p *plan.Plan) bool {
		return filter.IsActive == nil || p.IsActive() == *filter.IsActive
	})
	return all, int64(len(all)), nil
}

func (m *mockPlanRepo) GetActive(ctx context.Context) ([]*plan.Plan, error) {
	return m.sorted(func(p *plan.Plan) bool { return p.IsActive() })
}

func (m *mockPlanRepo) sorted(keep func(*plan.Plan) bool) ([]*plan.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*plan.Plan
	for _, p := range m.plans {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out, nil
}

func (m *mockPlanRepo) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	_, err := m.GetBySlug(ctx, slug)
	return err == nil, nil
}

type mockOverrideRepo struct {
	mu        sync.Mutex
	overrides map[uint]*plan.PlanOverride
	nextID    uint
}

func newMockOverrideRepo() *mockOverrideRepo {
	return &mockOverrideRepo{overrides: make(map[uint]*plan.PlanOverride)}
}

func (m *mockOverrideRepo) Save(ctx context.Context, o *plan.PlanOverride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.ID() == 0 {
		m.nextID++
		if err := o.SetID(m.nextID); err != nil {
			return err
		}
	}
	m.overrides[o.UserID()] = o
	return nil
}

func (m *mockOverrideRepo) GetByUserID(ctx context.Context, userID uint) (*plan.PlanOverride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.overrides[userID]
	if !ok {
		return nil, plan.ErrOverrideNotFound
	}
	return o, nil
}

func (m *mockOverrideRepo) DeleteByUserID(ctx context.Context, userID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.overrides[userID]; !ok {
		return plan.ErrOverrideNotFound
	}
	delete(m.overrides, userID)
	return nil
}

func (m *mockOverrideRepo) UserIDsByPlanID(ctx context.Context, planID uint) ([]uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []uint
	for userID, o := range m.overrides {
		if o.PlanID() == planID {
			ids = append(ids, userID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type mockSubscriptionRepo struct {
	subs map[uint]*plan.Subscription
}

func newMockSubscriptionRepo() *mockSubscriptionRepo {
	return &mockSubscriptionRepo{subs: make(map[uint]*plan.Subscription)}
}

func (m *mockSubscriptionRepo) GetActiveByUserID(ctx context.Context, userID uint, now time.Time) (*plan.Subscription, error) {
	sub, ok := m.subs[userID]
	if !ok || !sub.IsActiveAt(now) {
		return nil, plan.ErrSubscriptionNotFound
	}
	return sub, nil
}

func (m *mockSubscriptionRepo) Save(ctx context.Context, sub *plan.Subscription) error {
	m.subs[sub.UserID] = sub
	return nil
}

func (m *mockSubscriptionRepo) CountActiveByPlanID(ctx context.Context, planID uint, now time.Time) (int64, error) {
	var n int64
	for _, sub := range m.subs {
		if sub.PlanID == planID && sub.IsActiveAt(now) {
			n++
		}
	}
	return n, nil
}

type mockInvalidator struct {
	mu    sync.Mutex
	users []uint
	plans []uint
}

func (m *mockInvalidator) InvalidateUser(ctx context.Context, userIDs ...uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = append(m.users, userIDs...)
	return nil
}

func (m *mockInvalidator) InvalidatePlan(ctx context.Context, planID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans = append(m.plans, planID)
	return nil
}

type mockPublisher struct {
	events []plan.ChangeEvent
	err    error
}

func (m *mockPublisher) Publish(ctx context.Context, event plan.ChangeEvent) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

type mockTx struct {
	calls int
}

func (m *mockTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}
