// Package testutil provides in-memory implementations of the entitlement
// ports for tests.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/tasklane/tasklane/internal/domain/entitlement"
)

// MockConfigurationStore is an in-memory entitlement.ConfigurationStore.
type MockConfigurationStore struct {
	mu            sync.RWMutex
	subscriptions map[uint]uint
	plans         map[uint][]byte
	overrides     map[uint]*mockOverride

	// Call counters
	PlanLookups int

	// Error injection for testing
	ActivePlanError error
	FeaturesError   error
	OverrideError   error
}

type mockOverride struct {
	record entitlement.OverrideRecord
	active bool
}

func NewMockConfigurationStore() *MockConfigurationStore {
	return &MockConfigurationStore{
		subscriptions: make(map[uint]uint),
		plans:         make(map[uint][]byte),
		overrides:     make(map[uint]*mockOverride),
	}
}

// SetPlan stores a plan features document.
func (m *MockConfigurationStore) SetPlan(planID uint, features string) *MockConfigurationStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans[planID] = []byte(features)
	return m
}

// Subscribe puts userID on planID.
func (m *MockConfigurationStore) Subscribe(userID, planID uint) *MockConfigurationStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions[userID] = planID
	return m
}

func (m *MockConfigurationStore) Unsubscribe(userID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscriptions, userID)
}

// SetOverride stores an override for userID. Inactive overrides are kept but
// never returned, as a real store would filter them.
func (m *MockConfigurationStore) SetOverride(userID, overrideID, planID uint, features string, active bool) *MockConfigurationStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides[userID] = &mockOverride{
		record: entitlement.OverrideRecord{ID: overrideID, PlanID: planID, Features: []byte(features)},
		active: active,
	}
	return m
}

func (m *MockConfigurationStore) ActivePlanForUser(ctx context.Context, userID uint) (uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PlanLookups++

	if m.ActivePlanError != nil {
		return 0, m.ActivePlanError
	}
	planID, ok := m.subscriptions[userID]
	if !ok {
		return 0, entitlement.ErrNotSubscribed
	}
	return planID, nil
}

func (m *MockConfigurationStore) PlanFeatures(ctx context.Context, planID uint) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.FeaturesError != nil {
		return nil, m.FeaturesError
	}
	return m.plans[planID], nil
}

func (m *MockConfigurationStore) ActiveOverride(ctx context.Context, userID uint) (*entitlement.OverrideRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.OverrideError != nil {
		return nil, m.OverrideError
	}
	o, ok := m.overrides[userID]
	if !ok || !o.active {
		return nil, nil
	}
	record := o.record
	return &record, nil
}

// MockUsageSource returns fixed usage counts per user and limit name.
type MockUsageSource struct {
	mu     sync.Mutex
	counts map[uint]map[string]int64
	Calls  int
	Err    error
}

func NewMockUsageSource() *MockUsageSource {
	return &MockUsageSource{counts: make(map[uint]map[string]int64)}
}

func (m *MockUsageSource) Set(userID uint, limitName string, count int64) *MockUsageSource {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts[userID] == nil {
		m.counts[userID] = make(map[string]int64)
	}
	m.counts[userID][limitName] = count
	return m
}

func (m *MockUsageSource) CurrentUsage(ctx context.Context, userID uint, limitName string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.Err != nil {
		return 0, m.Err
	}
	return m.counts[userID][limitName], nil
}

// MockPolicyCache is a map-backed entitlement.PolicyCache that ignores TTLs
// but records them.
type MockPolicyCache struct {
	mu      sync.Mutex
	entries map[uint]*entitlement.CachedResolution
	TTLs    map[uint]time.Duration

	GetError error
	SetError error
}

func NewMockPolicyCache() *MockPolicyCache {
	return &MockPolicyCache{
		entries: make(map[uint]*entitlement.CachedResolution),
		TTLs:    make(map[uint]time.Duration),
	}
}

func (m *MockPolicyCache) Get(ctx context.Context, userID uint) (*entitlement.CachedResolution, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, false, m.GetError
	}
	entry, ok := m.entries[userID]
	return entry, ok, nil
}

func (m *MockPolicyCache) Set(ctx context.Context, userID uint, entry *entitlement.CachedResolution, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetError != nil {
		return m.SetError
	}
	m.entries[userID] = entry
	m.TTLs[userID] = ttl
	return nil
}

func (m *MockPolicyCache) Delete(ctx context.Context, userIDs ...uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range userIDs {
		delete(m.entries, id)
	}
	return nil
}

func (m *MockPolicyCache) DeletePlan(ctx context.Context, planID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, entry := range m.entries {
		if entry.Policy != nil && entry.Policy.PlanID == planID {
			delete(m.entries, id)
		}
	}
	return nil
}

func (m *MockPolicyCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
