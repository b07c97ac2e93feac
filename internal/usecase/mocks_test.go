//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"ege-billing/internal/domain"
	"ege-billing/internal/domain/model"
	"ege-billing/internal/domain/ports/adapter"
	"ege-billing/internal/domain/ports/repository"
)

// newTestLogger creates a silent zerolog.Logger so test output stays clean.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// snapshotter lets MockTxManager emulate rollback: before fn runs, every
// registered store is snapshotted; when fn fails, they are restored.
type snapshotter interface {
	snapshot() any
	restore(any)
}

// ---- Mock TransactionManager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
	stores     []snapshotter
}

func NewMockTxManager(stores ...snapshotter) *MockTxManager {
	return &MockTxManager{stores: stores}
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	snaps := make([]any, len(m.stores))
	for i, s := range m.stores {
		snaps[i] = s.snapshot()
	}
	if err := fn(ctx, repository.NoTX); err != nil {
		for i, s := range m.stores {
			s.restore(snaps[i])
		}
		return err
	}
	return nil
}

// ---- Mock PaymentRepository ----

type MockPaymentRepo struct {
	mu    sync.RWMutex
	store map[string]*model.PaymentAttempt // by order id

	// Entitlements and Plans link the mock to its sibling stores so the
	// forward reconciliation scan can be answered like the real SQL does.
	Entitlements *MockEntitlementRepo
	Plans        *MockPlanRepo

	SaveFunc          func(ctx context.Context, tx repository.Tx, p *model.PaymentAttempt) error
	FindByOrderIDFunc func(ctx context.Context, tx repository.Tx, orderID string) (*model.PaymentAttempt, error)
	MarkSucceededFunc func(ctx context.Context, tx repository.Tx, orderID string, paymentID *string, completedAt time.Time) error
}

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

func NewMockPaymentRepo() *MockPaymentRepo {
	return &MockPaymentRepo{store: make(map[string]*model.PaymentAttempt)}
}

func (m *MockPaymentRepo) snapshot() any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cp := make(map[string]*model.PaymentAttempt, len(m.store))
	for k, v := range m.store {
		vc := *v
		cp[k] = &vc
	}
	return cp
}

func (m *MockPaymentRepo) restore(s any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store = s.(map[string]*model.PaymentAttempt)
}

func (m *MockPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.PaymentAttempt) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.store[p.OrderID] = &cp
	return nil
}

func (m *MockPaymentRepo) FindByOrderID(ctx context.Context, tx repository.Tx, orderID string) (*model.PaymentAttempt, error) {
	if m.FindByOrderIDFunc != nil {
		return m.FindByOrderIDFunc(ctx, tx, orderID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.store[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockPaymentRepo) MarkSucceeded(ctx context.Context, tx repository.Tx, orderID string, paymentID *string, completedAt time.Time) error {
	if m.MarkSucceededFunc != nil {
		return m.MarkSucceededFunc(ctx, tx, orderID, paymentID, completedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[orderID]
	if !ok {
		return domain.ErrNotFound
	}
	if p.Status != model.PaymentStatusSucceeded {
		ct := completedAt
		p.CompletedAt = &ct
	}
	p.Status = model.PaymentStatusSucceeded
	if paymentID != nil {
		p.PaymentID = paymentID
	}
	return nil
}

func (m *MockPaymentRepo) MarkFailed(ctx context.Context, tx repository.Tx, orderID string, completedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[orderID]
	if !ok {
		return domain.ErrNotFound
	}
	if p.Status == model.PaymentStatusSucceeded {
		return nil
	}
	p.Status = model.PaymentStatusFailed
	ct := completedAt
	p.CompletedAt = &ct
	return nil
}

func (m *MockPaymentRepo) ListSucceededWithoutEntitlements(ctx context.Context, tx repository.Tx, since time.Time, limit int) ([]*model.PaymentAttempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.PaymentAttempt
	for _, p := range m.store {
		if p.Status != model.PaymentStatusSucceeded || p.CompletedAt == nil || p.CompletedAt.Before(since) {
			continue
		}
		if m.fullyServed(ctx, p) {
			continue
		}
		cp := *p
		out = append(out, &cp)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// fullyServed mirrors the module-coverage scan: every plan module holds an
// entitlement row written at or after the payment completed, whatever
// plan_id a later purchase may have stamped on it. A payment whose plan
// vanished from the catalog is never counted as served.
func (m *MockPaymentRepo) fullyServed(ctx context.Context, p *model.PaymentAttempt) bool {
	if m.Plans == nil || m.Entitlements == nil {
		return false
	}
	plan, err := m.Plans.FindByID(ctx, p.PlanID)
	if err != nil {
		return false
	}
	for _, moduleCode := range plan.Modules {
		e, ok := m.Entitlements.find(p.UserID, moduleCode)
		if !ok || e.ActivatedAt.Before(*p.CompletedAt) {
			return false
		}
	}
	return true
}

func (m *MockPaymentRepo) SumSucceededByPeriod(ctx context.Context, tx repository.Tx, period string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var sum int64
	for _, p := range m.store {
		if p.Status == model.PaymentStatusSucceeded {
			sum += p.AmountKopecks
		}
	}
	return sum, nil
}

func (m *MockPaymentRepo) CountSucceededSince(ctx context.Context, tx repository.Tx, since time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cnt := 0
	for _, p := range m.store {
		if p.Status == model.PaymentStatusSucceeded && p.CompletedAt != nil && !p.CompletedAt.Before(since) {
			cnt++
		}
	}
	return cnt, nil
}

// ---- Mock EntitlementRepository ----

type MockEntitlementRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Entitlement // by userID|moduleCode

	// Payments links the mock to the payment store for the inverse scan.
	Payments *MockPaymentRepo

	UpsertFunc func(ctx context.Context, tx repository.Tx, e *model.Entitlement) error
}

var _ repository.EntitlementRepository = (*MockEntitlementRepo)(nil)

func NewMockEntitlementRepo() *MockEntitlementRepo {
	return &MockEntitlementRepo{store: make(map[string]*model.Entitlement)}
}

func entKey(userID int64, moduleCode string) string {
	return strconv.FormatInt(userID, 10) + "|" + moduleCode
}

func (m *MockEntitlementRepo) snapshot() any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cp := make(map[string]*model.Entitlement, len(m.store))
	for k, v := range m.store {
		vc := *v
		cp[k] = &vc
	}
	return cp
}

func (m *MockEntitlementRepo) restore(s any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store = s.(map[string]*model.Entitlement)
}

func (m *MockEntitlementRepo) find(userID int64, moduleCode string) (*model.Entitlement, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.store[entKey(userID, moduleCode)]
	if !ok {
		return nil, false
	}
	cp := *e
	return &cp, true
}

func (m *MockEntitlementRepo) Upsert(ctx context.Context, tx repository.Tx, e *model.Entitlement) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, tx, e)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.store[entKey(e.UserID, e.ModuleCode)] = &cp
	return nil
}

func (m *MockEntitlementRepo) FindByUserAndModule(ctx context.Context, tx repository.Tx, userID int64, moduleCode string) (*model.Entitlement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.store[entKey(userID, moduleCode)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *MockEntitlementRepo) ListActiveByUser(ctx context.Context, tx repository.Tx, userID int64) ([]*model.Entitlement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Entitlement
	for _, e := range m.store {
		if e.UserID == userID && e.IsActive {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockEntitlementRepo) ListActiveWithoutPayment(ctx context.Context, tx repository.Tx, limit int) ([]*model.Entitlement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Entitlement
	for _, e := range m.store {
		if !e.IsActive {
			continue
		}
		if m.Payments != nil && m.Payments.hasSucceededForPlan(e.UserID, e.PlanID) {
			continue
		}
		cp := *e
		out = append(out, &cp)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MockPaymentRepo) hasSucceededForPlan(userID int64, planID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.store {
		if p.UserID == userID && p.PlanID == planID && p.Status == model.PaymentStatusSucceeded {
			return true
		}
	}
	return false
}

func (m *MockEntitlementRepo) DeactivateExpired(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.store {
		if e.IsActive && e.Expired(now) {
			e.IsActive = false
			n++
		}
	}
	return n, nil
}

func (m *MockEntitlementRepo) CountActiveByModule(ctx context.Context, tx repository.Tx) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]int)
	for _, e := range m.store {
		if e.IsActive {
			out[e.ModuleCode]++
		}
	}
	return out, nil
}

// ---- Mock PlanCatalog ----

type MockPlanRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Plan

	FindByIDFunc func(ctx context.Context, id string) (*model.Plan, error)
}

var _ repository.PlanCatalog = (*MockPlanRepo)(nil)

func NewMockPlanRepo() *MockPlanRepo {
	return &MockPlanRepo{store: make(map[string]*model.Plan)}
}

func (m *MockPlanRepo) FindByID(ctx context.Context, id string) (*model.Plan, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockPlanRepo) ListAll(ctx context.Context) ([]*model.Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.Plan, 0, len(m.store))
	for _, p := range m.store {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MockPlanRepo) Save(ctx context.Context, plan *model.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *plan
	m.store[plan.ID] = &cp
	return nil
}

// ---- Mock TeacherProfileRepository ----

type MockTeacherProfileRepo struct {
	mu    sync.RWMutex
	store map[int64]*model.TeacherProfile

	UpsertFunc     func(ctx context.Context, tx repository.Tx, p *model.TeacherProfile) error
	CodeExistsFunc func(ctx context.Context, tx repository.Tx, code string) (bool, error)
}

var _ repository.TeacherProfileRepository = (*MockTeacherProfileRepo)(nil)

func NewMockTeacherProfileRepo() *MockTeacherProfileRepo {
	return &MockTeacherProfileRepo{store: make(map[int64]*model.TeacherProfile)}
}

func (m *MockTeacherProfileRepo) snapshot() any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cp := make(map[int64]*model.TeacherProfile, len(m.store))
	for k, v := range m.store {
		vc := *v
		cp[k] = &vc
	}
	return cp
}

func (m *MockTeacherProfileRepo) restore(s any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store = s.(map[int64]*model.TeacherProfile)
}

func (m *MockTeacherProfileRepo) Upsert(ctx context.Context, tx repository.Tx, p *model.TeacherProfile) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, tx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.store[p.UserID] = &cp
	return nil
}

func (m *MockTeacherProfileRepo) FindByUser(ctx context.Context, tx repository.Tx, userID int64) (*model.TeacherProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.store[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockTeacherProfileRepo) CodeExists(ctx context.Context, tx repository.Tx, code string) (bool, error) {
	if m.CodeExistsFunc != nil {
		return m.CodeExistsFunc(ctx, tx, code)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.store {
		if p.TeacherCode == code {
			return true, nil
		}
	}
	return false, nil
}

// ---- Mock WebhookDeliveryRepository ----

type MockWebhookRepo struct {
	mu    sync.RWMutex
	store map[string]*model.WebhookDelivery // by orderID|status

	InsertUniqueFunc func(ctx context.Context, tx repository.Tx, d *model.WebhookDelivery) error
}

var _ repository.WebhookDeliveryRepository = (*MockWebhookRepo)(nil)

func NewMockWebhookRepo() *MockWebhookRepo {
	return &MockWebhookRepo{store: make(map[string]*model.WebhookDelivery)}
}

func deliveryKey(orderID string, status model.WebhookStatus) string {
	return orderID + "|" + string(status)
}

func (m *MockWebhookRepo) InsertUnique(ctx context.Context, tx repository.Tx, d *model.WebhookDelivery) error {
	if m.InsertUniqueFunc != nil {
		return m.InsertUniqueFunc(ctx, tx, d)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := deliveryKey(d.OrderID, d.Status)
	if _, ok := m.store[key]; ok {
		return domain.ErrDuplicateDelivery
	}
	cp := *d
	m.store[key] = &cp
	return nil
}

func (m *MockWebhookRepo) FindByOrderAndStatus(ctx context.Context, tx repository.Tx, orderID string, status model.WebhookStatus) (*model.WebhookDelivery, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.store[deliveryKey(orderID, status)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

// ---- Mock Notifier ----

type notifiedResult struct {
	OrderID string
	UserID  int64
	Outcome adapter.ActivationOutcome
}

type notifiedDiscrepancy struct {
	OrderID     string
	Kind        model.DiscrepancyKind
	Occurrences int
}

type MockNotifier struct {
	mu            sync.Mutex
	Results       []notifiedResult
	Discrepancies []notifiedDiscrepancy

	OnActivationResultFunc func(ctx context.Context, orderID string, userID int64, outcome adapter.ActivationOutcome) error
}

var _ adapter.Notifier = (*MockNotifier)(nil)

func (m *MockNotifier) OnActivationResult(ctx context.Context, orderID string, userID int64, outcome adapter.ActivationOutcome) error {
	if m.OnActivationResultFunc != nil {
		return m.OnActivationResultFunc(ctx, orderID, userID, outcome)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Results = append(m.Results, notifiedResult{OrderID: orderID, UserID: userID, Outcome: outcome})
	return nil
}

func (m *MockNotifier) OnPersistentDiscrepancy(ctx context.Context, orderID string, kind model.DiscrepancyKind, occurrences int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Discrepancies = append(m.Discrepancies, notifiedDiscrepancy{OrderID: orderID, Kind: kind, Occurrences: occurrences})
	return nil
}
