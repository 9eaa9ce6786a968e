package service

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"farm-store/internal/docstore"
	"farm-store/internal/models"
	"farm-store/internal/store"
)

// memRepo is an in-memory OrderRepository and UserRepository.
type memRepo struct {
	mu     sync.Mutex
	orders map[int64]*models.Order
	users  map[int64]*models.User
	nextID int64
	clock  time.Time
}

func newMemRepo() *memRepo {
	return &memRepo{
		orders: map[int64]*models.Order{},
		users:  map[int64]*models.User{},
		clock:  time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (r *memRepo) tick() time.Time {
	r.clock = r.clock.Add(time.Minute)
	return r.clock
}

func (r *memRepo) CreateOrder(_ context.Context, o *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	o.ID = r.nextID
	o.CreatedAt = r.tick()
	o.UpdatedAt = o.CreatedAt
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *memRepo) GetOrderByID(_ context.Context, id int64) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *memRepo) UpdateOrderStatus(_ context.Context, id int64, status models.OrderStatus) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = r.tick()
	cp := *o
	return &cp, nil
}

func (r *memRepo) UpdatePaymentOutcome(_ context.Context, id int64, ps models.PaymentStatus, status models.OrderStatus) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.PaymentStatus == models.PaymentStatusPaid {
		return nil, store.ErrNotFound
	}
	o.PaymentStatus = ps
	if status != "" {
		o.Status = status
	}
	o.UpdatedAt = r.tick()
	cp := *o
	return &cp, nil
}

func (r *memRepo) DeleteOrder(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.orders, id)
	return nil
}

func (r *memRepo) ListOrders(_ context.Context, f models.OrderFilter) ([]models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Order
	for _, o := range r.orders {
		if f.UserID != nil && (o.UserID == nil || *o.UserID != *f.UserID) {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *memRepo) GetDashboardTotals(_ context.Context) (*models.DashboardTotals, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := &models.DashboardTotals{TotalOrders: len(r.orders), TotalUsers: len(r.users)}
	for _, o := range r.orders {
		t.TotalRevenue += o.TotalPrice
	}
	return t, nil
}

func (r *memRepo) CreateUser(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return store.ErrDuplicate
		}
	}
	r.nextID++
	u.ID = r.nextID
	u.CreatedAt = r.tick()
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memRepo) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memRepo) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r *memRepo) UpdateUserPassword(_ context.Context, id int64, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (r *memRepo) ListUsers(_ context.Context) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.User
	for _, u := range r.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// recordingNotifier counts notifications per kind.
type recordingNotifier struct {
	mu            sync.Mutex
	created       []int64
	statusChanged []models.OrderStatus
	paid          []int64
}

func (n *recordingNotifier) NotifyOrderCreated(_ context.Context, o *models.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, o.ID)
}

func (n *recordingNotifier) NotifyStatusChanged(_ context.Context, o *models.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statusChanged = append(n.statusChanged, o.Status)
}

func (n *recordingNotifier) NotifyPaymentReceived(_ context.Context, o *models.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paid = append(n.paid, o.ID)
}

// memDocs is an in-memory docstore.Store; failGet forces read errors.
type memDocs struct {
	mu      sync.Mutex
	docs    map[string][]byte
	failGet error
}

func newMemDocs() *memDocs {
	return &memDocs{docs: map[string][]byte{}}
}

func (m *memDocs) Get(_ context.Context, key string, dst interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet != nil {
		return m.failGet
	}
	raw, ok := m.docs[key]
	if !ok {
		return docstore.ErrNotFound
	}
	return json.Unmarshal(raw, dst)
}

func (m *memDocs) Put(_ context.Context, key string, v interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.docs[key] = raw
	return nil
}

type resetMail struct {
	to, link string
}

type fakeResetMailer struct {
	sent []resetMail
}

func (f *fakeResetMailer) SendPasswordReset(_ context.Context, to, link string, _ time.Duration) error {
	f.sent = append(f.sent, resetMail{to: to, link: link})
	return nil
}
