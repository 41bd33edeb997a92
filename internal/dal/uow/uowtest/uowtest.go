// Package uowtest provides an in-memory unit of work for service tests.
package uowtest

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	iorder "github.com/corray333/backend-labs/checkout/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/backend-labs/checkout/internal/dal/interfaces/ioutboxrepo"
	"github.com/corray333/backend-labs/checkout/internal/dal/interfaces/iuow"
	"github.com/corray333/backend-labs/checkout/internal/service/models/order"
	"github.com/corray333/backend-labs/checkout/internal/service/models/outbox"
)

// Store holds orders and outbox messages. Writes made inside a unit of work become
// visible on Commit; payment updates are checked against the committed version again
// at that point.
type Store struct {
	mu    sync.Mutex
	state *state

	// BeforeUpdatePayment, when set, runs before every payment update and can fail it.
	BeforeUpdatePayment func(u order.PaymentUpdate) error
	// FailCommit, when set, is returned by Commit instead of applying the writes.
	FailCommit error

	Commits   int
	Rollbacks int
}

func NewStore() *Store {
	return &Store{state: newState()}
}

// Factory returns a unit of work factory bound to the store.
func (s *Store) Factory() iuow.Factory {
	return func() iuow.IUnitOfWork {
		return &unitOfWork{store: s}
	}
}

// Orders returns a non transactional order repository.
func (s *Store) Orders() iorder.IOrderRepository {
	return &orderRepo{store: s, with: s.locked}
}

// OutboxRepo returns a non transactional outbox repository.
func (s *Store) OutboxRepo() ioutboxrepo.IOutboxRepository {
	return &outboxRepo{with: s.locked}
}

// PutOrder stores o as committed state.
func (s *Store) PutOrder(o order.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.orders[o.Number] = cloneOrder(o)
}

// Order returns the committed order with the given number.
func (s *Store) Order(number string) (order.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.state.orders[number]

	return cloneOrder(o), ok
}

// Messages returns the committed outbox messages in insertion order.
func (s *Store) Messages() []outbox.OutboxMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.state.outbox)
}

func (s *Store) locked(fn func(*state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return fn(s.state)
}

type state struct {
	orders map[string]order.Order
	outbox []outbox.OutboxMessage
	nextID int64
	// versions records the version each touched order was read at, for commit checks.
	versions map[string]int64
}

func newState() *state {
	return &state{orders: map[string]order.Order{}, nextID: 1, versions: map[string]int64{}}
}

func (st *state) clone() *state {
	c := newState()
	for k, v := range st.orders {
		c.orders[k] = cloneOrder(v)
	}
	c.outbox = slices.Clone(st.outbox)
	c.nextID = st.nextID

	return c
}

func cloneOrder(o order.Order) order.Order {
	o.Items = slices.Clone(o.Items)
	if o.PaidAt != nil {
		t := *o.PaidAt
		o.PaidAt = &t
	}

	return o
}

type unitOfWork struct {
	store *Store
	tx    *state
	// base is the committed outbox length at Begin.
	base int
	done bool
}

func (u *unitOfWork) Begin(context.Context) error {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	u.tx = u.store.state.clone()
	u.base = len(u.tx.outbox)

	return nil
}

func (u *unitOfWork) Commit() error {
	if u.tx == nil || u.done {
		return nil
	}
	u.done = true

	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	if u.store.FailCommit != nil {
		return u.store.FailCommit
	}

	for number, readVersion := range u.tx.versions {
		if u.store.state.orders[number].Version != readVersion {
			return order.ErrVersionConflict
		}
	}

	for number := range u.tx.versions {
		u.store.state.orders[number] = u.tx.orders[number]
	}
	for _, o := range u.tx.orders {
		if _, ok := u.store.state.orders[o.Number]; !ok {
			u.store.state.orders[o.Number] = o
		}
	}
	for _, msg := range u.tx.outbox[u.base:] {
		if dedupTaken(u.store.state.outbox, msg.DedupKey) {
			continue
		}
		msg.ID = u.store.state.nextID
		u.store.state.nextID++
		u.store.state.outbox = append(u.store.state.outbox, msg)
	}
	u.store.Commits++

	return nil
}

func (u *unitOfWork) Rollback() error {
	if u.tx == nil || u.done {
		return nil
	}
	u.done = true
	u.store.mu.Lock()
	u.store.Rollbacks++
	u.store.mu.Unlock()

	return nil
}

func (u *unitOfWork) OrderRepository() iorder.IOrderRepository {
	if u.tx == nil {
		return u.store.Orders()
	}

	return &orderRepo{store: u.store, with: u.inTx}
}

func (u *unitOfWork) OutboxRepository() ioutboxrepo.IOutboxRepository {
	if u.tx == nil {
		return u.store.OutboxRepo()
	}

	return &outboxRepo{with: u.inTx}
}

func (u *unitOfWork) inTx(fn func(*state) error) error {
	return fn(u.tx)
}

type orderRepo struct {
	store *Store
	with  func(func(*state) error) error
}

func (r *orderRepo) Insert(_ context.Context, o order.Order) error {
	return r.with(func(st *state) error {
		if _, ok := st.orders[o.Number]; ok {
			return order.ErrDuplicateNumber
		}
		st.orders[o.Number] = cloneOrder(o)

		return nil
	})
}

func (r *orderRepo) GetByNumber(_ context.Context, number string) (order.Order, error) {
	var o order.Order
	err := r.with(func(st *state) error {
		found, ok := st.orders[number]
		if !ok {
			return order.ErrNotFound
		}
		o = cloneOrder(found)

		return nil
	})

	return o, err
}

func (r *orderRepo) Query(_ context.Context, filter *order.QueryOrdersModel) ([]order.Order, error) {
	var out []order.Order
	err := r.with(func(st *state) error {
		for _, o := range st.orders {
			if len(filter.Numbers) > 0 && !slices.Contains(filter.Numbers, o.Number) {
				continue
			}
			if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, o.Status) {
				continue
			}
			if len(filter.FulfillmentStatuses) > 0 &&
				!slices.Contains(filter.FulfillmentStatuses, o.FulfillmentStatus) {
				continue
			}
			if filter.CustomerEmail != "" && !strings.EqualFold(filter.CustomerEmail, o.Customer.Email) {
				continue
			}
			out = append(out, cloneOrder(o))
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Number > out[j].Number
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []order.Order{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	if out == nil {
		out = []order.Order{}
	}

	return out, nil
}

func (r *orderRepo) UpdatePayment(_ context.Context, u order.PaymentUpdate) error {
	if hook := r.hook(); hook != nil {
		if err := hook(u); err != nil {
			return err
		}
	}

	return r.with(func(st *state) error {
		for number, o := range st.orders {
			if o.ID != u.OrderID {
				continue
			}
			if o.Version != u.ExpectedVersion {
				return order.ErrVersionConflict
			}
			if _, touched := st.versions[number]; !touched {
				st.versions[number] = o.Version
			}
			st.orders[number] = u.Apply(o)

			return nil
		}

		return order.ErrVersionConflict
	})
}

func (r *orderRepo) UpdateFulfillment(
	_ context.Context,
	number string,
	status order.FulfillmentStatus,
	updatedAt time.Time,
) error {
	return r.with(func(st *state) error {
		o, ok := st.orders[number]
		if !ok {
			return order.ErrNotFound
		}
		o.FulfillmentStatus = status
		o.UpdatedAt = updatedAt
		st.orders[number] = o

		return nil
	})
}

func (r *orderRepo) hook() func(order.PaymentUpdate) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	return r.store.BeforeUpdatePayment
}

type outboxRepo struct {
	with func(func(*state) error) error
}

func (r *outboxRepo) Insert(_ context.Context, msg outbox.OutboxMessage) (bool, error) {
	inserted := false
	err := r.with(func(st *state) error {
		if dedupTaken(st.outbox, msg.DedupKey) {
			return nil
		}
		msg.ID = st.nextID
		st.nextID++
		msg.Payload = slices.Clone(msg.Payload)
		st.outbox = append(st.outbox, msg)
		inserted = true

		return nil
	})

	return inserted, err
}

func (r *outboxRepo) GetPendingMessages(_ context.Context, limit int) ([]outbox.OutboxMessage, error) {
	now := time.Now()

	return r.filter(limit, func(m outbox.OutboxMessage) bool {
		return m.ProcessedAt == nil && !m.NextRetryAt.After(now) && m.RetryCount < m.MaxRetries
	})
}

func (r *outboxRepo) ListExhausted(_ context.Context, limit int) ([]outbox.OutboxMessage, error) {
	return r.filter(limit, func(m outbox.OutboxMessage) bool {
		return m.ProcessedAt == nil && m.RetryCount >= m.MaxRetries
	})
}

func (r *outboxRepo) MarkProcessed(_ context.Context, id int64, processedAt time.Time) error {
	return r.update(id, func(m *outbox.OutboxMessage) {
		m.ProcessedAt = &processedAt
		m.UpdatedAt = processedAt
		m.LastError = ""
	})
}

func (r *outboxRepo) UpdateRetry(
	_ context.Context,
	id int64,
	retryCount int,
	lastError string,
	nextRetryAt time.Time,
) error {
	return r.update(id, func(m *outbox.OutboxMessage) {
		m.RetryCount = retryCount
		m.LastError = lastError
		m.NextRetryAt = nextRetryAt
		m.UpdatedAt = time.Now()
	})
}

func (r *outboxRepo) filter(limit int, keep func(outbox.OutboxMessage) bool) ([]outbox.OutboxMessage, error) {
	var out []outbox.OutboxMessage
	err := r.with(func(st *state) error {
		for _, m := range st.outbox {
			if keep(m) {
				out = append(out, m)
			}
			if limit > 0 && len(out) == limit {
				break
			}
		}

		return nil
	})

	return out, err
}

func (r *outboxRepo) update(id int64, fn func(*outbox.OutboxMessage)) error {
	return r.with(func(st *state) error {
		for i := range st.outbox {
			if st.outbox[i].ID == id {
				fn(&st.outbox[i])

				return nil
			}
		}

		return nil
	})
}

func dedupTaken(msgs []outbox.OutboxMessage, key string) bool {
	return slices.ContainsFunc(msgs, func(m outbox.OutboxMessage) bool { return m.DedupKey == key })
}
