package repository

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"affconsole/internal/models"
)

// Memory keeps every record in process memory. Deleting an affiliator
// removes its customers and payments, like the foreign keys of the SQL
// schema.
type Memory struct {
	mu          sync.RWMutex
	users       map[string]models.User
	sessions    map[string]models.Session
	affiliators map[string]models.Affiliator
	customers   map[string]models.Customer
	payments    map[string]models.Payment
	now         func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		users:       make(map[string]models.User),
		sessions:    make(map[string]models.Session),
		affiliators: make(map[string]models.Affiliator),
		customers:   make(map[string]models.Customer),
		payments:    make(map[string]models.Payment),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (m *Memory) Store() Store {
	return Store{
		Users:       memUsers{m},
		Sessions:    memSessions{m},
		Affiliators: memAffiliators{m},
		Customers:   memCustomers{m},
		Payments:    memPayments{m},
	}
}

type memUsers struct{ m *Memory }

func (s memUsers) Create(_ context.Context, user models.User) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if s.m.usernameTakenLocked(user.Username, user.ID) {
		return ErrUsernameTaken
	}
	now := s.m.now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	s.m.users[user.ID] = user
	return nil
}

func (s memUsers) GetByID(_ context.Context, id string) (models.User, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	user, ok := s.m.users[id]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return user, nil
}

func (s memUsers) FindByUsername(_ context.Context, username string) (models.User, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	for _, user := range s.m.users {
		if strings.EqualFold(user.Username, username) {
			return user, nil
		}
	}
	return models.User{}, ErrUserNotFound
}

func (s memUsers) Update(_ context.Context, user models.User) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	old, ok := s.m.users[user.ID]
	if !ok {
		return ErrUserNotFound
	}
	if s.m.usernameTakenLocked(user.Username, user.ID) {
		return ErrUsernameTaken
	}
	user.CreatedAt = old.CreatedAt
	user.UpdatedAt = s.m.now()
	s.m.users[user.ID] = user
	return nil
}

func (s memUsers) Delete(_ context.Context, id string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.users[id]; !ok {
		return ErrUserNotFound
	}
	delete(s.m.users, id)
	for sid, session := range s.m.sessions {
		if session.UserID == id {
			delete(s.m.sessions, sid)
		}
	}
	for uuid, a := range s.m.affiliators {
		if a.UserID == id {
			s.m.deleteAffiliatorLocked(uuid)
		}
	}
	return nil
}

func (m *Memory) usernameTakenLocked(username, exceptID string) bool {
	for id, user := range m.users {
		if id != exceptID && strings.EqualFold(user.Username, username) {
			return true
		}
	}
	return false
}

type memSessions struct{ m *Memory }

func (s memSessions) Create(_ context.Context, session models.Session) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = s.m.now()
	}
	s.m.sessions[session.ID] = session
	return nil
}

func (s memSessions) GetByID(_ context.Context, id string) (models.Session, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	session, ok := s.m.sessions[id]
	if !ok {
		return models.Session{}, ErrSessionNotFound
	}
	return session, nil
}

func (s memSessions) FindByRefreshHash(_ context.Context, hash []byte) (models.Session, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	for _, session := range s.m.sessions {
		if bytes.Equal(session.RefreshTokenHash, hash) {
			return session, nil
		}
	}
	return models.Session{}, ErrSessionNotFound
}

func (s memSessions) DeleteByID(_ context.Context, id string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(s.m.sessions, id)
	return nil
}

func (s memSessions) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var n int64
	for id, session := range s.m.sessions {
		if !session.ExpiresAt.After(now) {
			delete(s.m.sessions, id)
			n++
		}
	}
	return n, nil
}

type memAffiliators struct{ m *Memory }

func (s memAffiliators) List(_ context.Context, p models.ListParams) ([]models.Affiliator, int, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	items := make([]models.Affiliator, 0, len(s.m.affiliators))
	for _, a := range s.m.affiliators {
		a = s.m.joinAffiliatorLocked(a)
		if containsAny(p.Search, a.Name, a.Username, a.Phone, a.Email, a.Address) {
			items = append(items, a)
		}
	}
	sortNewest(items, func(a models.Affiliator) (time.Time, string) { return a.CreatedAt, a.UUID })
	return pageOf(items, p)
}

func (s memAffiliators) Get(_ context.Context, uuid string) (models.Affiliator, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	a, ok := s.m.affiliators[uuid]
	if !ok {
		return models.Affiliator{}, ErrAffiliatorNotFound
	}
	return s.m.joinAffiliatorLocked(a), nil
}

func (s memAffiliators) GetByUserID(_ context.Context, userID string) (models.Affiliator, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	for _, a := range s.m.affiliators {
		if a.UserID == userID {
			return s.m.joinAffiliatorLocked(a), nil
		}
	}
	return models.Affiliator{}, ErrAffiliatorNotFound
}

func (s memAffiliators) Create(_ context.Context, a models.Affiliator) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.users[a.UserID]; !ok {
		return ErrUserNotFound
	}
	now := s.m.now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.JoinDate.IsZero() {
		a.JoinDate = a.CreatedAt
	}
	a.UpdatedAt = now
	s.m.affiliators[a.UUID] = a
	return nil
}

func (s memAffiliators) Update(_ context.Context, a models.Affiliator) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	old, ok := s.m.affiliators[a.UUID]
	if !ok {
		return ErrAffiliatorNotFound
	}
	a.UserID = old.UserID
	a.CreatedAt = old.CreatedAt
	if a.JoinDate.IsZero() {
		a.JoinDate = old.JoinDate
	}
	a.UpdatedAt = s.m.now()
	s.m.affiliators[a.UUID] = a
	return nil
}

func (s memAffiliators) Delete(_ context.Context, uuid string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.affiliators[uuid]; !ok {
		return ErrAffiliatorNotFound
	}
	s.m.deleteAffiliatorLocked(uuid)
	return nil
}

func (s memAffiliators) Summary(_ context.Context, uuid string) (models.AffiliatorSummary, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	a, ok := s.m.affiliators[uuid]
	if !ok {
		return models.AffiliatorSummary{}, ErrAffiliatorNotFound
	}
	var summary models.AffiliatorSummary
	for _, c := range s.m.customers {
		if c.AffiliatorUUID == uuid {
			summary.TotalCustomers++
		}
	}
	for _, p := range s.m.payments {
		if p.AffiliatorUUID == uuid && !p.PaymentDate.Before(a.JoinDate) {
			summary.TotalPaymentsSinceJoin += p.Amount
		}
	}
	return summary, nil
}

func (m *Memory) joinAffiliatorLocked(a models.Affiliator) models.Affiliator {
	if user, ok := m.users[a.UserID]; ok {
		a.Name = user.Name
		a.Username = user.Username
		a.Phone = user.Phone
	}
	return a
}

func (m *Memory) deleteAffiliatorLocked(uuid string) {
	delete(m.affiliators, uuid)
	for id, c := range m.customers {
		if c.AffiliatorUUID == uuid {
			delete(m.customers, id)
		}
	}
	for id, p := range m.payments {
		if p.AffiliatorUUID == uuid {
			delete(m.payments, id)
		}
	}
}

func (m *Memory) affiliatorNameLocked(uuid string) string {
	if a, ok := m.affiliators[uuid]; ok {
		return m.joinAffiliatorLocked(a).Name
	}
	return ""
}

type memCustomers struct{ m *Memory }

func (s memCustomers) List(_ context.Context, p models.ListParams) ([]models.Customer, int, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	items := make([]models.Customer, 0, len(s.m.customers))
	for _, c := range s.m.customers {
		c.AffiliatorName = s.m.affiliatorNameLocked(c.AffiliatorUUID)
		if containsAny(p.Search, c.Name, c.Phone, c.Address, c.Package, c.AffiliatorName) {
			items = append(items, c)
		}
	}
	sortNewest(items, func(c models.Customer) (time.Time, string) { return c.CreatedAt, c.UUID })
	return pageOf(items, p)
}

func (s memCustomers) ListByAffiliator(_ context.Context, affiliatorUUID string) ([]models.Customer, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	items := []models.Customer{}
	for _, c := range s.m.customers {
		if c.AffiliatorUUID == affiliatorUUID {
			c.AffiliatorName = s.m.affiliatorNameLocked(c.AffiliatorUUID)
			items = append(items, c)
		}
	}
	sortNewest(items, func(c models.Customer) (time.Time, string) { return c.CreatedAt, c.UUID })
	return items, nil
}

func (s memCustomers) Get(_ context.Context, uuid string) (models.Customer, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	c, ok := s.m.customers[uuid]
	if !ok {
		return models.Customer{}, ErrCustomerNotFound
	}
	c.AffiliatorName = s.m.affiliatorNameLocked(c.AffiliatorUUID)
	return c, nil
}

func (s memCustomers) Create(_ context.Context, c models.Customer) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.affiliators[c.AffiliatorUUID]; !ok {
		return ErrAffiliatorNotFound
	}
	now := s.m.now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	c.AffiliatorName = ""
	s.m.customers[c.UUID] = c
	return nil
}

func (s memCustomers) Update(_ context.Context, c models.Customer) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	old, ok := s.m.customers[c.UUID]
	if !ok {
		return ErrCustomerNotFound
	}
	if _, ok := s.m.affiliators[c.AffiliatorUUID]; !ok {
		return ErrAffiliatorNotFound
	}
	c.CreatedAt = old.CreatedAt
	c.UpdatedAt = s.m.now()
	c.AffiliatorName = ""
	s.m.customers[c.UUID] = c
	return nil
}

func (s memCustomers) Delete(_ context.Context, uuid string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.customers[uuid]; !ok {
		return ErrCustomerNotFound
	}
	delete(s.m.customers, uuid)
	return nil
}

type memPayments struct{ m *Memory }

func (s memPayments) List(_ context.Context, p models.ListParams) ([]models.Payment, int, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	items := make([]models.Payment, 0, len(s.m.payments))
	for _, pay := range s.m.payments {
		pay.AffiliatorName = s.m.affiliatorNameLocked(pay.AffiliatorUUID)
		if containsAny(p.Search, pay.AffiliatorName, pay.Method, pay.Notes) {
			items = append(items, pay)
		}
	}
	sortNewest(items, func(p models.Payment) (time.Time, string) { return p.PaymentDate, p.UUID })
	return pageOf(items, p)
}

func (s memPayments) ListByAffiliator(_ context.Context, affiliatorUUID string) ([]models.Payment, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	items := []models.Payment{}
	for _, pay := range s.m.payments {
		if pay.AffiliatorUUID == affiliatorUUID {
			pay.AffiliatorName = s.m.affiliatorNameLocked(pay.AffiliatorUUID)
			items = append(items, pay)
		}
	}
	sortNewest(items, func(p models.Payment) (time.Time, string) { return p.PaymentDate, p.UUID })
	return items, nil
}

func (s memPayments) Get(_ context.Context, uuid string) (models.Payment, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	pay, ok := s.m.payments[uuid]
	if !ok {
		return models.Payment{}, ErrPaymentNotFound
	}
	pay.AffiliatorName = s.m.affiliatorNameLocked(pay.AffiliatorUUID)
	return pay, nil
}

func (s memPayments) Create(_ context.Context, pay models.Payment) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.affiliators[pay.AffiliatorUUID]; !ok {
		return ErrAffiliatorNotFound
	}
	now := s.m.now()
	if pay.CreatedAt.IsZero() {
		pay.CreatedAt = now
	}
	pay.UpdatedAt = now
	pay.AffiliatorName = ""
	s.m.payments[pay.UUID] = pay
	return nil
}

func (s memPayments) Update(_ context.Context, pay models.Payment) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	old, ok := s.m.payments[pay.UUID]
	if !ok {
		return ErrPaymentNotFound
	}
	if _, ok := s.m.affiliators[pay.AffiliatorUUID]; !ok {
		return ErrAffiliatorNotFound
	}
	pay.CreatedAt = old.CreatedAt
	pay.UpdatedAt = s.m.now()
	pay.AffiliatorName = ""
	s.m.payments[pay.UUID] = pay
	return nil
}

func (s memPayments) Delete(_ context.Context, uuid string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.payments[uuid]; !ok {
		return ErrPaymentNotFound
	}
	delete(s.m.payments, uuid)
	return nil
}

func containsAny(term string, fields ...string) bool {
	if term == "" {
		return true
	}
	term = strings.ToLower(term)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

func sortNewest[T any](items []T, key func(T) (time.Time, string)) {
	sort.Slice(items, func(i, j int) bool {
		ti, idi := key(items[i])
		tj, idj := key(items[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return idi < idj
	})
}

func pageOf[T any](items []T, p models.ListParams) ([]T, int, error) {
	p = p.Normalize()
	total := len(items)
	start := p.Offset()
	if start >= total {
		return []T{}, total, nil
	}
	end := min(start+p.Limit, total)
	return items[start:end], total, nil
}
