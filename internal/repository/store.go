// Package repository persists users, refresh sessions and the affiliate
// program records. Every store has an in-memory and a PostgreSQL
// implementation behind the same interfaces.
package repository

import (
	"context"
	"errors"
	"time"

	"affconsole/internal/models"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrSessionNotFound    = errors.New("session not found")
	ErrAffiliatorNotFound = errors.New("affiliator not found")
	ErrCustomerNotFound   = errors.New("customer not found")
	ErrPaymentNotFound    = errors.New("payment not found")
)

type UserStore interface {
	Create(ctx context.Context, user models.User) error
	GetByID(ctx context.Context, id string) (models.User, error)
	FindByUsername(ctx context.Context, username string) (models.User, error)
	Update(ctx context.Context, user models.User) error
	Delete(ctx context.Context, id string) error
}

type SessionStore interface {
	Create(ctx context.Context, session models.Session) error
	GetByID(ctx context.Context, id string) (models.Session, error)
	FindByRefreshHash(ctx context.Context, hash []byte) (models.Session, error)
	DeleteByID(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// AffiliatorStore keeps the affiliate profile. Name, username and phone
// live on the linked user and are joined in on read.
type AffiliatorStore interface {
	List(ctx context.Context, p models.ListParams) ([]models.Affiliator, int, error)
	Get(ctx context.Context, uuid string) (models.Affiliator, error)
	GetByUserID(ctx context.Context, userID string) (models.Affiliator, error)
	Create(ctx context.Context, a models.Affiliator) error
	Update(ctx context.Context, a models.Affiliator) error
	Delete(ctx context.Context, uuid string) error
	Summary(ctx context.Context, uuid string) (models.AffiliatorSummary, error)
}

type CustomerStore interface {
	List(ctx context.Context, p models.ListParams) ([]models.Customer, int, error)
	ListByAffiliator(ctx context.Context, affiliatorUUID string) ([]models.Customer, error)
	Get(ctx context.Context, uuid string) (models.Customer, error)
	Create(ctx context.Context, c models.Customer) error
	Update(ctx context.Context, c models.Customer) error
	Delete(ctx context.Context, uuid string) error
}

type PaymentStore interface {
	List(ctx context.Context, p models.ListParams) ([]models.Payment, int, error)
	ListByAffiliator(ctx context.Context, affiliatorUUID string) ([]models.Payment, error)
	Get(ctx context.Context, uuid string) (models.Payment, error)
	Create(ctx context.Context, p models.Payment) error
	Update(ctx context.Context, p models.Payment) error
	Delete(ctx context.Context, uuid string) error
}

// Store bundles the stores one backend provides.
type Store struct {
	Users       UserStore
	Sessions    SessionStore
	Affiliators AffiliatorStore
	Customers   CustomerStore
	Payments    PaymentStore
}
