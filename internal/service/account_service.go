package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"affconsole/internal/ids"
	"affconsole/internal/models"
	"affconsole/internal/repository"
)

var (
	ErrPasswordRequired = errors.New("password is required")
	ErrNotAffiliator    = errors.New("user has no affiliator profile")
)

// AccountService manages affiliators with their login users, and the
// customers and payments recorded against them.
type AccountService struct {
	store  repository.Store
	hasher repository.PasswordHasher
	log    zerolog.Logger
}

func NewAccountService(store repository.Store, hasher repository.PasswordHasher, log zerolog.Logger) *AccountService {
	return &AccountService{store: store, hasher: hasher, log: log}
}

func (s *AccountService) ListAffiliators(ctx context.Context, p models.ListParams) ([]models.Affiliator, int, error) {
	return s.store.Affiliators.List(ctx, p.Normalize())
}

func (s *AccountService) GetAffiliator(ctx context.Context, uuid string) (models.Affiliator, error) {
	return s.store.Affiliators.Get(ctx, uuid)
}

// CreateAffiliator creates the login user and the affiliate profile. The
// user is removed again if the profile cannot be stored.
func (s *AccountService) CreateAffiliator(ctx context.Context, in models.AffiliatorInput) (models.Affiliator, error) {
	if in.Password == "" {
		return models.Affiliator{}, ErrPasswordRequired
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return models.Affiliator{}, err
	}

	user := models.User{
		ID:           ids.NewUUID(),
		Name:         strings.TrimSpace(in.Name),
		Username:     strings.TrimSpace(in.Username),
		Phone:        in.Phone,
		Role:         models.RoleAffiliator,
		PasswordHash: hash,
	}
	if err := s.store.Users.Create(ctx, user); err != nil {
		return models.Affiliator{}, err
	}

	aff := models.Affiliator{
		UUID:        ids.NewUUID(),
		UserID:      user.ID,
		Email:       in.Email,
		Address:     in.Address,
		BankName:    in.BankName,
		BankAccount: in.BankAccount,
		Status:      statusOrActive(in.Status),
	}
	if err := s.store.Affiliators.Create(ctx, aff); err != nil {
		if cleanupErr := s.store.Users.Delete(ctx, user.ID); cleanupErr != nil {
			s.log.Error().Err(cleanupErr).Str("user_id", user.ID).Msg("remove orphaned affiliator user")
		}
		return models.Affiliator{}, fmt.Errorf("create affiliator: %w", err)
	}
	s.log.Info().Str("affiliator", aff.UUID).Str("username", user.Username).Msg("affiliator created")
	return s.store.Affiliators.Get(ctx, aff.UUID)
}

// UpdateAffiliator replaces the profile and the login details. An empty
// password keeps the current one.
func (s *AccountService) UpdateAffiliator(ctx context.Context, uuid string, in models.AffiliatorInput) (models.Affiliator, error) {
	aff, err := s.store.Affiliators.Get(ctx, uuid)
	if err != nil {
		return models.Affiliator{}, err
	}
	user, err := s.store.Users.GetByID(ctx, aff.UserID)
	if err != nil {
		return models.Affiliator{}, err
	}

	user.Name = strings.TrimSpace(in.Name)
	user.Username = strings.TrimSpace(in.Username)
	user.Phone = in.Phone
	if in.Password != "" {
		if user.PasswordHash, err = s.hasher.Hash(in.Password); err != nil {
			return models.Affiliator{}, err
		}
	}
	if err := s.store.Users.Update(ctx, user); err != nil {
		return models.Affiliator{}, err
	}

	aff.Email = in.Email
	aff.Address = in.Address
	aff.BankName = in.BankName
	aff.BankAccount = in.BankAccount
	aff.Status = statusOrActive(in.Status)
	if err := s.store.Affiliators.Update(ctx, aff); err != nil {
		return models.Affiliator{}, err
	}
	return s.store.Affiliators.Get(ctx, uuid)
}

// DeleteAffiliator removes the login user; the profile, customers and
// payments go with it.
func (s *AccountService) DeleteAffiliator(ctx context.Context, uuid string) error {
	aff, err := s.store.Affiliators.Get(ctx, uuid)
	if err != nil {
		return err
	}
	return s.store.Users.Delete(ctx, aff.UserID)
}

func (s *AccountService) AffiliatorSummary(ctx context.Context, uuid string) (models.AffiliatorSummary, error) {
	return s.store.Affiliators.Summary(ctx, uuid)
}

func (s *AccountService) ListCustomers(ctx context.Context, p models.ListParams) ([]models.Customer, int, error) {
	return s.store.Customers.List(ctx, p.Normalize())
}

func (s *AccountService) GetCustomer(ctx context.Context, uuid string) (models.Customer, error) {
	return s.store.Customers.Get(ctx, uuid)
}

func (s *AccountService) CreateCustomer(ctx context.Context, in models.CustomerInput) (models.Customer, error) {
	c := customerFromInput(ids.NewUUID(), in)
	if err := s.store.Customers.Create(ctx, c); err != nil {
		return models.Customer{}, err
	}
	return s.store.Customers.Get(ctx, c.UUID)
}

func (s *AccountService) UpdateCustomer(ctx context.Context, uuid string, in models.CustomerInput) (models.Customer, error) {
	if err := s.store.Customers.Update(ctx, customerFromInput(uuid, in)); err != nil {
		return models.Customer{}, err
	}
	return s.store.Customers.Get(ctx, uuid)
}

func (s *AccountService) DeleteCustomer(ctx context.Context, uuid string) error {
	return s.store.Customers.Delete(ctx, uuid)
}

func (s *AccountService) ListPayments(ctx context.Context, p models.ListParams) ([]models.Payment, int, error) {
	return s.store.Payments.List(ctx, p.Normalize())
}

func (s *AccountService) GetPayment(ctx context.Context, uuid string) (models.Payment, error) {
	return s.store.Payments.Get(ctx, uuid)
}

func (s *AccountService) CreatePayment(ctx context.Context, in models.PaymentInput) (models.Payment, error) {
	p := paymentFromInput(ids.NewUUID(), in)
	if err := s.store.Payments.Create(ctx, p); err != nil {
		return models.Payment{}, err
	}
	return s.store.Payments.Get(ctx, p.UUID)
}

func (s *AccountService) UpdatePayment(ctx context.Context, uuid string, in models.PaymentInput) (models.Payment, error) {
	if err := s.store.Payments.Update(ctx, paymentFromInput(uuid, in)); err != nil {
		return models.Payment{}, err
	}
	return s.store.Payments.Get(ctx, uuid)
}

func (s *AccountService) DeletePayment(ctx context.Context, uuid string) error {
	return s.store.Payments.Delete(ctx, uuid)
}

// MyCustomers lists the customers of the affiliator linked to user.
func (s *AccountService) MyCustomers(ctx context.Context, user models.User) ([]models.Customer, error) {
	aff, err := s.affiliatorOf(ctx, user)
	if err != nil {
		return nil, err
	}
	return s.store.Customers.ListByAffiliator(ctx, aff.UUID)
}

// MyPayments lists the payments made to the affiliator linked to user.
func (s *AccountService) MyPayments(ctx context.Context, user models.User) ([]models.Payment, error) {
	aff, err := s.affiliatorOf(ctx, user)
	if err != nil {
		return nil, err
	}
	return s.store.Payments.ListByAffiliator(ctx, aff.UUID)
}

func (s *AccountService) affiliatorOf(ctx context.Context, user models.User) (models.Affiliator, error) {
	aff, err := s.store.Affiliators.GetByUserID(ctx, user.ID)
	if errors.Is(err, repository.ErrAffiliatorNotFound) {
		return models.Affiliator{}, ErrNotAffiliator
	}
	return aff, err
}

func customerFromInput(uuid string, in models.CustomerInput) models.Customer {
	return models.Customer{
		UUID:           uuid,
		AffiliatorUUID: in.AffiliatorUUID,
		Name:           strings.TrimSpace(in.Name),
		Phone:          in.Phone,
		Address:        in.Address,
		Package:        in.Package,
		MonthlyFee:     in.MonthlyFee,
		Status:         statusOrActive(in.Status),
		InstalledAt:    in.InstalledAt,
	}
}

func paymentFromInput(uuid string, in models.PaymentInput) models.Payment {
	return models.Payment{
		UUID:           uuid,
		AffiliatorUUID: in.AffiliatorUUID,
		Amount:         in.Amount,
		PaymentDate:    in.PaymentDate,
		Method:         in.Method,
		ProofImage:     in.ProofImage,
		Notes:          in.Notes,
	}
}

func statusOrActive(status string) string {
	if status == "" {
		return models.StatusActive
	}
	return status
}
