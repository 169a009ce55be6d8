package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"affconsole/internal/ids"
	"affconsole/internal/models"
)

type PasswordHasher interface {
	Hash(password string) ([]byte, error)
}

type seedAccount struct {
	name, username, password, phone string
	role                            models.Role
}

var seedAccounts = []seedAccount{
	{name: "Administrator", username: "admin", password: "admin123", phone: "081100000001", role: models.RoleAdmin},
	{name: "Sari Wulandari", username: "affiliator", password: "affiliator123", phone: "081200000002", role: models.RoleAffiliator},
}

// Seed creates the default accounts and, for a fresh affiliator, a small
// roster of customers and payments. Existing usernames are left untouched.
func Seed(ctx context.Context, store Store, hasher PasswordHasher) error {
	for _, acc := range seedAccounts {
		_, err := store.Users.FindByUsername(ctx, acc.username)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrUserNotFound) {
			return fmt.Errorf("seed %s: %w", acc.username, err)
		}

		hash, err := hasher.Hash(acc.password)
		if err != nil {
			return fmt.Errorf("seed %s: %w", acc.username, err)
		}
		user := models.User{
			ID:           ids.NewUUID(),
			Name:         acc.name,
			Username:     acc.username,
			Phone:        acc.phone,
			Role:         acc.role,
			PasswordHash: hash,
		}
		if err := store.Users.Create(ctx, user); err != nil {
			return fmt.Errorf("seed %s: %w", acc.username, err)
		}
		if acc.role == models.RoleAffiliator {
			if err := seedAffiliator(ctx, store, user); err != nil {
				return fmt.Errorf("seed %s: %w", acc.username, err)
			}
		}
	}
	return nil
}

func seedAffiliator(ctx context.Context, store Store, user models.User) error {
	joined := time.Now().UTC().AddDate(0, -3, 0).Truncate(24 * time.Hour)
	aff := models.Affiliator{
		UUID:        ids.NewUUID(),
		UserID:      user.ID,
		Email:       "sari@example.com",
		Address:     "Jl. Merdeka No. 10, Bandung",
		BankName:    "BCA",
		BankAccount: "1234567890",
		Status:      models.StatusActive,
		JoinDate:    joined,
	}
	if err := store.Affiliators.Create(ctx, aff); err != nil {
		return err
	}

	customers := []models.Customer{
		{Name: "Budi Santoso", Phone: "081311110001", Address: "Jl. Kenanga 3, Sukamaju", Package: "Home 20 Mbps", MonthlyFee: 250000},
		{Name: "Rina Marlina", Phone: "081311110002", Address: "Perum Griya Asri Blok C2", Package: "Home 30 Mbps", MonthlyFee: 300000},
		{Name: "Agus Salim", Phone: "081311110003", Address: "Desa Sukamaju RT 02", Package: "Home 10 Mbps", MonthlyFee: 175000},
	}
	for i, c := range customers {
		c.UUID = ids.NewUUID()
		c.AffiliatorUUID = aff.UUID
		c.Status = models.StatusActive
		c.InstalledAt = joined.AddDate(0, 0, 7*(i+1))
		if err := store.Customers.Create(ctx, c); err != nil {
			return err
		}
	}

	payments := []models.Payment{
		{Amount: 150000, Method: "transfer", Notes: "Komisi bulan pertama", PaymentDate: joined.AddDate(0, 1, 0)},
		{Amount: 225000, Method: "cash", Notes: "Komisi bulan kedua", PaymentDate: joined.AddDate(0, 2, 0)},
	}
	for _, p := range payments {
		p.UUID = ids.NewUUID()
		p.AffiliatorUUID = aff.UUID
		if err := store.Payments.Create(ctx, p); err != nil {
			return err
		}
	}
	return nil
}
