package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"affconsole/internal/models"
)

const uniqueViolation = "23505"

// NewPostgres returns the stores backed by pool. The schema is created by
// database.Migrate.
func NewPostgres(pool *pgxpool.Pool) Store {
	return Store{
		Users:       &pgUsers{pool: pool},
		Sessions:    &pgSessions{pool: pool},
		Affiliators: &pgAffiliators{pool: pool},
		Customers:   &pgCustomers{pool: pool},
		Payments:    &pgPayments{pool: pool},
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func notFound(err, sentinel error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return sentinel
	}
	return err
}

func affected(tag pgconn.CommandTag, err, sentinel error) error {
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return sentinel
	}
	return nil
}

type pgUsers struct {
	pool *pgxpool.Pool
}

const userColumns = `id, name, username, phone, role, password_hash, created_at, updated_at`

func scanUser(row pgx.Row) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Name, &u.Username, &u.Phone, &u.Role, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (r *pgUsers) Create(ctx context.Context, user models.User) error {
	const query = `
		INSERT INTO users (id, name, username, phone, role, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
	`
	_, err := r.pool.Exec(ctx, query, user.ID, user.Name, user.Username, user.Phone, user.Role, user.PasswordHash)
	if isUniqueViolation(err) {
		return ErrUsernameTaken
	}
	return err
}

func (r *pgUsers) GetByID(ctx context.Context, id string) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	return user, notFound(err, ErrUserNotFound)
}

func (r *pgUsers) FindByUsername(ctx context.Context, username string) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(username) = lower($1)`
	user, err := scanUser(r.pool.QueryRow(ctx, query, username))
	return user, notFound(err, ErrUserNotFound)
}

func (r *pgUsers) Update(ctx context.Context, user models.User) error {
	const query = `
		UPDATE users
		SET name = $2, username = $3, phone = $4, role = $5, password_hash = $6, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, user.ID, user.Name, user.Username, user.Phone, user.Role, user.PasswordHash)
	if isUniqueViolation(err) {
		return ErrUsernameTaken
	}
	return affected(tag, err, ErrUserNotFound)
}

func (r *pgUsers) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	return affected(tag, err, ErrUserNotFound)
}

type pgSessions struct {
	pool *pgxpool.Pool
}

func scanSession(row pgx.Row) (models.Session, error) {
	var s models.Session
	err := row.Scan(&s.ID, &s.UserID, &s.RefreshTokenHash, &s.CreatedAt, &s.ExpiresAt)
	return s, err
}

func (r *pgSessions) Create(ctx context.Context, session models.Session) error {
	const query = `
		INSERT INTO user_sessions (id, user_id, refresh_token_hash, created_at, expires_at)
		VALUES ($1, $2, $3, NOW(), $4)
	`
	_, err := r.pool.Exec(ctx, query, session.ID, session.UserID, session.RefreshTokenHash, session.ExpiresAt)
	return err
}

func (r *pgSessions) GetByID(ctx context.Context, id string) (models.Session, error) {
	const query = `SELECT id, user_id, refresh_token_hash, created_at, expires_at FROM user_sessions WHERE id = $1`
	session, err := scanSession(r.pool.QueryRow(ctx, query, id))
	return session, notFound(err, ErrSessionNotFound)
}

func (r *pgSessions) FindByRefreshHash(ctx context.Context, hash []byte) (models.Session, error) {
	const query = `SELECT id, user_id, refresh_token_hash, created_at, expires_at FROM user_sessions WHERE refresh_token_hash = $1`
	session, err := scanSession(r.pool.QueryRow(ctx, query, hash))
	return session, notFound(err, ErrSessionNotFound)
}

func (r *pgSessions) DeleteByID(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM user_sessions WHERE id = $1`, id)
	return affected(tag, err, ErrSessionNotFound)
}

func (r *pgSessions) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM user_sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type pgAffiliators struct {
	pool *pgxpool.Pool
}

const affiliatorSelect = `
	SELECT a.uuid, a.user_id, u.name, u.username, u.phone, a.email, a.address,
	       a.bank_name, a.bank_account, a.status, a.join_date, a.created_at, a.updated_at
	FROM affiliators a
	JOIN users u ON u.id = a.user_id
`

const affiliatorSearch = `($1 = '' OR u.name ILIKE '%' || $1 || '%' OR u.username ILIKE '%' || $1 || '%'
	OR u.phone ILIKE '%' || $1 || '%' OR a.email ILIKE '%' || $1 || '%' OR a.address ILIKE '%' || $1 || '%')`

func scanAffiliator(row pgx.Row) (models.Affiliator, error) {
	var a models.Affiliator
	err := row.Scan(&a.UUID, &a.UserID, &a.Name, &a.Username, &a.Phone, &a.Email, &a.Address,
		&a.BankName, &a.BankAccount, &a.Status, &a.JoinDate, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *pgAffiliators) List(ctx context.Context, p models.ListParams) ([]models.Affiliator, int, error) {
	p = p.Normalize()

	var total int
	countQuery := `SELECT COUNT(*) FROM affiliators a JOIN users u ON u.id = a.user_id WHERE ` + affiliatorSearch
	if err := r.pool.QueryRow(ctx, countQuery, p.Search).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count affiliators: %w", err)
	}

	query := affiliatorSelect + ` WHERE ` + affiliatorSearch + ` ORDER BY a.created_at DESC, a.uuid LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, p.Search, p.Limit, p.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list affiliators: %w", err)
	}
	items, err := collect(rows, scanAffiliator)
	return items, total, err
}

func (r *pgAffiliators) Get(ctx context.Context, uuid string) (models.Affiliator, error) {
	a, err := scanAffiliator(r.pool.QueryRow(ctx, affiliatorSelect+` WHERE a.uuid = $1`, uuid))
	return a, notFound(err, ErrAffiliatorNotFound)
}

func (r *pgAffiliators) GetByUserID(ctx context.Context, userID string) (models.Affiliator, error) {
	a, err := scanAffiliator(r.pool.QueryRow(ctx, affiliatorSelect+` WHERE a.user_id = $1`, userID))
	return a, notFound(err, ErrAffiliatorNotFound)
}

func (r *pgAffiliators) Create(ctx context.Context, a models.Affiliator) error {
	const query = `
		INSERT INTO affiliators (uuid, user_id, email, address, bank_name, bank_account, status, join_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, NOW()), NOW(), NOW())
	`
	_, err := r.pool.Exec(ctx, query, a.UUID, a.UserID, a.Email, a.Address, a.BankName, a.BankAccount, a.Status, nullTime(a.JoinDate))
	return err
}

func (r *pgAffiliators) Update(ctx context.Context, a models.Affiliator) error {
	const query = `
		UPDATE affiliators
		SET email = $2, address = $3, bank_name = $4, bank_account = $5, status = $6,
		    join_date = COALESCE($7, join_date), updated_at = NOW()
		WHERE uuid = $1
	`
	tag, err := r.pool.Exec(ctx, query, a.UUID, a.Email, a.Address, a.BankName, a.BankAccount, a.Status, nullTime(a.JoinDate))
	return affected(tag, err, ErrAffiliatorNotFound)
}

func (r *pgAffiliators) Delete(ctx context.Context, uuid string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM affiliators WHERE uuid = $1`, uuid)
	return affected(tag, err, ErrAffiliatorNotFound)
}

func (r *pgAffiliators) Summary(ctx context.Context, uuid string) (models.AffiliatorSummary, error) {
	const query = `
		SELECT
			(SELECT COUNT(*) FROM customers c WHERE c.affiliator_uuid = a.uuid),
			(SELECT COALESCE(SUM(p.amount), 0) FROM payments p
			 WHERE p.affiliator_uuid = a.uuid AND p.payment_date >= a.join_date)
		FROM affiliators a
		WHERE a.uuid = $1
	`
	var s models.AffiliatorSummary
	err := r.pool.QueryRow(ctx, query, uuid).Scan(&s.TotalCustomers, &s.TotalPaymentsSinceJoin)
	return s, notFound(err, ErrAffiliatorNotFound)
}

type pgCustomers struct {
	pool *pgxpool.Pool
}

const customerSelect = `
	SELECT c.uuid, c.affiliator_uuid, u.name, c.name, c.phone, c.address, c.package,
	       c.monthly_fee, c.status, c.installed_at, c.created_at, c.updated_at
	FROM customers c
	JOIN affiliators a ON a.uuid = c.affiliator_uuid
	JOIN users u ON u.id = a.user_id
`

const customerSearch = `($1 = '' OR c.name ILIKE '%' || $1 || '%' OR c.phone ILIKE '%' || $1 || '%'
	OR c.address ILIKE '%' || $1 || '%' OR c.package ILIKE '%' || $1 || '%' OR u.name ILIKE '%' || $1 || '%')`

func scanCustomer(row pgx.Row) (models.Customer, error) {
	var c models.Customer
	err := row.Scan(&c.UUID, &c.AffiliatorUUID, &c.AffiliatorName, &c.Name, &c.Phone, &c.Address, &c.Package,
		&c.MonthlyFee, &c.Status, &c.InstalledAt, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *pgCustomers) List(ctx context.Context, p models.ListParams) ([]models.Customer, int, error) {
	p = p.Normalize()

	var total int
	countQuery := `SELECT COUNT(*) FROM customers c JOIN affiliators a ON a.uuid = c.affiliator_uuid
		JOIN users u ON u.id = a.user_id WHERE ` + customerSearch
	if err := r.pool.QueryRow(ctx, countQuery, p.Search).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count customers: %w", err)
	}

	query := customerSelect + ` WHERE ` + customerSearch + ` ORDER BY c.created_at DESC, c.uuid LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, p.Search, p.Limit, p.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list customers: %w", err)
	}
	items, err := collect(rows, scanCustomer)
	return items, total, err
}

func (r *pgCustomers) ListByAffiliator(ctx context.Context, affiliatorUUID string) ([]models.Customer, error) {
	rows, err := r.pool.Query(ctx, customerSelect+` WHERE c.affiliator_uuid = $1 ORDER BY c.created_at DESC, c.uuid`, affiliatorUUID)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return collect(rows, scanCustomer)
}

func (r *pgCustomers) Get(ctx context.Context, uuid string) (models.Customer, error) {
	c, err := scanCustomer(r.pool.QueryRow(ctx, customerSelect+` WHERE c.uuid = $1`, uuid))
	return c, notFound(err, ErrCustomerNotFound)
}

func (r *pgCustomers) Create(ctx context.Context, c models.Customer) error {
	const query = `
		INSERT INTO customers (uuid, affiliator_uuid, name, phone, address, package, monthly_fee, status, installed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, NOW()), NOW(), NOW())
	`
	_, err := r.pool.Exec(ctx, query, c.UUID, c.AffiliatorUUID, c.Name, c.Phone, c.Address, c.Package,
		c.MonthlyFee, c.Status, nullTime(c.InstalledAt))
	return err
}

func (r *pgCustomers) Update(ctx context.Context, c models.Customer) error {
	const query = `
		UPDATE customers
		SET affiliator_uuid = $2, name = $3, phone = $4, address = $5, package = $6,
		    monthly_fee = $7, status = $8, installed_at = COALESCE($9, installed_at), updated_at = NOW()
		WHERE uuid = $1
	`
	tag, err := r.pool.Exec(ctx, query, c.UUID, c.AffiliatorUUID, c.Name, c.Phone, c.Address, c.Package,
		c.MonthlyFee, c.Status, nullTime(c.InstalledAt))
	return affected(tag, err, ErrCustomerNotFound)
}

func (r *pgCustomers) Delete(ctx context.Context, uuid string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM customers WHERE uuid = $1`, uuid)
	return affected(tag, err, ErrCustomerNotFound)
}

type pgPayments struct {
	pool *pgxpool.Pool
}

const paymentSelect = `
	SELECT p.uuid, p.affiliator_uuid, u.name, p.amount, p.payment_date, p.method,
	       p.proof_image, p.notes, p.created_at, p.updated_at
	FROM payments p
	JOIN affiliators a ON a.uuid = p.affiliator_uuid
	JOIN users u ON u.id = a.user_id
`

const paymentSearch = `($1 = '' OR u.name ILIKE '%' || $1 || '%' OR p.method ILIKE '%' || $1 || '%'
	OR p.notes ILIKE '%' || $1 || '%')`

func scanPayment(row pgx.Row) (models.Payment, error) {
	var p models.Payment
	err := row.Scan(&p.UUID, &p.AffiliatorUUID, &p.AffiliatorName, &p.Amount, &p.PaymentDate, &p.Method,
		&p.ProofImage, &p.Notes, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *pgPayments) List(ctx context.Context, p models.ListParams) ([]models.Payment, int, error) {
	p = p.Normalize()

	var total int
	countQuery := `SELECT COUNT(*) FROM payments p JOIN affiliators a ON a.uuid = p.affiliator_uuid
		JOIN users u ON u.id = a.user_id WHERE ` + paymentSearch
	if err := r.pool.QueryRow(ctx, countQuery, p.Search).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}

	query := paymentSelect + ` WHERE ` + paymentSearch + ` ORDER BY p.payment_date DESC, p.uuid LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, p.Search, p.Limit, p.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}
	items, err := collect(rows, scanPayment)
	return items, total, err
}

func (r *pgPayments) ListByAffiliator(ctx context.Context, affiliatorUUID string) ([]models.Payment, error) {
	rows, err := r.pool.Query(ctx, paymentSelect+` WHERE p.affiliator_uuid = $1 ORDER BY p.payment_date DESC, p.uuid`, affiliatorUUID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return collect(rows, scanPayment)
}

func (r *pgPayments) Get(ctx context.Context, uuid string) (models.Payment, error) {
	p, err := scanPayment(r.pool.QueryRow(ctx, paymentSelect+` WHERE p.uuid = $1`, uuid))
	return p, notFound(err, ErrPaymentNotFound)
}

func (r *pgPayments) Create(ctx context.Context, p models.Payment) error {
	const query = `
		INSERT INTO payments (uuid, affiliator_uuid, amount, payment_date, method, proof_image, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	`
	_, err := r.pool.Exec(ctx, query, p.UUID, p.AffiliatorUUID, p.Amount, p.PaymentDate, p.Method, p.ProofImage, p.Notes)
	return err
}

func (r *pgPayments) Update(ctx context.Context, p models.Payment) error {
	const query = `
		UPDATE payments
		SET affiliator_uuid = $2, amount = $3, payment_date = $4, method = $5,
		    proof_image = $6, notes = $7, updated_at = NOW()
		WHERE uuid = $1
	`
	tag, err := r.pool.Exec(ctx, query, p.UUID, p.AffiliatorUUID, p.Amount, p.PaymentDate, p.Method, p.ProofImage, p.Notes)
	return affected(tag, err, ErrPaymentNotFound)
}

func (r *pgPayments) Delete(ctx context.Context, uuid string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM payments WHERE uuid = $1`, uuid)
	return affected(tag, err, ErrPaymentNotFound)
}

func collect[T any](rows pgx.Rows, scan func(pgx.Row) (T, error)) ([]T, error) {
	defer rows.Close()
	items := []T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
