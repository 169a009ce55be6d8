package models

import "time"

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

type Affiliator struct {
	UUID        string    `json:"uuid"`
	UserID      string    `json:"userId"`
	Name        string    `json:"name"`
	Username    string    `json:"username"`
	Phone       string    `json:"phone"`
	Email       string    `json:"email"`
	Address     string    `json:"address"`
	BankName    string    `json:"bankName"`
	BankAccount string    `json:"bankAccount"`
	Status      string    `json:"status"`
	JoinDate    time.Time `json:"joinDate"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// AffiliatorInput creates or replaces an affiliator. Password is required on
// create and optional on update.
type AffiliatorInput struct {
	Name        string `json:"name" binding:"required" validate:"required"`
	Username    string `json:"username" binding:"required,alphanum,min=3" validate:"required,alphanum,min=3"`
	Password    string `json:"password,omitempty" binding:"omitempty,min=6" validate:"omitempty,min=6"`
	Phone       string `json:"phone" binding:"required,numeric,min=8" validate:"required,numeric,min=8"`
	Email       string `json:"email" binding:"omitempty,email" validate:"omitempty,email"`
	Address     string `json:"address"`
	BankName    string `json:"bankName"`
	BankAccount string `json:"bankAccount" binding:"omitempty,numeric" validate:"omitempty,numeric"`
	Status      string `json:"status" binding:"omitempty,oneof=active inactive" validate:"omitempty,oneof=active inactive"`
}

type AffiliatorSummary struct {
	TotalCustomers         int   `json:"totalCustomers"`
	TotalPaymentsSinceJoin int64 `json:"totalPaymentsSinceJoin"`
}

type Customer struct {
	UUID           string    `json:"uuid"`
	AffiliatorUUID string    `json:"affiliatorUuid"`
	AffiliatorName string    `json:"affiliatorName"`
	Name           string    `json:"name"`
	Phone          string    `json:"phone"`
	Address        string    `json:"address"`
	Package        string    `json:"package"`
	MonthlyFee     int64     `json:"monthlyFee"`
	Status         string    `json:"status"`
	InstalledAt    time.Time `json:"installedAt"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type CustomerInput struct {
	AffiliatorUUID string    `json:"affiliatorUuid" binding:"required,uuid" validate:"required,uuid"`
	Name           string    `json:"name" binding:"required" validate:"required"`
	Phone          string    `json:"phone" binding:"required,numeric,min=8" validate:"required,numeric,min=8"`
	Address        string    `json:"address" binding:"required" validate:"required"`
	Package        string    `json:"package" binding:"required" validate:"required"`
	MonthlyFee     int64     `json:"monthlyFee" binding:"gte=0" validate:"gte=0"`
	Status         string    `json:"status" binding:"omitempty,oneof=active inactive" validate:"omitempty,oneof=active inactive"`
	InstalledAt    time.Time `json:"installedAt"`
}

type Payment struct {
	UUID           string    `json:"uuid"`
	AffiliatorUUID string    `json:"affiliatorUuid"`
	AffiliatorName string    `json:"affiliatorName"`
	Amount         int64     `json:"amount"`
	PaymentDate    time.Time `json:"paymentDate"`
	Method         string    `json:"method"`
	ProofImage     string    `json:"proofImage"`
	Notes          string    `json:"notes"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type PaymentInput struct {
	AffiliatorUUID string    `json:"affiliatorUuid" binding:"required,uuid" validate:"required,uuid"`
	Amount         int64     `json:"amount" binding:"required,gt=0" validate:"required,gt=0"`
	PaymentDate    time.Time `json:"paymentDate" binding:"required" validate:"required"`
	Method         string    `json:"method" binding:"required,oneof=transfer cash" validate:"required,oneof=transfer cash"`
	ProofImage     string    `json:"proofImage"`
	Notes          string    `json:"notes"`
}

// StoredFile locates an uploaded proof of payment.
type StoredFile struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
}
