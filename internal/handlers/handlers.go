package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"affconsole/internal/config"
	"affconsole/internal/middleware"
	"affconsole/internal/models"
	"affconsole/internal/repository"
	"affconsole/internal/security"
	"affconsole/internal/service"
	"affconsole/internal/storage"
)

// Deps are the backends the handlers run on. DB and Cache are optional and
// only reported by the health check.
type Deps struct {
	Store   repository.Store
	Objects storage.ObjectStore
	Hasher  *security.PasswordHasher
	DB      *pgxpool.Pool
	Cache   *redis.Client
}

type HandlerSet struct {
	log      zerolog.Logger
	cfg      *config.AppConfig
	auth     *service.AuthService
	accounts *service.AccountService
	proofs   *service.ProofService
	db       *pgxpool.Pool
	cache    *redis.Client
}

func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, deps Deps) HandlerSet {
	issuer := security.NewTokenIssuer(cfg.Security.JWTAccessSecret, cfg.Security.JWTAccessTTL)
	auth := service.NewAuthService(deps.Store.Users, deps.Store.Sessions, issuer, deps.Hasher, cfg, log)
	accounts := service.NewAccountService(deps.Store, deps.Hasher, log)
	proofs := service.NewProofService(deps.Store.Payments, deps.Store.Affiliators, deps.Objects, log)

	return HandlerSet{
		log:      log,
		cfg:      cfg,
		auth:     auth,
		accounts: accounts,
		proofs:   proofs,
		db:       deps.DB,
		cache:    deps.Cache,
	}
}

// Auth exposes the auth service to the session purge job.
func (h HandlerSet) Auth() *service.AuthService {
	return h.auth
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	requireAuth := middleware.Auth(h.auth)

	auth := router.Group("/auth")
	auth.POST("/login", h.Login)
	auth.POST("/refresh", h.Refresh)
	auth.POST("/logout", requireAuth, h.Logout)
	auth.GET("/me", requireAuth, h.Me)

	admin := router.Group("")
	admin.Use(requireAuth, middleware.RequireRoles(models.RoleAdmin))
	registerCRUD(admin.Group("/affiliators"), h, crud[models.Affiliator, models.AffiliatorInput]{
		list:   h.accounts.ListAffiliators,
		get:    h.accounts.GetAffiliator,
		create: h.accounts.CreateAffiliator,
		update: h.accounts.UpdateAffiliator,
		remove: h.accounts.DeleteAffiliator,
	})
	admin.GET("/affiliators/:uuid/summary", h.AffiliatorSummary)
	registerCRUD(admin.Group("/customers"), h, crud[models.Customer, models.CustomerInput]{
		list:   h.accounts.ListCustomers,
		get:    h.accounts.GetCustomer,
		create: h.accounts.CreateCustomer,
		update: h.accounts.UpdateCustomer,
		remove: h.accounts.DeleteCustomer,
	})
	registerCRUD(admin.Group("/payments"), h, crud[models.Payment, models.PaymentInput]{
		list:   h.accounts.ListPayments,
		get:    h.accounts.GetPayment,
		create: h.accounts.CreatePayment,
		update: h.accounts.UpdatePayment,
		remove: h.accounts.DeletePayment,
	})
	admin.POST("/upload/proof-payment", h.UploadProof)

	mine := router.Group("/affiliator")
	mine.Use(requireAuth, middleware.RequireRoles(models.RoleAffiliator))
	mine.GET("/customers", h.MyCustomers)
	mine.GET("/payments", h.MyPayments)

	router.GET("/payment/proof-image/:uuid/download", requireAuth, h.DownloadProof)
}
