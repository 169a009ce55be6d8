package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"affconsole/internal/config"
	"affconsole/internal/middleware"
	"affconsole/internal/models"
	"affconsole/internal/repository"
	"affconsole/internal/security"
	"affconsole/internal/storage"
)

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.AppConfig{
		Environment: config.EnvDevelopment,
		Security: config.SecurityConfig{
			JWTAccessSecret: "test-secret",
			JWTAccessTTL:    time.Minute,
			JWTRefreshTTL:   time.Hour,
		},
	}
	hasher := security.NewPasswordHasher(security.FastParams)
	store := repository.NewMemory().Store()
	require.NoError(t, repository.Seed(context.Background(), store, hasher))

	h := NewHandlerSet(zerolog.Nop(), cfg, Deps{
		Store:   store,
		Objects: storage.NewMemoryStore("http://files.local"),
		Hasher:  hasher,
	})
	r := gin.New()
	r.Use(middleware.Recovery(zerolog.Nop()))
	h.Register(r.Group("/api"))
	return r
}

func call(t *testing.T, r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func login(t *testing.T, r http.Handler, username, password string) models.LoginResult {
	t.Helper()
	w := call(t, r, http.MethodPost, "/api/auth/login", "", models.Credentials{Username: username, Password: password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[models.LoginResult](t, w)
}

func TestLoginScenarios(t *testing.T) {
	r := newRouter(t)

	admin := login(t, r, "admin", "admin123")
	assert.True(t, admin.Success)
	assert.Equal(t, models.RoleAdmin, admin.User.Role)

	aff := login(t, r, "affiliator", "affiliator123")
	assert.Equal(t, models.RoleAffiliator, aff.User.Role)

	w := call(t, r, http.MethodPost, "/api/auth/login", "", models.Credentials{Username: "admin", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	body := decode[models.Ack](t, w)
	assert.False(t, body.Success)
	assert.Equal(t, "invalid username or password", body.Message)

	w = call(t, r, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "admin"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[models.Ack](t, w).Message, "Password (required)")
}

func TestRefreshMeLogout(t *testing.T) {
	r := newRouter(t)
	session := login(t, r, "admin", "admin123")

	w := call(t, r, http.MethodPost, "/api/auth/refresh", "", models.RefreshRequest{RefreshToken: session.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code)
	refreshed := decode[models.RefreshResult](t, w)
	assert.True(t, refreshed.Success)
	assert.NotEmpty(t, refreshed.Token)

	w = call(t, r, http.MethodGet, "/api/auth/me", refreshed.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin", decode[models.Envelope[models.User]](t, w).Data.Username)

	w = call(t, r, http.MethodPost, "/api/auth/logout", session.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = call(t, r, http.MethodGet, "/api/auth/me", refreshed.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = call(t, r, http.MethodPost, "/api/auth/refresh", "", models.RefreshRequest{RefreshToken: session.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRoleGates(t *testing.T) {
	r := newRouter(t)
	admin := login(t, r, "admin", "admin123").Token
	aff := login(t, r, "affiliator", "affiliator123").Token

	assert.Equal(t, http.StatusUnauthorized, call(t, r, http.MethodGet, "/api/customers", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, call(t, r, http.MethodGet, "/api/customers", aff, nil).Code)
	assert.Equal(t, http.StatusForbidden, call(t, r, http.MethodGet, "/api/affiliator/customers", admin, nil).Code)

	w := call(t, r, http.MethodGet, "/api/affiliator/customers", aff, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[models.Envelope[[]models.Customer]](t, w).Data, 3)

	w = call(t, r, http.MethodGet, "/api/affiliator/payments", aff, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[models.Envelope[[]models.Payment]](t, w).Data, 2)
}

func TestAffiliatorCRUD(t *testing.T) {
	r := newRouter(t)
	admin := login(t, r, "admin", "admin123").Token

	in := models.AffiliatorInput{Name: "Dewi", Username: "dewi", Password: "rahasia1", Phone: "081399998888"}
	w := call(t, r, http.MethodPost, "/api/affiliators", admin, in)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[models.Envelope[models.Affiliator]](t, w).Data
	assert.Equal(t, "dewi", created.Username)

	assert.Equal(t, http.StatusConflict, call(t, r, http.MethodPost, "/api/affiliators", admin, in).Code)

	in.Password = ""
	in.Name = "Dewi Lestari"
	w = call(t, r, http.MethodPut, "/api/affiliators/"+created.UUID, admin, in)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Dewi Lestari", decode[models.Envelope[models.Affiliator]](t, w).Data.Name)

	w = call(t, r, http.MethodGet, "/api/affiliators?page=1&limit=1&search=dewi", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[models.Envelope[[]models.Affiliator]](t, w)
	require.NotNil(t, list.Pagination)
	assert.Equal(t, 1, list.Pagination.Total)
	assert.Equal(t, 1, list.Pagination.TotalPages)

	w = call(t, r, http.MethodGet, "/api/affiliators/"+created.UUID+"/summary", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.AffiliatorSummary{}, decode[models.Envelope[models.AffiliatorSummary]](t, w).Data)

	w = call(t, r, http.MethodDelete, "/api/affiliators/"+created.UUID, admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[models.Ack](t, w).Success)

	assert.Equal(t, http.StatusNotFound, call(t, r, http.MethodGet, "/api/affiliators/"+created.UUID, admin, nil).Code)
}

func TestCustomerValidation(t *testing.T) {
	r := newRouter(t)
	admin := login(t, r, "admin", "admin123").Token

	w := call(t, r, http.MethodPost, "/api/customers", admin, models.CustomerInput{Name: "X"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	msg := decode[models.Ack](t, w).Message
	assert.Contains(t, msg, "AffiliatorUUID (required)")
	assert.Contains(t, msg, "Phone (required)")

	w = call(t, r, http.MethodGet, "/api/customers?limit=2", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[models.Envelope[[]models.Customer]](t, w)
	assert.Len(t, list.Data, 2)
	assert.Equal(t, models.Pagination{Page: 1, Limit: 2, Total: 3, TotalPages: 2}, *list.Pagination)
}

func TestProofUploadAndDownload(t *testing.T) {
	r := newRouter(t)
	admin := login(t, r, "admin", "admin123").Token
	aff := login(t, r, "affiliator", "affiliator123").Token

	png := append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, make([]byte, 16)...)
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "bukti.png")
	require.NoError(t, err)
	_, err = part.Write(png)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload/proof-payment", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+admin)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	stored := decode[models.Envelope[models.StoredFile]](t, w).Data
	assert.NotEmpty(t, stored.Filename)

	w = call(t, r, http.MethodGet, "/api/affiliator/payments", aff, nil)
	payment := decode[models.Envelope[[]models.Payment]](t, w).Data[0]

	update := models.PaymentInput{
		AffiliatorUUID: payment.AffiliatorUUID,
		Amount:         payment.Amount,
		PaymentDate:    payment.PaymentDate,
		Method:         payment.Method,
		ProofImage:     stored.Filename,
	}
	w = call(t, r, http.MethodPut, "/api/payments/"+payment.UUID, admin, update)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = call(t, r, http.MethodGet, "/api/payment/proof-image/"+payment.UUID+"/download", aff, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, png, w.Body.Bytes())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
}

func TestHealth(t *testing.T) {
	w := call(t, newRouter(t), http.MethodGet, "/api/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","database":"memory","cache":"disabled","environment":"development"}`, w.Body.String())
}
