package console

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"affconsole/internal/config"
	"affconsole/internal/guard"
	"affconsole/internal/handlers"
	"affconsole/internal/listing"
	"affconsole/internal/middleware"
	"affconsole/internal/notify"
	"affconsole/internal/repository"
	"affconsole/internal/security"
	"affconsole/internal/storage"
	"affconsole/internal/tokenstore"
)

var pngProof = append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, make([]byte, 32)...)

type harness struct {
	cfg    *config.AppConfig
	store  *tokenstore.Memory
	dir    string
	out    *bytes.Buffer
	notes  *notify.Recorder
	app    *App
	server *httptest.Server
}

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.AppConfig{
		Environment: config.EnvDevelopment,
		Security: config.SecurityConfig{
			JWTAccessSecret: "console-test",
			JWTAccessTTL:    time.Minute,
			JWTRefreshTTL:   time.Hour,
		},
	}
	hasher := security.NewPasswordHasher(security.FastParams)
	store := repository.NewMemory().Store()
	require.NoError(t, repository.Seed(context.Background(), store, hasher))

	h := handlers.NewHandlerSet(zerolog.Nop(), cfg, handlers.Deps{
		Store:   store,
		Objects: storage.NewMemoryStore("http://files.local"),
		Hasher:  hasher,
	})
	r := gin.New()
	r.Use(middleware.Recovery(zerolog.Nop()))
	h.Register(r.Group("/api"))

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		server: newBackend(t),
		store:  tokenstore.NewMemory(),
		dir:    t.TempDir(),
	}
	h.cfg = &config.AppConfig{
		Locale: "en",
		API: config.APIConfig{
			BaseURL:      h.server.URL + "/api",
			Timeout:      5 * time.Second,
			BypassHeader: "ngrok-skip-browser-warning",
		},
		Listing: config.ListingConfig{PageSize: 10, WidthBreakpoint: 100},
	}
	h.app = h.open(t, "")
	return h
}

// open starts a fresh console process sharing the harness token store.
func (h *harness) open(t *testing.T, input string) *App {
	t.Helper()
	h.out = &bytes.Buffer{}
	h.notes = &notify.Recorder{}
	app := New(h.cfg, Options{
		Out:       h.out,
		In:        strings.NewReader(input),
		Store:     h.store,
		Notifier:  h.notes,
		Logger:    zerolog.Nop(),
		Width:     200,
		ExportDir: h.dir,
	})
	t.Cleanup(app.Close)
	return app
}

func (h *harness) run(t *testing.T, args ...string) error {
	t.Helper()
	return h.app.Run(context.Background(), args)
}

func (h *harness) login(t *testing.T, username, password string) {
	t.Helper()
	require.NoError(t, h.run(t, "login", "-username", username, "-password", password))
	h.out.Reset()
}

func (h *harness) lastNote(t *testing.T) notify.Message {
	t.Helper()
	msg, ok := h.notes.Last()
	require.True(t, ok, "no notification")
	return msg
}

func TestLoginShowsRoleMenu(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run(t, "login", "-username", "admin", "-password", "admin123"))
	assert.Equal(t, notify.Message{Level: notify.LevelSuccess, Text: "Welcome, Administrator!"}, h.lastNote(t))
	assert.Contains(t, h.out.String(), "Available commands:")
	assert.Contains(t, h.out.String(), "affiliators")
	assert.NotContains(t, h.out.String(), "my-customers")

	tokens, err := h.store.Load()
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
}

func TestLoginPromptsForPassword(t *testing.T) {
	h := newHarness(t)
	h.app = h.open(t, "affiliator123\n")

	require.NoError(t, h.run(t, "login", "-username", "affiliator"))
	assert.Contains(t, h.out.String(), "password: ")
	assert.Equal(t, "Welcome, Sari Wulandari!", h.lastNote(t).Text)
}

func TestLoginFailureKeepsLoggedOut(t *testing.T) {
	h := newHarness(t)

	err := h.run(t, "login", "-username", "admin", "-password", "wrong")
	require.Error(t, err)
	assert.Equal(t, notify.LevelError, h.lastNote(t).Level)
	assert.Contains(t, h.lastNote(t).Text, "Login failed")
	assert.Len(t, h.notes.Messages(), 1)
	assert.Nil(t, h.app.session.CurrentUser())
}

func TestLoginWhileLoggedInRedirects(t *testing.T) {
	h := newHarness(t)
	h.login(t, "admin", "admin123")

	require.NoError(t, h.run(t, "login", "-username", "admin", "-password", "admin123"))
	assert.Equal(t, notify.Message{Level: notify.LevelInfo, Text: "Already logged in as admin"}, h.lastNote(t))
	assert.Contains(t, h.out.String(), "Available commands:")
}

func TestGuards(t *testing.T) {
	h := newHarness(t)

	err := h.run(t, "customers", "list")
	assert.ErrorIs(t, err, guard.ErrLoginRequired)
	assert.Equal(t, "Please log in first", h.lastNote(t).Text)

	h.login(t, "affiliator", "affiliator123")
	err = h.run(t, "customers", "list")
	assert.ErrorIs(t, err, guard.ErrForbidden)
	assert.Equal(t, "You do not have access to this page", h.lastNote(t).Text)

	err = h.run(t, "nope")
	assert.ErrorIs(t, err, ErrUnknownCommand)
	assert.Equal(t, "Unknown command: nope", h.lastNote(t).Text)
}

func TestSessionSurvivesNextInvocation(t *testing.T) {
	h := newHarness(t)
	h.login(t, "admin", "admin123")

	h.app = h.open(t, "")
	require.NoError(t, h.run(t, "whoami"))
	assert.Equal(t, "Administrator (admin), role: Administrator\n", h.out.String())
}

func TestLogoutClearsStoredSession(t *testing.T) {
	h := newHarness(t)
	h.login(t, "admin", "admin123")

	require.NoError(t, h.run(t, "logout"))
	assert.Equal(t, notify.Message{Level: notify.LevelSuccess, Text: "Logged out"}, h.lastNote(t))
	_, err := h.store.Load()
	assert.ErrorIs(t, err, tokenstore.ErrEmpty)

	h.out.Reset()
	require.NoError(t, h.run(t, "whoami"))
	assert.Equal(t, "Not logged in\n", h.out.String())
}

func TestAffiliatorListings(t *testing.T) {
	h := newHarness(t)
	h.login(t, "affiliator", "affiliator123")

	require.NoError(t, h.run(t, "my-customers"))
	out := h.out.String()
	assert.Contains(t, out, "Budi Santoso")
	assert.Contains(t, out, "Rp 250.000")
	assert.Contains(t, out, "Page 1 of 1 (3 rows)")

	h.out.Reset()
	require.NoError(t, h.run(t, "my-customers", "-search", "rina"))
	assert.Contains(t, h.out.String(), "Rina Marlina")
	assert.NotContains(t, h.out.String(), "Budi Santoso")
	assert.Contains(t, h.out.String(), "(1 rows)")

	h.out.Reset()
	require.NoError(t, h.run(t, "my-payments", "-width", "40"))
	assert.Contains(t, h.out.String(), "[1]")
	assert.Contains(t, h.out.String(), "... (+3)")

	h.out.Reset()
	require.NoError(t, h.run(t, "my-payments", "-width", "40", "-expand", "1"))
	assert.Contains(t, h.out.String(), "Method: ")

	err := h.run(t, "my-payments", "-size", "7")
	assert.ErrorIs(t, err, listing.ErrPageSize)
}

func TestAffiliatorCRUDFromConsole(t *testing.T) {
	h := newHarness(t)
	h.login(t, "admin", "admin123")

	require.NoError(t, h.run(t, "affiliators", "create", "-data",
		`{"name":"Dewi","username":"dewi","password":"rahasia1","phone":"081399998888"}`))
	assert.Equal(t, "Affiliator created", h.lastNote(t).Text)
	id := strings.TrimSpace(strings.TrimPrefix(h.out.String(), "uuid: "))
	require.NotEmpty(t, id)

	require.NoError(t, h.run(t, "affiliators", "update", "-id", id, "-data", `{"name":"Dewi Lestari"}`))
	assert.Equal(t, "Affiliator updated", h.lastNote(t).Text)

	h.out.Reset()
	require.NoError(t, h.run(t, "affiliators", "get", "-id", id))
	assert.Contains(t, h.out.String(), "Name: Dewi Lestari")
	assert.Contains(t, h.out.String(), "Phone: 081399998888")

	h.out.Reset()
	require.NoError(t, h.run(t, "summary", "-id", id))
	assert.Equal(t, "Total customers: 0\nPayments since joining: Rp 0\n", h.out.String())

	h.out.Reset()
	require.NoError(t, h.run(t, "affiliators", "list", "-search", "dewi", "-open", "1"))
	assert.Contains(t, h.out.String(), "Username: dewi")

	err := h.run(t, "affiliators", "create", "-data", `{"name":"X","username":"x!","phone":"1"}`)
	require.Error(t, err)
	assert.Equal(t, notify.LevelError, h.lastNote(t).Level)

	require.NoError(t, h.run(t, "affiliators", "delete", "-id", id))
	assert.Equal(t, "Affiliator deleted", h.lastNote(t).Text)

	err = h.run(t, "affiliators", "get", "-id", id)
	require.Error(t, err)
	assert.Equal(t, "Data not found", h.lastNote(t).Text)
}

func TestExportWritesCSV(t *testing.T) {
	h := newHarness(t)
	h.login(t, "admin", "admin123")

	require.NoError(t, h.run(t, "customers", "list", "-export", "-search", "sukamaju"))
	note := h.lastNote(t)
	assert.Contains(t, note.Text, "2 rows exported to ")

	matches, err := filepath.Glob(filepath.Join(h.dir, "customers-*.csv"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "Name,Affiliator,Phone"))
}

func TestProofUploadAndDownload(t *testing.T) {
	h := newHarness(t)
	h.login(t, "admin", "admin123")

	payments, err := h.app.client.AllPayments(context.Background(), "")
	require.NoError(t, err)
	require.NotEmpty(t, payments)
	paymentID := payments[0].UUID

	src := filepath.Join(h.dir, "bukti.png")
	require.NoError(t, os.WriteFile(src, pngProof, 0o600))

	require.NoError(t, h.run(t, "upload", "-file", src, "-payment", paymentID))
	assert.Equal(t, "Payment updated", h.lastNote(t).Text)

	dest := filepath.Join(h.dir, "copy.png")
	require.NoError(t, h.run(t, "download", "-id", paymentID, "-out", dest))
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, pngProof, got)

	require.NoError(t, h.run(t, "logout"))
	h.login(t, "affiliator", "affiliator123")
	require.NoError(t, h.run(t, "download", "-id", paymentID))
	_, err = os.Stat(filepath.Join(h.dir, "proof-"+paymentID+".png"))
	assert.NoError(t, err)

	text := filepath.Join(h.dir, "notes.txt")
	require.NoError(t, os.WriteFile(text, []byte("not an image at all"), 0o600))
	require.NoError(t, h.run(t, "logout"))
	h.login(t, "admin", "admin123")
	assert.Error(t, h.run(t, "upload", "-file", text))
}

func TestShell(t *testing.T) {
	h := newHarness(t)
	h.app = h.open(t, strings.Join([]string{
		`login -username admin -password "admin123"`,
		"",
		"whoami",
		"bogus",
		`summary -id "unterminated`,
		"exit",
		"whoami",
	}, "\n"))

	require.NoError(t, h.run(t, "shell"))
	out := h.out.String()
	assert.True(t, strings.HasPrefix(out, "affconsole> "))
	assert.Contains(t, out, "affconsole (admin)> ")
	assert.Equal(t, 1, strings.Count(out, "role: Administrator"))

	var texts []string
	for _, m := range h.notes.Messages() {
		texts = append(texts, m.Text)
	}
	assert.Equal(t, []string{"Welcome, Administrator!", "Unknown command: bogus", "unterminated quote"}, texts)
}

func TestUsage(t *testing.T) {
	h := newHarness(t)
	assert.ErrorIs(t, h.run(t), ErrUsage)
	assert.Contains(t, h.out.String(), "usage: affconsole <command> [flags]")

	err := h.run(t, "login")
	assert.ErrorIs(t, err, ErrUsage)
	assert.Equal(t, "usage: -username is required", h.lastNote(t).Text)
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{line: "", want: nil},
		{line: "  whoami  ", want: []string{"whoami"}},
		{line: `customers list -search "budi santoso"`, want: []string{"customers", "list", "-search", "budi santoso"}},
		{line: `affiliators create -data '{"name":"A B"}'`, want: []string{"affiliators", "create", "-data", `{"name":"A B"}`}},
		{line: `x ""`, want: []string{"x", ""}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := splitArgs(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := splitArgs(`a "b`)
	assert.Error(t, err)
}

func TestFormatRupiah(t *testing.T) {
	tests := map[int64]string{
		0:          "Rp 0",
		999:        "Rp 999",
		1000:       "Rp 1.000",
		250000:     "Rp 250.000",
		1234567890: "Rp 1.234.567.890",
		-15000:     "-Rp 15.000",
	}
	for in, want := range tests {
		assert.Equal(t, want, formatRupiah(in))
	}
}
