// Package gateway is the only path from the console to the backend API.
//
// Every call goes through send, which attaches the bearer token and the
// proxy headers, bounds the attempt with a timeout, and on a 401 refreshes the
// session once and replays the request once. Responses are normalized into
// *Error values by decode.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"affconsole/internal/config"
	"affconsole/internal/i18n"
)

// TokenSource is implemented by the session manager. The gateway reads the
// access token at call time and asks the source to refresh or expire the
// session after a 401.
type TokenSource interface {
	AccessToken() string
	HasRefreshToken() bool
	Refresh(ctx context.Context) bool
	Expire(ctx context.Context)
}

type Client struct {
	baseURL      string
	httpClient   *http.Client
	timeout      time.Duration
	bypassHeader string
	validate     *validator.Validate
	msgs         *i18n.Localizer
	log          zerolog.Logger

	mu     sync.RWMutex
	tokens TokenSource
}

func New(cfg config.APIConfig, msgs *i18n.Localizer, log zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		timeout:      timeout,
		bypassHeader: cfg.BypassHeader,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		msgs:         msgs,
		log:          log.With().Str("component", "gateway").Logger(),
	}
}

// UseTokens installs the session that owns the token pair.
func (c *Client) UseTokens(ts TokenSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = ts
}

func (c *Client) tokenSource() TokenSource {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
	accept      string
	// bearer overrides the token source when set.
	bearer string
	// auth marks login, refresh and logout: no bearer from the session and
	// no refresh on 401.
	auth bool
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func (c *Client) send(ctx context.Context, req request) (*response, error) {
	resp, err := c.attempt(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.status != http.StatusUnauthorized || req.auth || isHTML(resp.header) {
		return resp, nil
	}

	ts := c.tokenSource()
	if ts != nil && ts.HasRefreshToken() && ts.Refresh(ctx) {
		c.log.Debug().Str("path", req.path).Msg("access token refreshed, replaying request")
		resp, err = c.attempt(ctx, req)
		if err != nil {
			return nil, err
		}
		if resp.status != http.StatusUnauthorized {
			return resp, nil
		}
	}

	if ts != nil {
		ts.Expire(ctx)
	}
	return nil, newError(c.msgs, KindSessionExpired, resp.status, "session expired", nil)
}

func (c *Client) attempt(ctx context.Context, req request) (*response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.url(req), body)
	if err != nil {
		return nil, newError(c.msgs, KindNetwork, 0, fmt.Sprintf("build request: %v", err), err)
	}
	c.setHeaders(httpReq, req)

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.transportError(ctx, req, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, c.transportError(ctx, req, err)
	}

	c.log.Debug().
		Str("method", req.method).
		Str("path", req.path).
		Int("status", httpResp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("api call")

	return &response{
		status: httpResp.StatusCode,
		header: httpResp.Header,
		body:   data,
	}, nil
}

func (c *Client) transportError(ctx context.Context, req request, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		c.log.Warn().Str("path", req.path).Dur("timeout", c.timeout).Msg("api call timed out")
		return newError(c.msgs, KindTimeout, 0, fmt.Sprintf("%s %s: no response within %s", req.method, req.path, c.timeout), err)
	}
	c.log.Warn().Err(err).Str("path", req.path).Msg("api call failed")
	return newError(c.msgs, KindNetwork, 0, fmt.Sprintf("%s %s: %v", req.method, req.path, err), err)
}

func (c *Client) url(req request) string {
	u := c.baseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}
	return u
}

func (c *Client) setHeaders(r *http.Request, req request) {
	accept := req.accept
	if accept == "" {
		accept = "application/json"
	}
	r.Header.Set("Accept", accept)
	if req.contentType != "" {
		r.Header.Set("Content-Type", req.contentType)
	}
	if c.bypassHeader != "" {
		r.Header.Set(c.bypassHeader, "true")
	}
	r.Header.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	r.Header.Set("Pragma", "no-cache")
	r.Header.Set("Expires", "0")

	token := req.bearer
	if token == "" && !req.auth {
		if ts := c.tokenSource(); ts != nil {
			token = ts.AccessToken()
		}
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

func isHTML(header http.Header) bool {
	mediaType, _, err := mime.ParseMediaType(header.Get("Content-Type"))
	return err == nil && mediaType == "text/html"
}

var successMarker = []byte(`{"success":true}`)

// decode turns a response into out or into an *Error.
func (c *Client) decode(resp *response, out any) error {
	if isHTML(resp.header) {
		return newError(c.msgs, KindMisconfigured, resp.status,
			"received text/html instead of JSON; check the API base URL and tunnel", nil)
	}
	if resp.status < 200 || resp.status >= 300 {
		return c.statusError(resp)
	}

	body := resp.body
	if resp.status == http.StatusNoContent || len(bytes.TrimSpace(body)) == 0 {
		body = successMarker
	}

	if bytes.HasPrefix(bytes.TrimSpace(body), []byte("{")) {
		var head struct {
			Success *bool  `json:"success"`
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if err := json.Unmarshal(body, &head); err != nil {
			return newError(c.msgs, KindServer, resp.status, fmt.Sprintf("decode response: %v", err), err)
		}
		if head.Success != nil && !*head.Success {
			return newError(c.msgs, KindHTTP, resp.status, firstNonEmpty(head.Message, head.Error, "request failed"), nil)
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return newError(c.msgs, KindServer, resp.status, fmt.Sprintf("decode response: %v", err), err)
	}
	return nil
}

func (c *Client) statusError(resp *response) error {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	_ = json.Unmarshal(resp.body, &payload)
	message := firstNonEmpty(payload.Message, payload.Error, fmt.Sprintf("HTTP error! status: %d", resp.status))

	kind := KindHTTP
	switch {
	case resp.status == http.StatusUnauthorized:
		kind = KindUnauthorized
	case resp.status == http.StatusForbidden:
		kind = KindForbidden
	case resp.status == http.StatusNotFound:
		kind = KindNotFound
	case resp.status == http.StatusTooManyRequests:
		kind = KindRateLimited
	case resp.status >= 500:
		kind = KindServer
	}

	if kind == KindServer {
		c.log.Error().Int("status", resp.status).Str("message", message).Msg("api server error")
	}
	return newError(c.msgs, kind, resp.status, message, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	req := request{method: method, path: path, query: query}
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		req.body = body
		req.contentType = "application/json"
	}

	resp, err := c.send(ctx, req)
	if err != nil {
		return err
	}
	return c.decode(resp, out)
}

func (c *Client) validateInput(in any) error {
	if err := c.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
			return newError(c.msgs, KindValidation, 0, strings.Join(fields, ", "), err)
		}
		return newError(c.msgs, KindValidation, 0, err.Error(), err)
	}
	return nil
}

func (c *Client) requireID(id string) error {
	if strings.TrimSpace(id) == "" {
		return newError(c.msgs, KindValidation, 0, "uuid (required)", nil)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
