package backend

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
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/noah-isme/myteacher-portal/pkg/logger"
	"github.com/noah-isme/myteacher-portal/pkg/middleware/requestid"
)

const maxBodyBytes = 8 << 20

// TokenPair is what a refresh endpoint hands back.
type TokenPair struct {
	Access  string
	Refresh string
}

// Credentials supplies bearer tokens for one caller and is told about
// refresh outcomes so it can persist rotated tokens or tear the session down.
type Credentials interface {
	AccessToken() string
	RefreshToken() string
	TokenRefreshed(ctx context.Context, pair TokenPair)
	RefreshFailed(ctx context.Context, err error)
}

// Observer receives upstream call measurements.
type Observer interface {
	ObserveUpstream(method, endpoint string, status int, duration time.Duration)
	RecordRefresh(outcome string)
}

// Config configures a Client.
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	RefreshPaths []string
	HTTPClient   *http.Client
	Logger       *zap.Logger
	Observer     Observer
}

// Client talks to the REST backend. It attaches the caller's bearer token
// and on a 401 or 403 performs at most one refresh followed by at most one
// retry of the original request.
type Client struct {
	baseURL      string
	refreshPaths []string
	http         *http.Client
	logger       *zap.Logger
	observer     Observer
	refreshes    singleflight.Group
}

// New builds a Client.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("backend base URL is required")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("backend base URL: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if len(cfg.RefreshPaths) == 0 {
		cfg.RefreshPaths = []string{"/token/refresh/", "/refresh/", "/jwt/refresh/"}
	}
	return &Client{
		baseURL:      base,
		refreshPaths: cfg.RefreshPaths,
		http:         cfg.HTTPClient,
		logger:       cfg.Logger,
		observer:     cfg.Observer,
	}, nil
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string { return c.baseURL }

// URL resolves path against the base URL. Absolute URLs are returned as is.
func (c *Client) URL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// Get issues a GET and decodes the JSON answer into out.
func (c *Client) Get(ctx context.Context, creds Credentials, path string, query url.Values, out any) error {
	target := path
	if len(query) > 0 {
		target = path + "?" + query.Encode()
	}
	return c.Do(ctx, creds, http.MethodGet, target, nil, out)
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, creds Credentials, path string, body, out any) error {
	return c.Do(ctx, creds, http.MethodPost, path, body, out)
}

// Patch issues a PATCH with a JSON body.
func (c *Client) Patch(ctx context.Context, creds Credentials, path string, body, out any) error {
	return c.Do(ctx, creds, http.MethodPatch, path, body, out)
}

// Delete issues a DELETE and discards the answer.
func (c *Client) Delete(ctx context.Context, creds Credentials, path string) error {
	return c.Do(ctx, creds, http.MethodDelete, path, nil, nil)
}

// Do runs one logical request. creds may be nil for anonymous calls, in which
// case no refresh is attempted.
func (c *Client) Do(ctx context.Context, creds Credentials, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		payload = encoded
	}

	access := ""
	if creds != nil {
		access = creds.AccessToken()
	}

	res, err := c.send(ctx, method, c.URL(path), payload, access)
	if err != nil {
		return err
	}
	if res.ok() {
		return res.decode(out)
	}

	if creds != nil && res.authFailure() {
		if fresh, ok := c.refresh(ctx, creds); ok {
			retry, err := c.send(ctx, method, c.URL(path), payload, fresh)
			if err != nil {
				return err
			}
			if retry.ok() {
				return retry.decode(out)
			}
			res = retry
		}
	}

	return res.apiError()
}

// Probe issues a single GET without refresh and reports the status code.
func (c *Client) Probe(ctx context.Context, creds Credentials, path string) (int, error) {
	access := ""
	if creds != nil {
		access = creds.AccessToken()
	}
	res, err := c.send(ctx, http.MethodGet, c.URL(path), nil, access)
	if err != nil {
		return 0, err
	}
	return res.status, nil
}

// Refresh exchanges a refresh token for a new pair without an originating
// request. Concurrent callers sharing the token share one exchange.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if refreshToken == "" {
		return TokenPair{}, ErrNoRefreshToken
	}
	v, err, shared := c.refreshes.Do(refreshToken, func() (any, error) {
		return c.exchange(context.WithoutCancel(ctx), refreshToken)
	})
	if shared {
		c.logger.Debug("token refresh shared with concurrent caller")
	}
	if err != nil {
		return TokenPair{}, err
	}
	return v.(TokenPair), nil
}

func (c *Client) refresh(ctx context.Context, creds Credentials) (string, bool) {
	log := logger.FromContext(ctx, c.logger)
	pair, err := c.Refresh(ctx, creds.RefreshToken())
	if err != nil {
		c.recordRefresh("failed")
		log.Warn("token refresh failed", zap.Error(err))
		creds.RefreshFailed(ctx, err)
		return "", false
	}
	c.recordRefresh("succeeded")
	creds.TokenRefreshed(ctx, pair)
	return pair.Access, true
}

func (c *Client) exchange(ctx context.Context, refreshToken string) (TokenPair, error) {
	payload, _ := json.Marshal(map[string]string{"refresh": refreshToken})
	var (
		lastErr error
		reached bool
	)
	for _, path := range c.refreshPaths {
		res, err := c.send(ctx, http.MethodPost, c.URL(path), payload, "")
		if err != nil {
			lastErr = err
			continue
		}
		reached = true
		if !res.ok() {
			continue
		}
		var body struct {
			Access      string `json:"access"`
			AccessToken string `json:"access_token"`
			Refresh     string `json:"refresh"`
		}
		if err := json.Unmarshal(res.body, &body); err != nil {
			continue
		}
		access := body.Access
		if access == "" {
			access = body.AccessToken
		}
		if access == "" {
			continue
		}
		rotated := body.Refresh
		if rotated == "" {
			rotated = refreshToken
		}
		return TokenPair{Access: access, Refresh: rotated}, nil
	}
	// Only an unreachable backend keeps the refresh token alive.
	if !reached && lastErr != nil {
		return TokenPair{}, lastErr
	}
	return TokenPair{}, ErrRefreshRejected
}

type result struct {
	url        string
	status     int
	statusText string
	isJSON     bool
	body       []byte
}

func (r *result) ok() bool { return r.status >= 200 && r.status < 300 }

func (r *result) authFailure() bool {
	return r.status == http.StatusUnauthorized || r.status == http.StatusForbidden
}

func (r *result) decode(out any) error {
	if out == nil || len(bytes.TrimSpace(r.body)) == 0 {
		return nil
	}
	if !r.isJSON && !json.Valid(r.body) {
		switch target := out.(type) {
		case *string:
			*target = string(r.body)
			return nil
		case *json.RawMessage:
			encoded, _ := json.Marshal(string(r.body))
			*target = encoded
			return nil
		}
		return fmt.Errorf("decode %s: expected JSON response", r.url)
	}
	if err := json.Unmarshal(r.body, out); err != nil {
		return fmt.Errorf("decode %s: %w", r.url, err)
	}
	return nil
}

func (r *result) apiError() error {
	return &APIError{
		Status:     r.status,
		StatusText: r.statusText,
		URL:        r.url,
		Detail:     Detail(r.body, r.isJSON),
		Body:       r.body,
	}
}

func (c *Client) send(ctx context.Context, method, target string, payload []byte, access string) (*result, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, &TransportError{Method: method, URL: target, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}
	if id := requestid.FromContext(ctx); id != "" {
		req.Header.Set(requestid.Header, id)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)
	endpoint := EndpointLabel(target)
	if err != nil {
		c.observe(method, endpoint, 0, duration)
		logger.FromContext(ctx, c.logger).Debug("backend request failed",
			zap.String("method", method), zap.String("endpoint", endpoint), zap.Error(err))
		return nil, &TransportError{Method: method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		c.observe(method, endpoint, resp.StatusCode, duration)
		return nil, &TransportError{Method: method, URL: target, Err: fmt.Errorf("read body: %w", err)}
	}
	c.observe(method, endpoint, resp.StatusCode, duration)
	logger.FromContext(ctx, c.logger).Debug("backend request",
		zap.String("method", method),
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", duration))

	return &result{
		url:        target,
		status:     resp.StatusCode,
		statusText: statusText(resp),
		isJSON:     isJSONContent(resp.Header.Get("Content-Type")),
		body:       body,
	}, nil
}

func (c *Client) observe(method, endpoint string, status int, d time.Duration) {
	if c.observer != nil {
		c.observer.ObserveUpstream(method, endpoint, status, d)
	}
}

func (c *Client) recordRefresh(outcome string) {
	if c.observer != nil {
		c.observer.RecordRefresh(outcome)
	}
}

func statusText(resp *http.Response) string {
	if _, text, ok := strings.Cut(resp.Status, " "); ok && text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}

func isJSONContent(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(contentType, "json")
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

var numericSegment = regexp.MustCompile(`/\d+(/|$)`)

// EndpointLabel reduces a URL to its path with numeric ids collapsed, for
// use as a low-cardinality metric label.
func EndpointLabel(target string) string {
	path := target
	if u, err := url.Parse(target); err == nil {
		path = u.Path
	}
	for numericSegment.MatchString(path) {
		path = numericSegment.ReplaceAllString(path, "/:id$1")
	}
	return path
}
