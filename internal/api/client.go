// Package api is the client for the remote device-control service. Every
// call returns a classified error (rate-limited, auth-invalid, transient
// or generic) so callers can branch without string matching.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Remote response codes.
const (
	codeOK          = 1
	codeSystemBusy  = 1000 // known intermittent login defect upstream
	codeAuthInvalid = 2001
	codeRateLimited = 3044
)

// DefaultBaseURL is the production endpoint of the device-control service.
const DefaultBaseURL = "https://api.lume-home.io"

// Client talks to the device-control service. Construct one per command
// invocation; there is no shared singleton. The embedded limiter paces
// calls so a multi-step command stays under the remote rate limit.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter

	accessToken  string
	refreshToken string
}

// NewClient creates a client for the given endpoint. A zero timeout
// defaults to 30s, a zero rps disables client-side pacing.
func NewClient(baseURL string, timeout time.Duration, rps float64) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// SetTokens installs a token pair on the client. Subsequent calls
// authenticate with the access token.
func (c *Client) SetTokens(pair TokenPair) {
	c.accessToken = pair.AccessToken
	c.refreshToken = pair.RefreshToken
}

// envelope is the common response wrapper of the remote service. raw keeps
// the full body around for responses that put fields beside code/msg
// instead of inside data.
type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`

	raw []byte
}

func (c *Client) post(ctx context.Context, path string, payload any, headers map[string]string) (*envelope, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if c.accessToken != "" {
		req.Header.Set("Authorization", c.accessToken)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", path, err)
	}

	log.Debug().Str("path", path).Int("status", resp.StatusCode).Msg("Remote call")

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &Error{Kind: KindRateLimited, Message: "too many requests"}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Kind: KindGeneric, Message: fmt.Sprintf("%s returned HTTP %d", path, resp.StatusCode)}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", path, err)
	}
	if env.Code != codeOK {
		return nil, classify(env.Code, env.Msg)
	}
	env.raw = raw
	return &env, nil
}

func classify(code int, msg string) *Error {
	e := &Error{Code: code, Message: msg}
	switch code {
	case codeRateLimited:
		e.Kind = KindRateLimited
	case codeAuthInvalid:
		e.Kind = KindAuthInvalid
	case codeSystemBusy:
		e.Kind = KindTransient
	default:
		e.Kind = KindGeneric
	}
	if e.Message == "" {
		e.Message = "request rejected"
	}
	return e
}

// Login performs a password login. The service wraps the token pair in a
// data envelope on some deployments and returns it flat on others; both
// shapes are accepted.
func (c *Client) Login(ctx context.Context, creds Credentials) (TokenPair, error) {
	payload := map[string]string{
		"email":    creds.Email,
		"password": creds.Password,
	}
	headers := map[string]string{
		"Keyid":  creds.KeyID,
		"Apikey": creds.APIKey,
	}
	env, err := c.post(ctx, "/app/user/login", payload, headers)
	if err != nil {
		return TokenPair{}, err
	}

	var flat struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &flat); err != nil {
			return TokenPair{}, fmt.Errorf("decoding login response: %w", err)
		}
	}
	if flat.AccessToken == "" {
		// Older deployments return the tokens beside code/msg instead
		// of inside a data envelope.
		if err := json.Unmarshal(env.raw, &flat); err != nil {
			return TokenPair{}, fmt.Errorf("decoding login response: %w", err)
		}
	}
	if flat.AccessToken == "" {
		return TokenPair{}, &Error{Kind: KindGeneric, Message: "login response carried no access token"}
	}
	return TokenPair{AccessToken: flat.AccessToken, RefreshToken: flat.RefreshToken}, nil
}

// ListDevices returns every device bound to the account. It doubles as
// the lightweight verification call for cached tokens.
func (c *Client) ListDevices(ctx context.Context) ([]Device, error) {
	env, err := c.post(ctx, "/app/v2/device/list", map[string]string{}, nil)
	if err != nil {
		return nil, err
	}
	var data struct {
		Devices []Device `json:"devices"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("decoding device list: %w", err)
	}
	return data.Devices, nil
}

// DeviceInfo returns the current reported state of one device.
func (c *Client) DeviceInfo(ctx context.Context, mac string) (DeviceState, error) {
	env, err := c.post(ctx, "/app/v2/device/info", map[string]string{"mac": mac}, nil)
	if err != nil {
		return DeviceState{}, err
	}
	var state DeviceState
	if err := json.Unmarshal(env.Data, &state); err != nil {
		return DeviceState{}, fmt.Errorf("decoding device info: %w", err)
	}
	return state, nil
}

// TurnOn powers a device on.
func (c *Client) TurnOn(ctx context.Context, mac, model string) error {
	return c.runAction(ctx, mac, model, "power_on")
}

// TurnOff powers a device off.
func (c *Client) TurnOff(ctx context.Context, mac, model string) error {
	return c.runAction(ctx, mac, model, "power_off")
}

func (c *Client) runAction(ctx context.Context, mac, model, action string) error {
	payload := map[string]string{"mac": mac, "model": model, "action": action}
	_, err := c.post(ctx, "/app/v2/device/run_action", payload, nil)
	return err
}

// SetBrightness sets the brightness property, 0..100.
func (c *Client) SetBrightness(ctx context.Context, mac, model string, value int) error {
	return c.setProperty(ctx, mac, model, "brightness", fmt.Sprintf("%d", value))
}

// SetColor sets the color property as a bare 6-hex-digit string.
func (c *Client) SetColor(ctx context.Context, mac, model, hex string) error {
	return c.setProperty(ctx, mac, model, "color", hex)
}

func (c *Client) setProperty(ctx context.Context, mac, model, pid, value string) error {
	payload := map[string]string{"mac": mac, "model": model, "pid": pid, "value": value}
	_, err := c.post(ctx, "/app/v2/device/set_property", payload, nil)
	return err
}
