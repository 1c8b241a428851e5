package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	ierr "chatbot-billing-be/internal/pkg/errors"
	"chatbot-billing-be/internal/pkg/logger"

	"github.com/hashicorp/go-retryablehttp"
)

// Client talks to the PayPal REST API with client-credentials OAuth.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	http         *retryablehttp.Client
	now          func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func NewClient(baseURL, clientID, clientSecret string, log logger.ILogger) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = 15 * time.Second
	rc.Logger = leveledLogger{log}

	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		http:         rc,
		now:          time.Now,
	}
}

func apiError(op string, err error) error {
	return ierr.WithError(err).WithHintf("PayPal %s failed", op).Mark(ierr.ErrHTTPClient)
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expiresAt) {
		return c.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}.Encode()
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/oauth2/token", strings.NewReader(form))
	if err != nil {
		return "", apiError("oauth", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := c.do(req, &out); err != nil {
		return "", apiError("oauth", err)
	}
	if out.AccessToken == "" {
		return "", apiError("oauth", fmt.Errorf("empty access token"))
	}

	c.token = out.AccessToken
	// Refresh a minute early.
	c.expiresAt = c.now().Add(time.Duration(out.ExpiresIn)*time.Second - time.Minute)
	return c.token, nil
}

type VerifyRequest struct {
	AuthAlgo         string          `json:"auth_algo"`
	CertURL          string          `json:"cert_url"`
	TransmissionID   string          `json:"transmission_id"`
	TransmissionSig  string          `json:"transmission_sig"`
	TransmissionTime string          `json:"transmission_time"`
	WebhookID        string          `json:"webhook_id"`
	WebhookEvent     json.RawMessage `json:"webhook_event"`
}

// VerifyWebhookSignature returns the verification_status PayPal reports.
func (c *Client) VerifyWebhookSignature(ctx context.Context, in VerifyRequest) (string, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(in)
	if err != nil {
		return "", apiError("verify webhook signature", err)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/notifications/verify-webhook-signature", bytes.NewReader(body))
	if err != nil {
		return "", apiError("verify webhook signature", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	var out struct {
		VerificationStatus string `json:"verification_status"`
	}
	if err := c.do(req, &out); err != nil {
		return "", apiError("verify webhook signature", err)
	}
	return out.VerificationStatus, nil
}

func (c *Client) do(req *retryablehttp.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return json.Unmarshal(raw, out)
}

// leveledLogger routes retryablehttp's logs into the service logger.
type leveledLogger struct {
	log logger.ILogger
}

func fields(keysAndValues []interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		out[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return out
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.log.Error("PAYPAL", msg, fields(kv)) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.log.Debug("PAYPAL", msg, fields(kv)) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.log.Debug("PAYPAL", msg, fields(kv)) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.log.Warn("PAYPAL", msg, fields(kv)) }
