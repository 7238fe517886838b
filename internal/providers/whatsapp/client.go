package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/smallbiznis/invoicenotify/internal/clock"
	"github.com/smallbiznis/invoicenotify/internal/config"
	"github.com/smallbiznis/invoicenotify/internal/observability/tracing"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	ErrNotConfigured       = errors.New("whatsapp_not_configured")
	ErrProviderUnavailable = errors.New("whatsapp_unavailable")
	ErrProviderRejected    = errors.New("whatsapp_request_rejected")
)

const (
	connectionTimeout = 10 * time.Second
	templatesTimeout  = 15 * time.Second
)

// Limiter paces provider calls.
type Limiter interface {
	Wait(ctx context.Context) error
}

type Params struct {
	fx.In

	Cfg     config.Config
	Log     *zap.Logger
	Clock   clock.Clock  `optional:"true"`
	Limiter Limiter      `optional:"true"`
	HTTP    *http.Client `name:"whatsapp" optional:"true"`
}

// Client talks to the WhatsApp Cloud API.
type Client struct {
	cfg     config.WhatsAppConfig
	log     *zap.Logger
	clock   clock.Clock
	limiter Limiter
	http    *http.Client
}

func New(p Params) *Client {
	cfg := p.Cfg.WhatsApp
	cfg.APIURL = strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	if cfg.Language == "" {
		cfg.Language = "es"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}

	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	httpClient := p.HTTP
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		cfg:     cfg,
		log:     p.Log.Named("whatsapp.provider"),
		clock:   clk,
		limiter: p.Limiter,
		http:    tracing.WrapHTTPClient(httpClient),
	}
}

// ValidateConfiguration lists missing credentials. Empty means ready.
func (c *Client) ValidateConfiguration() []string {
	var problems []string
	if strings.TrimSpace(c.cfg.AccessToken) == "" {
		problems = append(problems, "access token is not configured (WHATSAPP_ACCESS_TOKEN)")
	}
	if strings.TrimSpace(c.cfg.PhoneNumberID) == "" {
		problems = append(problems, "phone number id is not configured (WHATSAPP_PHONE_NUMBER_ID)")
	}
	if c.cfg.APIURL == "" {
		problems = append(problems, "api url is not configured (WHATSAPP_API_URL)")
	}
	return problems
}

// Configured returns an error wrapping ErrNotConfigured when credentials are
// missing.
func (c *Client) Configured() error {
	if problems := c.ValidateConfiguration(); len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrNotConfigured, strings.Join(problems, ", "))
	}
	return nil
}

// SendTemplate delivers templateName to every phone in order and returns one
// result per phone. It never fails as a whole: configuration problems,
// invalid numbers and provider errors all become result entries.
func (c *Client) SendTemplate(ctx context.Context, phones []string, templateName string, params []any) []DeliveryResult {
	results := make([]DeliveryResult, 0, len(phones))

	if err := c.Configured(); err != nil {
		message := "invalid configuration: " + strings.Join(c.ValidateConfiguration(), ", ")
		now := c.clock.Now()
		for _, phone := range phones {
			results = append(results, DeliveryResult{
				Phone:     phone,
				Error:     message,
				ErrorCode: ErrorCodeConfig,
				Timestamp: now,
			})
		}
		c.log.Warn("whatsapp.send.config_error", zap.String("template", templateName), zap.Error(err))
		return results
	}

	for _, phone := range phones {
		results = append(results, c.sendOne(ctx, phone, templateName, params))
	}
	return results
}

func (c *Client) sendOne(ctx context.Context, phone, templateName string, params []any) (result DeliveryResult) {
	result = DeliveryResult{Phone: phone}
	defer func() {
		if r := recover(); r != nil {
			result.Success = false
			result.MessageID = ""
			result.Error = fmt.Sprintf("panic: %v", r)
			result.ErrorCode = ErrorCodeException
			result.Timestamp = c.clock.Now()
			c.log.Error("whatsapp.send.panic", zap.String("template", templateName), zap.Any("panic", r))
		}
	}()

	clean, ok := NormalizePhone(phone, c.cfg.DefaultCountryCode)
	if !ok {
		result.Error = "invalid phone number"
		result.ErrorCode = ErrorCodeInvalidPhone
		result.Timestamp = c.clock.Now()
		return result
	}
	result.CleanPhone = clean

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			result.Error = err.Error()
			result.ErrorCode = ErrorCodeException
			result.Timestamp = c.clock.Now()
			return result
		}
	}

	resp, status, err := c.postMessage(ctx, buildTemplatePayload(clean, templateName, c.cfg.Language, params))
	result.StatusCode = status
	result.Timestamp = c.clock.Now()

	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			result.Error = apiErr.Message
			result.ErrorCode = apiErr.Code
		} else {
			result.Error = err.Error()
			result.ErrorCode = ErrorCodeException
		}
		c.log.Warn("whatsapp.send.failed",
			zap.String("phone", maskPhone(clean)),
			zap.String("template", templateName),
			zap.Int("status_code", status),
			zap.String("error_code", result.ErrorCode),
			zap.String("error", result.Error),
		)
		return result
	}

	result.Success = true
	if len(resp.Messages) > 0 {
		result.MessageID = resp.Messages[0].ID
	}
	c.log.Info("whatsapp.send.sent",
		zap.String("phone", maskPhone(clean)),
		zap.String("template", templateName),
		zap.String("message_id", result.MessageID),
	)
	return result
}

// postMessage retries network failures, throttling and 5xx responses with a
// constant wait. Other 4xx responses are final.
func (c *Client) postMessage(ctx context.Context, payload templatePayload) (sendResponse, int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return sendResponse{}, 0, err
	}
	endpoint := c.cfg.APIURL + "/" + c.cfg.PhoneNumberID + "/messages"

	lastStatus := 0
	operation := func() (sendResponse, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return sendResponse{}, backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			lastStatus = 0
			return sendResponse{}, err
		}
		defer resp.Body.Close()
		lastStatus = resp.StatusCode

		if resp.StatusCode >= http.StatusBadRequest {
			apiErr := decodeAPIError(resp)
			if isTransientStatus(resp.StatusCode) {
				return sendResponse{}, apiErr
			}
			return sendResponse{}, backoff.Permanent(apiErr)
		}

		var out sendResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && !errors.Is(err, io.EOF) {
			return sendResponse{}, backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		return out, nil
	}

	wait := c.cfg.RetryWait
	if wait <= 0 {
		wait = time.Second
	}
	out, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(wait)),
		backoff.WithMaxTries(uint(c.cfg.Retries+1)),
	)
	return out, lastStatus, err
}

// ConnectionResult describes a reachability probe against the phone number
// resource.
type ConnectionResult struct {
	Success    bool           `json:"success"`
	StatusCode int            `json:"status_code,omitempty"`
	PhoneInfo  map[string]any `json:"phone_info,omitempty"`
	Response   map[string]any `json:"response,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// TestConnection fetches the configured phone number from the provider.
func (c *Client) TestConnection(ctx context.Context) (ConnectionResult, error) {
	if err := c.Configured(); err != nil {
		return ConnectionResult{Error: err.Error()}, err
	}
	ctx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()

	status, body, err := c.get(ctx, c.cfg.APIURL+"/"+c.cfg.PhoneNumberID)
	if err != nil {
		wrapped := fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		return ConnectionResult{Error: wrapped.Error()}, wrapped
	}
	if status >= http.StatusBadRequest {
		return ConnectionResult{
			StatusCode: status,
			Response:   body,
			Error:      "provider rejected the connection test",
		}, nil
	}
	return ConnectionResult{Success: true, StatusCode: status, PhoneInfo: body}, nil
}

// Template is the approved template metadata returned by the provider.
type Template struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Status     string           `json:"status"`
	Category   string           `json:"category"`
	Language   string           `json:"language"`
	Components []map[string]any `json:"components,omitempty"`
}

// AvailableTemplates lists the message templates of the business account.
func (c *Client) AvailableTemplates(ctx context.Context) ([]Template, error) {
	if err := c.Configured(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(c.cfg.BusinessAccountID) == "" {
		return nil, fmt.Errorf("%w: business account id is not configured (WHATSAPP_BUSINESS_ACCOUNT_ID)", ErrNotConfigured)
	}
	ctx, cancel := context.WithTimeout(ctx, templatesTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.APIURL+"/"+c.cfg.BusinessAccountID+"/message_templates", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, decodeAPIError(resp)
	}

	var out struct {
		Data []Template `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode templates: %w", err)
	}
	if out.Data == nil {
		out.Data = []Template{}
	}
	return out.Data, nil
}

func (c *Client) get(ctx context.Context, endpoint string) (int, map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		return resp.StatusCode, nil, nil
	}
	return resp.StatusCode, body, nil
}

func isTransientStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}
