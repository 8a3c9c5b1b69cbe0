package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/client/models"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/google/uuid"
)

const apiPrefix = "/api/v1"

type HTTPClient struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *HTTPClient) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, false)
}

func (c *HTTPClient) Signup(ctx context.Context, username, password, deviceID string) (*models.AccountInResponse, error) {
	body := map[string]string{"username": username, "password": password, "deviceId": deviceID}
	var out models.AccountInResponse
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/auth/signup", body, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// Signin stores the returned access token for later calls.
func (c *HTTPClient) Signin(ctx context.Context, username, password, deviceID string) (*models.Session, error) {
	body := map[string]string{"username": username, "password": password, "deviceId": deviceID}
	var out models.Session
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/auth/signin", body, &out, false); err != nil {
		return nil, err
	}
	c.SetToken(out.AccessToken)
	return &out, nil
}

func (c *HTTPClient) RequestOTP(ctx context.Context, username string) error {
	body := map[string]string{"username": username}
	return c.do(ctx, http.MethodPost, apiPrefix+"/auth/otp", body, nil, false)
}

func (c *HTTPClient) VerifyOTP(ctx context.Context, username, otp string) error {
	body := map[string]string{"username": username, "otp": otp}
	return c.do(ctx, http.MethodPost, apiPrefix+"/auth/otp/verify", body, nil, false)
}

func (c *HTTPClient) ResetPassword(ctx context.Context, username, otp, newPassword string) error {
	body := map[string]string{"username": username, "otp": otp, "newPassword": newPassword}
	return c.do(ctx, http.MethodPost, apiPrefix+"/auth/password-reset", body, nil, false)
}

func (c *HTTPClient) Me(ctx context.Context) (*models.AccountInResponse, error) {
	var out models.AccountInResponse
	if err := c.do(ctx, http.MethodGet, apiPrefix+"/accounts/", nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) UpdateAccount(ctx context.Context, id int64, update models.AccountUpdate) (*models.AccountInResponse, error) {
	var out models.AccountInResponse
	path := apiPrefix + "/accounts/" + strconv.FormatInt(id, 10)
	if err := c.do(ctx, http.MethodPatch, path, update, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) DeleteAccount(ctx context.Context, id int64) (string, error) {
	var out models.Notification
	path := apiPrefix + "/accounts/" + strconv.FormatInt(id, 10)
	if err := c.do(ctx, http.MethodDelete, path, nil, &out, true); err != nil {
		return "", err
	}
	return out.Notification, nil
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any, authorized bool) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(common.CorrelationIDHeaderName, uuid.NewString())

	if authorized {
		token := c.Token()
		if token == "" {
			return ErrNotLoggedIn
		}
		req.Header.Set(common.AuthorizationHeaderName, "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && !errors.Is(err, io.EOF) {
		if resp.StatusCode >= http.StatusBadRequest {
			return &APIError{Status: resp.StatusCode, Code: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode, Code: http.StatusText(resp.StatusCode)}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
