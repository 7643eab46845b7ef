// Package apiclient talks to the food-ordering backend.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Skotchmaster/food_client/internal/logging"
	"github.com/Skotchmaster/food_client/internal/models"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	HeaderRequestID = "X-Request-ID"
	maxBodyBytes    = 4 << 20
)

type TokenSource interface {
	Token() string
}

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	tokens     TokenSource
}

// New builds a client for baseURL. A zero timeout leaves requests bounded only
// by their context.
func New(baseURL string, timeout time.Duration, tokens TokenSource) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse API_BASE_URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("API_BASE_URL %q must be absolute", baseURL)
	}

	return &Client{
		baseURL: u,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: otelhttp.NewTransport(&http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			}),
		},
		tokens: tokens,
	}, nil
}

func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

type LoginResponse struct {
	Token string      `json:"token"`
	Role  models.Role `json:"role"`
}

func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	in := map[string]string{"username": username, "password": password}
	var out LoginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", in, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, &APIError{Status: http.StatusBadGateway, Message: "login response carries no token"}
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, u models.NewUser) error {
	return c.do(ctx, http.MethodPost, "/auth/register", u, nil)
}

func (c *Client) Foods(ctx context.Context) ([]models.Food, error) {
	var out []models.Food
	if err := c.do(ctx, http.MethodGet, "/foods", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateFood(ctx context.Context, in models.FoodInput) (*models.Food, error) {
	var out models.Food
	if err := c.do(ctx, http.MethodPost, "/foods", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateFood(ctx context.Context, id int64, in models.FoodInput) (*models.Food, error) {
	var out models.Food
	if err := c.do(ctx, http.MethodPut, "/foods/"+strconv.FormatInt(id, 10), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteFood(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/foods/"+strconv.FormatInt(id, 10), nil, nil)
}

func (c *Client) Orders(ctx context.Context) ([]models.Order, error) {
	var out []models.Order
	if err := c.do(ctx, http.MethodGet, "/orders", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type orderReceipt struct {
	OrderID json.RawMessage `json:"orderId"`
	ID      json.RawMessage `json:"id"`
}

func (r orderReceipt) id() string {
	for _, raw := range []json.RawMessage{r.OrderID, r.ID} {
		s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
		if s != "" && s != "null" {
			return s
		}
	}
	return ""
}

// PlaceOrder returns the backend's order id, read from orderId or id.
func (c *Client) PlaceOrder(ctx context.Context, req models.OrderRequest) (string, error) {
	var out orderReceipt
	if err := c.do(ctx, http.MethodPost, "/orders/checkout", req, &out); err != nil {
		return "", err
	}
	return out.id(), nil
}

func (c *Client) UpdateOrderStatus(ctx context.Context, id int64, status models.OrderStatus) (*models.Order, error) {
	in := map[string]models.OrderStatus{"status": status}
	var out models.Order
	if err := c.do(ctx, http.MethodPut, "/orders/"+strconv.FormatInt(id, 10), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteOrder(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/orders/"+strconv.FormatInt(id, 10), nil, nil)
}

func (c *Client) Users(ctx context.Context) ([]models.User, error) {
	var out []models.User
	if err := c.do(ctx, http.MethodGet, "/users", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateUser(ctx context.Context, u models.NewUser) error {
	return c.do(ctx, http.MethodPost, "/users", u, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderRequestID, reqID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	l := logging.FromContext(ctx).With("method", method, "path", path, "request_id", reqID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		l.Error("backend_request_error", "error", err)
		return fmt.Errorf("%s %s: %w: %v", method, path, ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%s %s: read response: %w: %v", method, path, ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newAPIError(resp.StatusCode, raw)
		l.Warn("backend_request_failed", "status", resp.StatusCode, "error", apiErr.Message)
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
