package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/flowwatch/flowwatch-backend/internal/hub/domain"
)

const (
	DefaultTimeout = 30 * time.Second

	// The hub throttles aggressive clients; stay well under its ceiling
	// even when a pass fans out many trigger firings at once.
	requestsPerSecond = 10
	requestBurst      = 20
)

// Client handles communication with the hub's management API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        zerolog.Logger
}

// NewClient creates a hub client authenticating with the given bearer token.
func NewClient(baseURL, token string, log zerolog.Logger) *Client {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := oauth2.NewClient(context.Background(), src)
	httpClient.Timeout = DefaultTimeout

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst),
		log:        log.With().Str("component", "hub_client").Logger(),
	}
}

// ListFlows fetches the hub's flows, optionally filtered by broken/enabled
// state.
func (c *Client) ListFlows(ctx context.Context, filter domain.FlowFilter) ([]domain.Flow, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	u.Path = u.Path + "/api/manager/flow/flow"

	q := u.Query()
	if filter.Broken != nil {
		q.Set("broken", strconv.FormatBool(*filter.Broken))
	}
	if filter.Enabled != nil {
		q.Set("enabled", strconv.FormatBool(*filter.Enabled))
	}
	u.RawQuery = q.Encode()

	var flows []domain.Flow
	if err := c.getJSON(ctx, u.String(), &flows); err != nil {
		return nil, fmt.Errorf("list flows: %w", err)
	}
	return flows, nil
}

// ListLogicVariables fetches the hub's current logic variables.
func (c *Client) ListLogicVariables(ctx context.Context) ([]domain.LogicVariable, error) {
	var vars []domain.LogicVariable
	if err := c.getJSON(ctx, c.baseURL+"/api/manager/logic/variable", &vars); err != nil {
		return nil, fmt.Errorf("list logic variables: %w", err)
	}
	return vars, nil
}

// FireTrigger fires a trigger card on the hub with the given tokens.
func (c *Client) FireTrigger(ctx context.Context, kind string, tokens map[string]any) error {
	reqURL := c.baseURL + "/api/manager/flow/trigger/" + url.PathEscape(kind)
	if err := c.postJSON(ctx, reqURL, map[string]any{"tokens": tokens}); err != nil {
		return fmt.Errorf("fire trigger %s: %w", kind, err)
	}
	return nil
}

// CreateNotification creates a notification-center entry on the hub.
func (c *Client) CreateNotification(ctx context.Context, excerpt string) error {
	reqURL := c.baseURL + "/api/manager/notifications"
	if err := c.postJSON(ctx, reqURL, map[string]any{"excerpt": excerpt}); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, reqURL string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("hub request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode JSON: %w", err)
	}

	c.log.Debug().Str("url", reqURL).Dur("latency", time.Since(start)).Msg("hub GET")
	return nil
}

func (c *Client) postJSON(ctx context.Context, reqURL string, body any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("hub request failed: %w", err)
	}
	defer resp.Body.Close()

	return c.checkStatus(resp)
}

func (c *Client) checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return domain.ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrNotFound
	case resp.StatusCode >= 400:
		return fmt.Errorf("hub returned status %d", resp.StatusCode)
	}
	return nil
}
