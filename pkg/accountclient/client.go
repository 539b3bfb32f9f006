/**
 * @description
 * This package provides a client for communicating with the account-of-record
 * service (user-service). It encapsulates the logic for fetching an account
 * view and applying signed balance deltas, mapping transport-level outcomes to
 * the two error classes the transfer saga cares about: not-found and
 * unavailable.
 *
 * @notes
 * - The upstream contract exposes no idempotency key, so callers must treat
 *   every request as at-most-maybe-once: a timed-out call's effect on the
 *   remote balance is unknown.
 * - Every request is bounded by the client timeout; a timeout surfaces as
 *   ErrUnavailable, never as success.
 */
package accountclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/instapay/transfer-service/internal/domain"
)

var (
	// ErrAccountNotFound means the upstream service does not know the account id.
	ErrAccountNotFound = errors.New("account not found")
	// ErrUnavailable covers transport failures, timeouts and 5xx responses.
	ErrUnavailable = errors.New("account service unavailable")
)

// DefaultTimeout bounds each request when no explicit timeout is configured.
const DefaultTimeout = 10 * time.Second

// Client is a client for the user-service account API. It is a stateless
// handle and safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new account service client. A non-positive timeout falls
// back to DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// accountResponse mirrors the user-service account document. The balance is
// decoded as json.Number so the decimal value never passes through a float.
type accountResponse struct {
	ID      string      `json:"_id"`
	Balance json.Number `json:"balance"`
}

// balanceDeltaRequest is the payload for the balance mutation endpoint. The
// delta is serialized as a plain decimal string; the upstream service applies
// it as a single-field increment.
type balanceDeltaRequest struct {
	Amount json.Number `json:"amount"`
}

// GetAccount fetches the current account view for the given id.
func (c *Client) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	url := fmt.Sprintf("%s/api/user/%s/", c.baseURL, id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrAccountNotFound
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var body accountResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrUnavailable, err)
	}

	balance, err := decimal.NewFromString(body.Balance.String())
	if err != nil {
		return nil, fmt.Errorf("%w: malformed balance %q", ErrUnavailable, body.Balance)
	}

	return &domain.Account{ID: body.ID, Balance: balance}, nil
}

// ApplyBalanceDelta requests the upstream service to increment the account's
// balance by the signed delta. There are no retries; without an idempotency
// key a retry could double-apply the mutation.
func (c *Client) ApplyBalanceDelta(ctx context.Context, id string, delta decimal.Decimal) error {
	url := fmt.Sprintf("%s/api/user/%s/balance", c.baseURL, id)

	body, err := json.Marshal(balanceDeltaRequest{Amount: json.Number(delta.String())})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrAccountNotFound
	case resp.StatusCode >= 400:
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	return nil
}
