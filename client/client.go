package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Infraction is one flagged payment as reported by the server.
type Infraction struct {
	TxID          string `json:"txid"`
	Address       string `json:"address"`
	Amount        int64  `json:"amount"`
	DisplayAmount string `json:"display_amount"`
}

// RedeemInput describes an input spending a coin created by a flagged
// transaction. Script is the hex encoded script of the spent output.
type RedeemInput struct {
	TxID   string `json:"txid"`
	Script string `json:"script"`
	Amount int64  `json:"amount"`
}

// RedeemOutput describes one output of the spending transaction.
type RedeemOutput struct {
	Script string `json:"script"`
	Amount int64  `json:"amount"`
}

// Verdict is the server's redemption decision.
type Verdict struct {
	Verified              bool   `json:"verified"`
	Reason                string `json:"reason"`
	TotalExploited        int64  `json:"total_exploited"`
	TotalRedeemed         int64  `json:"total_redeemed"`
	TotalExploitedDisplay string `json:"total_exploited_display"`
	Index                 int    `json:"index"`
}

// RegistryStatus describes the server's loaded dataset.
type RegistryStatus struct {
	Network           string `json:"network"`
	RedemptionAddress string `json:"redemption_address"`
	Loaded            bool   `json:"loaded"`
	RequireLoaded     bool   `json:"require_loaded"`
	Records           int    `json:"records"`
	Transactions      int    `json:"transactions"`
}

// Client is the HTTP client for the coinguard service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new coinguard service client.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// IsCoinValid reports whether coins created by txid may be spent.
func (c *Client) IsCoinValid(ctx context.Context, txid string) (bool, error) {
	var resp struct {
		Valid bool `json:"valid"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/coins/"+url.PathEscape(txid), nil, &resp); err != nil {
		return false, err
	}

	c.logger.Debug("coin checked", "txid", txid, "valid", resp.Valid)
	return resp.Valid, nil
}

// GetInfractions returns the records of a flagged transaction, empty when it
// is not flagged.
func (c *Client) GetInfractions(ctx context.Context, txid string) ([]Infraction, error) {
	var resp struct {
		Infractions []Infraction `json:"infractions"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/infractions/"+url.PathEscape(txid), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Infractions, nil
}

// GetInfractionsByAddress returns every record paid to address.
func (c *Client) GetInfractionsByAddress(ctx context.Context, address string) ([]Infraction, error) {
	var resp struct {
		Infractions []Infraction `json:"infractions"`
	}
	path := "/api/v1/infractions?" + url.Values{"address": {address}}.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Infractions, nil
}

// VerifyRedemption asks the server whether recipients redeem exploited.
func (c *Client) VerifyRedemption(ctx context.Context, exploited []RedeemInput, recipients []RedeemOutput) (*Verdict, error) {
	if exploited == nil {
		exploited = []RedeemInput{}
	}
	if recipients == nil {
		recipients = []RedeemOutput{}
	}
	reqBody := map[string]interface{}{
		"exploited":  exploited,
		"recipients": recipients,
	}

	var verdict Verdict
	if err := c.do(ctx, http.MethodPost, "/api/v1/redemptions/verify", reqBody, &verdict); err != nil {
		return nil, err
	}

	c.logger.Debug("redemption verified", "verified", verdict.Verified, "reason", verdict.Reason)
	return &verdict, nil
}

// Registry returns the server's registry status.
func (c *Client) Registry(ctx context.Context) (*RegistryStatus, error) {
	var status RegistryStatus
	if err := c.do(ctx, http.MethodGet, "/api/v1/registry", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Reload asks the server to re-read its dataset source.
func (c *Client) Reload(ctx context.Context) (*RegistryStatus, error) {
	var status RegistryStatus
	if err := c.do(ctx, http.MethodPost, "/api/v1/registry/reload", nil, &status); err != nil {
		return nil, err
	}

	c.logger.Debug("registry reloaded", "records", status.Records)
	return &status, nil
}

// Health checks the server's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.parseErrorResponse(resp)
	}
	return nil
}

// do sends reqBody (if any) as JSON and decodes a 200 response into out.
func (c *Client) do(ctx context.Context, method, path string, reqBody, out interface{}) error {
	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.parseErrorResponse(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// parseErrorResponse attempts to parse an error response from the server.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	var errResp struct {
		Error string `json:"error"`
	}

	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return fmt.Errorf("request failed: %s", errResp.Error)
}
