package token

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"group-escrow-ledger/config"
	"group-escrow-ledger/internal/core/domain"
	"group-escrow-ledger/internal/core/ports"

	"github.com/rs/zerolog"
)

// Gateway implements ports.TokenGateway over the token node's HTTP API.
//
// The node exposes account reads and a single transfer primitive:
//
//	GET  /v1/mints/{address}
//	GET  /v1/accounts/{address}
//	POST /v1/transfers
//
// Unknown mints and accounts come back as 404 and are surfaced as nil, nil so
// the guard layer can emit the precise domain error.
type Gateway struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewGateway creates a token node gateway.
func NewGateway(cfg config.TokenConfig, log zerolog.Logger) *Gateway {
	return &Gateway{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		log:     log,
	}
}

// GetMint fetches a mint record. Returns nil, nil if the address is unknown.
func (g *Gateway) GetMint(ctx context.Context, address domain.Address) (*domain.Mint, error) {
	mint := &domain.Mint{}
	found, err := g.getJSON(ctx, "/v1/mints/"+url.PathEscape(string(address)), mint)
	if err != nil || !found {
		return nil, err
	}
	return mint, nil
}

// GetAccount fetches a token-holding account. Returns nil, nil if unknown.
func (g *Gateway) GetAccount(ctx context.Context, address domain.Address) (*domain.TokenAccount, error) {
	account := &domain.TokenAccount{}
	found, err := g.getJSON(ctx, "/v1/accounts/"+url.PathEscape(string(address)), account)
	if err != nil || !found {
		return nil, err
	}
	return account, nil
}

// Transfer submits a token movement to the node. The node applies it
// atomically; a non-2xx response means nothing moved.
func (g *Gateway) Transfer(ctx context.Context, transfer ports.TokenTransfer) error {
	body, err := json.Marshal(transfer)
	if err != nil {
		return fmt.Errorf("marshal transfer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/transfers", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create transfer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("post transfer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("transfer rejected: status %d: %s", resp.StatusCode, string(msg))
	}

	g.log.Debug().
		Str("source", string(transfer.Source)).
		Str("destination", string(transfer.Destination)).
		Int64("amount", transfer.Amount).
		Msg("token transfer submitted")

	return nil
}

// getJSON fetches path and decodes the response into out.
// Returns false, nil on 404.
func (g *Gateway) getJSON(ctx context.Context, path string, out any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("get %s: status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("decode %s: %w", path, err)
	}
	return true, nil
}

// HealthCheck implements ports.HealthChecker for the token node.
type HealthCheck struct {
	gateway *Gateway
}

// NewHealthCheck creates a token node health checker.
func NewHealthCheck(gateway *Gateway) *HealthCheck {
	return &HealthCheck{gateway: gateway}
}

// Ping checks token node connectivity.
func (h *HealthCheck) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.gateway.baseURL+"/v1/health", nil)
	if err != nil {
		return err
	}
	resp, err := h.gateway.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("token node health: status %d", resp.StatusCode)
	}
	return nil
}

// Name returns the dependency name.
func (h *HealthCheck) Name() string {
	return "token-node"
}
