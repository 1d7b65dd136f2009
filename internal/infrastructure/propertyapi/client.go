// Package propertyapi talks to the address, property and legal-registry lookup service.
package propertyapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"AgentRadar/internal/config"
	"AgentRadar/internal/domain"
	"AgentRadar/internal/ports"
)

// Client implements the validation collaborators over one JSON HTTP API.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var (
	_ ports.AddressValidator    = (*Client)(nil)
	_ ports.PropertyMatcher     = (*Client)(nil)
	_ ports.LegalEntityVerifier = (*Client)(nil)
)

// NewClient creates a reusable HTTP client.
func NewClient(cfg config.PropertyAPIConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: timeout},
	}
}

// ValidateAddresses asks the service to normalize each raw address.
func (c *Client) ValidateAddresses(ctx context.Context, addresses []string) ([]domain.ValidatedAddress, error) {
	if len(addresses) == 0 {
		return nil, nil
	}

	var resp struct {
		Results []domain.ValidatedAddress `json:"results"`
	}
	if err := c.post(ctx, "/addresses/validate", map[string]any{"addresses": addresses}, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// MatchProperties looks up properties for the valid addresses only.
func (c *Client) MatchProperties(ctx context.Context, addresses []domain.ValidatedAddress) ([]domain.PropertyMatch, error) {
	var formatted []string
	for _, a := range addresses {
		if a.Valid && a.Formatted != "" {
			formatted = append(formatted, a.Formatted)
		}
	}
	if len(formatted) == 0 {
		return nil, nil
	}

	var resp struct {
		Matches []domain.PropertyMatch `json:"matches"`
	}
	if err := c.post(ctx, "/properties/match", map[string]any{"addresses": formatted}, &resp); err != nil {
		return nil, err
	}
	return resp.Matches, nil
}

// VerifyEntities returns the subset of entities found in the legal registry.
func (c *Client) VerifyEntities(ctx context.Context, entities domain.ExtractedEntities) (domain.ExtractedEntities, error) {
	verified := domain.NewExtractedEntities()
	if len(entities.LegalFirms) == 0 && len(entities.Executors) == 0 {
		return verified, nil
	}

	var resp domain.ExtractedEntities
	if err := c.post(ctx, "/entities/verify", entities, &resp); err != nil {
		return verified, err
	}

	// The service may omit groups; keep every group non-nil.
	verified.Executors = append(verified.Executors, resp.Executors...)
	verified.LegalFirms = append(verified.LegalFirms, resp.LegalFirms...)
	verified.Contacts = append(verified.Contacts, resp.Contacts...)
	verified.Addresses = append(verified.Addresses, resp.Addresses...)
	verified.KeyPersons = append(verified.KeyPersons, resp.KeyPersons...)
	return verified, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: do request: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %s", path, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%s: decode response: %w", path, err)
	}
	return nil
}
