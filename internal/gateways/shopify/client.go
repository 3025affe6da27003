package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const apiVersion = "2024-01"

// Client talks to the Shopify Admin API for one store. REST is used
// for product/inventory writes, GraphQL for SKU-scoped lookups.
type Client struct {
	shopDomain  string
	accessToken string
	httpClient  *http.Client
}

func NewClient(shopDomain, accessToken string) *Client {
	return &Client{
		shopDomain:  shopDomain,
		accessToken: accessToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) baseURL() string {
	return fmt.Sprintf("https://%s/admin/api/%s", c.shopDomain, apiVersion)
}

func (c *Client) do(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL()+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API request failed: %d - %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// graphql posts a query to the Admin GraphQL endpoint and returns the
// decoded envelope.
func (c *Client) graphql(ctx context.Context, query string, variables map[string]any) (map[string]any, error) {
	requestBody, err := json.Marshal(map[string]any{
		"query":     query,
		"variables": variables,
	})
	if err != nil {
		return nil, fmt.Errorf("error marshalling GraphQL request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL()+"/graphql.json", bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("error creating GraphQL request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error requesting GraphQL query: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading GraphQL response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("non-200 response from GraphQL query: [%s] %s", resp.Status, respBody)
	}

	var envelope map[string]any
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("invalid response format from GraphQL query: %s", respBody)
	}
	if errs, ok := envelope["errors"]; ok {
		return nil, fmt.Errorf("GraphQL query returned errors: %v", errs)
	}
	return envelope, nil
}
