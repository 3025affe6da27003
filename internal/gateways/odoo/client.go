package odoo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Command builds Odoo x2many command triplets for relational writes.
type command struct{}

func (c *command) Create(values map[string]any) []any {
	return []any{0, 0, values}
}
func (c *command) Update(id int, values map[string]any) []any {
	return []any{1, id, values}
}
func (c *command) Delete(id int) []any {
	return []any{2, id, 0}
}
func (c *command) Clear() []any {
	return []any{5, 0, 0}
}
func (c *command) Set(ids []int) []any {
	return []any{6, 0, ids}
}

var Command command

// Client is an authenticated Odoo JSON-RPC session. Credentials are
// resolved once at construction; every call shares the uid.
type Client struct {
	url        string
	db         string
	password   string
	uid        int
	httpClient *http.Client
}

func NewClient(url, db, username, password string) (*Client, error) {
	if url == "" || db == "" || username == "" || password == "" {
		return nil, fmt.Errorf("invalid or incomplete Odoo credentials")
	}
	c := &Client{
		url:      url,
		db:       db,
		password: password,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	result, err := c.rpc(context.Background(), "common", "login", []any{db, username, password})
	if err != nil {
		return nil, fmt.Errorf("odoo authentication failed: %w", err)
	}
	uid, ok := result.(float64)
	if !ok || uid == 0 {
		return nil, fmt.Errorf("odoo authentication rejected for user %s", username)
	}
	c.uid = int(uid)
	return c, nil
}

// UID returns the authenticated connector user id.
func (c *Client) UID() int {
	return c.uid
}

func (c *Client) rpc(ctx context.Context, service, method string, args []any) (any, error) {
	body := map[string]any{
		"jsonrpc": "2.0",
		"method":  "call",
		"id":      c.uid,
		"params": map[string]any{
			"service": service,
			"method":  method,
			"args":    args,
		},
	}

	bodyJSON, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("could not serialize Odoo JSON-RPC call: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/jsonrpc", bytes.NewBuffer(bodyJSON))
	if err != nil {
		return nil, fmt.Errorf("could not build Odoo JSON-RPC request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request error during Odoo JSON-RPC call: %w", err)
	}
	defer response.Body.Close()

	rBody, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response from Odoo JSON-RPC call: %w", err)
	}

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("non-200 response from Odoo JSON-RPC call: [%s] %s", response.Status, string(rBody))
	}

	rJSON := map[string]any{}
	if err := json.Unmarshal(rBody, &rJSON); err != nil {
		return nil, fmt.Errorf("invalid json response from Odoo JSON-RPC call: %s: %w", string(rBody), err)
	}

	if rError, exists := rJSON["error"]; exists {
		rErrorJSON, err := json.Marshal(rError)
		if err != nil {
			return nil, fmt.Errorf("error received from Odoo JSON-RPC call: %v", rError)
		}
		return nil, fmt.Errorf("error received from Odoo JSON-RPC call: %s", rErrorJSON)
	}

	result, ok := rJSON["result"]
	if !ok {
		return nil, fmt.Errorf("result not found in response from Odoo JSON-RPC call: %s", string(rBody))
	}

	return result, nil
}

func (c *Client) ExecuteKw(ctx context.Context, model, method string, args []any, kwargs map[string]any) (any, error) {
	if kwargs == nil {
		kwargs = map[string]any{}
	}
	return c.rpc(ctx, "object", "execute_kw", []any{c.db, c.uid, c.password, model, method, args, kwargs})
}

func (c *Client) SearchRead(ctx context.Context, model string, domain []any, fields []string, limit int, context map[string]any) ([]map[string]any, error) {
	kwargs := map[string]any{
		"fields": fields,
	}
	if limit > 0 {
		kwargs["limit"] = limit
	}
	if context != nil {
		kwargs["context"] = context
	}
	records, err := c.ExecuteKw(ctx, model, "search_read", []any{domain}, kwargs)
	if err != nil {
		return nil, err
	}

	recordsListAny, ok := records.([]any)
	if !ok {
		return nil, fmt.Errorf("search_read result is not valid")
	}

	recordsListMap := make([]map[string]any, len(recordsListAny))
	for i, record := range recordsListAny {
		recordMap, ok := record.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("search_read result values are not valid")
		}
		recordsListMap[i] = recordMap
	}

	return recordsListMap, nil
}

func (c *Client) SearchIds(ctx context.Context, model string, domain []any, context map[string]any) ([]int, error) {
	records, err := c.SearchRead(ctx, model, domain, []string{"id"}, 0, context)
	if err != nil {
		return nil, err
	}

	ids := make([]int, len(records))
	for i, record := range records {
		id, ok := record["id"].(float64)
		if !ok {
			return nil, fmt.Errorf("invalid search result, element %d is %T", i, record["id"])
		}
		ids[i] = int(id)
	}

	return ids, nil
}

func (c *Client) Create(ctx context.Context, model string, data map[string]any, context map[string]any) (int, error) {
	kwargs := map[string]any{}
	if context != nil {
		kwargs["context"] = context
	}
	result, err := c.ExecuteKw(ctx, model, "create", []any{data}, kwargs)
	if err != nil {
		return 0, err
	}

	id, ok := result.(float64)
	if !ok {
		return 0, fmt.Errorf("invalid result from create, expected number, got %T", result)
	}

	return int(id), nil
}

func (c *Client) Write(ctx context.Context, model string, ids []int, data map[string]any) error {
	result, err := c.ExecuteKw(ctx, model, "write", []any{ids, data}, nil)
	if err != nil {
		return err
	}

	if _, ok := result.(bool); !ok {
		return fmt.Errorf("invalid result from write, expected boolean, got %T", result)
	}

	return nil
}

func (c *Client) Read(ctx context.Context, model string, ids []int, fields []string, context map[string]any) ([]map[string]any, error) {
	kwargs := map[string]any{"fields": fields}
	if context != nil {
		kwargs["context"] = context
	}
	records, err := c.ExecuteKw(ctx, model, "read", []any{ids}, kwargs)
	if err != nil {
		return nil, err
	}

	recordsListAny, ok := records.([]any)
	if !ok {
		return nil, fmt.Errorf("read result is not valid")
	}

	recordsListMap := make([]map[string]any, len(recordsListAny))
	for i, record := range recordsListAny {
		recordMap, ok := record.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("read result values are not valid")
		}
		recordsListMap[i] = recordMap
	}

	return recordsListMap, nil
}
