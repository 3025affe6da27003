package shopify

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// variantBySKUQuery finds the variant and its inventory item for one
// SKU without paging the whole catalog.
const variantBySKUQuery = `
query($query: String!) {
  productVariants(first: 1, query: $query) {
    edges {
      node {
        legacyResourceId
        product { legacyResourceId }
        inventoryItem { legacyResourceId }
        inventoryQuantity
      }
    }
  }
}`

// VariantBySKU returns nil when no variant carries the SKU.
func (c *Client) VariantBySKU(ctx context.Context, sku string) (*VariantStock, error) {
	envelope, err := c.graphql(ctx, variantBySKUQuery, map[string]any{
		"query": fmt.Sprintf("sku:%s", sku),
	})
	if err != nil {
		return nil, fmt.Errorf("variant lookup for sku %s: %w", sku, err)
	}

	edges := dig(envelope, "data", "productVariants", "edges")
	edgeList, ok := edges.([]any)
	if !ok || len(edgeList) == 0 {
		return nil, nil
	}
	node, ok := dig(edgeList[0], "node").(map[string]any)
	if !ok {
		return nil, fmt.Errorf("variant lookup for sku %s: malformed response", sku)
	}

	stock := &VariantStock{
		VariantID:       legacyID(node["legacyResourceId"]),
		ProductID:       legacyID(dig(node, "product", "legacyResourceId")),
		InventoryItemID: legacyID(dig(node, "inventoryItem", "legacyResourceId")),
	}
	if qty, ok := node["inventoryQuantity"].(float64); ok {
		stock.Available = int(qty)
	}
	return stock, nil
}

// dig walks nested map[string]any keys, returning nil on any miss.
func dig(v any, keys ...string) any {
	for _, key := range keys {
		m, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		v = m[key]
	}
	return v
}

// legacyID parses the numeric id GraphQL returns as a string.
func legacyID(v any) int64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	id, _ := strconv.ParseInt(s, 10, 64)
	return id
}

// ListProducts pages through every product on the store, any status.
func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	var all []Product
	sinceID := int64(0)
	for {
		var resp ProductsResponse
		path := fmt.Sprintf("/products.json?limit=250&status=active,draft,archived&since_id=%d", sinceID)
		if err := c.do(ctx, "GET", path, nil, &resp); err != nil {
			return nil, fmt.Errorf("listing products: %w", err)
		}
		if len(resp.Products) == 0 {
			return all, nil
		}
		all = append(all, resp.Products...)
		sinceID = resp.Products[len(resp.Products)-1].ID
	}
}

func (c *Client) CreateProduct(ctx context.Context, product *Product) (*Product, error) {
	if product.Handle == "" {
		product.Handle = Slug(product.Title)
	}
	payload := struct {
		Product *Product `json:"product"`
	}{Product: product}
	var resp struct {
		Product Product `json:"product"`
	}
	if err := c.do(ctx, "POST", "/products.json", payload, &resp); err != nil {
		return nil, fmt.Errorf("creating product %s: %w", product.Title, err)
	}
	return &resp.Product, nil
}

func (c *Client) UpdateProduct(ctx context.Context, product *Product) error {
	payload := struct {
		Product *Product `json:"product"`
	}{Product: product}
	path := fmt.Sprintf("/products/%d.json", product.ID)
	if err := c.do(ctx, "PUT", path, payload, nil); err != nil {
		return fmt.Errorf("updating product %d: %w", product.ID, err)
	}
	return nil
}

// ArchiveProduct flips the product status; archived listings stay on
// the store but are hidden from every channel.
func (c *Client) ArchiveProduct(ctx context.Context, productID int64) error {
	return c.UpdateProduct(ctx, &Product{ID: productID, Status: StatusArchived})
}

// SetInventoryLevel pins the available quantity at one location.
func (c *Client) SetInventoryLevel(ctx context.Context, inventoryItemID, locationID int64, available int) error {
	payload := map[string]any{
		"location_id":       locationID,
		"inventory_item_id": inventoryItemID,
		"available":         available,
	}
	if err := c.do(ctx, "POST", "/inventory_levels/set.json", payload, nil); err != nil {
		return fmt.Errorf("setting inventory for item %d: %w", inventoryItemID, err)
	}
	return nil
}

// UpsertCustomer finds a customer by email and updates it, or creates
// a new one when absent. Returns the customer id.
func (c *Client) UpsertCustomer(ctx context.Context, customer *Customer) (int64, error) {
	var search struct {
		Customers []Customer `json:"customers"`
	}
	path := fmt.Sprintf("/customers/search.json?query=%s", url.QueryEscape("email:"+customer.Email))
	if err := c.do(ctx, "GET", path, nil, &search); err != nil {
		return 0, fmt.Errorf("searching customer %s: %w", customer.Email, err)
	}

	payload := struct {
		Customer *Customer `json:"customer"`
	}{Customer: customer}

	if len(search.Customers) > 0 {
		customer.ID = search.Customers[0].ID
		updatePath := fmt.Sprintf("/customers/%d.json", customer.ID)
		if err := c.do(ctx, "PUT", updatePath, payload, nil); err != nil {
			return 0, fmt.Errorf("updating customer %s: %w", customer.Email, err)
		}
		return customer.ID, nil
	}

	var resp struct {
		Customer Customer `json:"customer"`
	}
	if err := c.do(ctx, "POST", "/customers.json", payload, &resp); err != nil {
		return 0, fmt.Errorf("creating customer %s: %w", customer.Email, err)
	}
	return resp.Customer.ID, nil
}
