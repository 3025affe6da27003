package odoo

import (
	"context"
	"fmt"
	"time"
)

const DateFormat = "2006-01-02 15:04:05"

// Partner is an Odoo res.partner with many2one links flattened.
type Partner struct {
	ID       int
	Name     string
	Email    string
	ParentID int
	UserID   int
}

type PartnerInput struct {
	Name      string
	Email     string
	Phone     string
	Street    string
	Street2   string
	City      string
	Zip       string
	IsCompany bool
}

// Product is the minimal product view line-building needs.
type Product struct {
	ID     int
	SKU    string
	Name   string
	Active bool
}

type ProductInput struct {
	Name      string
	SKU       string
	ListPrice float64
	// "product" (storable) or "service"
	Type string
}

// CatalogProduct is the field set the catalog mirror reads.
type CatalogProduct struct {
	ID          int
	TemplateID  int
	SKU         string
	Name        string
	Description string
	ListPrice   float64
	Category    string
	Vendor      string
	Tags        []string
	ImageB64    string
	Active      bool
}

// Order is an existing sale.order found by external reference.
type Order struct {
	ID    int
	State string
}

type OrderLine struct {
	ProductID       int
	Name            string
	Quantity        float64
	PriceUnit       float64
	DiscountPercent float64
}

type OrderInput struct {
	PartnerID         int
	PartnerInvoiceID  int
	PartnerShippingID int
	UserID            int
	Ref               string
	Note              string
	Lines             []OrderLine
}

// StockProduct is a product touched within the inventory lookback.
type StockProduct struct {
	ID  int
	SKU string
}

// Contact is a partner row pushed to the storefront by the customer
// mirror.
type Contact struct {
	ID    int
	Name  string
	Email string
	Phone string
	City  string
}

// Gateway exposes typed ERP operations over the JSON-RPC client.
type Gateway struct {
	client    *Client
	companyID int
	companyFn func() int
}

func NewGateway(client *Client, companyID int) *Gateway {
	return &Gateway{client: client, companyID: companyID}
}

// SetCompanySource installs a runtime company override, typically the
// saved installation settings. A source returning 0 falls back to the
// configured default.
func (g *Gateway) SetCompanySource(fn func() int) {
	g.companyFn = fn
}

func (g *Gateway) company() int {
	if g.companyFn != nil {
		if id := g.companyFn(); id != 0 {
			return id
		}
	}
	return g.companyID
}

// ConnectorUserID is the fallback salesperson when a partner has no
// assigned user.
func (g *Gateway) ConnectorUserID() int {
	return g.client.UID()
}

// companyScope matches records owned by the configured company or
// shared (company-less) records.
func (g *Gateway) companyScope() []any {
	companyID := g.company()
	if companyID == 0 {
		return nil
	}
	return []any{"|", []any{"company_id", "=", companyID}, []any{"company_id", "=", false}}
}

func (g *Gateway) FindPartnerByEmail(ctx context.Context, email string) (*Partner, error) {
	if email == "" {
		return nil, nil
	}
	records, err := g.client.SearchRead(ctx, "res.partner",
		[]any{[]any{"email", "=", email}, []any{"active", "=", true}},
		[]string{"id", "name", "email", "parent_id", "user_id"}, 1, nil)
	if err != nil {
		return nil, fmt.Errorf("searching partner by email %s: %w", email, err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return partnerFromRecord(records[0]), nil
}

func partnerFromRecord(record map[string]any) *Partner {
	return &Partner{
		ID:       ScalarID(record["id"]),
		Name:     AsString(record["name"]),
		Email:    AsString(record["email"]),
		ParentID: ScalarID(record["parent_id"]),
		UserID:   ScalarID(record["user_id"]),
	}
}

func (g *Gateway) CreatePartner(ctx context.Context, input PartnerInput) (int, error) {
	data := map[string]any{
		"name":       input.Name,
		"email":      input.Email,
		"phone":      input.Phone,
		"street":     input.Street,
		"street2":    input.Street2,
		"city":       input.City,
		"zip":        input.Zip,
		"is_company": input.IsCompany,
	}
	id, err := g.client.Create(ctx, "res.partner", data, nil)
	if err != nil {
		return 0, fmt.Errorf("creating partner %s: %w", input.Name, err)
	}
	return id, nil
}

func (g *Gateway) UpdatePartner(ctx context.Context, id int, input PartnerInput) error {
	data := map[string]any{
		"name":  input.Name,
		"email": input.Email,
	}
	if input.Phone != "" {
		data["phone"] = input.Phone
	}
	if input.City != "" {
		data["city"] = input.City
	}
	if err := g.client.Write(ctx, "res.partner", []int{id}, data); err != nil {
		return fmt.Errorf("updating partner %d: %w", id, err)
	}
	return nil
}

// FindChildAddress looks up a delivery/invoice sub-contact keyed by
// (parent, type, street). Street comparison is raw string equality,
// so the same address formatted differently creates a second child.
func (g *Gateway) FindChildAddress(ctx context.Context, parentID int, addrType, street string) (int, error) {
	ids, err := g.client.SearchIds(ctx, "res.partner", []any{
		[]any{"parent_id", "=", parentID},
		[]any{"type", "=", addrType},
		[]any{"street", "=", street},
	}, nil)
	if err != nil {
		return 0, fmt.Errorf("searching %s address under partner %d: %w", addrType, parentID, err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return ids[0], nil
}

func (g *Gateway) CreateChildAddress(ctx context.Context, parentID int, addrType string, input PartnerInput) (int, error) {
	data := map[string]any{
		"parent_id": parentID,
		"type":      addrType,
		"name":      input.Name,
		"street":    input.Street,
		"street2":   input.Street2,
		"city":      input.City,
		"zip":       input.Zip,
		"phone":     input.Phone,
	}
	id, err := g.client.Create(ctx, "res.partner", data, nil)
	if err != nil {
		return 0, fmt.Errorf("creating %s address under partner %d: %w", addrType, parentID, err)
	}
	return id, nil
}

// FindProductBySKU searches by internal reference with active_test
// disabled so archived products are visible to the caller.
func (g *Gateway) FindProductBySKU(ctx context.Context, sku string) (*Product, error) {
	domain := []any{[]any{"default_code", "=", sku}}
	domain = append(domain, g.companyScope()...)
	records, err := g.client.SearchRead(ctx, "product.product", domain,
		[]string{"id", "default_code", "name", "active"}, 1,
		map[string]any{"active_test": false})
	if err != nil {
		return nil, fmt.Errorf("searching product by sku %s: %w", sku, err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &Product{
		ID:     ScalarID(records[0]["id"]),
		SKU:    AsString(records[0]["default_code"]),
		Name:   AsString(records[0]["name"]),
		Active: AsBool(records[0]["active"]),
	}, nil
}

// FindProductByName matches active products by exact name, used for
// shipping-fee resolution.
func (g *Gateway) FindProductByName(ctx context.Context, name string) (*Product, error) {
	records, err := g.client.SearchRead(ctx, "product.product",
		[]any{[]any{"name", "=", name}},
		[]string{"id", "default_code", "name", "active"}, 1, nil)
	if err != nil {
		return nil, fmt.Errorf("searching product by name %s: %w", name, err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &Product{
		ID:     ScalarID(records[0]["id"]),
		SKU:    AsString(records[0]["default_code"]),
		Name:   AsString(records[0]["name"]),
		Active: AsBool(records[0]["active"]),
	}, nil
}

func (g *Gateway) CreateProduct(ctx context.Context, input ProductInput) (int, error) {
	data := map[string]any{
		"name":         input.Name,
		"default_code": input.SKU,
		"list_price":   input.ListPrice,
		"type":         input.Type,
		"active":       true,
	}
	if companyID := g.company(); companyID != 0 {
		data["company_id"] = companyID
	}
	id, err := g.client.Create(ctx, "product.product", data, nil)
	if err != nil {
		return 0, fmt.Errorf("creating product %s: %w", input.SKU, err)
	}
	return id, nil
}

func (g *Gateway) FindOrderByRef(ctx context.Context, ref string) (*Order, error) {
	records, err := g.client.SearchRead(ctx, "sale.order",
		[]any{[]any{"client_order_ref", "=", ref}},
		[]string{"id", "state"}, 1, nil)
	if err != nil {
		return nil, fmt.Errorf("searching order by ref %s: %w", ref, err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &Order{
		ID:    ScalarID(records[0]["id"]),
		State: AsString(records[0]["state"]),
	}, nil
}

func orderLineCommands(lines []OrderLine) []any {
	commands := make([]any, 0, len(lines))
	for _, line := range lines {
		commands = append(commands, Command.Create(map[string]any{
			"product_id":      line.ProductID,
			"name":            line.Name,
			"product_uom_qty": line.Quantity,
			"price_unit":      line.PriceUnit,
			"discount":        line.DiscountPercent,
		}))
	}
	return commands
}

func (g *Gateway) CreateOrder(ctx context.Context, input OrderInput) (int, error) {
	data := map[string]any{
		"partner_id":          input.PartnerID,
		"partner_invoice_id":  input.PartnerInvoiceID,
		"partner_shipping_id": input.PartnerShippingID,
		"user_id":             input.UserID,
		"client_order_ref":    input.Ref,
		"note":                input.Note,
		"state":               "draft",
		"order_line":          orderLineCommands(input.Lines),
	}
	if companyID := g.company(); companyID != 0 {
		data["company_id"] = companyID
	}
	id, err := g.client.Create(ctx, "sale.order", data, nil)
	if err != nil {
		return 0, fmt.Errorf("creating order %s: %w", input.Ref, err)
	}
	return id, nil
}

// ReplaceOrderLines removes every existing line and writes the new set
// in one call, then updates the note.
func (g *Gateway) ReplaceOrderLines(ctx context.Context, orderID int, lines []OrderLine, note string) error {
	commands := append([]any{Command.Clear()}, orderLineCommands(lines)...)
	err := g.client.Write(ctx, "sale.order", []int{orderID}, map[string]any{
		"order_line": commands,
		"note":       note,
	})
	if err != nil {
		return fmt.Errorf("replacing lines on order %d: %w", orderID, err)
	}
	return nil
}

// PostOrderNote appends an audit message to the order's activity log.
func (g *Gateway) PostOrderNote(ctx context.Context, orderID int, body string) error {
	_, err := g.client.ExecuteKw(ctx, "sale.order", "message_post",
		[]any{[]any{orderID}}, map[string]any{"body": body})
	if err != nil {
		return fmt.Errorf("posting note on order %d: %w", orderID, err)
	}
	return nil
}

// CancelOrderByRef transitions the matching order to cancelled. A
// missing order is not an error; there is simply nothing to cancel.
func (g *Gateway) CancelOrderByRef(ctx context.Context, ref string) (bool, error) {
	order, err := g.FindOrderByRef(ctx, ref)
	if err != nil {
		return false, err
	}
	if order == nil {
		return false, nil
	}
	_, err = g.client.ExecuteKw(ctx, "sale.order", "action_cancel", []any{[]any{order.ID}}, nil)
	if err != nil {
		return false, fmt.Errorf("cancelling order %s: %w", ref, err)
	}
	return true, nil
}

// ListProducts returns the catalog view, optionally including archived
// products so status transitions can be detected.
func (g *Gateway) ListProducts(ctx context.Context, includeArchived bool) ([]CatalogProduct, error) {
	var opts map[string]any
	if includeArchived {
		opts = map[string]any{"active_test": false}
	}
	records, err := g.client.SearchRead(ctx, "product.product",
		[]any{[]any{"default_code", "!=", false}},
		[]string{"id", "product_tmpl_id", "default_code", "name", "description_sale",
			"list_price", "categ_id", "product_tag_ids", "image_1024", "active"},
		0, opts)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}

	products := make([]CatalogProduct, 0, len(records))
	tagIDs := map[int]bool{}
	templateIDs := make([]int, 0, len(records))
	for _, record := range records {
		product := CatalogProduct{
			ID:          ScalarID(record["id"]),
			TemplateID:  ScalarID(record["product_tmpl_id"]),
			SKU:         AsString(record["default_code"]),
			Name:        AsString(record["name"]),
			Description: AsString(record["description_sale"]),
			ListPrice:   AsFloat(record["list_price"]),
			Category:    LinkedName(record["categ_id"]),
			ImageB64:    AsString(record["image_1024"]),
			Active:      AsBool(record["active"]),
		}
		for _, id := range idList(record["product_tag_ids"]) {
			tagIDs[id] = true
		}
		templateIDs = append(templateIDs, product.TemplateID)
		products = append(products, product)
	}

	tagNames, err := g.tagNames(ctx, tagIDs)
	if err != nil {
		return nil, err
	}
	vendors, err := g.templateVendors(ctx, templateIDs)
	if err != nil {
		return nil, err
	}
	for i := range products {
		record := records[i]
		for _, id := range idList(record["product_tag_ids"]) {
			if name := tagNames[id]; name != "" {
				products[i].Tags = append(products[i].Tags, name)
			}
		}
		products[i].Vendor = vendors[products[i].TemplateID]
	}
	return products, nil
}

func idList(v any) []int {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	ids := make([]int, 0, len(list))
	for _, item := range list {
		if id, ok := item.(float64); ok {
			ids = append(ids, int(id))
		}
	}
	return ids
}

func (g *Gateway) tagNames(ctx context.Context, tagIDs map[int]bool) (map[int]string, error) {
	names := map[int]string{}
	if len(tagIDs) == 0 {
		return names, nil
	}
	ids := make([]int, 0, len(tagIDs))
	for id := range tagIDs {
		ids = append(ids, id)
	}
	records, err := g.client.SearchRead(ctx, "product.tag",
		[]any{[]any{"id", "in", ids}}, []string{"id", "name"}, 0, nil)
	if err != nil {
		return nil, fmt.Errorf("reading product tags: %w", err)
	}
	for _, record := range records {
		names[ScalarID(record["id"])] = AsString(record["name"])
	}
	return names, nil
}

// templateVendors maps product templates to their first supplier's
// display name, the closest thing the ERP has to a storefront vendor.
func (g *Gateway) templateVendors(ctx context.Context, templateIDs []int) (map[int]string, error) {
	vendors := map[int]string{}
	if len(templateIDs) == 0 {
		return vendors, nil
	}
	records, err := g.client.SearchRead(ctx, "product.supplierinfo",
		[]any{[]any{"product_tmpl_id", "in", templateIDs}},
		[]string{"product_tmpl_id", "partner_id"}, 0, nil)
	if err != nil {
		return nil, fmt.Errorf("reading supplier info: %w", err)
	}
	for _, record := range records {
		templateID := ScalarID(record["product_tmpl_id"])
		if _, seen := vendors[templateID]; !seen {
			vendors[templateID] = LinkedName(record["partner_id"])
		}
	}
	return vendors, nil
}

// SetProductCategory writes the category by name, creating the
// product.category record on first use.
func (g *Gateway) SetProductCategory(ctx context.Context, productID int, category string) error {
	ids, err := g.client.SearchIds(ctx, "product.category", []any{[]any{"name", "=", category}}, nil)
	if err != nil {
		return fmt.Errorf("searching category %s: %w", category, err)
	}
	categoryID := 0
	if len(ids) > 0 {
		categoryID = ids[0]
	} else {
		categoryID, err = g.client.Create(ctx, "product.category", map[string]any{"name": category}, nil)
		if err != nil {
			return fmt.Errorf("creating category %s: %w", category, err)
		}
	}
	if err := g.client.Write(ctx, "product.product", []int{productID}, map[string]any{"categ_id": categoryID}); err != nil {
		return fmt.Errorf("assigning category %s to product %d: %w", category, productID, err)
	}
	return nil
}

// ChangedProducts returns storable products modified since the given
// time, the inventory reconciler's polling source.
func (g *Gateway) ChangedProducts(ctx context.Context, since time.Time) ([]StockProduct, error) {
	records, err := g.client.SearchRead(ctx, "product.product", []any{
		[]any{"write_date", ">", since.UTC().Format(DateFormat)},
		[]any{"type", "=", "product"},
	}, []string{"id", "default_code"}, 0, nil)
	if err != nil {
		return nil, fmt.Errorf("listing changed products: %w", err)
	}

	products := make([]StockProduct, 0, len(records))
	for _, record := range records {
		products = append(products, StockProduct{
			ID:  ScalarID(record["id"]),
			SKU: AsString(record["default_code"]),
		})
	}
	return products, nil
}

// StockQuantity sums the configured stock field across the given
// locations. Each location is read with Odoo's location context, the
// same way a warehouse-scoped read works in the backend UI.
func (g *Gateway) StockQuantity(ctx context.Context, productID int, locationIDs []int, field string) (float64, error) {
	if field == "" {
		field = "qty_available"
	}
	if len(locationIDs) == 0 {
		records, err := g.client.Read(ctx, "product.product", []int{productID}, []string{field}, nil)
		if err != nil {
			return 0, fmt.Errorf("reading stock for product %d: %w", productID, err)
		}
		if len(records) == 0 {
			return 0, nil
		}
		return AsFloat(records[0][field]), nil
	}

	var total float64
	for _, locationID := range locationIDs {
		records, err := g.client.Read(ctx, "product.product", []int{productID}, []string{field},
			map[string]any{"location": locationID})
		if err != nil {
			return 0, fmt.Errorf("reading stock for product %d at location %d: %w", productID, locationID, err)
		}
		if len(records) > 0 {
			total += AsFloat(records[0][field])
		}
	}
	return total, nil
}

// ChangedPartners returns customer partners modified since the given
// time, for the outbound half of the customer mirror.
func (g *Gateway) ChangedPartners(ctx context.Context, since time.Time) ([]Contact, error) {
	records, err := g.client.SearchRead(ctx, "res.partner", []any{
		[]any{"write_date", ">", since.UTC().Format(DateFormat)},
		[]any{"email", "!=", false},
		[]any{"customer_rank", ">", 0},
	}, []string{"id", "name", "email", "phone", "city"}, 0, nil)
	if err != nil {
		return nil, fmt.Errorf("listing changed partners: %w", err)
	}

	contacts := make([]Contact, 0, len(records))
	for _, record := range records {
		contacts = append(contacts, Contact{
			ID:    ScalarID(record["id"]),
			Name:  AsString(record["name"]),
			Email: AsString(record["email"]),
			Phone: AsString(record["phone"]),
			City:  AsString(record["city"]),
		})
	}
	return contacts, nil
}
