package sync

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	gosync "sync"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"shopsync/internal/gateways/odoo"
	"shopsync/internal/logger"
	"shopsync/internal/models"
)

// externalRefPrefix + the storefront order name is the natural key
// linking a storefront order to at most one ERP order.
const externalRefPrefix = "SHOP/"

// Fallback shipping-fee product, used when no product matches the
// shipping line title.
const (
	shippingFallbackName = "Shipping Fee"
	shippingFallbackSKU  = "SHIP"
)

// States past which the connector must not touch an order.
var lockedOrderStates = map[string]bool{
	"done":   true,
	"cancel": true,
}

// ErpGateway is the slice of ERP operations order reconciliation
// needs.
type ErpGateway interface {
	FindOrderByRef(ctx context.Context, ref string) (*odoo.Order, error)
	CreateOrder(ctx context.Context, input odoo.OrderInput) (int, error)
	ReplaceOrderLines(ctx context.Context, orderID int, lines []odoo.OrderLine, note string) error
	PostOrderNote(ctx context.Context, orderID int, body string) error
	CancelOrderByRef(ctx context.Context, ref string) (bool, error)
	FindPartnerByEmail(ctx context.Context, email string) (*odoo.Partner, error)
	CreatePartner(ctx context.Context, input odoo.PartnerInput) (int, error)
	FindChildAddress(ctx context.Context, parentID int, addrType, street string) (int, error)
	CreateChildAddress(ctx context.Context, parentID int, addrType string, input odoo.PartnerInput) (int, error)
	FindProductBySKU(ctx context.Context, sku string) (*odoo.Product, error)
	FindProductByName(ctx context.Context, name string) (*odoo.Product, error)
	CreateProduct(ctx context.Context, input odoo.ProductInput) (int, error)
	ConnectorUserID() int
}

// ExternalRef derives the deterministic ERP reference for a storefront
// order name ("#1001" -> "SHOP/#1001").
func ExternalRef(orderName string) string {
	return externalRefPrefix + orderName
}

// OrderReconciler owns the idempotent Shopify->Odoo order upsert.
type OrderReconciler struct {
	erp    ErpGateway
	ledger Recorder
	db     *gorm.DB
	logger *logger.Logger

	mu       gosync.Mutex
	inFlight map[int64]struct{}
}

// NewOrderReconciler builds a reconciler. db may be nil; the
// customer-mapping record is then skipped.
func NewOrderReconciler(erp ErpGateway, ledger Recorder, db *gorm.DB, log *logger.Logger) *OrderReconciler {
	return &OrderReconciler{
		erp:      erp,
		ledger:   ledger,
		db:       db,
		logger:   log,
		inFlight: make(map[int64]struct{}),
	}
}

// Reconcile upserts one storefront order into the ERP. The same
// storefront order id is never processed twice in parallel; the loser
// returns Skipped("concurrent") without touching the ERP. Failures
// are surfaced to the caller and logged, never retried here; the
// storefront's webhook redelivery is the retry mechanism.
func (r *OrderReconciler) Reconcile(ctx context.Context, order *ExternalOrder) (Outcome, error) {
	if order.Name == "" {
		r.ledger.Record("Order", string(models.StatusSkipped), "order delivery without a name, nothing to reconcile")
		return skipped("missing order name"), nil
	}

	if !r.acquire(order.ID) {
		return skipped("concurrent"), nil
	}
	defer r.release(order.ID)

	ref := ExternalRef(order.Name)

	existing, err := r.erp.FindOrderByRef(ctx, ref)
	if err != nil {
		return r.fail(order, "checking for existing order", err)
	}

	partnerID, invoiceID, shippingID, salespersonID, err := r.resolvePartners(ctx, order)
	if err != nil {
		return r.fail(order, "resolving partner", err)
	}

	lines, err := r.buildLines(ctx, order)
	if err != nil {
		return r.fail(order, "building order lines", err)
	}
	if len(lines) == 0 {
		r.ledger.Record("Order", string(models.StatusSkipped),
			fmt.Sprintf("order %s: no valid lines, order not created", order.Name))
		return skipped("no valid lines"), nil
	}

	note := buildNote(order)

	if existing != nil {
		if lockedOrderStates[existing.State] {
			r.ledger.Record("Order", string(models.StatusSkipped),
				fmt.Sprintf("order %s is in locked state %q, delivery ignored", order.Name, existing.State))
			return skipped("locked"), nil
		}

		if err := r.erp.ReplaceOrderLines(ctx, existing.ID, lines, note); err != nil {
			return r.fail(order, "updating order", err)
		}
		audit := fmt.Sprintf("Resynced from storefront delivery of %s: %d line(s) replaced", order.Name, len(lines))
		if err := r.erp.PostOrderNote(ctx, existing.ID, audit); err != nil {
			return r.fail(order, "posting audit note", err)
		}
		r.ledger.Record("Order", string(models.StatusSuccess),
			fmt.Sprintf("order %s updated (%d lines)", order.Name, len(lines)))
		return Outcome{Action: ActionUpdated}, nil
	}

	orderID, err := r.erp.CreateOrder(ctx, odoo.OrderInput{
		PartnerID:         partnerID,
		PartnerInvoiceID:  invoiceID,
		PartnerShippingID: shippingID,
		UserID:            salespersonID,
		Ref:               ref,
		Note:              note,
		Lines:             lines,
	})
	if err != nil {
		return r.fail(order, "creating order", err)
	}

	r.ledger.Record("Order", string(models.StatusSuccess),
		fmt.Sprintf("order %s created as ERP order %d (%d lines)", order.Name, orderID, len(lines)))
	return Outcome{Action: ActionCreated}, nil
}

// CancelByName transitions the ERP order matching the storefront
// order name to cancelled, if one exists.
func (r *OrderReconciler) CancelByName(ctx context.Context, orderName string) (bool, error) {
	cancelled, err := r.erp.CancelOrderByRef(ctx, ExternalRef(orderName))
	if err != nil {
		r.ledger.Record("Order", string(models.StatusError),
			fmt.Sprintf("order %s: cancellation failed: %v", orderName, err))
		return false, err
	}
	if cancelled {
		r.ledger.Record("Order", string(models.StatusSuccess),
			fmt.Sprintf("order %s cancelled", orderName))
	} else {
		r.ledger.Record("Order", string(models.StatusSkipped),
			fmt.Sprintf("order %s: nothing to cancel", orderName))
	}
	return cancelled, nil
}

func (r *OrderReconciler) acquire(orderID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.inFlight[orderID]; busy {
		return false
	}
	r.inFlight[orderID] = struct{}{}
	return true
}

func (r *OrderReconciler) release(orderID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inFlight, orderID)
}

func (r *OrderReconciler) fail(order *ExternalOrder, step string, err error) (Outcome, error) {
	wrapped := fmt.Errorf("order %s: %s: %w", order.Name, step, err)
	r.ledger.Record("Order", string(models.StatusError), wrapped.Error())
	if r.logger != nil {
		r.logger.Error("order reconcile failed: %v", wrapped)
	}
	return Outcome{}, wrapped
}

// resolvePartners finds or creates the billed partner and the child
// invoice/delivery addresses. When the email matches a record with a
// parent link, the parent company is billed and shipped-to through
// child addresses; the matched contact's own data seeds them.
func (r *OrderReconciler) resolvePartners(ctx context.Context, order *ExternalOrder) (partnerID, invoiceID, shippingID, salespersonID int, err error) {
	partner, err := r.erp.FindPartnerByEmail(ctx, order.Email)
	if err != nil {
		return 0, 0, 0, 0, err
	}

	if partner == nil {
		input := odoo.PartnerInput{
			Name:      synthesizePartnerName(order),
			Email:     order.Email,
			IsCompany: true,
		}
		if addr := order.BillingAddress; addr != nil {
			input.Phone = addr.Phone
			input.Street = addr.Address1
			input.Street2 = addr.Address2
			input.City = addr.City
			input.Zip = addr.Zip
		}
		id, err := r.erp.CreatePartner(ctx, input)
		if err != nil {
			return 0, 0, 0, 0, err
		}
		r.rememberCustomer(order, id)
		return id, id, id, r.erp.ConnectorUserID(), nil
	}

	root := partner.ID
	if partner.ParentID != 0 {
		root = partner.ParentID
	}

	salespersonID = partner.UserID
	if salespersonID == 0 {
		salespersonID = r.erp.ConnectorUserID()
	}

	invoiceID = r.resolveChildAddress(ctx, root, "invoice", order.BillingAddress)
	shippingID = r.resolveChildAddress(ctx, root, "delivery", order.ShippingAddress)

	return root, invoiceID, shippingID, salespersonID, nil
}

// resolveChildAddress returns an existing or newly created sub-contact
// of root for the given address, falling back to root itself when the
// address is absent or creation fails. Matching is raw street
// equality; differently formatted duplicates of one address create
// separate children (known limitation).
func (r *OrderReconciler) resolveChildAddress(ctx context.Context, root int, addrType string, addr *OrderAddress) int {
	if addr == nil || addr.Address1 == "" {
		return root
	}

	id, err := r.erp.FindChildAddress(ctx, root, addrType, addr.Address1)
	if err != nil {
		if r.logger != nil {
			r.logger.Warn("child %s address lookup failed, falling back to partner %d: %v", addrType, root, err)
		}
		return root
	}
	if id != 0 {
		return id
	}

	name := addr.Name
	if name == "" {
		name = addr.Company
	}
	id, err = r.erp.CreateChildAddress(ctx, root, addrType, odoo.PartnerInput{
		Name:    name,
		Street:  addr.Address1,
		Street2: addr.Address2,
		City:    addr.City,
		Zip:     addr.Zip,
		Phone:   addr.Phone,
	})
	if err != nil {
		if r.logger != nil {
			r.logger.Warn("child %s address creation failed, falling back to partner %d: %v", addrType, root, err)
		}
		return root
	}
	return id
}

// buildLines maps storefront line items and shipping lines to ERP
// order lines. A single bad line never aborts the order: no-SKU and
// archived-product lines are skipped with a warning. A genuinely
// unknown SKU is auto-provisioned as an active storable product.
func (r *OrderReconciler) buildLines(ctx context.Context, order *ExternalOrder) ([]odoo.OrderLine, error) {
	var lines []odoo.OrderLine

	for _, item := range order.LineItems {
		if item.SKU == "" {
			r.ledger.Record("Order", string(models.StatusWarning),
				fmt.Sprintf("order %s: line %q has no SKU, skipped", order.Name, item.Name))
			continue
		}

		product, err := r.erp.FindProductBySKU(ctx, item.SKU)
		if err != nil {
			return nil, err
		}

		if product != nil && !product.Active {
			// Never attach an archived product to an order line.
			r.ledger.Record("Order", string(models.StatusWarning),
				fmt.Sprintf("order %s: SKU %s is archived in the ERP, line skipped", order.Name, item.SKU))
			continue
		}

		productID := 0
		if product == nil {
			productID, err = r.erp.CreateProduct(ctx, odoo.ProductInput{
				Name:      item.Name,
				SKU:       item.SKU,
				ListPrice: parseAmount(item.Price),
				Type:      "product",
			})
			if err != nil {
				return nil, err
			}
		} else {
			productID = product.ID
		}

		lines = append(lines, odoo.OrderLine{
			ProductID:       productID,
			Name:            item.Name,
			Quantity:        float64(item.Quantity),
			PriceUnit:       parseAmount(item.Price),
			DiscountPercent: DiscountPercent(item.Price, item.Quantity, item.TotalDiscount),
		})
	}

	for _, shipping := range order.ShippingLines {
		productID, err := r.resolveShippingProduct(ctx, shipping.Title)
		if err != nil {
			return nil, err
		}
		// Zero-cost (free shipping) lines are kept.
		lines = append(lines, odoo.OrderLine{
			ProductID: productID,
			Name:      shipping.Title,
			Quantity:  1,
			PriceUnit: parseAmount(shipping.Price),
		})
	}

	return lines, nil
}

// resolveShippingProduct finds the shipping-fee product by exact
// title, then by the generic fallback, auto-creating a zero-price
// service product when neither exists.
func (r *OrderReconciler) resolveShippingProduct(ctx context.Context, title string) (int, error) {
	product, err := r.erp.FindProductByName(ctx, title)
	if err != nil {
		return 0, err
	}
	if product != nil && product.Active {
		return product.ID, nil
	}

	product, err = r.erp.FindProductBySKU(ctx, shippingFallbackSKU)
	if err != nil {
		return 0, err
	}
	if product != nil && product.Active {
		return product.ID, nil
	}

	return r.erp.CreateProduct(ctx, odoo.ProductInput{
		Name: shippingFallbackName,
		SKU:  shippingFallbackSKU,
		Type: "service",
	})
}

func (r *OrderReconciler) rememberCustomer(order *ExternalOrder, partnerID int) {
	if r.db == nil {
		return
	}
	mapping := &models.CustomerMap{
		ShopifyCustomerID: strconv.FormatInt(order.Customer.ID, 10),
		OdooPartnerID:     partnerID,
		Email:             order.Email,
	}
	if err := r.db.Create(mapping).Error; err != nil && r.logger != nil {
		r.logger.Warn("could not record customer mapping for %s: %v", order.Email, err)
	}
}

// DiscountPercent converts an absolute line discount to the ERP's
// percentage form: totalDiscount / (unitPrice * quantity) * 100.
// Zero when price or quantity is not positive. The math stays in
// decimal end to end; floats only appear in the final result.
func DiscountPercent(unitPrice string, quantity int, totalDiscount string) float64 {
	gross := parseDecimal(unitPrice).Mul(decimal.NewFromInt(int64(quantity)))
	if !gross.IsPositive() {
		return 0
	}
	percent, _ := parseDecimal(totalDiscount).Div(gross).Mul(decimal.NewFromInt(100)).Round(4).Float64()
	return percent
}

// parseDecimal reads a storefront money string; blank or malformed
// amounts count as zero.
func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseAmount(s string) float64 {
	f, _ := parseDecimal(s).Float64()
	return f
}

// synthesizePartnerName builds a partner name when no existing record
// matches: customer name fields first, then the billing contact, then
// the order name itself.
func synthesizePartnerName(order *ExternalOrder) string {
	name := strings.TrimSpace(order.Customer.FirstName + " " + order.Customer.LastName)
	if name != "" {
		return name
	}
	if order.BillingAddress != nil {
		if order.BillingAddress.Company != "" {
			return order.BillingAddress.Company
		}
		if order.BillingAddress.Name != "" {
			return order.BillingAddress.Name
		}
	}
	if order.Email != "" {
		return order.Email
	}
	return "Storefront customer " + order.Name
}

func buildNote(order *ExternalOrder) string {
	parts := []string{}
	if order.Note != "" {
		parts = append(parts, order.Note)
	}
	if len(order.PaymentGatewayNames) > 0 {
		parts = append(parts, "Payment via: "+strings.Join(order.PaymentGatewayNames, ", "))
	}
	return strings.Join(parts, "\n")
}
