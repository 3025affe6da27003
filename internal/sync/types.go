package sync

// ExternalOrder is the storefront order payload as delivered by the
// webhook. It is immutable per delivery; the storefront redelivers the
// whole payload with the same id on update.
type ExternalOrder struct {
	ID                  int64          `json:"id"`
	Name                string         `json:"name"`
	Email               string         `json:"email"`
	Note                string         `json:"note"`
	Customer            OrderCustomer  `json:"customer"`
	LineItems           []LineItem     `json:"line_items"`
	ShippingLines       []ShippingLine `json:"shipping_lines"`
	PaymentGatewayNames []string       `json:"payment_gateway_names"`
	BillingAddress      *OrderAddress  `json:"billing_address"`
	ShippingAddress     *OrderAddress  `json:"shipping_address"`
}

type OrderCustomer struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// LineItem carries money fields as strings, the way the storefront
// serializes them.
type LineItem struct {
	SKU           string `json:"sku"`
	Name          string `json:"name"`
	Quantity      int    `json:"quantity"`
	Price         string `json:"price"`
	TotalDiscount string `json:"total_discount"`
}

type ShippingLine struct {
	Title string `json:"title"`
	Price string `json:"price"`
}

type OrderAddress struct {
	Name     string `json:"name"`
	Company  string `json:"company"`
	Address1 string `json:"address1"`
	Address2 string `json:"address2"`
	City     string `json:"city"`
	Zip      string `json:"zip"`
	Phone    string `json:"phone"`
}

// ExternalCustomer is the storefront customer webhook payload.
type ExternalCustomer struct {
	ID             int64         `json:"id"`
	Email          string        `json:"email"`
	FirstName      string        `json:"first_name"`
	LastName       string        `json:"last_name"`
	Phone          string        `json:"phone"`
	DefaultAddress *OrderAddress `json:"default_address"`
}

// Action is the reconciliation result kind.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionSkipped Action = "skipped"
)

// Outcome is what a single reconciliation did; Reason is set for
// skips ("concurrent", "locked", "no valid lines", ...).
type Outcome struct {
	Action Action
	Reason string
}

func skipped(reason string) Outcome {
	return Outcome{Action: ActionSkipped, Reason: reason}
}
