package shopify

// Product statuses used by the Admin API.
const (
	StatusActive   = "active"
	StatusArchived = "archived"
)

type Product struct {
	ID          int64     `json:"id,omitempty"`
	Title       string    `json:"title,omitempty"`
	BodyHTML    string    `json:"body_html,omitempty"`
	Vendor      string    `json:"vendor,omitempty"`
	ProductType string    `json:"product_type,omitempty"`
	Handle      string    `json:"handle,omitempty"`
	Status      string    `json:"status,omitempty"`
	Tags        string    `json:"tags,omitempty"`
	Variants    []Variant `json:"variants,omitempty"`
	Images      []Image   `json:"images,omitempty"`
}

type Variant struct {
	ID              int64  `json:"id,omitempty"`
	ProductID       int64  `json:"product_id,omitempty"`
	SKU             string `json:"sku,omitempty"`
	Price           string `json:"price,omitempty"`
	InventoryItemID int64  `json:"inventory_item_id,omitempty"`
}

type Image struct {
	ID  int64  `json:"id,omitempty"`
	Src string `json:"src,omitempty"`
	// Attachment carries base64 image data on create/update.
	Attachment string `json:"attachment,omitempty"`
}

type ProductsResponse struct {
	Products []Product `json:"products"`
}

type Customer struct {
	ID        int64  `json:"id,omitempty"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// VariantStock is the SKU-scoped lookup result the inventory
// reconciler works against.
type VariantStock struct {
	VariantID       int64
	ProductID       int64
	InventoryItemID int64
	Available       int
}
