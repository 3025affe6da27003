package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"shopsync/internal/gateways/shopify"
	"shopsync/internal/logger"
	"shopsync/internal/sync"
)

// WebhookHandler receives storefront deliveries. Responses are always
// fast 2xx once the signature checks out; the storefront's retry
// semantics are coarser than the reconciler's own idempotency, so the
// real outcome is only discoverable through the ledger.
type WebhookHandler struct {
	reconciler *sync.OrderReconciler
	customers  *sync.CustomerMirror
	secret     string
	logger     *logger.Logger
}

func NewWebhookHandler(reconciler *sync.OrderReconciler, customers *sync.CustomerMirror, secret string, logger *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		reconciler: reconciler,
		customers:  customers,
		secret:     secret,
		logger:     logger,
	}
}

// verifiedBody reads the raw payload and checks the HMAC header.
// Returns nil after writing the response when verification fails.
func (h *WebhookHandler) verifiedBody(c *gin.Context) []byte {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read payload"})
		return nil
	}
	if !shopify.VerifyWebhookSignature(h.secret, body, c.GetHeader("X-Shopify-Hmac-Sha256")) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "signature verification failed"})
		return nil
	}
	return body
}

// Orders handles orders/create and orders/updated deliveries.
func (h *WebhookHandler) Orders(c *gin.Context) {
	body := h.verifiedBody(c)
	if body == nil {
		return
	}

	var order sync.ExternalOrder
	if err := json.Unmarshal(body, &order); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order payload"})
		return
	}

	outcome, err := h.reconciler.Reconcile(c.Request.Context(), &order)
	if err != nil {
		// Internal failures still answer 200; redelivery plus the
		// existence check make the retry safe.
		h.logger.Error("order webhook for %s failed: %v", order.Name, err)
		c.JSON(http.StatusOK, gin.H{"result": "error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": string(outcome.Action), "reason": outcome.Reason})
}

// OrdersCancelled transitions the linked ERP order to cancelled.
func (h *WebhookHandler) OrdersCancelled(c *gin.Context) {
	body := h.verifiedBody(c)
	if body == nil {
		return
	}

	var order sync.ExternalOrder
	if err := json.Unmarshal(body, &order); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order payload"})
		return
	}

	cancelled, err := h.reconciler.CancelByName(c.Request.Context(), order.Name)
	if err != nil {
		h.logger.Error("cancellation webhook for %s failed: %v", order.Name, err)
		c.JSON(http.StatusOK, gin.H{"result": "error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": "ok", "cancelled": cancelled})
}

// Customers handles customers/create and customers/update deliveries.
func (h *WebhookHandler) Customers(c *gin.Context) {
	body := h.verifiedBody(c)
	if body == nil {
		return
	}

	var customer sync.ExternalCustomer
	if err := json.Unmarshal(body, &customer); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid customer payload"})
		return
	}

	if err := h.customers.UpsertFromStorefront(c.Request.Context(), &customer); err != nil {
		h.logger.Error("customer webhook for %s failed: %v", customer.Email, err)
		c.JSON(http.StatusOK, gin.H{"result": "error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": "ok"})
}
