package sync

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"shopsync/internal/gateways/odoo"
	"shopsync/internal/gateways/shopify"
	"shopsync/internal/logger"
	"shopsync/internal/models"
)

// ErpCustomers is the ERP side of the bidirectional customer mirror.
type ErpCustomers interface {
	FindPartnerByEmail(ctx context.Context, email string) (*odoo.Partner, error)
	CreatePartner(ctx context.Context, input odoo.PartnerInput) (int, error)
	UpdatePartner(ctx context.Context, id int, input odoo.PartnerInput) error
	ChangedPartners(ctx context.Context, since time.Time) ([]odoo.Contact, error)
}

// StoreCustomers is the storefront side of the customer mirror.
type StoreCustomers interface {
	UpsertCustomer(ctx context.Context, customer *shopify.Customer) (int64, error)
}

// CustomerMirror keeps customer records flowing both ways: storefront
// webhooks update ERP partners, and a periodic pass pushes recently
// changed ERP partners back out.
type CustomerMirror struct {
	erp    ErpCustomers
	store  StoreCustomers
	ledger Recorder
	db     *gorm.DB
	logger *logger.Logger

	now func() time.Time
}

func NewCustomerMirror(erp ErpCustomers, store StoreCustomers, ledger Recorder, db *gorm.DB, log *logger.Logger) *CustomerMirror {
	return &CustomerMirror{erp: erp, store: store, ledger: ledger, db: db, logger: log, now: time.Now}
}

// UpsertFromStorefront applies one storefront customer webhook to the
// ERP, keyed by email.
func (m *CustomerMirror) UpsertFromStorefront(ctx context.Context, customer *ExternalCustomer) error {
	if customer.Email == "" {
		m.ledger.Record("Customer", string(models.StatusSkipped),
			"customer delivery without email, nothing to match on")
		return nil
	}

	input := odoo.PartnerInput{
		Name:  strings.TrimSpace(customer.FirstName + " " + customer.LastName),
		Email: customer.Email,
		Phone: customer.Phone,
	}
	if input.Name == "" {
		input.Name = customer.Email
	}
	if addr := customer.DefaultAddress; addr != nil {
		input.Street = addr.Address1
		input.Street2 = addr.Address2
		input.City = addr.City
		input.Zip = addr.Zip
	}

	partner, err := m.erp.FindPartnerByEmail(ctx, customer.Email)
	if err != nil {
		m.ledger.Record("Customer", string(models.StatusError),
			fmt.Sprintf("customer %s: partner lookup failed: %v", customer.Email, err))
		return err
	}

	if partner == nil {
		id, err := m.erp.CreatePartner(ctx, input)
		if err != nil {
			m.ledger.Record("Customer", string(models.StatusError),
				fmt.Sprintf("customer %s: partner creation failed: %v", customer.Email, err))
			return err
		}
		m.remember(customer, id)
		m.ledger.Record("Customer", string(models.StatusSuccess),
			fmt.Sprintf("customer %s created as partner %d", customer.Email, id))
		return nil
	}

	if err := m.erp.UpdatePartner(ctx, partner.ID, input); err != nil {
		m.ledger.Record("Customer", string(models.StatusError),
			fmt.Sprintf("customer %s: partner update failed: %v", customer.Email, err))
		return err
	}
	m.ledger.Record("Customer", string(models.StatusSuccess),
		fmt.Sprintf("customer %s updated on partner %d", customer.Email, partner.ID))
	return nil
}

// MirrorToStorefront pushes ERP partners changed within the lookback
// window to the storefront. Per-record failures are logged and the
// loop continues.
func (m *CustomerMirror) MirrorToStorefront(ctx context.Context, lookbackMinutes int) (int, error) {
	since := m.now().Add(-time.Duration(lookbackMinutes) * time.Minute)
	contacts, err := m.erp.ChangedPartners(ctx, since)
	if err != nil {
		m.ledger.Record("Customer", string(models.StatusError),
			fmt.Sprintf("customer pass aborted: %v", err))
		return 0, err
	}

	pushed := 0
	for _, contact := range contacts {
		if contact.Email == "" {
			continue
		}
		first, last := splitName(contact.Name)
		_, err := m.store.UpsertCustomer(ctx, &shopify.Customer{
			Email:     contact.Email,
			FirstName: first,
			LastName:  last,
			Phone:     contact.Phone,
		})
		if err != nil {
			m.ledger.Record("Customer", string(models.StatusWarning),
				fmt.Sprintf("customer %s push failed: %v", contact.Email, err))
			if m.logger != nil {
				m.logger.Warn("customer push for %s failed: %v", contact.Email, err)
			}
			continue
		}
		pushed++
	}

	m.ledger.Record("Customer", string(models.StatusSuccess),
		fmt.Sprintf("customer pass complete: %d pushed", pushed))
	return pushed, nil
}

func (m *CustomerMirror) remember(customer *ExternalCustomer, partnerID int) {
	if m.db == nil {
		return
	}
	mapping := &models.CustomerMap{
		ShopifyCustomerID: strconv.FormatInt(customer.ID, 10),
		OdooPartnerID:     partnerID,
		Email:             customer.Email,
	}
	if err := m.db.Create(mapping).Error; err != nil && m.logger != nil {
		m.logger.Warn("could not record customer mapping for %s: %v", customer.Email, err)
	}
}

func splitName(name string) (first, last string) {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "", ""
	}
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
