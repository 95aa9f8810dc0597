package odoosync

import (
	"context"

	"github.com/mmbizsuite/console_backend/models"
)

const (
	EntityTypeBrand         = "brand"
	EntityTypeProduct       = "product"
	EntityTypePaymentMethod = "payment-method"
	EntityTypeCustomer      = "customer"
)

// SyncerFor returns the strategy for one entity type, or nil.
func SyncerFor(entityType string) EntitySyncer {
	switch entityType {
	case EntityTypeBrand:
		return brandSyncer{}
	case EntityTypeProduct:
		return productSyncer{}
	case EntityTypePaymentMethod:
		return paymentMethodSyncer{}
	case EntityTypeCustomer:
		return customerSyncer{}
	default:
		return nil
	}
}

// SyncersForSettings resolves the entity types a catalog sync should push,
// honoring the connection's per-type toggles. An explicit requested list
// narrows it further.
func SyncersForSettings(settings models.OdooSyncSettings, requested []string) []EntitySyncer {
	enabled := map[string]bool{
		EntityTypeBrand:         settings.SyncBrands,
		EntityTypeProduct:       settings.SyncProducts,
		EntityTypePaymentMethod: settings.SyncPaymentMethods,
		EntityTypeCustomer:      settings.SyncCustomers,
	}

	order := []string{EntityTypeBrand, EntityTypeProduct, EntityTypePaymentMethod, EntityTypeCustomer}
	if len(requested) > 0 {
		order = requested
	}

	var syncers []EntitySyncer
	for _, entityType := range order {
		if !enabled[entityType] {
			continue
		}
		if s := SyncerFor(entityType); s != nil {
			syncers = append(syncers, s)
		}
	}
	return syncers
}

/* brand */

type brandSyncer struct{}

func (brandSyncer) EntityType() string { return EntityTypeBrand }
func (brandSyncer) Resource() string   { return "brands" }

func brandItem(b *models.Brand) SyncItem {
	return SyncItem{
		LocalId:    b.ID,
		NaturalKey: b.BrandCode,
		Label:      b.BrandName,
		Payload: map[string]interface{}{
			"name":        b.BrandName,
			"description": b.Description,
			"active":      b.IsActive != nil && *b.IsActive,
		},
		CreateOnly: map[string]interface{}{
			"code": b.BrandCode,
		},
	}
}

func (brandSyncer) List(ctx context.Context) ([]SyncItem, error) {
	brands, err := models.GetActiveBrands(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]SyncItem, 0, len(brands))
	for _, b := range brands {
		items = append(items, brandItem(b))
	}
	return items, nil
}

func (brandSyncer) Load(ctx context.Context, localId int) (*SyncItem, error) {
	b, err := models.GetBrand(ctx, localId)
	if err != nil {
		return nil, err
	}
	item := brandItem(b)
	return &item, nil
}

func (brandSyncer) PersistOdooId(ctx context.Context, localId int, odooId string) error {
	return models.SetBrandOdooId(ctx, localId, odooId)
}

/* product */

type productSyncer struct{}

func (productSyncer) EntityType() string { return EntityTypeProduct }
func (productSyncer) Resource() string   { return "products" }

func productItem(p *models.Product) SyncItem {
	return SyncItem{
		LocalId:    p.ID,
		NaturalKey: p.Sku,
		Label:      p.ProductName,
		Payload: map[string]interface{}{
			"name":        p.ProductName,
			"list_price":  p.SalesPrice,
			"description": p.Description,
			"active":      p.IsActive != nil && *p.IsActive,
		},
		CreateOnly: map[string]interface{}{
			"sku": p.Sku,
		},
	}
}

func (productSyncer) List(ctx context.Context) ([]SyncItem, error) {
	products, err := models.GetActiveProducts(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]SyncItem, 0, len(products))
	for _, p := range products {
		items = append(items, productItem(p))
	}
	return items, nil
}

func (productSyncer) Load(ctx context.Context, localId int) (*SyncItem, error) {
	p, err := models.GetProduct(ctx, localId)
	if err != nil {
		return nil, err
	}
	item := productItem(p)
	return &item, nil
}

func (productSyncer) PersistOdooId(ctx context.Context, localId int, odooId string) error {
	return models.SetProductOdooId(ctx, localId, odooId)
}

/* payment method */

type paymentMethodSyncer struct{}

func (paymentMethodSyncer) EntityType() string { return EntityTypePaymentMethod }
func (paymentMethodSyncer) Resource() string   { return "payment-methods" }

func paymentMethodItem(m *models.PaymentMethod) SyncItem {
	return SyncItem{
		LocalId:    m.ID,
		NaturalKey: m.MethodCode,
		Label:      m.MethodName,
		Payload: map[string]interface{}{
			"name":   m.MethodName,
			"active": m.IsActive != nil && *m.IsActive,
		},
		CreateOnly: map[string]interface{}{
			"code": m.MethodCode,
		},
	}
}

func (paymentMethodSyncer) List(ctx context.Context) ([]SyncItem, error) {
	methods, err := models.GetActivePaymentMethods(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]SyncItem, 0, len(methods))
	for _, m := range methods {
		items = append(items, paymentMethodItem(m))
	}
	return items, nil
}

func (paymentMethodSyncer) Load(ctx context.Context, localId int) (*SyncItem, error) {
	m, err := models.GetPaymentMethod(ctx, localId)
	if err != nil {
		return nil, err
	}
	item := paymentMethodItem(m)
	return &item, nil
}

func (paymentMethodSyncer) PersistOdooId(ctx context.Context, localId int, odooId string) error {
	return models.SetPaymentMethodOdooId(ctx, localId, odooId)
}

/* customer */

type customerSyncer struct{}

func (customerSyncer) EntityType() string { return EntityTypeCustomer }
func (customerSyncer) Resource() string   { return "customers" }

func customerItem(c *models.Customer) SyncItem {
	return SyncItem{
		LocalId:    c.ID,
		NaturalKey: c.CustomerCode,
		Label:      c.CustomerName,
		Payload: map[string]interface{}{
			"name":   c.CustomerName,
			"email":  c.Email,
			"phone":  c.Phone,
			"active": c.IsActive != nil && *c.IsActive,
		},
		CreateOnly: map[string]interface{}{
			"code": c.CustomerCode,
		},
	}
}

func (customerSyncer) List(ctx context.Context) ([]SyncItem, error) {
	customers, err := models.GetActiveCustomers(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]SyncItem, 0, len(customers))
	for _, c := range customers {
		items = append(items, customerItem(c))
	}
	return items, nil
}

func (customerSyncer) Load(ctx context.Context, localId int) (*SyncItem, error) {
	c, err := models.GetCustomer(ctx, localId)
	if err != nil {
		return nil, err
	}
	item := customerItem(c)
	return &item, nil
}

func (customerSyncer) PersistOdooId(ctx context.Context, localId int, odooId string) error {
	return models.SetCustomerOdooId(ctx, localId, odooId)
}
