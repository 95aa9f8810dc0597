package odoosync

import (
	"testing"

	"github.com/mmbizsuite/console_backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entityTypes(syncers []EntitySyncer) []string {
	out := make([]string, 0, len(syncers))
	for _, s := range syncers {
		out = append(out, s.EntityType())
	}
	return out
}

func TestSyncerFor(t *testing.T) {
	for _, entityType := range []string{EntityTypeBrand, EntityTypeProduct, EntityTypePaymentMethod, EntityTypeCustomer} {
		s := SyncerFor(entityType)
		require.NotNil(t, s, entityType)
		assert.Equal(t, entityType, s.EntityType())
		assert.NotEmpty(t, s.Resource())
	}
	assert.Nil(t, SyncerFor("warehouse"))
}

func TestSyncersForSettings(t *testing.T) {
	all := models.OdooSyncSettings{
		SyncBrands:         true,
		SyncProducts:       true,
		SyncPaymentMethods: true,
		SyncCustomers:      true,
	}

	t.Run("all enabled, no filter", func(t *testing.T) {
		got := entityTypes(SyncersForSettings(all, nil))
		assert.Equal(t, []string{EntityTypeBrand, EntityTypeProduct, EntityTypePaymentMethod, EntityTypeCustomer}, got)
	})

	t.Run("toggles narrow the set", func(t *testing.T) {
		settings := all
		settings.SyncProducts = false
		settings.SyncCustomers = false
		got := entityTypes(SyncersForSettings(settings, nil))
		assert.Equal(t, []string{EntityTypeBrand, EntityTypePaymentMethod}, got)
	})

	t.Run("requested list narrows further", func(t *testing.T) {
		got := entityTypes(SyncersForSettings(all, []string{EntityTypeCustomer, EntityTypeBrand}))
		assert.Equal(t, []string{EntityTypeCustomer, EntityTypeBrand}, got)
	})

	t.Run("requested but disabled stays off", func(t *testing.T) {
		settings := all
		settings.SyncCustomers = false
		got := entityTypes(SyncersForSettings(settings, []string{EntityTypeCustomer, EntityTypeBrand}))
		assert.Equal(t, []string{EntityTypeBrand}, got)
	})

	t.Run("unknown requested type is ignored", func(t *testing.T) {
		got := entityTypes(SyncersForSettings(all, []string{"warehouse", EntityTypeProduct}))
		assert.Equal(t, []string{EntityTypeProduct}, got)
	})
}
