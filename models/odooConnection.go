package models

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/mmbizsuite/console_backend/config"
	"github.com/mmbizsuite/console_backend/utils"
)

type OdooConnectionStatus string

const (
	OdooConnectionStatusConnected    OdooConnectionStatus = "connected"
	OdooConnectionStatusDisconnected OdooConnectionStatus = "disconnected"
)

// OdooSyncSettings controls which entity types a catalog sync pushes.
type OdooSyncSettings struct {
	SyncBrands         bool `json:"sync_brands"`
	SyncProducts       bool `json:"sync_products"`
	SyncPaymentMethods bool `json:"sync_payment_methods"`
	SyncCustomers      bool `json:"sync_customers"`
}

// OdooConnection is the per-tenant link to the Odoo adapter: base URL,
// API key and sync settings. One connection per business.
type OdooConnection struct {
	ID           int                  `gorm:"primary_key" json:"id"`
	BusinessId   string               `gorm:"size:64;not null;uniqueIndex" json:"business_id"`
	Status       OdooConnectionStatus `gorm:"type:enum('connected','disconnected');size:15;not null;default:'disconnected'" json:"status"`
	BaseUrl      string               `gorm:"size:255" json:"base_url"`
	ApiKey       string               `gorm:"size:255" json:"-"`
	SettingsJson string               `gorm:"type:text" json:"-"`
	LastSyncedAt *time.Time           `json:"last_synced_at"`
	CreatedAt    time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c OdooConnection) Settings() OdooSyncSettings {
	// Default: sync everything.
	settings := OdooSyncSettings{
		SyncBrands:         true,
		SyncProducts:       true,
		SyncPaymentMethods: true,
		SyncCustomers:      true,
	}
	if c.SettingsJson == "" {
		return settings
	}
	if err := json.Unmarshal([]byte(c.SettingsJson), &settings); err != nil {
		return OdooSyncSettings{SyncBrands: true, SyncProducts: true, SyncPaymentMethods: true, SyncCustomers: true}
	}
	return settings
}

// GetOdooConnection returns the tenant's connection row, or RecordNotFound.
func GetOdooConnection(ctx context.Context) (*OdooConnection, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var conn OdooConnection
	err := db.WithContext(ctx).Where("business_id = ?", businessId).First(&conn).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &conn, nil
}

// ConnectOdoo creates or reactivates the tenant's connection.
func ConnectOdoo(ctx context.Context, baseUrl string, apiKey string) (*OdooConnection, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if baseUrl == "" || apiKey == "" {
		return nil, errors.New("base url and api key are required")
	}

	db := config.GetDB()
	conn, err := GetOdooConnection(ctx)
	if err == nil {
		err = db.WithContext(ctx).Model(conn).Updates(map[string]interface{}{
			"Status":  OdooConnectionStatusConnected,
			"BaseUrl": baseUrl,
			"ApiKey":  apiKey,
		}).Error
		if err != nil {
			return nil, err
		}
		return conn, nil
	}

	created := OdooConnection{
		BusinessId: businessId,
		Status:     OdooConnectionStatusConnected,
		BaseUrl:    baseUrl,
		ApiKey:     apiKey,
	}
	if err := db.WithContext(ctx).Create(&created).Error; err != nil {
		return nil, err
	}
	return &created, nil
}

func DisconnectOdoo(ctx context.Context) (*OdooConnection, error) {
	conn, err := GetOdooConnection(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(conn).Update("Status", OdooConnectionStatusDisconnected).Error
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func UpdateOdooSyncSettings(ctx context.Context, settings OdooSyncSettings) (*OdooConnection, error) {
	conn, err := GetOdooConnection(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(settings)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(conn).Update("SettingsJson", string(raw)).Error
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// TouchOdooLastSynced stamps a successful catalog sync.
func TouchOdooLastSynced(ctx context.Context, conn *OdooConnection, at time.Time) error {
	if conn == nil || conn.ID == 0 {
		return errors.New("odoo connection is not persisted")
	}
	db := config.GetDB()
	return db.WithContext(ctx).Model(conn).Update("LastSyncedAt", at).Error
}
