package models

import (
	"log"
	"os"

	"github.com/mmbizsuite/console_backend/config"
)

// MigrateTable runs AutoMigrate for every table the engine owns.
// Set SKIP_MIGRATIONS=true to skip (production deploys migrate out of band).
func MigrateTable() {
	if os.Getenv("SKIP_MIGRATIONS") == "true" {
		log.Println("SKIP_MIGRATIONS=true; skipping auto-migration")
		return
	}

	db := config.GetDB()
	err := db.AutoMigrate(
		&User{},
		&Transaction{},
		&FeePair{},
		&SyncJob{},
		&SyncJobError{},
		&TreasuryAccount{},
		&TreasuryEntry{},
		&Brand{},
		&Product{},
		&PaymentMethod{},
		&Customer{},
		&OdooConnection{},
	)
	if err != nil {
		log.Printf("auto-migration failed: %v", err)
		return
	}
	log.Println("auto-migration completed")
}
