package models

import (
	"log"

	"github.com/apexdental/practice_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Location{}, &Provider{}, &ProviderLocation{},
		&Goal{},
		&LocationFinancialFact{}, &HygieneFact{}, &ProviderProductionFact{},
		&SyncRun{}, &SyncRunError{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
