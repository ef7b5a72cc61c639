package models_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/apexdental/practice_backend/config"
	"github.com/apexdental/practice_backend/models"
	"github.com/apexdental/practice_backend/utils"
)

var testDBSeq atomic.Int64

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:models_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Location{},
		&models.Provider{},
		&models.ProviderLocation{},
		&models.Goal{},
		&models.LocationFinancialFact{},
		&models.HygieneFact{},
		&models.ProviderProductionFact{},
		&models.SyncRun{},
		&models.SyncRunError{},
	))

	prev := config.GetDB()
	config.SetDB(db)
	t.Cleanup(func() { config.SetDB(prev) })

	return db
}

func tenantCtx(tenantId string) context.Context {
	return utils.SetTenantIdInContext(context.Background(), tenantId)
}
