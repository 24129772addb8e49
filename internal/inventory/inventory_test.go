package inventory

import (
	"fmt"
	"strings"
	"testing"

	"github.com/asaskevich/EventBus"
	"github.com/stockpiled/stockpile/internal/domain"
	"github.com/stockpiled/stockpile/pkg/common"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// one shared in-memory database per test, across pooled connections
	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(domain.Tables...))
	return db
}

func newTestService(t *testing.T) (*Service, *GormProductRepository, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	repo := NewGormProductRepository(db)
	svc := NewService(db, repo, EventBus.New())
	return svc, repo, db
}

func seedProduct(t *testing.T, db *gorm.DB, ownerID int64, name string, ref, quantity int64) *domain.Product {
	t.Helper()
	p := &domain.Product{
		ID:       common.UUIDint64(),
		OwnerID:  ownerID,
		Name:     name,
		Ref:      ref,
		Quantity: quantity,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}
