// Package dbtest opens isolated in-memory SQLite databases carrying the
// ledger schema for repository and service tests.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/cakeverse/cakeverse-backend/pkg/db"
	"github.com/cakeverse/cakeverse-backend/pkg/db/models"
	"github.com/cakeverse/cakeverse-backend/pkg/enums"
)

// Models lists every table the ledger owns or reads.
var Models = []any{
	&models.User{},
	&models.Shop{},
	&models.Ingredient{},
	&models.Wallet{},
	&models.Transaction{},
	&models.CakeOrder{},
	&models.OrderDetail{},
	&models.DepositRecord{},
	&models.WithdrawRecord{},
	&models.Complaint{},
	&models.OutboxEvent{},
}

// New returns a client bound to a fresh database. The pool is capped at one
// connection so concurrent units serialize the way row locks would.
func New(t testing.TB) *db.Client {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), db.GormConfig(nil, 0))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(Models...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return db.Wrap(conn)
}

// SeedUser inserts a user with the given role.
func SeedUser(t testing.TB, conn *gorm.DB, role enums.Role) models.User {
	t.Helper()
	user := models.User{Email: uuid.NewString() + "@cakeverse.test", Role: role}
	if err := conn.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

// SeedWallet inserts a wallet for userID holding balance.
func SeedWallet(t testing.TB, conn *gorm.DB, userID uuid.UUID, balance string) models.Wallet {
	t.Helper()
	wallet := models.Wallet{UserID: userID, Balance: decimal.RequireFromString(balance)}
	if err := conn.Create(&wallet).Error; err != nil {
		t.Fatalf("seed wallet: %v", err)
	}
	return wallet
}

// SeedShop inserts a shop owned by ownerID.
func SeedShop(t testing.TB, conn *gorm.DB, ownerID uuid.UUID) models.Shop {
	t.Helper()
	shop := models.Shop{OwnerID: ownerID, Name: "Sweet Layers"}
	if err := conn.Create(&shop).Error; err != nil {
		t.Fatalf("seed shop: %v", err)
	}
	return shop
}

// SeedIngredient inserts an ingredient offered by shopID.
func SeedIngredient(t testing.TB, conn *gorm.DB, shopID uuid.UUID, name, price string) models.Ingredient {
	t.Helper()
	ing := models.Ingredient{ShopID: shopID, Name: name, Price: decimal.RequireFromString(price)}
	if err := conn.Create(&ing).Error; err != nil {
		t.Fatalf("seed ingredient: %v", err)
	}
	return ing
}

// Balance reads the current balance of walletID.
func Balance(t testing.TB, conn *gorm.DB, walletID uuid.UUID) decimal.Decimal {
	t.Helper()
	var wallet models.Wallet
	if err := conn.First(&wallet, "id = ?", walletID).Error; err != nil {
		t.Fatalf("load wallet: %v", err)
	}
	return wallet.Balance
}
