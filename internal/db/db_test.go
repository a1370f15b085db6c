package db_test

import (
	"testing"

	"paywallet/internal/config"
	"paywallet/internal/db"
	"paywallet/internal/db/dbtest"
	"paywallet/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_UniqueUsername(t *testing.T) {
	gdb := dbtest.New(t)

	first := domain.Identity{ID: uuid.NewString(), Username: "a@b.com", FirstName: "A", LastName: "B", PasswordHash: "x"}
	require.NoError(t, gdb.Create(&first).Error)

	dup := domain.Identity{ID: uuid.NewString(), Username: "a@b.com", FirstName: "C", LastName: "D", PasswordHash: "y"}
	err := gdb.Create(&dup).Error
	assert.True(t, db.IsDuplicate(err), "got %v", err)
}

func TestMigrate_OneAccountPerOwner(t *testing.T) {
	gdb := dbtest.New(t)

	id := domain.Identity{ID: uuid.NewString(), Username: "c@d.com", FirstName: "C", LastName: "D", PasswordHash: "x"}
	require.NoError(t, gdb.Create(&id).Error)
	require.NoError(t, gdb.Create(&domain.Account{OwnerID: id.ID, Balance: decimal.NewFromInt(5)}).Error)

	err := gdb.Create(&domain.Account{OwnerID: id.ID, Balance: decimal.NewFromInt(7)}).Error
	assert.True(t, db.IsDuplicate(err), "got %v", err)
}

func TestMigrate_AccountNeedsOwner(t *testing.T) {
	gdb := dbtest.New(t)

	err := gdb.Create(&domain.Account{OwnerID: uuid.NewString(), Balance: decimal.NewFromInt(1)}).Error
	assert.Error(t, err)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := db.Open(&config.Config{DBDriver: "oracle"})
	assert.Error(t, err)
}
