package domain

import (
	"time" // Timestamps

	"github.com/shopspring/decimal" // Fixed-point money
)

// Account Model
type Account struct {
	ID        uint            `gorm:"primaryKey"`                              // Primary key
	OwnerID   string          `gorm:"type:char(36);uniqueIndex;not null"`      // Foreign key to Identity
	Balance   decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0"`   // Account balance
	CreatedAt time.Time                                                        // Creation time
}
