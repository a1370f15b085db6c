// Package account creates the single balance-bearing account that belongs to
// every identity and reads balances back.
package account

import (
	"context"     // Request context
	"crypto/rand" // Uniform random grant
	"errors"      // Error construction
	"fmt"         // Error wrapping
	"math/big"    // Random range

	"paywallet/internal/domain" // Domain models

	"github.com/shopspring/decimal" // Fixed-point money
	"gorm.io/gorm"                  // GORM ORM library
)

// BalancePolicy decides the opening balance of a new account
type BalancePolicy interface {
	Seed() (decimal.Decimal, error)
}

// FixedPolicy grants the same amount to every account
type FixedPolicy struct {
	Amount decimal.Decimal // Opening balance
}

// Seed returns the fixed amount
func (p FixedPolicy) Seed() (decimal.Decimal, error) {
	if p.Amount.IsNegative() {
		return decimal.Zero, errors.New("account: negative fixed grant")
	}
	return p.Amount.Round(2), nil
}

// RangePolicy grants a uniformly random amount in [Min, Max] with cent granularity
type RangePolicy struct {
	Min decimal.Decimal // Lower bound, inclusive
	Max decimal.Decimal // Upper bound, inclusive
}

// Seed draws a random amount
func (p RangePolicy) Seed() (decimal.Decimal, error) {
	if p.Min.IsNegative() || p.Max.LessThan(p.Min) {
		return decimal.Zero, fmt.Errorf("account: invalid grant range [%s, %s]", p.Min, p.Max)
	}
	lo := p.Min.Shift(2).Ceil().BigInt()  // Lower bound in cents
	hi := p.Max.Shift(2).Floor().BigInt() // Upper bound in cents
	span := new(big.Int).Sub(hi, lo)
	if span.Sign() < 0 {
		return decimal.Zero, fmt.Errorf("account: grant range [%s, %s] holds no whole cent", p.Min, p.Max)
	}
	n, err := rand.Int(rand.Reader, span.Add(span, big.NewInt(1)))
	if err != nil {
		return decimal.Zero, fmt.Errorf("account: draw grant: %w", err)
	}
	return decimal.NewFromBigInt(n.Add(n, lo), -2), nil
}

// NewPolicy picks FixedPolicy when both bounds are equal and RangePolicy otherwise
func NewPolicy(min, max decimal.Decimal) BalancePolicy {
	if min.Equal(max) {
		return FixedPolicy{Amount: min}
	}
	return RangePolicy{Min: min, Max: max}
}

// Provisioner creates accounts
type Provisioner struct {
	policy BalancePolicy // Opening balance policy
}

// NewProvisioner creates a Provisioner
func NewProvisioner(policy BalancePolicy) *Provisioner {
	return &Provisioner{policy: policy}
}

// ProvisionFor creates the account of identityID using tx, which must be the
// transaction that created the identity so both commit or roll back together.
func (p *Provisioner) ProvisionFor(ctx context.Context, tx *gorm.DB, identityID string) (*domain.Account, error) {
	seed, err := p.policy.Seed()
	if err != nil {
		return nil, err
	}
	if seed.IsNegative() {
		return nil, fmt.Errorf("account: policy produced negative balance %s", seed)
	}
	acc := &domain.Account{OwnerID: identityID, Balance: seed}
	// Save the new account
	if err := tx.WithContext(ctx).Create(acc).Error; err != nil {
		return nil, err
	}
	return acc, nil
}

// BalanceOf returns the balance of the account owned by identityID
func (p *Provisioner) BalanceOf(ctx context.Context, db *gorm.DB, identityID string) (decimal.Decimal, error) {
	var acc domain.Account
	// Query account by owner ID
	err := db.WithContext(ctx).Where("owner_id = ?", identityID).First(&acc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, domain.ErrNotFound
	}
	if err != nil {
		return decimal.Zero, err
	}
	return acc.Balance, nil
}
