// Package service holds the identity operations behind the HTTP API: signup,
// signin, profile update, directory search and balance lookup.
package service

import (
	"context"  // Request context
	"errors"   // Error matching
	"iter"     // Lazy search results
	"reflect"  // Validator tag names
	"strings"  // Normalization
	"unicode"  // Blank check

	"paywallet/internal/db"       // Duplicate detection
	"paywallet/internal/domain"   // Domain models and errors
	"paywallet/internal/security" // Password hashing

	"github.com/go-playground/validator/v10" // Input validation
	"github.com/google/uuid"                 // Identity IDs
	"github.com/shopspring/decimal"          // Fixed-point money
	"github.com/sirupsen/logrus"             // Logging
	"gorm.io/gorm"                           // GORM ORM library
)

// SignupInput is the payload of a signup
type SignupInput struct {
	Username  string `json:"username" validate:"required,min=3,max=30,email"`
	FirstName string `json:"firstName" validate:"required,notblank,max=50"`
	LastName  string `json:"lastName" validate:"required,notblank,max=50"`
	Password  string `json:"password" validate:"required,bcryptlen"`
}

// SigninInput is the payload of a signin
type SigninInput struct {
	Username string `json:"username" validate:"required,min=3,max=30,email"`
	Password string `json:"password" validate:"required,bcryptlen"`
}

// TokenIssuer issues session tokens
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// AccountProvisioner creates and reads accounts
type AccountProvisioner interface {
	ProvisionFor(ctx context.Context, tx *gorm.DB, identityID string) (*domain.Account, error)
	BalanceOf(ctx context.Context, db *gorm.DB, identityID string) (decimal.Decimal, error)
}

// IdentityService orchestrates identity operations against the store
type IdentityService struct {
	db       *gorm.DB            // Credential store
	hasher   *security.Hasher    // Password hashing
	tokens   TokenIssuer         // Session tokens
	accounts AccountProvisioner  // Account creation
	validate *validator.Validate // Input validation
}

// NewIdentityService creates an IdentityService
func NewIdentityService(gdb *gorm.DB, hasher *security.Hasher, tokens TokenIssuer, accounts AccountProvisioner) *IdentityService {
	return &IdentityService{
		db:       gdb,
		hasher:   hasher,
		tokens:   tokens,
		accounts: accounts,
		validate: newValidator(),
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimFunc(fl.Field().String(), unicode.IsSpace) != ""
	})
	// bcrypt rejects inputs longer than 72 bytes
	_ = v.RegisterValidation("bcryptlen", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= 72
	})
	return v
}

// check validates v and converts failures into domain.ErrInvalidInput
func (s *IdentityService) check(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return &InputError{Field: verrs[0].Field(), Rule: verrs[0].Tag()}
	}
	return &InputError{Rule: err.Error()}
}

// storeFailure logs the store error and hides it from the caller
func storeFailure(op string, err error, fields logrus.Fields) error {
	entry := logrus.WithFields(fields).WithField("op", op)
	entry.WithField("error", err.Error()).Error("Store operation failed")
	return domain.ErrStoreFailure
}

func normalizeUsername(u string) string {
	return strings.ToLower(strings.TrimSpace(u))
}

// Signup registers a new identity with its account and returns a session token
func (s *IdentityService) Signup(ctx context.Context, in SignupInput) (string, error) {
	in.Username = normalizeUsername(in.Username)
	if err := s.check(in); err != nil {
		return "", err
	}
	fields := logrus.Fields{"username": in.Username}

	// Check the resolved lookup before inserting; the unique index still guards races
	var existing int64
	if err := s.db.WithContext(ctx).Model(&domain.Identity{}).Where("username = ?", in.Username).Count(&existing).Error; err != nil {
		return "", storeFailure("signup_lookup", err, fields)
	}
	if existing > 0 {
		return "", domain.ErrDuplicateIdentity
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return "", storeFailure("signup_hash", err, fields)
	}
	identity := domain.Identity{
		ID:           uuid.NewString(),
		Username:     in.Username,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: hash,
	}

	// Identity and account commit together or not at all
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&identity).Error; err != nil {
			return err
		}
		_, err := s.accounts.ProvisionFor(ctx, tx, identity.ID)
		return err
	})
	if db.IsDuplicate(err) {
		return "", domain.ErrDuplicateIdentity
	}
	if err != nil {
		return "", storeFailure("signup_create", err, fields)
	}

	fields["user_id"] = identity.ID
	tok, err := s.tokens.Issue(identity.ID)
	if err != nil {
		return "", storeFailure("signup_token", err, fields)
	}
	logrus.WithFields(fields).Info("User signed up")
	return tok, nil
}

// Signin checks credentials and returns a session token.
// Unknown usernames and wrong passwords fail the same way.
func (s *IdentityService) Signin(ctx context.Context, in SigninInput) (string, error) {
	in.Username = normalizeUsername(in.Username)
	if err := s.check(in); err != nil {
		return "", err
	}
	fields := logrus.Fields{"username": in.Username}

	var identity domain.Identity
	err := s.db.WithContext(ctx).Where("username = ?", in.Username).First(&identity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.hasher.CompareDummy(in.Password)
		return "", domain.ErrAuthenticationFailed
	}
	if err != nil {
		return "", storeFailure("signin_lookup", err, fields)
	}
	if !s.hasher.Compare(identity.PasswordHash, in.Password) {
		logrus.WithFields(fields).Warn("Signin rejected")
		return "", domain.ErrAuthenticationFailed
	}

	tok, err := s.tokens.Issue(identity.ID)
	if err != nil {
		return "", storeFailure("signin_token", err, fields)
	}
	return tok, nil
}

// UpdateProfile applies patch to the identity of actingUserID, which must come
// from a verified token.
func (s *IdentityService) UpdateProfile(ctx context.Context, actingUserID string, patch domain.ProfilePatch) error {
	if actingUserID == "" {
		return domain.ErrUnauthorized
	}
	if err := s.check(patch); err != nil {
		return err
	}
	fields := logrus.Fields{"user_id": actingUserID}

	updates := map[string]any{}
	if patch.FirstName != nil {
		updates["first_name"] = *patch.FirstName
	}
	if patch.LastName != nil {
		updates["last_name"] = *patch.LastName
	}
	if patch.Password != nil {
		hash, err := s.hasher.Hash(*patch.Password)
		if err != nil {
			return storeFailure("update_hash", err, fields)
		}
		updates["password_hash"] = hash
	}

	if !patch.Empty() {
		res := s.db.WithContext(ctx).Model(&domain.Identity{}).Where("id = ?", actingUserID).Updates(updates)
		if res.Error != nil {
			return storeFailure("update_profile", res.Error, fields)
		}
		if res.RowsAffected > 0 {
			logrus.WithFields(fields).Info("Profile updated")
			return nil
		}
	}

	// Nothing matched or nothing to change: tell NotFound apart from a no-op
	var n int64
	if err := s.db.WithContext(ctx).Model(&domain.Identity{}).Where("id = ?", actingUserID).Count(&n).Error; err != nil {
		return storeFailure("update_lookup", err, fields)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SearchDirectory yields identities whose first or last name contains filter,
// case-insensitively. An empty filter yields everyone. Each range over the
// returned sequence runs a fresh query.
func (s *IdentityService) SearchDirectory(ctx context.Context, filter string) iter.Seq2[domain.DirectoryEntry, error] {
	return func(yield func(domain.DirectoryEntry, error) bool) {
		// SQLite's LOWER only folds ASCII, so names are matched here rather than in SQL
		needle := strings.ToLower(filter)
		rows, err := s.db.WithContext(ctx).Model(&domain.Identity{}).
			Select("id", "username", "first_name", "last_name").
			Order("created_at").Order("id").Rows()
		if err != nil {
			yield(domain.DirectoryEntry{}, storeFailure("search", err, logrus.Fields{"filter": filter}))
			return
		}
		defer rows.Close()
		for rows.Next() {
			var e domain.DirectoryEntry
			if err := rows.Scan(&e.ID, &e.Username, &e.FirstName, &e.LastName); err != nil {
				yield(domain.DirectoryEntry{}, storeFailure("search_scan", err, logrus.Fields{"filter": filter}))
				return
			}
			if !nameMatches(e, needle) {
				continue
			}
			if !yield(e, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(domain.DirectoryEntry{}, storeFailure("search_rows", err, logrus.Fields{"filter": filter}))
		}
	}
}

// nameMatches reports whether either name contains the lowercased needle
func nameMatches(e domain.DirectoryEntry, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(e.FirstName), needle) ||
		strings.Contains(strings.ToLower(e.LastName), needle)
}

// Balance returns the balance of the account owned by userID
func (s *IdentityService) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	bal, err := s.accounts.BalanceOf(ctx, s.db, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return decimal.Zero, domain.ErrNotFound
	}
	if err != nil {
		return decimal.Zero, storeFailure("balance", err, logrus.Fields{"user_id": userID})
	}
	return bal, nil
}
