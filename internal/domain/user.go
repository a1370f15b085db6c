package domain

import "time" // Timestamps

// Identity Model
type Identity struct {
	ID           string    `gorm:"primaryKey;type:char(36)"`                      // UUID primary key
	Username     string    `gorm:"type:varchar(30);uniqueIndex;not null"`         // Unique lowercase username
	FirstName    string    `gorm:"type:varchar(50);not null"`                     // Display first name
	LastName     string    `gorm:"type:varchar(50);not null"`                     // Display last name
	PasswordHash string    `gorm:"not null"`                                      // bcrypt hash, never plaintext
	CreatedAt    time.Time `gorm:"index"`                                         // Creation time
	UpdatedAt    time.Time                                                       // Last profile update
	Account      *Account  `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"` // One-to-one relationship with Account
}

// DirectoryEntry is the public projection of an Identity returned by search
type DirectoryEntry struct {
	ID        string `json:"id"`        // Identity ID
	Username  string `json:"username"`  // Username
	FirstName string `json:"firstName"` // First name
	LastName  string `json:"lastName"`  // Last name
}

// ProfilePatch lists the fields a user may change on their own profile
type ProfilePatch struct {
	FirstName *string `json:"firstName" validate:"omitnil,notblank,max=50"` // New first name
	LastName  *string `json:"lastName" validate:"omitnil,notblank,max=50"`  // New last name
	Password  *string `json:"password" validate:"omitnil,min=1,bcryptlen"` // New password
}

// Empty reports whether the patch changes nothing
func (p ProfilePatch) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Password == nil
}
