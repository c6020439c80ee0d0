// Package model defines database models
package model

import "time"

// Signup is one person on the waitlist. TokenHash is only set while a
// confirmation link is outstanding; once the record is confirmed the hash
// moves to ConsumedTokenHash so a second click can still be recognised.
type Signup struct {
	ID        string  `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Email     string  `gorm:"uniqueIndex;not null" json:"email"`
	FirstName string  `gorm:"not null" json:"first_name"`
	LastName  *string `json:"last_name,omitempty"`
	Phone     *string `gorm:"size:32" json:"phone,omitempty"`
	Location  *string `json:"location,omitempty"`
	Source    string  `gorm:"not null" json:"source"`
	Consent   bool    `gorm:"not null;default:false" json:"consent"`

	// Captured at creation, never updated
	UserAgent *string `gorm:"size:512" json:"-"`
	IP        *string `gorm:"size:64" json:"-"`

	TokenHash          *string    `gorm:"size:64;index" json:"-"`
	TokenExpiresAt     *time.Time `json:"-"`
	ConsumedTokenHash  *string    `gorm:"size:64;index" json:"-"`
	ConfirmationSentAt *time.Time `json:"confirmation_sent_at,omitempty"`
	ConfirmedAt        *time.Time `json:"confirmed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}

func (Signup) TableName() string {
	return "waitlist_signups"
}

func (s *Signup) Confirmed() bool {
	return s.ConfirmedAt != nil
}
