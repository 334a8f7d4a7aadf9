package model

import "time"

// Account is a verified, permanent account. Email is the routing identity;
// Username is the public handle other clients address messages to.
type Account struct {
	ID        string `gorm:"primaryKey;type:text;not null"`
	Email     string `gorm:"uniqueIndex;not null;size:255"`
	Username  string `gorm:"uniqueIndex;not null;size:30"`
	Password  string `gorm:"not null"`
	Profile   string `gorm:"type:text"`
	LastLogin *time.Time
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// Contact is a one-way edge: Owner can see Contact's profile.
type Contact struct {
	ID        string    `gorm:"primaryKey;type:text;not null"`
	OwnerID   string    `gorm:"not null;index:idx_contact_pair,unique"`
	Username  string    `gorm:"not null;index:idx_contact_pair,unique;size:30"`
	CreatedAt time.Time `gorm:"not null"`
}

// PendingAccount lives in Redis under its verification code with a short TTL,
// never in postgres.
type PendingAccount struct {
	ID        string    `json:"id"`
	Profile   string    `json:"profile"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Password  string    `json:"password"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
}
