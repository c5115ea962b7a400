package model

import (
	"time"

	"github.com/google/uuid"
)

// UserProfile represents a registered mobile-recharge customer
type UserProfile struct {
	Mobile    int64     `dynamodbav:"mobile" json:"mobile"`
	FirstName string    `dynamodbav:"first_name" json:"first_name"`
	LastName  string    `dynamodbav:"last_name" json:"last_name"`
	Email     string    `dynamodbav:"email" json:"email"`
	CreatedAt time.Time `dynamodbav:"created_at" json:"created_at"`
}

// ProfileUpdate carries the mutable profile fields. A nil field is left untouched.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Email     *string
}

// IsEmpty reports whether the update carries no field to write
func (u ProfileUpdate) IsEmpty() bool {
	return u.FirstName == nil && u.LastName == nil && u.Email == nil
}

// ProviderToken is what the identity provider returns on a successful password grant
type ProviderToken struct {
	AccessToken string
	InstanceURL string
}

// AdminSession represents an authenticated administrator session
type AdminSession struct {
	ID          uuid.UUID
	AccessToken string
	InstanceURL string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}
