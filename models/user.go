package models

import "time"

// Subscription statuses that grant unlimited generation.
const (
	SubscriptionActive   = "active"
	SubscriptionTrialing = "trialing"
	SubscriptionCanceled = "canceled"
)

// User represents a user in the system. AuthID is the identity provider
// subject; Email is the key the payment provider knows the user by.
type User struct {
	ID       uint   `gorm:"primaryKey" json:"-"`
	AuthID   string `gorm:"size:128;index" json:"-"`
	Email    string `gorm:"size:255;index" json:"email"`
	Nickname string `gorm:"size:100" json:"nickname"`

	StripeCustomerID   string `gorm:"size:100" json:"stripeCustomerId,omitempty"`
	SubscriptionID     string `gorm:"size:100" json:"subscriptionId,omitempty"`
	SubscriptionStatus string `gorm:"size:50" json:"subscriptionStatus"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Subscribed reports whether the stored status grants unlimited use.
func (u User) Subscribed() bool {
	return u.SubscriptionStatus == SubscriptionActive || u.SubscriptionStatus == SubscriptionTrialing
}

// UsageCounter counts a user's generations for one UTC day.
type UsageCounter struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    string    `gorm:"size:128;not null;uniqueIndex:ux_usage_user_day,priority:1"`
	Day       string    `gorm:"size:10;not null;uniqueIndex:ux_usage_user_day,priority:2"`
	Count     int       `gorm:"not null;default:0"`
	UpdatedAt time.Time
}

// TableName implements the GORM tabler interface.
func (UsageCounter) TableName() string { return "usage_counters" }
