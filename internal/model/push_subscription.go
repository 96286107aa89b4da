package model

import "time"

// PushSubscription holds one browser push registration of a user.
// Endpoint is the serialized PushSubscription JSON handed over by the browser.
type PushSubscription struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"index;size:128;not null" json:"-"`
	Endpoint  string    `gorm:"type:text;not null" json:"endpoint"`
	Active    bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"-"`
}
