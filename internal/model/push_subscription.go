package model

import "time"

// PushSubscription holds the information for a browser push subscription.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`

	Targets []SubscriptionTarget `gorm:"foreignKey:Endpoint;references:Endpoint;constraint:OnDelete:CASCADE"`
}

// SubscriptionTarget links a subscription to one machine key. IDMsn is not a
// foreign key so that removing a machine leaves subscriptions intact.
type SubscriptionTarget struct {
	Endpoint string `gorm:"primaryKey"`
	IDMsn    string `gorm:"column:id_msn;primaryKey;size:128;index"`
}
