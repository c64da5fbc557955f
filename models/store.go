// models/store.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// Cosmetic slots. At most one equipped item per slot per user.
const (
	SlotAvatar     = "avatar"
	SlotHat        = "hat"
	SlotBackground = "background"
	SlotFrame      = "frame"
	SlotEmote      = "emote"
)

// StoreItem is a purchasable cosmetic. MaxPurchases > 0 marks a limited
// edition; CurrentPurchases is a best-effort counter (see store service).
type StoreItem struct {
	ID          string `json:"id" gorm:"primaryKey;type:uuid"`
	TenantID    string `json:"tenant_id" gorm:"index;not null"`
	Code        string `json:"code" gorm:"uniqueIndex;not null"` // slugified name
	Name        string `json:"name" gorm:"not null"`
	Description string `json:"description"`
	Slot        string `json:"slot" gorm:"type:varchar(32);not null;index"`
	ArtworkURL  string `json:"artwork_url" gorm:"type:text"`

	Price    int64 `json:"price" gorm:"default:0"` // 0 = free
	MinLevel int   `json:"min_level" gorm:"default:1"`

	// Availability window (either side optional)
	AvailableFrom  *time.Time `json:"available_from,omitempty"`
	AvailableUntil *time.Time `json:"available_until,omitempty"`

	// Limited edition stock
	MaxPurchases     int `json:"max_purchases" gorm:"default:0"` // 0 = unlimited
	CurrentPurchases int `json:"current_purchases" gorm:"default:0"`

	IsActive bool `json:"is_active" gorm:"default:true;index"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// LimitedEdition reports whether the item tracks finite stock.
func (i *StoreItem) LimitedEdition() bool {
	return i.MaxPurchases > 0
}

// AvailableAt checks the availability window against the given time.
func (i *StoreItem) AvailableAt(t time.Time) bool {
	if i.AvailableFrom != nil && t.Before(*i.AvailableFrom) {
		return false
	}
	if i.AvailableUntil != nil && !t.Before(*i.AvailableUntil) {
		return false
	}
	return true
}

// InventoryEntry records ownership of an item. Ownership is permanent; the
// unique index makes repeat purchases detectable.
type InventoryEntry struct {
	ID       string `json:"id" gorm:"primaryKey;type:uuid"`
	TenantID string `json:"tenant_id" gorm:"index;not null"`
	UserID   string `json:"user_id" gorm:"not null;uniqueIndex:idx_inventory_user_item,priority:1;index"`
	ItemID   string `json:"item_id" gorm:"not null;uniqueIndex:idx_inventory_user_item,priority:2"`

	Equipped  bool  `json:"equipped" gorm:"default:false"`
	PricePaid int64 `json:"price_paid" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Item *StoreItem `json:"item,omitempty" gorm:"foreignKey:ItemID"`
}
