// services/store_service.go
package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"arcade-economy-system/errs"
	"arcade-economy-system/models"
	"arcade-economy-system/utils"
)

// StoreService sells and equips cosmetics. A purchase is a saga: the
// guards all run up front, then entry insert, ledger debit, and stock
// increment happen as separate writes with no wrapping transaction — a
// failure partway is logged with enough detail to reconcile by hand.
type StoreService struct {
	DB     *gorm.DB
	Ledger *LedgerService
	Cache  *utils.StalenessSignal
}

func NewStoreService(db *gorm.DB, ledger *LedgerService, cache *utils.StalenessSignal) *StoreService {
	return &StoreService{DB: db, Ledger: ledger, Cache: cache}
}

// GetStoreItems lists active items currently inside their availability
// window.
func (s *StoreService) GetStoreItems(tenantID string) ([]models.StoreItem, error) {
	now := time.Now()
	var items []models.StoreItem
	if err := s.DB.Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Where("(available_from IS NULL OR available_from <= ?)", now).
		Where("(available_until IS NULL OR available_until > ?)", now).
		Order("price ASC").
		Find(&items).Error; err != nil {
		return nil, errs.Wrap(errs.CodeInternal, err, "DB error fetching store items")
	}
	return items, nil
}

// PurchaseResult reports a completed purchase.
type PurchaseResult struct {
	Entry     *models.InventoryEntry `json:"entry"`
	Item      *models.StoreItem      `json:"item"`
	PricePaid int64                  `json:"price_paid"`
	Balance   int64                  `json:"balance"`
}

// PurchaseItem buys an item for the user. Re-purchasing an owned item is
// rejected before any write, so resubmission is harmless.
func (s *StoreService) PurchaseItem(tenantID, userID, itemID string) (*PurchaseResult, error) {
	var item models.StoreItem
	if err := s.DB.Where("id = ? AND tenant_id = ? AND is_active = ?", itemID, tenantID, true).
		First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.New(errs.CodeNotFound, "item not found or inactive")
		}
		return nil, errs.Wrap(errs.CodeInternal, err, "DB error loading item")
	}

	acct, err := s.Ledger.GetAccount(tenantID, userID)
	if err != nil {
		return nil, err
	}

	var owned models.InventoryEntry
	err = s.DB.Where("user_id = ? AND item_id = ?", userID, itemID).First(&owned).Error
	if err == nil {
		return nil, errs.New(errs.CodeStateConflict, "item already owned")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.Wrap(errs.CodeInternal, err, "DB error checking ownership")
	}

	if acct.Level < item.MinLevel {
		return nil, errs.Newf(errs.CodeStateConflict, "requires level %d, account is level %d", item.MinLevel, acct.Level)
	}

	if item.LimitedEdition() && item.CurrentPurchases >= item.MaxPurchases {
		return nil, errs.New(errs.CodeStateConflict, "sold out")
	}

	if !item.AvailableAt(time.Now()) {
		return nil, errs.New(errs.CodeStateConflict, "item is outside its availability window")
	}

	if item.Price > 0 && acct.Balance < item.Price {
		return nil, errs.Newf(errs.CodeInsufficientFunds, "item costs %d, balance is %d", item.Price, acct.Balance)
	}

	// Mutations begin here; the unique (user, item) index is the backstop
	// against a concurrent duplicate purchase.
	entry := models.InventoryEntry{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		UserID:    userID,
		ItemID:    item.ID,
		PricePaid: item.Price,
	}
	if err := s.DB.Create(&entry).Error; err != nil {
		return nil, errs.Wrap(errs.CodeStateConflict, err, "item already owned")
	}

	balance := acct.Balance
	if item.Price > 0 {
		debit, err := s.Ledger.DebitTokens(tenantID, userID, item.Price, item.ID)
		if err != nil {
			log.Printf("❌ [STORE] debit failed after inventory insert: user=%s item=%s price=%d entry=%s err=%v",
				userID, item.ID, item.Price, entry.ID, err)
			return nil, err
		}
		balance = debit.Balance
	}

	if item.LimitedEdition() {
		// Best-effort increment. Two concurrent purchases of the last unit
		// can both pass the sold-out check above, overselling by one.
		if err := s.DB.Model(&models.StoreItem{}).
			Where("id = ?", item.ID).
			UpdateColumn("current_purchases", gorm.Expr("current_purchases + 1")).Error; err != nil {
			log.Printf("⚠️  [STORE] stock counter increment failed: item=%s entry=%s err=%v", item.ID, entry.ID, err)
		}
	}

	s.Cache.Invalidate(context.Background(),
		utils.StoreKey(tenantID),
		utils.TokensKey(tenantID, userID),
	)

	entry.Item = &item
	return &PurchaseResult{
		Entry:     &entry,
		Item:      &item,
		PricePaid: item.Price,
		Balance:   balance,
	}, nil
}

// EquipItem equips an owned item, unequipping whatever currently occupies
// the item's slot. At most one equipped item per slot per user survives.
func (s *StoreService) EquipItem(tenantID, userID, itemID string) (*models.InventoryEntry, error) {
	var item models.StoreItem
	if err := s.DB.Where("id = ? AND tenant_id = ?", itemID, tenantID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.New(errs.CodeNotFound, "item not found")
		}
		return nil, errs.Wrap(errs.CodeInternal, err, "DB error loading item")
	}

	var entry models.InventoryEntry
	if err := s.DB.Where("user_id = ? AND item_id = ?", userID, itemID).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.New(errs.CodeNotFound, "item not owned")
		}
		return nil, errs.Wrap(errs.CodeInternal, err, "DB error loading inventory entry")
	}

	if _, err := s.unequipSlot(tenantID, userID, item.Slot); err != nil {
		return nil, err
	}

	entry.Equipped = true
	if err := s.DB.Model(&models.InventoryEntry{}).
		Where("id = ?", entry.ID).
		Update("equipped", true).Error; err != nil {
		return nil, errs.Wrap(errs.CodeInternal, err, "failed to equip item")
	}

	s.Cache.Invalidate(context.Background(), utils.StoreKey(tenantID))

	entry.Item = &item
	return &entry, nil
}

// UnequipItem clears the equipped flag for everything the user has in the
// slot. Defensive against more than one equipped entry.
func (s *StoreService) UnequipItem(tenantID, userID, slot string) (int, error) {
	cleared, err := s.unequipSlot(tenantID, userID, slot)
	if err != nil {
		return 0, err
	}
	s.Cache.Invalidate(context.Background(), utils.StoreKey(tenantID))
	return cleared, nil
}

func (s *StoreService) unequipSlot(tenantID, userID, slot string) (int, error) {
	var equipped []models.InventoryEntry
	if err := s.DB.
		Joins("JOIN store_items ON store_items.id = inventory_entries.item_id").
		Where("inventory_entries.tenant_id = ? AND inventory_entries.user_id = ? AND inventory_entries.equipped = ? AND store_items.slot = ?",
			tenantID, userID, true, slot).
		Find(&equipped).Error; err != nil {
		return 0, errs.Wrap(errs.CodeInternal, err, "DB error finding equipped entries")
	}

	for _, e := range equipped {
		if err := s.DB.Model(&models.InventoryEntry{}).
			Where("id = ?", e.ID).
			Update("equipped", false).Error; err != nil {
			return 0, errs.Wrap(errs.CodeInternal, err, "failed to unequip entry")
		}
	}
	return len(equipped), nil
}

// GetInventory returns everything the user owns, items preloaded.
func (s *StoreService) GetInventory(tenantID, userID string) ([]models.InventoryEntry, error) {
	var entries []models.InventoryEntry
	if err := s.DB.Preload("Item").
		Where("tenant_id = ? AND user_id = ?", tenantID, userID).
		Order("created_at DESC").
		Find(&entries).Error; err != nil {
		return nil, errs.Wrap(errs.CodeInternal, err, "DB error fetching inventory")
	}
	return entries, nil
}

// CreateItemInput is the admin payload for a new store item.
type CreateItemInput struct {
	Name           string     `json:"name" validate:"required,max=128"`
	Description    string     `json:"description" validate:"max=1024"`
	Slot           string     `json:"slot" validate:"required,oneof=avatar hat background frame emote"`
	Price          int64      `json:"price" validate:"min=0"`
	MinLevel       int        `json:"min_level" validate:"min=1"`
	MaxPurchases   int        `json:"max_purchases" validate:"min=0"`
	AvailableFrom  *time.Time `json:"available_from"`
	AvailableUntil *time.Time `json:"available_until"`
	ArtworkURL     string     `json:"artwork_url"`
}

// CreateItem adds a store item with a slug code derived from its name.
func (s *StoreService) CreateItem(tenantID string, in CreateItemInput) (*models.StoreItem, error) {
	if in.MinLevel < 1 {
		in.MinLevel = 1
	}
	item := models.StoreItem{
		ID:             uuid.NewString(),
		TenantID:       tenantID,
		Code:           slug.Make(in.Name),
		Name:           in.Name,
		Description:    in.Description,
		Slot:           in.Slot,
		ArtworkURL:     in.ArtworkURL,
		Price:          in.Price,
		MinLevel:       in.MinLevel,
		MaxPurchases:   in.MaxPurchases,
		AvailableFrom:  in.AvailableFrom,
		AvailableUntil: in.AvailableUntil,
		IsActive:       true,
	}
	if err := s.DB.Create(&item).Error; err != nil {
		return nil, errs.Wrap(errs.CodeStateConflict, err, "item code already exists")
	}
	s.Cache.Invalidate(context.Background(), utils.StoreKey(tenantID))
	return &item, nil
}

// DeactivateItem pulls an item from the store without touching inventories.
func (s *StoreService) DeactivateItem(tenantID, itemID string) error {
	res := s.DB.Model(&models.StoreItem{}).
		Where("id = ? AND tenant_id = ?", itemID, tenantID).
		Update("is_active", false)
	if res.Error != nil {
		return errs.Wrap(errs.CodeInternal, res.Error, "DB error deactivating item")
	}
	if res.RowsAffected == 0 {
		return errs.New(errs.CodeNotFound, "item not found")
	}
	s.Cache.Invalidate(context.Background(), utils.StoreKey(tenantID))
	return nil
}
