package models

type StoreItem struct {
	ID            string `gorm:"primaryKey;type:uuid" json:"uuid"`
	ProjectID     string `gorm:"type:uuid;not null;uniqueIndex:idx_item_word" json:"projectUuid"`
	WordID        string `gorm:"not null;uniqueIndex:idx_item_word" json:"wordId"`
	Name          string `gorm:"not null" json:"name"`
	Description   string `gorm:"type:text" json:"description"`
	Icon          string `json:"icon"`
	Cost          int64  `gorm:"not null;default:0" json:"cost"`
	IsPurchasable bool   `gorm:"default:false" json:"isPurchasable"`
	IsRedeemable  bool   `gorm:"default:false" json:"isRedeemable"`
	// RedemptionChallenge, when set, must be answered to redeem the item.
	RedemptionChallenge string `json:"-"`

	Tags []StoreItemTag `gorm:"foreignKey:ItemID" json:"tags,omitempty"`

	Timestamps
}

func (StoreItem) TableName() string { return "project_store_items" }

// TagValue returns the value of the first tag with the given name.
func (i StoreItem) TagValue(tag string) (string, bool) {
	for _, t := range i.Tags {
		if t.Tag == tag {
			return t.Value, true
		}
	}
	return "", false
}

type StoreItemTag struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"uuid"`
	ProjectID string `gorm:"type:uuid;not null" json:"projectUuid"`
	ItemID    string `gorm:"type:uuid;not null;uniqueIndex:idx_item_tag" json:"itemUuid"`
	Tag       string `gorm:"not null;uniqueIndex:idx_item_tag" json:"tag"`
	Value     string `json:"value"`
}

func (StoreItemTag) TableName() string { return "store_item_tags" }

// InventoryRecord tracks how many of an item a player owns and has consumed.
type InventoryRecord struct {
	ID               string `gorm:"primaryKey;type:uuid" json:"uuid"`
	ProjectID        string `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_owner" json:"projectUuid"`
	PlayerID         string `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_owner" json:"playerUuid"`
	ItemID           string `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_owner" json:"itemUuid"`
	Quantity         int64  `gorm:"not null;default:0" json:"quantity"`
	QuantityRedeemed int64  `gorm:"not null;default:0" json:"quantityRedeemed"`

	Timestamps
}

func (InventoryRecord) TableName() string { return "project_player_inventory" }

func (r InventoryRecord) Redeemable() int64 {
	return r.Quantity - r.QuantityRedeemed
}
