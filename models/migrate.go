package models

import "gorm.io/gorm"

// All lists every persisted model in migration order.
func All() []any {
	return []any{
		&Project{},
		&ClaimedWord{},
		&Player{},
		&PlayerTag{},
		&Activity{},
		&StoreItem{},
		&StoreItemTag{},
		&InventoryRecord{},
		&Duel{},
		&DuelTag{},
		&Event{},
		&Transaction{},
		&Session{},
	}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(All()...)
}
