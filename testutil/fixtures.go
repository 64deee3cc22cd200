package testutil

import (
	"testing"

	"game-session-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func create(tb testing.TB, db *gorm.DB, v any) {
	tb.Helper()
	if err := db.Create(v).Error; err != nil {
		tb.Fatalf("create %T: %v", v, err)
	}
}

func word() string {
	return "w" + uuid.NewString()[:8]
}

func Project(tb testing.TB, db *gorm.DB) models.Project {
	tb.Helper()
	p := models.Project{ID: uuid.NewString(), WordID: word(), Name: "Test Project"}
	create(tb, db, &p)
	return p
}

// Player creates a claimed player named name.
func Player(tb testing.TB, db *gorm.DB, projectID, name string) models.Player {
	tb.Helper()
	p := models.Player{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		WordID:    word(),
		Claimed:   true,
		Name:      name,
		RealName:  name,
	}
	create(tb, db, &p)
	return p
}

func UnclaimedPlayer(tb testing.TB, db *gorm.DB, projectID string) models.Player {
	tb.Helper()
	p := models.Player{ID: uuid.NewString(), ProjectID: projectID, WordID: word()}
	create(tb, db, &p)
	return p
}

func Activity(tb testing.TB, db *gorm.DB, a models.Activity) models.Activity {
	tb.Helper()
	a.ID = uuid.NewString()
	if a.WordID == "" {
		a.WordID = word()
	}
	if a.Name == "" {
		a.Name = "Activity"
	}
	create(tb, db, &a)
	return a
}

func Item(tb testing.TB, db *gorm.DB, item models.StoreItem, tags map[string]string) models.StoreItem {
	tb.Helper()
	item.ID = uuid.NewString()
	if item.WordID == "" {
		item.WordID = word()
	}
	if item.Name == "" {
		item.Name = "Item"
	}
	create(tb, db, &item)
	for tag, value := range tags {
		t := models.StoreItemTag{ID: uuid.NewString(), ProjectID: item.ProjectID, ItemID: item.ID, Tag: tag, Value: value}
		create(tb, db, &t)
		item.Tags = append(item.Tags, t)
	}
	return item
}

func Inventory(tb testing.TB, db *gorm.DB, projectID, playerID, itemID string, quantity int64) models.InventoryRecord {
	tb.Helper()
	r := models.InventoryRecord{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		PlayerID:  playerID,
		ItemID:    itemID,
		Quantity:  quantity,
	}
	create(tb, db, &r)
	return r
}

func PlayerTag(tb testing.TB, db *gorm.DB, projectID, playerID, tag, value string) models.PlayerTag {
	tb.Helper()
	t := models.PlayerTag{ID: uuid.NewString(), ProjectID: projectID, PlayerID: playerID, Tag: tag, Value: value}
	create(tb, db, &t)
	return t
}

// Credit posts amount to a player's balance with a matching event.
func Credit(tb testing.TB, db *gorm.DB, projectID, playerID string, amount int64) {
	tb.Helper()
	ev := models.Event{ID: uuid.NewString(), ProjectID: projectID, Type: "TestCredit", PrimaryID: playerID}
	create(tb, db, &ev)
	tx := models.Transaction{ID: uuid.NewString(), ProjectID: projectID, PlayerID: playerID, EventID: ev.ID, Amount: amount}
	create(tb, db, &tx)
}
