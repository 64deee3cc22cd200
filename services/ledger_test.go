package services

import (
	"context"
	"errors"
	"testing"

	"game-session-backend/apperr"
	"game-session-backend/models"
	"game-session-backend/testutil"

	"gorm.io/gorm"
)

func TestBalanceIsSumOfTransactions(t *testing.T) {
	db := testutil.DB(t)
	project := testutil.Project(t, db)
	player := testutil.Player(t, db, project.ID, "Ada")
	other := testutil.Player(t, db, project.ID, "Bob")
	ledger := NewLedger(db)
	ctx := context.Background()

	bal, err := ledger.Balance(ctx, nil, project.ID, player.ID)
	if err != nil || bal != 0 {
		t.Fatalf("empty balance: %d %v", bal, err)
	}

	for _, amount := range []int64{10, 25, -7} {
		if _, err := ledger.Post(ctx, nil, EventInput{ProjectID: project.ID, Type: "Test", PrimaryID: player.ID}, player.ID, amount); err != nil {
			t.Fatalf("post: %v", err)
		}
	}
	testutil.Credit(t, db, project.ID, other.ID, 100)

	bal, _ = ledger.Balance(ctx, nil, project.ID, player.ID)
	if bal != 28 {
		t.Fatalf("expected 28, got %d", bal)
	}

	var events, txs int64
	db.Model(&models.Event{}).Where("primary_id = ?", player.ID).Count(&events)
	db.Model(&models.Transaction{}).Where("player_id = ?", player.ID).Count(&txs)
	if events != 3 || txs != 3 {
		t.Fatalf("expected 3 events and 3 transactions, got %d and %d", events, txs)
	}
}

func TestTransactionRequiresEvent(t *testing.T) {
	db := testutil.DB(t)
	err := NewLedger(db).RecordTransaction(context.Background(), nil, "p", "x", "", 5)
	if !errors.Is(err, apperr.ErrInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestPostRollsBackWithTransaction(t *testing.T) {
	db := testutil.DB(t)
	project := testutil.Project(t, db)
	player := testutil.Player(t, db, project.ID, "Ada")
	ledger := NewLedger(db)
	ctx := context.Background()

	boom := errors.New("boom")
	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := ledger.Post(ctx, tx, EventInput{ProjectID: project.ID, Type: "Test"}, player.ID, 50); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	bal, _ := ledger.Balance(ctx, nil, project.ID, player.ID)
	if bal != 0 {
		t.Fatalf("rolled back posting should not count, balance %d", bal)
	}
}

func TestHasClaimed(t *testing.T) {
	db := testutil.DB(t)
	project := testutil.Project(t, db)
	player := testutil.Player(t, db, project.ID, "Ada")
	activity := testutil.Activity(t, db, models.Activity{ProjectID: project.ID, Value: 10})
	ledger := NewLedger(db)
	ctx := context.Background()

	claimed, err := ledger.HasClaimed(ctx, nil, project.ID, player.ID, activity.ID)
	if err != nil || claimed {
		t.Fatalf("expected unclaimed: %v %v", claimed, err)
	}
	_, err = ledger.Post(ctx, nil, EventInput{
		ProjectID: project.ID, Type: models.EventActivityCompleted, PrimaryID: activity.ID, SecondaryID: player.ID,
	}, player.ID, 10)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	claimed, _ = ledger.HasClaimed(ctx, nil, project.ID, player.ID, activity.ID)
	if !claimed {
		t.Fatalf("expected claimed")
	}
}

func TestHasWonDuelActivityBeforeFiltersByVictor(t *testing.T) {
	db := testutil.DB(t)
	project := testutil.Project(t, db)
	winner := testutil.Player(t, db, project.ID, "Ada")
	loser := testutil.Player(t, db, project.ID, "Bob")
	activity := testutil.Activity(t, db, models.Activity{ProjectID: project.ID, IsDuel: true})
	ledger := NewLedger(db)
	ctx := context.Background()

	for _, p := range []string{winner.ID, loser.ID} {
		_, err := ledger.RecordEvent(ctx, nil, EventInput{
			ProjectID: project.ID,
			Type:      models.EventDuelComplete,
			Payload: DuelCompletePayload{
				DuelID: "d", ActivityID: activity.ID, VictorID: winner.ID,
			},
			PrimaryID:   p,
			SecondaryID: activity.ID,
		})
		if err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	won, err := ledger.HasWonDuelActivityBefore(ctx, nil, project.ID, winner.ID, activity.ID)
	if err != nil || !won {
		t.Fatalf("winner should have won before: %v %v", won, err)
	}
	won, _ = ledger.HasWonDuelActivityBefore(ctx, nil, project.ID, loser.ID, activity.ID)
	if won {
		t.Fatalf("loser has a DuelComplete event but never won")
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	db := testutil.DB(t)
	project := testutil.Project(t, db)
	player := testutil.Player(t, db, project.ID, "Ada")
	ledger := NewLedger(db)
	ctx := context.Background()

	if _, err := ledger.Post(ctx, nil, EventInput{ProjectID: project.ID, Type: models.EventItemPurchased}, player.ID, -5); err != nil {
		t.Fatalf("post: %v", err)
	}
	entries, err := ledger.History(ctx, project.ID, player.ID, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 1 || entries[0].EventType != models.EventItemPurchased || entries[0].Amount != -5 {
		t.Fatalf("unexpected history %#v", entries)
	}
}
