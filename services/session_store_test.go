package services

import (
	"context"
	"testing"

	"game-session-backend/models"
	"game-session-backend/testutil"
)

func TestSessionLifecycle(t *testing.T) {
	db := testutil.DB(t)
	project := testutil.Project(t, db)
	player := testutil.Player(t, db, project.ID, "Ada")
	store := NewSessionStore(db, "test-secret", "test")
	ctx := context.Background()

	token, err := store.StartSession(ctx, project.ID, player.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	id, err := store.GetSession(ctx, token)
	if err != nil || id == nil {
		t.Fatalf("get: %v %v", id, err)
	}
	if id.ProjectID != project.ID || id.PlayerID != player.ID {
		t.Fatalf("unexpected identity %#v", id)
	}

	if err := store.EndSessionByID(ctx, project.ID, token); err != nil {
		t.Fatalf("end: %v", err)
	}
	if id, _ := store.GetSession(ctx, token); id != nil {
		t.Fatalf("token should be gone after logout")
	}
}

func TestStartSessionDisplacesPreviousToken(t *testing.T) {
	db := testutil.DB(t)
	project := testutil.Project(t, db)
	player := testutil.Player(t, db, project.ID, "Ada")
	store := NewSessionStore(db, "test-secret", "test")
	ctx := context.Background()

	first, _ := store.StartSession(ctx, project.ID, player.ID)
	second, err := store.StartSession(ctx, project.ID, player.ID)
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if first == second {
		t.Fatalf("tokens should differ")
	}
	if id, _ := store.GetSession(ctx, first); id != nil {
		t.Fatalf("first token should be displaced")
	}
	if id, _ := store.GetSession(ctx, second); id == nil {
		t.Fatalf("second token should resolve")
	}

	if err := store.EndPlayerSession(ctx, project.ID, player.ID); err != nil {
		t.Fatalf("end player session: %v", err)
	}
	if id, _ := store.GetSession(ctx, second); id != nil {
		t.Fatalf("session should be ended")
	}
}

func TestGetSessionRejectsForgedTokens(t *testing.T) {
	db := testutil.DB(t)
	project := testutil.Project(t, db)
	player := testutil.Player(t, db, project.ID, "Ada")
	ctx := context.Background()

	other := NewSessionStore(db, "other-secret", "test")
	forged, _ := other.StartSession(ctx, project.ID, player.ID)

	store := NewSessionStore(db, "test-secret", "test")
	for _, tok := range []string{"", "garbage", forged} {
		id, err := store.GetSession(ctx, tok)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", tok, err)
		}
		if id != nil {
			t.Fatalf("token %q should not resolve", tok)
		}
	}
}

func TestSessionOfDeletedProjectDoesNotResolve(t *testing.T) {
	db := testutil.DB(t)
	project := testutil.Project(t, db)
	player := testutil.Player(t, db, project.ID, "Ada")
	store := NewSessionStore(db, "test-secret", "test")
	ctx := context.Background()

	token, err := store.StartSession(ctx, project.ID, player.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := db.Delete(&models.Project{}, "id = ?", project.ID).Error; err != nil {
		t.Fatalf("delete project: %v", err)
	}
	id, err := store.GetSession(ctx, token)
	if err != nil || id != nil {
		t.Fatalf("session of a deleted project should not resolve, got %v %v", id, err)
	}
}
