package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"game-session-backend/apperr"
	"game-session-backend/hooks"
	"game-session-backend/models"
	"game-session-backend/testutil"

	"gorm.io/gorm"
)

type recordingDuelHooks struct {
	completed []models.Duel
	cancelled []models.Duel
	fail      error
}

func (h *recordingDuelHooks) DuelComplete(s hooks.Scope, p hooks.DuelPayload) (*hooks.Message, error) {
	if h.fail != nil {
		return nil, h.fail
	}
	h.completed = append(h.completed, p.Duel)
	return &hooks.Message{Message: "complete"}, nil
}

func (h *recordingDuelHooks) DuelCancelled(s hooks.Scope, p hooks.DuelPayload) (*hooks.Message, error) {
	h.cancelled = append(h.cancelled, p.Duel)
	return nil, nil
}

type duelFixture struct {
	db        *gorm.DB
	engine    *DuelEngine
	ledger    *Ledger
	hooks     *recordingDuelHooks
	project   models.Project
	initiator models.Player
	recipient models.Player
	activity  models.Activity
}

func newDuelFixture(t *testing.T) *duelFixture {
	t.Helper()
	db := testutil.DB(t)
	ledger := NewLedger(db)
	rec := &recordingDuelHooks{}
	hm := hooks.NewManager()
	if _, err := hm.RegisterPlugin(rec); err != nil {
		t.Fatalf("register: %v", err)
	}
	project := testutil.Project(t, db)
	return &duelFixture{
		db:        db,
		engine:    NewDuelEngine(db, ledger, hm, testutil.Logger(t)),
		ledger:    ledger,
		hooks:     rec,
		project:   project,
		initiator: testutil.Player(t, db, project.ID, "Ida"),
		recipient: testutil.Player(t, db, project.ID, "Rex"),
		activity: testutil.Activity(t, db, models.Activity{
			ProjectID: project.ID, Name: "Arm wrestle", Value: 30, RepeatValue: 10, IsDuel: true,
		}),
	}
}

func (f *duelFixture) as(p models.Player) Identity {
	return Identity{ProjectID: f.project.ID, PlayerID: p.ID}
}

func (f *duelFixture) create(t *testing.T) DuelView {
	t.Helper()
	d, err := f.engine.Create(context.Background(), f.as(f.initiator), CreateDuelInput{
		RecipientID: f.recipient.ID, ActivityID: f.activity.ID,
	})
	if err != nil {
		t.Fatalf("create duel: %v", err)
	}
	return *d
}

func (f *duelFixture) apply(t *testing.T, actor models.Player, duelID string, kind ChangeType, payload any) (*DuelResult, error) {
	t.Helper()
	c := Change{Type: kind}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		c.Payload = raw
	}
	return f.engine.Apply(context.Background(), f.as(actor), duelID, c)
}

func (f *duelFixture) mustApply(t *testing.T, actor models.Player, duelID string, kind ChangeType, payload any) *DuelResult {
	t.Helper()
	res, err := f.apply(t, actor, duelID, kind, payload)
	if err != nil {
		t.Fatalf("%s: %v", kind, err)
	}
	return res
}

func (f *duelFixture) balance(t *testing.T, p models.Player) int64 {
	t.Helper()
	bal, err := f.ledger.Balance(context.Background(), nil, f.project.ID, p.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return bal
}

func accepted(v bool) map[string]bool { return map[string]bool{"accepted": v} }

func TestDuelFullLifecycle(t *testing.T) {
	f := newDuelFixture(t)
	d := f.create(t)
	if d.State != models.DuelPending {
		t.Fatalf("duel with recipient and activity starts Pending, got %s", d.State)
	}
	if d.Recipient == nil || d.Recipient.Name != "Rex" || d.Activity == nil || d.Activity.Value != 30 {
		t.Fatalf("view not enriched: %+v", d)
	}

	_, err := f.apply(t, f.initiator, d.ID, ChangeAddRecipient, map[string]string{"recipientUuid": f.recipient.ID})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("AddRecipient on a Pending duel should conflict, got %v", err)
	}

	res := f.mustApply(t, f.recipient, d.ID, ChangeRecipientConfirm, accepted(true))
	if res.Duel.State != models.DuelAccepted {
		t.Fatalf("expected Accepted, got %s", res.Duel.State)
	}

	res = f.mustApply(t, f.initiator, d.ID, ChangeVictor, map[string]bool{"initiatorVictory": true})
	if res.Duel.State != models.DuelPendingRecipientConfirm || *res.Duel.VictorID != f.initiator.ID {
		t.Fatalf("unexpected duel after Victor: %+v", res.Duel.Duel)
	}

	res = f.mustApply(t, f.recipient, d.ID, ChangeVictorConfirm, accepted(true))
	if res.Duel.State != models.DuelComplete {
		t.Fatalf("expected Complete, got %s", res.Duel.State)
	}
	if len(res.Hooks[hooks.DuelComplete]) != 1 || len(f.hooks.completed) != 1 {
		t.Fatalf("duelComplete hook not fired: %+v", res.Hooks)
	}
	if got := f.balance(t, f.initiator); got != 30 {
		t.Fatalf("victor should earn 30, got %d", got)
	}
	if got := f.balance(t, f.recipient); got != 0 {
		t.Fatalf("loser should earn nothing, got %d", got)
	}

	var events int64
	f.db.Model(&models.Event{}).Where("type = ?", models.EventDuelComplete).Count(&events)
	if events != 2 {
		t.Fatalf("expected an event per participant, got %d", events)
	}
}

func TestDuelRepeatWinUsesRepeatValue(t *testing.T) {
	f := newDuelFixture(t)
	for round := 0; round < 2; round++ {
		d := f.create(t)
		f.mustApply(t, f.recipient, d.ID, ChangeRecipientConfirm, accepted(true))
		f.mustApply(t, f.recipient, d.ID, ChangeVictor, map[string]bool{"initiatorVictory": true})
		res := f.mustApply(t, f.initiator, d.ID, ChangeVictorConfirm, accepted(true))
		if res.Duel.State != models.DuelComplete {
			t.Fatalf("round %d: expected Complete, got %s", round, res.Duel.State)
		}
	}
	if got := f.balance(t, f.initiator); got != 30+10 {
		t.Fatalf("expected 40, got %d", got)
	}
}

// Two duels on one activity against different opponents, both in flight
// before either completes: only the first completion earns the full value.
func TestInterleavedWinsOnSameActivity(t *testing.T) {
	f := newDuelFixture(t)
	other := testutil.Player(t, f.db, f.project.ID, "Ola")

	first := f.create(t)
	second, err := f.engine.Create(context.Background(), f.as(f.initiator), CreateDuelInput{
		RecipientID: other.ID, ActivityID: f.activity.ID,
	})
	if err != nil {
		t.Fatalf("create second duel: %v", err)
	}

	f.mustApply(t, f.recipient, first.ID, ChangeRecipientConfirm, accepted(true))
	f.mustApply(t, other, second.ID, ChangeRecipientConfirm, accepted(true))
	f.mustApply(t, f.initiator, first.ID, ChangeVictor, map[string]bool{"initiatorVictory": true})
	f.mustApply(t, f.initiator, second.ID, ChangeVictor, map[string]bool{"initiatorVictory": true})

	f.mustApply(t, f.recipient, first.ID, ChangeVictorConfirm, accepted(true))
	f.mustApply(t, other, second.ID, ChangeVictorConfirm, accepted(true))

	if got := f.balance(t, f.initiator); got != 30+10 {
		t.Fatalf("second win should pay the repeat value, got %d", got)
	}
	var amounts []int64
	f.db.Model(&models.Transaction{}).Where("player_id = ?", f.initiator.ID).Order("amount desc").Pluck("amount", &amounts)
	if len(amounts) != 2 || amounts[0] != 30 || amounts[1] != 10 {
		t.Fatalf("expected one full and one repeat payout, got %v", amounts)
	}
}

func TestDuelRejectedConfirmReturnsToAccepted(t *testing.T) {
	f := newDuelFixture(t)
	d := f.create(t)
	f.mustApply(t, f.recipient, d.ID, ChangeRecipientConfirm, accepted(true))
	f.mustApply(t, f.recipient, d.ID, ChangeVictor, map[string]bool{"initiatorVictory": false})

	_, err := f.apply(t, f.recipient, d.ID, ChangeVictorConfirm, accepted(true))
	if !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("reporter cannot confirm their own result, got %v", err)
	}

	res := f.mustApply(t, f.initiator, d.ID, ChangeVictorConfirm, accepted(false))
	if res.Duel.State != models.DuelAccepted || res.Duel.VictorID != nil {
		t.Fatalf("rejected confirm should reset to Accepted: %+v", res.Duel.Duel)
	}
}

func TestVictorConfirmOnCreatedIsConflict(t *testing.T) {
	f := newDuelFixture(t)
	d, err := f.engine.Create(context.Background(), f.as(f.initiator), CreateDuelInput{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if d.State != models.DuelCreated {
		t.Fatalf("expected Created, got %s", d.State)
	}

	_, err = f.apply(t, f.initiator, d.ID, ChangeVictorConfirm, accepted(true))
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	var after models.Duel
	f.db.First(&after, "id = ?", d.ID)
	if after.State != models.DuelCreated || after.VictorID != nil {
		t.Fatalf("duel row mutated: %+v", after)
	}
}

func TestCancelByRecipientAlwaysUnauthorized(t *testing.T) {
	f := newDuelFixture(t)
	d := f.create(t)

	steps := []struct {
		actor   models.Player
		kind    ChangeType
		payload any
	}{
		{},
		{f.recipient, ChangeRecipientConfirm, accepted(true)},
		{f.initiator, ChangeVictor, map[string]bool{"initiatorVictory": true}},
	}
	for i, st := range steps {
		if i > 0 {
			f.mustApply(t, st.actor, d.ID, st.kind, st.payload)
		}
		_, err := f.apply(t, f.recipient, d.ID, ChangeCancel, nil)
		if !errors.Is(err, apperr.ErrUnauthorized) {
			t.Fatalf("step %d: expected unauthorized, got %v", i, err)
		}
	}
}

func TestCancelFlows(t *testing.T) {
	t.Run("direct from pending", func(t *testing.T) {
		f := newDuelFixture(t)
		d := f.create(t)
		res := f.mustApply(t, f.initiator, d.ID, ChangeCancel, nil)
		if res.Duel.State != models.DuelCancelled {
			t.Fatalf("expected Cancelled, got %s", res.Duel.State)
		}
		if len(f.hooks.cancelled) != 1 {
			t.Fatalf("duelCancelled hook not fired")
		}
	})

	t.Run("accepted needs confirmation", func(t *testing.T) {
		f := newDuelFixture(t)
		d := f.create(t)
		f.mustApply(t, f.recipient, d.ID, ChangeRecipientConfirm, accepted(true))

		res := f.mustApply(t, f.initiator, d.ID, ChangeCancel, nil)
		if res.Duel.State != models.DuelPendingCancel {
			t.Fatalf("expected PendingCancel, got %s", res.Duel.State)
		}
		res = f.mustApply(t, f.recipient, d.ID, ChangeCancelConfirm, accepted(false))
		if res.Duel.State != models.DuelAccepted {
			t.Fatalf("rejected cancel should return to Accepted, got %s", res.Duel.State)
		}

		f.mustApply(t, f.initiator, d.ID, ChangeCancel, nil)
		res = f.mustApply(t, f.recipient, d.ID, ChangeCancelConfirm, accepted(true))
		if res.Duel.State != models.DuelCancelled {
			t.Fatalf("expected Cancelled, got %s", res.Duel.State)
		}
		if _, ok := res.Hooks[hooks.DuelCancelled]; !ok {
			t.Fatalf("hooks should carry the duelCancelled key: %+v", res.Hooks)
		}
		var events int64
		f.db.Model(&models.Event{}).Where("type = ? AND secondary_id = ?", models.EventDuelCancelled, d.ID).Count(&events)
		if events != 2 {
			t.Fatalf("expected an event per participant, got %d", events)
		}
	})
}

func TestDuplicateActiveDuelConflicts(t *testing.T) {
	f := newDuelFixture(t)
	f.create(t)

	_, err := f.engine.Create(context.Background(), f.as(f.recipient), CreateDuelInput{RecipientID: f.initiator.ID})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("reverse-direction duplicate should conflict, got %v", err)
	}

	open, err := f.engine.Create(context.Background(), f.as(f.initiator), CreateDuelInput{})
	if err != nil {
		t.Fatalf("create open duel: %v", err)
	}
	_, err = f.apply(t, f.initiator, open.ID, ChangeAddRecipient, map[string]string{"recipientUuid": f.recipient.ID})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("AddRecipient duplicate should conflict, got %v", err)
	}
}

func TestDuelGuards(t *testing.T) {
	f := newDuelFixture(t)
	ctx := context.Background()
	outsider := testutil.Player(t, f.db, f.project.ID, "Olga")
	unclaimed := testutil.UnclaimedPlayer(t, f.db, f.project.ID)
	plain := testutil.Activity(t, f.db, models.Activity{ProjectID: f.project.ID, Value: 5})
	d := f.create(t)

	cases := []struct {
		name string
		err  error
		want error
	}{
		{"unknown duel", func() error {
			_, err := f.apply(t, f.initiator, "not-a-uuid", ChangeCancel, nil)
			return err
		}(), apperr.ErrNotFound},
		{"non-party", func() error {
			_, err := f.apply(t, outsider, d.ID, ChangeCancel, nil)
			return err
		}(), apperr.ErrUnauthorized},
		{"non-party get", func() error {
			_, err := f.engine.Get(ctx, f.as(outsider), d.ID)
			return err
		}(), apperr.ErrUnauthorized},
		{"missing accepted", func() error {
			_, err := f.apply(t, f.recipient, d.ID, ChangeRecipientConfirm, map[string]string{})
			return err
		}(), apperr.ErrValidation},
		{"unknown change", func() error {
			_, err := f.apply(t, f.recipient, d.ID, "Surrender", nil)
			return err
		}(), apperr.ErrValidation},
		{"self duel", func() error {
			_, err := f.engine.Create(ctx, f.as(outsider), CreateDuelInput{RecipientID: outsider.ID})
			return err
		}(), apperr.ErrValidation},
		{"unclaimed recipient", func() error {
			_, err := f.engine.Create(ctx, f.as(outsider), CreateDuelInput{RecipientID: unclaimed.ID})
			return err
		}(), apperr.ErrValidation},
		{"non-duel activity", func() error {
			_, err := f.engine.Create(ctx, f.as(outsider), CreateDuelInput{ActivityID: plain.ID})
			return err
		}(), apperr.ErrValidation},
	}
	for _, tc := range cases {
		if !errors.Is(tc.err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want.(*apperr.Error).Kind, tc.err)
		}
	}
}

func TestAcceptWithoutActivityIsRejected(t *testing.T) {
	f := newDuelFixture(t)
	d, err := f.engine.Create(context.Background(), f.as(f.initiator), CreateDuelInput{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	res := f.mustApply(t, f.initiator, d.ID, ChangeAddRecipient, map[string]string{"recipientUuid": f.recipient.ID})
	if res.Duel.State != models.DuelPending {
		t.Fatalf("expected Pending, got %s", res.Duel.State)
	}
	_, err = f.apply(t, f.recipient, d.ID, ChangeRecipientConfirm, accepted(true))
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	res = f.mustApply(t, f.recipient, d.ID, ChangeAddActivity, map[string]string{"activityUuid": f.activity.ID})
	if res.Duel.State != models.DuelPending || res.Duel.Activity == nil {
		t.Fatalf("unexpected duel after AddActivity: %+v", res.Duel)
	}
	f.mustApply(t, f.recipient, d.ID, ChangeRecipientConfirm, accepted(true))
}

func TestCompleteHookFailureRollsBack(t *testing.T) {
	f := newDuelFixture(t)
	d := f.create(t)
	f.mustApply(t, f.recipient, d.ID, ChangeRecipientConfirm, accepted(true))
	f.mustApply(t, f.initiator, d.ID, ChangeVictor, map[string]bool{"initiatorVictory": true})

	f.hooks.fail = errors.New("boom")
	_, err := f.apply(t, f.recipient, d.ID, ChangeVictorConfirm, accepted(true))
	if !errors.Is(err, apperr.ErrInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
	var after models.Duel
	f.db.First(&after, "id = ?", d.ID)
	if after.State != models.DuelPendingRecipientConfirm {
		t.Fatalf("state should be unchanged, got %s", after.State)
	}
	if got := f.balance(t, f.initiator); got != 0 {
		t.Fatalf("no points should be posted, got %d", got)
	}
}

func TestCompleteHookConflictKeepsKind(t *testing.T) {
	f := newDuelFixture(t)
	d := f.create(t)
	f.mustApply(t, f.recipient, d.ID, ChangeRecipientConfirm, accepted(true))
	f.mustApply(t, f.initiator, d.ID, ChangeVictor, map[string]bool{"initiatorVictory": true})

	f.hooks.fail = apperr.Conflict("title changed hands")
	_, err := f.apply(t, f.recipient, d.ID, ChangeVictorConfirm, accepted(true))
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if got := f.balance(t, f.initiator); got != 0 {
		t.Fatalf("no points should be posted, got %d", got)
	}
}

func TestListFilters(t *testing.T) {
	f := newDuelFixture(t)
	ctx := context.Background()
	pending := f.create(t)
	open, err := f.engine.Create(ctx, f.as(f.initiator), CreateDuelInput{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	f.mustApply(t, f.initiator, pending.ID, ChangeCancel, nil)

	yes, no := true, false
	cases := []struct {
		name   string
		filter DuelFilter
		want   []string
	}{
		{"all", DuelFilter{}, []string{open.ID, pending.ID}},
		{"active", DuelFilter{Active: &yes}, []string{open.ID}},
		{"inactive", DuelFilter{Active: &no}, []string{pending.ID}},
		{"state", DuelFilter{States: []models.DuelState{models.DuelCancelled}}, []string{pending.ID}},
		{"missing recipient", DuelFilter{MissingRecipient: &yes}, []string{open.ID}},
		{"has activity", DuelFilter{MissingActivity: &no}, []string{pending.ID}},
		{"by activity", DuelFilter{ActivityID: f.activity.ID}, []string{pending.ID}},
		{"by recipient", DuelFilter{RecipientID: f.recipient.ID}, []string{pending.ID}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			views, err := f.engine.List(ctx, f.as(f.initiator), tc.filter)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			got := map[string]bool{}
			for _, v := range views {
				got[v.ID] = true
			}
			if len(got) != len(tc.want) {
				t.Fatalf("expected %d duels, got %d", len(tc.want), len(got))
			}
			for _, id := range tc.want {
				if !got[id] {
					t.Fatalf("missing duel %s", id)
				}
			}
		})
	}

	// The recipient sees the duel too, the outsider does not.
	views, _ := f.engine.List(ctx, f.as(f.recipient), DuelFilter{})
	if len(views) != 1 {
		t.Fatalf("recipient should see one duel, got %d", len(views))
	}
}
