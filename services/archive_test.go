package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"game-session-backend/apperr"
	"game-session-backend/testutil"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakePutter struct {
	keys   []string
	bodies [][]byte
	err    error
}

func (f *fakePutter) PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(in.Body)
	f.keys = append(f.keys, *in.Key)
	f.bodies = append(f.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

func TestExportProjectUploadsLedger(t *testing.T) {
	db := testutil.DB(t)
	project := testutil.Project(t, db)
	player := testutil.Player(t, db, project.ID, "Ada")
	testutil.Credit(t, db, project.ID, player.ID, 42)

	store := &fakePutter{}
	svc := NewArchiveService(db, store, "ledger", testutil.Logger(t))
	svc.now = func() time.Time { return time.Unix(1700000000, 0) }

	key, err := svc.ExportProject(context.Background(), project.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if key != "ledger/"+project.ID+"/1700000000.json" {
		t.Fatalf("unexpected key %q", key)
	}
	var snap LedgerSnapshot
	if err := json.Unmarshal(store.bodies[0], &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(snap.Events) != 1 || len(snap.Transactions) != 1 || snap.Transactions[0].Amount != 42 {
		t.Fatalf("unexpected snapshot %#v", snap)
	}
}

func TestExportProjectErrors(t *testing.T) {
	db := testutil.DB(t)
	svc := NewArchiveService(db, nil, "ledger", testutil.Logger(t))
	if _, err := svc.ExportProject(context.Background(), "x"); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error without store, got %v", err)
	}

	svc.Store = &fakePutter{}
	if _, err := svc.ExportProject(context.Background(), "00000000-0000-0000-0000-000000000000"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestExportAllSkipsFailures(t *testing.T) {
	db := testutil.DB(t)
	testutil.Project(t, db)
	testutil.Project(t, db)

	svc := NewArchiveService(db, &fakePutter{err: errors.New("bucket gone")}, "ledger", testutil.Logger(t))
	n, err := svc.ExportAll(context.Background())
	if err != nil {
		t.Fatalf("export all: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no successes, got %d", n)
	}

	store := &fakePutter{}
	svc.Store = store
	n, _ = svc.ExportAll(context.Background())
	if n != 2 || len(store.keys) != 2 || !strings.HasPrefix(store.keys[0], "ledger/") {
		t.Fatalf("expected two uploads, got %d %v", n, store.keys)
	}
}
