// services/archive.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"game-session-backend/apperr"
	"game-session-backend/logger"
	"game-session-backend/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// ObjectPutter is the slice of the S3 API the archive needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// LedgerSnapshot is the archived form of one project's ledger.
type LedgerSnapshot struct {
	ProjectID    string               `json:"projectUuid"`
	TakenAt      time.Time            `json:"takenAt"`
	Events       []models.Event       `json:"events"`
	Transactions []models.Transaction `json:"transactions"`
}

// ArchiveService copies project ledgers to object storage. It only reads game
// state and runs outside the request path.
type ArchiveService struct {
	DB     *gorm.DB
	Store  ObjectPutter
	Bucket string
	Log    *logger.Logger
	now    func() time.Time
}

func NewArchiveService(db *gorm.DB, store ObjectPutter, bucket string, log *logger.Logger) *ArchiveService {
	return &ArchiveService{DB: db, Store: store, Bucket: bucket, Log: log, now: time.Now}
}

// ExportProject uploads a snapshot and returns its object key.
func (s *ArchiveService) ExportProject(ctx context.Context, projectID string) (string, error) {
	if s.Store == nil {
		return "", apperr.Validation("ledger archive is not configured")
	}
	if err := requireID("project", projectID); err != nil {
		return "", err
	}
	var project models.Project
	if err := s.DB.WithContext(ctx).First(&project, "id = ?", projectID).Error; err != nil {
		return "", apperr.FromStorage("archive project", err)
	}

	snap := LedgerSnapshot{ProjectID: projectID, TakenAt: s.now().UTC()}
	if err := s.DB.WithContext(ctx).Where("project_id = ?", projectID).Order("timestamp").Find(&snap.Events).Error; err != nil {
		return "", apperr.FromStorage("archive events", err)
	}
	if err := s.DB.WithContext(ctx).Where("project_id = ?", projectID).Order("timestamp").Find(&snap.Transactions).Error; err != nil {
		return "", apperr.FromStorage("archive transactions", err)
	}

	body, err := json.Marshal(snap)
	if err != nil {
		return "", apperr.Internal("encode snapshot", err)
	}
	key := fmt.Sprintf("ledger/%s/%d.json", projectID, snap.TakenAt.Unix())
	_, err = s.Store.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", apperr.Internal("upload snapshot", err)
	}
	s.Log.Info("ledger archived", "project_id", projectID, "key", key,
		"events", len(snap.Events), "transactions", len(snap.Transactions))
	return key, nil
}

// ExportAll archives every live project and returns how many succeeded.
func (s *ArchiveService) ExportAll(ctx context.Context) (int, error) {
	var ids []string
	if err := s.DB.WithContext(ctx).Model(&models.Project{}).Pluck("id", &ids).Error; err != nil {
		return 0, apperr.FromStorage("archive projects", err)
	}
	done := 0
	for _, id := range ids {
		if _, err := s.ExportProject(ctx, id); err != nil {
			s.Log.Error("ledger archive failed", "project_id", id, "error", err)
			continue
		}
		done++
	}
	return done, nil
}

// StartSchedule runs ExportAll every interval until ctx is done.
func (s *ArchiveService) StartSchedule(ctx context.Context, interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			n, err := s.ExportAll(ctx)
			if err != nil {
				s.Log.Error("ledger archive run failed", "error", err)
				return
			}
			s.Log.Info("ledger archive run finished", "projects", n)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, err
	}
	sched.Start()
	go func() {
		<-ctx.Done()
		_ = sched.Shutdown()
	}()
	return sched, nil
}
