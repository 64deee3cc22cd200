// services/catalog.go
package services

import (
	"context"
	"errors"
	"strings"

	"game-session-backend/apperr"
	"game-session-backend/logger"
	"game-session-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// projectWordNamespace holds project word-ids, which are unique across projects.
const projectWordNamespace = "00000000-0000-0000-0000-000000000000"

const maxPlayerBatch = 500

type ActivityInput struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Value        int64  `json:"value"`
	IsRepeatable bool   `json:"isRepeatable"`
	RepeatValue  int64  `json:"repeatValue"`
	IsDuel       bool   `json:"isDuel"`
}

type ItemInput struct {
	Name                string            `json:"name"`
	Description         string            `json:"description"`
	Icon                string            `json:"icon"`
	Cost                int64             `json:"cost"`
	IsPurchasable       bool              `json:"isPurchasable"`
	IsRedeemable        bool              `json:"isRedeemable"`
	RedemptionChallenge string            `json:"redemptionChallenge"`
	Tags                map[string]string `json:"tags"`
}

// CatalogService creates the entities that physical codes point at. Every
// creation claims its word-id in the same transaction.
type CatalogService struct {
	DB    *gorm.DB
	Words *WordAllocator
	Log   *logger.Logger
}

func NewCatalogService(db *gorm.DB, words *WordAllocator, log *logger.Logger) *CatalogService {
	return &CatalogService{DB: db, Words: words, Log: log}
}

func (s *CatalogService) CreateProject(ctx context.Context, name string) (*models.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	project := models.Project{ID: uuid.NewString(), Name: name}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		word, err := s.Words.ClaimWordID(ctx, tx, projectWordNamespace)
		if err != nil {
			return err
		}
		project.WordID = word
		return apperr.FromStorage("create project", tx.Create(&project).Error)
	})
	if err != nil {
		return nil, err
	}
	s.Log.Info("project created", "project_id", project.ID, "word_id", project.WordID)
	return &project, nil
}

func (s *CatalogService) requireProject(tx *gorm.DB, projectID string) error {
	if err := requireID("project", projectID); err != nil {
		return err
	}
	var p models.Project
	err := tx.Select("id").First(&p, "id = ?", projectID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("project not found")
	}
	return apperr.FromStorage("load project", err)
}

// CreatePlayers mints count unclaimed placeholder players.
func (s *CatalogService) CreatePlayers(ctx context.Context, projectID string, count int) ([]models.Player, error) {
	if count < 1 || count > maxPlayerBatch {
		return nil, apperr.Validation("count must be between 1 and %d", maxPlayerBatch)
	}
	players := make([]models.Player, 0, count)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.requireProject(tx, projectID); err != nil {
			return err
		}
		for i := 0; i < count; i++ {
			word, err := s.Words.ClaimWordID(ctx, tx, projectID)
			if err != nil {
				return err
			}
			players = append(players, models.Player{ID: uuid.NewString(), ProjectID: projectID, WordID: word})
		}
		return apperr.FromStorage("create players", tx.Create(&players).Error)
	})
	if err != nil {
		return nil, err
	}
	s.Log.Info("players created", "project_id", projectID, "count", count)
	return players, nil
}

func (s *CatalogService) CreateActivity(ctx context.Context, projectID string, in ActivityInput) (*models.Activity, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperr.Validation("name is required")
	}
	if in.Value < 0 || in.RepeatValue < 0 {
		return nil, apperr.Validation("values cannot be negative")
	}
	activity := models.Activity{
		ID:           uuid.NewString(),
		ProjectID:    projectID,
		Name:         strings.TrimSpace(in.Name),
		Description:  in.Description,
		Value:        in.Value,
		IsRepeatable: in.IsRepeatable,
		RepeatValue:  in.RepeatValue,
		IsDuel:       in.IsDuel,
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.requireProject(tx, projectID); err != nil {
			return err
		}
		word, err := s.Words.ClaimWordID(ctx, tx, projectID)
		if err != nil {
			return err
		}
		activity.WordID = word
		return apperr.FromStorage("create activity", tx.Create(&activity).Error)
	})
	if err != nil {
		return nil, err
	}
	return &activity, nil
}

func (s *CatalogService) CreateItem(ctx context.Context, projectID string, in ItemInput) (*models.StoreItem, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperr.Validation("name is required")
	}
	if in.Cost < 0 {
		return nil, apperr.Validation("cost cannot be negative")
	}
	item := models.StoreItem{
		ID:                  uuid.NewString(),
		ProjectID:           projectID,
		Name:                strings.TrimSpace(in.Name),
		Description:         in.Description,
		Icon:                in.Icon,
		Cost:                in.Cost,
		IsPurchasable:       in.IsPurchasable,
		IsRedeemable:        in.IsRedeemable,
		RedemptionChallenge: in.RedemptionChallenge,
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.requireProject(tx, projectID); err != nil {
			return err
		}
		word, err := s.Words.ClaimWordID(ctx, tx, projectID)
		if err != nil {
			return err
		}
		item.WordID = word
		if err := tx.Create(&item).Error; err != nil {
			return apperr.FromStorage("create item", err)
		}
		for tag, value := range in.Tags {
			t, err := upsertItemTag(tx, projectID, item.ID, tag, value)
			if err != nil {
				return err
			}
			item.Tags = append(item.Tags, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// SetItemTag adds or replaces one tag on an item.
func (s *CatalogService) SetItemTag(ctx context.Context, projectID, itemID, tag, value string) (*models.StoreItemTag, error) {
	var out models.StoreItemTag
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findItem(tx, projectID, itemID); err != nil {
			return err
		}
		var err error
		out, err = upsertItemTag(tx, projectID, itemID, tag, value)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func upsertItemTag(tx *gorm.DB, projectID, itemID, tag, value string) (models.StoreItemTag, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return models.StoreItemTag{}, apperr.Validation("tag is required")
	}
	row := models.StoreItemTag{ID: uuid.NewString(), ProjectID: projectID, ItemID: itemID, Tag: tag, Value: value}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "item_id"}, {Name: "tag"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&row).Error
	return row, apperr.FromStorage("tag item", err)
}

// GrantItem gives a player units of an item outside the store.
func (s *CatalogService) GrantItem(ctx context.Context, projectID, playerID, itemID string, quantity int64) (*models.InventoryRecord, error) {
	if quantity < 1 {
		return nil, apperr.Validation("quantity must be positive")
	}
	var out models.InventoryRecord
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockPlayers(tx, projectID, playerID); err != nil {
			return err
		}
		if _, err := findItem(tx, projectID, itemID); err != nil {
			return err
		}
		var err error
		out, err = addInventory(tx, projectID, playerID, itemID, quantity)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
