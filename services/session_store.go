// services/session_store.go
package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"game-session-backend/apperr"
	"game-session-backend/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Identity is the resolved owner of a session token.
type Identity struct {
	ProjectID string `json:"projectUuid"`
	PlayerID  string `json:"playerUuid"`
}

type sessionClaims struct {
	Secret string `json:"sid"`
	jwt.RegisteredClaims
}

// SessionStore keeps at most one live token per (project, player). Only a
// hash of the token secret is persisted.
type SessionStore struct {
	DB     *gorm.DB
	key    []byte
	issuer string
	now    func() time.Time
}

func NewSessionStore(db *gorm.DB, secret, issuer string) *SessionStore {
	return &SessionStore{DB: db, key: []byte(secret), issuer: issuer, now: time.Now}
}

// StartSession issues a new token and displaces any previous one for the player.
func (s *SessionStore) StartSession(ctx context.Context, projectID, playerID string) (string, error) {
	return s.startSession(ctx, s.DB, projectID, playerID)
}

// StartSessionTx is StartSession inside the caller's transaction.
func (s *SessionStore) StartSessionTx(ctx context.Context, tx *gorm.DB, projectID, playerID string) (string, error) {
	return s.startSession(ctx, tx, projectID, playerID)
}

func (s *SessionStore) startSession(ctx context.Context, db *gorm.DB, projectID, playerID string) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", apperr.Internal("session secret", err)
	}
	secret := base64.RawURLEncoding.EncodeToString(raw)

	row := models.Session{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		PlayerID:  playerID,
		TokenHash: hashSecret(secret),
	}
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_id"}, {Name: "player_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"token_hash", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return "", apperr.FromStorage("start session", err)
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		Secret: secret,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   s.issuer,
			Subject:  playerID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	})
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", apperr.Internal("sign session", err)
	}
	return signed, nil
}

// GetSession resolves a token. Unverifiable or displaced tokens, and tokens of
// a deleted project, return nil with no error; only storage failures are errors.
func (s *SessionStore) GetSession(ctx context.Context, token string) (*Identity, error) {
	secret, ok := s.verify(token)
	if !ok {
		return nil, nil
	}
	var row models.Session
	err := s.DB.WithContext(ctx).
		Joins("JOIN projects ON projects.id = project_sessions.project_id AND projects.deleted_at IS NULL").
		Where("project_sessions.token_hash = ?", hashSecret(secret)).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.FromStorage("get session", err)
	}
	return &Identity{ProjectID: row.ProjectID, PlayerID: row.PlayerID}, nil
}

func (s *SessionStore) EndPlayerSession(ctx context.Context, projectID, playerID string) error {
	err := s.DB.WithContext(ctx).
		Where("project_id = ? AND player_id = ?", projectID, playerID).
		Delete(&models.Session{}).Error
	return apperr.FromStorage("end player session", err)
}

// EndSessionByID removes the session the token names, if it still belongs to projectID.
func (s *SessionStore) EndSessionByID(ctx context.Context, projectID, token string) error {
	secret, ok := s.verify(token)
	if !ok {
		return nil
	}
	err := s.DB.WithContext(ctx).
		Where("project_id = ? AND token_hash = ?", projectID, hashSecret(secret)).
		Delete(&models.Session{}).Error
	return apperr.FromStorage("end session", err)
}

func (s *SessionStore) verify(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.key, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid || claims.Secret == "" {
		return "", false
	}
	return claims.Secret, true
}

func hashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
