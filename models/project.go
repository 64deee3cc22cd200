package models

import (
	"time"

	"gorm.io/gorm"
)

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

// Project scopes every other entity. Soft-deleted projects drop out of all lookups.
type Project struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"uuid"`
	WordID string `gorm:"not null" json:"wordId"`
	Name   string `gorm:"not null" json:"name"`

	Timestamps
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Project) TableName() string { return "projects" }

// ClaimedWord reserves a word-id inside a project.
type ClaimedWord struct {
	ProjectID string    `gorm:"primaryKey;type:uuid"`
	WordID    string    `gorm:"primaryKey;size:64"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (ClaimedWord) TableName() string { return "project_word_ids" }
