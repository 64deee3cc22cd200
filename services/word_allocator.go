// services/word_allocator.go
package services

import (
	"context"
	"fmt"
	"math/rand/v2"

	"game-session-backend/apperr"
	"game-session-backend/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var wordAdjectives = []string{
	"amber", "bold", "brave", "bright", "calm", "clever", "cosmic", "crisp", "dapper", "eager",
	"fancy", "fuzzy", "gentle", "giant", "golden", "happy", "hidden", "jolly", "keen", "lively",
	"lucky", "mellow", "mighty", "misty", "noble", "odd", "plucky", "proud", "quick", "quiet",
	"rapid", "royal", "rusty", "shiny", "silent", "silver", "sleepy", "sly", "snowy", "spicy",
	"sunny", "swift", "tidy", "tiny", "velvet", "wild", "witty", "zesty",
}

var wordNouns = []string{
	"badger", "beacon", "bison", "canyon", "comet", "falcon", "ferret", "fjord", "gecko", "glacier",
	"harbor", "heron", "iguana", "jackal", "kestrel", "koala", "lagoon", "lantern", "lemur", "lynx",
	"magpie", "meadow", "moose", "nebula", "otter", "owl", "panda", "pebble", "pelican", "puffin",
	"quokka", "raven", "river", "salmon", "spruce", "summit", "tiger", "toucan", "tundra", "walrus",
	"willow", "wombat", "yak", "zebra",
}

// WordAllocator hands out short human-typable ids unique within a project.
type WordAllocator struct {
	MaxAttempts int
	// draw is replaceable in tests to force collisions.
	draw func() string
}

func NewWordAllocator(maxAttempts int) *WordAllocator {
	return &WordAllocator{MaxAttempts: maxAttempts, draw: drawWord}
}

func drawWord() string {
	first := rand.IntN(len(wordAdjectives))
	second := rand.IntN(len(wordAdjectives) - 1)
	if second >= first {
		second++
	}
	noun := wordNouns[rand.IntN(len(wordNouns))]
	return wordAdjectives[first] + wordAdjectives[second] + noun
}

// ClaimWordID reserves a fresh word-id for the project using tx, which must be
// the transaction that creates the entity carrying the id.
func (a *WordAllocator) ClaimWordID(ctx context.Context, tx *gorm.DB, projectID string) (string, error) {
	for attempt := 0; attempt < a.MaxAttempts; attempt++ {
		word := a.draw()
		res := tx.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.ClaimedWord{ProjectID: projectID, WordID: word})
		if res.Error != nil {
			return "", apperr.Internal("claim word id", res.Error)
		}
		if res.RowsAffected == 1 {
			return word, nil
		}
	}
	return "", apperr.Internal("claim word id",
		fmt.Errorf("word space exhausted after %d attempts in project %s", a.MaxAttempts, projectID))
}
