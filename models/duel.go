package models

// DuelState is the position of a duel in its two-party protocol.
type DuelState string

const (
	DuelCreated                 DuelState = "Created"
	DuelPending                 DuelState = "Pending"
	DuelAccepted                DuelState = "Accepted"
	DuelRejected                DuelState = "Rejected"
	DuelPendingCancel           DuelState = "PendingCancel"
	DuelCancelled               DuelState = "Cancelled"
	DuelPendingInitiatorConfirm DuelState = "PendingInitiatorConfirm"
	DuelPendingRecipientConfirm DuelState = "PendingRecipientConfirm"
	DuelComplete                DuelState = "Complete"
)

var DuelStates = []DuelState{
	DuelCreated, DuelPending, DuelAccepted, DuelRejected, DuelPendingCancel,
	DuelCancelled, DuelPendingInitiatorConfirm, DuelPendingRecipientConfirm, DuelComplete,
}

// ActiveDuelStates are every non-terminal state.
var ActiveDuelStates = []DuelState{
	DuelCreated, DuelPending, DuelAccepted, DuelPendingCancel,
	DuelPendingInitiatorConfirm, DuelPendingRecipientConfirm,
}

func (s DuelState) Valid() bool {
	for _, v := range DuelStates {
		if v == s {
			return true
		}
	}
	return false
}

func (s DuelState) Terminal() bool {
	return s == DuelRejected || s == DuelCancelled || s == DuelComplete
}

type Duel struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"uuid"`
	ProjectID   string    `gorm:"type:uuid;not null;index" json:"projectUuid"`
	InitiatorID string    `gorm:"type:uuid;not null;index" json:"initiatorUuid"`
	RecipientID *string   `gorm:"type:uuid;index" json:"recipientUuid"`
	ActivityID  *string   `gorm:"type:uuid" json:"activityUuid"`
	State       DuelState `gorm:"type:varchar(32);not null;index" json:"state"`
	VictorID    *string   `gorm:"type:uuid" json:"victorUuid"`

	Timestamps
}

func (Duel) TableName() string { return "project_duels" }

// IsParty reports whether playerID is the initiator or the recipient.
func (d Duel) IsParty(playerID string) bool {
	return d.InitiatorID == playerID || (d.RecipientID != nil && *d.RecipientID == playerID)
}

// Opponent returns the other party, or "" when none is set yet.
func (d Duel) Opponent(playerID string) string {
	if d.InitiatorID == playerID {
		if d.RecipientID != nil {
			return *d.RecipientID
		}
		return ""
	}
	return d.InitiatorID
}

type DuelTag struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"uuid"`
	ProjectID string `gorm:"type:uuid;not null" json:"projectUuid"`
	DuelID    string `gorm:"type:uuid;not null;index" json:"duelUuid"`
	Tag       string `gorm:"not null;index" json:"tag"`
	Value     string `json:"value"`
}

func (DuelTag) TableName() string { return "duel_tags" }
