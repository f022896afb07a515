package models

import (
	"time"
)

// InteractionItemType identifies which entity an interaction belongs to.
type InteractionItemType string

const (
	ItemTypeLead   InteractionItemType = "lead"
	ItemTypeClient InteractionItemType = "client"
)

// InteractionType categorizes a logged contact event.
type InteractionType string

const (
	InteractionCall     InteractionType = "call"
	InteractionEmail    InteractionType = "email"
	InteractionMeeting  InteractionType = "meeting"
	InteractionWhatsApp InteractionType = "whatsapp"
	InteractionVisit    InteractionType = "visit"
	InteractionNote     InteractionType = "note"
)

// InteractionOutcome is the small client-facing outcome vocabulary.
type InteractionOutcome string

const (
	OutcomePositive   InteractionOutcome = "positive"
	OutcomeNeutral    InteractionOutcome = "neutral"
	OutcomeNegative   InteractionOutcome = "negative"
	OutcomeNoResponse InteractionOutcome = "no_response"
)

// backendOutcomes maps the wider backend outcome vocabulary onto the
// small set the clients render.
var backendOutcomes = map[string]InteractionOutcome{
	"interested":       OutcomePositive,
	"deal_agreed":      OutcomePositive,
	"follow_up_set":    OutcomePositive,
	"callback":         OutcomeNeutral,
	"considering":      OutcomeNeutral,
	"info_sent":        OutcomeNeutral,
	"not_interested":   OutcomeNegative,
	"wrong_number":     OutcomeNegative,
	"busy":             OutcomeNoResponse,
	"no_answer":        OutcomeNoResponse,
	"unreachable":      OutcomeNoResponse,
	"voicemail":        OutcomeNoResponse,
}

// MapOutcome translates a backend outcome value to the client vocabulary.
// Values already in the small vocabulary pass through; unknown values
// map to neutral.
func MapOutcome(raw string) InteractionOutcome {
	switch InteractionOutcome(raw) {
	case OutcomePositive, OutcomeNeutral, OutcomeNegative, OutcomeNoResponse:
		return InteractionOutcome(raw)
	}
	if mapped, ok := backendOutcomes[raw]; ok {
		return mapped
	}
	return OutcomeNeutral
}

// Interaction is an append-only log entry of a contact event against a
// lead or client. Rows are never updated or deleted.
type Interaction struct {
	ID          uint                `gorm:"primaryKey" json:"id"`
	ItemType    InteractionItemType `gorm:"type:varchar(16);not null;index:idx_interactions_item" json:"item_type"`
	ItemID      uint                `gorm:"not null;index:idx_interactions_item" json:"item_id"`
	Type        InteractionType     `gorm:"type:varchar(32);not null" json:"type"`
	Outcome     InteractionOutcome  `gorm:"type:varchar(32)" json:"outcome,omitempty"`
	Notes       string              `gorm:"type:text" json:"notes,omitempty"`
	Duration    int                 `json:"duration,omitempty"` // minutes
	NextAction  string              `json:"next_action,omitempty"`
	CreatedByID uint                `gorm:"index" json:"created_by"`
	CreatedAt   time.Time           `json:"created_at"`
}
