package models

import (
	"strings"
	"time"
)

type DealStage string

const (
	StageLead        DealStage = "lead"
	StageQualified   DealStage = "qualified"
	StageProposal    DealStage = "proposal"
	StageNegotiation DealStage = "negotiation"
	StageClosedWon   DealStage = "closed_won"
	StageClosedLost  DealStage = "closed_lost"
)

// Stages in pipeline order.
var Stages = []DealStage{
	StageLead,
	StageQualified,
	StageProposal,
	StageNegotiation,
	StageClosedWon,
	StageClosedLost,
}

// ParseStage reports whether raw names a pipeline stage.
func ParseStage(raw string) (DealStage, bool) {
	stage := DealStage(strings.TrimSpace(raw))
	for _, s := range Stages {
		if s == stage {
			return stage, true
		}
	}
	return "", false
}

type Deal struct {
	ID        uint     `gorm:"primaryKey" json:"id"`
	CompanyID *uint    `gorm:"index" json:"company_id"`
	Company   *Company `gorm:"constraint:OnDelete:SET NULL;" json:"-"`
	ContactID *uint    `gorm:"index" json:"contact_id"`
	Contact   *Contact `gorm:"constraint:OnDelete:SET NULL;" json:"-"`

	Name      string     `gorm:"size:255;not null" json:"name"`
	Stage     DealStage  `gorm:"type:varchar(20);not null;default:'lead';check:stage IN ('lead','qualified','proposal','negotiation','closed_won','closed_lost')" json:"stage"`
	Value     *float64   `gorm:"check:value IS NULL OR value >= 0" json:"value"`
	CloseDate *time.Time `gorm:"type:date" json:"close_date"`
	CreatedAt time.Time  `json:"created_at"`
}

// DealAssignment links a deal to one of the users working it.
type DealAssignment struct {
	DealID    uint `gorm:"primaryKey;autoIncrement:false"`
	UserID    uint `gorm:"primaryKey;autoIncrement:false;index"`
	Deal      Deal `gorm:"constraint:OnDelete:CASCADE;"`
	User      User `gorm:"constraint:OnDelete:CASCADE;"`
	CreatedAt time.Time
}
