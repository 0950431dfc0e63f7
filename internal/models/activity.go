package models

import (
	"strings"
	"time"
)

type ActivityType string

const (
	ActivityCall    ActivityType = "call"
	ActivityEmail   ActivityType = "email"
	ActivityMeeting ActivityType = "meeting"
	ActivityNote    ActivityType = "note"
)

// DefaultActivityType is used when the form leaves the type blank.
const DefaultActivityType = ActivityNote

var ActivityTypes = []ActivityType{ActivityCall, ActivityEmail, ActivityMeeting, ActivityNote}

func ParseActivityType(raw string) (ActivityType, bool) {
	t := ActivityType(strings.TrimSpace(raw))
	for _, at := range ActivityTypes {
		if at == t {
			return t, true
		}
	}
	return "", false
}

type Activity struct {
	ID        uint     `gorm:"primaryKey" json:"id"`
	DealID    *uint    `gorm:"index" json:"deal_id"`
	Deal      *Deal    `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	ContactID *uint    `gorm:"index" json:"contact_id"`
	Contact   *Contact `gorm:"constraint:OnDelete:SET NULL;" json:"-"`

	Type         ActivityType `gorm:"column:type;type:varchar(20);not null;default:'note';check:type IN ('call','email','meeting','note')" json:"type"`
	Subject      *string      `gorm:"size:255" json:"subject"`
	Content      *string      `gorm:"type:text" json:"content"`
	ActivityDate time.Time    `gorm:"not null;index" json:"activity_date"`
	CreatedAt    time.Time    `json:"created_at"`
}
