package models

import "time"

type Company struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Industry  *string   `gorm:"size:100" json:"industry"`
	Website   *string   `gorm:"size:255" json:"website"`
	Phone     *string   `gorm:"size:50" json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

type Contact struct {
	ID        uint     `gorm:"primaryKey" json:"id"`
	CompanyID *uint    `gorm:"index" json:"company_id"`
	Company   *Company `gorm:"constraint:OnDelete:SET NULL;" json:"-"`

	FirstName string    `gorm:"size:100;not null" json:"first_name"`
	LastName  string    `gorm:"size:100;not null" json:"last_name"`
	Email     *string   `gorm:"uniqueIndex;size:255" json:"email"`
	Phone     *string   `gorm:"size:50" json:"phone"`
	Position  *string   `gorm:"size:100" json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

func (c Contact) FullName() string {
	return c.FirstName + " " + c.LastName
}
