package crm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pipeline-crm/internal/database"
	"pipeline-crm/internal/models"
)

// Counts feeds the dashboard summary.
type Counts struct {
	Companies  int64 `json:"companies"`
	Contacts   int64 `json:"contacts"`
	Deals      int64 `json:"deals"`
	Activities int64 `json:"activities"`
}

type ContactRow struct {
	ID          uint      `json:"id"`
	CompanyID   *uint     `json:"company_id"`
	CompanyName *string   `json:"company_name"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Email       *string   `json:"email"`
	Phone       *string   `json:"phone"`
	Position    *string   `json:"position"`
	CreatedAt   time.Time `json:"created_at"`
}

type DealRow struct {
	ID               uint             `json:"id"`
	Name             string           `json:"name"`
	Stage            models.DealStage `json:"stage"`
	Value            *float64         `json:"value"`
	CloseDate        *time.Time       `json:"close_date"`
	CompanyID        *uint            `json:"company_id"`
	CompanyName      *string          `json:"company_name"`
	ContactID        *uint            `json:"contact_id"`
	ContactFirstName *string          `json:"contact_first_name"`
	ContactLastName  *string          `json:"contact_last_name"`
	AssignedUsers    string           `gorm:"-" json:"assigned_users"`
	CreatedAt        time.Time        `json:"created_at"`
}

type ActivityRow struct {
	ID               uint                `json:"id"`
	Type             models.ActivityType `json:"type"`
	Subject          *string             `json:"subject"`
	Content          *string             `json:"content"`
	ActivityDate     time.Time           `json:"activity_date"`
	DealID           *uint               `json:"deal_id"`
	DealName         *string             `json:"deal_name"`
	ContactID        *uint               `json:"contact_id"`
	ContactFirstName *string             `json:"contact_first_name"`
	ContactLastName  *string             `json:"contact_last_name"`
	CreatedAt        time.Time           `json:"created_at"`
}

type assigneeRow struct {
	DealID      uint
	DisplayName string
}

func (s *Service) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	db := s.db.WithContext(ctx)
	for _, q := range []struct {
		model any
		dst   *int64
	}{
		{&models.Company{}, &c.Companies},
		{&models.Contact{}, &c.Contacts},
		{&models.Deal{}, &c.Deals},
		{&models.Activity{}, &c.Activities},
	} {
		if err := db.Model(q.model).Count(q.dst).Error; err != nil {
			return Counts{}, fmt.Errorf("count: %w", database.TranslateError(err))
		}
	}
	return c, nil
}

// ListCompanies returns companies newest first.
func (s *Service) ListCompanies(ctx context.Context) ([]models.Company, error) {
	var companies []models.Company
	if err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&companies).Error; err != nil {
		return nil, fmt.Errorf("list companies: %w", database.TranslateError(err))
	}
	return companies, nil
}

func (s *Service) ListContacts(ctx context.Context) ([]ContactRow, error) {
	var rows []ContactRow
	err := s.db.WithContext(ctx).
		Table("contacts").
		Select("contacts.*, companies.name AS company_name").
		Joins("LEFT JOIN companies ON companies.id = contacts.company_id").
		Order("contacts.created_at DESC, contacts.id DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", database.TranslateError(err))
	}
	return rows, nil
}

// ListDeals returns deals newest first with company, contact and assignee names resolved.
func (s *Service) ListDeals(ctx context.Context) ([]DealRow, error) {
	var rows []DealRow
	err := s.db.WithContext(ctx).
		Table("deals").
		Select("deals.id, deals.name, deals.stage, deals.value, deals.close_date, deals.created_at, " +
			"deals.company_id, companies.name AS company_name, " +
			"deals.contact_id, contacts.first_name AS contact_first_name, contacts.last_name AS contact_last_name").
		Joins("LEFT JOIN companies ON companies.id = deals.company_id").
		Joins("LEFT JOIN contacts ON contacts.id = deals.contact_id").
		Order("deals.created_at DESC, deals.id DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list deals: %w", database.TranslateError(err))
	}
	if len(rows) == 0 {
		return rows, nil
	}

	// every deal is listed, so assignments are joined rather than filtered by id
	var assignees []assigneeRow
	err = s.db.WithContext(ctx).
		Table("deal_assignments").
		Select("deal_assignments.deal_id, COALESCE(users.full_name, users.username) AS display_name").
		Joins("JOIN deals ON deals.id = deal_assignments.deal_id").
		Joins("JOIN users ON users.id = deal_assignments.user_id").
		Order("deal_assignments.deal_id, users.id").
		Scan(&assignees).Error
	if err != nil {
		return nil, fmt.Errorf("list deal assignees: %w", database.TranslateError(err))
	}

	names := make(map[uint][]string, len(rows))
	for _, a := range assignees {
		names[a.DealID] = append(names[a.DealID], a.DisplayName)
	}
	for i := range rows {
		rows[i].AssignedUsers = strings.Join(names[rows[i].ID], ", ")
	}
	return rows, nil
}

// ListActivities returns activities with the most recent activity date first.
func (s *Service) ListActivities(ctx context.Context) ([]ActivityRow, error) {
	var rows []ActivityRow
	err := s.db.WithContext(ctx).
		Table("activities").
		Select("activities.id, activities.type, activities.subject, activities.content, " +
			"activities.activity_date, activities.created_at, " +
			"activities.deal_id, deals.name AS deal_name, " +
			"activities.contact_id, contacts.first_name AS contact_first_name, contacts.last_name AS contact_last_name").
		Joins("LEFT JOIN deals ON deals.id = activities.deal_id").
		Joins("LEFT JOIN contacts ON contacts.id = activities.contact_id").
		Order("activities.activity_date DESC, activities.id DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", database.TranslateError(err))
	}
	return rows, nil
}
