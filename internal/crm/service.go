// Package crm implements the create/update operations on companies, contacts, deals and
// activities, and the read-side queries the views are built from.
package crm

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"pipeline-crm/internal/apperr"
	"pipeline-crm/internal/database"
	"pipeline-crm/internal/models"
	"pipeline-crm/internal/session"
	"pipeline-crm/internal/validation"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const dateLayout = "2006-01-02"

// Accepted activity date formats, most specific first.
var activityLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	dateLayout,
}

type Service struct {
	db  *gorm.DB
	log logrus.FieldLogger
	now func() time.Time
}

func NewService(db *gorm.DB, log logrus.FieldLogger) *Service {
	return &Service{db: db, log: log, now: time.Now}
}

// Input structs carry raw form values. Text limits mirror the column sizes in models.
type CompanyInput struct {
	Name     string `form:"name" binding:"text,max=255" label:"Company name"`
	Industry string `form:"industry" binding:"text,max=100" label:"Industry"`
	Website  string `form:"website" binding:"text,max=255" label:"Website"`
	Phone    string `form:"phone" binding:"text,max=50" label:"Phone"`
}

type ContactInput struct {
	CompanyID string `form:"company_id"`
	FirstName string `form:"first_name" binding:"text,max=100" label:"First name"`
	LastName  string `form:"last_name" binding:"text,max=100" label:"Last name"`
	Email     string `form:"email" binding:"text,max=255" label:"Email"`
	Phone     string `form:"phone" binding:"text,max=50" label:"Phone"`
	Position  string `form:"position" binding:"text,max=100" label:"Position"`
}

type DealInput struct {
	Name      string `form:"name" binding:"text,max=255" label:"Deal name"`
	Stage     string `form:"stage"`
	Value     string `form:"value"`
	CloseDate string `form:"close_date"`
	CompanyID string `form:"company_id"`
	ContactID string `form:"contact_id"`
}

type ActivityInput struct {
	Type         string `form:"type"`
	Subject      string `form:"subject" binding:"text,max=255" label:"Subject"`
	Content      string `form:"content" binding:"text" label:"Content"`
	DealID       string `form:"deal_id"`
	ContactID    string `form:"contact_id"`
	ActivityDate string `form:"activity_date"`
}

func (s *Service) AddCompany(ctx context.Context, in CompanyInput) (*models.Company, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}

	problems := validation.Struct(in)
	name := strings.TrimSpace(in.Name)
	if name == "" {
		problems = append(problems, "Company name is required.")
	}
	if err := apperr.Validation(problems); err != nil {
		return nil, err
	}

	company := models.Company{
		Name:     name,
		Industry: optional(in.Industry),
		Website:  optional(in.Website),
		Phone:    optional(in.Phone),
	}
	if err := database.TranslateError(s.db.WithContext(ctx).Create(&company).Error); err != nil {
		return nil, fmt.Errorf("create company: %w", err)
	}

	s.logCreated(actor, "company", company.ID)
	return &company, nil
}

func (s *Service) AddContact(ctx context.Context, in ContactInput) (*models.Contact, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}

	problems := validation.Struct(in)
	firstName := strings.TrimSpace(in.FirstName)
	lastName := strings.TrimSpace(in.LastName)
	if firstName == "" || lastName == "" {
		problems = append(problems, "First and last name are required for contacts.")
	}
	companyID, problem := parseRef("company", in.CompanyID)
	problems = appendProblem(problems, problem)
	if err := apperr.Validation(problems); err != nil {
		return nil, err
	}

	contact := models.Contact{
		CompanyID: companyID,
		FirstName: firstName,
		LastName:  lastName,
		Phone:     optional(in.Phone),
		Position:  optional(in.Position),
	}
	if email := strings.ToLower(strings.TrimSpace(in.Email)); email != "" {
		contact.Email = &email
	}

	if err := database.TranslateError(s.db.WithContext(ctx).Create(&contact).Error); err != nil {
		if cv, ok := apperr.AsConstraint(err); ok {
			switch cv.Kind {
			case apperr.KindUnique:
				return nil, cv.WithMessage("A contact with this email already exists.")
			case apperr.KindForeignKey:
				return nil, cv.WithMessage("The selected company does not exist.")
			}
		}
		return nil, fmt.Errorf("create contact: %w", err)
	}

	s.logCreated(actor, "contact", contact.ID)
	return &contact, nil
}

// AddDeal stores the deal and assigns it to the acting user in one transaction.
func (s *Service) AddDeal(ctx context.Context, in DealInput) (*models.Deal, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}

	problems := validation.Struct(in)
	name := strings.TrimSpace(in.Name)
	if name == "" {
		problems = append(problems, "Deal name is required.")
	}

	stage := models.StageLead
	if raw := strings.TrimSpace(in.Stage); raw != "" {
		parsed, ok := models.ParseStage(raw)
		if ok {
			stage = parsed
		} else {
			problems = append(problems, fmt.Sprintf("Unknown deal stage %q.", raw))
		}
	}

	value, problem := parseValue(in.Value)
	problems = appendProblem(problems, problem)

	var closeDate *time.Time
	if raw := strings.TrimSpace(in.CloseDate); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			problems = append(problems, "Expected close date must look like YYYY-MM-DD.")
		} else {
			closeDate = &t
		}
	}

	companyID, problem := parseRef("company", in.CompanyID)
	problems = appendProblem(problems, problem)
	contactID, problem := parseRef("contact", in.ContactID)
	problems = appendProblem(problems, problem)

	if err := apperr.Validation(problems); err != nil {
		return nil, err
	}

	deal := models.Deal{
		CompanyID: companyID,
		ContactID: contactID,
		Name:      name,
		Stage:     stage,
		Value:     value,
		CloseDate: closeDate,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&deal).Error; err != nil {
			return err
		}
		return assign(tx, deal.ID, actor.ID)
	})
	if err := database.TranslateError(err); err != nil {
		if cv, ok := apperr.AsConstraint(err); ok && cv.Kind == apperr.KindForeignKey {
			return nil, cv.WithMessage("The selected company or contact does not exist.")
		}
		return nil, fmt.Errorf("create deal: %w", err)
	}

	s.logCreated(actor, "deal", deal.ID)
	return &deal, nil
}

// AssignDeal links a user to a deal. Assigning twice is a no-op.
func (s *Service) AssignDeal(ctx context.Context, dealID, userID uint) error {
	if _, err := actorFrom(ctx); err != nil {
		return err
	}

	if err := database.TranslateError(assign(s.db.WithContext(ctx), dealID, userID)); err != nil {
		if cv, ok := apperr.AsConstraint(err); ok && cv.Kind == apperr.KindForeignKey {
			return cv.WithMessage("The deal or user does not exist.")
		}
		return fmt.Errorf("assign deal %d: %w", dealID, err)
	}
	return nil
}

func assign(db *gorm.DB, dealID, userID uint) error {
	return db.Clauses(clause.OnConflict{DoNothing: true}).
		Omit(clause.Associations).
		Create(&models.DealAssignment{DealID: dealID, UserID: userID}).Error
}

// UpdateDealStage overwrites the stage. Every stage is reachable from every other one, and an
// empty stage means lead.
func (s *Service) UpdateDealStage(ctx context.Context, dealID uint, rawStage string) error {
	actor, err := actorFrom(ctx)
	if err != nil {
		return err
	}

	stage := models.StageLead
	if raw := strings.TrimSpace(rawStage); raw != "" {
		parsed, ok := models.ParseStage(raw)
		if !ok {
			return apperr.Validation([]string{fmt.Sprintf("Unknown deal stage %q.", raw)})
		}
		stage = parsed
	}
	if uint64(dealID) > math.MaxInt64 {
		return fmt.Errorf("deal %d: %w", dealID, apperr.ErrNotFound)
	}

	res := s.db.WithContext(ctx).Model(&models.Deal{}).Where("id = ?", dealID).Update("stage", stage)
	if err := database.TranslateError(res.Error); err != nil {
		return fmt.Errorf("update deal %d: %w", dealID, err)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("deal %d: %w", dealID, apperr.ErrNotFound)
	}

	s.log.WithFields(logrus.Fields{"user_id": actor.ID, "deal_id": dealID, "stage": stage}).Info("deal stage updated")
	return nil
}

// LogActivity records an activity. Without a date it is stamped with the current time.
func (s *Service) LogActivity(ctx context.Context, in ActivityInput) (*models.Activity, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}

	problems := validation.Struct(in)
	kind := models.DefaultActivityType
	if raw := strings.TrimSpace(in.Type); raw != "" {
		parsed, ok := models.ParseActivityType(raw)
		if ok {
			kind = parsed
		} else {
			problems = append(problems, fmt.Sprintf("Unknown activity type %q.", raw))
		}
	}

	dealID, problem := parseRef("deal", in.DealID)
	problems = appendProblem(problems, problem)
	contactID, problem := parseRef("contact", in.ContactID)
	problems = appendProblem(problems, problem)

	when := s.now()
	if raw := strings.TrimSpace(in.ActivityDate); raw != "" {
		t, ok := parseActivityDate(raw)
		if ok {
			when = t
		} else {
			problems = append(problems, "Activity date is not a valid date or time.")
		}
	}

	if err := apperr.Validation(problems); err != nil {
		return nil, err
	}

	activity := models.Activity{
		DealID:       dealID,
		ContactID:    contactID,
		Type:         kind,
		Subject:      optional(in.Subject),
		Content:      optional(in.Content),
		ActivityDate: when,
	}
	if err := database.TranslateError(s.db.WithContext(ctx).Create(&activity).Error); err != nil {
		if cv, ok := apperr.AsConstraint(err); ok && cv.Kind == apperr.KindForeignKey {
			return nil, cv.WithMessage("The selected deal or contact does not exist.")
		}
		return nil, fmt.Errorf("create activity: %w", err)
	}

	s.logCreated(actor, "activity", activity.ID)
	return &activity, nil
}

func (s *Service) logCreated(actor *models.User, entity string, id uint) {
	s.log.WithFields(logrus.Fields{"user_id": actor.ID, "entity": entity, "entity_id": id}).Info("created")
}

func actorFrom(ctx context.Context) (*models.User, error) {
	actor := session.PrincipalFrom(ctx)
	if actor == nil {
		return nil, apperr.ErrUnauthenticated
	}
	return actor, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// parseRef reads an optional foreign key from a form field.
func parseRef(label, raw string) (*uint, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ""
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	// ids are bigint columns
	if err != nil || id == 0 || id > math.MaxInt64 {
		return nil, fmt.Sprintf("Invalid %s reference.", label)
	}
	v := uint(id)
	return &v, ""
}

func parseValue(raw string) (*float64, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ""
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, "Deal value must be a number."
	}
	if v < 0 {
		return nil, "Deal value cannot be negative."
	}
	return &v, ""
}

func parseActivityDate(raw string) (time.Time, bool) {
	for _, layout := range activityLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func appendProblem(problems []string, p string) []string {
	if p == "" {
		return problems
	}
	return append(problems, p)
}
