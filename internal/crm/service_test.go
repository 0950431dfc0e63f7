package crm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"pipeline-crm/internal/apperr"
	"pipeline-crm/internal/database/dbtest"
	"pipeline-crm/internal/models"
	"pipeline-crm/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	svc   *Service
	db    *gorm.DB
	ctx   context.Context
	alice *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)

	fullName := "Alice Doe"
	alice := &models.User{Username: "alice", PasswordHash: "x", FullName: &fullName, Role: models.RoleSales}
	require.NoError(t, db.Create(alice).Error)

	return &fixture{
		svc:   NewService(db, dbtest.QuietLogger()),
		db:    db,
		ctx:   session.WithPrincipal(context.Background(), alice),
		alice: alice,
	}
}

func (f *fixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func requireProblems(t *testing.T, err error) []string {
	t.Helper()
	ve, ok := apperr.AsValidation(err)
	require.True(t, ok, "expected validation error, got %v", err)
	return ve.Problems
}

func TestOperationsRequirePrincipal(t *testing.T) {
	f := newFixture(t)
	anon := context.Background()

	_, err := f.svc.AddCompany(anon, CompanyInput{Name: "Acme"})
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	_, err = f.svc.AddContact(anon, ContactInput{FirstName: "a", LastName: "b"})
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	_, err = f.svc.AddDeal(anon, DealInput{Name: "d"})
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	_, err = f.svc.LogActivity(anon, ActivityInput{})
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	assert.ErrorIs(t, f.svc.UpdateDealStage(anon, 1, "lead"), apperr.ErrUnauthenticated)
	assert.ErrorIs(t, f.svc.AssignDeal(anon, 1, f.alice.ID), apperr.ErrUnauthenticated)

	assert.Zero(t, f.count(t, &models.Company{}))
	assert.Zero(t, f.count(t, &models.Deal{}))
}

func TestAddCompanyTrimsAndNullsOptionals(t *testing.T) {
	f := newFixture(t)

	before := time.Now()
	company, err := f.svc.AddCompany(f.ctx, CompanyInput{Name: "  Acme  ", Industry: "Anvils", Website: "   ", Phone: ""})
	require.NoError(t, err)
	assert.NotZero(t, company.ID)

	var got models.Company
	require.NoError(t, f.db.First(&got, company.ID).Error)
	assert.Equal(t, "Acme", got.Name)
	require.NotNil(t, got.Industry)
	assert.Equal(t, "Anvils", *got.Industry)
	assert.Nil(t, got.Website)
	assert.Nil(t, got.Phone)
	assert.False(t, got.CreatedAt.Before(before.Add(-time.Second)))
}

func TestAddCompanyRequiresName(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.AddCompany(f.ctx, CompanyInput{Name: "   "})
	assert.Equal(t, []string{"Company name is required."}, requireProblems(t, err))
	assert.Zero(t, f.count(t, &models.Company{}))
}

func TestAddContact(t *testing.T) {
	f := newFixture(t)
	company, err := f.svc.AddCompany(f.ctx, CompanyInput{Name: "Acme"})
	require.NoError(t, err)

	contact, err := f.svc.AddContact(f.ctx, ContactInput{
		CompanyID: "  " + itoa(company.ID),
		FirstName: " Wile ",
		LastName:  "Coyote",
		Email:     " Wile@Acme.io ",
		Position:  "",
	})
	require.NoError(t, err)
	require.NotNil(t, contact.CompanyID)
	assert.Equal(t, company.ID, *contact.CompanyID)
	assert.Equal(t, "Wile", contact.FirstName)
	require.NotNil(t, contact.Email)
	assert.Equal(t, "wile@acme.io", *contact.Email)
	assert.Nil(t, contact.Position)

	noCompany, err := f.svc.AddContact(f.ctx, ContactInput{FirstName: "Road", LastName: "Runner"})
	require.NoError(t, err)
	assert.Nil(t, noCompany.CompanyID)
	assert.Nil(t, noCompany.Email)
}

func TestAddContactValidation(t *testing.T) {
	f := newFixture(t)

	problems := requireProblems(t, func() error {
		_, err := f.svc.AddContact(f.ctx, ContactInput{FirstName: "Wile", CompanyID: "abc"})
		return err
	}())
	assert.Len(t, problems, 2)
	assert.Zero(t, f.count(t, &models.Contact{}))
}

func TestAddContactDuplicateEmailIsSpecific(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.AddContact(f.ctx, ContactInput{FirstName: "A", LastName: "B", Email: "dup@acme.io"})
	require.NoError(t, err)
	_, err = f.svc.AddContact(f.ctx, ContactInput{FirstName: "C", LastName: "D", Email: "DUP@acme.io"})

	cv, ok := apperr.AsConstraint(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, apperr.KindUnique, cv.Kind)
	assert.Equal(t, "A contact with this email already exists.", cv.Error())
	assert.EqualValues(t, 1, f.count(t, &models.Contact{}))
}

func TestAddContactUnknownCompany(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.AddContact(f.ctx, ContactInput{FirstName: "A", LastName: "B", CompanyID: "42"})
	cv, ok := apperr.AsConstraint(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, apperr.KindForeignKey, cv.Kind)
}

func TestAddDealWithoutReferences(t *testing.T) {
	f := newFixture(t)

	deal, err := f.svc.AddDeal(f.ctx, DealInput{Name: "Solo"})
	require.NoError(t, err)
	assert.Nil(t, deal.CompanyID)
	assert.Nil(t, deal.ContactID)
	assert.Nil(t, deal.Value)
	assert.Nil(t, deal.CloseDate)
	assert.Equal(t, models.StageLead, deal.Stage)
}

func TestAddDealAssignsActingUser(t *testing.T) {
	f := newFixture(t)
	company, err := f.svc.AddCompany(f.ctx, CompanyInput{Name: "Acme"})
	require.NoError(t, err)

	deal, err := f.svc.AddDeal(f.ctx, DealInput{
		Name:      "Acme Deal",
		Stage:     "proposal",
		Value:     "1250.50",
		CloseDate: "2026-12-31",
		CompanyID: itoa(company.ID),
	})
	require.NoError(t, err)
	assert.Equal(t, models.StageProposal, deal.Stage)
	require.NotNil(t, deal.Value)
	assert.InDelta(t, 1250.50, *deal.Value, 1e-9)

	var assignments []models.DealAssignment
	require.NoError(t, f.db.Where("deal_id = ?", deal.ID).Find(&assignments).Error)
	require.Len(t, assignments, 1)
	assert.Equal(t, f.alice.ID, assignments[0].UserID)

	// assigning again is a no-op
	require.NoError(t, f.svc.AssignDeal(f.ctx, deal.ID, f.alice.ID))
	assert.EqualValues(t, 1, f.count(t, &models.DealAssignment{}))
}

func TestAddDealValidation(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name string
		in   DealInput
	}{
		{name: "missing name", in: DealInput{Name: " "}},
		{name: "unknown stage", in: DealInput{Name: "d", Stage: "won"}},
		{name: "negative value", in: DealInput{Name: "d", Value: "-5"}},
		{name: "non numeric value", in: DealInput{Name: "d", Value: "lots"}},
		{name: "infinite value", in: DealInput{Name: "d", Value: "Inf"}},
		{name: "bad close date", in: DealInput{Name: "d", CloseDate: "31/12/2026"}},
		{name: "bad contact ref", in: DealInput{Name: "d", ContactID: "0"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.AddDeal(f.ctx, tc.in)
			assert.Len(t, requireProblems(t, err), 1)
		})
	}
	assert.Zero(t, f.count(t, &models.Deal{}))
	assert.Zero(t, f.count(t, &models.DealAssignment{}))
}

func TestAddDealUnknownCompanyLeavesNothingBehind(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.AddDeal(f.ctx, DealInput{Name: "Ghost", CompanyID: "999"})
	cv, ok := apperr.AsConstraint(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, apperr.KindForeignKey, cv.Kind)
	assert.Zero(t, f.count(t, &models.Deal{}))
	assert.Zero(t, f.count(t, &models.DealAssignment{}))
}

func TestAssignDealUnknownDeal(t *testing.T) {
	f := newFixture(t)

	err := f.svc.AssignDeal(f.ctx, 77, f.alice.ID)
	cv, ok := apperr.AsConstraint(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, apperr.KindForeignKey, cv.Kind)
}

func TestUpdateDealStageHasNoTransitionGuard(t *testing.T) {
	f := newFixture(t)
	deal, err := f.svc.AddDeal(f.ctx, DealInput{Name: "d", Stage: "closed_lost"})
	require.NoError(t, err)

	for _, from := range models.Stages {
		for _, to := range models.Stages {
			require.NoError(t, f.db.Model(&models.Deal{}).Where("id = ?", deal.ID).Update("stage", from).Error)
			require.NoError(t, f.svc.UpdateDealStage(f.ctx, deal.ID, string(to)), "%s -> %s", from, to)

			var got models.Deal
			require.NoError(t, f.db.First(&got, deal.ID).Error)
			assert.Equal(t, to, got.Stage)
		}
	}
}

func TestUpdateDealStageErrors(t *testing.T) {
	f := newFixture(t)
	deal, err := f.svc.AddDeal(f.ctx, DealInput{Name: "d"})
	require.NoError(t, err)

	err = f.svc.UpdateDealStage(f.ctx, deal.ID, "archived")
	requireProblems(t, err)

	var got models.Deal
	require.NoError(t, f.db.First(&got, deal.ID).Error)
	assert.Equal(t, models.StageLead, got.Stage)

	err = f.svc.UpdateDealStage(f.ctx, deal.ID+1, "qualified")
	assert.True(t, errors.Is(err, apperr.ErrNotFound), "got %v", err)
}

func TestLogActivityDefaults(t *testing.T) {
	f := newFixture(t)

	before := time.Now()
	first, err := f.svc.LogActivity(f.ctx, ActivityInput{Subject: "  ", Content: "Called back"})
	require.NoError(t, err)
	second, err := f.svc.LogActivity(f.ctx, ActivityInput{Type: "call"})
	require.NoError(t, err)

	assert.Equal(t, models.ActivityNote, first.Type)
	assert.Nil(t, first.Subject)
	require.NotNil(t, first.Content)
	assert.False(t, first.ActivityDate.Before(before))
	assert.False(t, second.ActivityDate.Before(first.ActivityDate))

	var stored []models.Activity
	require.NoError(t, f.db.Order("id").Find(&stored).Error)
	require.Len(t, stored, 2)
	assert.False(t, stored[1].ActivityDate.Before(stored[0].ActivityDate))
}

func TestLogActivityUsesServiceClock(t *testing.T) {
	f := newFixture(t)
	fixed := time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return fixed }

	a, err := f.svc.LogActivity(f.ctx, ActivityInput{Type: "meeting"})
	require.NoError(t, err)
	assert.True(t, a.ActivityDate.Equal(fixed))
}

func TestLogActivityExplicitDateAndReferences(t *testing.T) {
	f := newFixture(t)
	deal, err := f.svc.AddDeal(f.ctx, DealInput{Name: "d"})
	require.NoError(t, err)
	contact, err := f.svc.AddContact(f.ctx, ContactInput{FirstName: "A", LastName: "B"})
	require.NoError(t, err)

	a, err := f.svc.LogActivity(f.ctx, ActivityInput{
		Type:         "email",
		DealID:       itoa(deal.ID),
		ContactID:    itoa(contact.ID),
		ActivityDate: "2026-05-01T09:15",
	})
	require.NoError(t, err)
	assert.Equal(t, 2026, a.ActivityDate.Year())
	assert.Equal(t, time.May, a.ActivityDate.Month())
	assert.Equal(t, 9, a.ActivityDate.Hour())
	assert.Equal(t, 15, a.ActivityDate.Minute())
}

func TestLogActivityValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.LogActivity(f.ctx, ActivityInput{Type: "sms", ActivityDate: "yesterday", DealID: "x"})
	assert.Len(t, requireProblems(t, err), 3)

	_, err = f.svc.LogActivity(f.ctx, ActivityInput{DealID: "12"})
	_, ok := apperr.AsConstraint(err)
	assert.True(t, ok, "got %v", err)
	assert.Zero(t, f.count(t, &models.Activity{}))
}

func TestParseActivityDateLayouts(t *testing.T) {
	for _, raw := range []string{
		"2026-05-01T09:15:00Z",
		"2026-05-01T09:15:00",
		"2026-05-01T09:15",
		"2026-05-01 09:15:00",
		"2026-05-01 09:15",
		"2026-05-01",
	} {
		_, ok := parseActivityDate(raw)
		assert.True(t, ok, raw)
	}
	_, ok := parseActivityDate("May 1st")
	assert.False(t, ok)
}

func TestTextLimitsMatchColumnSizes(t *testing.T) {
	f := newFixture(t)
	long := strings.Repeat("x", 256)

	_, err := f.svc.AddCompany(f.ctx, CompanyInput{Name: long, Phone: strings.Repeat("9", 51)})
	assert.Equal(t, []string{
		"Company name must be at most 255 characters.",
		"Phone must be at most 50 characters.",
	}, requireProblems(t, err))

	_, err = f.svc.AddContact(f.ctx, ContactInput{FirstName: strings.Repeat("a", 101), LastName: "B"})
	assert.Equal(t, []string{"First name must be at most 100 characters."}, requireProblems(t, err))

	_, err = f.svc.AddDeal(f.ctx, DealInput{Name: long})
	assert.Equal(t, []string{"Deal name must be at most 255 characters."}, requireProblems(t, err))

	_, err = f.svc.LogActivity(f.ctx, ActivityInput{Subject: long, Content: strings.Repeat("y", 10000)})
	assert.Equal(t, []string{"Subject must be at most 255 characters."}, requireProblems(t, err))

	// the limit is in characters, not bytes
	_, err = f.svc.AddCompany(f.ctx, CompanyInput{Name: strings.Repeat("é", 255)})
	require.NoError(t, err)

	assert.EqualValues(t, 1, f.count(t, &models.Company{}))
	assert.Zero(t, f.count(t, &models.Contact{}))
	assert.Zero(t, f.count(t, &models.Deal{}))
	assert.Zero(t, f.count(t, &models.Activity{}))
}

func TestUnstorableTextIsRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.AddCompany(f.ctx, CompanyInput{Name: "Acme\xff"})
	assert.Equal(t, []string{"Company name contains characters that cannot be stored."}, requireProblems(t, err))

	_, err = f.svc.LogActivity(f.ctx, ActivityInput{Content: "a\x00b"})
	assert.Equal(t, []string{"Content contains characters that cannot be stored."}, requireProblems(t, err))
}

func TestReferencesAboveBigintRangeAreInvalid(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.AddDeal(f.ctx, DealInput{Name: "d", CompanyID: "9223372036854775808"})
	assert.Equal(t, []string{"Invalid company reference."}, requireProblems(t, err))

	ref, problem := parseRef("deal", "9223372036854775807")
	assert.Empty(t, problem)
	require.NotNil(t, ref)
}

func TestUpdateDealStageEmptyMeansLead(t *testing.T) {
	f := newFixture(t)
	deal, err := f.svc.AddDeal(f.ctx, DealInput{Name: "d", Stage: "negotiation"})
	require.NoError(t, err)

	require.NoError(t, f.svc.UpdateDealStage(f.ctx, deal.ID, "  "))

	var got models.Deal
	require.NoError(t, f.db.First(&got, deal.ID).Error)
	assert.Equal(t, models.StageLead, got.Stage)
}
