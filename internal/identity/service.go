// Package identity registers and authenticates users.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"pipeline-crm/internal/apperr"
	"pipeline-crm/internal/database"
	"pipeline-crm/internal/models"
	"pipeline-crm/internal/validation"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	msgUserTaken      = "Username or email already exists."
	maxUsernameLength = 50
)

type RegisterInput struct {
	Username string `form:"username" binding:"text" label:"Username"`
	Password string `form:"password"`
	FullName string `form:"full_name" binding:"text,max=255" label:"Full name"`
	Email    string `form:"email" binding:"text,max=255" label:"Email"`
	Role     string `form:"role"`
}

type Service struct {
	db  *gorm.DB
	log logrus.FieldLogger

	dummyOnce sync.Once
	dummyHash string
}

func NewService(db *gorm.DB, log logrus.FieldLogger) *Service {
	return &Service{db: db, log: log}
}

// Register validates input, hashes the password and stores the user. Validation problems come back
// together as *apperr.ValidationError before storage is touched; a taken username or email is a
// single *apperr.ConstraintViolation.
func (s *Service) Register(ctx context.Context, in RegisterInput) error {
	username := models.FoldIdentifier(in.Username)

	problems := validation.Struct(in)
	if username == "" {
		problems = append(problems, "Username is required.")
	} else if utf8.RuneCountInString(username) > maxUsernameLength {
		problems = append(problems, fmt.Sprintf("Username must be at most %d characters.", maxUsernameLength))
	}
	problems = append(problems, passwordProblems(in.Password)...)
	if err := apperr.Validation(problems); err != nil {
		return err
	}

	role := models.NormalizeRole(in.Role)

	hash, err := hashPassword(in.Password)
	if err != nil {
		return err
	}

	user := models.User{
		Username:     username,
		PasswordHash: hash,
		FullName:     optional(in.FullName),
		Role:         role,
	}
	if email := models.FoldIdentifier(in.Email); email != "" {
		user.Email = &email
	}

	if err := database.TranslateError(s.db.WithContext(ctx).Create(&user).Error); err != nil {
		if cv, ok := apperr.AsConstraint(err); ok && cv.Kind == apperr.KindUnique {
			return cv.WithMessage(msgUserTaken)
		}
		return fmt.Errorf("create user: %w", err)
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("user registered")
	return nil
}

// Authenticate returns the user when the password matches. An unknown username and a wrong
// password both return nil, nil.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	username = models.FoldIdentifier(username)
	if !storableUsername(username) {
		verifyPassword(s.dummy(), password)
		return nil, nil
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// spend the same bcrypt time as a real miss
		verifyPassword(s.dummy(), password)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", database.TranslateError(err))
	}

	if !verifyPassword(user.PasswordHash, password) {
		return nil, nil
	}
	return &user, nil
}

// GetByID returns nil, nil when no user has this id.
func (s *Service) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, database.TranslateError(err))
	}
	return &user, nil
}

// EnsureAdmin creates an admin account unless one already exists.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("role = ?", models.RoleAdmin).
		Count(&count).Error; err != nil {
		return fmt.Errorf("count admins: %w", database.TranslateError(err))
	}
	if count > 0 {
		return nil
	}

	err := s.Register(ctx, RegisterInput{Username: username, Password: password, Role: string(models.RoleAdmin)})
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	s.log.WithField("username", models.FoldIdentifier(username)).Info("created default admin user")
	return nil
}

func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := hashPassword("not-a-real-password")
		if err != nil {
			s.log.WithError(err).Error("dummy hash")
		}
		s.dummyHash = h
	})
	return s.dummyHash
}

// storableUsername is false for input no registered user can have.
func storableUsername(username string) bool {
	return username != "" &&
		utf8.ValidString(username) &&
		!strings.ContainsRune(username, 0) &&
		utf8.RuneCountInString(username) <= maxUsernameLength
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
