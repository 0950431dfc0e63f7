package database

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"pipeline-crm/internal/apperr"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var pgKinds = map[string]apperr.ConstraintKind{
	"23505": apperr.KindUnique,
	"23503": apperr.KindForeignKey,
	"23514": apperr.KindCheck,
	"23502": apperr.KindNotNull,
}

// Data exceptions caused by input the validators let through. They are reported to the user
// instead of failing the request.
var pgDataExceptions = map[string]bool{
	"22001": true, // string_data_right_truncation
	"22003": true, // numeric_value_out_of_range
	"22021": true, // character_not_in_repertoire
	"22P05": true, // untranslatable_character
}

const msgInvalidValue = "One of the values is too long or contains characters that cannot be stored."

// SQLite reports e.g. "UNIQUE constraint failed: users.username (2067)".
var sqliteConstraint = regexp.MustCompile(`(UNIQUE|FOREIGN KEY|CHECK|NOT NULL) constraint failed(?::\s*([^\s(]+))?`)

var sqliteKinds = map[string]apperr.ConstraintKind{
	"UNIQUE":      apperr.KindUnique,
	"FOREIGN KEY": apperr.KindForeignKey,
	"CHECK":       apperr.KindCheck,
	"NOT NULL":    apperr.KindNotNull,
}

// TranslateError maps a raw driver error to the application taxonomy: constraint failures become
// *apperr.ConstraintViolation, Postgres data exceptions become *apperr.ValidationError,
// gorm.ErrRecordNotFound becomes apperr.ErrNotFound, and everything else is wrapped in
// apperr.ErrStorage. nil stays nil.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgDataExceptions[pgErr.Code] {
		return apperr.Validation([]string{msgInvalidValue})
	}
	if cv, ok := constraintFrom(err); ok {
		return cv
	}
	return fmt.Errorf("%w: %v", apperr.ErrStorage, err)
}

func constraintFrom(err error) (*apperr.ConstraintViolation, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		kind, ok := pgKinds[pgErr.Code]
		if !ok {
			return nil, false
		}
		name := pgErr.ConstraintName
		if name == "" && pgErr.ColumnName != "" {
			name = pgErr.TableName + "." + pgErr.ColumnName
		}
		return &apperr.ConstraintViolation{Kind: kind, Constraint: name}, true
	}

	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return &apperr.ConstraintViolation{Kind: apperr.KindUnique}, true
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return &apperr.ConstraintViolation{Kind: apperr.KindForeignKey}, true
	case errors.Is(err, gorm.ErrCheckConstraintViolated):
		return &apperr.ConstraintViolation{Kind: apperr.KindCheck}, true
	}

	m := sqliteConstraint.FindStringSubmatch(err.Error())
	if m == nil {
		return nil, false
	}
	return &apperr.ConstraintViolation{
		Kind:       sqliteKinds[m[1]],
		Constraint: strings.TrimSpace(m[2]),
	}, true
}
