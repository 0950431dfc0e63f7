package identity

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// MinPasswordLength is counted in bytes, like the upper bound.
	MinPasswordLength = 6
	// bcrypt refuses longer inputs.
	maxPasswordBytes = 72
)

// HashCost is the bcrypt work factor; tests lower it.
var HashCost = bcrypt.DefaultCost

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), HashCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// verifyPassword compares in constant time via bcrypt.
func verifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func passwordProblems(password string) []string {
	var problems []string
	if len(password) < MinPasswordLength {
		problems = append(problems, fmt.Sprintf("Password must be at least %d characters.", MinPasswordLength))
	}
	if len(password) > maxPasswordBytes {
		problems = append(problems, fmt.Sprintf("Password must be at most %d bytes.", maxPasswordBytes))
	}
	return problems
}
