// Package auth verifies faculty and student credentials.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/verte-zerg/gradebook/internal/model"
)

// ErrInvalidCredentials is returned for an unknown user or a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// MinPasswordLength applies to newly registered faculty passwords.
const MinPasswordLength = 6

var hashCost = bcrypt.DefaultCost

// FacultyStore persists faculty password hashes.
type FacultyStore interface {
	FacultyPasswordHash(ctx context.Context, facultyID string) (string, error)
	PutFaculty(ctx context.Context, facultyID, passwordHash string) error
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// RegisterFaculty stores a new or replacement password for facultyID.
func RegisterFaculty(ctx context.Context, store FacultyStore, facultyID, password string) error {
	facultyID = strings.TrimSpace(facultyID)
	if facultyID == "" {
		return fmt.Errorf("%w: faculty id is empty", model.ErrValidation)
	}
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", model.ErrValidation, MinPasswordLength)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	return store.PutFaculty(ctx, facultyID, hash)
}

// VerifyFaculty checks password against the stored hash. Unknown faculty
// and wrong passwords both yield ErrInvalidCredentials.
func VerifyFaculty(ctx context.Context, store FacultyStore, facultyID, password string) error {
	hash, err := store.FacultyPasswordHash(ctx, facultyID)
	if errors.Is(err, model.ErrNoData) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	return nil
}

// StudentPassword is the first word of the student's name followed by the
// last four characters of the enrolment ID.
func StudentPassword(st model.Student) string {
	var first string
	if fields := strings.Fields(st.FullName); len(fields) > 0 {
		first = fields[0]
	}
	id := []rune(st.ID)
	if len(id) > 4 {
		id = id[len(id)-4:]
	}
	return first + string(id)
}

// VerifyStudent checks a student's password.
func VerifyStudent(st model.Student, password string) error {
	want := StudentPassword(st)
	if subtle.ConstantTimeCompare([]byte(want), []byte(strings.TrimSpace(password))) != 1 {
		return ErrInvalidCredentials
	}
	return nil
}
