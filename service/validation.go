package service

import (
	"strings"

	"github.com/gofrs/uuid/v5"

	"github.com/educloud/notes/store"
	"github.com/educloud/notes/validation"
)

// normalizeEmail is the account key for password users.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateNoteId rejects ids the server could never have issued. They are
// reported as missing rather than malformed.
func ValidateNoteId(id string) error {
	u, err := uuid.FromString(id)
	if err != nil || u.Version() != uuid.V7 {
		return store.ErrItemNotFound
	}
	return nil
}

func ValidateNote(title, content string) error {
	return validation.Note(title, content).AsError()
}

func validateSignUp(name, email, password string) error {
	return validation.SignUp(validation.SignUpInput{
		Name:            strings.TrimSpace(name),
		Email:           email,
		Password:        password,
		ConfirmPassword: password,
	}).AsError()
}

func validateSignIn(email, password string) error {
	return validation.SignIn(validation.SignInInput{Email: email, Password: password}).AsError()
}
