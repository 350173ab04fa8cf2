// Package validation holds the pure input checks shared by the client
// controllers and the server. Nothing in here has side effects.
package validation

import (
	"errors"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/educloud/notes/models"
)

const (
	FieldName            = "name"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirmPassword"
	FieldTitle           = "title"
	FieldContent         = "content"
)

const (
	MsgInvalidEmail   = "Invalid email address"
	MsgPasswordLength = "Password must be at least 8 characters"
	MsgNameLength     = "Name must be at least 2 characters"
	MsgTitleLength    = "Title must be at most 200 characters"
	MsgContentSize    = "Content is too large"
)

const (
	minPasswordLength = 8
	minNameLength     = 2
	maxTitleLength    = 200
	maxContentBytes   = 1 << 20
)

var ErrPasswordMismatch = errors.New("Passwords do not match")

var emailRegex = regexp.MustCompile(`^[A-Za-z0-9._%+'\-]+@([A-Za-z0-9]([A-Za-z0-9\-]*[A-Za-z0-9])?\.)+[A-Za-z]{2,}$`)

type SignInInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignUpInput struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Errors maps a field name to its messages in the order the rules ran.
type Errors map[string][]string

func (e Errors) Valid() bool {
	return len(e) == 0
}

func (e Errors) First(field string) string {
	if msgs := e[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// Fields returns the names of the failing fields, sorted.
func (e Errors) Fields() []string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

func (e Errors) add(field, msg string) {
	e[field] = append(e[field], msg)
}

// Error is the error form of a failed field validation.
type Error struct {
	Fields Errors
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields.Fields() {
		parts = append(parts, f+": "+e.Fields.First(f))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// AsError returns nil for a valid set.
func (e Errors) AsError() error {
	if e.Valid() {
		return nil
	}
	return &Error{Fields: e}
}

func ValidEmail(email string) bool {
	if !emailRegex.MatchString(email) {
		return false
	}
	local := email[:strings.LastIndex(email, "@")]
	return !strings.HasPrefix(local, ".") && !strings.HasSuffix(local, ".") && !strings.Contains(email, "..")
}

func checkEmail(errs Errors, email string) {
	if !ValidEmail(email) {
		errs.add(FieldEmail, MsgInvalidEmail)
	}
}

func checkPassword(errs Errors, field, password string) {
	if utf8.RuneCountInString(password) < minPasswordLength {
		errs.add(field, MsgPasswordLength)
	}
}

func SignIn(in SignInInput) Errors {
	errs := Errors{}
	checkEmail(errs, in.Email)
	checkPassword(errs, FieldPassword, in.Password)
	return errs
}

// SignUp checks every field on its own. The password/confirmation match is
// a submission-level check, see PasswordsMatch.
func SignUp(in SignUpInput) Errors {
	errs := Errors{}
	if utf8.RuneCountInString(in.Name) < minNameLength {
		errs.add(FieldName, MsgNameLength)
	}
	checkEmail(errs, in.Email)
	checkPassword(errs, FieldPassword, in.Password)
	checkPassword(errs, FieldConfirmPassword, in.ConfirmPassword)
	return errs
}

func PasswordsMatch(in SignUpInput) error {
	if in.Password != in.ConfirmPassword {
		return ErrPasswordMismatch
	}
	return nil
}

// NoteTitle applies the placeholder for blank titles.
func NoteTitle(title string) string {
	if strings.TrimSpace(title) == "" {
		return models.UntitledNote
	}
	return title
}

func Note(title, content string) Errors {
	errs := Errors{}
	if utf8.RuneCountInString(title) > maxTitleLength {
		errs.add(FieldTitle, MsgTitleLength)
	}
	if len(content) > maxContentBytes {
		errs.add(FieldContent, MsgContentSize)
	}
	return errs
}
