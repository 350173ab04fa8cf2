package validation_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/educloud/notes/validation"
	"github.com/stretchr/testify/assert"
)

func TestSignIn(t *testing.T) {
	tests := []struct {
		name       string
		input      validation.SignInInput
		wantFields []string
	}{
		{"Valid", validation.SignInInput{Email: "student@uni.edu", Password: "abcdefgh"}, []string{}},
		{"Valid Plus Address", validation.SignInInput{Email: "a.b+notes@mail.example.co", Password: "12345678"}, []string{}},
		{"Missing TLD", validation.SignInInput{Email: "bad@x", Password: "abcdefgh"}, []string{"email"}},
		{"Missing At", validation.SignInInput{Email: "student.uni.edu", Password: "abcdefgh"}, []string{"email"}},
		{"Empty Email", validation.SignInInput{Email: "", Password: "abcdefgh"}, []string{"email"}},
		{"Double Dot", validation.SignInInput{Email: "a..b@uni.edu", Password: "abcdefgh"}, []string{"email"}},
		{"Leading Dot", validation.SignInInput{Email: ".ab@uni.edu", Password: "abcdefgh"}, []string{"email"}},
		{"Short Password", validation.SignInInput{Email: "student@uni.edu", Password: "short"}, []string{"password"}},
		{"Both Invalid", validation.SignInInput{Email: "bad@x", Password: "short"}, []string{"email", "password"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			errs := validation.SignIn(tc.input)
			assert.ElementsMatch(t, tc.wantFields, errs.Fields())
			assert.Equal(t, len(tc.wantFields) == 0, errs.Valid())
		})
	}
}

func TestSignIn_Messages(t *testing.T) {
	errs := validation.SignIn(validation.SignInInput{Email: "bad@x", Password: "short"})
	assert.Equal(t, "Invalid email address", errs.First("email"))
	assert.Equal(t, "Password must be at least 8 characters", errs.First("password"))
	assert.Equal(t, "", errs.First("name"))
}

func TestSignIn_PasswordExactlyEight(t *testing.T) {
	errs := validation.SignIn(validation.SignInInput{Email: "x@y.io", Password: strings.Repeat("a", 8)})
	assert.True(t, errs.Valid())

	errs = validation.SignIn(validation.SignInInput{Email: "x@y.io", Password: strings.Repeat("a", 7)})
	assert.False(t, errs.Valid())
}

func TestSignUp(t *testing.T) {
	valid := validation.SignUpInput{
		Name:            "Jo",
		Email:           "jo@uni.edu",
		Password:        "abcdefgh",
		ConfirmPassword: "abcdefgh",
	}
	assert.True(t, validation.SignUp(valid).Valid())

	short := valid
	short.Name = "J"
	short.ConfirmPassword = "abc"
	errs := validation.SignUp(short)
	assert.ElementsMatch(t, []string{"name", "confirmPassword"}, errs.Fields())
	assert.Equal(t, "Name must be at least 2 characters", errs.First("name"))
	assert.Equal(t, "Password must be at least 8 characters", errs.First("confirmPassword"))
}

func TestSignUp_MismatchIsNotAFieldError(t *testing.T) {
	in := validation.SignUpInput{
		Name:            "Jane Doe",
		Email:           "jane@uni.edu",
		Password:        "abcdefgh",
		ConfirmPassword: "different",
	}
	assert.True(t, validation.SignUp(in).Valid())
	err := validation.PasswordsMatch(in)
	assert.ErrorIs(t, err, validation.ErrPasswordMismatch)
	assert.Equal(t, "Passwords do not match", err.Error())

	in.ConfirmPassword = in.Password
	assert.NoError(t, validation.PasswordsMatch(in))
}

func TestErrors_AsError(t *testing.T) {
	assert.NoError(t, validation.Errors{}.AsError())

	err := validation.SignIn(validation.SignInInput{Email: "bad@x", Password: "short"}).AsError()
	var vErr *validation.Error
	assert.True(t, errors.As(err, &vErr))
	assert.Len(t, vErr.Fields, 2)
	assert.Contains(t, err.Error(), "email: Invalid email address")
}

func TestNoteTitle(t *testing.T) {
	assert.Equal(t, "Untitled Note", validation.NoteTitle(""))
	assert.Equal(t, "Untitled Note", validation.NoteTitle("   "))
	assert.Equal(t, "My Note", validation.NoteTitle("My Note"))
}

func TestNote(t *testing.T) {
	assert.True(t, validation.Note("T", "").Valid())

	errs := validation.Note(strings.Repeat("t", 201), strings.Repeat("c", 1<<20+1))
	assert.ElementsMatch(t, []string{"title", "content"}, errs.Fields())
}
