package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/educloud/notes/models"
	"github.com/educloud/notes/session"
	"github.com/educloud/notes/signals"
	"github.com/educloud/notes/validation"
)

type mockAuth struct {
	mock.Mock
}

func (m *mockAuth) SignIn(ctx context.Context, email, password string) (models.Session, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(models.Session), args.Error(1)
}

func (m *mockAuth) SignUp(ctx context.Context, name, email, password string) (models.Session, error) {
	args := m.Called(ctx, name, email, password)
	return args.Get(0).(models.Session), args.Error(1)
}

func setupController() (*session.Controller, *mockAuth, *signals.Recorder) {
	auth := new(mockAuth)
	rec := &signals.Recorder{}
	return session.NewController(auth, rec, rec), auth, rec
}

var validSignIn = validation.SignInInput{Email: "student@uni.edu", Password: "abcdefgh"}

func TestSignIn_Success(t *testing.T) {
	c, auth, rec := setupController()
	ctx := context.Background()

	sess := models.Session{Token: "tok", UserId: "u1", Email: validSignIn.Email}
	auth.On("SignIn", ctx, validSignIn.Email, validSignIn.Password).Return(sess, nil)

	require.NoError(t, c.SignIn(ctx, validSignIn))
	assert.Equal(t, session.StateAuthenticated, c.State())
	got, ok := c.Session()
	assert.True(t, ok)
	assert.Equal(t, "tok", got.Token)
	assert.True(t, c.Authenticated())

	assert.Equal(t, []signals.Destination{signals.Dashboard()}, rec.Destinations())
	last, _ := rec.Last()
	assert.Equal(t, "Welcome back!", last.Title)
	assert.Equal(t, signals.SeverityNormal, last.Severity)
}

func TestSignIn_ValidationBlocksNetwork(t *testing.T) {
	c, auth, rec := setupController()

	err := c.SignIn(context.Background(), validation.SignInInput{Email: "bad@x", Password: "short"})
	var vErr *validation.Error
	require.True(t, errors.As(err, &vErr))
	assert.Len(t, vErr.Fields, 2)
	assert.Equal(t, "Invalid email address", vErr.Fields.First("email"))
	assert.Equal(t, "Password must be at least 8 characters", vErr.Fields.First("password"))

	auth.AssertNotCalled(t, "SignIn", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, session.StateIdle, c.State())
	assert.False(t, c.CanSubmit())
	assert.Empty(t, rec.Destinations())
}

func TestSignIn_ServiceFailure(t *testing.T) {
	c, auth, rec := setupController()
	ctx := context.Background()

	auth.On("SignIn", ctx, mock.Anything, mock.Anything).
		Return(models.Session{}, &session.AuthServiceError{Message: "Invalid email or password", Status: 401})

	err := c.SignIn(ctx, validSignIn)
	var svcErr *session.AuthServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, "Invalid email or password", err.Error())
	assert.Equal(t, session.StateFailed, c.State())
	_, ok := c.Session()
	assert.False(t, ok)
	assert.Empty(t, rec.Destinations())

	last, _ := rec.Last()
	assert.Equal(t, "Error", last.Title)
	assert.Equal(t, "Invalid email or password", last.Description)
	assert.Equal(t, signals.SeverityDestructive, last.Severity)

	// The next edit returns the form to Idle.
	c.CheckSignIn(validSignIn)
	assert.Equal(t, session.StateIdle, c.State())
	assert.NoError(t, c.LastError())
	assert.True(t, c.CanSubmit())
}

func TestSignIn_StatusTextFallback(t *testing.T) {
	c, auth, rec := setupController()
	ctx := context.Background()

	auth.On("SignIn", ctx, mock.Anything, mock.Anything).
		Return(models.Session{}, &session.AuthServiceError{Status: 503, StatusText: "Service Unavailable"})

	err := c.SignIn(ctx, validSignIn)
	assert.Equal(t, "Service Unavailable", err.Error())
	last, _ := rec.Last()
	assert.Equal(t, "Service Unavailable", last.Description)
}

func TestSignIn_PlainErrorWrapped(t *testing.T) {
	c, auth, _ := setupController()
	ctx := context.Background()

	auth.On("SignIn", ctx, mock.Anything, mock.Anything).Return(models.Session{}, errors.New("dial tcp: refused"))

	err := c.SignIn(ctx, validSignIn)
	var svcErr *session.AuthServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, "dial tcp: refused", svcErr.Message)
}

func TestAuthServiceError_Fallbacks(t *testing.T) {
	assert.Equal(t, "m", (&session.AuthServiceError{Message: "m", StatusText: "s"}).Error())
	assert.Equal(t, "Bad Request", (&session.AuthServiceError{Status: 400}).Error())
	assert.Equal(t, "Something went wrong", (&session.AuthServiceError{}).Error())
}

func TestSignIn_SecondSubmitRejectedWhileInFlight(t *testing.T) {
	c, auth, _ := setupController()
	ctx := context.Background()

	release := make(chan struct{})
	entered := make(chan struct{})
	auth.On("SignIn", ctx, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(models.Session{Token: "tok"}, nil).Once()

	done := make(chan error, 1)
	go func() { done <- c.SignIn(ctx, validSignIn) }()
	<-entered

	assert.Equal(t, session.StateSubmitting, c.State())
	assert.False(t, c.CanSubmit())
	assert.ErrorIs(t, c.SignIn(ctx, validSignIn), session.ErrSubmissionInFlight)

	close(release)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sign in did not finish")
	}
	auth.AssertNumberOfCalls(t, "SignIn", 1)
}

func TestSignIn_ResultAfterDetachIsDiscarded(t *testing.T) {
	c, auth, rec := setupController()
	ctx := context.Background()

	release := make(chan struct{})
	entered := make(chan struct{})
	auth.On("SignIn", ctx, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(models.Session{Token: "late"}, nil)

	done := make(chan error, 1)
	go func() { done <- c.SignIn(ctx, validSignIn) }()
	<-entered

	c.Detach()
	close(release)
	<-done

	_, ok := c.Session()
	assert.False(t, ok)
	assert.Equal(t, session.StateIdle, c.State())
	assert.Empty(t, rec.Notifications())
	assert.Empty(t, rec.Destinations())
}

func TestSignUp_MismatchShortCircuits(t *testing.T) {
	c, auth, rec := setupController()

	err := c.SignUp(context.Background(), validation.SignUpInput{
		Name:            "Jane Doe",
		Email:           "jane@uni.edu",
		Password:        "abcdefgh",
		ConfirmPassword: "different",
	})
	assert.ErrorIs(t, err, validation.ErrPasswordMismatch)
	assert.Equal(t, session.StateIdle, c.State())
	assert.Equal(t, validation.ErrPasswordMismatch, c.LastError())
	auth.AssertNotCalled(t, "SignUp", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	last, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, "Passwords do not match", last.Description)
	assert.Equal(t, signals.SeverityDestructive, last.Severity)
}

func TestSignUp_MismatchReportedBeforeFieldErrors(t *testing.T) {
	inputs := map[string]validation.SignUpInput{
		"empty name and email": {Password: "abcdefgh", ConfirmPassword: "different"},
		"short confirmation":   {Name: "Ann", Email: "a@uni.edu", Password: "abcdefgh", ConfirmPassword: "short"},
	}
	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			c, auth, rec := setupController()

			err := c.SignUp(context.Background(), in)
			assert.ErrorIs(t, err, validation.ErrPasswordMismatch)
			assert.Equal(t, session.StateIdle, c.State())
			assert.Equal(t, validation.ErrPasswordMismatch, c.LastError())
			auth.AssertNotCalled(t, "SignUp", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

			last, ok := rec.Last()
			require.True(t, ok)
			assert.Equal(t, "Passwords do not match", last.Description)
			assert.Equal(t, signals.SeverityDestructive, last.Severity)
		})
	}
}

func TestBlockedSubmitAfterFailureReturnsToIdle(t *testing.T) {
	c, auth, _ := setupController()
	ctx := context.Background()

	auth.On("SignIn", ctx, mock.Anything, mock.Anything).
		Return(models.Session{}, &session.AuthServiceError{Message: "Invalid email or password", Status: 401})
	require.Error(t, c.SignIn(ctx, validSignIn))
	require.Equal(t, session.StateFailed, c.State())

	err := c.SignIn(ctx, validation.SignInInput{Email: "bad@x", Password: "short"})
	var vErr *validation.Error
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, session.StateIdle, c.State())
	assert.NoError(t, c.LastError())
	auth.AssertNumberOfCalls(t, "SignIn", 1)

	require.Error(t, c.SignIn(ctx, validSignIn))
	require.Equal(t, session.StateFailed, c.State())
	err = c.SignUp(ctx, validation.SignUpInput{
		Name:            "Jane Doe",
		Email:           "jane@uni.edu",
		Password:        "abcdefgh",
		ConfirmPassword: "different",
	})
	assert.ErrorIs(t, err, validation.ErrPasswordMismatch)
	assert.Equal(t, session.StateIdle, c.State())
	auth.AssertNumberOfCalls(t, "SignIn", 2)
}

func TestSignUp_Success(t *testing.T) {
	c, auth, rec := setupController()
	ctx := context.Background()

	auth.On("SignUp", ctx, "Jane Doe", "jane@uni.edu", "abcdefgh").Return(models.Session{Token: "t"}, nil)

	err := c.SignUp(ctx, validation.SignUpInput{
		Name:            "Jane Doe",
		Email:           "jane@uni.edu",
		Password:        "abcdefgh",
		ConfirmPassword: "abcdefgh",
	})
	require.NoError(t, err)
	assert.Equal(t, session.StateAuthenticated, c.State())
	last, _ := rec.Last()
	assert.Equal(t, "Success!", last.Title)
	assert.Equal(t, []signals.Destination{signals.Dashboard()}, rec.Destinations())
}

func TestLogout(t *testing.T) {
	c, _, rec := setupController()
	c.Restore(models.Session{Token: "t"})
	require.True(t, c.Authenticated())

	c.Logout()
	assert.False(t, c.Authenticated())
	assert.Equal(t, session.StateIdle, c.State())
	assert.Equal(t, []string{"notify:Logged out", "navigate:landing"}, rec.Order())
}
