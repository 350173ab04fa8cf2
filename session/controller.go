// Package session owns the authentication state machine:
//
//	Idle -> Submitting -> Authenticated | Failed
//	Failed -> Idle on the next field edit
//	Authenticated -> Idle on logout
package session

import (
	"context"
	"sync"

	"github.com/educloud/notes/models"
	"github.com/educloud/notes/signals"
	"github.com/educloud/notes/validation"
)

type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateAuthenticated
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateSubmitting:
		return "submitting"
	case StateAuthenticated:
		return "authenticated"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// AuthService is the external boundary that turns credentials into a
// session.
type AuthService interface {
	SignIn(ctx context.Context, email, password string) (models.Session, error)
	SignUp(ctx context.Context, name, email, password string) (models.Session, error)
}

type Controller struct {
	mu         sync.Mutex
	state      State
	session    *models.Session
	fieldErrs  validation.Errors
	lastErr    error
	generation uint64

	service   AuthService
	notifier  signals.Notifier
	navigator signals.Navigator
}

func NewController(service AuthService, notifier signals.Notifier, navigator signals.Navigator) *Controller {
	if notifier == nil {
		notifier = signals.Discard
	}
	if navigator == nil {
		navigator = signals.Discard
	}
	return &Controller{
		service:   service,
		notifier:  notifier,
		navigator: navigator,
		fieldErrs: validation.Errors{},
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Session() (models.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return models.Session{}, false
	}
	return *c.session, true
}

func (c *Controller) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil
}

// Errors returns the field errors from the last check.
func (c *Controller) Errors() validation.Errors {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fieldErrs
}

// LastError is the submission-level error of the last attempt, if any.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Controller) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state != StateSubmitting && c.fieldErrs.Valid()
}

// CheckSignIn is the field-change hook of the sign-in form.
func (c *Controller) CheckSignIn(in validation.SignInInput) validation.Errors {
	return c.check(validation.SignIn(in))
}

// CheckSignUp is the field-change hook of the sign-up form.
func (c *Controller) CheckSignUp(in validation.SignUpInput) validation.Errors {
	return c.check(validation.SignUp(in))
}

func (c *Controller) check(errs validation.Errors) validation.Errors {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fieldErrs = errs
	if c.state == StateFailed {
		c.state = StateIdle
		c.lastErr = nil
	}
	return errs
}

func (c *Controller) SignIn(ctx context.Context, in validation.SignInInput) error {
	gen, err := c.begin(validation.SignIn(in), nil)
	if err != nil {
		return err
	}

	session, err := c.service.SignIn(ctx, in.Email, in.Password)
	return c.finish(gen, session, err, signals.Notification{
		Title:       "Welcome back!",
		Description: "Successfully logged in to your account.",
	})
}

func (c *Controller) SignUp(ctx context.Context, in validation.SignUpInput) error {
	gen, err := c.begin(validation.SignUp(in), func() error { return validation.PasswordsMatch(in) })
	if err != nil {
		return err
	}

	session, err := c.service.SignUp(ctx, in.Name, in.Email, in.Password)
	return c.finish(gen, session, err, signals.Notification{
		Title:       "Success!",
		Description: "Your account has been created. Welcome to EduCloud Notes!",
	})
}

// begin runs the submit-time checks and moves to Submitting. Nothing here
// reaches the service. The cross-field check comes first so a mismatch is
// reported as such whatever the state of the other fields. A blocked submit
// leaves the form Idle.
func (c *Controller) begin(errs validation.Errors, crossCheck func() error) (uint64, error) {
	c.mu.Lock()
	if c.state == StateSubmitting {
		c.mu.Unlock()
		return 0, ErrSubmissionInFlight
	}

	c.fieldErrs = errs
	if c.state == StateFailed {
		c.state = StateIdle
	}
	c.lastErr = nil

	if crossCheck != nil {
		if err := crossCheck(); err != nil {
			c.lastErr = err
			c.mu.Unlock()
			c.notifier.Notify(signals.Notification{
				Title:       "Error",
				Description: err.Error(),
				Severity:    signals.SeverityDestructive,
			})
			return 0, err
		}
	}

	if !errs.Valid() {
		c.mu.Unlock()
		return 0, errs.AsError()
	}

	c.state = StateSubmitting
	gen := c.generation
	c.mu.Unlock()
	return gen, nil
}

func (c *Controller) finish(gen uint64, session models.Session, err error, success signals.Notification) error {
	c.mu.Lock()
	if gen != c.generation {
		// The view went away while the call was in flight.
		c.mu.Unlock()
		if err != nil {
			return asServiceError(err)
		}
		return nil
	}

	if err != nil {
		svcErr := asServiceError(err)
		c.state = StateFailed
		c.lastErr = svcErr
		c.mu.Unlock()
		c.notifier.Notify(signals.Notification{
			Title:       "Error",
			Description: svcErr.Error(),
			Severity:    signals.SeverityDestructive,
		})
		return svcErr
	}

	c.state = StateAuthenticated
	c.session = &session
	c.mu.Unlock()

	c.navigator.Navigate(signals.Dashboard())
	c.notifier.Notify(success)
	return nil
}

// Restore adopts a session obtained earlier, e.g. a saved token.
func (c *Controller) Restore(session models.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.session = &session
	c.state = StateAuthenticated
	c.lastErr = nil
}

// Logout ends the session: the confirmation is emitted first, then the
// navigation to the landing page. Any delay between the two belongs to the
// presentation layer.
func (c *Controller) Logout() {
	c.mu.Lock()
	c.generation++
	c.session = nil
	c.state = StateIdle
	c.lastErr = nil
	c.fieldErrs = validation.Errors{}
	c.mu.Unlock()

	c.notifier.Notify(signals.Notification{
		Title:       "Logged out",
		Description: "You have been successfully logged out.",
	})
	c.navigator.Navigate(signals.Landing())
}

// Detach marks the current form as torn down. A submission that completes
// afterwards changes nothing and emits nothing.
func (c *Controller) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	if c.state == StateSubmitting {
		c.state = StateIdle
	}
}
