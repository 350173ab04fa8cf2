package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/educloud/notes/apiclient"
	"github.com/educloud/notes/models"
	"github.com/educloud/notes/session"
	"github.com/educloud/notes/signals"
	"github.com/educloud/notes/validation"
)

const sessionFileName = "session.json"

var (
	name            string
	email           string
	password        string
	confirmPassword string
)

var signinCmd = &cobra.Command{
	Use:   "signin",
	Short: "Sign in and save the session",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		client := apiclient.NewClient(serverURL)
		ctrl := session.NewController(client, terminalNotifier(), signals.Discard)

		err := ctrl.SignIn(cmd.Context(), validation.SignInInput{Email: email, Password: readPassword("Password: ")})
		finishAuth(ctrl, err)
	},
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account and save the session",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		client := apiclient.NewClient(serverURL)
		ctrl := session.NewController(client, terminalNotifier(), signals.Discard)

		pw := readPassword("Password: ")
		confirm := confirmPassword
		if confirm == "" {
			if password != "" || os.Getenv("NOTES_PASSWORD") != "" {
				confirm = pw
			} else {
				confirm = readPassword("Confirm password: ")
			}
		}
		err := ctrl.SignUp(cmd.Context(), validation.SignUpInput{
			Name:            name,
			Email:           email,
			Password:        pw,
			ConfirmPassword: confirm,
		})
		finishAuth(ctrl, err)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Revoke the saved session",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		client, sess := signedInClient()
		ctrl := session.NewController(client, terminalNotifier(), signals.Discard)
		ctrl.Restore(sess)

		if err := client.Logout(cmd.Context()); err != nil {
			fatal("Failed to revoke session", err)
		}
		if err := removeSession(); err != nil {
			fatal("Failed to remove saved session", err)
		}
		ctrl.Logout()
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		client, _ := signedInClient()
		me, err := client.Me(cmd.Context())
		if err != nil {
			fatal("Failed to load account", err)
		}
		fmt.Printf("%s <%s> via %s, %d notes\n", me.Name, me.Email, me.Provider, me.NoteCount)
	},
}

func init() {
	signinCmd.Flags().StringVar(&email, "email", "", "account email")
	signinCmd.Flags().StringVar(&password, "password", "", "account password, prompted for when unset (or NOTES_PASSWORD)")

	signupCmd.Flags().StringVar(&name, "name", "", "display name")
	signupCmd.Flags().StringVar(&email, "email", "", "account email")
	signupCmd.Flags().StringVar(&password, "password", "", "account password, prompted for when unset (or NOTES_PASSWORD)")
	signupCmd.Flags().StringVar(&confirmPassword, "confirm-password", "", "repeat the password, defaults to --password")

	rootCmd.AddCommand(signinCmd, signupCmd, logoutCmd, whoamiCmd)
}

// readPassword takes --password, then NOTES_PASSWORD, then prompts on the
// terminal with echo disabled.
func readPassword(prompt string) string {
	if password != "" {
		return password
	}
	if env := os.Getenv("NOTES_PASSWORD"); env != "" {
		return env
	}

	stdinFd := int(os.Stdin.Fd())
	if !term.IsTerminal(stdinFd) {
		return ""
	}
	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(stdinFd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		fatal("Failed to read password", err)
	}
	return string(pw)
}

func finishAuth(ctrl *session.Controller, err error) {
	if err != nil {
		var vErr *validation.Error
		if errors.As(err, &vErr) {
			for _, field := range vErr.Fields.Fields() {
				fmt.Fprintf(os.Stderr, "%s: %s\n", field, vErr.Fields.First(field))
			}
		}
		// Service failures were already reported by the notifier.
		os.Exit(1)
	}

	sess, _ := ctrl.Session()
	if err := saveSession(sess); err != nil {
		fatal("Failed to save session", err)
	}
	fmt.Println(sess.Token)
}

// terminalNotifier prints notifications to stderr, keeping stdout for
// command output.
func terminalNotifier() signals.Notifier {
	return signals.NotifierFunc(func(n signals.Notification) {
		if n.Severity == signals.SeverityDestructive {
			fmt.Fprintf(os.Stderr, "%s: %s\n", n.Title, n.Description)
			return
		}
		fmt.Fprintf(os.Stderr, "%s %s\n", n.Title, n.Description)
	})
}

func sessionPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "educloud-notes", sessionFileName), nil
}

func saveSession(sess models.Session) error {
	path, err := sessionPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func loadSession() (models.Session, error) {
	path, err := sessionPath()
	if err != nil {
		return models.Session{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Session{}, err
	}
	var sess models.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return models.Session{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return sess, nil
}

func removeSession() error {
	path, err := sessionPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// signedInClient returns a client carrying the --token flag or the saved
// session, exiting when there is neither.
func signedInClient() (*apiclient.Client, models.Session) {
	client := apiclient.NewClient(serverURL)
	if authToken != "" {
		client.SetAuthToken(authToken)
		return client, models.Session{Token: authToken}
	}

	sess, err := loadSession()
	if errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "Not signed in. Run \"educloud-notes signin\" first.")
		os.Exit(1)
	}
	if err != nil {
		fatal("Failed to load saved session", err)
	}
	client.SetAuthToken(sess.Token)
	return client, sess
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, requestTimeout)
}
