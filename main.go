package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/educloud/notes/logger"
)

const defaultServerURL = "http://localhost:8080"

var (
	configPath string
	logLevel   string
	serverURL  string
	authToken  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "educloud-notes",
	Short: "EduCloud Notes server and command-line client",
	Long: `EduCloud Notes keeps short rich-text notes per user.
"educloud-notes serve" runs the API; the other commands talk to a running server.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := logLevel
		if level == "" {
			level = "warn"
		}
		if _, err := logger.Setup(level, true, os.Stderr); err != nil {
			fmt.Fprintf(os.Stderr, "unknown log level %q, using info\n", level)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	server := os.Getenv("NOTES_SERVER")
	if server == "" {
		server = defaultServerURL
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (serve only)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", server, "notes server base URL")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", os.Getenv("NOTES_TOKEN"), "session token, defaults to the saved session")
}

func fatal(msg string, err error) {
	log.Fatal().Err(err).Msg(msg)
}

func main() {
	Execute()
}
