package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/educloud/notes/apiclient"
	"github.com/educloud/notes/dashboard"
	"github.com/educloud/notes/editor"
	"github.com/educloud/notes/models"
	"github.com/educloud/notes/notes"
	"github.com/educloud/notes/session"
	"github.com/educloud/notes/signals"
)

const (
	requestTimeout     = 30 * time.Second
	exportPollInterval = time.Second
)

var (
	noteTitle   string
	noteContent string
	noteFile    string
	exportOut   string
	exportWait  bool
)

// workspace is one signed-in client session: the note store hydrated from
// the server plus the controllers that act on it.
type workspace struct {
	client    *apiclient.Client
	session   *session.Controller
	store     *notes.Store
	dashboard *dashboard.Dashboard
	editor    *editor.Controller
}

func openWorkspace(ctx context.Context) *workspace {
	client, sess := signedInClient()
	notifier := terminalNotifier()

	ctrl := session.NewController(client, notifier, signals.Discard)
	ctrl.Restore(sess)

	store := notes.NewStore(notes.WithBackend(client), notes.WithGate(ctrl))
	if err := store.Hydrate(ctx); err != nil {
		fatal("Failed to load notes", err)
	}

	return &workspace{
		client:    client,
		session:   ctrl,
		store:     store,
		dashboard: dashboard.New(store, client, ctrl, notifier, signals.Discard),
		editor:    editor.NewController(store, client, client, notifier, signals.Discard),
	}
}

var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "Work with your notes",
}

var notesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes, most recently created last",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := withTimeout(cmd.Context())
		defer cancel()
		ws := openWorkspace(ctx)

		if ws.dashboard.Empty() {
			fmt.Println(dashboard.EmptyMessage)
			return
		}
		cards, err := ws.dashboard.Cards(time.Now())
		if err != nil {
			fatal("Failed to list notes", err)
		}
		for _, card := range cards {
			fmt.Printf("%s  %s  (%s)\n", card.Id, card.Title, card.Updated)
			if card.Snippet != "" {
				fmt.Printf("    %s\n", card.Snippet)
			}
		}
	},
}

var notesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a note's content",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := withTimeout(cmd.Context())
		defer cancel()
		ws := openWorkspace(ctx)

		note, err := ws.store.Get(args[0])
		if err != nil {
			fatal("Failed to load note", err)
		}
		printNote(note)
	},
}

var notesNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a note",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := withTimeout(cmd.Context())
		defer cancel()
		ws := openWorkspace(ctx)

		ws.editor.LoadForNew()
		if cmd.Flags().Changed("title") {
			ws.editor.SetTitle(noteTitle)
		}
		if content, ok := contentFromFlags(cmd); ok {
			ws.editor.SetContent(content)
		}

		note, err := ws.editor.Save(ctx)
		if err != nil {
			fatal("Failed to save note", err)
		}
		fmt.Println(note.Id)
	},
}

var notesEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change a note's title or content",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := withTimeout(cmd.Context())
		defer cancel()
		ws := openWorkspace(ctx)

		if err := ws.editor.Load(signals.Editor(args[0])); err != nil {
			fatal("Failed to load note", err)
		}
		if cmd.Flags().Changed("title") {
			ws.editor.SetTitle(noteTitle)
		}
		if content, ok := contentFromFlags(cmd); ok {
			ws.editor.SetContent(content)
		}
		if !ws.editor.Draft().Dirty {
			fmt.Fprintln(os.Stderr, "Nothing to change.")
			return
		}

		if _, err := ws.editor.Save(ctx); err != nil {
			fatal("Failed to save note", err)
		}
	},
}

var notesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a note",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := withTimeout(cmd.Context())
		defer cancel()
		ws := openWorkspace(ctx)

		if err := ws.dashboard.Delete(ctx, args[0]); err != nil {
			fatal("Failed to delete note", err)
		}
	},
}

var notesShareCmd = &cobra.Command{
	Use:   "share <id>",
	Short: "Print a public read-only link to a note",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := withTimeout(cmd.Context())
		defer cancel()
		ws := openWorkspace(ctx)

		link, err := ws.dashboard.Share(ctx, args[0])
		if err != nil {
			fatal("Failed to share note", err)
		}
		fmt.Println(link)
	},
}

var notesSharedCmd = &cobra.Command{
	Use:   "shared <token>",
	Short: "Open a shared note without signing in",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := withTimeout(cmd.Context())
		defer cancel()

		note, err := apiclient.NewClient(serverURL).Shared(ctx, args[0])
		if err != nil {
			fatal("Failed to open shared note", err)
		}
		printNote(note)
	},
}

type exportResult struct {
	job models.ExportJob
	err error
}

var notesExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Export a note as a document",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := withTimeout(cmd.Context())
		defer cancel()
		ws := openWorkspace(ctx)

		if err := ws.editor.LoadForEdit(args[0]); err != nil {
			fatal("Failed to load note", err)
		}

		results := make(chan exportResult, 1)
		ws.client.OnExport(func(job models.ExportJob, err error) {
			results <- exportResult{job: job, err: err}
		})
		if err := ws.editor.Export(ctx); err != nil {
			fatal("Failed to export note", err)
		}

		var res exportResult
		select {
		case res = <-results:
		case <-ctx.Done():
			fatal("Failed to export note", ctx.Err())
		}
		if res.err != nil {
			fatal("Failed to export note", res.err)
		}
		if !exportWait {
			fmt.Println(res.job.Id)
			return
		}

		job, err := ws.client.WaitExport(ctx, res.job.Id, exportPollInterval)
		if err != nil {
			fatal("Failed to wait for export", err)
		}
		if job.Status == models.ExportFailed {
			fatal("Export failed", errors.New(job.Error))
		}
		if err := writeDocument(job); err != nil {
			fatal("Failed to write document", err)
		}
	},
}

func init() {
	for _, cmd := range []*cobra.Command{notesNewCmd, notesEditCmd} {
		cmd.Flags().StringVar(&noteTitle, "title", "", "note title")
		cmd.Flags().StringVar(&noteContent, "content", "", "note content as HTML markup")
		cmd.Flags().StringVar(&noteFile, "file", "", "read the content from a file, - for stdin")
		cmd.MarkFlagsMutuallyExclusive("content", "file")
	}
	notesExportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "write the document here instead of stdout")
	notesExportCmd.Flags().BoolVar(&exportWait, "wait", true, "wait for the document instead of printing the export id")

	notesCmd.AddCommand(
		notesListCmd,
		notesShowCmd,
		notesNewCmd,
		notesEditCmd,
		notesDeleteCmd,
		notesShareCmd,
		notesSharedCmd,
		notesExportCmd,
	)
	rootCmd.AddCommand(notesCmd)
}

// contentFromFlags reports the content given by --content or --file, if
// either was set.
func contentFromFlags(cmd *cobra.Command) (string, bool) {
	if cmd.Flags().Changed("content") {
		return noteContent, true
	}
	if !cmd.Flags().Changed("file") {
		return "", false
	}

	var data []byte
	var err error
	if noteFile == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(noteFile)
	}
	if err != nil {
		fatal("Failed to read content", err)
	}
	return string(data), true
}

func printNote(note models.Note) {
	fmt.Printf("# %s\n\n%s\n", note.Title, notes.PlainText(note.Content))
}

func writeDocument(job models.ExportJob) error {
	if exportOut == "" {
		_, err := os.Stdout.Write(job.Document)
		return err
	}
	if err := os.WriteFile(exportOut, job.Document, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Wrote %s (%s)\n", exportOut, job.ContentType)
	return nil
}
