package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/adapters/driving/watcher"
)

var watchExisting bool

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Upload files dropped into a directory",
	Long: `Watch a directory tree and upload every new or rewritten file.

Hidden files and directories are skipped. Each write produces a new document;
earlier uploads of the same file are left untouched. Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchExisting, "existing", false, "also upload files already in the directory")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	ctx := commandContext(cmd)
	stop, err := startWorkers(ctx)
	if err != nil {
		return err
	}
	defer stop()

	recoverPending(ctx)

	w := watcher.New(watcher.Config{Root: args[0], IncludeExisting: watchExisting}, documentService)
	defer w.Close()

	uploads, err := w.Watch(ctx)
	if err != nil {
		return err
	}
	cmd.Printf("Watching %s (Ctrl+C to stop)\n", w.Root())

	for u := range uploads {
		if u.Err != nil {
			cmd.Printf("  skipped %s: %v\n", u.Path, u.Err)
			continue
		}
		cmd.Printf("  uploaded %s as %s\n", u.Path, u.Document.ID)
	}
	return nil
}
