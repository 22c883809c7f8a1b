package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mrlokans/bookfinder/internal/audit"
	"github.com/mrlokans/bookfinder/internal/config"
	"github.com/mrlokans/bookfinder/internal/database"
	"github.com/mrlokans/bookfinder/internal/tasks"
)

// SnapshotCommand writes one favorites snapshot file, the same one the
// scheduler produces.
type SnapshotCommand struct {
	DatabasePath string
	Dir          string
	Keep         int
	List         bool

	out io.Writer
}

func NewSnapshotCommand() *SnapshotCommand {
	return &SnapshotCommand{out: os.Stdout}
}

func (cmd *SnapshotCommand) ParseFlags(args []string) error {
	cfg := config.NewConfig()
	fs := flag.NewFlagSet("snapshot", flag.ContinueOnError)

	fs.StringVar(&cmd.DatabasePath, "db", cfg.Database.Path, "Path to the database file")
	fs.StringVar(&cmd.Dir, "dir", cfg.Snapshot.Dir, "Snapshot directory")
	fs.IntVar(&cmd.Keep, "keep", cfg.Snapshot.Keep, "Newest snapshots to keep (0 keeps all)")
	fs.BoolVar(&cmd.List, "list", false, "List existing snapshots instead of writing one")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s snapshot [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Write every user's favorites to a timestamped JSON file.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.Keep < 0 {
		return fmt.Errorf("-keep must not be negative")
	}
	return nil
}

func (cmd *SnapshotCommand) Run() error {
	if cmd.List {
		names, err := (&tasks.Snapshotter{Dir: cmd.Dir}).List()
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(cmd.out, name)
		}
		return nil
	}

	db, err := database.NewDatabase(cmd.DatabasePath, database.WithLogLevel(silent))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	auditService := audit.NewService(db.Audit())
	defer auditService.Wait()

	s := tasks.NewSnapshotter(db.Durable(), cmd.Dir, nil)
	s.Keep = cmd.Keep
	s.Audit = auditService

	path, err := s.Run(context.Background(), "cli")
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.out, "Wrote %s\n", path)
	return nil
}
