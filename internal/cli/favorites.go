package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookfinder/internal/auth"
	"github.com/mrlokans/bookfinder/internal/config"
	"github.com/mrlokans/bookfinder/internal/database"
	"github.com/mrlokans/bookfinder/internal/favorites"
	"github.com/mrlokans/bookfinder/internal/storage"
)

const silent = logger.Silent

func openDurable(path string) (storage.Durable, func(), error) {
	db, err := database.NewDatabase(path, database.WithLogLevel(silent))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return db.Durable(), func() { db.Close() }, nil
}

// FavoritesExportCommand writes favorites records as a localStorage dump.
type FavoritesExportCommand struct {
	OutputPath   string
	DatabasePath string
	User         string

	out     io.Writer
	durable storage.Durable
}

func NewFavoritesExportCommand() *FavoritesExportCommand {
	return &FavoritesExportCommand{out: os.Stdout}
}

func (cmd *FavoritesExportCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("favorites-export", flag.ContinueOnError)

	fs.StringVar(&cmd.OutputPath, "out", "", "Output file (default: stdout)")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the database file")
	fs.StringVar(&cmd.User, "user", "", "Export only this user's favorites")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s favorites-export [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Export favorites as JSON keyed like the browser's localStorage\n")
		fmt.Fprintf(os.Stderr, "(\"favorites_<email>\" -> JSON list of volumes).\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

func (cmd *FavoritesExportCommand) Run() error {
	ctx := context.Background()

	if cmd.durable == nil {
		durable, closeDB, err := openDurable(cmd.DatabasePath)
		if err != nil {
			return err
		}
		defer closeDB()
		cmd.durable = durable
	}

	var (
		dump favorites.LegacyDump
		err  error
	)
	if cmd.User != "" {
		dump, err = favorites.ExportIdentity(ctx, cmd.durable, auth.NormalizeEmail(cmd.User))
	} else {
		dump, err = favorites.Export(ctx, cmd.durable)
	}
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(dump, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	data = append(data, '\n')

	if cmd.OutputPath == "" {
		_, err := cmd.out.Write(data)
		return err
	}
	if err := os.WriteFile(cmd.OutputPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", cmd.OutputPath, err)
	}
	fmt.Fprintf(cmd.out, "Exported %d favorites records to %s\n", len(dump), cmd.OutputPath)
	return nil
}

// FavoritesImportCommand merges a browser localStorage dump into the database.
type FavoritesImportCommand struct {
	InputPath    string
	DatabasePath string
	User         string
	DryRun       bool

	out     io.Writer
	durable storage.Durable
}

func NewFavoritesImportCommand() *FavoritesImportCommand {
	return &FavoritesImportCommand{out: os.Stdout}
}

func (cmd *FavoritesImportCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("favorites-import", flag.ContinueOnError)

	fs.StringVar(&cmd.InputPath, "in", "", "localStorage dump to import (required)")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the database file")
	fs.StringVar(&cmd.User, "user", "", "Import only this user's key")
	fs.BoolVar(&cmd.DryRun, "dry-run", false, "Show what would be imported without making changes")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s favorites-import -in <file> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Merge favorites saved by the browser client. Keys other than\n")
		fmt.Fprintf(os.Stderr, "\"favorites_<email>\" and values that do not parse are skipped.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.InputPath == "" {
		return fmt.Errorf("required flag -in not provided")
	}
	return nil
}

func (cmd *FavoritesImportCommand) Run() error {
	data, err := os.ReadFile(cmd.InputPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", cmd.InputPath, err)
	}

	var dump favorites.LegacyDump
	if err := json.Unmarshal(data, &dump); err != nil {
		return fmt.Errorf("failed to parse %s: %w", cmd.InputPath, err)
	}

	var allow func(string) bool
	if cmd.User != "" {
		user := auth.NormalizeEmail(cmd.User)
		allow = func(identity string) bool { return identity == user }
	}

	if cmd.DryRun {
		fmt.Fprintln(cmd.out, "DRY RUN MODE - No changes will be made")
		cmd.durable = storage.NewMemory()
	} else if cmd.durable == nil {
		durable, closeDB, err := openDurable(cmd.DatabasePath)
		if err != nil {
			return err
		}
		defer closeDB()
		cmd.durable = durable
	}

	result, err := favorites.Import(context.Background(), cmd.durable, nil, dump, allow)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.out, "Identities: %d\n", result.Identities)
	fmt.Fprintf(cmd.out, "Books added: %d\n", result.Added)
	for _, key := range result.Skipped {
		fmt.Fprintf(cmd.out, "  [SKIPPED] %s\n", key)
	}
	return nil
}
