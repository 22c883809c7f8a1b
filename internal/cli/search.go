package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mrlokans/bookfinder/internal/auth"
	"github.com/mrlokans/bookfinder/internal/catalog"
	"github.com/mrlokans/bookfinder/internal/config"
	"github.com/mrlokans/bookfinder/internal/database"
	"github.com/mrlokans/bookfinder/internal/favorites"
	"github.com/mrlokans/bookfinder/internal/session"
	"github.com/mrlokans/bookfinder/internal/storage"
)

// SearchCommand queries the book catalog from the terminal. With -user the
// results are marked with that user's favorites.
type SearchCommand struct {
	Query        string
	User         string
	DatabasePath string
	MaxResults   int
	Timeout      time.Duration

	out      io.Writer
	searcher catalog.Searcher
	durable  storage.Durable
}

func NewSearchCommand() *SearchCommand {
	return &SearchCommand{out: os.Stdout}
}

func (cmd *SearchCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)

	fs.StringVar(&cmd.Query, "q", "", "Search terms (required)")
	fs.StringVar(&cmd.User, "user", "", "Email of the user whose favorites are marked in the results")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the database file (used with -user)")
	fs.IntVar(&cmd.MaxResults, "n", config.DefaultCatalogMaxResults, "Maximum number of results")
	fs.DurationVar(&cmd.Timeout, "timeout", 15*time.Second, "Request timeout")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s search -q <terms> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Search the Google Books catalog.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExample:\n")
		fmt.Fprintf(os.Stderr, "  %s search -q \"dune herbert\" -user reader@example.com\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	cmd.Query = strings.TrimSpace(cmd.Query)
	if cmd.Query == "" {
		return fmt.Errorf("required flag -q not provided")
	}
	return nil
}

func (cmd *SearchCommand) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), cmd.Timeout)
	defer cancel()

	if cmd.searcher == nil {
		catalogCfg := config.NewConfig().Catalog
		catalogCfg.MaxResults = cmd.MaxResults
		cmd.searcher = catalog.NewClient(catalogCfg, nil)
	}

	var store *favorites.Store
	if cmd.User != "" {
		if cmd.durable == nil {
			db, err := database.NewDatabase(cmd.DatabasePath, database.WithLogLevel(silent))
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer db.Close()
			cmd.durable = db.Durable()
		}

		provider := session.NewProvider()
		store = favorites.NewStore(cmd.durable)
		unbind := favorites.Bind(ctx, provider, store)
		defer unbind()
		if err := provider.SignIn(auth.NormalizeEmail(cmd.User)); err != nil {
			return err
		}
	}

	books, err := cmd.searcher.Search(ctx, cmd.Query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(books) == 0 {
		fmt.Fprintf(cmd.out, "No books found for %q\n", cmd.Query)
		return nil
	}

	for i, b := range books {
		marker := " "
		if store != nil && store.IsFavorite(b.ID) {
			marker = "*"
		}
		fmt.Fprintf(cmd.out, "%s %d. %s by %s [%s]\n", marker, i+1, b.Title, b.AuthorLine(), b.ID)
	}
	return nil
}
