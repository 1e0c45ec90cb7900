package cli

import (
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
	colorable "github.com/mattn/go-colorable"
	"github.com/nsyszr/flowcount/config"
	migrate "github.com/rubenv/sql-migrate"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// DefaultMigrationDir holds the sql-migrate files of the event store.
const DefaultMigrationDir = "db/migrations"

type MigrateHandler struct {
	c   *config.Config
	dir string
}

func newMigrateHandler(c *config.Config) *MigrateHandler {
	return &MigrateHandler{c: c, dir: DefaultMigrationDir}
}

// SetDir changes the directory the migration files are read from.
func (h *MigrateHandler) SetDir(dir string) {
	if dir != "" {
		h.dir = dir
	}
}

// getDatabaseURL returns the positional database url or, if absent, the
// configured one.
func getDatabaseURL(args []string, position int, fallback string) string {
	if len(args) > position && args[position] != "" {
		return args[position]
	}
	return fallback
}

func (h *MigrateHandler) MigrateSQL(cmd *cobra.Command, args []string) {
	url := getDatabaseURL(args, 0, h.c.DatabaseURL)
	if url == "" {
		fmt.Println(cmd.UsageString())
		os.Exit(2) // Return missing keyword or command
	}

	log.SetLevel(log.DebugLevel)
	log.SetFormatter(&log.TextFormatter{
		ForceColors: true,
	})
	log.SetOutput(colorable.NewColorableStdout())

	log.Info("Applying SQL migration...")

	// Connect to PostgreSQL database
	db, err := sqlx.Open("postgres", url)
	if err != nil {
		log.Errorf("An error occurred while connecting to SQL: %s", err)
		os.Exit(1)
	}
	defer db.Close()

	// Check the database connection
	if err := db.Ping(); err != nil {
		log.Errorf("An error occurred while connecting to SQL: %s", err)
		os.Exit(1)
	}

	// Init db migrations
	migrations := &migrate.FileMigrationSource{
		Dir: h.dir,
	}

	// Exec db migrations
	n, err := migrate.Exec(db.DB, "postgres", migrations, migrate.Up)
	if err != nil {
		log.Errorf("An error occurred while running the migrations: %s", err)
		os.Exit(1)
	}
	log.Infof("Migration successful! Applied a total of %d migrations.", n)
}
