package cmd

import (
	"github.com/nsyszr/flowcount/pkg/cmd/cli"
	"github.com/spf13/cobra"
)

var migrationDir string

// migrateSQLCmd represents the migrate sql command
var migrateSQLCmd = &cobra.Command{
	Use:   "sql [database-url]",
	Short: "Create SQL schemas and apply migration plans",
	PreRun: func(cmd *cobra.Command, args []string) {
		cmdHandler.Migration.SetDir(migrationDir)
	},
	Run: cmdHandler.Migration.MigrateSQL,
}

func init() {
	migrateSQLCmd.Flags().StringVar(&migrationDir, "dir", cli.DefaultMigrationDir, "directory of the migration files")
	migrateCmd.AddCommand(migrateSQLCmd)
}
