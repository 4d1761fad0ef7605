package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gammalab-data/specfit/internal/db"
)

var migrateDBPath string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
	Long:  `Applies, rolls back or inspects the embedded schema migrations.`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrateDB(func(database *db.DB) error {
			if err := database.MigrateUp(); err != nil {
				return err
			}
			fmt.Println("Migrations applied")
			return nil
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrateDB(func(database *db.DB) error {
			if err := database.MigrateDown(); err != nil {
				return err
			}
			fmt.Println("Migration rolled back")
			return nil
		})
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrateDB(func(database *db.DB) error {
			v, dirty, err := database.MigrateVersion()
			if err != nil {
				return err
			}
			if v == 0 {
				fmt.Println("No migrations applied")
				return nil
			}
			if dirty {
				fmt.Printf("Schema version %d (dirty)\n", v)
			} else {
				fmt.Printf("Schema version %d\n", v)
			}
			return nil
		})
	},
}

var migrateForceCmd = &cobra.Command{
	Use:   "force <version>",
	Short: "Force the schema version without running migrations",
	Long: `Overwrites the recorded schema version. Only useful to recover from a
dirty migration state.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[0], err)
		}
		return withMigrateDB(func(database *db.DB) error {
			if err := database.MigrateForce(v); err != nil {
				return err
			}
			fmt.Printf("Schema version forced to %d\n", v)
			return nil
		})
	},
}

func withMigrateDB(fn func(*db.DB) error) error {
	database, err := db.Open(migrateDBPath)
	if err != nil {
		return err
	}
	defer database.Close()
	return fn(database)
}

func init() {
	migrateCmd.PersistentFlags().StringVar(&migrateDBPath, "db", "data/specfit.db", "sqlite database path")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd, migrateForceCmd)
	rootCmd.AddCommand(migrateCmd)
}
