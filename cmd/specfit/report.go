package main

import (
	"fmt"
	"math"
	"time"

	"github.com/spf13/cobra"

	"github.com/gammalab-data/specfit/internal/db"
	storage "github.com/gammalab-data/specfit/internal/spectro/storage/sqlite"
)

var (
	reportDBPath string
	reportLimit  int
)

var reportCmd = &cobra.Command{
	Use:   "report [session-id]",
	Short: "Print saved fit results",
	Long: `Reads fit results back from the database.
If no session-id is provided, lists recent sessions.
If a session-id is provided, prints every fit in that session.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportDBPath, "db", "data/specfit.db", "sqlite database path")
	reportCmd.Flags().IntVar(&reportLimit, "limit", 20, "Max sessions to list")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	database, err := db.Open(reportDBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	if len(args) == 0 {
		return listSessions(database)
	}
	return printSession(database, args[0])
}

func listSessions(database *db.DB) error {
	sessions, err := storage.NewSessionStore(database.DB).List(reportLimit)
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		fmt.Println("No sessions found")
		return nil
	}

	fmt.Printf("Found %d session(s):\n\n", len(sessions))
	for _, sess := range sessions {
		fmt.Printf("Session: %s\n", sess.SessionID)
		fmt.Printf("  Run: %d\n", sess.RunNumber)
		fmt.Printf("  Source: %s\n", sess.Source)
		fmt.Printf("  Bins: %d over [%.1f, %.1f) keV\n", sess.Bins, sess.RangeLo, sess.RangeHi)
		fmt.Printf("  Created: %s\n", time.Unix(0, sess.CreatedAt).Format(time.RFC3339))
		fmt.Println()
	}
	return nil
}

func printSession(database *db.DB, sessionID string) error {
	sess, err := storage.NewSessionStore(database.DB).Get(sessionID)
	if err != nil {
		return err
	}
	fits, err := storage.NewFitStore(database.DB).ListBySession(sessionID)
	if err != nil {
		return err
	}

	fmt.Printf("Session: %s (run %d, %s)\n", sess.SessionID, sess.RunNumber, sess.Source)
	fmt.Printf("Fits: %d\n\n", len(fits))

	for i, f := range fits {
		fmt.Printf("Peak %d (%s over [%.1f, %.1f)):\n", i+1, f.Shape, f.RangeLo, f.RangeHi)
		fmt.Printf("Centroid = %v +/- %v\n", f.Centroid, f.CentroidErr)
		fmt.Printf("Area = %v +/- %v\n", f.Area, f.AreaErr)
		if !math.IsNaN(f.FWHM) {
			fmt.Printf("FWHM = %v\n", f.FWHM)
		}
		fmt.Printf("Chi2/NDF = %.2f/%d\n\n", f.Chi2, f.NDF)
	}
	return nil
}
