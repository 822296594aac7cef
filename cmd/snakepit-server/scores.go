package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"snakepit-server/internal/config"
	"snakepit-server/internal/scores"
)

// ScoresCmd prints the persisted top-scores table, for quick inspection
// without starting the server.
var ScoresCmd = &cobra.Command{
	Use:   "scores",
	Short: "Print the persisted top-scores table",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		table, err := scores.Load(cfg.TopScoresFile, cfg.MaxTopScores)
		if err != nil {
			return err
		}
		for i, e := range table.Entries() {
			fmt.Printf("%2d. %-15s %d\n", i+1, e.Name, e.Score)
		}
		return nil
	},
}
