package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/klabast/wb-services/bildungszeit-finder/internal/app"
	"github.com/klabast/wb-services/bildungszeit-finder/internal/store"
)

func newFetchCommand(g *globals) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Run the catalog pipeline once and print the events",
		Long: `Fetches the catalog, filters it to Berlin courses of the coming year,
geocodes the addresses and prints the resulting events as JSON. With
--output the events are written to a .json, .csv or .ics file instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := newPipeline(g.cfg, g.logger)
			if err != nil {
				return err
			}

			if err := p.Refresh(cmd.Context()); err != nil {
				if p.Store().Len() == 0 {
					return err
				}
				g.logger.Warn("catalog unavailable, writing fallback events", zap.Error(err))
			}

			events := store.SortByStart(p.Store().All())
			if output != "" {
				if err := app.WriteSnapshot(output, events, time.Now()); err != nil {
					return err
				}
				g.logger.Info("snapshot written", zap.String("file", output), zap.Int("events", len(events)))
				return nil
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(events); err != nil {
				return fmt.Errorf("failed to encode events: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write events to file (.json, .csv, .ics)")
	return cmd
}
