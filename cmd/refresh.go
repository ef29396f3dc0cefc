package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stanza-labs/refdata-cli/internal/model"
)

func init() {
	rootCmd.AddCommand(refreshCmd)
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Run one acquisition pass and report per-type provenance",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		m, err := initManager(ctx)
		if err != nil {
			return err
		}
		defer m.Cleanup() //nolint:errcheck

		snap, err := m.Snapshot()
		if err != nil {
			return err
		}

		fmt.Printf("snapshot generation %d, fetched %s\n", snap.Generation, snap.FetchedAt.Format("2006-01-02 15:04:05"))
		for _, t := range model.AllDocumentTypes() {
			live := snap.SourceURLs(t)
			var count int
			switch t {
			case model.DocGenres:
				count = len(snap.Genres)
			case model.DocMetaTags:
				count = len(snap.MetaTags)
			case model.DocTechniques:
				count = len(snap.Techniques)
			}
			origin := "fallback"
			if len(live) > 0 {
				origin = fmt.Sprintf("live (%d sources)", len(live))
			}
			fmt.Printf("  %-12s %4d records  %s\n", t, count, origin)
		}

		return nil
	},
}
