package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/stanza-labs/refdata-cli/internal/attribution"
	"github.com/stanza-labs/refdata-cli/internal/mapper"
	"github.com/stanza-labs/refdata-cli/internal/model"
)

var (
	mapTraits     []string
	mapMaxResults int
	mapShowCite   bool
	mapLogUsage   bool
)

func init() {
	mapGenresCmd.Flags().StringSliceVar(&mapTraits, "traits", nil, "character traits to map, comma-separated")
	mapGenresCmd.Flags().IntVar(&mapMaxResults, "max", 5, "maximum number of matches")
	mapGenresCmd.Flags().BoolVar(&mapShowCite, "cite", false, "print source attribution for the matches")
	mapGenresCmd.Flags().BoolVar(&mapLogUsage, "log-usage", false, "record the attribution in the usage log")
	rootCmd.AddCommand(mapGenresCmd)
}

var mapGenresCmd = &cobra.Command{
	Use:   "mapgenres",
	Short: "Map character traits to scored genre matches",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if len(mapTraits) == 0 {
			return eris.New("at least one --traits value is required")
		}

		m, err := initManager(cmd.Context())
		if err != nil {
			return err
		}
		defer m.Cleanup() //nolint:errcheck

		gm := mapper.NewGenreMapper(m)
		matches, err := gm.MapTraits(mapTraits, mapMaxResults)
		if err != nil {
			return err
		}

		if len(matches) == 0 {
			fmt.Println("no genre matches")
			return nil
		}

		for _, match := range matches {
			fmt.Printf("%.2f  %-14s %s\n", match.Score, match.Genre.Name, strings.Join(match.Genre.Characteristics, ", "))
		}

		if mapShowCite || mapLogUsage {
			var urls []string
			for _, match := range matches {
				if match.Genre.SourceURL != model.EmbeddedSourceURL {
					urls = append(urls, match.Genre.SourceURL)
				}
			}

			var opts []attribution.Option
			if mapLogUsage {
				s, err := openUsageStore(cmd.Context())
				if err != nil {
					return err
				}
				defer s.Close() //nolint:errcheck
				opts = append(opts, attribution.WithUsageStore(s))
			}

			am := attribution.NewManager(m, opts...)
			ac := am.BuildContext(cmd.Context(), matches, urls)
			if mapShowCite && ac.AttributionText != "" {
				fmt.Fprintln(os.Stdout)
				fmt.Fprintln(os.Stdout, ac.AttributionText)
			}
		}

		return nil
	},
}
