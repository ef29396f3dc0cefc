package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sourcesScope string

func init() {
	sourcesCmd.Flags().StringVar(&sourcesScope, "scope", "all", "genres, meta_tags, techniques, or all")
	rootCmd.AddCommand(sourcesCmd)
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the live source URLs backing the current snapshot",
	RunE: func(cmd *cobra.Command, _ []string) error {
		m, err := initManager(cmd.Context())
		if err != nil {
			return err
		}
		defer m.Cleanup() //nolint:errcheck

		urls, err := m.SourceURLs(sourcesScope)
		if err != nil {
			return err
		}

		if len(urls) == 0 {
			fmt.Println("no live sources (fallback data in use)")
			return nil
		}
		for _, u := range urls {
			fmt.Println(u)
		}
		return nil
	},
}
