package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stanza-labs/refdata-cli/internal/store"
)

var usageLimit int

func init() {
	usageCmd.Flags().IntVar(&usageLimit, "limit", 20, "maximum number of entries to show")
	rootCmd.AddCommand(usageCmd)
}

// openUsageStore opens the configured usage-log backend and applies
// migrations.
func openUsageStore(ctx context.Context) (store.Store, error) {
	s, err := store.NewStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "List recent usage-log entries (which sources backed which output)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := openUsageStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close() //nolint:errcheck

		records, err := s.ListUsage(cmd.Context(), usageLimit)
		if err != nil {
			return err
		}

		if len(records) == 0 {
			fmt.Println("usage log is empty")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CREATED\tSOURCES\tCONTENT")
		for _, rec := range records {
			content := rec.Content
			if len(content) > 60 {
				content = content[:60] + "..."
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n",
				rec.CreatedAt.Format("2006-01-02 15:04"),
				strings.Join(rec.SourceURLs, ", "),
				content,
			)
		}
		return w.Flush()
	},
}
