package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var listAsJSON bool

func init() {
	for _, c := range []*cobra.Command{genresCmd, metatagsCmd, techniquesCmd} {
		c.Flags().BoolVar(&listAsJSON, "json", false, "print records as JSON")
		rootCmd.AddCommand(c)
	}
}

var genresCmd = &cobra.Command{
	Use:   "genres",
	Short: "List current genre records",
	RunE: func(cmd *cobra.Command, _ []string) error {
		m, err := initManager(cmd.Context())
		if err != nil {
			return err
		}
		defer m.Cleanup() //nolint:errcheck

		genres, err := m.Genres()
		if err != nil {
			return err
		}

		if listAsJSON {
			return printJSON(os.Stdout, genres)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tCHARACTERISTICS\tSOURCE")
		for _, g := range genres {
			fmt.Fprintf(w, "%s\t%s\t%s\n", g.Name, strings.Join(g.Characteristics, ", "), g.SourceURL)
		}
		return w.Flush()
	},
}

var metatagsCmd = &cobra.Command{
	Use:   "metatags",
	Short: "List current meta-tag records",
	RunE: func(cmd *cobra.Command, _ []string) error {
		m, err := initManager(cmd.Context())
		if err != nil {
			return err
		}
		defer m.Cleanup() //nolint:errcheck

		tags, err := m.MetaTags()
		if err != nil {
			return err
		}

		if listAsJSON {
			return printJSON(os.Stdout, tags)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TAG\tCATEGORY\tDESCRIPTION")
		for _, t := range tags {
			fmt.Fprintf(w, "%s\t%s\t%s\n", t.Tag, t.Category, t.Description)
		}
		return w.Flush()
	},
}

var techniquesCmd = &cobra.Command{
	Use:   "techniques",
	Short: "List current production-technique records",
	RunE: func(cmd *cobra.Command, _ []string) error {
		m, err := initManager(cmd.Context())
		if err != nil {
			return err
		}
		defer m.Cleanup() //nolint:errcheck

		techniques, err := m.Techniques()
		if err != nil {
			return err
		}

		if listAsJSON {
			return printJSON(os.Stdout, techniques)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TITLE\tEXAMPLES\tSOURCE")
		for _, t := range techniques {
			fmt.Fprintf(w, "%s\t%d\t%s\n", t.Title, len(t.Examples), t.SourceURL)
		}
		return w.Flush()
	},
}
