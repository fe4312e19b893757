package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"parasight/internal/domain"
)

var dedupCmd = &cobra.Command{
	Use:   "dedup",
	Short: "Remove all but the oldest record for each normalized URL",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg, log)
		if err != nil {
			return err
		}
		defer a.Close(log)

		report, err := a.repo.Dedup(cmd.Context())
		if err != nil {
			return err
		}
		return json.NewEncoder(cmd.OutOrStdout()).Encode(report)
	},
}

var listBucket string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored links, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		var filter domain.Bucket
		if listBucket != "" {
			b, err := domain.ParseBucket(listBucket)
			if err != nil {
				return err
			}
			filter = b
		}

		a, err := newApp(cfg, log)
		if err != nil {
			return err
		}
		defer a.Close(log)

		links, err := a.repo.ListLinks(cmd.Context())
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tBUCKET\tGROUP\tTITLE\tURL")
		for _, l := range links {
			bucket := "-"
			if l.Para != nil {
				bucket = string(l.Para.Bucket)
			}
			if filter != "" && bucket != string(filter) {
				continue
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", l.ID, bucket, orDash(l.Subcategory), l.DisplayName(), l.URL)
		}
		return tw.Flush()
	},
}

func init() {
	listCmd.Flags().StringVar(&listBucket, "bucket", "", "only show links in this bucket")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
