package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"parasight/internal/ingest"
)

var ingestNote string

var ingestCmd = &cobra.Command{
	Use:   "ingest [urls...]",
	Short: "Ingest URLs given as arguments or read from stdin",
	Long: "Ingests each URL in order and prints one JSON result per line. " +
		"With no arguments the URL list is read from stdin, split on whitespace and commas.",
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		if len(args) == 0 {
			in, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			text = string(in)
		}
		urls := ingest.ParseURLList(text)
		if len(urls) == 0 {
			return fmt.Errorf("no http(s) URLs given")
		}

		a, err := newApp(cfg, log)
		if err != nil {
			return err
		}
		defer a.Close(log)

		failed := 0
		enc := json.NewEncoder(cmd.OutOrStdout())
		for _, res := range a.ingester.ProcessBatch(cmd.Context(), urls, ingestNote) {
			if !res.Success {
				failed++
			}
			if err := enc.Encode(res); err != nil {
				return err
			}
		}
		if failed > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d URLs failed\n", failed, len(urls))
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestNote, "note", "", "source note stored with every link")
}
