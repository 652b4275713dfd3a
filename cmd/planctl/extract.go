package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/local/lessonplanner/internal/acquire"
)

func newExtractCmd(st *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "extract <path|file://|http(s)://|s3://bucket/key>",
		Short: "Print the text of a PDF as it would be sent for generation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := extractText(cmd.Context(), st, args[0], cmd)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}

// extractText fetches and extracts ref. Soft extraction warnings go to
// stderr and the text is still returned.
func extractText(ctx context.Context, st *cliState, ref string, cmd *cobra.Command) (string, error) {
	f, err := st.source().Fetch(ctx, ref)
	if err != nil {
		return "", err
	}
	res, err := st.extractor().Extract(ctx, f, nil)
	if acquire.IsSoftExtraction(err) {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning:", err)
		return res.Text, nil
	}
	if err != nil {
		return "", err
	}
	if res.Truncated {
		fmt.Fprintf(cmd.ErrOrStderr(), "note: only the first %d of %d pages were read\n", res.Pages, res.TotalPages)
	}
	return res.Text, nil
}
