package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/local/lessonplanner/internal/planner"
	"github.com/local/lessonplanner/internal/session"
)

func newGenerateCmd(st *cliState) *cobra.Command {
	var (
		text     string
		file     string
		demoFlag bool
	)
	cmd := &cobra.Command{
		Use:   "generate [ref]",
		Short: "Generate a lesson plan and print it as JSON",
		Long: `Generate a lesson plan from pasted text (--text), a document (--file or a
positional reference) and print the plan as JSON on stdout.

When the completion service has no usable credential the command fails with
guidance; pass --demo-on-config-error to print the demonstration plan instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			errOut := cmd.ErrOrStderr()

			if file == "" && len(args) == 1 {
				file = args[0]
			}
			if text != "" && file != "" {
				return errors.New("use either --text or a document, not both")
			}

			s := session.New()
			if file != "" {
				if err := s.BeginAcquire(file); err != nil {
					return err
				}
				extracted, err := extractText(ctx, st, file, cmd)
				if err != nil {
					_ = s.FailAcquire(err)
					return err
				}
				if err := s.FinishAcquire(extracted, nil); err != nil {
					return err
				}
			} else if err := s.SetText(text); err != nil {
				return err
			}

			input, err := s.BeginRequest(st.cfg.Generation.MinInputChars)
			if err != nil {
				return err
			}

			client, err := newClient(st.cfg)
			if err != nil {
				return err
			}
			cd, genErr := planner.New(st.cfg.Generation, client).Generate(ctx, input)
			if genErr != nil {
				if err := s.Fail(genErr); err != nil {
					return err
				}
				if !s.DemoOffered {
					return genErr
				}
				fmt.Fprintln(errOut, "error:", genErr)
				if !demoFlag {
					fmt.Fprintln(errOut, "hint: configure the API key, or rerun with --demo-on-config-error to see a demonstration plan")
					return genErr
				}
				if err := s.AcceptDemo(); err != nil {
					return err
				}
				fmt.Fprintln(errOut, `{"demonstration": true}`)
			} else if err := s.Succeed(cd); err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(s.Course)
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "course plan text")
	cmd.Flags().StringVar(&file, "file", "", "PDF path or URL (file://, http(s)://, s3://)")
	cmd.Flags().BoolVar(&demoFlag, "demo-on-config-error", false, "print the demonstration plan when the AI service is not configured")
	return cmd
}
