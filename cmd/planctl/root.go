package main

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/local/lessonplanner/internal/acquire"
	"github.com/local/lessonplanner/internal/ai"
	"github.com/local/lessonplanner/internal/config"
	logpkg "github.com/local/lessonplanner/internal/logger"
)

// newClient builds the completion client; replaced in tests.
var newClient = func(cfg config.Config) (ai.Client, error) {
	return ai.New(cfg.Providers, &http.Client{Timeout: cfg.Generation.RequestTimeout + 5*time.Second})
}

type cliState struct {
	cfg      config.Config
	envFile  string
	logLevel string
	engine   string
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	st := &cliState{}
	root := &cobra.Command{
		Use:           "planctl",
		Short:         "Extract course plans from PDFs and generate lesson plans",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			st.cfg = config.Load(st.envFile)
			if st.engine != "" {
				st.cfg.Providers.Engine = strings.ToLower(st.engine)
			}
			opts := logpkg.OptionsFromConfig(st.cfg)
			opts.Level = st.logLevel
			opts.File = ""
			opts.Pretty = true
			opts.Console = errOut
			return logpkg.Init(opts)
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVar(&st.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	root.PersistentFlags().StringVar(&st.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&st.engine, "engine", "", "completion engine override (gemini, openai, anthropic)")

	root.AddCommand(newExtractCmd(st), newGenerateCmd(st))
	return root
}

func (st *cliState) extractor() *acquire.Extractor { return acquire.NewFromConfig(st.cfg.Acquisition) }

func (st *cliState) source() *acquire.Source { return acquire.NewSource(st.cfg.Acquisition, nil) }
