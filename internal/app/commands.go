package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/codescribe/internal/config"
	"github.com/dshills/codescribe/internal/console"
	"github.com/dshills/codescribe/internal/embedder"
	"github.com/dshills/codescribe/internal/generator"
	"github.com/dshills/codescribe/internal/mcp"
	"github.com/dshills/codescribe/internal/searcher"
	"github.com/dshills/codescribe/internal/service"
	"github.com/dshills/codescribe/internal/storage"
)

// CheckText is sent to both backends by the check command
const CheckText = "Reply with the single word: ready"

// ErrCheckFailed is returned when a backend check fails
var ErrCheckFailed = errors.New("backend check failed")

// NewRootCommand builds the command tree
func NewRootCommand(version, build, programName string, params RunParams) *cobra.Command {
	root := &cobra.Command{
		Use:           programName,
		Short:         "Generate documentation for a source tree",
		Long:          "codescribe extracts the structure of every source file under a root, asks a language model to describe each file and the project as a whole, and writes JSON, Markdown and HTML reports. Summaries are stored in an embedding index for semantic search.",
		Version:       fmt.Sprintf("%s (build %s, sqlite %s/%s)", version, build, storage.BuildMode, storage.DriverName),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(`{{.Version}}
`)
	root.SetOut(params.Stdout)
	root.SetErr(params.Stderr)
	RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		newRunCommand(params),
		newSearchCommand(params),
		newStatusCommand(params),
		newIndexReportsCommand(params),
		newServeCommand(params, version),
		newCheckCommand(params),
		newConfigCommand(params),
	)
	return root
}

func newRunCommand(params RunParams) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [root]",
		Short: "Document the source tree under root (default: current directory)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, logger, err := params.loadSettings(cmd.Flags())
			if err != nil {
				return err
			}
			config.LogWithLogger(settings, logger)

			noIndex, _ := cmd.Flags().GetBool("no-index")
			noIndex = noIndex || !settings.Pipeline.IndexSummaries

			s, err := params.build(cmd.Context(), settings, logger, needs{generation: true, index: !noIndex})
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			root := "."
			if len(args) == 1 {
				root = args[0]
			}

			res, err := s.service.Generate(cmd.Context(), service.GenerateRequest{
				Root:      root,
				OutputDir: settings.Output.Dir,
				NoIndex:   noIndex,
			})
			if err != nil {
				return err
			}

			console.New(params.Stdout, nil).RunSummary(res.Result, res.Writes)
			return nil
		},
	}
	RegisterRunFlags(cmd.Flags())
	return cmd
}

func newSearchCommand(params RunParams) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed file summaries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, logger, err := params.loadSettings(cmd.Flags())
			if err != nil {
				return err
			}

			k := settings.Search.K
			if cmd.Flags().Changed("k") {
				k, _ = cmd.Flags().GetInt("k")
			}
			modeName := settings.Search.Mode
			if cmd.Flags().Changed("mode") {
				modeName, _ = cmd.Flags().GetString("mode")
			}
			mode, err := searcher.ParseMode(modeName)
			if err != nil {
				return err
			}

			s, err := params.build(cmd.Context(), settings, logger, needs{index: true})
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			query := strings.Join(args, " ")
			resp, err := s.service.Search(cmd.Context(), searcher.Request{Query: query, K: k, Mode: mode})
			if err != nil {
				return err
			}

			console.New(params.Stdout, nil).SearchResults(query, resp)
			return nil
		},
	}
	RegisterSearchFlags(cmd.Flags())
	return cmd
}

func newStatusCommand(params RunParams) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show embedding index statistics and recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, logger, err := params.loadSettings(cmd.Flags())
			if err != nil {
				return err
			}

			s, err := params.build(cmd.Context(), settings, logger, needs{index: true})
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			st, err := s.service.Status(cmd.Context(), service.DefaultRecentRuns)
			if err != nil {
				return err
			}

			console.New(params.Stdout, nil).Status(st.Path, st.Stats, st.Runs)
			return nil
		},
	}
}

func newIndexReportsCommand(params RunParams) *cobra.Command {
	return &cobra.Command{
		Use:   "index-reports <dir>",
		Short: "Add every report file in dir to the embedding index, keyed by file name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, logger, err := params.loadSettings(cmd.Flags())
			if err != nil {
				return err
			}

			s, err := params.build(cmd.Context(), settings, logger, needs{index: true})
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			res, err := s.service.IndexReports(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			console.New(params.Stdout, nil).Ingest(res)
			return nil
		},
	}
}

func newServeCommand(params RunParams, version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the documentation tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, logger, err := params.loadSettings(cmd.Flags())
			if err != nil {
				return err
			}
			logger.Info("Starting codescribe MCP server", "version", version)
			config.LogWithLogger(settings, logger)

			s, err := params.build(cmd.Context(), settings, logger, needs{generation: true, index: true})
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			srv, err := mcp.NewServer(s.service, mcp.Options{
				Version:   version,
				OutputDir: settings.Output.Dir,
				Suffixes:  settings.Pipeline.Suffixes,
				Logger:    logger,
			})
			if err != nil {
				return err
			}
			return srv.Serve(cmd.Context(), params.Stdin, params.Stdout)
		},
	}
	RegisterServeFlags(cmd.Flags())
	return cmd
}

func newCheckCommand(params RunParams) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Send one generation and one embedding request to verify the backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, logger, err := params.loadSettings(cmd.Flags())
			if err != nil {
				return err
			}

			s, err := params.build(cmd.Context(), settings, logger, needs{generation: true, embedding: true})
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			out := console.New(params.Stdout, nil)
			failed := false

			resp, err := s.gen.Generate(cmd.Context(), generator.Prompt("", CheckText))
			detail := ""
			if err == nil {
				detail = fmt.Sprintf("%d characters", len(resp.Content))
			} else {
				failed = true
			}
			out.Check("generation", s.gen.Provider()+"/"+s.gen.Model(), detail, err)

			emb, err := s.emb.Embed(cmd.Context(), embedder.EmbeddingRequest{Text: CheckText})
			detail = ""
			if err == nil {
				detail = fmt.Sprintf("dimension %d", emb.Dimension)
			} else {
				failed = true
			}
			out.Check("embedding", s.emb.Provider()+"/"+s.emb.Model(), detail, err)

			if failed {
				return ErrCheckFailed
			}
			return nil
		},
	}
}

func newConfigCommand(params RunParams) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration (default: ./codescribe.yaml)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultConfigName + ".yaml"
			if len(args) == 1 {
				path = args[0]
			}
			force, _ := cmd.Flags().GetBool("force")
			if err := config.WriteDefault(path, force); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(params.Stdout, "wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolP("force", "f", false, "Overwrite an existing file")

	cmd.AddCommand(initCmd)
	return cmd
}
