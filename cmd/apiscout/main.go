package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourorg/apiscout/internal/chooser"
	"github.com/yourorg/apiscout/internal/config"
	"github.com/yourorg/apiscout/internal/matcher"
	"github.com/yourorg/apiscout/internal/openapi"
	"github.com/yourorg/apiscout/internal/resolver"
	"github.com/yourorg/apiscout/internal/server"
	"github.com/yourorg/apiscout/internal/store"
	"github.com/yourorg/apiscout/pkg/types"
)

const defaultConfigContent = `llm:
  base_url: "http://llm:11434"
  model: "mistral"
  timeout_seconds: 60

spec:
  path: "openapi.json"

match:
  top_k: 10

server:
  host: "127.0.0.1"
  port: 8000

store:
  path: ""

log:
  level: "info"
`

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:   "apiscout",
		Short: "Find the OpenAPI operation that answers a question",
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path")

	root.AddCommand(newInitCmd())
	root.AddCommand(newImportCmd(&cfgPath))
	root.AddCommand(newListCmd(&cfgPath))
	root.AddCommand(newShowCmd(&cfgPath))
	root.AddCommand(newDeleteCmd(&cfgPath))
	root.AddCommand(newCandidatesCmd(&cfgPath))
	root.AddCommand(newAskCmd(&cfgPath))
	root.AddCommand(newResolveCmd(&cfgPath))
	root.AddCommand(newServeCmd(&cfgPath))

	return root
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize ~/.apiscout directory and default config",
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := os.UserHomeDir()
			if err != nil {
				return err
			}
			baseDir := filepath.Join(home, ".apiscout")
			if err := os.MkdirAll(baseDir, 0o755); err != nil {
				return err
			}

			cfgFile := filepath.Join(baseDir, "config.yaml")
			if _, err := os.Stat(cfgFile); errors.Is(err, os.ErrNotExist) {
				if err := os.WriteFile(cfgFile, []byte(defaultConfigContent), 0o644); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "created", cfgFile)
			} else if err == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "exists", cfgFile)
			} else {
				return err
			}

			dbPath := filepath.Join(baseDir, "apiscout.db")
			s, err := store.NewSQLiteStore(dbPath)
			if err != nil {
				return err
			}
			defer s.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "database ready", dbPath)
			return nil
		},
	}
}

func newImportCmd(cfgPath *string) *cobra.Command {
	var file, name string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import an OpenAPI document into the registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			doc, err := openapi.Parse(data)
			if err != nil {
				return err
			}
			if name == "" {
				name = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
			}
			st, err := store.NewSQLiteStore(cfg.Store.Path)
			if err != nil {
				return err
			}
			defer st.Close()
			rec := &types.SpecDocument{
				Name:       name,
				Title:      doc.Info.Title,
				Version:    doc.Info.Version,
				Operations: doc.OperationCount(),
				Raw:        string(data),
			}
			if err := st.SaveSpec(rec); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %s (%d operations)\n", name, rec.Operations)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "OpenAPI JSON file path")
	cmd.Flags().StringVar(&name, "name", "", "registry name (defaults to the file name)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newListCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered OpenAPI documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			st, err := store.NewSQLiteStore(cfg.Store.Path)
			if err != nil {
				return err
			}
			defer st.Close()
			specs, err := st.ListSpecs()
			if err != nil {
				return err
			}
			if len(specs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no documents imported")
				return nil
			}
			for _, s := range specs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s %s\t%d operations\n", s.Name, s.Title, s.Version, s.Operations)
			}
			return nil
		},
	}
}

func newShowCmd(cfgPath *string) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show one registered document",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			st, err := store.NewSQLiteStore(cfg.Store.Path)
			if err != nil {
				return err
			}
			defer st.Close()
			rec, err := st.GetSpec(name)
			if err != nil {
				return err
			}
			return printJSON(cmd, rec)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "registry name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newDeleteCmd(cfgPath *string) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a registered document",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			st, err := store.NewSQLiteStore(cfg.Store.Path)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.DeleteSpec(name); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted", name)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "registry name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newCandidatesCmd(cfgPath *string) *cobra.Command {
	var spec string
	var topK int
	cmd := &cobra.Command{
		Use:   "candidates <question>",
		Short: "Rank operations against a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			doc, err := loadDocument(cfg, spec)
			if err != nil {
				return err
			}
			if topK <= 0 {
				topK = cfg.Match.TopK
			}
			question := strings.Join(args, " ")
			cands := matcher.FindCandidates(doc, question, topK)
			return printJSON(cmd, map[string]any{"candidates": cands})
		},
	}
	cmd.Flags().StringVar(&spec, "spec", "", "OpenAPI file path or registry name")
	cmd.Flags().IntVar(&topK, "top-k", 0, "number of candidates to return")
	return cmd
}

func newAskCmd(cfgPath *string) *cobra.Command {
	var spec string
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Pick the operation that best answers a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			doc, err := loadDocument(cfg, spec)
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Log.Level)
			question := strings.Join(args, " ")
			cands := matcher.FindCandidates(doc, question, cfg.Match.TopK)
			choice, outcome := newChooser(cfg, logger).Choose(cmd.Context(), question, cands)
			if choice.None {
				return printJSON(cmd, map[string]string{"error": "No matching endpoint found"})
			}
			summary, err := resolver.ResolveSummary(doc, choice.Route, choice.Method)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]any{
				"route":       summary.Route,
				"method":      summary.Method,
				"summary":     summary.Summary,
				"operationId": summary.OperationID,
				"schema_refs": summary.SchemaRefs,
				"outcome":     outcome.String(),
			})
		},
	}
	cmd.Flags().StringVar(&spec, "spec", "", "OpenAPI file path or registry name")
	return cmd
}

func newResolveCmd(cfgPath *string) *cobra.Command {
	var spec, route, method string
	cmd := &cobra.Command{
		Use:       "resolve <summary|schemas|sample|curl>",
		Short:     "Resolve one operation into schemas, a sample or a curl command",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"summary", "schemas", "sample", "curl"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			doc, err := loadDocument(cfg, spec)
			if err != nil {
				return err
			}

			var result any
			switch args[0] {
			case "summary":
				result, err = resolver.ResolveSummary(doc, route, method)
			case "schemas":
				result, err = resolver.ResolveSchemas(doc, route, method)
			case "sample":
				result, err = resolver.ResolveSample(doc, route, method)
			case "curl":
				result, err = resolver.ResolveCurl(doc, route, method)
			default:
				return fmt.Errorf("unknown resolve kind %q", args[0])
			}
			if errors.Is(err, openapi.ErrOperationNotFound) {
				return printJSON(cmd, map[string]string{"error": "operation not found"})
			}
			if errors.Is(err, resolver.ErrNoRequestBody) {
				return printJSON(cmd, map[string]string{"error": "no request body schema found"})
			}
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		},
	}
	cmd.Flags().StringVar(&spec, "spec", "", "OpenAPI file path or registry name")
	cmd.Flags().StringVar(&route, "route", "", "operation route")
	cmd.Flags().StringVar(&method, "method", "", "operation method")
	_ = cmd.MarkFlagRequired("route")
	_ = cmd.MarkFlagRequired("method")
	return cmd
}

func newServeCmd(cfgPath *string) *cobra.Command {
	var spec, host string
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if host != "" {
				cfg.Server.Host = host
			}
			if port != 0 {
				cfg.Server.Port = port
			}
			logger := newLogger(cfg.Log.Level)
			doc, err := loadDocument(cfg, spec)
			if err != nil {
				return err
			}
			logger.Info("document loaded", "operations", doc.OperationCount())

			srv, err := server.New(cfg, doc, newChooser(cfg, logger), logger)
			if err != nil {
				return err
			}
			addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
			logger.Info("listening", "addr", addr)
			return srv.ListenAndServe(addr)
		},
	}
	cmd.Flags().StringVar(&spec, "spec", "", "OpenAPI file path or registry name")
	cmd.Flags().StringVar(&host, "host", "", "server host")
	cmd.Flags().IntVar(&port, "port", 0, "server port")
	return cmd
}

// loadDocument reads the document from a file path, or from the registry when
// the argument names no file on disk. An empty argument uses spec.path.
func loadDocument(cfg *config.Config, spec string) (*openapi.Document, error) {
	if spec == "" {
		return openapi.Load(cfg.Spec.Path)
	}
	if _, err := os.Stat(spec); err == nil {
		return openapi.Load(spec)
	}
	st, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	defer st.Close()
	rec, err := st.GetSpec(spec)
	if err != nil {
		return nil, err
	}
	doc, err := openapi.Parse([]byte(rec.Raw))
	if err != nil {
		return nil, fmt.Errorf("parse stored spec %s: %w", spec, err)
	}
	return doc, nil
}

func newChooser(cfg *config.Config, logger *slog.Logger) *chooser.Chooser {
	return &chooser.Chooser{
		Client: &chooser.Client{
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
			Timeout: time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
			Logger:  logger,
		},
		Logger: logger,
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
