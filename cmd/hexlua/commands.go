package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/hexlua/internal/config"
	"github.com/dshills/hexlua/internal/indexer"
	"github.com/dshills/hexlua/internal/luagen"
	"github.com/dshills/hexlua/internal/mcp"
	"github.com/dshills/hexlua/internal/registry"
	"github.com/dshills/hexlua/internal/searcher"
	"github.com/dshills/hexlua/internal/storage"
	"github.com/dshills/hexlua/internal/typeexpr"
)

// ErrNotIndexed is returned by search when the registry has no index yet
var ErrNotIndexed = errors.New("registry not indexed")

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.logger.Info("starting MCP server", "version", version, "driver", storage.DriverName)

			server, err := mcp.NewServer(a.cfg, a.logger)
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}

			ctx := cmd.Context()
			errChan := make(chan error, 1)
			go func() {
				errChan <- server.Serve(ctx)
			}()

			select {
			case <-ctx.Done():
				a.logger.Info("shutting down")
				return nil
			case err := <-errChan:
				return err
			}
		},
	}
}

func newIndexCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "index [registry.json]",
		Short: "Index a registry for search",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.registryPath(args)
			if err != nil {
				return err
			}

			store, err := a.openStorage()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			idx := indexer.New(store, nil, a.logger)
			stats, err := idx.IndexRegistry(cmd.Context(), path, &indexer.Config{
				Workers:   a.cfg.Workers,
				BatchSize: a.cfg.BatchSize,
				Force:     force,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if stats.PatternsIndexed == 0 && stats.PatternsSkipped > 0 {
				fmt.Fprintf(out, "%s unchanged (%d patterns)\n", path, stats.PatternsSkipped)
			} else {
				fmt.Fprintf(out, "indexed %d patterns, %d operators in %s\n",
					stats.PatternsIndexed, stats.OperatorsIndexed, stats.Duration.Round(time.Millisecond))
			}
			if stats.PatternsRemoved > 0 {
				fmt.Fprintf(out, "removed %d stale patterns\n", stats.PatternsRemoved)
			}
			for _, msg := range stats.ErrorMessages {
				fmt.Fprintf(out, "skipped invalid pattern %s\n", msg)
			}
			if len(stats.UnresolvedTypes) > 0 {
				fmt.Fprintf(out, "unresolved types: %s\n", strings.Join(stats.UnresolvedTypes, ", "))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "re-index even when the registry is unchanged")
	return cmd
}

func newSearchCmd(a *app) *cobra.Command {
	var (
		limit int
		modID string
	)
	cmd := &cobra.Command{
		Use:   "search <query>...",
		Short: "Search indexed patterns",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.registryPath(nil)
			if err != nil {
				return err
			}

			store, err := a.openStorage()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ctx := cmd.Context()
			reg, err := store.GetRegistry(ctx, path)
			if errors.Is(err, storage.ErrNotFound) || (err == nil && reg.LastIndexedAt.IsZero()) {
				return fmt.Errorf("%w: %s (run hexlua index first)", ErrNotIndexed, path)
			}
			if err != nil {
				return err
			}

			req := searcher.SearchRequest{
				Query:      strings.Join(args, " "),
				Limit:      limit,
				RegistryID: reg.ID,
			}
			if modID != "" {
				req.Filters = &storage.SearchFilters{ModIDs: []string{modID}}
			}

			resp, err := searcher.NewSearcher(store, 0).Search(ctx, req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(resp.Results) == 0 {
				fmt.Fprintln(out, "no matches")
				return nil
			}
			for _, r := range resp.Results {
				fmt.Fprintf(out, "%2d. %-32s %s (%.2f)\n", r.Rank, r.PatternID, r.Pattern.Name, r.RelevanceScore)
				if r.Signature != nil {
					fmt.Fprintf(out, "    fun(%s)", strings.Join(r.Signature.Params, ", "))
					if len(r.Signature.Returns) > 0 {
						fmt.Fprintf(out, ": %s", strings.Join(r.Signature.Returns, ", "))
					}
					fmt.Fprintln(out)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", searcher.DefaultLimit, "maximum number of results")
	cmd.Flags().StringVar(&modID, "mod", "", "only patterns with an operator from this mod")
	return cmd
}

func newResolveCmd(a *app) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "resolve <expression>...",
		Short: "Resolve informal type descriptions into LuaLS types",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver := typeexpr.New(nil, typeexpr.NewTracker(a.logger))
			out := cmd.OutOrStdout()
			for _, expr := range args {
				if verbose {
					fmt.Fprintf(out, "%s => %s\n", expr, resolver.Resolve(expr))
					continue
				}
				fmt.Fprintln(out, resolver.Resolve(expr))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print each input next to its type")
	return cmd
}

func newGenerateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [registry.json]",
		Short: "Generate LuaLS definitions for a registry",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.registryPath(args)
			if err != nil {
				return err
			}

			reg, err := registry.Load(path)
			if err != nil {
				return err
			}

			w, closeFn, err := createOutput(cmd, a.cfg.Output)
			if err != nil {
				return err
			}

			resolver := typeexpr.New(nil, typeexpr.NewTracker(a.logger))
			stats, err := luagen.NewGenerator(resolver, a.logger).
				WithNamespace(a.cfg.Namespace).
				Generate(w, reg)
			if cerr := closeFn(); err == nil && cerr != nil {
				err = fmt.Errorf("failed to close output: %w", cerr)
			}
			if err != nil {
				return err
			}

			if a.cfg.Output != "" && a.cfg.Output != "-" {
				a.logger.Info("wrote definitions", "file", a.cfg.Output, "patterns", stats.Patterns)
			}
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", `output file, "-" for stdout (default hex.lua)`)
	cmd.Flags().String("namespace", "", "global table for generated functions (default Hex)")
	// Bound here so the flags only exist on generate
	_ = a.v.BindPFlag(config.KeyOutput, cmd.Flags().Lookup("output"))
	_ = a.v.BindPFlag(config.KeyNamespace, cmd.Flags().Lookup("namespace"))
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// Skips config loading
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "hexlua %s\n", version)
			fmt.Fprintf(out, "Build Time: %s\n", buildTime)
			fmt.Fprintf(out, "Build Mode: %s\n", storage.BuildMode)
			fmt.Fprintf(out, "SQLite Driver: %s\n", storage.DriverName)
			fmt.Fprintf(out, "Schema Version: %s\n", storage.CurrentSchemaVersion)
		},
	}
}
