package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"weavoor/internal/chromemdb"
	"weavoor/internal/export"
	"weavoor/internal/helper"
	"weavoor/internal/server"
	"weavoor/internal/weave"
)

// --- weave ---

func newWeaveCmd(c *cli) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "weave <url>",
		Short: "Summarize a URL and link it to earlier weaves",
		Long: `Fetch the transcript of a video or podcast, summarize it, store the summary
and connect it to the closest earlier summaries.

Writes <id>.md and graph.html to the output directory.

Examples:
  weavoor weave https://www.youtube.com/watch?v=dQw4w9WgXcQ
  weavoor weave https://youtu.be/dQw4w9WgXcQ --out ~/vault/weaves`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, c.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.weaver.Weave(ctx, args[0])
			if err != nil {
				msg := weave.Describe(err)
				if msg.Hint != "" {
					fmt.Fprintln(cmd.ErrOrStderr(), msg.Hint)
				}
				return errors.New(msg.Text)
			}

			if outDir == "" {
				outDir = c.cfg.Weave.OutputDir
			}
			notePath, graphPath, err := export.WriteBundle(outDir, export.Bundle{
				MediaID: res.Item.ID,
				Note:    res.Note,
				Graph:   res.Graph,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Summary\n\n%s\n\n", res.Item.SummaryText)
			for _, n := range res.Neighbors {
				if n.Distance < c.cfg.Weave.SimilarityThreshold {
					fmt.Fprintf(out, "  %-14s %.3f  %s\n", n.ID, n.Distance, n.URL())
				}
			}
			fmt.Fprintln(out, res.Message())
			fmt.Fprintf(out, "Note:  %s\nGraph: %s\n", notePath, graphPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "", "directory for the note and graph (default weave.output_dir)")
	return cmd
}

// --- search ---

func newSearchCmd(c *cli) *cobra.Command {
	var (
		k      int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "List stored summaries closest to the given text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, c.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			found, err := a.weaver.Search(ctx, args[0], k)
			if err != nil {
				return err
			}

			if asJSON {
				helper.PrettyPrint(found)
				return nil
			}

			out := cmd.OutOrStdout()
			if len(found) == 0 {
				fmt.Fprintln(out, "No matches.")
				return nil
			}
			for _, n := range found {
				fmt.Fprintf(out, "%-14s %.3f  %s\n", n.ID, n.Distance, n.URL())
				fmt.Fprintf(out, "  %s\n", helper.Preview(helper.FlattenNewlines(n.Document), 100))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&k, "limit", "k", 0, "number of results (default weave.neighbor_limit)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	return cmd
}

// --- serve ---

func newServeCmd(c *cli) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web front end",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, c.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = c.cfg.Server.Addr
			}
			return server.ListenAndServe(ctx, addr, server.NewHandler(a.weaver))
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr)")
	return cmd
}

// --- config ---

func newConfigCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := yaml.Marshal(c.cfg.Redacted())
			if err != nil {
				return fmt.Errorf("encoding config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

// --- index ---

func newIndexCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Inspect and back up the similarity index",
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Print the number of stored summaries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := openIndex(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			defer idx.Close()

			n, err := idx.Count(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s index: %d entries\n", c.cfg.Index.Backend, n)
			return nil
		},
	}

	var key string
	backup := func(use, short string, run func(m *chromemdb.VectorDBManager, path string) error) *cobra.Command {
		sub := &cobra.Command{
			Use:   use + " <file>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				idx, err := openIndex(cmd.Context(), c.cfg)
				if err != nil {
					return err
				}
				defer idx.Close()

				m, ok := idx.(*chromemdb.VectorDBManager)
				if !ok {
					return fmt.Errorf("index %s is only supported for the chromem backend", use)
				}
				if err := run(m, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", use, args[0])
				return nil
			},
		}
		sub.Flags().StringVar(&key, "key", os.Getenv("WEAVOOR_BACKUP_KEY"), "32 byte encryption key")
		return sub
	}

	cmd.AddCommand(
		stats,
		backup("export", "Write the index to a backup file", func(m *chromemdb.VectorDBManager, path string) error {
			return m.Export(path, key)
		}),
		backup("import", "Replace the index with a backup file", func(m *chromemdb.VectorDBManager, path string) error {
			return m.Import(path, key)
		}),
	)
	return cmd
}
