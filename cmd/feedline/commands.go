package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pders01/feedline/internal/config"
	"github.com/pders01/feedline/internal/debuglog"
	"github.com/pders01/feedline/internal/feed"
	"github.com/pders01/feedline/internal/rag"
	"github.com/pders01/feedline/internal/search"
	"github.com/pders01/feedline/internal/server"
	"github.com/pders01/feedline/internal/storage"
)

// defaultQuestion asks the backend for one short diary entry.
const defaultQuestion = "Write today's short diary entry about the weather where you are, in one or two sentences."

// withManager opens the archive, runs fn with a publishing manager and
// closes everything afterwards.
func withManager(flags *globalFlags, fn func(cfg *config.Config, store *storage.Store, m *feed.Manager) error) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	defer debuglog.Close()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	return fn(cfg, store, feed.NewManager(store, cfg))
}

func newPostCmd(flags *globalFlags) *cobra.Command {
	var (
		place       string
		image       string
		prompt      string
		replaceDate bool
	)

	cmd := &cobra.Command{
		Use:   "post <text>",
		Short: "Archive an entry and republish the feed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args, " "))
			if text == "" {
				return errors.New("entry text is empty")
			}

			return withManager(flags, func(_ *config.Config, _ *storage.Store, m *feed.Manager) error {
				item := m.NewEntry(text, place)
				item.Image = image
				item.ImagePrompt = prompt

				f, err := m.Post(item, postOptions(item, replaceDate))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Posted %s (%d entries in feed)\n", item.ID, len(f.Items))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&place, "place", "p", "", "Place shown with the entry (defaults to backend.place)")
	cmd.Flags().StringVar(&image, "image", "", "Image URI for the entry")
	cmd.Flags().StringVar(&prompt, "prompt", "", "Prompt the image was generated from")
	cmd.Flags().BoolVar(&replaceDate, "replace-date", false, "Drop other entries with the same date")

	return cmd
}

// postOptions adds a share index entry when the item carries an image.
func postOptions(item storage.Item, replaceDate bool) feed.PostOptions {
	opts := feed.PostOptions{ReplaceDate: replaceDate}
	if item.Image != "" {
		opts.Share = &storage.ShareEntry{
			Prompt: item.ImagePrompt,
			Date:   item.Date,
			Place:  item.Place,
			Image:  item.Image,
		}
	}
	return opts
}

func newGenerateCmd(flags *globalFlags) *cobra.Command {
	var (
		question    string
		extra       string
		style       string
		liveWeather bool
		debug       bool
		appendOnly  bool
		replaceDate bool
		dryRun      bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Ask the backend for a new entry and publish it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(flags, func(cfg *config.Config, _ *storage.Store, m *feed.Manager) error {
				client := rag.NewClient(cfg)
				if _, err := client.Status(cmd.Context()); err != nil {
					return fmt.Errorf("backend not ready: %w", err)
				}

				resp, err := client.Query(cmd.Context(), rag.QueryRequest{
					Question:       question,
					TopK:           cfg.Backend.TopK,
					ExtraContext:   extra,
					UseLiveWeather: liveWeather,
					OutputStyle:    style,
					MaxChars:       cfg.Backend.MaxChars,
					IncludeDebug:   debug,
				})
				if err != nil {
					return err
				}
				text, err := resp.Tweet()
				if err != nil {
					return err
				}

				item := m.NewEntry(text, "")
				if debug {
					item.Detail = resp.DebugDetail()
				}
				if dryRun {
					fmt.Fprintln(cmd.OutOrStdout(), item.Text)
					return nil
				}

				if appendOnly {
					if err := m.Append(item); err != nil {
						return err
					}
				} else if _, err := m.Post(item, feed.PostOptions{ReplaceDate: replaceDate}); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Generated %s: %s\n", item.ID, item.Text)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&question, "question", "q", defaultQuestion, "Question sent to the backend")
	cmd.Flags().StringVar(&extra, "context", "", "Extra context passed with the question")
	cmd.Flags().StringVar(&style, "style", "tweet_bot", "Backend output style")
	cmd.Flags().BoolVar(&liveWeather, "live-weather", true, "Let the backend fetch live weather as context")
	cmd.Flags().BoolVar(&debug, "include-debug", false, "Ask for retrieval details and store them with the entry")
	cmd.Flags().BoolVar(&appendOnly, "append", false, "Prepend to the feed files without archiving")
	cmd.Flags().BoolVar(&replaceDate, "replace-date", false, "Drop other entries with the same date")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the generated text without publishing")

	return cmd
}

func newStatusCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the backend document store status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			defer debuglog.Close()

			st, err := rag.NewClient(cfg).Status(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Docs dir:   %s\n", st.DocsDir)
			fmt.Fprintf(out, "JSON files: %d\n", st.JSONFiles)
			fmt.Fprintf(out, "Chunks:     %d\n", st.ChunksInStore)
			for _, f := range st.Files {
				fmt.Fprintf(out, "  %s\n", f)
			}
			return nil
		},
	}
}

func newReindexCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the backend document store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			defer debuglog.Close()

			r, err := rag.NewClient(cfg).Reindex(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reindexed %d documents (%d chunks from %d files)\n", r.Documents, r.Chunks, r.Files)
			return nil
		},
	}
}

func newImportCmd(flags *globalFlags) *cobra.Command {
	var (
		publish       bool
		listResolvers bool
	)

	cmd := &cobra.Command{
		Use:   "import <url>...",
		Short: "Archive entries from RSS, Atom or JSON Feed sources",
		Args: func(cmd *cobra.Command, args []string) error {
			if listResolvers {
				return nil
			}
			return cobra.MinimumNArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(flags, func(_ *config.Config, _ *storage.Store, m *feed.Manager) error {
				if listResolvers {
					for _, p := range m.Resolvers() {
						fmt.Fprintf(cmd.OutOrStdout(), "%-10s priority %d\n", p.Name(), p.Priority())
					}
					return nil
				}

				results, importErr := m.Import(cmd.Context(), args)
				for _, r := range results {
					if r.Err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", r.URL, r.Err)
						continue
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %d entries\n", r.URL, r.Items)
				}
				if publish {
					if _, err := m.Publish(); err != nil {
						return err
					}
				}
				return importErr
			})
		},
	}

	cmd.Flags().BoolVar(&publish, "publish", true, "Republish the feed files after importing")
	cmd.Flags().BoolVar(&listResolvers, "list-resolvers", false, "List the source resolvers and exit")

	return cmd
}

func newDeleteCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove an entry from the archive and republish the feed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(flags, func(_ *config.Config, _ *storage.Store, m *feed.Manager) error {
				f, err := m.Delete(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s (%d entries in feed)\n", args[0], len(f.Items))
				return nil
			})
		},
	}
}

func newSearchCmd(flags *globalFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the archive",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(flags, func(cfg *config.Config, store *storage.Store, _ *feed.Manager) error {
				searcher, closeIndex := search.Open(store, cfg.Database.SearchIndex)
				defer closeIndex()

				results, err := searcher.Search(strings.Join(args, " "), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(results) == 0 {
					fmt.Fprintln(out, "No results")
					return nil
				}
				for _, r := range results {
					fmt.Fprintf(out, "%s  %s  %s\n", r.Item.Date, r.Item.Place, r.Item.Text)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of results")

	return cmd
}

func newServeCmd(flags *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the archive as a paged feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(flags, func(cfg *config.Config, store *storage.Store, m *feed.Manager) error {
				if addr == "" {
					addr = cfg.Server.Addr
				}
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()

				srv := server.New(m, store, cfg.Server.PageSize, cfg.Feed.Limit)
				fmt.Fprintf(cmd.OutOrStdout(), "Serving feed on http://%s/feed/index.json\n", addr)
				return srv.ListenAndServe(ctx, addr)
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to server.addr)")

	return cmd
}

func newConfigCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultConfigFile()
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.GenerateDefaultConfig(path); err != nil {
				return fmt.Errorf("failed to generate config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Generated default configuration at: %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			defer debuglog.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "feed.url         = %s\n", cfg.Feed.URL)
			fmt.Fprintf(out, "feed.share_index = %s\n", cfg.Feed.ShareIndexURL)
			fmt.Fprintf(out, "database.path    = %s\n", cfg.Database.Path)
			fmt.Fprintf(out, "backend.api_base = %s\n", cfg.Backend.APIBase)
			fmt.Fprintf(out, "server.addr      = %s\n", cfg.Server.Addr)
			fmt.Fprintf(out, "ui.ad_cadence    = %d\n", cfg.UI.AdCadence)
			fmt.Fprintf(out, "log.level        = %s\n", cfg.Log.Level)
			return nil
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}

func defaultConfigFile() string {
	return filepath.Join(config.ConfigDir(), "config.toml")
}
