package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"likesync/internal/auth"
	"likesync/internal/config"
	"likesync/internal/domain"
	"likesync/internal/logging"
	"likesync/internal/service"
	"likesync/internal/source/youtube"
	"likesync/internal/storage/sqlite"
)

const tokenEnv = "LIKESYNC_ACCESS_TOKEN"

var (
	dbPath     string
	configPath string
	logLevel   string
)

func main() {
	home, _ := os.UserHomeDir()
	defaultDB := filepath.Join(home, ".likesync", "cache.db")

	rootCmd := &cobra.Command{
		Use:           "likesctl",
		Short:         "Sync and prune your liked videos from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDB, "cache database path")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "optional config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level")

	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(nextCmd())
	rootCmd.AddCommand(drainCmd())
	rootCmd.AddCommand(removeCmd())
	rootCmd.AddCommand(viewCmd())
	rootCmd.AddCommand(signoutCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// env is everything one command needs, bound to the token's identity.
type env struct {
	cache    *sqlite.Cache
	provider *auth.Provider
	sync     *service.SyncService
}

func (e *env) Close() error {
	return e.cache.Close()
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Parse(nil)
	}
	return config.Load(configPath)
}

func setup(ctx context.Context) (*env, error) {
	token := os.Getenv(tokenEnv)
	if token == "" {
		return nil, fmt.Errorf("%s is not set", tokenEnv)
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger := logging.New(os.Stderr, logLevel, logging.FormatTint)
	provider := auth.NewStatic(auth.ConfigFrom(cfg.OAuth), token, logger)

	cred, err := provider.GetToken(ctx)
	if err != nil {
		return nil, err
	}

	cache, err := sqlite.Open(dbPath)
	if err != nil {
		return nil, err
	}

	client := youtube.New(youtube.Config{
		BaseURL:  cfg.API.BaseURL,
		PageSize: cfg.API.PageSize,
		Timeout:  cfg.API.Timeout,
	}, provider, logger)

	return &env{
		cache:    cache,
		provider: provider,
		sync:     service.NewSyncService(client, cache, cred.Identity, logger, cfg.Sync),
	}, nil
}

func withEnv(run func(ctx context.Context, e *env, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()
		return run(cmd.Context(), e, args)
	}
}

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Fetch the first page and replace the local copy",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(ctx context.Context, e *env, _ []string) error {
			result, err := e.sync.SyncFirstPage(ctx)
			if err != nil {
				return err
			}
			if result.Empty {
				fmt.Println("No liked videos.")
				return nil
			}
			printItems(result.Items)
			printProgress(result.Count, result.TotalCount, result.NextCursor)
			return nil
		}),
	}
}

func nextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "next [cursor]",
		Short: "Fetch the next page, resuming from the stored cursor by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: withEnv(func(ctx context.Context, e *env, args []string) error {
			cursor := ""
			if len(args) == 1 {
				cursor = args[0]
			} else {
				snap, err := e.sync.Snapshot(ctx)
				if err != nil {
					return err
				}
				cursor = snap.ResumeCursor
			}
			if cursor == "" {
				return errors.New("nothing to resume, run sync first")
			}

			result, err := e.sync.SyncNextPage(ctx, cursor)
			if err != nil {
				return err
			}
			printItems(result.Items)
			printProgress(len(result.Merged), result.TotalCount, result.NextCursor)
			return nil
		}),
	}
}

func drainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drain",
		Short: "Fetch every page up to the safety limit",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(ctx context.Context, e *env, _ []string) error {
			result, err := e.sync.DrainAll(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Fetched %d of %d videos in %d pages (%.0f%%)\n",
				len(result.Items), result.TotalCount, result.Pages, result.Completeness*100)
			if result.SafetyLimitReached {
				fmt.Println("Stopped at the safety limit; run next to continue.")
			}
			return nil
		}),
	}
}

func removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>...",
		Short: "Remove videos from your likes",
		Args:  cobra.MinimumNArgs(1),
		RunE: withEnv(func(ctx context.Context, e *env, args []string) error {
			if len(args) == 1 {
				snap, err := e.sync.RemoveItem(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Printf("Removed %s, %d remaining\n", args[0], snap.TotalRemoteCount)
				return nil
			}

			report, err := e.sync.RemoveItems(ctx, args)
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d of %d, %d remaining\n", len(report.Succeeded), len(args), report.Remaining)
			for id, reason := range report.Failures {
				fmt.Printf("  failed %s: %s\n", id, reason)
			}
			if len(report.Failures) > 0 {
				return fmt.Errorf("%d removals failed", len(report.Failures))
			}
			return nil
		}),
	}
}

func viewCmd() *cobra.Command {
	var order string

	cmd := &cobra.Command{
		Use:   "view",
		Short: "List the local copy",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(ctx context.Context, e *env, _ []string) error {
			list, err := e.sync.View(ctx, domain.Order(order))
			if err != nil {
				return err
			}
			printItems(list)
			return nil
		}),
	}

	cmd.Flags().StringVar(&order, "order", string(domain.OrderNewest), "newest, oldest, most-viewed or most-liked")
	return cmd
}

func signoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Revoke the token and clear the local copy",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(ctx context.Context, e *env, _ []string) error {
			logger := slog.New(slog.DiscardHandler)
			if err := service.NewSessionService(e.provider, e.sync, logger).SignOut(ctx); err != nil {
				return err
			}
			fmt.Println("Signed out.")
			return nil
		}),
	}
}

func printItems(list []domain.CollectionItem) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tCHANNEL\tVIEWS\tLIKES")
	for _, it := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n", it.ID, truncate(it.Title, 60), it.OwnerName, it.Views, it.Likes)
	}
	w.Flush()
}

func printProgress(have, total int, cursor string) {
	more := ""
	if cursor != "" {
		more = ", more available"
	}
	fmt.Printf("\n%d of %d%s\n", have, total, more)
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}
