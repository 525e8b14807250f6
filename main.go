package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/biroman/pkmnbindrnew-sub000/internal/app"
	"github.com/biroman/pkmnbindrnew-sub000/internal/domain"
	"github.com/biroman/pkmnbindrnew-sub000/internal/logging"
	"github.com/biroman/pkmnbindrnew-sub000/internal/service"
)

var (
	flagDB       string
	flagDataDir  string
	flagHTTPAddr string
	flagRedis    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "binder",
		Short: "Binder slot-layout and sync core",
		Long: `binder manages paginated card binders: grid-sliced slot layouts,
an offline pending-change ledger, and reconciliation against a remote
durable store (mongodb, postgres or mysql).`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite database path (default $BINDER_DB or <data-dir>/binder.db)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (default $BINDER_DATA_DIR or ~/.local/share/binder)")
	rootCmd.PersistentFlags().StringVar(&flagHTTPAddr, "http-addr", "", "HTTP listen address (default $BINDER_HTTP_ADDR or :8470)")
	rootCmd.PersistentFlags().StringVar(&flagRedis, "redis", "", "redis address for cache invalidation (default $BINDER_REDIS_ADDR, empty disables)")

	rootCmd.AddCommand(serveCmd(), mcpCmd(), syncCmd(), revertCmd(), pullCmd(), importCmd(), totalsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// options resolves flags over environment variables over defaults.
func options() app.Options {
	dataDir := firstOf(flagDataDir, os.Getenv("BINDER_DATA_DIR"))
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share", "binder")
	}

	gate := service.DefaultSaveGateConfig()
	if v := os.Getenv("BINDER_SAVES_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			gate.PerMinute = n
		}
	}
	if v := os.Getenv("BINDER_SAVES_PER_HOUR"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			gate.PerHour = n
		}
	}
	if v := os.Getenv("BINDER_SAVE_COOLDOWN"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			gate.Cooldown = d
		}
	}
	if os.Getenv("BINDER_SAVE_GATE_DISABLED") == "1" {
		gate.Enforce = false
	}

	remotePort := 0
	if v := os.Getenv("BINDER_REMOTE_PORT"); v != "" {
		remotePort, _ = strconv.Atoi(v)
	}

	return app.Options{
		DBPath:    firstOf(flagDB, os.Getenv("BINDER_DB"), filepath.Join(dataDir, "binder.db")),
		DataDir:   dataDir,
		HTTPAddr:  firstOf(flagHTTPAddr, os.Getenv("BINDER_HTTP_ADDR"), ":8470"),
		RedisAddr: firstOf(flagRedis, os.Getenv("BINDER_REDIS_ADDR")),
		Remote: domain.RemoteConfig{
			Driver:   domain.RemoteDriver(os.Getenv("BINDER_REMOTE_DRIVER")),
			Host:     os.Getenv("BINDER_REMOTE_HOST"),
			Port:     remotePort,
			Database: os.Getenv("BINDER_REMOTE_DATABASE"),
			Username: os.Getenv("BINDER_REMOTE_USERNAME"),
			Password: os.Getenv("BINDER_REMOTE_PASSWORD"),
			SSLMode:  os.Getenv("BINDER_REMOTE_SSLMODE"),
			URI:      os.Getenv("BINDER_REMOTE_URI"),
		},
		Gate:   gate,
		Logger: logging.New("binder", os.Stderr),
	}
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// withApp builds the app, runs fn, and tears the app down.
func withApp(fn func(ctx context.Context, a *app.App) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(options())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, websocket event stream, import watcher and auto-sync scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				return a.Serve(ctx)
			})
		},
	}
}

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run as an MCP server on stdin/stdout",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(func(_ context.Context, a *app.App) error {
				return a.ServeMCP()
			})
		},
	}
}

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync <binder-id>",
		Short: "Push a binder's queued changes to the remote store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				snap, err := a.Sync.SyncToRemote(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(snap)
			})
		},
	}
}

func revertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revert <binder-id>",
		Short: "Discard a binder's queued changes, restoring the last synced state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				if err := a.Sync.RevertToRemote(ctx, args[0]); err != nil {
					return err
				}
				fmt.Printf("reverted binder %s\n", args[0])
				return nil
			})
		},
	}
}

func pullCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pull <binder-id>",
		Short: "Refresh a binder's local snapshot from the remote store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				snap, err := a.Sync.Pull(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(snap)
			})
		},
	}
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import a card-list file (json or csv) into the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				result, err := a.Cards.ImportFile(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(result)
			})
		},
	}
}

func totalsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "totals <owner-id>",
		Short: "Show aggregate binder and placement counts for an owner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(_ context.Context, a *app.App) error {
				totals, err := a.Binders.UserTotals(args[0])
				if err != nil {
					return err
				}
				return printJSON(totals)
			})
		},
	}
}
