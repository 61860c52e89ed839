package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/hypha-tools/hypha-apps-go/internal/config"
	"github.com/hypha-tools/hypha-apps-go/internal/credstore"
	"github.com/hypha-tools/hypha-apps-go/internal/hypha"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagDisableSSL bool
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// resolvedCfg holds the effective configuration loaded by PersistentPreRunE.
// It is available to all subcommands after the root pre-run phase completes.
var resolvedCfg *config.Settings

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "hypha-apps",
		Short:   "Hypha server-apps CLI",
		Long:    "A CLI for installing, starting, stopping, and inspecting apps on a Hypha server.",
		Version: version,
		// Silence Cobra's default error/usage printing — main() handles it.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().BoolVar(&flagDisableSSL, "disable-ssl", false, "skip TLS certificate verification")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	// Register subcommands.
	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newDebugTokenCmd())
	cmd.AddCommand(newInstallCmd())
	cmd.AddCommand(newStartCmd())
	cmd.AddCommand(newStopCmd())
	cmd.AddCommand(newStopAllCmd())
	cmd.AddCommand(newUninstallCmd())
	cmd.AddCommand(newListInstalledCmd())
	cmd.AddCommand(newListRunningCmd())
	cmd.AddCommand(newListServicesCmd())

	return cmd
}

// loadConfig loads .env, reads the environment, and resolves the override
// chain into resolvedCfg. Connection parameters are not validated here —
// commands that dial the server validate what they need.
func loadConfig(cmd *cobra.Command) error {
	if err := config.LoadDotenv(); err != nil {
		return err
	}

	cli := config.CLIOverrides{ConfigPath: flagConfigPath}

	// Only pass --disable-ssl to the resolver if the user explicitly set it.
	if cmd.Flags().Changed("disable-ssl") {
		cli.DisableSSL = &flagDisableSSL
	}

	resolved, err := config.Resolve(config.ReadEnvOverrides(), cli)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	resolvedCfg = resolved

	return nil
}

// buildLogger creates an slog.Logger honoring the --verbose and --quiet
// flags. Text output to stderr so stdout stays clean for --json consumers.
func buildLogger() *slog.Logger {
	level := slog.LevelInfo

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newCredStore returns the credential store backed by the cache slot in
// the current working directory.
func newCredStore(logger *slog.Logger) *credstore.Store {
	return credstore.New(credstore.DefaultSlotName, logger)
}

// connectOptions assembles the dial options from the resolved config with
// the given bearer token.
func connectOptions(token string) hypha.Options {
	return hypha.Options{
		ServerURL:  resolvedCfg.ServerURL,
		Workspace:  resolvedCfg.Workspace,
		ClientID:   resolvedCfg.ClientID,
		Token:      token,
		DisableSSL: resolvedCfg.DisableSSL,
	}
}

// connect resolves a bearer token without any network round-trip and opens
// an authenticated session. When no token source yields anything, the user
// is pointed at the login command and the env override.
func connect(ctx context.Context, logger *slog.Logger) (*hypha.Client, error) {
	if err := config.Validate(resolvedCfg); err != nil {
		return nil, err
	}

	store := newCredStore(logger)

	token, err := store.Resolve(resolvedCfg.Token)
	if err != nil {
		if errors.Is(err, credstore.ErrNoCredential) {
			return nil, fmt.Errorf("no authentication token found — run 'hypha-apps login' or set %s", config.EnvToken)
		}

		return nil, err
	}

	client, err := hypha.Connect(ctx, connectOptions(token), logger)
	if err != nil {
		return nil, err
	}

	return client, nil
}
