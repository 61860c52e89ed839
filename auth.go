package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hypha-tools/hypha-apps-go/internal/config"
	"github.com/hypha-tools/hypha-apps-go/internal/credstore"
	"github.com/hypha-tools/hypha-apps-go/internal/hypha"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authenticate interactively and cache the token",
		RunE:  runLogin,
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the cached authentication token",
		RunE:  runLogout,
	}
}

func runLogin(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := cmd.Context()

	if err := config.Validate(resolvedCfg); err != nil {
		return err
	}

	logger.Info("login started", "server", resolvedCfg.ServerURL, "workspace", resolvedCfg.Workspace)

	token, err := hypha.Login(ctx, connectOptions(""), func(p hypha.LoginPrompt) {
		// The sign-in URL must always be visible — not suppressed by --quiet.
		fmt.Fprintf(os.Stderr, "To sign in, visit: %s\n", p.LoginURL)
	}, logger)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	store := newCredStore(logger)

	// A save failure is a warning, not a fatal error: the token was minted
	// and the operator can still export it by hand.
	if err := store.Save(token); err != nil {
		logger.Warn("could not cache token", "error", err)
		statusf("Warning: token could not be saved to %s\n", store.Path())
	} else {
		statusf("Token saved to %s\n", store.Path())
	}

	statusf("Login successful. Subsequent commands will use the cached token.\n")

	return nil
}

func runLogout(_ *cobra.Command, _ []string) error {
	logger := buildLogger()
	store := newCredStore(logger)

	if err := store.Delete(); err != nil {
		return err
	}

	statusf("Logged out.\n")

	return nil
}

func newDebugTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "debug-token",
		Short: "Report token sources and cache status",
		RunE:  runDebugToken,
	}
}

func runDebugToken(_ *cobra.Command, _ []string) error {
	logger := buildLogger()
	store := newCredStore(logger)

	fmt.Println("Environment configuration:")
	fmt.Printf("  %s: %s\n", config.EnvServerURL, resolvedCfg.ServerURL)
	fmt.Printf("  %s: %s\n", config.EnvWorkspace, resolvedCfg.Workspace)
	fmt.Printf("  %s: %s\n", config.EnvToken, setOrNot(resolvedCfg.Token))
	fmt.Printf("  %s: %t\n", config.EnvDisableSSL, resolvedCfg.DisableSSL)

	if resolvedCfg.Token != "" {
		printInspection(store.Inspect(resolvedCfg.Token))
	}

	fmt.Println()
	printSlotInfo(store)

	fmt.Println()
	printResolutionOrder(store)

	return nil
}

// setOrNot masks a secret value, reporting only its presence.
func setOrNot(value string) string {
	if value == "" {
		return "NOT SET"
	}

	return "SET"
}

// printInspection renders a token's diagnostic projection.
func printInspection(info credstore.Info) {
	if !info.Valid {
		fmt.Printf("    token error: %s\n", info.Error)
		return
	}

	fmt.Printf("    expires in: %s\n", info.HumanRemaining)
}

// printSlotInfo reports the cache slot path, existence, permissions, size,
// and the expiry of the cached token, without mutating the slot.
func printSlotInfo(store *credstore.Store) {
	fmt.Println("Cache slot:")
	fmt.Printf("  path: %s\n", store.Path())

	fi, err := os.Stat(store.Path())
	if err != nil {
		fmt.Println("  exists: false")
		return
	}

	fmt.Println("  exists: true")
	fmt.Printf("  permissions: %04o\n", fi.Mode().Perm())
	fmt.Printf("  size: %d bytes\n", fi.Size())

	data, readErr := os.ReadFile(store.Path())
	if readErr != nil {
		fmt.Printf("  read error: %v\n", readErr)
		return
	}

	printInspection(store.Inspect(string(data)))
}

// printResolutionOrder explains which token source a command would use.
func printResolutionOrder(store *credstore.Store) {
	fmt.Println("Resolution order:")

	if resolvedCfg.Token != "" {
		fmt.Printf("  1. %s: FOUND (cache slot bypassed)\n", config.EnvToken)
		return
	}

	fmt.Printf("  1. %s: not set\n", config.EnvToken)

	if _, err := os.Stat(store.Path()); err == nil {
		fmt.Println("  2. cache slot: present (used if not expired)")
	} else {
		fmt.Println("  2. cache slot: not found")
		fmt.Println("  3. run 'hypha-apps login' to obtain a token")
	}
}
