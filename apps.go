package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hypha-tools/hypha-apps-go/internal/bundle"
	"github.com/hypha-tools/hypha-apps-go/internal/hypha"
)

func newInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install an app on the server",
		RunE:  runInstall,
	}

	cmd.Flags().String("app-id", "", "app identifier")
	cmd.Flags().String("source", "", "app source file")
	cmd.Flags().String("manifest", "", "manifest file (JSON or YAML)")
	cmd.Flags().String("files", "", "extra files to package: a file, directory, or glob")
	cmd.Flags().Bool("overwrite", false, "replace an existing installation")

	_ = cmd.MarkFlagRequired("app-id")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("manifest")

	return cmd
}

func newStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start an installed app",
		RunE:  runStart,
	}

	cmd.Flags().String("app-id", "", "app identifier")
	_ = cmd.MarkFlagRequired("app-id")

	return cmd
}

func newStopCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop a running app session",
		RunE:  runStop,
	}

	cmd.Flags().String("session-id", "", "session ID of the running app instance")
	_ = cmd.MarkFlagRequired("session-id")

	return cmd
}

func newStopAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop-all",
		Short: "Stop all running apps",
		RunE:  runStopAll,
	}
}

func newUninstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Uninstall an app",
		RunE:  runUninstall,
	}

	cmd.Flags().String("app-id", "", "app identifier")
	_ = cmd.MarkFlagRequired("app-id")

	return cmd
}

func newListInstalledCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-installed",
		Short: "List installed apps",
		RunE:  runListInstalled,
	}
}

func newListRunningCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-running",
		Short: "List running app sessions",
		RunE:  runListRunning,
	}
}

func newListServicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-services",
		Short: "List services available in the workspace",
		RunE:  runListServices,
	}
}

func runInstall(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := cmd.Context()

	appID, _ := cmd.Flags().GetString("app-id")
	sourcePath, _ := cmd.Flags().GetString("source")
	manifestPath, _ := cmd.Flags().GetString("manifest")
	filesPath, _ := cmd.Flags().GetString("files")
	overwrite, _ := cmd.Flags().GetBool("overwrite")

	source, err := os.ReadFile(sourcePath)
	if err != nil {
		return fmt.Errorf("reading source %s: %w", sourcePath, err)
	}

	manifest, err := loadManifest(manifestPath)
	if err != nil {
		return err
	}

	// Package extra files relative to the source file's directory so their
	// names land where the app's source expects them.
	files := []bundle.Entry{}

	if filesPath != "" {
		files, err = bundle.Collect(filesPath, sourcePath)
		if err != nil {
			return fmt.Errorf("packaging files: %w", err)
		}

		logger.Debug("files packaged", "count", len(files), "input", filesPath)
	}

	client, err := connect(ctx, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	statusf("Installing app %q from %s...\n", appID, sourcePath)

	controller := client.AppController()

	err = controller.Install(ctx, hypha.InstallRequest{
		AppID:     appID,
		Source:    string(source),
		Manifest:  manifest,
		Files:     files,
		Overwrite: overwrite,
	})
	if err != nil {
		return fmt.Errorf("installing %q: %w", appID, err)
	}

	info, err := controller.GetAppInfo(ctx, appID)
	if err != nil {
		return fmt.Errorf("fetching app info for %q: %w", appID, err)
	}

	if flagJSON {
		fmt.Println(string(info))
	}

	statusf("App %q installed.\n", appID)

	return nil
}

func runStart(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := cmd.Context()
	appID, _ := cmd.Flags().GetString("app-id")

	client, err := connect(ctx, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	statusf("Starting app %q...\n", appID)

	session, err := client.AppController().Start(ctx, appID)
	if err != nil {
		return fmt.Errorf("starting %q: %w", appID, err)
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(session)
	}

	for _, svc := range session.Services {
		fmt.Printf("  - %s: %s\n", svc.ID, orNone(svc.Description))
	}

	statusf("Started app %q with session ID %s\n", appID, session.ID)

	return nil
}

func runStop(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := cmd.Context()
	sessionID, _ := cmd.Flags().GetString("session-id")

	client, err := connect(ctx, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	controller := client.AppController()

	running, err := controller.ListRunning(ctx)
	if err != nil {
		return fmt.Errorf("listing running apps: %w", err)
	}

	if !sessionRunning(running, sessionID) {
		statusf("Session %q is not currently running.\n", sessionID)
		return nil
	}

	if err := controller.Stop(ctx, sessionID); err != nil {
		return fmt.Errorf("stopping %q: %w", sessionID, err)
	}

	statusf("Stopped session %q.\n", sessionID)

	return nil
}

// stopWorkers bounds concurrent stop calls in stop-all.
const stopWorkers = 4

func runStopAll(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := cmd.Context()

	client, err := connect(ctx, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	controller := client.AppController()

	running, err := controller.ListRunning(ctx)
	if err != nil {
		return fmt.Errorf("listing running apps: %w", err)
	}

	if len(running) == 0 {
		statusf("No apps are currently running.\n")
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(stopWorkers)

	for _, session := range running {
		session := session
		g.Go(func() error {
			if err := controller.Stop(gctx, session.ID); err != nil {
				return fmt.Errorf("stopping %q: %w", session.ID, err)
			}

			statusf("Stopped app %q.\n", session.ID)

			return nil
		})
	}

	return g.Wait()
}

func runUninstall(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := cmd.Context()
	appID, _ := cmd.Flags().GetString("app-id")

	client, err := connect(ctx, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.AppController().Uninstall(ctx, appID); err != nil {
		return fmt.Errorf("uninstalling %q: %w", appID, err)
	}

	statusf("Uninstalled app %q.\n", appID)

	return nil
}

func runListInstalled(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := cmd.Context()

	client, err := connect(ctx, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	apps, err := client.AppController().ListApps(ctx)
	if err != nil {
		return fmt.Errorf("listing installed apps: %w", err)
	}

	if flagJSON {
		return printJSON(apps)
	}

	statusf("Installed apps (%d):\n", len(apps))
	printTable(os.Stdout, []string{"APP_ID", "NAME", "DESCRIPTION"}, appRows(apps))

	return nil
}

func runListRunning(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := cmd.Context()

	client, err := connect(ctx, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	sessions, err := client.AppController().ListRunning(ctx)
	if err != nil {
		return fmt.Errorf("listing running apps: %w", err)
	}

	if flagJSON {
		return printJSON(sessions)
	}

	statusf("Running apps (%d):\n", len(sessions))

	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, []string{s.ID, orNone(s.AppID), orNone(s.Name), orNone(s.Description)})
	}

	printTable(os.Stdout, []string{"SESSION_ID", "APP_ID", "NAME", "DESCRIPTION"}, rows)

	return nil
}

func runListServices(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := cmd.Context()

	client, err := connect(ctx, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	services, err := client.ListServices(ctx)
	if err != nil {
		return fmt.Errorf("listing services: %w", err)
	}

	if flagJSON {
		return printJSON(services)
	}

	statusf("Available services (%d):\n", len(services))

	rows := make([][]string, 0, len(services))
	for _, svc := range services {
		rows = append(rows, []string{svc.ID, orNone(svc.Name), orNone(svc.Description)})
	}

	printTable(os.Stdout, []string{"ID", "NAME", "DESCRIPTION"}, rows)

	return nil
}

// sessionRunning reports whether sessionID appears in the running list.
func sessionRunning(sessions []hypha.Session, sessionID string) bool {
	for _, s := range sessions {
		if s.ID == sessionID {
			return true
		}
	}

	return false
}

// appRows builds table rows for the installed-apps listing.
func appRows(apps []hypha.App) [][]string {
	rows := make([][]string, 0, len(apps))
	for _, a := range apps {
		id := a.AppID
		if id == "" {
			id = a.ID
		}

		rows = append(rows, []string{id, orNone(a.Name), orNone(a.Description)})
	}

	return rows
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}
