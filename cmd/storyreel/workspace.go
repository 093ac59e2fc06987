package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/storyreel/storyreel/internal/ui"
	"github.com/storyreel/storyreel/internal/workspace"
)

var initCmd = &cobra.Command{
	Use:     "init [dir]",
	GroupID: "workspace",
	Short:   "Create a workspace (or adopt an existing one) and remember it",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := ""
		if len(args) == 1 {
			root = args[0]
		}
		a, err := openApp(cmd.Context(), openOptions{mutating: true, init: true, root: root})
		if err != nil {
			return err
		}
		defer a.Close()

		if jsonOutput {
			return outputJSON(map[string]any{"root": a.ws.Root, "projects": len(a.store.List())})
		}
		fmt.Println(ui.Success("Workspace ready at " + a.ws.Root))
		fmt.Printf("   Projects: %d\n", len(a.store.List()))
		return nil
	},
}

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "workspace",
	Short:   "Rebuild the project index from the project directories",
	Long: `Scan every project directory, repair records with missing fields and
rewrite index.json (and the search catalog) to match what is on disk.

Run this after copying, restoring or deleting project directories by hand.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), openOptions{mutating: true})
		if err != nil {
			return err
		}
		defer a.Close()

		start := time.Now()
		res, err := a.store.Reconcile(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(map[string]any{
				"projects": len(res.Index.Projects),
				"repaired": res.Repaired,
				"skipped":  res.Skipped,
			})
		}
		fmt.Printf("%s Sync complete in %v\n", ui.RenderPass(ui.IconPass), time.Since(start).Round(time.Millisecond))
		fmt.Printf("   Projects: %d\n", len(res.Index.Projects))
		for _, slug := range res.Repaired {
			fmt.Printf("   %s repaired %s\n", ui.RenderAccent("~"), slug)
		}
		for _, slug := range res.Skipped {
			fmt.Println("   " + ui.Warning("skipped unreadable "+slug))
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "workspace",
	Short:   "Show the workspace root, project count and catalog state",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), openOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		catalogCount := -1
		if a.catalog != nil {
			if n, err := a.catalog.Count(cmd.Context()); err == nil {
				catalogCount = n
			}
		}
		prefsPath := ""
		if prefs := preferences(); prefs != nil {
			prefsPath = prefs.Path()
		}

		if jsonOutput {
			return outputJSON(map[string]any{
				"root":        a.ws.Root,
				"projects":    len(a.store.List()),
				"catalog":     catalogCount,
				"preferences": prefsPath,
				"deleteOrder": cfg.DeleteOrder,
				"configFile":  cfg.ConfigFile,
			})
		}

		fmt.Println(ui.RenderHeader("Workspace"))
		fmt.Printf("   Root:         %s\n", a.ws.Root)
		fmt.Printf("   Projects:     %d\n", len(a.store.List()))
		switch {
		case a.catalog == nil:
			fmt.Printf("   Catalog:      %s\n", ui.RenderMuted("disabled"))
		case catalogCount < 0:
			fmt.Printf("   Catalog:      %s\n", ui.RenderWarn("unreadable"))
		default:
			fmt.Printf("   Catalog:      %d entries (%s)\n", catalogCount, a.catalog.Path())
		}
		if catalogCount >= 0 && catalogCount != len(a.store.List()) {
			fmt.Println("   " + ui.Warning("catalog is out of date; run 'storyreel sync'"))
		}
		fmt.Printf("   Delete order: %s\n", cfg.DeleteOrder)
		if cfg.ConfigFile != "" {
			fmt.Printf("   Config:       %s\n", cfg.ConfigFile)
		}
		if prefsPath != "" {
			fmt.Printf("   Preferences:  %s\n", prefsPath)
		}
		return nil
	},
}

var forgetCmd = &cobra.Command{
	Use:     "forget",
	GroupID: "workspace",
	Short:   "Forget the remembered workspace root",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		prefs := preferences()
		if prefs == nil {
			return nil
		}
		if err := prefs.Delete(workspace.LastRootKey); err != nil {
			return fmt.Errorf("failed to update %s: %w", prefs.Path(), err)
		}
		fmt.Println(ui.Success("Forgot the last workspace root"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd, syncCmd, statusCmd, forgetCmd)
}
