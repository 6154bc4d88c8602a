package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ryanm101/romart/internal/config"
	"github.com/ryanm101/romart/internal/export"
)

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List previously resolved artwork",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			d, err := a.openDB(ctx)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			entries, err := d.ListArtwork(ctx, limit)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					e.ResolvedAt.Local().Format(time.DateTime),
					e.Strategy,
					e.Console,
					e.ROMPath,
					e.LocalPath,
				})
			}
			if len(rows) == 0 && !a.jsonOut {
				a.out.Info("No artwork resolved yet.\n")
				return nil
			}
			a.out.Table([]string{"resolved", "strategy", "console", "rom", "image"}, rows)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum entries to show (0 for all)")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var (
		format string
		output string
		opts   export.Options
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the newest artwork per ROM",
		Long: `Export resolved artwork history as an EmulationStation gamelist.xml or CSV.
Only the most recent image for each ROM is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			d, err := a.openDB(ctx)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			entries, err := d.ListArtwork(ctx, 0)
			if err != nil {
				return err
			}
			data, err := export.Render(entries, f, opts)
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil { // #nosec G306
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			a.out.Info("Exported %d entries to %s\n", len(export.Latest(entries, opts.Console)), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(export.FormatGamelist), "Output format: gamelist or csv")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringVarP(&opts.Console, "console", "c", "", "Only export this console")
	cmd.Flags().StringVar(&opts.PathPrefix, "path-prefix", "", "Prefix ROM file names with this path (e.g. ./)")
	cmd.Flags().StringVar(&opts.ImageDir, "image-dir", "", "Rewrite image paths into this directory")
	return cmd
}

func newConsolesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "consoles",
		Short: "List known consoles and their ROM extensions",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cat := a.catalog()
			rows := make([][]string, 0, len(cat.Consoles))
			for _, short := range cat.ShortNames() {
				entry := cat.Consoles[short]
				rows = append(rows, []string{short, entry.Name, strings.Join(entry.Extensions, " ")})
			}
			a.out.Table([]string{"console", "name", "extensions"}, rows)
			return nil
		},
	}
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or initialize configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show active configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.jsonOut {
				a.out.Result(a.cfg.Redacted())
				return nil
			}
			data, err := yaml.Marshal(a.cfg.Redacted())
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "# Active Configuration")
			_, _ = fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write an example .romart.yaml in the current directory",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			path, err := config.WriteExample(".romart.yaml")
			if err != nil {
				return err
			}
			if a.jsonOut {
				a.out.Result(map[string]string{"path": path, "status": "created"})
				return nil
			}
			a.out.Info("Created config file: %s\n", path)
			return nil
		},
	})
	return cmd
}
