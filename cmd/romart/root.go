// Package main provides the romart CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/baggage"
)

// NewRootCmd creates the root command with a fresh app state.
func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "romart",
		Short: "Find grid artwork for game ROMs",
		Long: `romart resolves a representative grid image for a ROM file.

By default the ROM is identified by its MD5 hash against a community hash
index, and the best artwork TheGamesDB lists for that game is downloaded.
ConsoleGrid and IGDB lookups can be added via resolver.strategies.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SetContext(withBaggage(cmd.Context()))
			return a.setup(cmd)
		},
	}

	cmd.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "Output in JSON format")
	cmd.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "Suppress non-error output")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&a.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit")

	cmd.AddCommand(newImageCmd(a))
	cmd.AddCommand(newConsoleGridCmd(a))
	cmd.AddCommand(newHashCmd(a))
	cmd.AddCommand(newLookupCmd(a))
	cmd.AddCommand(newIndexCmd(a))
	cmd.AddCommand(newHistoryCmd(a))
	cmd.AddCommand(newExportCmd(a))
	cmd.AddCommand(newConsolesCmd(a))
	cmd.AddCommand(newConfigCmd(a))
	cmd.AddCommand(NewVersionCmd())

	a.wrapTeardown(cmd)
	return cmd
}

// wrapTeardown makes every runnable command tear down on return, including
// when RunE fails and cobra skips post-run hooks.
func (a *app) wrapTeardown(cmd *cobra.Command) {
	for _, sub := range cmd.Commands() {
		a.wrapTeardown(sub)
	}
	switch {
	case cmd.RunE != nil:
		runE := cmd.RunE
		cmd.RunE = func(cmd *cobra.Command, args []string) error {
			defer a.teardown(cmd.Context())
			return runE(cmd, args)
		}
	case cmd.Run != nil:
		run := cmd.Run
		cmd.Run = func(cmd *cobra.Command, args []string) {
			defer a.teardown(cmd.Context())
			run(cmd, args)
		}
	}
}

func withBaggage(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	m, err := baggage.NewMember("app.version", getVersion())
	if err != nil {
		return ctx
	}
	b, err := baggage.New(m)
	if err != nil {
		return ctx
	}
	return baggage.ContextWithBaggage(ctx, b)
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
