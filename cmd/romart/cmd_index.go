package main

import (
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ryanm101/romart/internal/config"
	"github.com/ryanm101/romart/internal/hashindex"
)

func newIndexCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the cached hash index",
	}
	cmd.AddCommand(newIndexFetchCmd(a))
	return cmd
}

func newIndexFetchCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download the hash index if it is not cached",
		Long: `Download the hash-to-game CSV into the configured store.

The index is never refreshed automatically. Use --force to replace a
cached copy with the current upstream file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			idx, err := a.index(ctx, a.progressOption())
			if err != nil {
				return err
			}

			if force {
				err = idx.Refresh(ctx)
			} else {
				err = idx.EnsurePresent(ctx)
			}
			if err != nil {
				return err
			}

			a.out.Result(map[string]string{
				"source": a.cfg.GetHashIndexURL(),
				"store":  a.storeDescription(),
				"status": "ready",
			})
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Re-download even if already cached")
	return cmd
}

func (a *app) storeDescription() string {
	if strings.EqualFold(a.cfg.HashIndex.Backend, config.BackendSQLite) {
		return "sqlite:" + a.cfg.GetDBPath()
	}
	return a.cfg.GetHashIndexPath()
}

// progressOption renders index downloads as a byte progress bar. The bar
// is created on the first callback so cached indexes print nothing.
func (a *app) progressOption() hashindex.Option {
	return hashindex.WithProgress(func(read, total int64) {
		if a.quiet || a.jsonOut {
			return
		}
		if a.bar == nil {
			a.bar = progressbar.NewOptions64(total,
				progressbar.OptionSetWriter(a.out.err),
				progressbar.OptionSetDescription("Downloading hash index"),
				progressbar.OptionShowBytes(true),
				progressbar.OptionClearOnFinish(),
			)
		}
		_ = a.bar.Set64(read)
		if total > 0 && read >= total {
			_ = a.bar.Finish()
		}
	})
}
