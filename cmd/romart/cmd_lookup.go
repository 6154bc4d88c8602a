package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ryanm101/romart/internal/hashindex"
	"github.com/ryanm101/romart/internal/romhash"
)

func newConsoleGridCmd(a *app) *cobra.Command {
	var console, name string
	cmd := &cobra.Command{
		Use:   "consolegrid <rom>",
		Short: "Ask ConsoleGrid for a ROM's top picture URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, err := a.describeROM(args[0], console, name)
			if err != nil {
				return err
			}
			client := a.consoleGrid()
			u, ok := client.FindURL(cmd.Context(), desc)
			if !ok {
				return fmt.Errorf("ConsoleGrid has no image for %s (%s)", desc.Name, client.TopPictureURL(desc))
			}
			a.out.Result(map[string]string{"rom": desc.Path, "url": u})
			return nil
		},
	}
	cmd.Flags().StringVarP(&console, "console", "c", "", "Console short name (default: detect)")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Game name override (default: file name)")
	return cmd
}

type hashResult struct {
	Path      string `json:"path"`
	Algorithm string `json:"algorithm"`
	Hash      string `json:"hash"`
	Elapsed   string `json:"elapsed"`
}

func (r hashResult) String() string {
	return fmt.Sprintf("%s  %s", r.Hash, r.Path)
}

func newHashCmd(a *app) *cobra.Command {
	var algo string
	cmd := &cobra.Command{
		Use:   "hash <file>...",
		Short: "Print the content hash used for index lookups",
		Long: `Hash ROM files the way the hash index expects: archives are read through
to their first entry and 512-byte SNES copier headers are skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			algorithm, err := romhash.ParseAlgorithm(algo)
			if err != nil {
				return err
			}
			results := make([]hashResult, 0, len(args))
			for _, path := range args {
				start := time.Now()
				sum, err := romhash.Compute(path, algorithm)
				if err != nil {
					return err
				}
				results = append(results, hashResult{
					Path:      path,
					Algorithm: string(algorithm),
					Hash:      sum,
					Elapsed:   time.Since(start).String(),
				})
			}
			if a.jsonOut {
				a.out.Result(results)
				return nil
			}
			for _, r := range results {
				a.out.Result(r)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&algo, "algo", "a", string(romhash.MD5), "Hash algorithm: md5, sha1 or crc32")
	return cmd
}

type lookupResult struct {
	Hash   string `json:"hash"`
	GameID string `json:"game_id"`
	Title  string `json:"title"`
}

func (r lookupResult) String() string {
	return fmt.Sprintf("%s  %s", r.GameID, r.Title)
}

func newLookupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <hash>",
		Short: "Look a hash up in the index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			idx, err := a.index(ctx, a.progressOption())
			if err != nil {
				return err
			}
			ref, ok, err := idx.Lookup(ctx, args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no hash found for %s", args[0])
			}
			a.out.Result(toLookupResult(args[0], ref))
			return nil
		},
	}
}

func toLookupResult(hash string, ref hashindex.GameRef) lookupResult {
	return lookupResult{Hash: hash, GameID: ref.GameID, Title: ref.Title}
}
