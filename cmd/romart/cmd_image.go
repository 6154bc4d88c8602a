package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ryanm101/romart/internal/gridimage"
	"github.com/ryanm101/romart/internal/logging"
	"github.com/ryanm101/romart/internal/rom"
)

// describeROM builds a descriptor from a path plus optional overrides.
// Without --console, the console is detected from extension or folder.
func (a *app) describeROM(path, console, name string) (rom.Descriptor, error) {
	cat := a.catalog()

	var c rom.Console
	if console != "" {
		found, ok := cat.Lookup(console)
		if !ok {
			return rom.Descriptor{}, fmt.Errorf("unknown console %q (known: %s)", console, strings.Join(cat.ShortNames(), ", "))
		}
		c = found
	} else if detected, ok := cat.Detect(path); ok {
		c = detected
	} else {
		logging.Debug("console not detected", "path", path)
	}

	d := rom.NewDescriptor(path, c)
	if name != "" {
		d.Name = name
	}
	return d, nil
}

type imageResult struct {
	ROM      string `json:"rom"`
	Console  string `json:"console,omitempty"`
	Strategy string `json:"strategy"`
	URL      string `json:"url"`
	Path     string `json:"path,omitempty"`
}

func (r imageResult) String() string {
	if r.Path == "" {
		return r.URL
	}
	return r.Path
}

func newImageCmd(a *app) *cobra.Command {
	var (
		console    string
		name       string
		urlOnly    bool
		strategies []string
	)
	cmd := &cobra.Command{
		Use:   "image <rom>",
		Short: "Resolve and download a grid image for a ROM",
		Long: `Run the configured strategies in order and download the first image found.

Prints the local path of the downloaded image. With --url-only the image
URL is printed and nothing is downloaded.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			desc, err := a.describeROM(args[0], console, name)
			if err != nil {
				return err
			}

			if len(strategies) == 0 {
				strategies = a.cfg.GetStrategies()
			}
			resolver, err := a.resolver(ctx, strategies)
			if err != nil {
				return err
			}
			if !resolver.Enabled() {
				return fmt.Errorf("no usable strategies in %v", strategies)
			}

			out := imageResult{ROM: desc.Path, Console: desc.Console.ShortName}
			if urlOnly {
				u, strategy, ok, err := resolver.FindURL(ctx, desc)
				if err != nil {
					return err
				}
				if !ok {
					return gridimage.NotFoundError(desc.Path)
				}
				out.Strategy, out.URL = strategy, u
			} else {
				res, ok, err := resolver.Resolve(ctx, desc)
				if err != nil {
					return err
				}
				if !ok {
					return gridimage.NotFoundError(desc.Path)
				}
				out.Strategy, out.URL, out.Path = res.Strategy, res.URL, res.Path
			}

			a.out.Result(out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&console, "console", "c", "", "Console short name (default: detect)")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Game name override (default: file name)")
	cmd.Flags().BoolVar(&urlOnly, "url-only", false, "Print the image URL without downloading")
	cmd.Flags().StringSliceVarP(&strategies, "strategy", "s", nil, "Strategies to try in order (default: from config)")
	return cmd
}
