package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mark3labs/autoroute/internal/route"
)

var checkRunner = runCheck

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate route directives without writing anything",
		Long: "Load a package and compile every route directive, reporting all rejected " +
			"declarations at once. Nothing is written.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			return checkRunner(cmd.Context(), cfg)
		},
	}
	addPackageFlags(cmd.Flags())
	return cmd
}

func runCheck(ctx context.Context, cfg *Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := cfg.newLogger()
	opts, err := cfg.loadOptions(log)
	if err != nil {
		return newUsageError(err.Error())
	}
	pkg, err := route.Load(ctx, cfg.Dir, opts...)
	if err != nil {
		return wrapLoadError(err)
	}
	fmt.Fprintf(os.Stdout, "%s: %d handlers ok\n", pkg.Name, len(pkg.Handlers))
	for _, h := range pkg.Handlers {
		fmt.Fprintf(os.Stdout, "- %-24s %s %s (%d responses)\n", h.Name, h.Route.Method, h.Route.Path, len(h.Contract.Variants))
	}
	return nil
}
