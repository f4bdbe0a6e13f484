package cli

import (
	"context"
	"fmt"
	"go/token"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/spf13/cobra"

	"github.com/mark3labs/autoroute/internal/emitter/docemitter"
	"github.com/mark3labs/autoroute/internal/route"
)

var docsRunner = runDocs

func newDocsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Write the doc manifest and an OpenAPI skeleton for a package",
		Long: "Write a manifest of the documentation entry of every handler and a static OpenAPI " +
			"document built from the declared routes. Generated code can serve a fuller document " +
			"at runtime through autoroute.Router.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			return docsRunner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	addPackageFlags(flags)
	flags.String("out", "", "Directory for the documents (default \"<dir>/docs\")")
	flags.String("format", "", "Document format (yaml|json)")
	flags.String("title", "", "OpenAPI info title")
	flags.String("version", "", "OpenAPI info version")
	flags.Bool("public-only", false, "Only document exported handlers")
	flags.Bool("dry-run", false, "Preview planned outputs without writing files")
	flags.Bool("force", false, "Write into an output directory holding other files")

	return cmd
}

func runDocs(ctx context.Context, cfg *Config) error {
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
	if cfg.PublicOnly {
		pkg = exportedOnly(pkg)
	}

	outDir := cfg.DocsOut
	if outDir == "" {
		outDir = filepath.Join(pkg.Dir, "docs")
	}
	res, err := docemitter.Emit(ctx, pkg, docemitter.Options{
		OutDir: outDir,
		Format: cfg.DocsFormat,
		Info:   openapi3.Info{Title: cfg.Title, Version: cfg.Version},
		Force:  cfg.Force,
		DryRun: cfg.DryRun,
	})
	if err != nil {
		return wrapOutputError(err, outDir)
	}

	if cfg.DryRun {
		fmt.Fprintf(os.Stdout, "Planned writes to %s (%d files):\n", outDir, len(res.Planned))
		for _, p := range res.Planned {
			fmt.Fprintf(os.Stdout, "- %s (%s)\n", p.RelPath, humanize.Bytes(uint64(p.Size)))
		}
		return nil
	}
	log.Info("wrote docs", "dir", outDir, "handlers", len(res.Manifest), "paths", len(res.OpenAPI.Paths))
	return nil
}

func exportedOnly(pkg *route.Package) *route.Package {
	out := *pkg
	out.Handlers = nil
	for _, h := range pkg.Handlers {
		if token.IsExported(h.Name) {
			out.Handlers = append(out.Handlers, h)
		}
	}
	return &out
}
