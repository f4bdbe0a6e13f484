package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// InitConfig captures the options for the init command.
type InitConfig struct {
	OutputPath string
	Force      bool
}

var initRunner = runInit

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a sample autoroute configuration file",
		Long:  "Scaffold a commented " + DefaultConfigFile + " that documents available options.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cmd.Flags().GetString("out")
			if err != nil {
				return err
			}
			force, err := cmd.Flags().GetBool("force")
			if err != nil {
				return err
			}
			return initRunner(cmd.Context(), &InitConfig{OutputPath: out, Force: force})
		},
	}

	cmd.Flags().String("out", DefaultConfigFile, "Where to write the sample config file")
	cmd.Flags().Bool("force", false, "Overwrite the target file if it already exists")

	return cmd
}

func runInit(_ context.Context, cfg *InitConfig) error {
	out := strings.TrimSpace(cfg.OutputPath)
	if out == "" {
		out = DefaultConfigFile
	}
	absPath, err := filepath.Abs(out)
	if err != nil {
		return fmt.Errorf("init: resolve output path: %w", err)
	}

	if st, err := os.Stat(absPath); err == nil && !cfg.Force && st.Mode().IsRegular() {
		return newUsageError(fmt.Sprintf("init: %q already exists (use --force to overwrite)", absPath))
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return newUsageError(fmt.Sprintf("init: cannot create parent directory: %v", err))
	}

	content := strings.TrimSpace(sampleConfigYAML) + "\n"

	// Atomic write via temp + rename
	tmp := absPath + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return newUsageError(fmt.Sprintf("init: cannot write temp file: %v\nHint: choose a different --out or check directory permissions.", err))
	}
	if err := os.Rename(tmp, absPath); err != nil {
		_ = os.Remove(tmp)
		return newUsageError(fmt.Sprintf("init: cannot place file at %s: %v", absPath, err))
	}
	fmt.Fprintf(os.Stdout, "Wrote sample config to %s\n", absPath)
	return nil
}

// sampleConfigYAML is a commented example config documenting available options.
const sampleConfigYAML = `# autoroute configuration (YAML)
# All fields are optional. Command-line flags override config values.

# Package directory holding the annotated handlers.
# dir: .

# Name of the generated file, written next to the handlers.
# output: autoroute_gen.go

# Generate debug traces (slog, debug level) for every handler.
# trace: false

# Serializer for responses that do not name one: json or none (raw bodies).
# defaultSerializer: json

# Extractor types defined outside autoroute. type is importpath.Name, or Name
# for a type of the handler's own package. role is payload (consumes the
# request body) or metadata.
# extractors:
#   - type: example.com/auth.Session
#     role: metadata
#     intoParams: false
#   - type: example.com/codec.Protobuf
#     role: payload
#     contentTypes: [application/x-protobuf]

# Documents written by "autoroute docs": yaml or json.
# docsFormat: yaml
# docsOut: ./docs
# title: Shop API
# version: 1.0.0

# Only document exported handlers.
# publicOnly: false

# Preview planned outputs without writing files.
# dryRun: false

# Overwrite an output that was not generated by autoroute.
# force: false

# Regenerate on every change to the package (generate only).
# watch: false

# Enable verbose logging.
# verbose: false
`
