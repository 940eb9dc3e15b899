package metadata

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/oshokin/installer-uploader/internal/config"
	"github.com/oshokin/installer-uploader/internal/domain/installer"
	"github.com/oshokin/installer-uploader/internal/logger"
)

// DefaultFilename is the metadata file name inside the build folder.
const DefaultFilename = "metadata.json"

// schemaURL is the resource name the embedded schema is registered under.
const schemaURL = "metadata.schema.json"

//go:embed metadata.schema.json
var schemaJSON []byte

// compiledSchema compiles the embedded schema once.
//
//nolint:gochecknoglobals // Compiled lazily and shared by every load.
var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		return nil, err
	}

	return compiler.Compile(schemaURL)
})

// Options selects the metadata file.
type Options struct {
	// Path overrides the metadata file location.
	Path string
	// BuildDir is used when Path is empty; metadata is read from BuildDir/metadata.json.
	BuildDir string
}

// Find resolves, reads and validates the metadata record.
// The returned record has Filename derived from InstallerPath.
func Find(ctx context.Context, opts Options) (*installer.Record, error) {
	path, err := resolvePath(opts)
	if err != nil {
		return nil, err
	}

	logger.DebugKV(ctx, "Reading installer metadata", "path", path)

	return Load(path)
}

// Load reads and validates the metadata file at path.
func Load(path string) (*installer.Record, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf(
				"%w: metadata file %s doesn't exist, run 'build' and 'make-installer' first",
				installer.ErrConfiguration, path)
		}

		return nil, fmt.Errorf("%w: read metadata: %w", installer.ErrConfiguration, err)
	}

	if err = validateDocument(contents); err != nil {
		return nil, fmt.Errorf("%w: metadata %s: %w", installer.ErrConfiguration, path, err)
	}

	var record installer.Record
	if err = json.Unmarshal(contents, &record); err != nil {
		return nil, fmt.Errorf("%w: decode metadata %s: %w", installer.ErrConfiguration, path, err)
	}

	if _, err = semver.NewVersion(record.Version); err != nil {
		return nil, fmt.Errorf("%w: version %q: %w", installer.ErrConfiguration, record.Version, err)
	}

	installerPath := record.InstallerPath
	if installerPath == "" {
		// Extracted bundles keep the binary next to its sidecar.
		installerPath = filepath.Join(filepath.Dir(path), record.Filename)
	}

	info, err := os.Stat(installerPath)
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf(
			"%w: installer %s is not available, run 'make-installer' first",
			installer.ErrConfiguration, installerPath)
	}

	return record.WithInstallerPath(installerPath), nil
}

// resolvePath picks the explicit path or the conventional build folder location.
func resolvePath(opts Options) (string, error) {
	if opts.Path != "" {
		return opts.Path, nil
	}

	buildDir := opts.BuildDir
	if buildDir == "" {
		buildDir = config.DefaultBuildDir
	}

	info, err := os.Stat(buildDir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: build folder %s doesn't exist", installer.ErrConfiguration, buildDir)
	}

	return filepath.Join(buildDir, DefaultFilename), nil
}

// validateDocument checks raw JSON against the embedded schema.
func validateDocument(contents []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	decoder := json.NewDecoder(bytes.NewReader(contents))
	decoder.UseNumber()

	var document any
	if err = decoder.Decode(&document); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}

	return schema.Validate(document)
}
