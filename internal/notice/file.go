package notice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/oshokin/installer-uploader/internal/config"
)

// Payload is what the error window shows.
type Payload struct {
	// Message is the human readable failure.
	Message string `json:"message"`
	// InstallerPath points at the installer the failure concerns, if known.
	InstallerPath string `json:"installer_path"`
}

// FileRepository persists the payload to a JSON file on disk.
type FileRepository struct {
	// path is the filesystem location of the payload file.
	path string
	// mu protects concurrent access to the payload file.
	mu sync.Mutex
}

var (
	// ErrNotFound is returned when the payload file does not exist.
	ErrNotFound = errors.New("error report not found")

	errNilPayload = errors.New("payload is nil")
)

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Path returns the payload file location.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the payload from disk.
func (r *FileRepository) Load(_ context.Context) (*Payload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read error report: %w", err)
	}

	var payload Payload
	if err = json.Unmarshal(contents, &payload); err != nil {
		return nil, fmt.Errorf("decode error report: %w", err)
	}

	return &payload, nil
}

// Save writes the payload to disk, creating the parent directory when needed.
func (r *FileRepository) Save(_ context.Context, payload *Payload) error {
	if payload == nil {
		return errNilPayload
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode error report: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("create error report directory: %w", err)
	}

	if err = os.WriteFile(r.path, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write error report: %w", err)
	}

	return nil
}

// FromError builds the payload for err.
func FromError(err error, installerPath string) *Payload {
	return &Payload{
		Message:       err.Error(),
		InstallerPath: installerPath,
	}
}
