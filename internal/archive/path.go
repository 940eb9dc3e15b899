package archive

import (
	"path/filepath"
	"runtime"
	"strings"
)

const (
	extendedPrefix = `\\?\`
	uncPrefix      = `\\?\UNC\`
)

// ExtendedLengthPath rewrites an absolute Windows path into its
// extended-length form, which is not limited to MAX_PATH characters.
// Network shares (\\server\share) become \\?\UNC\server\share.
// Paths already in extended form are returned unchanged.
func ExtendedLengthPath(path string) string {
	switch {
	case strings.HasPrefix(path, extendedPrefix):
		return path
	case strings.HasPrefix(path, `\\`):
		return uncPrefix + path[2:]
	default:
		return extendedPrefix + path
	}
}

// platformPath makes an extraction target usable on the current OS.
func platformPath(path string) (string, error) {
	if runtime.GOOS != "windows" {
		return path, nil
	}

	if strings.HasPrefix(path, extendedPrefix) {
		return path, nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	return ExtendedLengthPath(abs), nil
}
