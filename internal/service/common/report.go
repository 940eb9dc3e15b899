//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"

	"github.com/oshokin/installer-uploader/internal/logger"
	"github.com/oshokin/installer-uploader/internal/notice"
)

// ReportError writes the error window payload for err to path.
// Nothing is written when path is empty or err is nil.
func ReportError(ctx context.Context, path string, err error, installerPath string) {
	if path == "" || err == nil {
		return
	}

	repo := notice.NewFileRepository(path)

	if saveErr := repo.Save(ctx, notice.FromError(err, installerPath)); saveErr != nil {
		logger.ErrorKV(ctx, "Unable to write error report", "path", repo.Path(), "error", saveErr)

		return
	}

	logger.InfoKV(ctx, "Error report written", "path", repo.Path())
}
