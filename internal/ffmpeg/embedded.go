//go:build ffmpeg_embedded

package ffmpeg

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
)

// release archives bundled at build time, named as assetForPlatform returns
//
//go:embed assets/*
var bundledArchives embed.FS

// openEmbeddedAsset opens a bundled archive. ok is false when this build
// carries no archive for the platform.
func openEmbeddedAsset(name string) (io.ReadCloser, bool, error) {
	f, err := bundledArchives.Open(path.Join("assets", name))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("failed to open bundled ffmpeg archive %s: %w", name, err)
	}
	return f, true, nil
}
