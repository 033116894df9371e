// Package imagebytes implements the Image Bytes Service (§4.5):
// UUID->path resolution, the path-confinement safety check, and an
// on-demand filesystem thumbnail cache.
package imagebytes

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"tivoli/internal/apperrors"
	"tivoli/internal/catalogstore"
	"tivoli/internal/logging"
	"tivoli/internal/workerpool"
)

const thumbnailDirName = ".thumbnails"

// Service resolves image bytes and generates clamped-width thumbnails.
type Service struct {
	store         *catalogstore.Store
	pool          *workerpool.Pool
	galleriesRoot string // canonicalised once at construction (§9.4)
	minWidth      int
	maxWidth      int
}

// NewService builds an Image Bytes Service rooted at galleriesRoot, which
// is canonicalised once here rather than per-request.
func NewService(store *catalogstore.Store, pool *workerpool.Pool, galleriesRoot string, minWidth, maxWidth int) (*Service, error) {
	canonical, err := filepath.EvalSymlinks(galleriesRoot)
	if err != nil {
		return nil, fmt.Errorf("canonicalise galleries root %s: %w", galleriesRoot, err)
	}
	abs, err := filepath.Abs(canonical)
	if err != nil {
		return nil, fmt.Errorf("absolute galleries root %s: %w", canonical, err)
	}

	return &Service{
		store:         store,
		pool:          pool,
		galleriesRoot: abs,
		minWidth:      minWidth,
		maxWidth:      maxWidth,
	}, nil
}

// GetImageFile resolves uuid to a confined path and returns either the
// original bytes (width == nil) or a cached/generated clamped-width JPEG
// thumbnail.
func (s *Service) GetImageFile(ctx context.Context, uuid string, width *int) ([]byte, error) {
	relativePath, err := s.lookupPath(ctx, uuid)
	if err != nil {
		return nil, err
	}

	absPath, err := s.confine(relativePath)
	if err != nil {
		return nil, err
	}

	if width == nil {
		data, err := os.ReadFile(absPath) //nolint:gosec // confine() has already verified containment
		if err != nil {
			return nil, apperrors.NotFoundf("image file for %s could not be read", uuid)
		}
		return data, nil
	}

	clamped := clampWidth(*width, s.minWidth, s.maxWidth)
	cachePath, err := s.cachePath(uuid, clamped)
	if err != nil {
		return nil, apperrors.Storage(err)
	}

	if data, err := os.ReadFile(cachePath); err == nil { //nolint:gosec // cachePath is derived, not user input
		return data, nil
	}

	result := <-workerpool.SubmitWait(s.pool, func() thumbnailResult {
		return generateThumbnail(absPath, cachePath, clamped)
	})
	if result.err != nil {
		return nil, result.err
	}
	return result.data, nil
}

func (s *Service) lookupPath(ctx context.Context, uuid string) (string, error) {
	var path string
	err := s.store.WithRead(ctx, func(db *sql.DB) error {
		row := db.QueryRowContext(ctx, `SELECT path FROM images WHERE uuid = ?`, uuid)
		if scanErr := row.Scan(&path); scanErr != nil {
			if scanErr == sql.ErrNoRows {
				return apperrors.NotFoundf("image %s not found", uuid)
			}
			return scanErr
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return path, nil
}

// confine joins relativePath with the galleries root, canonicalises it,
// and verifies it remains beneath the root. This invariant must never be
// relaxed.
func (s *Service) confine(relativePath string) (string, error) {
	joined := filepath.Join(s.galleriesRoot, relativePath)

	canonical, err := filepath.EvalSymlinks(joined)
	if err != nil {
		return "", apperrors.NotFoundf("image file does not exist")
	}

	rel, err := filepath.Rel(s.galleriesRoot, canonical)
	if err != nil || rel == ".." || hasParentEscape(rel) {
		return "", apperrors.BadRequest("resolved path escapes the galleries root")
	}

	return canonical, nil
}

func hasParentEscape(rel string) bool {
	return len(rel) >= 2 && rel[:2] == ".."
}

// cachePath derives the deterministic cache key "{uuid}_{width}.jpg" under
// the hidden thumbnail cache directory, creating the directory if needed.
func (s *Service) cachePath(uuid string, width int) (string, error) {
	dir := filepath.Join(s.galleriesRoot, thumbnailDirName)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", err
	}
	return filepath.Join(dir, fmt.Sprintf("%s_%d.jpg", uuid, width)), nil
}

func clampWidth(width, min, max int) int {
	if width < min {
		return min
	}
	if width > max {
		return max
	}
	return width
}

type thumbnailResult struct {
	data []byte
	err  error
}

// generateThumbnail decodes the source image, resizes to at most
// clampedWidth (preserving aspect ratio, never upscaling), encodes as
// JPEG, and best-effort writes the result to cachePath. A cache-write
// failure is logged and ignored; the bytes are still returned.
func generateThumbnail(sourcePath, cachePath string, clampedWidth int) thumbnailResult {
	src, err := imaging.Open(sourcePath, imaging.AutoOrientation(true))
	if err != nil {
		return thumbnailResult{err: apperrors.BadRequestf("failed to decode image: %v", err)}
	}

	out := src
	if src.Bounds().Dx() > clampedWidth {
		out = imaging.Resize(src, clampedWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return thumbnailResult{err: apperrors.BadRequestf("failed to encode thumbnail: %v", err)}
	}

	data := buf.Bytes()
	if err := writeCacheFile(cachePath, data); err != nil {
		logging.ImageBytesLogger.WithError(err).Warn("thumbnail cache write failed")
	}

	return thumbnailResult{data: data}
}

// writeCacheFile writes to a temporary file and renames into place so a
// concurrent reader never observes a partial thumbnail.
func writeCacheFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o640); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
