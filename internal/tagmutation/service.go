// Package tagmutation implements the Tag Mutation Service (§4.4):
// replace-all semantics for one image's tag associations, with reference
// validation and a background snapshot flush on success.
package tagmutation

import (
	"context"
	"database/sql"

	"tivoli/internal/apperrors"
	"tivoli/internal/catalogstore"
	"tivoli/internal/logging"
	"tivoli/internal/workerpool"
)

// Service implements replace_image_tags.
type Service struct {
	store *catalogstore.Store
	pool  *workerpool.Pool
}

// NewService builds a Tag Mutation Service over store, dispatching
// post-write flushes to pool.
func NewService(store *catalogstore.Store, pool *workerpool.Pool) *Service {
	return &Service{store: store, pool: pool}
}

// ReplaceImageTags verifies the image and every tag uuid exist, then
// atomically replaces the image's tag associations with the distinct set
// of tagUUIDs. On success it schedules a background flush and returns
// before the flush completes.
func (s *Service) ReplaceImageTags(ctx context.Context, imageUUID string, tagUUIDs []string) error {
	distinct := dedupe(tagUUIDs)

	err := s.store.WithWrite(ctx, func(db *sql.DB) error {
		exists, err := imageExists(ctx, db, imageUUID)
		if err != nil {
			return err
		}
		if !exists {
			return apperrors.NotFoundf("image %s not found", imageUUID)
		}

		for _, tagUUID := range distinct {
			ok, err := tagExists(ctx, db, tagUUID)
			if err != nil {
				return err
			}
			if !ok {
				return apperrors.BadRequestf("tag %s does not exist", tagUUID)
			}
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `DELETE FROM image_tags WHERE image_uuid = ?`, imageUUID); err != nil {
			return err
		}
		for _, tagUUID := range distinct {
			if _, err := tx.ExecContext(ctx, `INSERT INTO image_tags (image_uuid, tag_uuid) VALUES (?, ?)`, imageUUID, tagUUID); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return err
	}

	s.pool.Submit(func() {
		if flushErr := s.store.Flush(context.Background()); flushErr != nil {
			logging.TagLogger.WithError(flushErr).Warn("background snapshot flush failed")
		}
	})

	return nil
}

func imageExists(ctx context.Context, db *sql.DB, uuid string) (bool, error) {
	var one int
	err := db.QueryRowContext(ctx, `SELECT 1 FROM images WHERE uuid = ?`, uuid).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func tagExists(ctx context.Context, db *sql.DB, uuid string) (bool, error) {
	var one int
	err := db.QueryRowContext(ctx, `SELECT 1 FROM tags WHERE uuid = ?`, uuid).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// dedupe returns the distinct values of ss, preserving first-seen order.
func dedupe(ss []string) []string {
	seen := make(map[string]bool, len(ss))
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
