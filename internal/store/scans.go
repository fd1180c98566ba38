package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"picsift/internal/identity"
	"picsift/internal/logging"
	"picsift/internal/scanresult"
)

// LatestRef selects the most recently created scan.
const LatestRef = "latest"

const (
	kindUnique = "unique"
	kindGroup  = "group"
)

// Summary describes a stored scan without loading its entries.
type Summary struct {
	ID            string
	CreatedAt     time.Time
	Mode          scanresult.DetectionMode
	Roots         []string
	Extensions    []string
	Uniques       int
	Groups        int
	Files         int
	DistinctBytes int64
}

// Save stores result, replacing any earlier scan with the same ID.
func (s *Store) Save(ctx context.Context, result *scanresult.Result) error {
	if result == nil || result.ID == "" {
		return errors.New("save scan: result has no ID")
	}
	roots, err := json.Marshal(nonNil(result.Roots))
	if err != nil {
		return fmt.Errorf("encode roots: %w", err)
	}
	exts, err := json.Marshal(nonNil(result.Extensions))
	if err != nil {
		return fmt.Errorf("encode extensions: %w", err)
	}

	// Flatten before taking the lock; pending checksums are computed here.
	uniques := make([]identity.Record, len(result.Uniques))
	for i, u := range result.Uniques {
		uniques[i] = identity.ToRecord(u)
	}
	groups := make([]identity.Record, len(result.Duplicates))
	for i, g := range result.Duplicates {
		groups[i] = identity.ToRecord(g.Identity)
	}

	err = s.withWriteLock(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin save tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, "DELETE FROM scans WHERE id = ?", result.ID); err != nil {
			return fmt.Errorf("replace scan: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO scans (id, created_at, mode, roots, extensions, unique_count, group_count, file_count, distinct_bytes)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			result.ID, result.CreatedAt.UnixNano(), string(result.Mode), string(roots), string(exts),
			len(result.Uniques), len(result.Duplicates), result.TotalFiles(), result.DistinctSize(),
		); err != nil {
			return fmt.Errorf("insert scan: %w", err)
		}

		entry, err := tx.PrepareContext(ctx,
			`INSERT INTO entries (scan_id, kind, seq, path, mod_time, size, exif_date, checksum, mode)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare entry insert: %w", err)
		}
		defer entry.Close()
		insert := func(kind string, seq int, rec identity.Record) error {
			_, err := entry.ExecContext(ctx, result.ID, kind, seq, rec.Path, unixNano(rec.ModTime),
				rec.Size, rec.ExifDate, rec.Checksum, string(rec.Mode))
			return err
		}
		for i, rec := range uniques {
			if err := insert(kindUnique, i, rec); err != nil {
				return fmt.Errorf("insert unique %s: %w", rec.Path, err)
			}
		}

		member, err := tx.PrepareContext(ctx, "INSERT OR IGNORE INTO group_paths (scan_id, group_seq, path) VALUES (?, ?, ?)")
		if err != nil {
			return fmt.Errorf("prepare group insert: %w", err)
		}
		defer member.Close()
		for i, rec := range groups {
			if err := insert(kindGroup, i, rec); err != nil {
				return fmt.Errorf("insert group %s: %w", rec.Path, err)
			}
			for _, p := range result.Duplicates[i].Paths {
				if _, err := member.ExecContext(ctx, result.ID, i, p); err != nil {
					return fmt.Errorf("insert group path %s: %w", p, err)
				}
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit scan: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("scan saved",
		logging.String(logging.FieldScanID, result.ID),
		logging.Int("uniques", len(result.Uniques)),
		logging.Int("groups", len(result.Duplicates)),
	)
	return nil
}

// Load returns the scan named by ref: a full ID, a unique ID prefix, or
// LatestRef. An empty ref means LatestRef.
func (s *Store) Load(ctx context.Context, ref string) (*scanresult.Result, error) {
	ctx = ensureContext(ctx)
	id, err := s.resolveID(ctx, ref)
	if err != nil {
		return nil, err
	}

	var (
		createdAt   int64
		mode        string
		roots, exts string
	)
	err = s.db.QueryRowContext(ctx,
		"SELECT created_at, mode, roots, extensions FROM scans WHERE id = ?", id,
	).Scan(&createdAt, &mode, &roots, &exts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load scan %s: %w", id, err)
	}

	result := &scanresult.Result{
		ID:        id,
		Mode:      scanresult.DetectionMode(mode),
		CreatedAt: time.Unix(0, createdAt).UTC(),
	}
	if err := json.Unmarshal([]byte(roots), &result.Roots); err != nil {
		return nil, fmt.Errorf("decode roots of %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(exts), &result.Extensions); err != nil {
		return nil, fmt.Errorf("decode extensions of %s: %w", id, err)
	}

	paths, err := s.groupPaths(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, seq, path, mod_time, size, exif_date, checksum, mode
		 FROM entries WHERE scan_id = ? ORDER BY kind, seq`, id)
	if err != nil {
		return nil, fmt.Errorf("load entries of %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			kind    string
			seq     int
			modTime int64
			rec     identity.Record
			recMode string
		)
		if err := rows.Scan(&kind, &seq, &rec.Path, &modTime, &rec.Size, &rec.ExifDate, &rec.Checksum, &recMode); err != nil {
			return nil, fmt.Errorf("scan entry of %s: %w", id, err)
		}
		rec.Mode = identity.Mode(recMode)
		if modTime != 0 {
			rec.ModTime = time.Unix(0, modTime)
		}
		ident, err := identity.FromRecord(rec)
		if err != nil {
			return nil, err
		}
		switch kind {
		case kindUnique:
			result.Uniques = append(result.Uniques, ident)
		case kindGroup:
			result.Duplicates = append(result.Duplicates, scanresult.Group{Identity: ident, Paths: paths[seq]})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result.Sort()
	return result, nil
}

func (s *Store) groupPaths(ctx context.Context, id string) (map[int][]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT group_seq, path FROM group_paths WHERE scan_id = ? ORDER BY group_seq, path", id)
	if err != nil {
		return nil, fmt.Errorf("load group paths of %s: %w", id, err)
	}
	defer rows.Close()

	paths := make(map[int][]string)
	for rows.Next() {
		var (
			seq  int
			path string
		)
		if err := rows.Scan(&seq, &path); err != nil {
			return nil, err
		}
		paths[seq] = append(paths[seq], path)
	}
	return paths, rows.Err()
}

func (s *Store) resolveID(ctx context.Context, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.EqualFold(ref, LatestRef) {
		var id string
		err := s.db.QueryRowContext(ctx,
			"SELECT id FROM scans ORDER BY created_at DESC, rowid DESC LIMIT 1").Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: history is empty", ErrNotFound)
		}
		if err != nil {
			return "", fmt.Errorf("find latest scan: %w", err)
		}
		return id, nil
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM scans WHERE id = ? OR substr(id, 1, ?) = ? LIMIT 2", ref, len(ref), ref)
	if err != nil {
		return "", fmt.Errorf("find scan %s: %w", ref, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", err
		}
		if id == ref {
			return id, nil
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrNotFound, ref)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrAmbiguous, ref)
	}
}

// List returns stored scans, newest first.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, mode, roots, extensions, unique_count, group_count, file_count, distinct_bytes
		 FROM scans ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum         Summary
			createdAt   int64
			mode        string
			roots, exts string
		)
		if err := rows.Scan(&sum.ID, &createdAt, &mode, &roots, &exts,
			&sum.Uniques, &sum.Groups, &sum.Files, &sum.DistinctBytes); err != nil {
			return nil, err
		}
		sum.CreatedAt = time.Unix(0, createdAt).UTC()
		sum.Mode = scanresult.DetectionMode(mode)
		_ = json.Unmarshal([]byte(roots), &sum.Roots)
		_ = json.Unmarshal([]byte(exts), &sum.Extensions)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes the scan named by ref.
func (s *Store) Delete(ctx context.Context, ref string) (string, error) {
	ctx = ensureContext(ctx)
	id, err := s.resolveID(ctx, ref)
	if err != nil {
		return "", err
	}
	err = s.withWriteLock(ctx, func() error {
		_, err := s.db.ExecContext(ctx, "DELETE FROM scans WHERE id = ?", id)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("delete scan %s: %w", id, err)
	}
	return id, nil
}

// Clear removes every stored scan and returns how many were deleted.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)
	var removed int64
	err := s.withWriteLock(ctx, func() error {
		res, err := s.db.ExecContext(ctx, "DELETE FROM scans")
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("clear history: %w", err)
	}
	s.logger.Info("history cleared", logging.Int64("scans", removed))
	return removed, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}
