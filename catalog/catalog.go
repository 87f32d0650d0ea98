package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ShoshinNikita/camoview/camoview"
	"github.com/ShoshinNikita/camoview/pkg/rlog"
	_ "github.com/mattn/go-sqlite3" // register sqlite3 driver
)

const schema = `
CREATE TABLE IF NOT EXISTS camouflages (
	vehicle_name  TEXT    NOT NULL DEFAULT '',
	description   TEXT    NOT NULL DEFAULT '',
	image_urls    TEXT    NOT NULL DEFAULT '',
	zip_file_url  TEXT    NOT NULL DEFAULT '',
	hashtags      TEXT    NOT NULL DEFAULT '',
	file_size     TEXT    NOT NULL DEFAULT '',
	num_downloads INTEGER NOT NULL DEFAULT 0,
	num_likes     INTEGER NOT NULL DEFAULT 0,
	post_date     TEXT    NOT NULL DEFAULT '',
	nickname      TEXT    NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS custom_tags (
	name TEXT PRIMARY KEY
);`

// columns can be NULL in databases created by other tools.
const columns = `rowid,
	COALESCE(vehicle_name, ''), COALESCE(description, ''), COALESCE(image_urls, ''),
	COALESCE(zip_file_url, ''), COALESCE(hashtags, ''), COALESCE(file_size, ''),
	COALESCE(num_downloads, 0), COALESCE(num_likes, 0), COALESCE(post_date, ''),
	COALESCE(nickname, '')`

// listSeparator separates image urls and hashtags in a single column.
const listSeparator = ","

// Store is a catalog of camouflages backed by SQLite.
type Store struct {
	db *sql.DB
}

var _ camoview.Catalog = (*Store)(nil)

// Open opens or creates the database.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("couldn't create dir for database: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("couldn't open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("couldn't prepare schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Shutdown(context.Context) error {
	return s.db.Close()
}

func (s *Store) Count(ctx context.Context) (n int, err error) {
	err = s.db.QueryRowContext(ctx, "SELECT count(*) FROM camouflages").Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("couldn't count records: %w", err)
	}
	return n, nil
}

// RecordByIndex returns the record at the passed position in insertion order.
func (s *Store) RecordByIndex(ctx context.Context, index int) (camoview.Record, bool, error) {
	if index < 0 {
		return camoview.Record{}, false, nil
	}

	row := s.db.QueryRowContext(ctx, "SELECT "+columns+" FROM camouflages ORDER BY rowid LIMIT 1 OFFSET ?", index)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return camoview.Record{}, false, nil
		}
		return camoview.Record{}, false, fmt.Errorf("couldn't get record #%d: %w", index, err)
	}
	return rec, true, nil
}

// Search returns records whose vehicle name or description contains the query and that
// have all the passed tags. An empty query matches all records.
func (s *Store) Search(ctx context.Context, query string, tags []string) ([]camoview.Record, error) {
	var (
		where []string
		args  []any
	)
	if query = strings.TrimSpace(query); query != "" {
		pattern := "%" + escapeLike(query) + "%"
		where = append(where, `(vehicle_name LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	tags = splitList(strings.Join(tags, listSeparator))
	for _, tag := range tags {
		// Whole tags are matched after scanning, see hasTags.
		where = append(where, `hashtags LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(tag)+"%")
	}

	q := "SELECT " + columns + " FROM camouflages"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY rowid"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("couldn't search records: %w", err)
	}
	defer rows.Close()

	var res []camoview.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("couldn't scan record: %w", err)
		}
		if hasTags(rec, tags) {
			res = append(res, rec)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("couldn't read records: %w", err)
	}
	return res, nil
}

// Tags returns all hashtags in alphabetical order.
func (s *Store) Tags(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT hashtags FROM camouflages WHERE hashtags != ''")
	if err != nil {
		return nil, fmt.Errorf("couldn't query hashtags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("couldn't scan hashtags: %w", err)
		}
		tags = append(tags, splitList(v)...)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("couldn't read hashtags: %w", err)
	}

	slices.Sort(tags)
	return slices.Compact(tags), nil
}

// Insert adds records in a single transaction.
func (s *Store) Insert(ctx context.Context, records ...camoview.Record) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("couldn't begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				rlog.Errorf("couldn't rollback transaction: %s", rollbackErr)
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO camouflages (
			vehicle_name, description, image_urls, zip_file_url, hashtags,
			file_size, num_downloads, num_likes, post_date, nickname
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("couldn't prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		_, err := stmt.ExecContext(ctx,
			rec.VehicleName, rec.Description, joinList(rec.ImageURLs), rec.ArchiveURL, joinList(rec.Hashtags),
			rec.FileSize, rec.Downloads, rec.Likes, rec.PostDate, rec.Nickname,
		)
		if err != nil {
			return fmt.Errorf("couldn't insert record %q: %w", rec.VehicleName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("couldn't commit transaction: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (rec camoview.Record, err error) {
	var imageURLs, hashtags string
	err = row.Scan(
		&rec.ID, &rec.VehicleName, &rec.Description, &imageURLs, &rec.ArchiveURL, &hashtags,
		&rec.FileSize, &rec.Downloads, &rec.Likes, &rec.PostDate, &rec.Nickname,
	)
	if err != nil {
		return camoview.Record{}, err
	}
	rec.ImageURLs = splitList(imageURLs)
	rec.Hashtags = splitList(hashtags)
	return rec, nil
}

// hasTags reports whether the record has all tags. Tags are compared the same
// way [Store.Tags] lists them.
func hasTags(rec camoview.Record, tags []string) bool {
	for _, tag := range tags {
		if !slices.Contains(rec.Hashtags, tag) {
			return false
		}
	}
	return true
}

func joinList(values []string) string {
	res := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(strings.ReplaceAll(v, listSeparator, ""))
		if v != "" {
			res = append(res, v)
		}
	}
	return strings.Join(res, listSeparator)
}

func splitList(s string) []string {
	var res []string
	for v := range strings.SplitSeq(s, listSeparator) {
		if v = strings.TrimSpace(v); v != "" {
			res = append(res, v)
		}
	}
	return res
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
