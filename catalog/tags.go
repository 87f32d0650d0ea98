package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/ShoshinNikita/camoview/pkg/rlog"
	"gopkg.in/yaml.v3"
)

// TagCollection is the format of exported tags.
type TagCollection struct {
	AvailableTags []string `yaml:"available_tags"`
	CustomTags    []string `yaml:"custom_tags"`
}

// CustomTags returns user-defined tags in alphabetical order.
func (s *Store) CustomTags(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM custom_tags ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("couldn't query custom tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("couldn't scan custom tag: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("couldn't read custom tags: %w", err)
	}
	return tags, nil
}

// AddCustomTags saves new custom tags. Every value can hold several comma-separated tags.
func (s *Store) AddCustomTags(ctx context.Context, values ...string) error {
	return s.writeCustomTags(ctx, false, splitList(strings.Join(values, listSeparator)))
}

// ExportTags writes all catalog and custom tags as YAML.
func (s *Store) ExportTags(ctx context.Context, w io.Writer) error {
	available, err := s.Tags(ctx)
	if err != nil {
		return err
	}
	custom, err := s.CustomTags(ctx)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(TagCollection{AvailableTags: available, CustomTags: custom}); err != nil {
		return fmt.Errorf("couldn't encode tags: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("couldn't encode tags: %w", err)
	}
	return nil
}

// ImportTags replaces custom tags with the ones from an exported collection. Available
// tags of the collection are skipped: they are always read from the records. It returns
// the number of custom tags.
func (s *Store) ImportTags(ctx context.Context, r io.Reader) (int, error) {
	var tags TagCollection
	if err := yaml.NewDecoder(r).Decode(&tags); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, errors.New("tags file is empty")
		}
		return 0, fmt.Errorf("couldn't decode tags: %w", err)
	}

	custom := splitList(strings.Join(tags.CustomTags, listSeparator))
	slices.Sort(custom)
	custom = slices.Compact(custom)

	if err := s.writeCustomTags(ctx, true, custom); err != nil {
		return 0, err
	}
	return len(custom), nil
}

func (s *Store) writeCustomTags(ctx context.Context, replace bool, tags []string) (err error) {
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

	if replace {
		if _, err := tx.ExecContext(ctx, "DELETE FROM custom_tags"); err != nil {
			return fmt.Errorf("couldn't remove custom tags: %w", err)
		}
	}
	for _, tag := range tags {
		if _, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO custom_tags (name) VALUES (?)", tag); err != nil {
			return fmt.Errorf("couldn't insert custom tag %q: %w", tag, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("couldn't commit transaction: %w", err)
	}
	return nil
}
