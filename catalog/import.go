package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ShoshinNikita/camoview/camoview"
	"github.com/ShoshinNikita/camoview/pkg/rlog"
	"gopkg.in/yaml.v3"
)

// ImportYAML inserts records from a YAML list. Records without a vehicle name are skipped.
func ImportYAML(ctx context.Context, store *Store, r io.Reader) (int, error) {
	var records []camoview.Record
	if err := yaml.NewDecoder(r).Decode(&records); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		return 0, fmt.Errorf("couldn't decode yaml: %w", err)
	}

	valid := records[:0]
	for i, rec := range records {
		if strings.TrimSpace(rec.VehicleName) == "" {
			rlog.Warnf("skip record #%d without vehicle name", i)
			continue
		}
		valid = append(valid, rec)
	}

	if err := store.Insert(ctx, valid...); err != nil {
		return 0, err
	}
	return len(valid), nil
}
