package csvsheet

import (
	"context"
	"encoding/csv"
	"os"
	"strings"
	"time"

	"github.com/BearBump/ShipQuery/internal/models"
	"github.com/pkg/errors"
)

// Reader loads new shipment rows from the order-entry sheet exported as CSV.
// Column headers vary between exports, so matching is by keyword.
type Reader struct {
	path string
}

func New(path string) *Reader {
	return &Reader{path: path}
}

type columns struct {
	tracking  int
	pickup    int
	dest      int
	reference int
	shipper   int
}

func (r *Reader) Load(ctx context.Context) ([]models.ShipmentImportInput, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, errors.Wrap(err, "open sheet")
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1 // exports often have ragged trailing columns

	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read sheet")
	}
	if len(records) == 0 {
		return nil, nil
	}

	cols, ok := matchColumns(records[0])
	if !ok {
		return nil, errors.Errorf("no tracking number column in %s", r.path)
	}

	seen := make(map[string]struct{})
	var out []models.ShipmentImportInput
	for _, row := range records[1:] {
		tn := strings.TrimSpace(cell(row, cols.tracking))
		if tn == "" {
			continue
		}
		if _, dup := seen[tn]; dup {
			continue
		}
		seen[tn] = struct{}{}

		out = append(out, models.ShipmentImportInput{
			TrackingNumber:    tn,
			PlannedPickupDate: parseSheetDate(cell(row, cols.pickup)),
			Destination:       strings.TrimSpace(cell(row, cols.dest)),
			ReferenceNumber:   strings.TrimSpace(cell(row, cols.reference)),
			ShipperInfo:       strings.TrimSpace(cell(row, cols.shipper)),
		})
	}
	return out, nil
}

func matchColumns(header []string) (columns, bool) {
	cols := columns{tracking: -1, pickup: -1, dest: -1, reference: -1, shipper: -1}
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		switch {
		case cols.tracking < 0 && strings.Contains(name, "tracking"):
			cols.tracking = i
		case cols.pickup < 0 && strings.Contains(name, "pickup"):
			cols.pickup = i
		case cols.dest < 0 && (strings.Contains(name, "destination") || strings.Contains(name, "ship to") || strings.Contains(name, "city")):
			cols.dest = i
		case cols.reference < 0 && (strings.Contains(name, "reference") || strings.Contains(name, "po ") || name == "po"):
			cols.reference = i
		case cols.shipper < 0 && strings.Contains(name, "shipper"):
			cols.shipper = i
		}
	}
	return cols, cols.tracking >= 0
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func parseSheetDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02", "02/01/2006", "02.01.2006"} {
		if d, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return &d
		}
	}
	return nil
}
