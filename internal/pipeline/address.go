package pipeline

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ncdata-cli/internal/address"
	"github.com/sells-group/ncdata-cli/internal/tabular"
)

// Columns written by SplitAddresses.
const (
	ColStreet = "streetAddress"
	ColCity   = "City"
	ColState  = "State"
	ColZip    = "Zip"
)

// SplitStats summarises a SplitAddresses run.
type SplitStats struct {
	Rows       int `json:"rows"`
	Parsed     int `json:"parsed"`
	Unparsable int `json:"unparsable"`
}

// SplitAddresses replaces the free-text address column with streetAddress,
// City, State and Zip columns appended at the end. Blank cells and addresses
// with fewer than three comma-separated parts leave all four empty. The table
// is modified in place and returned.
func SplitAddresses(t *tabular.Table, column string) (*tabular.Table, SplitStats, error) {
	src := t.Column(column)
	if src < 0 {
		return nil, SplitStats{}, eris.Errorf("pipeline: address column %q not found", column)
	}
	log := runLogger("address_split")

	parsed := make([]address.ParsedAddress, len(t.Rows))
	for i := range t.Rows {
		parsed[i] = address.SplitString(t.Get(i, column))
	}

	t.DropColumn(column)
	for _, c := range []string{ColStreet, ColCity, ColState, ColZip} {
		t.AddColumn(c)
	}

	stats := SplitStats{Rows: len(t.Rows)}
	for i, p := range parsed {
		if p.Empty() {
			stats.Unparsable++
			log.Debug("pipeline: address not split", zap.Int("row", i))
		} else {
			stats.Parsed++
		}
		street, city, state, zip := p.Fields()
		for col, v := range map[string]string{ColStreet: street, ColCity: city, ColState: state, ColZip: zip} {
			if err := t.Set(i, col, v); err != nil {
				return nil, stats, err
			}
		}
	}

	log.Info("pipeline: addresses split",
		zap.Int("rows", stats.Rows),
		zap.Int("parsed", stats.Parsed),
		zap.Int("unparsable", stats.Unparsable),
	)
	return t, stats, nil
}
