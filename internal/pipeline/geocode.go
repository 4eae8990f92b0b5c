package pipeline

import (
	"context"
	"strconv"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/ncdata-cli/internal/tabular"
	"github.com/sells-group/ncdata-cli/pkg/geocode"
)

// Columns written by GeocodeTable.
const (
	ColLatitude  = "Latitude"
	ColLongitude = "Longitude"
)

// GeocodeOptions names the address columns and bounds concurrency. Blank
// column names default to the SplitAddresses output columns.
type GeocodeOptions struct {
	StreetColumn string
	CityColumn   string
	StateColumn  string
	ZipColumn    string
	Concurrency  int
}

func (o GeocodeOptions) withDefaults() GeocodeOptions {
	if o.StreetColumn == "" {
		o.StreetColumn = ColStreet
	}
	if o.CityColumn == "" {
		o.CityColumn = ColCity
	}
	if o.StateColumn == "" {
		o.StateColumn = ColState
	}
	if o.ZipColumn == "" {
		o.ZipColumn = ColZip
	}
	if o.Concurrency < 1 {
		o.Concurrency = 1
	}
	return o
}

// GeocodeStats summarises a GeocodeTable run.
type GeocodeStats struct {
	Rows      int `json:"rows"`
	Matched   int `json:"matched"`
	Unmatched int `json:"unmatched"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// GeocodeTable adds Latitude and Longitude columns and fills them for every
// row whose address resolves. Unmatched, failed and blank-address rows keep
// empty coordinates; a failed row is logged and never aborts the run. Rows
// keep their input order.
func GeocodeTable(ctx context.Context, client geocode.Client, t *tabular.Table, opts GeocodeOptions) (GeocodeStats, error) {
	opts = opts.withDefaults()
	if t.Column(opts.StreetColumn) < 0 && t.Column(opts.CityColumn) < 0 {
		return GeocodeStats{}, eris.Errorf("pipeline: table has neither %q nor %q column", opts.StreetColumn, opts.CityColumn)
	}
	log := runLogger("geocode")

	type outcome struct {
		result *geocode.Result
		done   bool
	}
	outcomes := make([]outcome, len(t.Rows))
	var matched, unmatched, failed, skipped atomic.Int64

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(opts.Concurrency)

	for i := range t.Rows {
		addr := geocode.AddressInput{
			ID:      strconv.Itoa(i),
			Street:  t.Get(i, opts.StreetColumn),
			City:    t.Get(i, opts.CityColumn),
			State:   t.Get(i, opts.StateColumn),
			ZipCode: t.Get(i, opts.ZipColumn),
		}
		if addr.Street == "" && addr.City == "" && addr.State == "" && addr.ZipCode == "" {
			skipped.Add(1)
			continue
		}

		eg.Go(func() error {
			result, err := client.Geocode(gctx, addr)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				failed.Add(1)
				log.Warn("pipeline: geocode failed",
					zap.Int("row", i),
					zap.String("street", addr.Street),
					zap.String("city", addr.City),
					zap.Error(err),
				)
				return nil
			}
			if !result.Matched {
				unmatched.Add(1)
				return nil
			}
			matched.Add(1)
			outcomes[i] = outcome{result: result, done: true}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return GeocodeStats{}, eris.Wrap(err, "pipeline: geocode table")
	}

	t.AddColumn(ColLatitude)
	t.AddColumn(ColLongitude)
	for i, o := range outcomes {
		if !o.done {
			continue
		}
		if err := t.Set(i, ColLatitude, formatCoord(o.result.Latitude)); err != nil {
			return GeocodeStats{}, err
		}
		if err := t.Set(i, ColLongitude, formatCoord(o.result.Longitude)); err != nil {
			return GeocodeStats{}, err
		}
	}

	stats := GeocodeStats{
		Rows:      len(t.Rows),
		Matched:   int(matched.Load()),
		Unmatched: int(unmatched.Load()),
		Failed:    int(failed.Load()),
		Skipped:   int(skipped.Load()),
	}
	log.Info("pipeline: geocode complete",
		zap.Int("rows", stats.Rows),
		zap.Int("matched", stats.Matched),
		zap.Int("unmatched", stats.Unmatched),
		zap.Int("failed", stats.Failed),
		zap.Int("skipped", stats.Skipped),
	)
	return stats, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
