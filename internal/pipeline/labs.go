package pipeline

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ncdata-cli/internal/extract"
	"github.com/sells-group/ncdata-cli/internal/tabular"
)

// PageSource yields rendered pages one at a time. Visit stops at the first
// error fn returns.
type PageSource interface {
	Visit(ctx context.Context, fn func(index int, url, html string) error) error
}

// RowCollector turns a page's HTML into labeled rows.
type RowCollector interface {
	Collect(html string) ([]extract.Row, error)
}

// LabStats summarises a ScrapeLabs run.
type LabStats struct {
	Pages     int `json:"pages"`
	Extracted int `json:"extracted"`
	Failed    int `json:"failed"`
}

// ScrapeLabs extracts one record per page from src. A page that cannot be
// parsed or is missing a field the schema indexes is logged and skipped;
// the remaining pages still produce records. Records come back in visit order.
func ScrapeLabs(ctx context.Context, src PageSource, collector RowCollector, schema extract.Schema) ([]extract.Record, LabStats, error) {
	if err := schema.Validate(); err != nil {
		return nil, LabStats{}, err
	}
	log := runLogger("labs_scrape")

	var (
		records []extract.Record
		stats   LabStats
	)
	err := src.Visit(ctx, func(index int, url, html string) error {
		stats.Pages++
		pageLog := log.With(zap.Int("page", index), zap.String("url", url))

		rows, err := collector.Collect(html)
		if err != nil {
			stats.Failed++
			pageLog.Warn("pipeline: collect rows failed", zap.Error(err))
			return nil
		}

		rec, err := extract.Extract(rows, schema)
		if err != nil {
			stats.Failed++
			var exErr *extract.ExtractionError
			if errors.As(err, &exErr) {
				pageLog.Warn("pipeline: lab record incomplete",
					zap.String("field", exErr.Field),
					zap.Int("index", exErr.Index),
					zap.Int("values", exErr.Length),
				)
				return nil
			}
			pageLog.Error("pipeline: extract failed", zap.Error(err))
			return nil
		}

		records = append(records, rec)
		stats.Extracted++
		pageLog.Debug("pipeline: lab extracted", zap.String("name", rec.Value(firstColumn(schema))))
		return nil
	})

	log.Info("pipeline: lab scrape complete",
		zap.Int("pages", stats.Pages),
		zap.Int("extracted", stats.Extracted),
		zap.Int("failed", stats.Failed),
	)
	if err != nil {
		return records, stats, eris.Wrap(err, "pipeline: visit lab pages")
	}
	return records, stats, nil
}

func firstColumn(schema extract.Schema) string {
	if cols := schema.Columns(); len(cols) > 0 {
		return cols[0]
	}
	return ""
}

// RecordsTable lays records out in schema column order, list fields joined
// into single cells, then applies the column moves.
func RecordsTable(records []extract.Record, schema extract.Schema, moves []tabular.Move) (*tabular.Table, error) {
	header := schema.Columns()
	t := tabular.New(header...)
	for _, rec := range records {
		t.Append(rec.Values(header))
	}
	if err := t.MoveColumns(moves); err != nil {
		return nil, err
	}
	return t, nil
}
