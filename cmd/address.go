package main

import (
	"context"
	"os"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/ncdata-cli/internal/fetcher"
	"github.com/sells-group/ncdata-cli/internal/pipeline"
	"github.com/sells-group/ncdata-cli/internal/resilience"
	"github.com/sells-group/ncdata-cli/internal/store"
	"github.com/sells-group/ncdata-cli/internal/tabular"
	"github.com/sells-group/ncdata-cli/pkg/geocode"
)

var (
	addressIn       string
	addressOut      string
	addressColumn   string
	addressEncoding string
	addressFormat   string
	addressNoSplit  bool
)

var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Split and geocode address tables",
}

var addressSplitCmd = &cobra.Command{
	Use:   "split",
	Short: "Split a free-text address column into street, city, state and zip",
	RunE: func(cmd *cobra.Command, _ []string) error {
		tbl, err := readAddressTable(cmd.Context())
		if err != nil {
			return err
		}
		if _, _, err := pipeline.SplitAddresses(tbl, addressColumnName()); err != nil {
			return err
		}
		return writeTable(addressOut, addressFormat, tbl)
	},
}

var addressGeocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Split addresses and add Latitude/Longitude columns",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("geocode"); err != nil {
			return err
		}

		tbl, err := readAddressTable(ctx)
		if err != nil {
			return err
		}
		if !addressNoSplit {
			if _, _, err := pipeline.SplitAddresses(tbl, addressColumnName()); err != nil {
				return err
			}
		}

		client, cache, err := newGeocodeClient(ctx)
		if err != nil {
			return err
		}
		if cache != nil {
			defer cache.Close() //nolint:errcheck
		}

		stats, err := pipeline.GeocodeTable(ctx, client, tbl, pipeline.GeocodeOptions{
			Concurrency: cfg.Geocode.Concurrency,
		})
		if err != nil {
			return err
		}
		if stats.Failed > 0 {
			zap.L().Warn("some addresses failed to geocode", zap.Int("failed", stats.Failed))
		}
		return writeTable(addressOut, addressFormat, tbl)
	},
}

func addressColumnName() string {
	if addressColumn != "" {
		return addressColumn
	}
	return cfg.Address.Column
}

func readAddressTable(ctx context.Context) (*tabular.Table, error) {
	encoding := addressEncoding
	if encoding == "" {
		encoding = cfg.Address.Encoding
	}
	opts := tabular.CSVOptions{Encoding: encoding, LazyQuotes: true}
	if r, _ := utf8.DecodeRuneInString(cfg.Address.Delimiter); r != utf8.RuneError {
		opts.Delimiter = r
	}

	tmp, err := os.MkdirTemp("", "ncdata-in-*")
	if err != nil {
		return nil, eris.Wrap(err, "create download dir")
	}
	defer os.RemoveAll(tmp) //nolint:errcheck

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		Retry: resilience.FromSettings(cfg.Retry.MaxAttempts, cfg.Retry.InitialBackoffMs, cfg.Retry.MaxBackoffMs),
	})
	path, err := fetcher.Localize(ctx, f, addressIn, tmp)
	if err != nil {
		return nil, err
	}

	tbl, err := tabular.Read(ctx, path, opts)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", addressIn)
	}
	zap.L().Info("loaded address table", zap.String("path", addressIn), zap.Int("rows", len(tbl.Rows)))
	return tbl, nil
}

// newGeocodeClient builds the Geoapify client and, when a store driver is
// configured, its result cache. The caller closes the returned store.
func newGeocodeClient(ctx context.Context) (geocode.Client, store.Store, error) {
	cache, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, nil, eris.Wrap(err, "open geocode cache")
	}

	opts := []geocode.Option{
		geocode.WithAPIKey(cfg.Geocode.APIKey),
		geocode.WithRateLimit(cfg.Geocode.RateLimit),
		geocode.WithBatchConcurrency(cfg.Geocode.Concurrency),
		geocode.WithRetry(resilience.FromSettings(cfg.Retry.MaxAttempts, cfg.Retry.InitialBackoffMs, cfg.Retry.MaxBackoffMs)),
	}
	if cfg.Geocode.BaseURL != "" {
		opts = append(opts, geocode.WithBaseURL(cfg.Geocode.BaseURL))
	}
	if cache != nil {
		opts = append(opts,
			geocode.WithCache(cache),
			geocode.WithCacheTTL(time.Duration(cfg.Geocode.CacheTTLDays)*24*time.Hour),
		)
		if n, err := cache.DeleteExpired(ctx); err != nil {
			zap.L().Warn("geocode cache cleanup failed", zap.Error(err))
		} else if n > 0 {
			zap.L().Info("geocode cache cleanup", zap.Int("deleted", n))
		}
	}

	client, err := geocode.NewClient(opts...)
	if err != nil {
		if cache != nil {
			_ = cache.Close()
		}
		return nil, nil, err
	}
	return client, cache, nil
}

func writeTable(path, format string, tbl *tabular.Table) error {
	if format == "" {
		format = cfg.Output.Format
	}
	if err := tabular.Write(path, format, tbl); err != nil {
		return eris.Wrapf(err, "write %s", path)
	}
	zap.L().Info("wrote table", zap.String("path", path), zap.Int("rows", len(tbl.Rows)))
	return nil
}

func init() {
	for _, c := range []*cobra.Command{addressSplitCmd, addressGeocodeCmd} {
		c.Flags().StringVar(&addressIn, "in", "", "input CSV or XLSX file or http(s) URL (required)")
		c.Flags().StringVar(&addressOut, "out", "", "output file (required)")
		c.Flags().StringVar(&addressColumn, "column", "", "address column (default from config, \"Address\")")
		c.Flags().StringVar(&addressEncoding, "encoding", "", "input CSV encoding: utf-8, latin1, windows-1252")
		c.Flags().StringVar(&addressFormat, "format", "", "output format: csv or xlsx (default from extension)")
		_ = c.MarkFlagRequired("in")
		_ = c.MarkFlagRequired("out")
		addressCmd.AddCommand(c)
	}
	addressGeocodeCmd.Flags().BoolVar(&addressNoSplit, "no-split", false, "input already has streetAddress/City/State/Zip columns")
	rootCmd.AddCommand(addressCmd)
}
