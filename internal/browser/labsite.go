// Package browser drives headless Chrome through the NC certified-laboratory
// site and hands each lab detail page to a callback.
package browser

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ncdata-cli/internal/config"
)

// Defaults for the NC DHHS certified-laboratory site.
const (
	DefaultStartURL      = "https://slphreporting.dph.ncdhhs.gov/Certification/CertifiedLaboratory.asp"
	DefaultSelectXPath   = "//a[@href='#' and contains(@onclick, 'selectOnClick')]"
	DefaultLabLinkXPath  = "//a[contains(@href, 'Javascript:labNameOnClick')]"
	DefaultReadySelector = ".required"
	DefaultTimeout       = 10 * time.Second
)

// session is one browser tab. Waits honour the ctx deadline.
type session interface {
	Open(ctx context.Context, url string) error
	Click(ctx context.Context, xpath string, index int) error
	// WaitForXPath blocks until xpath matches and returns the match count.
	WaitForXPath(ctx context.Context, xpath string) (int, error)
	WaitForSelector(ctx context.Context, selector string) error
	HTML(ctx context.Context) (string, error)
	URL(ctx context.Context) string
	Back(ctx context.Context) error
	Close() error
}

// LabSite walks every lab detail page reachable from the certified-lab list.
type LabSite struct {
	StartURL      string
	SelectXPath   string
	LabLinkXPath  string
	ReadySelector string
	Timeout       time.Duration
	Headless      bool
	BrowserBin    string

	// MaxLabs caps the number of labs visited; 0 visits all.
	MaxLabs int

	start func(ctx context.Context) (session, error)
}

// NewLabSite builds a LabSite from scrape settings, filling blanks with the
// site defaults.
func NewLabSite(cfg config.ScrapeConfig) *LabSite {
	s := &LabSite{
		StartURL:      cfg.StartURL,
		SelectXPath:   cfg.SelectXPath,
		LabLinkXPath:  cfg.LabLinkXPath,
		ReadySelector: cfg.ReadySelector,
		Timeout:       time.Duration(cfg.TimeoutSecs) * time.Second,
		Headless:      cfg.Headless,
		BrowserBin:    cfg.BrowserBin,
		MaxLabs:       cfg.MaxLabs,
	}
	if s.StartURL == "" {
		s.StartURL = DefaultStartURL
	}
	if s.SelectXPath == "" {
		s.SelectXPath = DefaultSelectXPath
	}
	if s.LabLinkXPath == "" {
		s.LabLinkXPath = DefaultLabLinkXPath
	}
	if s.ReadySelector == "" {
		s.ReadySelector = DefaultReadySelector
	}
	if s.Timeout <= 0 {
		s.Timeout = DefaultTimeout
	}
	s.start = s.launch
	return s
}

// Visit opens the lab list and calls fn with each lab page's index, URL and
// rendered HTML, in list order. A lab that fails to load is logged and
// skipped. An error from fn stops the walk and is returned as is.
func (s *LabSite) Visit(ctx context.Context, fn func(index int, url, html string) error) error {
	sess, err := s.start(ctx)
	if err != nil {
		return err
	}
	defer sess.Close() //nolint:errcheck

	total, err := s.openList(ctx, sess)
	if err != nil {
		return err
	}
	if s.MaxLabs > 0 && total > s.MaxLabs {
		total = s.MaxLabs
	}
	zap.L().Info("browser: lab list loaded", zap.Int("labs", total))

	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return eris.Wrap(err, "browser: visit cancelled")
		}

		url, html, err := s.visitLab(ctx, sess, i)
		if err != nil {
			zap.L().Warn("browser: lab page failed", zap.Int("index", i), zap.Error(err))
			if rerr := s.restoreList(ctx, sess); rerr != nil {
				return rerr
			}
			continue
		}

		if err := fn(i, url, html); err != nil {
			return err
		}

		if err := s.backToList(ctx, sess); err != nil {
			zap.L().Warn("browser: back to lab list failed", zap.Int("index", i), zap.Error(err))
			if rerr := s.restoreList(ctx, sess); rerr != nil {
				return rerr
			}
		}
	}
	return nil
}

// openList loads the start page, reveals the lab table and returns how many
// lab links it holds.
func (s *LabSite) openList(ctx context.Context, sess session) (int, error) {
	if err := s.step(ctx, func(ctx context.Context) error { return sess.Open(ctx, s.StartURL) }); err != nil {
		return 0, eris.Wrapf(err, "browser: open %s", s.StartURL)
	}
	if err := s.step(ctx, func(ctx context.Context) error { return sess.Click(ctx, s.SelectXPath, 0) }); err != nil {
		return 0, eris.Wrap(err, "browser: open lab list")
	}

	var n int
	err := s.step(ctx, func(ctx context.Context) error {
		var werr error
		n, werr = sess.WaitForXPath(ctx, s.LabLinkXPath)
		return werr
	})
	if err != nil {
		return 0, eris.Wrap(err, "browser: wait for lab links")
	}
	return n, nil
}

// visitLab clicks the i-th lab link. Links are looked up again on every call
// because the list page is rebuilt after each back navigation.
func (s *LabSite) visitLab(ctx context.Context, sess session, i int) (url, html string, err error) {
	if err := s.step(ctx, func(ctx context.Context) error { return sess.Click(ctx, s.LabLinkXPath, i) }); err != nil {
		return "", "", eris.Wrapf(err, "browser: click lab %d", i)
	}
	if err := s.step(ctx, func(ctx context.Context) error { return sess.WaitForSelector(ctx, s.ReadySelector) }); err != nil {
		return "", "", eris.Wrapf(err, "browser: wait for lab %d detail", i)
	}

	err = s.step(ctx, func(ctx context.Context) error {
		var herr error
		html, herr = sess.HTML(ctx)
		return herr
	})
	if err != nil {
		return "", "", eris.Wrapf(err, "browser: read lab %d html", i)
	}
	return sess.URL(ctx), html, nil
}

func (s *LabSite) backToList(ctx context.Context, sess session) error {
	if err := s.step(ctx, sess.Back); err != nil {
		return eris.Wrap(err, "browser: navigate back")
	}
	err := s.step(ctx, func(ctx context.Context) error {
		_, werr := sess.WaitForXPath(ctx, s.LabLinkXPath)
		return werr
	})
	return eris.Wrap(err, "browser: wait for lab links")
}

// restoreList gets back to the lab list after a failure, reloading from the
// start page when history navigation does not get there.
func (s *LabSite) restoreList(ctx context.Context, sess session) error {
	if err := s.backToList(ctx, sess); err == nil {
		return nil
	}
	_, err := s.openList(ctx, sess)
	return err
}

// step runs fn under the per-step timeout.
func (s *LabSite) step(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()
	return fn(ctx)
}
