package browser

import (
	"context"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rotisserie/eris"
)

// rodSession is a session backed by a single go-rod page.
type rodSession struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

// launch starts Chrome and opens a blank tab.
func (s *LabSite) launch(ctx context.Context) (session, error) {
	l := launcher.New().Context(ctx).Headless(s.Headless)
	if s.BrowserBin != "" {
		l = l.Bin(s.BrowserBin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, eris.Wrap(err, "browser: launch chrome")
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, eris.Wrap(err, "browser: connect")
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = b.Close()
		l.Kill()
		return nil, eris.Wrap(err, "browser: open tab")
	}
	return &rodSession{launcher: l, browser: b, page: page}, nil
}

func (r *rodSession) Open(ctx context.Context, url string) error {
	p := r.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return err
	}
	if err := p.WaitLoad(); err != nil {
		return err
	}
	_, err := p.Element("body")
	return err
}

func (r *rodSession) Click(ctx context.Context, xpath string, index int) error {
	p := r.page.Context(ctx)
	// Wait for at least one match, then take a fresh snapshot of all of them.
	if _, err := p.ElementX(xpath); err != nil {
		return err
	}
	els, err := p.ElementsX(xpath)
	if err != nil {
		return err
	}
	if index >= len(els) {
		return eris.Errorf("browser: %d matches for %s, want index %d", len(els), xpath, index)
	}
	return els[index].Click(proto.InputMouseButtonLeft, 1)
}

func (r *rodSession) WaitForXPath(ctx context.Context, xpath string) (int, error) {
	p := r.page.Context(ctx)
	if _, err := p.ElementX(xpath); err != nil {
		return 0, err
	}
	els, err := p.ElementsX(xpath)
	if err != nil {
		return 0, err
	}
	return len(els), nil
}

func (r *rodSession) WaitForSelector(ctx context.Context, selector string) error {
	_, err := r.page.Context(ctx).Element(selector)
	return err
}

func (r *rodSession) HTML(ctx context.Context) (string, error) {
	return r.page.Context(ctx).HTML()
}

func (r *rodSession) URL(ctx context.Context) string {
	info, err := r.page.Context(ctx).Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (r *rodSession) Back(ctx context.Context) error {
	return r.page.Context(ctx).NavigateBack()
}

func (r *rodSession) Close() error {
	err := r.browser.Close()
	r.launcher.Kill()
	r.launcher.Cleanup()
	return eris.Wrap(err, "browser: close")
}
