package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/ncdata-cli/pkg/geocode"
)

// --- Geocode Mock ---

type mockGeocodeClient struct {
	mock.Mock
}

func (m *mockGeocodeClient) Geocode(ctx context.Context, addr geocode.AddressInput) (*geocode.Result, error) {
	args := m.Called(ctx, addr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*geocode.Result), args.Error(1)
}

func (m *mockGeocodeClient) BatchGeocode(ctx context.Context, addrs []geocode.AddressInput) ([]geocode.Result, error) {
	args := m.Called(ctx, addrs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]geocode.Result), args.Error(1)
}

// --- PageSource Fake ---

type fakePage struct {
	url  string
	html string
}

type fakePageSource struct {
	pages []fakePage
	err   error
}

func (f *fakePageSource) Visit(ctx context.Context, fn func(index int, url, html string) error) error {
	for i, p := range f.pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(i, p.url, p.html); err != nil {
			return err
		}
	}
	return f.err
}
