package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/rotisserie/eris"

	"github.com/sells-group/ncdata-cli/internal/resilience"
)

const (
	searchPath   = "/v1/geocode/search"
	sourceName   = "geoapify"
	maxErrorBody = 512
)

// searchResponse is the GeoJSON FeatureCollection returned by the search API.
type searchResponse struct {
	Features []searchFeature `json:"features"`
}

type searchFeature struct {
	Properties struct {
		Formatted  string `json:"formatted"`
		ResultType string `json:"result_type"`
		Rank       struct {
			Confidence float64 `json:"confidence"`
		} `json:"rank"`
	} `json:"properties"`
	Geometry struct {
		Type        string    `json:"type"`
		Coordinates []float64 `json:"coordinates"` // [lon, lat]
	} `json:"geometry"`
}

// search issues one rate-limited request for the free-text address.
func (g *geocoder) search(ctx context.Context, text string) (*Result, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: rate limit")
	}

	params := url.Values{
		"text":   {text},
		"apiKey": {g.apiKey},
	}
	reqURL := g.baseURL + searchPath + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		statusErr := eris.Errorf("geocode: geoapify returned status %d: %s", resp.StatusCode, snippet)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(statusErr, resp.StatusCode)
		}
		return nil, statusErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: read body")
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, eris.Wrap(err, "geocode: parse response")
	}
	return parseSearchResponse(sr), nil
}

// parseSearchResponse takes the first feature. A response without a usable
// point is unmatched.
func parseSearchResponse(sr searchResponse) *Result {
	if len(sr.Features) == 0 {
		return &Result{Source: sourceName, Matched: false}
	}
	f := sr.Features[0]
	if len(f.Geometry.Coordinates) < 2 {
		return &Result{Source: sourceName, Matched: false}
	}
	return &Result{
		Latitude:         f.Geometry.Coordinates[1],
		Longitude:        f.Geometry.Coordinates[0],
		Source:           sourceName,
		Quality:          qualityFor(f.Properties.ResultType),
		Confidence:       f.Properties.Rank.Confidence,
		FormattedAddress: f.Properties.Formatted,
		Matched:          true,
	}
}

// qualityFor maps a Geoapify result_type onto the coarse quality scale.
func qualityFor(resultType string) string {
	switch resultType {
	case "building", "amenity":
		return "rooftop"
	case "street":
		return "range"
	case "postcode", "suburb", "district", "city":
		return "centroid"
	default:
		return "approximate"
	}
}
