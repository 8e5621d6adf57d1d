package geocode

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geodir/internal/model"
)

// Nominatim defaults. The public instance requires an identifying User-Agent.
const (
	DefaultNominatimURL = "https://nominatim.openstreetmap.org"
	DefaultUserAgent    = "geodir/1.0"
)

// Nominatim geocodes through an OpenStreetMap Nominatim instance.
type Nominatim struct {
	BaseURL      string
	UserAgent    string
	CountryCodes string // comma-separated ISO 3166-1 alpha-2 codes
	Language     string // accept-language
}

// NewNominatim creates a Nominatim provider. Empty arguments take defaults.
func NewNominatim(baseURL, userAgent string) *Nominatim {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Nominatim{BaseURL: strings.TrimRight(baseURL, "/"), UserAgent: userAgent}
}

// Name implements Provider.
func (n *Nominatim) Name() string { return "nominatim" }

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	PlaceRank   int    `json:"place_rank"`
}

// Lookup implements Provider.
func (n *Nominatim) Lookup(ctx context.Context, hc *http.Client, address string) (*Result, error) {
	params := url.Values{
		"q":      {address},
		"format": {"jsonv2"},
		"limit":  {"1"},
	}
	if n.CountryCodes != "" {
		params.Set("countrycodes", n.CountryCodes)
	}
	if n.Language != "" {
		params.Set("accept-language", n.Language)
	}

	header := http.Header{}
	header.Set("User-Agent", n.UserAgent)
	header.Set("Accept", "application/json")

	body, err := fetch(ctx, hc, n.Name(), n.BaseURL+"/search?"+params.Encode(), header)
	if err != nil {
		return nil, err
	}

	var places []nominatimPlace
	if err := json.Unmarshal(body, &places); err != nil {
		return nil, &Failure{Kind: ProviderError, Provider: n.Name(), Raw: string(body), Err: eris.Wrap(err, "geocode: nominatim parse response")}
	}
	if len(places) == 0 {
		return nil, &Failure{Kind: NotFound, Provider: n.Name(), Raw: string(body), Err: eris.New("geocode: nominatim returned no match")}
	}

	p := places[0]
	lat, latErr := strconv.ParseFloat(p.Lat, 64)
	lon, lonErr := strconv.ParseFloat(p.Lon, 64)
	if latErr != nil || lonErr != nil {
		return nil, &Failure{Kind: ProviderError, Provider: n.Name(), Raw: string(body), Err: eris.Errorf("geocode: nominatim unparseable coordinates %q, %q", p.Lat, p.Lon)}
	}

	return &Result{
		Point:       model.Point{Lon: lon, Lat: lat},
		Provider:    n.Name(),
		DisplayName: p.DisplayName,
		Quality:     placeRankToQuality(p.PlaceRank),
	}, nil
}

// placeRankToQuality maps Nominatim's place_rank onto a coarse precision
// scale shared with the Google provider.
func placeRankToQuality(rank int) string {
	switch {
	case rank >= 30:
		return "rooftop"
	case rank >= 26:
		return "street"
	case rank >= 16:
		return "locality"
	default:
		return "approximate"
	}
}
