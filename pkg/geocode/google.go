package geocode

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geodir/internal/model"
)

// DefaultGoogleURL is the Google Geocoding API endpoint.
const DefaultGoogleURL = "https://maps.googleapis.com/maps/api/geocode/json"

// Google geocodes through the Google Geocoding API.
type Google struct {
	BaseURL  string
	APIKey   string
	Region   string
	Language string
}

// NewGoogle creates a Google provider.
func NewGoogle(baseURL, apiKey string) *Google {
	if baseURL == "" {
		baseURL = DefaultGoogleURL
	}
	return &Google{BaseURL: baseURL, APIKey: apiKey}
}

// Name implements Provider.
func (p *Google) Name() string { return "google" }

type googleGeocodeResponse struct {
	Results      []googleResult `json:"results"`
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message"`
}

type googleResult struct {
	Geometry struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
		LocationType string `json:"location_type"`
	} `json:"geometry"`
	FormattedAddress string `json:"formatted_address"`
}

// Lookup implements Provider.
func (p *Google) Lookup(ctx context.Context, hc *http.Client, address string) (*Result, error) {
	if p.APIKey == "" {
		return nil, &Failure{Kind: ProviderError, Provider: p.Name(), Err: eris.New("geocode: google api key not configured")}
	}

	params := url.Values{
		"address": {address},
		"key":     {p.APIKey},
	}
	if p.Region != "" {
		params.Set("region", strings.Split(p.Region, ",")[0])
	}
	if p.Language != "" {
		params.Set("language", p.Language)
	}

	body, err := fetch(ctx, hc, p.Name(), p.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var resp googleGeocodeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &Failure{Kind: ProviderError, Provider: p.Name(), Raw: string(body), Err: eris.Wrap(err, "geocode: google parse response")}
	}

	switch resp.Status {
	case "OK":
		if len(resp.Results) == 0 {
			return nil, &Failure{Kind: NotFound, Provider: p.Name(), Raw: string(body), Err: eris.New("geocode: google returned OK with no results")}
		}
	case "ZERO_RESULTS":
		return nil, &Failure{Kind: NotFound, Provider: p.Name(), Raw: string(body), Err: eris.New("geocode: google returned no match")}
	default:
		return nil, &Failure{
			Kind:      ProviderError,
			Provider:  p.Name(),
			Raw:       string(body),
			Transient: resp.Status == "OVER_QUERY_LIMIT" || resp.Status == "UNKNOWN_ERROR",
			Err:       eris.Errorf("geocode: google status %s: %s", resp.Status, resp.ErrorMessage),
		}
	}

	r := resp.Results[0]
	return &Result{
		Point:       model.Point{Lon: r.Geometry.Location.Lng, Lat: r.Geometry.Location.Lat},
		Provider:    p.Name(),
		DisplayName: r.FormattedAddress,
		Quality:     googleLocationTypeToQuality(r.Geometry.LocationType),
	}, nil
}

// googleLocationTypeToQuality maps Google's location_type to our quality scale.
func googleLocationTypeToQuality(locType string) string {
	switch strings.ToUpper(locType) {
	case "ROOFTOP":
		return "rooftop"
	case "RANGE_INTERPOLATED":
		return "street"
	case "GEOMETRIC_CENTER":
		return "locality"
	default:
		return "approximate"
	}
}
