package geocode

import (
	"context"
	"io"
	"net/http"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geodir/internal/resilience"
)

// maxBodyBytes caps how much of a provider response is read.
const maxBodyBytes = 1 << 20

// Provider is a single geocoding backend. Lookup returns a *Failure for
// every unsuccessful outcome.
type Provider interface {
	Name() string
	Lookup(ctx context.Context, hc *http.Client, address string) (*Result, error)
}

// NewProvider returns the provider registered under name.
func NewProvider(name, baseURL, apiKey, userAgent, countryCodes, language string) (Provider, error) {
	switch name {
	case "", "nominatim":
		n := NewNominatim(baseURL, userAgent)
		n.CountryCodes = countryCodes
		n.Language = language
		return n, nil
	case "google":
		if apiKey == "" {
			return nil, eris.New("geocode: google provider requires an api key")
		}
		gp := NewGoogle(baseURL, apiKey)
		gp.Region = countryCodes
		gp.Language = language
		return gp, nil
	default:
		return nil, eris.Errorf("geocode: unknown provider %q", name)
	}
}

// fetch performs a GET and returns the body of a 2xx response. Anything else
// becomes a ProviderError.
func fetch(ctx context.Context, hc *http.Client, provider, reqURL string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &Failure{Kind: ProviderError, Provider: provider, Err: eris.Wrapf(err, "geocode: %s build request", provider)}
	}
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, &Failure{
			Kind:      ProviderError,
			Provider:  provider,
			Transient: resilience.IsTransient(err),
			Err:       eris.Wrapf(err, "geocode: %s request", provider),
		}
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &Failure{
			Kind:      ProviderError,
			Provider:  provider,
			Transient: resilience.IsTransient(err),
			Err:       eris.Wrapf(err, "geocode: %s read body", provider),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Failure{
			Kind:       ProviderError,
			Provider:   provider,
			StatusCode: resp.StatusCode,
			Raw:        string(body),
			Transient:  resilience.IsTransientHTTPStatus(resp.StatusCode),
			Err:        eris.Errorf("geocode: %s returned status %d", provider, resp.StatusCode),
		}
	}
	return body, nil
}
