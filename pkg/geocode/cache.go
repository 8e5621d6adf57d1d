package geocode

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geodir/internal/db"
)

// resultCache stores successful resolutions in public.geocode_cache.
// Misses are never stored.
type resultCache struct {
	pool    db.Pool
	ttlDays int
}

// cacheKey returns the SHA-256 hex of provider and normalized address.
func cacheKey(provider, address string) string {
	normalized := provider + "|" + strings.ToLower(strings.Join(strings.Fields(address), " "))
	return fmt.Sprintf("%x", sha256.Sum256([]byte(normalized)))
}

func (c *resultCache) get(ctx context.Context, key string) (*Result, error) {
	query := `SELECT lon, lat, provider, display_name, quality FROM geocode_cache WHERE address_hash = $1`
	args := []any{key}
	if c.ttlDays > 0 {
		query += ` AND cached_at > now() - make_interval(days => $2)`
		args = append(args, c.ttlDays)
	}

	var r Result
	err := c.pool.QueryRow(ctx, query, args...).Scan(
		&r.Point.Lon, &r.Point.Lat, &r.Provider, &r.DisplayName, &r.Quality,
	)
	if err != nil {
		return nil, err
	}
	r.Cached = true
	return &r, nil
}

func (c *resultCache) put(ctx context.Context, key string, r *Result) error {
	_, err := c.pool.Exec(ctx, `
		INSERT INTO geocode_cache (address_hash, lon, lat, provider, display_name, quality, cached_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (address_hash) DO UPDATE SET
			lon = EXCLUDED.lon,
			lat = EXCLUDED.lat,
			provider = EXCLUDED.provider,
			display_name = EXCLUDED.display_name,
			quality = EXCLUDED.quality,
			cached_at = now()`,
		key, r.Point.Lon, r.Point.Lat, r.Provider, r.DisplayName, r.Quality,
	)
	if err != nil {
		return eris.Wrap(err, "geocode: store cache")
	}
	return nil
}
