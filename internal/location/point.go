package location

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/sells-group/geodir/internal/model"
)

// SRID of every stored point (WGS84).
const SRID = 4326

// EncodePoint returns the EWKB encoding of p, or nil (SQL NULL) for a nil p.
func EncodePoint(p *model.Point) ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	g := geom.NewPointFlat(geom.XY, []float64{p.Lon, p.Lat}).SetSRID(SRID)
	b, err := ewkb.Marshal(g, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "location: encode point")
	}
	return b, nil
}

// DecodePoint parses the EWKB produced by ST_AsEWKB. Empty input means no
// point.
func DecodePoint(b []byte) (*model.Point, error) {
	if len(b) == 0 {
		return nil, nil
	}
	g, err := ewkb.Unmarshal(b)
	if err != nil {
		return nil, eris.Wrap(err, "location: decode point")
	}
	pt, ok := g.(*geom.Point)
	if !ok {
		return nil, eris.Errorf("location: expected point geometry, got %T", g)
	}
	return &model.Point{Lon: pt.X(), Lat: pt.Y()}, nil
}
