package api

import "github.com/sells-group/geodir/internal/model"

// Geometry is a GeoJSON point. Coordinates are [lon, lat].
type Geometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// Properties is the public view of a location.
type Properties struct {
	Name        string          `json:"name"`
	Address     string          `json:"address"`
	Website     string          `json:"website"`
	Email       string          `json:"email"`
	Description string          `json:"description"`
	Category    *model.Category `json:"category"`
}

// Feature is a GeoJSON feature. Geometry is null for records that have not
// been geocoded.
type Feature struct {
	Type       string     `json:"type"`
	ID         int64      `json:"id"`
	Geometry   *Geometry  `json:"geometry"`
	Properties Properties `json:"properties"`
}

// FeatureCollection is a GeoJSON feature collection.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// NewFeature converts l to its public GeoJSON form.
func NewFeature(l *model.Location) Feature {
	f := Feature{
		Type: "Feature",
		ID:   l.ID,
		Properties: Properties{
			Name:        l.Name,
			Address:     l.Address,
			Website:     l.Website,
			Email:       l.Email,
			Description: l.Description,
			Category:    l.Category,
		},
	}
	if l.Coordinates != nil {
		f.Geometry = &Geometry{Type: "Point", Coordinates: [2]float64{l.Coordinates.Lon, l.Coordinates.Lat}}
	}
	return f
}

// NewFeatureCollection converts locs. An empty input gives an empty,
// non-null features array.
func NewFeatureCollection(locs []model.Location) FeatureCollection {
	fc := FeatureCollection{Type: "FeatureCollection", Features: make([]Feature, 0, len(locs))}
	for i := range locs {
		fc.Features = append(fc.Features, NewFeature(&locs[i]))
	}
	return fc
}
