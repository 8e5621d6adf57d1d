package model

import (
	"strings"
	"time"
)

// Field names used in changed-field sets and validation errors.
const (
	FieldName             = "name"
	FieldAddress          = "address"
	FieldWebsite          = "website"
	FieldEmail            = "email"
	FieldPhone            = "phone"
	FieldDescription      = "description"
	FieldCoordinates      = "coordinates"
	FieldCategory         = "category"
	FieldGeographicEntity = "geographic_entity"
	FieldPublished        = "published"
	FieldInexactLocation  = "inexact_location"
	FieldUserSubmitted    = "user_submitted"
)

// Maximum lengths, in characters, of the bounded text fields.
const (
	MaxNameLen        = 64
	MaxAddressLen     = 128
	MaxWebsiteLen     = 128
	MaxEmailLen       = 128
	MaxPhoneLen       = 16
	MaxDescriptionLen = 500
	MaxLabelLen       = 64
)

// Point is a WGS84 position. Longitude always comes first.
type Point struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Valid reports whether the point lies within the WGS84 coordinate ranges.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Location is a geo-taggable directory entry (a place or an abstract entity).
type Location struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Address     string `json:"address"`
	Website     string `json:"website"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Description string `json:"description"`

	// Coordinates is nil until the location is geocoded or set manually.
	Coordinates *Point `json:"coordinates"`

	CategoryID *int64    `json:"category_id"`
	Category   *Category `json:"category,omitempty"`

	GeographicEntity bool `json:"geographic_entity"`
	Published        bool `json:"published"`
	InexactLocation  bool `json:"inexact_location"`
	UserSubmitted    bool `json:"user_submitted"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewLocation returns a location carrying the default flag values.
func NewLocation(name string) *Location {
	return &Location{Name: name, GeographicEntity: true}
}

// HasAddress reports whether the location has a non-blank address.
func (l *Location) HasAddress() bool {
	return strings.TrimSpace(l.Address) != ""
}

// PubliclyVisible reports whether public read paths may expose the location.
func (l *Location) PubliclyVisible() bool {
	return l.Published && l.GeographicEntity
}

// Validate checks required fields, length bounds and coordinate ranges.
func (l *Location) Validate() error {
	verr := &ValidationError{}
	if strings.TrimSpace(l.Name) == "" {
		verr.Add(FieldName, MsgRequired)
	}
	checkLen(verr, FieldName, l.Name, MaxNameLen)
	checkLen(verr, FieldAddress, l.Address, MaxAddressLen)
	checkLen(verr, FieldWebsite, l.Website, MaxWebsiteLen)
	checkLen(verr, FieldEmail, l.Email, MaxEmailLen)
	checkLen(verr, FieldPhone, l.Phone, MaxPhoneLen)
	checkLen(verr, FieldDescription, l.Description, MaxDescriptionLen)
	if l.Coordinates != nil && !l.Coordinates.Valid() {
		verr.Add(FieldCoordinates, "Coordinates are out of range.")
	}
	return verr.OrNil()
}

// LocationPatch is a partial update. Nil pointers leave a field untouched.
// ClearCoordinates and ClearCategory null out the respective references.
type LocationPatch struct {
	Name        *string
	Address     *string
	Website     *string
	Email       *string
	Phone       *string
	Description *string

	Coordinates      *Point
	ClearCoordinates bool

	CategoryID    *int64
	ClearCategory bool

	GeographicEntity *bool
	Published        *bool
	InexactLocation  *bool
	UserSubmitted    *bool
}

// Apply writes the patch onto l and returns the names of the fields whose
// values actually changed, in a stable order.
func (p LocationPatch) Apply(l *Location) []string {
	var changed []string
	setString := func(field string, dst *string, src *string) {
		if src != nil && *dst != *src {
			*dst = *src
			changed = append(changed, field)
		}
	}
	setBool := func(field string, dst *bool, src *bool) {
		if src != nil && *dst != *src {
			*dst = *src
			changed = append(changed, field)
		}
	}

	setString(FieldName, &l.Name, p.Name)
	setString(FieldAddress, &l.Address, p.Address)
	setString(FieldWebsite, &l.Website, p.Website)
	setString(FieldEmail, &l.Email, p.Email)
	setString(FieldPhone, &l.Phone, p.Phone)
	setString(FieldDescription, &l.Description, p.Description)

	switch {
	case p.ClearCoordinates:
		if l.Coordinates != nil {
			l.Coordinates = nil
			changed = append(changed, FieldCoordinates)
		}
	case p.Coordinates != nil:
		if l.Coordinates == nil || *l.Coordinates != *p.Coordinates {
			pt := *p.Coordinates
			l.Coordinates = &pt
			changed = append(changed, FieldCoordinates)
		}
	}

	switch {
	case p.ClearCategory:
		if l.CategoryID != nil {
			l.CategoryID = nil
			l.Category = nil
			changed = append(changed, FieldCategory)
		}
	case p.CategoryID != nil:
		if l.CategoryID == nil || *l.CategoryID != *p.CategoryID {
			id := *p.CategoryID
			l.CategoryID = &id
			l.Category = nil
			changed = append(changed, FieldCategory)
		}
	}

	setBool(FieldGeographicEntity, &l.GeographicEntity, p.GeographicEntity)
	setBool(FieldPublished, &l.Published, p.Published)
	setBool(FieldInexactLocation, &l.InexactLocation, p.InexactLocation)
	setBool(FieldUserSubmitted, &l.UserSubmitted, p.UserSubmitted)

	return changed
}

// Changed reports whether field appears in a changed-field set.
func Changed(changed []string, field string) bool {
	for _, f := range changed {
		if f == field {
			return true
		}
	}
	return false
}

// ValidateProposal checks a public submission. Proposals must carry an
// address and a description on top of the regular location rules.
func ValidateProposal(l *Location) error {
	verr := &ValidationError{}
	if err := l.Validate(); err != nil {
		verr = err.(*ValidationError)
	}
	if strings.TrimSpace(l.Address) == "" {
		verr.Add(FieldAddress, MsgRequired)
	}
	if strings.TrimSpace(l.Description) == "" {
		verr.Add(FieldDescription, MsgRequired)
	}
	return verr.OrNil()
}
