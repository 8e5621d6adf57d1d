package model

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Category is a labeled grouping of locations.
type Category struct {
	ID            int64  `json:"id"`
	Slug          string `json:"slug"`
	LabelSingular string `json:"label_singular"`
	LabelPlural   string `json:"label_plural"`
}

var slugRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Normalize trims the labels and derives the slug from the singular label
// when none was given.
func (c *Category) Normalize() {
	c.Slug = strings.TrimSpace(c.Slug)
	c.LabelSingular = strings.TrimSpace(c.LabelSingular)
	c.LabelPlural = strings.TrimSpace(c.LabelPlural)
	if c.Slug == "" {
		c.Slug = Slugify(c.LabelSingular)
	}
}

// Validate checks the slug format and the label bounds.
func (c *Category) Validate() error {
	verr := &ValidationError{}
	switch {
	case c.Slug == "":
		verr.Add("slug", MsgRequired)
	case !slugRe.MatchString(c.Slug):
		verr.Add("slug", "Enter a valid slug consisting of letters, numbers, underscores or hyphens.")
	}
	checkLen(verr, "slug", c.Slug, MaxLabelLen)
	if c.LabelSingular == "" {
		verr.Add("label_singular", MsgRequired)
	}
	if c.LabelPlural == "" {
		verr.Add("label_plural", MsgRequired)
	}
	checkLen(verr, "label_singular", c.LabelSingular, MaxLabelLen)
	checkLen(verr, "label_plural", c.LabelPlural, MaxLabelLen)
	return verr.OrNil()
}

// Slugify lowercases s, strips diacritics and joins alphanumeric runs with
// hyphens: "Muzee și galerii" becomes "muzee-si-galerii".
func Slugify(s string) string {
	// Chains keep per-call state and cannot be shared between goroutines.
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(stripMarks, s)
	if err != nil {
		plain = s
	}

	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(plain) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pending && b.Len() > 0 {
				b.WriteByte('-')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	return b.String()
}
