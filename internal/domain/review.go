package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DefaultProductName is shown when a review's product is missing or unnamed.
const DefaultProductName = "Product"

// Review is a product review written by the current customer, as returned
// by the reviews API.
type Review struct {
	ID        string    `json:"_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt Timestamp `json:"createdAt"`
	Product   *Product  `json:"productId"`
}

// Product is the (possibly populated) product reference of a review.
type Product struct {
	ID   string `json:"_id,omitempty"`
	Name string `json:"name,omitempty"`
}

// ProductName returns the product name, or DefaultProductName.
func (r Review) ProductName() string {
	if r.Product == nil || r.Product.Name == "" {
		return DefaultProductName
	}
	return r.Product.Name
}

// MaxStars is the most star glyphs a single review renders.
const MaxStars = 5

// Stars returns how many star glyphs the rating renders as, clamped to
// [0, MaxStars].
func (r Review) Stars() int {
	return min(max(r.Rating, 0), MaxStars)
}

// UnmarshalJSON accepts a populated object, null, or a bare string id.
func (p *Product) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return fmt.Errorf("decode product id: %w", err)
		}
		*p = Product{ID: id}
		return nil
	}

	type plain Product
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decode product: %w", err)
	}
	*p = Product(v)
	return nil
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Timestamp is a creation time that tolerates the formats the reviews API
// emits. The zero value means unknown.
type Timestamp struct {
	time.Time
}

// ParseTimestamp parses s in any accepted layout. An empty string yields
// the zero Timestamp.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Timestamp{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decode timestamp: %w", err)
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// Format renders the date in layout and loc, or "" for the zero value.
func (t Timestamp) Format(layout string, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(layout)
}
