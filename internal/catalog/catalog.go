package catalog

import (
	"fmt"
	"sort"
	"strings"
)

// Metal describes one supported commodity and how to find it on the source page.
type Metal struct {
	Slug           string
	URLSlug        string
	Label          string
	Glyph          string
	SectionKeyword string
}

// City is a supported regional page.
type City struct {
	Slug string
	Name string
}

var metals = map[string]Metal{
	"gold": {
		Slug:           "gold",
		URLSlug:        "gold-rates",
		Label:          "Gold",
		Glyph:          "🥇",
		SectionKeyword: "Gold Price",
	},
	"silver": {
		Slug:           "silver",
		URLSlug:        "silver-rates",
		Label:          "Silver",
		Glyph:          "🥈",
		SectionKeyword: "Silver Price",
	},
}

var cities = []City{
	{Slug: "bangalore", Name: "Bangalore"},
	{Slug: "mumbai", Name: "Mumbai"},
	{Slug: "delhi", Name: "Delhi"},
	{Slug: "chennai", Name: "Chennai"},
	{Slug: "hyderabad", Name: "Hyderabad"},
	{Slug: "kolkata", Name: "Kolkata"},
	{Slug: "pune", Name: "Pune"},
	{Slug: "ahmedabad", Name: "Ahmedabad"},
	{Slug: "jaipur", Name: "Jaipur"},
	{Slug: "surat", Name: "Surat"},
}

var cityIndex = func() map[string]City {
	idx := make(map[string]City, len(cities))
	for _, c := range cities {
		idx[c.Slug] = c
	}
	return idx
}()

// ValidationError reports an unsupported metal or city identifier.
type ValidationError struct {
	Field string
	Value string
}

func (e *ValidationError) Error() string {
	switch e.Field {
	case "metal":
		return fmt.Sprintf("Unsupported metal '%s'. Use: %s", e.Value, strings.Join(MetalSlugs(), ", "))
	case "city":
		return fmt.Sprintf("Unsupported city '%s'.\nUse /cities to see the full list.", e.Value)
	default:
		return fmt.Sprintf("unsupported %s '%s'", e.Field, e.Value)
	}
}

// LookupMetal returns the metal for a case-insensitive identifier.
func LookupMetal(slug string) (Metal, bool) {
	m, ok := metals[strings.ToLower(strings.TrimSpace(slug))]
	return m, ok
}

// LookupCity returns the city for a case-insensitive identifier.
func LookupCity(slug string) (City, bool) {
	c, ok := cityIndex[strings.ToLower(strings.TrimSpace(slug))]
	return c, ok
}

// Resolve validates both identifiers, metal first.
func Resolve(metal, city string) (Metal, City, error) {
	m, ok := LookupMetal(metal)
	if !ok {
		return Metal{}, City{}, &ValidationError{Field: "metal", Value: strings.ToLower(metal)}
	}
	c, ok := LookupCity(city)
	if !ok {
		return Metal{}, City{}, &ValidationError{Field: "city", Value: strings.ToLower(city)}
	}
	return m, c, nil
}

// Cities lists supported cities in display order.
func Cities() []City {
	out := make([]City, len(cities))
	copy(out, cities)
	return out
}

// MetalSlugs lists metal identifiers sorted alphabetically.
func MetalSlugs() []string {
	out := make([]string, 0, len(metals))
	for slug := range metals {
		out = append(out, slug)
	}
	sort.Strings(out)
	return out
}

// SourceURL builds the page address for a (metal, city) pair.
func SourceURL(baseURL string, metal Metal, city City) string {
	return fmt.Sprintf("%s/%s/%s.html", strings.TrimRight(baseURL, "/"), metal.URLSlug, city.Slug)
}
