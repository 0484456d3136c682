package source

import (
	"math"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/elonfeng/rentradar/pkg/coerce"
	"github.com/elonfeng/rentradar/pkg/listing"
)

// NotListed is the availability text used when a page has none.
const NotListed = "Not Listed"

var (
	bedsPattern  = regexp.MustCompile(`(?i)(\d+)\s*(?:bed|bd)`)
	bathsPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:bath|ba)`)
	intPattern   = regexp.MustCompile(`\d[\d,]*`)
	availPrefix  = regexp.MustCompile(`(?i)^\s*(?:date\s+)?available\s*(?:on|from)?\s*:?\s*`)
)

// listingTypes are the JSON-LD @type values that describe a rental.
var listingTypes = map[string]bool{
	"Product":               true,
	"Residence":             true,
	"House":                 true,
	"Apartment":             true,
	"SingleFamilyResidence": true,
	"RealEstateListing":     true,
}

// Parser extracts a listing candidate from a listing page.
type Parser struct{}

// NewParser creates a Parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse reads structured JSON-LD data first and falls back to page markup
// for anything it did not provide.
func (p *Parser) Parse(page, url string) (*listing.Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	c := &listing.Candidate{URL: url}
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		p.applyJSONLD(c, s.Text())
		return c.Address == "" || c.Price == nil
	})

	if c.Price == nil {
		c.Price = fallbackPrice(doc)
	}
	if c.Address == "" {
		c.Address = fallbackAddress(doc)
	}
	if c.Bedrooms == nil {
		if v, ok := labeledNumber(doc, "beds", "bd"); ok {
			n := int(v)
			c.Bedrooms = &n
		}
	}
	if c.Bathrooms == nil {
		if v, ok := labeledNumber(doc, "baths", "ba"); ok {
			c.Bathrooms = &v
		}
	}
	if c.Area == nil {
		if v, ok := labeledNumber(doc, "sqft"); ok && v > 0 {
			n := int(v)
			c.Area = &n
		}
	}
	if c.DateAvailable == "" {
		c.DateAvailable = fallbackAvailability(doc)
	}
	if c.ImageURL == "" {
		c.ImageURL = fallbackImage(doc)
	}

	if strings.TrimSpace(c.Address) == "" {
		return nil, ErrNoAddress
	}
	c.Address = strings.TrimSpace(c.Address)
	return c, nil
}

func (p *Parser) applyJSONLD(c *listing.Candidate, raw string) {
	var data any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return
	}
	for _, item := range jsonLDItems(data) {
		if !hasListingType(item["@type"]) {
			continue
		}
		if c.Price == nil {
			c.Price = offerPrice(item["offers"])
		}
		if c.Address == "" {
			c.Address = jsonLDAddress(item["address"])
		}
		applyRooms(c, item)
		if c.Area == nil {
			c.Area = floorSize(item["floorSize"])
		}
		if c.ImageURL == "" {
			c.ImageURL = jsonLDImage(item["image"])
		}
		if c.Address != "" && c.Price != nil {
			return
		}
	}
}

// jsonLDItems flattens a JSON-LD payload into its objects, including @graph.
func jsonLDItems(v any) []map[string]any {
	var out []map[string]any
	switch t := v.(type) {
	case map[string]any:
		out = append(out, t)
		if graph, ok := t["@graph"]; ok {
			out = append(out, jsonLDItems(graph)...)
		}
	case []any:
		for _, item := range t {
			out = append(out, jsonLDItems(item)...)
		}
	}
	return out
}

func hasListingType(v any) bool {
	switch t := v.(type) {
	case string:
		return listingTypes[t]
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && listingTypes[s] {
				return true
			}
		}
	}
	return false
}

func offerPrice(v any) *float64 {
	switch t := v.(type) {
	case map[string]any:
		if f, ok := coerce.Currency(t["price"]); ok && f > 0 {
			return &f
		}
	case []any:
		for _, o := range t {
			if p := offerPrice(o); p != nil {
				return p
			}
		}
	}
	return nil
}

func jsonLDAddress(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		var parts []string
		for _, key := range []string{"streetAddress", "addressLocality", "addressRegion", "postalCode"} {
			if s, ok := t[key].(string); ok && strings.TrimSpace(s) != "" {
				parts = append(parts, strings.TrimSpace(s))
			}
		}
		return strings.Join(parts, ", ")
	}
	return ""
}

func applyRooms(c *listing.Candidate, item map[string]any) {
	switch rooms := item["numberOfRooms"].(type) {
	case string:
		if m := bedsPattern.FindStringSubmatch(rooms); m != nil && c.Bedrooms == nil {
			n, _ := strconv.Atoi(m[1])
			c.Bedrooms = &n
		}
		if m := bathsPattern.FindStringSubmatch(rooms); m != nil && c.Bathrooms == nil {
			f, _ := strconv.ParseFloat(m[1], 64)
			c.Bathrooms = &f
		}
	case float64:
		if c.Bedrooms == nil && rooms >= 0 {
			n := int(rooms)
			c.Bedrooms = &n
		}
	}

	for _, key := range []string{"bed", "numberOfBedrooms"} {
		if n, ok := coerce.Count(item[key]); ok {
			c.Bedrooms = &n
			break
		}
	}
	for _, key := range []string{"bath", "numberOfBathroomsTotal"} {
		if f, ok := coerce.Number(item[key]); ok && f >= 0 {
			c.Bathrooms = &f
			break
		}
	}
}

func floorSize(v any) *int {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	if unit, _ := m["unitCode"].(string); unit != "" && !strings.EqualFold(unit, "SQF") && !strings.EqualFold(unit, "FTK") {
		return nil
	}
	// Sites occasionally publish fractional footage; round it.
	f, ok := coerce.Number(m["value"])
	if !ok || f < 1 || f > math.MaxInt32 {
		return nil
	}
	n := int(math.Round(f))
	return &n
}

func jsonLDImage(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		for _, item := range t {
			if s := jsonLDImage(item); s != "" {
				return s
			}
		}
	case map[string]any:
		if s, ok := t["url"].(string); ok {
			return s
		}
	}
	return ""
}

// fallbackPrice reads the amount sitting next to a "/mo" marker.
func fallbackPrice(doc *goquery.Document) *float64 {
	var price *float64
	doc.Find("span").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.TrimSpace(s.Text()) != "/mo" {
			return true
		}
		if f, ok := coerce.Currency(ownText(s.Parent())); ok && f > 0 {
			price = &f
			return false
		}
		return true
	})
	if price != nil {
		return price
	}
	if f, ok := coerce.Currency(strings.TrimSpace(doc.Find(`[data-testid="price"]`).First().Text())); ok && f > 0 {
		return &f
	}
	return nil
}

func fallbackAddress(doc *goquery.Document) string {
	if s := strings.TrimSpace(doc.Find(`h2[data-test-id="bdp-building-address"]`).First().Text()); s != "" {
		return s
	}
	if s := strings.TrimSpace(doc.Find(`[data-testid="bdp-building-address"]`).First().Text()); s != "" {
		return s
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

// labeledNumber finds a span labeled with one of the given words and reads
// the number in it or in the span just before it.
func labeledNumber(doc *goquery.Document, labels ...string) (float64, bool) {
	var (
		value float64
		found bool
	)
	doc.Find("span").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.ToLower(strings.TrimSpace(s.Text()))
		if !hasLabel(text, labels) {
			return true
		}
		for _, candidate := range []string{text, strings.TrimSpace(s.Prev().Text())} {
			if m := intPattern.FindString(candidate); m != "" {
				if f, ok := coerce.Number(decimalSuffix(candidate, m)); ok {
					value, found = f, true
					return false
				}
			}
		}
		return true
	})
	return value, found
}

// decimalSuffix extends an integer match with a trailing fraction, so "1.5"
// reads as 1.5 and not 1.
func decimalSuffix(text, m string) string {
	i := strings.Index(text, m)
	rest := text[i+len(m):]
	if len(rest) > 1 && rest[0] == '.' && rest[1] >= '0' && rest[1] <= '9' {
		j := 1
		for j < len(rest) && rest[j] >= '0' && rest[j] <= '9' {
			j++
		}
		return m + rest[:j]
	}
	return m
}

func hasLabel(text string, labels []string) bool {
	for _, f := range strings.Fields(text) {
		f = strings.Trim(f, ".,:")
		for _, l := range labels {
			if f == l {
				return true
			}
		}
	}
	return false
}

func fallbackAvailability(doc *goquery.Document) string {
	var out string
	doc.Find("span, div, p, li").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(ownText(s))
		if !strings.HasPrefix(strings.ToLower(text), "available") && !strings.HasPrefix(strings.ToLower(text), "date available") {
			return true
		}
		rest := strings.TrimSpace(availPrefix.ReplaceAllString(text, ""))
		if rest == "" {
			rest = strings.TrimSpace(s.Next().Text())
		}
		if rest != "" {
			out = rest
			return false
		}
		return true
	})
	if out == "" {
		return NotListed
	}
	return out
}

func fallbackImage(doc *goquery.Document) string {
	if src, ok := doc.Find(`[data-testid="hollywood-gallery-images-tile-list"] li img`).First().Attr("src"); ok {
		return src
	}
	if src, ok := doc.Find(`meta[property="og:image"]`).First().Attr("content"); ok {
		return src
	}
	return ""
}

// ownText returns the text of s without the text of its child elements.
func ownText(s *goquery.Selection) string {
	var b strings.Builder
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		if n := c.Get(0); n != nil && n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
	})
	return strings.TrimSpace(b.String())
}
