package source

import "strings"

// Filter keeps feed entries whose title mentions a wanted keyword and none
// of the excluded ones. An empty include list accepts every title.
type Filter struct {
	include []string
	exclude []string
}

// NewFilter creates a case-insensitive title filter.
func NewFilter(include, exclude []string) *Filter {
	return &Filter{include: lowerAll(include), exclude: lowerAll(exclude)}
}

// Matches reports whether title passes the filter.
func (f *Filter) Matches(title string) bool {
	if f == nil {
		return true
	}
	lower := strings.ToLower(title)

	for _, ex := range f.exclude {
		if strings.Contains(lower, ex) {
			return false
		}
	}
	if len(f.include) == 0 {
		return true
	}
	for _, kw := range f.include {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func lowerAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			out = append(out, w)
		}
	}
	return out
}
