package urlutil

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// globPattern matches a {a,b,c} list or a [m-n] / [m-n:step] range,
// either numeric (with optional zero-padding) or single-letter alpha.
var globPattern = regexp.MustCompile(
	`\{(?P<items>[^}\\^{]+)\}` +
		`|` +
		`\[(?P<start>(?P<padding>0*)\d+|[a-z])-(?P<end>\d+|[a-z])(?::(?P<step>\d+))?\]`,
)

type globReplacement struct {
	substring   string
	replacement string
}

// ExpandGlob expands {a,b,c} lists and [m-n] ranges in a seed URL into
// the Cartesian product of every combination. A URL with no expandable
// glob syntax (or only malformed syntax, e.g. an unterminated escaped
// brace) expands to itself: a one-element slice holding rawURL
// unchanged, so callers can always range over the result of ExpandGlob
// without special-casing a plain seed URL.
func ExpandGlob(rawURL string) []string {
	decoded := rawURL
	if unescaped, err := url.PathUnescape(rawURL); err == nil {
		decoded = unescaped
	}

	names := globPattern.SubexpNames()
	matches := globPattern.FindAllStringSubmatchIndex(decoded, -1)
	if len(matches) == 0 {
		return []string{rawURL}
	}

	groupOf := func(m []int, name string) (string, bool) {
		for i, n := range names {
			if n != name {
				continue
			}
			start, end := m[2*i], m[2*i+1]
			if start < 0 || end < 0 {
				return "", false
			}
			return decoded[start:end], true
		}
		return "", false
	}

	var groups [][]globReplacement
	for _, m := range matches {
		substring := decoded[m[0]:m[1]]

		if items, ok := groupOf(m, "items"); ok {
			var group []globReplacement
			for _, item := range strings.Split(items, ",") {
				group = append(group, globReplacement{substring: substring, replacement: item})
			}
			groups = append(groups, group)
			continue
		}

		start, hasStart := groupOf(m, "start")
		end, hasEnd := groupOf(m, "end")
		if !hasStart || !hasEnd {
			continue
		}

		step := 1
		if stepStr, ok := groupOf(m, "step"); ok {
			if parsed, err := strconv.Atoi(stepStr); err == nil {
				step = parsed
			}
		}

		width := 0
		if padding, ok := groupOf(m, "padding"); ok && padding != "" {
			width = len(start)
		}

		startNum, startErr := strconv.Atoi(start)
		endNum, endErr := strconv.Atoi(end)

		var group []globReplacement
		if startErr == nil && endErr == nil {
			for n := startNum; n <= endNum; n += step {
				value := strconv.Itoa(n)
				if width > len(value) {
					value = strings.Repeat("0", width-len(value)) + value
				}
				group = append(group, globReplacement{substring: substring, replacement: value})
			}
		} else if len(start) == 1 && len(end) == 1 {
			for c := start[0]; c <= end[0]; c++ {
				group = append(group, globReplacement{substring: substring, replacement: string(c)})
			}
		}

		if len(group) > 0 {
			groups = append(groups, group)
		}
	}

	if len(groups) == 0 {
		return []string{rawURL}
	}

	return cartesianExpand(decoded, groups)
}

// cartesianExpand produces one string per combination in the Cartesian
// product of groups, substituting every group's matched substring with
// its chosen replacement. The rightmost group varies fastest.
func cartesianExpand(base string, groups [][]globReplacement) []string {
	combos := [][]globReplacement{{}}
	for _, group := range groups {
		next := make([][]globReplacement, 0, len(combos)*len(group))
		for _, combo := range combos {
			for _, choice := range group {
				extended := make([]globReplacement, len(combo), len(combo)+1)
				copy(extended, combo)
				extended = append(extended, choice)
				next = append(next, extended)
			}
		}
		combos = next
	}

	results := make([]string, 0, len(combos))
	for _, combo := range combos {
		out := base
		for _, r := range combo {
			out = strings.ReplaceAll(out, r.substring, r.replacement)
		}
		results = append(results, out)
	}
	return results
}
