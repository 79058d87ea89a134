// Package pathutil provides path manipulation for archive virtual paths.
package pathutil

import "strings"

// Normalize converts a virtual path to the canonical form that is hashed.
//
// It performs the following transformations:
//   - Lower-cases ASCII and Unicode letters: "Data/Icons" → "data/icons"
//   - Converts backslashes to slashes: `data\icons` → "data/icons"
//   - Strips leading and trailing slashes: "/data/" → "data"
//   - Collapses consecutive slashes: "data//icons" → "data/icons"
//
// "." and ".." elements are preserved; archive paths are names, not
// filesystem locations.
func Normalize(p string) string {
	p = strings.ToLower(strings.ReplaceAll(p, `\`, "/"))
	p = strings.Trim(p, "/")
	if !strings.Contains(p, "//") {
		return p
	}
	parts := strings.Split(p, "/")
	result := parts[:0] // reuse backing array
	for _, part := range parts {
		if part != "" {
			result = append(result, part)
		}
	}
	return strings.Join(result, "/")
}

// Clean tidies a path for display without changing its case.
// Separators follow the same rules as Normalize.
func Clean(p string) string {
	p = strings.Trim(strings.ReplaceAll(p, `\`, "/"), "/")
	if !strings.Contains(p, "//") {
		return p
	}
	parts := strings.Split(p, "/")
	result := parts[:0]
	for _, part := range parts {
		if part != "" {
			result = append(result, part)
		}
	}
	return strings.Join(result, "/")
}

// Split returns the slash-separated segments of a cleaned path.
// An empty path yields no segments.
func Split(p string) []string {
	p = Clean(p)
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// Base returns the last element of a slash-separated path.
func Base(p string) string {
	p = strings.TrimSuffix(p, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}
