package matching

import (
	"slices"
	"strings"
)

// FindMatchingPath returns the template matching path.
// An exact match is preferred, otherwise templates are tried in sorted order.
func FindMatchingPath(path string, templates []string) (string, bool) {
	if slices.Contains(templates, path) {
		return path, true
	}
	sorted := slices.Clone(templates)
	slices.Sort(sorted)
	for _, t := range sorted {
		if MatchTemplate(t, path) {
			return t, true
		}
	}
	return "", false
}

// FindMatchingPathValue looks up the value whose key is the template
// matching path.
func FindMatchingPathValue[T any](path string, values map[string]T) (T, bool) {
	if v, ok := values[path]; ok {
		return v, true
	}
	t, ok := FindMatchingPath(path, Keys(values))
	if !ok {
		var zero T
		return zero, false
	}
	return values[t], true
}

// FindMatchingPathKey is FindMatchingPathValue returning the matched template too.
func FindMatchingPathKey[T any](path string, values map[string]T) (string, T, bool) {
	if v, ok := values[path]; ok {
		return path, v, true
	}
	t, ok := FindMatchingPath(path, Keys(values))
	if !ok {
		var zero T
		return "", zero, false
	}
	return t, values[t], true
}

// MatchTemplate reports whether path matches template segment by segment.
func MatchTemplate(template, path string) bool {
	if template == path {
		return true
	}
	tParts := strings.Split(template, "/")
	pParts := strings.Split(path, "/")
	if len(tParts) != len(pParts) {
		return false
	}
	for i, seg := range tParts {
		if isVariable(seg) {
			// a variable consumes a segment but not an empty one ("/a/" vs "/a/{v}")
			if pParts[i] == "" {
				return false
			}
			continue
		}
		if seg != pParts[i] {
			return false
		}
	}
	return true
}

// PathVariables extracts the {name} values of template from path.
// Returns nil if path does not match template.
func PathVariables(template, path string) map[string]string {
	if !MatchTemplate(template, path) {
		return nil
	}
	result := make(map[string]string)
	pParts := strings.Split(path, "/")
	for i, seg := range strings.Split(template, "/") {
		if isVariable(seg) {
			result[seg[1:len(seg)-1]] = pParts[i]
		}
	}
	return result
}

// Keys returns the keys of m in sorted order.
func Keys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func isVariable(segment string) bool {
	return len(segment) > 2 && strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}")
}
