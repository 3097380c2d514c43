package storeauth

import "strings"

// SplitScopes parses a space-separated scope parameter into an ordered,
// deduplicated list.
func SplitScopes(scope string) []string {
	fields := strings.Fields(scope)
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		if _, dup := seen[field]; dup {
			continue
		}
		seen[field] = struct{}{}
		out = append(out, field)
	}
	return out
}

// JoinScopes renders a scope list back into the space-separated wire form.
func JoinScopes(scopes []string) string {
	return strings.Join(scopes, " ")
}

// ScopesSubset reports whether every requested scope is present in granted.
func ScopesSubset(requested, granted []string) bool {
	grantedSet := make(map[string]struct{}, len(granted))
	for _, scope := range granted {
		grantedSet[scope] = struct{}{}
	}
	for _, scope := range requested {
		if _, ok := grantedSet[scope]; !ok {
			return false
		}
	}
	return true
}
