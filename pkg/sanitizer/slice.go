package sanitizer

import "strings"

func NormalizeStringSlice(items []string, normalizer Strategy) []string {
	if len(items) == 0 {
		return []string{}
	}

	seen := make(map[string]bool)
	result := make([]string, 0, len(items))

	for _, item := range items {
		normalized := normalizer(item)

		if normalized == "" {
			continue
		}

		if seen[normalized] {
			continue
		}

		seen[normalized] = true
		result = append(result, normalized)
	}

	return result
}

// NormalizePermissions splits a comma separated permission list, dropping blanks and
// duplicates. It returns nil when nothing is left, which grants every permission.
func NormalizePermissions(raw string) []string {
	perms := NormalizeStringSlice(strings.Split(raw, ","), func(s string) string {
		return strings.ToLower(strings.TrimSpace(s))
	})
	if len(perms) == 0 {
		return nil
	}
	return perms
}
