package domain

import (
	"sort"
	"strings"
)

// TagSeparator joins multi-valued fields in flat tables.
const TagSeparator = ", "

// NormalizeTopic case-folds and trims a topic string.
func NormalizeTopic(topic string) string {
	return strings.ToLower(strings.TrimSpace(topic))
}

// SortedUnion merges the given tag slices into one sorted slice without duplicates or blanks.
func SortedUnion(sets ...[]string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, set := range sets {
		for _, tag := range set {
			tag = strings.TrimSpace(tag)
			if tag == "" {
				continue
			}
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			out = append(out, tag)
		}
	}
	sort.Strings(out)
	return out
}

// JoinTags renders tags for a flat table cell.
func JoinTags(tags []string) string {
	return strings.Join(tags, TagSeparator)
}

// SplitTags parses a comma-joined cell back into trimmed, non-empty tags.
func SplitTags(cell string) []string {
	var tags []string
	for _, part := range strings.Split(cell, ",") {
		if part = strings.TrimSpace(part); part != "" {
			tags = append(tags, part)
		}
	}
	return tags
}
