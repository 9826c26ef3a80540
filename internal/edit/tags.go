package edit

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	ErrEmptyTag     = errors.New("tag is empty")
	ErrDuplicateTag = errors.New("tag already exists")
)

// NormalizeTag trims and lowercases a tag.
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// AddTag appends the normalized tag to a copy of tags.
func AddTag(tags []string, tag string) ([]string, error) {
	t := NormalizeTag(tag)
	if t == "" {
		return tags, ErrEmptyTag
	}
	if slices.Contains(tags, t) {
		return tags, fmt.Errorf("%w: %q", ErrDuplicateTag, t)
	}
	out := make([]string, 0, len(tags)+1)
	out = append(out, tags...)
	return append(out, t), nil
}

// RemoveTag returns tags without tag.
func RemoveTag(tags []string, tag string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t != tag {
			out = append(out, t)
		}
	}
	return out
}

// NormalizeTags normalizes and deduplicates tags, dropping empty ones.
func NormalizeTags(tags []string) []string {
	out := []string{}
	for _, t := range tags {
		if next, err := AddTag(out, t); err == nil {
			out = next
		}
	}
	return out
}
