package domain

import (
	"encoding/json"
	"strings"
)

// FavoriteState classifies the raw metafield value a favorites read returned.
// Malformed and Empty both collapse to an empty set at the boundary, but the
// distinction is kept for logging and metrics.
type FavoriteState string

const (
	FavoritesEmpty     FavoriteState = "empty"
	FavoritesValid     FavoriteState = "valid"
	FavoritesMalformed FavoriteState = "malformed"
)

// NormalizeFavorites trims every identifier, drops empty strings and drops
// duplicates, preserving first-occurrence order. Upstream metafield data may
// be dirty; membership tests run only over normalized sets.
func NormalizeFavorites(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// ToggleFavorite flips membership of id in the set: present means remove,
// absent means append. Both inputs are normalized first, so the operation is
// an involution over normalized sets. The second return value reports whether
// id is a favorite after the toggle.
func ToggleFavorite(favorites []string, id string) ([]string, bool) {
	id = strings.TrimSpace(id)
	current := NormalizeFavorites(favorites)

	out := make([]string, 0, len(current)+1)
	removed := false
	for _, f := range current {
		if f == id {
			removed = true
			continue
		}
		out = append(out, f)
	}
	if removed {
		return out, false
	}
	return append(out, id), true
}

// ParseFavorites decodes the raw metafield value into a normalized favorite
// set. Absent or empty values are Empty; values that fail to parse as a JSON
// array are Malformed. Both yield an empty set rather than an error: bad
// remote state must never fail the request. Array elements that are not
// strings are dropped during normalization.
func ParseFavorites(raw string) ([]string, FavoriteState) {
	if strings.TrimSpace(raw) == "" {
		return []string{}, FavoritesEmpty
	}

	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &elems); err != nil {
		return []string{}, FavoritesMalformed
	}

	ids := make([]string, 0, len(elems))
	for _, e := range elems {
		var s string
		if err := json.Unmarshal(e, &s); err != nil {
			continue
		}
		ids = append(ids, s)
	}
	return NormalizeFavorites(ids), FavoritesValid
}
