package models

import (
	"strconv"
	"strings"
)

// EventName joins the two sides of a fixture the way events are keyed in storage.
// The site suffixes some team labels with " (Match)"; that suffix is dropped.
func EventName(sides ...string) string {
	parts := make([]string, 0, len(sides))
	for _, s := range sides {
		s = normalizeKeyPart(strings.ReplaceAll(s, " (Match)", ""))
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " vs ")
}

// EventKey builds the natural key (name, league) that makes fixture upserts idempotent.
func EventKey(name string, leagueID int64) string {
	return strconv.FormatInt(leagueID, 10) + "|" + strings.ToLower(normalizeKeyPart(name))
}

func normalizeKeyPart(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
