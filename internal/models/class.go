package models

import (
	"strconv"
	"strings"
)

// Classes a member may queue as, in canonical casing.
var AllowedClasses = []string{
	"Tank", "Cleric", "Bard", "Summoner",
	"Mage", "Ranger", "Rogue", "Fighter",
}

// ClassEmojis maps a canonical class name to the emoji token the renderer
// prefixes it with. Unknown classes render without a token.
var ClassEmojis = map[string]string{
	"Tank":     ":shield:",
	"Cleric":   ":sparkling_heart:",
	"Bard":     ":musical_note:",
	"Summoner": ":crystal_ball:",
	"Mage":     ":fire:",
	"Ranger":   ":bow_and_arrow:",
	"Rogue":    ":dagger:",
	"Fighter":  ":crossed_swords:",
}

const (
	MinLevel = 1
	MaxLevel = 9999
)

// NormalizeClass matches name case-insensitively against AllowedClasses and
// returns the canonical casing, or "" when the class is unknown.
func NormalizeClass(name string) string {
	name = strings.TrimSpace(name)
	for _, c := range AllowedClasses {
		if strings.EqualFold(c, name) {
			return c
		}
	}
	return ""
}

// ParseLevel parses a member-supplied level string and reports whether it is
// an integer within [MinLevel, MaxLevel].
func ParseLevel(s string) (int, bool) {
	s = strings.TrimSpace(s)
	level, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	if level < MinLevel || level > MaxLevel {
		return 0, false
	}
	return level, true
}
