package db

import "strings"

// LikeEscape is the escape character paired with ContainsPattern. A
// backslash is avoided because MySQL treats it specially in literals.
const LikeEscape = "!"

var likeReplacer = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// ContainsPattern lowercases needle and wraps it for a case-insensitive
// substring match: LOWER(col) LIKE ? ESCAPE '!'.
func ContainsPattern(needle string) string {
	return "%" + likeReplacer.Replace(strings.ToLower(needle)) + "%"
}
