package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// PlaceholderName marks an order that should receive a generated name.
const PlaceholderName = "New"

// NamePrefix is the prefix shared by every order number of year.
func NamePrefix(year int) string {
	return fmt.Sprintf("%d-", year)
}

// NextName returns the number following last for year. An empty or
// unparsable last name restarts the sequence at 1.
func NextName(year int, last string) string {
	next := 1
	if last != "" {
		parts := strings.Split(last, "-")
		if n, err := strconv.Atoi(parts[len(parts)-1]); err == nil {
			next = n + 1
		}
	}
	return fmt.Sprintf("%d-%04d", year, next)
}
