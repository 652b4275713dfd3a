package course

import (
	"regexp"
	"strconv"
)

var (
	hoursWithUnit = regexp.MustCompile(`(?i)(\d+)\s*(?:horas?\b|hours?\b|hrs?\b|h\b)`)
	bareNumber    = regexp.MustCompile(`\d+`)
)

// LessonsForHours is the number of 4-hour lessons a module of the given
// length gets. Partial blocks round up: 18h becomes 5 lessons, the last one
// lighter. Non-positive hours yield zero.
func LessonsForHours(hours int) int {
	if hours <= 0 {
		return 0
	}
	return (hours + LessonHours - 1) / LessonHours
}

// ParseHours pulls the hour count out of a free-text duration label such as
// "16h", "20 horas" or "Carga horária: 40 h". A number with an hour unit wins
// over a bare number; a label with no digits reports false.
func ParseHours(label string) (int, bool) {
	if m := hoursWithUnit.FindStringSubmatch(label); m != nil {
		n, err := strconv.Atoi(m[1])
		return n, err == nil
	}
	if m := bareNumber.FindString(label); m != "" {
		n, err := strconv.Atoi(m)
		return n, err == nil
	}
	return 0, false
}
