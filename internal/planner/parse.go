package planner

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/local/lessonplanner/internal/course"
)

var (
	errBlank  = errors.New("blank response")
	errNoJSON = errors.New("no JSON object in response")
)

// ParseCourse decodes a completion into a plan. Prose or markdown fences
// around the object are tolerated; balanced top-level objects are tried in
// order and the first that decodes is used.
func ParseCourse(text string) (*course.CourseData, error) {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return nil, errBlank
	}

	var cd course.CourseData
	if err := json.Unmarshal([]byte(raw), &cd); err == nil {
		return &cd, nil
	}

	err := errNoJSON
	for start := strings.IndexByte(raw, '{'); start >= 0; {
		end, ok := matchBrace(raw, start)
		if !ok {
			break
		}
		cd = course.CourseData{}
		derr := json.Unmarshal([]byte(raw[start:end+1]), &cd)
		if derr == nil {
			return &cd, nil
		}
		err = fmt.Errorf("decode plan: %w", derr)
		next := strings.IndexByte(raw[end+1:], '{')
		if next < 0 {
			break
		}
		start = end + 1 + next
	}
	return nil, err
}

// matchBrace returns the index of the brace closing the one at start,
// skipping braces inside JSON strings.
func matchBrace(s string, start int) (int, bool) {
	depth := 0
	inStr, esc := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
