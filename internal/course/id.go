package course

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ID identifies competencies, modules and lessons. It always encodes as a
// plain JSON integer but decodes leniently: completion services sometimes
// quote ids ("3") or prefix competency ids ("C3", "C-3").
type ID int

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return fmt.Errorf("id: null")
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := ParseID(s)
		if err != nil {
			return err
		}
		*id = v
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return fmt.Errorf("id: %s is not an integer", b)
	}
	*id = ID(f)
	return nil
}

// ParseID accepts "3", "C3", "c-3" and "C 3". A separator is only allowed
// after the prefix, so "-3" stays negative.
func ParseID(s string) (ID, error) {
	t := strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(t, "C"); ok {
		t = trimSeparator(rest)
	} else if rest, ok := strings.CutPrefix(t, "c"); ok {
		t = trimSeparator(rest)
	}
	n, err := strconv.Atoi(t)
	if err != nil {
		return 0, fmt.Errorf("id: %q is not numeric", s)
	}
	return ID(n), nil
}

func trimSeparator(s string) string {
	if s != "" && strings.ContainsRune("-_ ", rune(s[0])) {
		return s[1:]
	}
	return s
}

func (id ID) String() string { return strconv.Itoa(int(id)) }
