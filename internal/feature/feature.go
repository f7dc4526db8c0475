// Package feature implements client capability negotiation. Clients
// declare a feature set during the version handshake; games derive the
// feature set they require from their active options; joining is
// gated on the difference.
package feature

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Set is a collection of client capability declarations: boolean
// markers ("sb") and int-valued markers ("sc=2000"). A nil *Set means
// no features at all and is valid everywhere a *Set is accepted.
type Set struct {
	bools map[string]bool
	ints  map[string]int
}

// New returns an empty feature set.
func New() *Set {
	return &Set{bools: make(map[string]bool), ints: make(map[string]int)}
}

// Parse decodes the wire form ";f1;f2=v;". The empty string decodes
// to nil: no features.
func Parse(encoded string) (*Set, error) {
	if encoded == "" {
		return nil, nil
	}
	if !strings.HasPrefix(encoded, ";") || !strings.HasSuffix(encoded, ";") {
		return nil, fmt.Errorf("feature set %q: missing delimiters", encoded)
	}
	s := New()
	for _, part := range strings.Split(strings.Trim(encoded, ";"), ";") {
		if part == "" {
			return nil, fmt.Errorf("feature set %q: empty entry", encoded)
		}
		name, val, hasVal := strings.Cut(part, "=")
		if name == "" {
			return nil, fmt.Errorf("feature set %q: empty name", encoded)
		}
		if hasVal {
			v, err := strconv.Atoi(val)
			if err != nil {
				return nil, fmt.Errorf("feature %s: bad value %q", name, val)
			}
			s.ints[name] = v
		} else {
			s.bools[name] = true
		}
	}
	return s, nil
}

// Add declares a boolean feature.
func (s *Set) Add(name string) { s.bools[name] = true }

// AddValue declares an int-valued feature.
func (s *Set) AddValue(name string, v int) { s.ints[name] = v }

// IsActive reports whether a boolean feature is declared. Safe on nil.
func (s *Set) IsActive(name string) bool {
	if s == nil {
		return false
	}
	return s.bools[name]
}

// Value returns an int-valued feature, or dflt when absent. Safe on
// nil.
func (s *Set) Value(name string, dflt int) int {
	if s == nil {
		return dflt
	}
	if v, ok := s.ints[name]; ok {
		return v
	}
	return dflt
}

// IsEmpty reports whether the set declares nothing. Safe on nil.
func (s *Set) IsEmpty() bool {
	return s == nil || (len(s.bools) == 0 && len(s.ints) == 0)
}

// Encode renders the wire form ";f1;f2=v;" with entries sorted, or ""
// for nil/empty sets.
func (s *Set) Encode() string {
	if s.IsEmpty() {
		return ""
	}
	entries := make([]string, 0, len(s.bools)+len(s.ints))
	for name := range s.bools {
		entries = append(entries, name)
	}
	for name, v := range s.ints {
		entries = append(entries, name+"="+strconv.Itoa(v))
	}
	sort.Strings(entries)
	return ";" + strings.Join(entries, ";") + ";"
}

// Missing returns the names in required that this set does not
// satisfy, sorted. A boolean requirement needs the same marker; an
// int requirement needs a declared value at least as high. Safe on
// nil receivers and nil arguments.
func (s *Set) Missing(required *Set) []string {
	if required.IsEmpty() {
		return nil
	}
	var out []string
	for name := range required.bools {
		if !s.IsActive(name) {
			out = append(out, name)
		}
	}
	for name, want := range required.ints {
		have, ok := 0, false
		if s != nil {
			have, ok = s.ints[name]
		}
		if !ok || have < want {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
