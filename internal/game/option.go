package game

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// OptionType declares how an option's value is typed and encoded.
type OptionType int

const (
	OptBool    OptionType = iota // "t" / "f"
	OptInt                       // "4"
	OptIntBool                   // "t7" / "f7": a toggle with an int parameter
	OptString                    // free string from an enumerated or open set
)

// OptionFlag is a behavioral flag on a game option.
type OptionFlag uint

const (
	// FlagOpportunistic marks an option capable clients may use
	// without it becoming a hard requirement on incapable clients.
	// Opportunistic options never raise a game's minimum version.
	FlagOpportunistic OptionFlag = 1 << iota

	// Flag3rdParty marks an option gated on an externally registered
	// client feature string instead of a built-in one.
	Flag3rdParty
)

// Option is a named, versioned rule toggle affecting game setup or
// legality. Options are immutable once a game starts except for the
// scripted opportunistic degradation.
type Option struct {
	Key        string
	Type       OptionType
	MinVersion int // -1 = understood by every client
	Flags      OptionFlag
	// ClientFeature is the capability string a client must declare
	// when this option is active; empty for options that only gate
	// on version.
	ClientFeature string
	Desc          string

	BoolValue bool
	IntValue  int
	StrValue  string

	defaultBool bool
	defaultInt  int
	defaultStr  string
}

// HasFlag reports whether the option carries a behavioral flag.
func (o *Option) HasFlag(f OptionFlag) bool { return o.Flags&f != 0 }

// IsActive reports whether the option is doing anything beyond its
// default, which is what feature and version gating key off.
func (o *Option) IsActive() bool {
	switch o.Type {
	case OptBool, OptIntBool:
		return o.BoolValue
	case OptInt:
		return o.IntValue != o.defaultInt
	case OptString:
		return o.StrValue != ""
	}
	return false
}

// Clone returns an independent copy.
func (o *Option) Clone() *Option {
	c := *o
	return &c
}

// Degrade resets the option to its declared default value; used when
// an opportunistic option must be switched off for a mixed-version
// game.
func (o *Option) Degrade() {
	o.BoolValue = o.defaultBool
	o.IntValue = o.defaultInt
	o.StrValue = o.defaultStr
}

// ValueString encodes the current value in option-spec form.
func (o *Option) ValueString() string {
	switch o.Type {
	case OptBool:
		return boolChar(o.BoolValue)
	case OptInt:
		return strconv.Itoa(o.IntValue)
	case OptIntBool:
		return boolChar(o.BoolValue) + strconv.Itoa(o.IntValue)
	case OptString:
		return o.StrValue
	}
	return ""
}

// setValueString parses an option-spec value such as "t", "2", "t7",
// or "SC_4ISL" into the option.
func (o *Option) setValueString(s string) error {
	switch o.Type {
	case OptBool:
		b, err := parseBoolChar(s)
		if err != nil {
			return err
		}
		o.BoolValue = b
	case OptInt:
		v, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("option %s: bad int value %q", o.Key, s)
		}
		o.IntValue = v
	case OptIntBool:
		if s == "" {
			return fmt.Errorf("option %s: empty value", o.Key)
		}
		b, err := parseBoolChar(s[:1])
		if err != nil {
			return fmt.Errorf("option %s: %v", o.Key, err)
		}
		o.BoolValue = b
		if len(s) > 1 {
			v, err := strconv.Atoi(s[1:])
			if err != nil {
				return fmt.Errorf("option %s: bad int part %q", o.Key, s[1:])
			}
			o.IntValue = v
		}
	case OptString:
		if strings.ContainsAny(s, "|,") {
			return fmt.Errorf("option %s: delimiter in value %q", o.Key, s)
		}
		o.StrValue = s
	}
	return nil
}

func boolChar(b bool) string {
	if b {
		return "t"
	}
	return "f"
}

func parseBoolChar(s string) (bool, error) {
	switch s {
	case "t", "true":
		return true, nil
	case "f", "false":
		return false, nil
	}
	return false, fmt.Errorf("bad bool value %q", s)
}

// OptionSet is a keyed collection of options.
type OptionSet struct {
	opts map[string]*Option
}

// NewOptionSet returns an empty set.
func NewOptionSet() *OptionSet {
	return &OptionSet{opts: make(map[string]*Option)}
}

// Add inserts or replaces an option.
func (s *OptionSet) Add(o *Option) { s.opts[o.Key] = o }

// Get returns an option by key, or nil.
func (s *OptionSet) Get(key string) *Option { return s.opts[key] }

// IsSet reports whether an option exists and is active.
func (s *OptionSet) IsSet(key string) bool {
	o := s.opts[key]
	return o != nil && o.IsActive()
}

// All returns the options sorted by key for deterministic iteration.
func (s *OptionSet) All() []*Option {
	out := make([]*Option, 0, len(s.opts))
	for _, o := range s.opts {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Clone deep-copies the set.
func (s *OptionSet) Clone() *OptionSet {
	c := NewOptionSet()
	for _, o := range s.opts {
		c.Add(o.Clone())
	}
	return c
}

// Encode renders the set in "K1=v,K2=v" spec form, keys sorted.
func (s *OptionSet) Encode() string {
	parts := make([]string, 0, len(s.opts))
	for _, o := range s.All() {
		parts = append(parts, o.Key+"="+o.ValueString())
	}
	return strings.Join(parts, ",")
}

// knownOpts is the canonical option registry; KnownOptions hands out
// clones so callers can never corrupt it.
var (
	knownOptsMu sync.RWMutex
	knownOpts   = buildKnownOptions()
)

func buildKnownOptions() *OptionSet {
	s := NewOptionSet()
	s.Add(&Option{
		Key: "PL", Type: OptInt, MinVersion: -1,
		IntValue: 4, defaultInt: 4,
		Desc: "Maximum number of players",
	})
	s.Add(&Option{
		Key: "PLB", Type: OptBool, MinVersion: 1108,
		ClientFeature: FeatureSixPlayers,
		Desc:          "Use 6-player board",
	})
	s.Add(&Option{
		Key: "SBL", Type: OptBool, MinVersion: 2000,
		ClientFeature: FeatureSeaBoard,
		Desc:          "Use sea board",
	})
	s.Add(&Option{
		Key: "SC", Type: OptString, MinVersion: 2000,
		ClientFeature: FeatureScenarioVersion,
		Desc:          "Game scenario",
	})
	s.Add(&Option{
		Key: "N7", Type: OptIntBool, MinVersion: -1,
		IntValue: 7, defaultInt: 7,
		Desc: "Roll no 7s during first # rounds",
	})
	s.Add(&Option{
		Key: "UB", Type: OptBool, MinVersion: 2700,
		Flags: FlagOpportunistic,
		Desc:  "Allow undo of piece builds and moves",
	})
	s.Add(&Option{
		Key: "VP", Type: OptIntBool, MinVersion: -1,
		IntValue: 10, defaultInt: 10,
		Desc: "Victory points to win",
	})
	return s
}

// Built-in client feature keys understood by the negotiator.
const (
	FeatureSeaBoard        = "sb"
	FeatureSixPlayers      = "6pl"
	FeatureScenarioVersion = "sc"
)

// KnownOptions returns a fresh clone of the canonical option registry.
func KnownOptions() *OptionSet {
	knownOptsMu.RLock()
	defer knownOptsMu.RUnlock()
	return knownOpts.Clone()
}

// RegisterKnownOption adds a third-party or test option to the
// canonical registry. Options with Flag3rdParty must carry a
// ClientFeature string.
func RegisterKnownOption(o *Option) error {
	if o.Key == "" {
		return configf("option key is empty")
	}
	if o.HasFlag(Flag3rdParty) && o.ClientFeature == "" {
		return configf("third-party option %s needs a client feature", o.Key)
	}
	knownOptsMu.Lock()
	defer knownOptsMu.Unlock()
	knownOpts.Add(o.Clone())
	return nil
}

// ParseOptionSet parses an option spec like "PL=2,UB=t,N7=t7" against
// a known-option registry. The result contains copies of only the
// options named in the spec. Unknown keys or malformed values are a
// configuration error.
func ParseOptionSet(spec string, known *OptionSet) (*OptionSet, error) {
	out := NewOptionSet()
	if spec == "" {
		return out, nil
	}
	for _, part := range strings.Split(spec, ",") {
		key, val, ok := strings.Cut(part, "=")
		if !ok || key == "" {
			return nil, configf("malformed option %q", part)
		}
		ko := known.Get(key)
		if ko == nil {
			return nil, configf("unknown option %q", key)
		}
		o := ko.Clone()
		if err := o.setValueString(val); err != nil {
			return nil, configf("%v", err)
		}
		out.Add(o)
	}
	return out, nil
}

// Scenario is a named board/rule scenario selectable via the SC option.
type Scenario struct {
	Key        string
	MinVersion int
	Title      string
}

// ScenarioFourIslands is the key of the bundled Four Islands scenario.
const ScenarioFourIslands = "SC_4ISL"

var knownScenarios = map[string]Scenario{
	ScenarioFourIslands: {Key: ScenarioFourIslands, MinVersion: 2000, Title: "Four Islands"},
	"SC_FOG":            {Key: "SC_FOG", MinVersion: 2000, Title: "Fog Islands"},
}

// ScenarioByKey looks up a known scenario.
func ScenarioByKey(key string) (Scenario, bool) {
	sc, ok := knownScenarios[key]
	return sc, ok
}
