package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexhaven-project/hexhaven/internal/game"
)

func TestParseEncodeRoundTrip(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{";sb;", ";sb;"},
		{";6pl;sb;", ";6pl;sb;"},
		{";sb;sc=2000;", ";sb;sc=2000;"},
		{";sc=2000;6pl;", ";6pl;sc=2000;"}, // entries come back sorted
	}
	for _, tc := range tests {
		s, err := Parse(tc.in)
		require.NoError(t, err, "parse %q", tc.in)
		assert.Equal(t, tc.want, s.Encode(), "round trip %q", tc.in)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, in := range []string{"sb", ";sb", "sb;", ";;", ";sb;;", ";=2;", ";sc=x;"} {
		_, err := Parse(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestNilSetIsSafe(t *testing.T) {
	var s *Set
	assert.False(t, s.IsActive("sb"))
	assert.Equal(t, 5, s.Value("sc", 5))
	assert.True(t, s.IsEmpty())
	assert.Equal(t, "", s.Encode())
	assert.Nil(t, s.Missing(nil))
}

func TestMissing(t *testing.T) {
	client, err := Parse(";sb;sc=1200;")
	require.NoError(t, err)

	req := New()
	req.Add("sb")
	assert.Nil(t, client.Missing(req))

	req.Add("6pl")
	assert.Equal(t, []string{"6pl"}, client.Missing(req))

	req2 := New()
	req2.AddValue("sc", 2000)
	assert.Equal(t, []string{"sc"}, client.Missing(req2), "declared value too low")

	req3 := New()
	req3.AddValue("sc", 1200)
	assert.Nil(t, client.Missing(req3))

	var nilClient *Set
	assert.Equal(t, []string{"6pl", "sb"}, nilClient.Missing(req))
}

func mustGame(t *testing.T, optSpec string) *game.Game {
	t.Helper()
	var opts *game.OptionSet
	if optSpec != "" {
		var err error
		opts, err = game.ParseOptionSet(optSpec, game.KnownOptions())
		require.NoError(t, err)
	}
	g, err := game.New("featgame", opts)
	require.NoError(t, err)
	return g
}

func TestRequiredFor(t *testing.T) {
	tests := []struct {
		name string
		opts string
		want string
	}{
		{"classic game needs nothing", "", ""},
		{"six players", "PL=6", ";6pl;"},
		{"six player board", "PLB=t", ";6pl;"},
		{"sea board", "SBL=t", ";sb;"},
		{"scenario pulls sea board and version", "SC=" + game.ScenarioFourIslands, ";sb;sc=2000;"},
		{"opportunistic option requires nothing", "UB=t", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g := mustGame(t, tc.opts)
			assert.Equal(t, tc.want, RequiredFor(g).Encode())
		})
	}
}

func TestCheckJoin(t *testing.T) {
	g := mustGame(t, "SBL=t")
	caps, err := Parse(";sb;")
	require.NoError(t, err)

	assert.NoError(t, CheckJoin(g, 2000, caps))
	assert.ErrorIs(t, CheckJoin(g, 1200, caps), ErrVersionTooLow)
	assert.ErrorIs(t, CheckJoin(g, 2000, nil), ErrMissingFeatures)

	plain := mustGame(t, "")
	assert.NoError(t, CheckJoin(plain, 1000, nil), "no requirements, any client joins")
}

func TestOpportunisticDegradation(t *testing.T) {
	g := mustGame(t, "PL=2,UB=t,N7=t7")
	require.Equal(t, -1, g.MinVersionRequired())
	require.True(t, g.Options().IsSet("UB"))

	// an old client may join: the opportunistic option never gated it
	require.NoError(t, CheckJoin(g, 2000, nil))

	degraded := DegradeOpportunistic(g, 2000, nil)
	assert.Equal(t, []string{"UB"}, degraded)
	assert.False(t, g.Options().IsSet("UB"), "option off for the whole game")
	assert.True(t, g.Options().IsSet("N7"), "unrelated options untouched")

	// a capable client degrades nothing
	g2 := mustGame(t, "UB=t")
	assert.Empty(t, DegradeOpportunistic(g2, 2700, nil))
	assert.True(t, g2.Options().IsSet("UB"))
}

func TestSupportsOption(t *testing.T) {
	known := game.KnownOptions()
	sbl := known.Get("SBL")
	caps, _ := Parse(";sb;")

	assert.True(t, SupportsOption(sbl, 2000, caps))
	assert.False(t, SupportsOption(sbl, 1999, caps))
	assert.False(t, SupportsOption(sbl, 2000, nil))
}
