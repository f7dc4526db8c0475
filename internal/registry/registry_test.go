package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	sent   []string
	closed bool
}

func (f *fakeConn) Send(frame string) error { f.sent = append(f.sent, frame); return nil }
func (f *fakeConn) Close() error            { f.closed = true; return nil }
func (f *fakeConn) RemoteAddr() string      { return "test:0" }

func (c *Client) ageForTest(d time.Duration) {
	c.mu.Lock()
	c.lastActive = time.Now().Add(-d)
	c.mu.Unlock()
}

func TestRegisterUnregister(t *testing.T) {
	r := New(0)
	assert.Equal(t, DefaultTakeoverTimeout, r.TakeoverTimeout())

	c := r.Register(&fakeConn{})
	require.NotEmpty(t, c.ID)
	assert.Equal(t, 1, r.Count())
	assert.Same(t, c, r.Get(c.ID))

	r.Unregister(c.ID)
	assert.Equal(t, 0, r.Count())
	assert.Nil(t, r.Get(c.ID))
}

func TestCheckNicknameValidation(t *testing.T) {
	r := New(time.Minute)
	tests := []struct {
		name string
		want NicknameStatus
	}{
		{"alice", NicknameOK},
		{"", NicknameRejected},
		{"has space", NicknameRejected},
		{"pipe|char", NicknameRejected},
		{"comma,char", NicknameRejected},
		{"semi;char", NicknameRejected},
		{"Server", NicknameRejected},
		{"SERVER", NicknameRejected},
		{"abcdefghijklmnopqrst", NicknameOK},        // exactly 20
		{"abcdefghijklmnopqrstu", NicknameRejected}, // 21
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, r.CheckNickname(tc.name), "nickname %q", tc.name)
	}
}

func TestNicknameInUse(t *testing.T) {
	r := New(time.Minute)
	c := r.Register(&fakeConn{})
	status, _ := r.Authenticate(c.ID, "alice")
	require.Equal(t, NicknameOK, status)

	assert.Equal(t, NicknameRejected, r.CheckNickname("alice"))
	assert.Equal(t, NicknameRejected, r.CheckNickname("ALICE"), "case-insensitive")
	assert.Equal(t, NicknameOK, r.CheckNickname("bob"))
	assert.Same(t, c, r.GetByNickname("Alice"))
}

func TestTakeoverAfterSilence(t *testing.T) {
	r := New(time.Minute)
	oldConn := &fakeConn{}
	old := r.Register(oldConn)
	status, _ := r.Authenticate(old.ID, "alice")
	require.Equal(t, NicknameOK, status)

	// active holder: no takeover
	assert.Equal(t, NicknameRejected, r.CheckNickname("alice"))

	old.ageForTest(2 * time.Minute)
	assert.Equal(t, NicknameTakeover, r.CheckNickname("alice"))

	// the rebind closes the old connection and frees its ID
	nc := r.Register(&fakeConn{})
	status, displaced := r.Authenticate(nc.ID, "alice")
	assert.Equal(t, NicknameTakeover, status)
	require.Same(t, old, displaced)
	assert.True(t, oldConn.closed)
	assert.Nil(t, r.Get(old.ID))
	assert.Same(t, nc, r.GetByNickname("alice"))
	assert.Equal(t, 1, r.Count())
}

func TestAuthenticateRaceLoser(t *testing.T) {
	r := New(time.Minute)
	a := r.Register(&fakeConn{})
	b := r.Register(&fakeConn{})

	status, _ := r.Authenticate(a.ID, "alice")
	require.Equal(t, NicknameOK, status)
	status, _ = r.Authenticate(b.ID, "alice")
	assert.Equal(t, NicknameRejected, status)

	// re-auth by the holder itself is fine
	status, _ = r.Authenticate(a.ID, "alice")
	assert.Equal(t, NicknameOK, status)
}

func TestUnregisterFreesNickname(t *testing.T) {
	r := New(time.Minute)
	c := r.Register(&fakeConn{})
	status, _ := r.Authenticate(c.ID, "alice")
	require.Equal(t, NicknameOK, status)

	r.Unregister(c.ID)
	assert.Equal(t, NicknameOK, r.CheckNickname("alice"))
	assert.Empty(t, r.Nicknames())
}

func TestStaleSweep(t *testing.T) {
	r := New(time.Minute)
	quiet := r.Register(&fakeConn{})
	busy := r.Register(&fakeConn{})
	quiet.ageForTest(10 * time.Minute)
	busy.Touch()

	stale := r.Stale(5 * time.Minute)
	require.Len(t, stale, 1)
	assert.Same(t, quiet, stale[0])
}
