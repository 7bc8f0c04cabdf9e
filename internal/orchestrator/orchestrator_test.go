package orchestrator

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleyhq/parley/internal/config"
	"github.com/parleyhq/parley/internal/coordination"
	"github.com/parleyhq/parley/internal/identity"
	"github.com/parleyhq/parley/internal/logger"
	"github.com/parleyhq/parley/models"
)

// fakeConsole records the operation sequence so tests can assert the
// erase/draw/restore discipline around notifications.
type fakeConsole struct {
	out         bytes.Buffer
	ops         []string
	lines       []string
	current     string
	prompt      string
	interrupted bool
	closed      bool
}

func (f *fakeConsole) Write(p []byte) (int, error) {
	f.ops = append(f.ops, "write")
	return f.out.Write(p)
}
func (f *fakeConsole) SetPrompt(prompt string) { f.prompt = prompt }
func (f *fakeConsole) Poll() bool {
	if f.current == "" && len(f.lines) > 0 {
		f.current = f.lines[0]
		f.lines = f.lines[1:]
	}
	return f.current != ""
}
func (f *fakeConsole) CurrentLine() string { return f.current }
func (f *fakeConsole) ClearEditing()       { f.current = "" }
func (f *fakeConsole) ResetForNextLine()   {}
func (f *fakeConsole) EraseDisplayedLine() { f.ops = append(f.ops, "erase") }
func (f *fakeConsole) RestoreDisplayedLine() {
	f.ops = append(f.ops, "restore")
}
func (f *fakeConsole) Interrupted() bool { return f.interrupted }
func (f *fakeConsole) Close() error {
	f.closed = true
	return nil
}

func (f *fakeConsole) countOps(op string) int {
	n := 0
	for _, o := range f.ops {
		if o == op {
			n++
		}
	}
	return n
}

// fakeIdentity reaches StateLoggedIn after a fixed number of advances.
type fakeIdentity struct {
	state        identity.State
	ticksToLogin int
	err          error
}

func (f *fakeIdentity) Advance(time.Time) {
	if f.state == identity.StateLoggedIn {
		return
	}
	f.ticksToLogin--
	if f.ticksToLogin <= 0 {
		f.state = identity.StateLoggedIn
	}
}
func (f *fakeIdentity) State() identity.State { return f.state }
func (f *fakeIdentity) SessionToken() string  { return "tok-fake" }
func (f *fakeIdentity) UserID() int64         { return 42 }
func (f *fakeIdentity) Err() error            { return f.err }

// fakeCoord records issued requests and serves settable snapshots.
type fakeCoord struct {
	advErr error

	created []models.RoomCreateOptions
	joined  []string
	listed  []models.RoomListOptions
	pinged  []uint64

	roomInfo    coordination.Observed[models.RoomInfo]
	roomCreated coordination.Observed[models.RoomCreated]
	roomList    coordination.Observed[models.RoomList]

	closed bool
}

func (f *fakeCoord) Advance(time.Time) error { return f.advErr }
func (f *fakeCoord) CreateRoom(opts models.RoomCreateOptions) {
	f.created = append(f.created, opts)
}
func (f *fakeCoord) JoinRoom(roomID string) { f.joined = append(f.joined, roomID) }
func (f *fakeCoord) ListRooms(opts models.RoomListOptions) {
	f.listed = append(f.listed, opts)
}
func (f *fakeCoord) Ping(knowledge uint64) { f.pinged = append(f.pinged, knowledge) }
func (f *fakeCoord) RoomInfo() coordination.Observed[models.RoomInfo] {
	return f.roomInfo
}
func (f *fakeCoord) RoomCreated() coordination.Observed[models.RoomCreated] {
	return f.roomCreated
}
func (f *fakeCoord) RoomList() coordination.Observed[models.RoomList] {
	return f.roomList
}
func (f *fakeCoord) Close() error {
	f.closed = true
	return nil
}

func testConfig() *config.ClientConfig {
	return &config.ClientConfig{
		Console: config.ClientConsole{
			Prompt:       "parley> ",
			TickInterval: 16 * time.Millisecond,
		},
	}
}

type fixture struct {
	o       *Orchestrator
	console *fakeConsole
	id      *fakeIdentity
	coord   *fakeCoord
	dials   int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		console: &fakeConsole{},
		id:      &fakeIdentity{ticksToLogin: 3},
		coord:   &fakeCoord{},
	}
	dial := func(token string) (CoordinationClient, error) {
		f.dials++
		assert.Equal(t, "tok-fake", token)
		return f.coord, nil
	}
	f.o = New(testConfig(), f.console, f.id, dial, logger.Nop())
	return f
}

// ticks drives n loop iterations, failing the test on any fatal error.
func (f *fixture) ticks(t *testing.T, n int) {
	t.Helper()
	now := time.Unix(0, 0)
	for i := 0; i < n; i++ {
		now = now.Add(16 * time.Millisecond)
		done, err := f.o.tick(now)
		require.NoError(t, err)
		require.False(t, done)
	}
}

// loggedIn advances until coordination is up, then clears the console ops
// recorded during bootstrap.
func (f *fixture) loggedIn(t *testing.T) {
	t.Helper()
	f.ticks(t, 10)
	require.NotNil(t, f.o.coord)
	f.console.ops = nil
	f.console.out.Reset()
}

// TestNew_AppliesConfiguredPrompt verifies that the configured prompt is
// pushed to the console during wiring.
func TestNew_AppliesConfiguredPrompt(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, "parley> ", f.console.prompt)
}

// TestTick_ExactlyOnceCoordinationInit verifies the lifecycle gate: over
// many ticks after login the dialer runs exactly once.
func TestTick_ExactlyOnceCoordinationInit(t *testing.T) {
	f := newFixture(t)

	f.ticks(t, 150)

	assert.Equal(t, 1, f.dials)
	assert.Equal(t, identity.StateLoggedIn, f.id.State())
}

// TestTick_NoCoordinationBeforeLogin verifies that nothing is dialed while
// identity is still logging in.
func TestTick_NoCoordinationBeforeLogin(t *testing.T) {
	f := newFixture(t)
	f.id.ticksToLogin = 1 << 30

	f.ticks(t, 50)

	assert.Zero(t, f.dials)
	assert.Nil(t, f.o.coord)
}

// TestTick_DialFailureIsFatal verifies that a failed coordination
// construction terminates the session with a coded error.
func TestTick_DialFailureIsFatal(t *testing.T) {
	f := newFixture(t)
	o := New(testConfig(), f.console, f.id,
		func(string) (CoordinationClient, error) { return nil, assert.AnError },
		logger.Nop())

	var fatal *FatalError
	now := time.Unix(0, 0)
	for i := 0; i < 10; i++ {
		_, err := o.tick(now)
		if err != nil {
			require.ErrorAs(t, err, &fatal)
			break
		}
		now = now.Add(16 * time.Millisecond)
	}

	require.NotNil(t, fatal)
	assert.Equal(t, coordinationExitCode, fatal.Code)
	assert.ErrorIs(t, fatal, assert.AnError)
}

// TestTick_AdvanceErrorIsFatal verifies that a coordination transport
// failure terminates the session with a coded error.
func TestTick_AdvanceErrorIsFatal(t *testing.T) {
	f := newFixture(t)
	f.loggedIn(t)

	f.coord.advErr = errors.New("connection reset")
	_, err := f.o.tick(time.Now())

	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, coordinationExitCode, fatal.Code)
}

// TestRender_OnVersionChange verifies exactly one erase/draw/restore cycle
// per changed kind and none when nothing changed.
func TestRender_OnVersionChange(t *testing.T) {
	f := newFixture(t)
	f.loggedIn(t)

	f.coord.roomInfo = coordination.Observed[models.RoomInfo]{
		Version: 1,
		Payload: models.RoomInfo{RoomID: "r-1", Members: []int64{42}},
	}
	f.ticks(t, 1)

	assert.Equal(t, 1, f.console.countOps("erase"))
	assert.Equal(t, 1, f.console.countOps("restore"))
	assert.Contains(t, f.console.out.String(), "room info updated")
	assert.Equal(t, uint64(1), f.o.lastRoomInfo)

	// Unchanged versions must render nothing.
	f.console.ops = nil
	f.ticks(t, 20)
	assert.Zero(t, f.console.countOps("erase"))
	assert.Zero(t, f.console.countOps("restore"))
}

// TestRender_FixedOrder verifies that several kinds changing on the same
// tick render in room-info, room-create, room-list order, one cycle each.
func TestRender_FixedOrder(t *testing.T) {
	f := newFixture(t)
	f.loggedIn(t)

	f.coord.roomInfo = coordination.Observed[models.RoomInfo]{
		Version: 1, Payload: models.RoomInfo{RoomID: "r-1"},
	}
	f.coord.roomCreated = coordination.Observed[models.RoomCreated]{
		Version: 1, Payload: models.RoomCreated{RoomID: "r-1"},
	}
	f.coord.roomList = coordination.Observed[models.RoomList]{
		Version: 1, Payload: models.RoomList{},
	}
	f.ticks(t, 1)

	out := f.console.out.String()
	info := strings.Index(out, "room info updated")
	created := strings.Index(out, "room create done")
	list := strings.Index(out, "room listing")
	require.True(t, info >= 0 && created >= 0 && list >= 0, out)
	assert.Less(t, info, created)
	assert.Less(t, created, list)

	assert.Equal(t, 3, f.console.countOps("erase"))
	assert.Equal(t, 3, f.console.countOps("restore"))
}

// TestRender_InequalityNotOrdering verifies that a version moving backwards
// still renders: the comparison is inequality, never greater-than.
func TestRender_InequalityNotOrdering(t *testing.T) {
	f := newFixture(t)
	f.loggedIn(t)

	f.coord.roomInfo = coordination.Observed[models.RoomInfo]{Version: 5}
	f.ticks(t, 1)
	require.Equal(t, uint64(5), f.o.lastRoomInfo)

	f.console.ops = nil
	f.coord.roomInfo = coordination.Observed[models.RoomInfo]{Version: 2}
	f.ticks(t, 1)

	assert.Equal(t, 1, f.console.countOps("erase"))
	assert.Equal(t, uint64(2), f.o.lastRoomInfo)
}

// TestRender_EraseDrawRestoreOrder verifies the per-notification operation
// sequence around the input line.
func TestRender_EraseDrawRestoreOrder(t *testing.T) {
	f := newFixture(t)
	f.loggedIn(t)

	f.coord.roomCreated = coordination.Observed[models.RoomCreated]{Version: 1}
	f.ticks(t, 1)

	require.NotEmpty(t, f.console.ops)
	assert.Equal(t, "erase", f.console.ops[0])
	assert.Equal(t, "restore", f.console.ops[len(f.console.ops)-1])
	assert.Contains(t, f.console.ops, "write")
}

// TestDispatch_GatingBeforeInit verifies that coordination-dependent
// commands issue zero requests before the session exists.
func TestDispatch_GatingBeforeInit(t *testing.T) {
	f := newFixture(t)
	f.id.ticksToLogin = 1 << 30

	f.console.lines = []string{"room list", "ping", "room create", "room join --id r-1"}
	f.ticks(t, 10)

	assert.Zero(t, f.dials)
	out := f.console.out.String()
	assert.Equal(t, 4, strings.Count(out, "coordination not started yet"))
}

// TestDispatch_RoomCreateOptions verifies option parsing into the issued
// request.
func TestDispatch_RoomCreateOptions(t *testing.T) {
	f := newFixture(t)
	f.loggedIn(t)

	f.console.lines = []string{"room create --name Foo"}
	f.ticks(t, 2)

	require.Len(t, f.coord.created, 1)
	assert.Equal(t, "Foo", f.coord.created[0].Name)
	assert.Equal(t, defaultRoomMaxMembers, f.coord.created[0].MaxMembers)
	assert.False(t, f.o.verbose)
}

// TestDispatch_RoomJoinRequiresID verifies the missing-option error path.
func TestDispatch_RoomJoinRequiresID(t *testing.T) {
	f := newFixture(t)
	f.loggedIn(t)

	f.console.lines = []string{"room join"}
	f.ticks(t, 2)

	assert.Empty(t, f.coord.joined)
	assert.Contains(t, f.console.out.String(), "--id is required")

	f.console.lines = []string{"room join --id r-7 --verbose"}
	f.ticks(t, 2)
	assert.Equal(t, []string{"r-7"}, f.coord.joined)
	assert.True(t, f.o.verbose)
}

// TestDispatch_RoomListOptions verifies the listing filters.
func TestDispatch_RoomListOptions(t *testing.T) {
	f := newFixture(t)
	f.loggedIn(t)

	f.console.lines = []string{"room list --applicationId 9 --maximumCount 5"}
	f.ticks(t, 2)

	require.Len(t, f.coord.listed, 1)
	assert.Equal(t, uint64(9), f.coord.listed[0].ApplicationID)
	assert.Equal(t, 5, f.coord.listed[0].MaximumCount)
}

// TestDispatch_Ping verifies the knowledge value is carried through.
func TestDispatch_Ping(t *testing.T) {
	f := newFixture(t)
	f.loggedIn(t)

	f.console.lines = []string{"ping --knowledge 123"}
	f.ticks(t, 2)

	assert.Equal(t, []uint64{123}, f.coord.pinged)
}

// TestDispatch_UnknownCommand verifies that a bogus verb reaches no handler
// and reports an error.
func TestDispatch_UnknownCommand(t *testing.T) {
	f := newFixture(t)
	f.loggedIn(t)

	f.console.lines = []string{"bogus verb"}
	f.ticks(t, 2)

	assert.Empty(t, f.coord.created)
	assert.Empty(t, f.coord.listed)
	assert.Contains(t, f.console.out.String(), "unknown command")
}

// TestDispatch_Help verifies the built-in help listing: every verb path,
// its description, and the help text of each option.
func TestDispatch_Help(t *testing.T) {
	f := newFixture(t)

	f.console.lines = []string{"help"}
	f.ticks(t, 2)

	out := f.console.out.String()
	assert.Contains(t, out, "room create")
	assert.Contains(t, out, "quit")

	// Per-option help lines, not just the synopsis.
	assert.Contains(t, out, "--name")
	assert.Contains(t, out, "room name")
	assert.Contains(t, out, "--id")
	assert.Contains(t, out, "room id to join")
	assert.Contains(t, out, "--knowledge")
	assert.Contains(t, out, "knowledge value to report")
	assert.Contains(t, out, "--applicationId")
	assert.Contains(t, out, "cap on the number of rooms returned")
}

// TestDispatch_State verifies the state command before and after login.
func TestDispatch_State(t *testing.T) {
	f := newFixture(t)
	f.id.ticksToLogin = 1 << 30

	f.console.lines = []string{"state"}
	f.ticks(t, 2)
	out := f.console.out.String()
	assert.Contains(t, out, "coordination: not started")

	f.id.ticksToLogin = 1
	f.loggedIn(t)
	f.console.lines = []string{"state"}
	f.ticks(t, 2)
	out = f.console.out.String()
	assert.Contains(t, out, "logged in")
	assert.Contains(t, out, "user id: 42")
	assert.Contains(t, out, "coordination: running")
}

// TestTick_QuitStopsLoop verifies the quit built-in.
func TestTick_QuitStopsLoop(t *testing.T) {
	f := newFixture(t)

	f.console.lines = []string{"quit"}
	f.ticks(t, 1)

	done, err := f.o.tick(time.Now())
	require.NoError(t, err)
	assert.True(t, done)
}

// TestTick_InterruptStopsLoop verifies the console interrupt flag.
func TestTick_InterruptStopsLoop(t *testing.T) {
	f := newFixture(t)
	f.console.interrupted = true

	done, err := f.o.tick(time.Now())
	require.NoError(t, err)
	assert.True(t, done)
}

// TestRun_ClosesConsole verifies the shutdown path through Run.
func TestRun_ClosesConsole(t *testing.T) {
	f := newFixture(t)
	f.o.RequestShutdown()

	require.NoError(t, f.o.Run())
	assert.True(t, f.console.closed)
}
