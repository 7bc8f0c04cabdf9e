// Package orchestrator runs the interactive client session: a
// single-threaded tick loop that advances the identity and coordination
// collaborators, renders asynchronous notifications above the input line,
// and dispatches completed command lines.
//
// Everything happens on the loop goroutine. Collaborators are consumed
// through narrow interfaces so tests can substitute fakes and drive the
// loop tick by tick.
package orchestrator

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/parleyhq/parley/internal/command"
	"github.com/parleyhq/parley/internal/config"
	"github.com/parleyhq/parley/internal/coordination"
	"github.com/parleyhq/parley/internal/identity"
	"github.com/parleyhq/parley/internal/logger"
	"github.com/parleyhq/parley/models"
)

// ConsoleIO is the line console the orchestrator renders to and reads from.
type ConsoleIO interface {
	io.Writer
	SetPrompt(prompt string)
	Poll() bool
	CurrentLine() string
	ClearEditing()
	ResetForNextLine()
	EraseDisplayedLine()
	RestoreDisplayedLine()
	Interrupted() bool
	Close() error
}

// IdentityClient is the login collaborator.
type IdentityClient interface {
	Advance(now time.Time)
	State() identity.State
	SessionToken() string
	UserID() int64
	Err() error
}

// CoordinationClient is the room-coordination collaborator.
type CoordinationClient interface {
	Advance(now time.Time) error
	CreateRoom(opts models.RoomCreateOptions)
	JoinRoom(roomID string)
	ListRooms(opts models.RoomListOptions)
	Ping(knowledge uint64)
	RoomInfo() coordination.Observed[models.RoomInfo]
	RoomCreated() coordination.Observed[models.RoomCreated]
	RoomList() coordination.Observed[models.RoomList]
	Close() error
}

// CoordinationDialer constructs the coordination client once login has
// produced a session token.
type CoordinationDialer func(sessionToken string) (CoordinationClient, error)

// FatalError terminates the session with a process exit code.
type FatalError struct {
	Code int
	Err  error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal (exit %d): %v", e.Code, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// coordinationExitCode is the process exit code for a broken coordination
// session.
const coordinationExitCode = 1

// Orchestrator owns the tick loop. Not safe for concurrent use; only
// RequestShutdown may be called from other goroutines.
type Orchestrator struct {
	cfg      *config.ClientConfig
	log      *logger.Logger
	console  ConsoleIO
	identity IdentityClient
	dial     CoordinationDialer
	registry *command.Registry

	// coord stays nil until login completes; coordStarted latches so the
	// construction attempt happens at most once per process.
	coord        CoordinationClient
	coordStarted bool

	lastRoomInfo    uint64
	lastRoomCreated uint64
	lastRoomList    uint64

	// verbose is toggled by the --verbose option of the last command.
	verbose bool

	quit atomic.Bool
}

// New wires the orchestrator and registers the command table.
func New(cfg *config.ClientConfig, con ConsoleIO, id IdentityClient, dial CoordinationDialer, log *logger.Logger) *Orchestrator {
	o := &Orchestrator{
		cfg:      cfg,
		log:      log,
		console:  con,
		identity: id,
		dial:     dial,
		registry: command.NewRegistry(),
	}
	o.registerCommands()
	con.SetPrompt(cfg.Console.Prompt)
	return o
}

// RequestShutdown asks the loop to stop at the next tick boundary. Safe to
// call from any goroutine.
func (o *Orchestrator) RequestShutdown() {
	o.quit.Store(true)
}

// Run executes the tick loop until quit, interrupt, or a fatal error. The
// console is closed on the way out. A nil return means a clean exit
// (exit code 0).
func (o *Orchestrator) Run() error {
	defer func() {
		if o.coord != nil {
			o.coord.Close()
		}
		o.console.Close()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		<-sigs
		o.RequestShutdown()
	}()

	ticker := time.NewTicker(o.cfg.Console.TickInterval)
	defer ticker.Stop()

	for {
		done, err := o.tick(time.Now())
		if err != nil {
			o.log.Error().Err(err).Msg("session failed")
			fmt.Fprintf(o.console, "\n%v\n", err)
			return err
		}
		if done {
			o.log.Info().Msg("session ended")
			return nil
		}
		<-ticker.C
	}
}

// tick runs one iteration of the loop: shutdown check, collaborator
// advances, one-shot coordination construction, notification rendering,
// input polling and dispatch. It reports done=true on a clean shutdown.
func (o *Orchestrator) tick(now time.Time) (bool, error) {
	if o.quit.Load() || o.console.Interrupted() {
		return true, nil
	}

	o.identity.Advance(now)

	if !o.coordStarted && o.identity.State() == identity.StateLoggedIn {
		o.coordStarted = true
		coord, err := o.dial(o.identity.SessionToken())
		if err != nil {
			return false, &FatalError{Code: coordinationExitCode, Err: err}
		}
		o.coord = coord
		o.log.Info().Msg("coordination session started")
		o.notify(func() {
			fmt.Fprintln(o.console, bannerStyle.Render("--- coordination session started ---"))
		})
	}

	if o.coord != nil {
		if err := o.coord.Advance(now); err != nil {
			return false, &FatalError{Code: coordinationExitCode, Err: err}
		}
		o.render()
	}

	if o.console.Poll() {
		line := o.console.CurrentLine()
		o.console.ClearEditing()
		o.handleLine(line)
		o.console.ResetForNextLine()
	}

	return false, nil
}

// handleLine runs one completed input line: built-ins first, then the
// command table.
func (o *Orchestrator) handleLine(line string) {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return
	}

	switch strings.ToLower(tokens[0]) {
	case "quit":
		o.quit.Store(true)
		return
	case "help":
		o.printHelp()
		return
	}

	if err := o.registry.Dispatch(line, o.console); err != nil {
		fmt.Fprintf(o.console, "%v (try \"help\")\n", err)
	}
}

func (o *Orchestrator) printHelp() {
	fmt.Fprint(o.console, "commands:\n")
	fmt.Fprint(o.console, o.registry.Usage())
	fmt.Fprint(o.console, "  help         show this listing\n")
	fmt.Fprint(o.console, "  quit         leave the session\n")
}

// coordReady reports whether coordination-dependent commands may issue
// requests yet.
func (o *Orchestrator) coordReady(out io.Writer) bool {
	if o.coord == nil {
		fmt.Fprintln(out, "coordination not started yet")
		return false
	}
	return true
}
