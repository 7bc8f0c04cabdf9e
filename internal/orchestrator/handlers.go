package orchestrator

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/parleyhq/parley/internal/command"
	"github.com/parleyhq/parley/internal/identity"
	"github.com/parleyhq/parley/models"
)

// defaultRoomMaxMembers caps newly created rooms when the server has no say.
const defaultRoomMaxMembers = 8

// Option schemas are declared once per command and shared by the handler
// (for parsing) and the registry (for per-option help rendering).

type roomCreateOptions struct {
	name    string
	verbose bool
}

func (o *roomCreateOptions) bind(fs *flag.FlagSet) {
	fs.StringVar(&o.name, "name", "", "room name")
	fs.BoolVar(&o.verbose, "verbose", false, "verbose room info rendering")
}

type roomJoinOptions struct {
	id      string
	verbose bool
}

func (o *roomJoinOptions) bind(fs *flag.FlagSet) {
	fs.StringVar(&o.id, "id", "", "room id to join")
	fs.BoolVar(&o.verbose, "verbose", false, "verbose room info rendering")
}

type roomListOptions struct {
	applicationID uint64
	maximumCount  int
}

func (o *roomListOptions) bind(fs *flag.FlagSet) {
	fs.Uint64Var(&o.applicationID, "applicationId", 0, "only rooms of this application")
	fs.IntVar(&o.maximumCount, "maximumCount", 0, "cap on the number of rooms returned")
}

type pingOptions struct {
	knowledge uint64
	verbose   bool
}

func (o *pingOptions) bind(fs *flag.FlagSet) {
	fs.Uint64Var(&o.knowledge, "knowledge", 0, "knowledge value to report")
	fs.BoolVar(&o.verbose, "verbose", false, "verbose room info rendering")
}

func (o *Orchestrator) registerCommands() {
	o.registry.Register(command.Descriptor{
		Path:    []string{"room", "create"},
		Help:    "create a room and become its owner",
		Options: func(fs *flag.FlagSet) { new(roomCreateOptions).bind(fs) },
		Run:     o.cmdRoomCreate,
	})
	o.registry.Register(command.Descriptor{
		Path:    []string{"room", "join"},
		Help:    "join an existing room by id",
		Options: func(fs *flag.FlagSet) { new(roomJoinOptions).bind(fs) },
		Run:     o.cmdRoomJoin,
	})
	o.registry.Register(command.Descriptor{
		Path:    []string{"room", "list"},
		Help:    "list rooms known to the coordination service",
		Options: func(fs *flag.FlagSet) { new(roomListOptions).bind(fs) },
		Run:     o.cmdRoomList,
	})
	o.registry.Register(command.Descriptor{
		Path:    []string{"ping"},
		Help:    "send a ping carrying a knowledge value",
		Options: func(fs *flag.FlagSet) { new(pingOptions).bind(fs) },
		Run:     o.cmdPing,
	})
	o.registry.Register(command.Descriptor{
		Path: []string{"state"},
		Help: "show the session state",
		Run:  o.cmdState,
	})
}

func (o *Orchestrator) cmdRoomCreate(args []string, out io.Writer) error {
	var opts roomCreateOptions
	fs := command.NewFlagSet("room create", out)
	opts.bind(fs)
	if err := fs.Parse(args); err != nil {
		return nil // usage already printed by the flag set
	}
	if !o.coordReady(out) {
		return nil
	}

	o.verbose = opts.verbose
	o.coord.CreateRoom(models.RoomCreateOptions{
		Name:       opts.name,
		MaxMembers: defaultRoomMaxMembers,
	})
	fmt.Fprintln(out, "room create requested")
	return nil
}

func (o *Orchestrator) cmdRoomJoin(args []string, out io.Writer) error {
	var opts roomJoinOptions
	fs := command.NewFlagSet("room join", out)
	opts.bind(fs)
	if err := fs.Parse(args); err != nil {
		return nil
	}
	if opts.id == "" {
		return errors.New("room join: --id is required")
	}
	if !o.coordReady(out) {
		return nil
	}

	o.verbose = opts.verbose
	o.coord.JoinRoom(opts.id)
	fmt.Fprintf(out, "join of room %s requested\n", opts.id)
	return nil
}

func (o *Orchestrator) cmdRoomList(args []string, out io.Writer) error {
	var opts roomListOptions
	fs := command.NewFlagSet("room list", out)
	opts.bind(fs)
	if err := fs.Parse(args); err != nil {
		return nil
	}
	if !o.coordReady(out) {
		return nil
	}

	o.coord.ListRooms(models.RoomListOptions{
		ApplicationID: opts.applicationID,
		MaximumCount:  opts.maximumCount,
	})
	fmt.Fprintln(out, "room listing requested")
	return nil
}

func (o *Orchestrator) cmdPing(args []string, out io.Writer) error {
	var opts pingOptions
	fs := command.NewFlagSet("ping", out)
	opts.bind(fs)
	if err := fs.Parse(args); err != nil {
		return nil
	}
	if !o.coordReady(out) {
		return nil
	}

	o.verbose = opts.verbose
	o.coord.Ping(opts.knowledge)
	fmt.Fprintf(out, "ping sent (knowledge %d)\n", opts.knowledge)
	return nil
}

func (o *Orchestrator) cmdState(args []string, out io.Writer) error {
	fmt.Fprintf(out, "identity: %s\n", o.identity.State())
	if o.identity.State() == identity.StateLoggedIn {
		fmt.Fprintf(out, "user id: %d\n", o.identity.UserID())
	}
	if err := o.identity.Err(); err != nil {
		fmt.Fprintf(out, "last login error: %v\n", err)
	}

	if o.coord == nil {
		fmt.Fprintln(out, "coordination: not started")
		return nil
	}
	fmt.Fprintln(out, "coordination: running")
	if info := o.coord.RoomInfo(); info.Version != 0 {
		fmt.Fprintf(out, "room: %s (%d members)\n", info.Payload.RoomID, len(info.Payload.Members))
	}
	return nil
}
