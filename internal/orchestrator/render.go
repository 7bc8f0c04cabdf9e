package orchestrator

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/parleyhq/parley/models"
)

var (
	bannerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	ownerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	dimStyle    = lipgloss.NewStyle().Faint(true)
)

// ownerMark decorates the room owner in membership listings.
const ownerMark = "👑"

// render emits one notification per response kind whose version changed
// since the previous tick. Kinds are checked in a fixed order so a tick
// that changes several kinds renders them deterministically. Versions are
// compared for inequality only.
func (o *Orchestrator) render() {
	if info := o.coord.RoomInfo(); info.Version != o.lastRoomInfo {
		o.lastRoomInfo = info.Version
		o.notify(func() { o.printRoomInfo(info.Payload) })
	}
	if created := o.coord.RoomCreated(); created.Version != o.lastRoomCreated {
		o.lastRoomCreated = created.Version
		o.notify(func() { o.printRoomCreated(created.Payload) })
	}
	if list := o.coord.RoomList(); list.Version != o.lastRoomList {
		o.lastRoomList = list.Version
		o.notify(func() { o.printRoomList(list.Payload) })
	}
}

// notify runs one erase/draw/restore cycle so the notification appears
// above an intact input line.
func (o *Orchestrator) notify(draw func()) {
	o.console.EraseDisplayedLine()
	draw()
	o.console.RestoreDisplayedLine()
}

func (o *Orchestrator) printRoomInfo(info models.RoomInfo) {
	fmt.Fprintln(o.console, bannerStyle.Render("--- room info updated ---"))
	fmt.Fprintf(o.console, "room %s (%d members)\n", info.RoomID, len(info.Members))
	if !o.verbose {
		return
	}
	for i, member := range info.Members {
		line := fmt.Sprintf("   %d", member)
		if i == info.OwnerIndex {
			line = ownerStyle.Render(fmt.Sprintf(" %s %d", ownerMark, member))
		}
		fmt.Fprintln(o.console, line)
	}
}

func (o *Orchestrator) printRoomCreated(created models.RoomCreated) {
	fmt.Fprintln(o.console, bannerStyle.Render("--- room create done ---"))
	fmt.Fprintf(o.console, "room %s (you are member #%d)\n", created.RoomID, created.ConnectionIndex)
}

func (o *Orchestrator) printRoomList(list models.RoomList) {
	fmt.Fprintln(o.console, bannerStyle.Render("--- room listing ---"))
	if len(list.Rooms) == 0 {
		fmt.Fprintln(o.console, dimStyle.Render("no rooms"))
		return
	}
	for _, room := range list.Rooms {
		fmt.Fprintf(o.console, "%s  %s  app %d  %d/%d\n",
			room.RoomID, room.Name, room.ApplicationID, room.MemberCount, room.MaxMembers)
	}
}
