// Package console implements the interactive line editor used by the
// parley client.
//
// The console owns one editable input line. It is polled once per
// orchestrator tick and never blocks: a reader goroutine moves raw bytes
// from the terminal into a buffered channel, and Poll drains whatever
// arrived since the previous tick. The displayed line can be temporarily
// erased so asynchronous output can be written above the prompt, then
// restored exactly as the user left it.
package console

import (
	"io"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

const (
	keyCtrlC     = 0x03
	keyCtrlD     = 0x04
	keyBackspace = 0x08
	keyDelete    = 0x7f
)

// Console is a single-line terminal editor with non-blocking polling.
// All methods must be called from one goroutine (the orchestrator tick
// loop); only the internal reader goroutine touches the keys channel
// concurrently.
type Console struct {
	out    io.Writer
	keys   chan byte
	prompt string

	buf     []rune // the editable line
	pending []byte // partial utf8 sequence carried across ticks

	lineReady   bool
	line        string
	interrupted bool

	restoreTerm func() error
}

// New puts the process terminal into raw mode and returns a Console reading
// from stdin and writing to stdout. The initial prompt is drawn immediately.
// Close must be called before process exit to restore the terminal state.
func New(prompt string) (*Console, error) {
	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}

	c := newConsole(os.Stdout, prompt)
	c.restoreTerm = func() error { return term.Restore(fd, oldState) }

	go c.readLoop(os.Stdin)

	return c, nil
}

// newConsole builds a console without terminal setup or a reader goroutine.
// Input is delivered through feed. Used directly by tests.
func newConsole(out io.Writer, prompt string) *Console {
	c := &Console{
		out:    out,
		keys:   make(chan byte, 1024),
		prompt: prompt,
	}
	c.drawPrompt()
	return c
}

// readLoop moves bytes from in to the keys channel until read fails.
// Bytes arriving while the channel is full are dropped; at typing speed the
// channel never fills unless the orchestrator has stopped polling.
func (c *Console) readLoop(in io.Reader) {
	b := make([]byte, 64)
	for {
		n, err := in.Read(b)
		for i := 0; i < n; i++ {
			select {
			case c.keys <- b[i]:
			default:
			}
		}
		if err != nil {
			return
		}
	}
}

// feed injects raw input bytes as if they had been typed.
func (c *Console) feed(b []byte) {
	for _, x := range b {
		select {
		case c.keys <- x:
		default:
		}
	}
}

// SetPrompt replaces the prompt text used by subsequent draws.
func (c *Console) SetPrompt(prompt string) {
	c.prompt = prompt
}

// Poll consumes input that arrived since the last tick and reports whether
// a complete line is ready for dispatch. Once a line completes, remaining
// buffered input stays queued for the next tick.
func (c *Console) Poll() bool {
	if c.lineReady {
		return true
	}

	for {
		select {
		case b := <-c.keys:
			c.handleByte(b)
			if c.lineReady {
				return true
			}
		default:
			return false
		}
	}
}

func (c *Console) handleByte(b byte) {
	switch b {
	case '\r', '\n':
		c.line = string(c.buf)
		c.lineReady = true
		c.pending = nil
		io.WriteString(c.out, "\r\n")
		return
	case keyBackspace, keyDelete:
		if len(c.buf) > 0 {
			// Erase one terminal cell per display column: wide runes
			// (CJK and the like) occupy two cells.
			r := c.buf[len(c.buf)-1]
			c.buf = c.buf[:len(c.buf)-1]
			io.WriteString(c.out, strings.Repeat("\b \b", runewidth.RuneWidth(r)))
		}
		c.pending = nil
		return
	case keyCtrlC, keyCtrlD:
		// Raw mode disables signal generation, so ctrl-c arrives as a byte.
		c.interrupted = true
		c.pending = nil
		return
	}

	c.pending = append(c.pending, b)
	if !utf8.FullRune(c.pending) {
		return
	}

	r, _ := utf8.DecodeRune(c.pending)
	c.pending = nil
	if r == utf8.RuneError || !unicode.IsPrint(r) {
		return
	}

	c.buf = append(c.buf, r)
	io.WriteString(c.out, string(r))
}

// CurrentLine returns the completed line after Poll reported line-ready,
// or the in-progress buffer contents otherwise.
func (c *Console) CurrentLine() string {
	if c.lineReady {
		return c.line
	}
	return string(c.buf)
}

// Interrupted reports whether ctrl-c or ctrl-d was typed.
func (c *Console) Interrupted() bool {
	return c.interrupted
}

// ClearEditing discards the edited line and any completed-line state.
// The display is not touched.
func (c *Console) ClearEditing() {
	c.buf = c.buf[:0]
	c.pending = nil
	c.line = ""
	c.lineReady = false
}

// ResetForNextLine draws a fresh prompt for the next input line.
func (c *Console) ResetForNextLine() {
	c.drawPrompt()
}

// EraseDisplayedLine removes the prompt and any partially typed input from
// the terminal, keeping the buffered contents so RestoreDisplayedLine can
// bring them back. Output written between the two calls appears above the
// prompt.
func (c *Console) EraseDisplayedLine() {
	io.WriteString(c.out, "\r\x1b[K")
}

// RestoreDisplayedLine redraws the prompt followed by the buffered input
// exactly as the user left it.
func (c *Console) RestoreDisplayedLine() {
	c.drawPrompt()
	if len(c.buf) > 0 {
		io.WriteString(c.out, string(c.buf))
	}
}

// Write lets dispatch and render output flow through the console to the
// terminal. Callers are expected to have erased the displayed line first.
// Bare newlines are expanded to CRLF because the terminal is in raw mode.
func (c *Console) Write(p []byte) (int, error) {
	start := 0
	for i, b := range p {
		if b != '\n' {
			continue
		}
		if _, err := c.out.Write(p[start:i]); err != nil {
			return start, err
		}
		if _, err := io.WriteString(c.out, "\r\n"); err != nil {
			return i, err
		}
		start = i + 1
	}
	if _, err := c.out.Write(p[start:]); err != nil {
		return start, err
	}
	return len(p), nil
}

// Close restores the terminal state. The reader goroutine exits when its
// next read fails or at process exit.
func (c *Console) Close() error {
	if c.restoreTerm != nil {
		return c.restoreTerm()
	}
	return nil
}

func (c *Console) drawPrompt() {
	io.WriteString(c.out, c.prompt)
}
