package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/x/ansi"
	"github.com/charmbracelet/x/vt"
	"golang.org/x/term"

	"osim/kernel/boot"
)

// runMonitor attaches an interactive VT100 view to one of the machine's
// simulated TTYs: bytes the guest writes via TTY_WRITE are parsed by a
// vt.SafeEmulator and redrawn on the host terminal, and host keystrokes
// are forwarded into the TTY's receive buffer, the same
// output-through-emulator / input-through-raw-stdin split
// tinyrange-cc/internal/term/terminal.go and
// tinyrange-cc/internal/cmd/term/main.go use for a guest console — adapted
// here to render against the real host terminal via ansi escapes instead
// of an OpenGL window, since osim has no graphics stack.
func runMonitor(sys *boot.System, ttyID int) error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return fmt.Errorf("stdin is not a terminal")
	}

	cols, rows, err := term.GetSize(fd)
	if err != nil {
		cols, rows = 80, 24
	}

	old, err := term.MakeRaw(fd)
	if err != nil {
		return err
	}
	defer term.Restore(fd, old)

	emu := vt.NewSafeEmulator(cols, rows)
	defer emu.Close()

	tty := sys.Machine.TTYs[ttyID]
	tty.Sink = func(b []byte) { emu.Write(b) }

	redraw := make(chan struct{}, 1)
	kick := func() {
		select {
		case redraw <- struct{}{}:
		default:
		}
	}
	tty.OnTransmitComplete(func(int) { kick() })

	// Host keystrokes feed the simulated TTY's inbound queue directly,
	// exactly as a real terminal's input would reach TtyReceive — no vt
	// involvement needed on this side since osim's kernel never
	// interprets escape sequences itself (spec.md §6 TtyReceive contract
	// is raw bytes).
	go func() {
		buf := make([]byte, 256)
		for {
			n, err := os.Stdin.Read(buf)
			if n > 0 {
				data := make([]byte, n)
				copy(data, buf[:n])
				tty.DeliverInput(data)
			}
			if err != nil {
				return
			}
		}
	}()

	drawScreen(os.Stdout, emu, cols, rows)
	for range redraw {
		drawScreen(os.Stdout, emu, cols, rows)
	}
	return nil
}

// drawScreen repaints the host terminal from emu's cell grid: clear,
// blit every non-blank cell, then position the cursor where the guest
// left it.
func drawScreen(w *os.File, emu *vt.SafeEmulator, cols, rows int) {
	fmt.Fprint(w, ansi.EraseEntireDisplay+ansi.CursorHomePosition)
	for y := 0; y < rows && y < emu.Height(); y++ {
		for x := 0; x < cols && x < emu.Width(); {
			cell := emu.CellAt(x, y)
			width := 1
			content := " "
			if cell != nil {
				content = cell.Content
				if cell.Width > 1 {
					width = cell.Width
				}
			}
			fmt.Fprint(w, content)
			x += width
		}
		if y != rows-1 {
			fmt.Fprint(w, "\r\n")
		}
	}
	cur := emu.CursorPosition()
	fmt.Fprint(w, ansi.CursorPosition(cur.X+1, cur.Y+1))
}
