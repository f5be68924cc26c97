// Package tui renders snapshots as a terminal dashboard and maps
// single-key shortcuts onto the refresh controller.
package tui

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/ngxmon/ngxmon/pkg/engine"
)

type Tui struct {
	engine    *engine.Engine
	out       io.Writer
	noNetstat bool
	inputChan chan byte
}

func New(eng *engine.Engine, noNetstat bool) *Tui {
	return &Tui{
		engine:    eng,
		out:       os.Stdout,
		noNetstat: noNetstat,
		inputChan: make(chan byte),
	}
}

// Run redraws on every published snapshot and handles shortcuts until the
// user quits or ctx is cancelled.
func (t *Tui) Run(ctx context.Context) {
	go t.waitForOneByte()
	for {
		select {
		case <-ctx.Done():
			return
		case k := <-t.inputChan:
			if t.handleKey(ctx, k) {
				return
			}
			// This shall always run after input is handled.
			// Don't write "continue" above!
			go t.waitForOneByte()
		case <-t.engine.Updates():
			t.render()
		}
	}
}

func (t *Tui) handleKey(ctx context.Context, k byte) (quit bool) {
	switch k {
	case 'q', 'Q':
		return true
	case 'r', 'R':
		t.engine.RefreshNow(ctx)
	case 'p', 'P':
		if t.engine.State() == engine.StateRunning {
			t.engine.Pause()
		} else {
			t.engine.Resume()
		}
		t.render()
	case '1':
		_ = t.engine.SetInterval(time.Second)
		t.render()
	case '2':
		_ = t.engine.SetInterval(2 * time.Second)
		t.render()
	case '5':
		_ = t.engine.SetInterval(5 * time.Second)
		t.render()
	case '?':
		fmt.Fprintln(t.out, "Available shortcuts:")
		fmt.Fprintln(t.out, "r/R: refresh now")
		fmt.Fprintln(t.out, "p/P: pause or resume the refresh loop")
		fmt.Fprintln(t.out, "1/2/5: set the refresh interval in seconds")
		fmt.Fprintln(t.out, "q/Q: quit")
		fmt.Fprintln(t.out, "?: help")
		fmt.Fprintln(t.out)
	}
	return false
}

func (t *Tui) render() {
	opt := RenderOptions{
		Interval: t.engine.Interval(),
		Paused:   t.engine.State() == engine.StatePaused,
	}
	if !t.noNetstat {
		opt.ActiveConns = activeConns()
	}
	// Clear the screen and home the cursor before each redraw.
	fmt.Fprint(t.out, "\x1b[2J\x1b[H")
	if err := Render(t.out, t.engine.Latest(), opt); err != nil {
		log.Println(err)
	}
}

func (t *Tui) waitForOneByte() {
	oldState, err := makeRaw(int(os.Stdin.Fd()))
	if err != nil {
		log.Fatal(err)
	}
	if oldState == nil {
		return
	}
	defer restore(int(os.Stdin.Fd()), oldState)

	b := make([]byte, 1)
	n, err := os.Stdin.Read(b)
	if err != nil {
		log.Println(err)
		return
	}
	if n == 0 {
		return
	}
	t.inputChan <- b[0]
}
