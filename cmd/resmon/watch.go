package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gethomeport/resmon/internal/alert"
	"github.com/gethomeport/resmon/internal/display"
	"github.com/gethomeport/resmon/internal/monitor"
)

// recentAlerts is how many alerts stay on screen under the snapshot.
const recentAlerts = 5

// frame mirrors api.StreamMessage with the payload left undecoded.
type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func runWatch(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, streamURL(apiURL), nil)
	if err != nil {
		die(fmt.Errorf("cannot open stream: %w", err))
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	screen := term.IsTerminal(int(os.Stdout.Fd()))
	restore := func() {}
	if screen {
		restore = enableSingleView()
	}
	defer restore()

	v := &watchView{screen: screen}
	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			if ctx.Err() != nil {
				return
			}
			restore()
			die(fmt.Errorf("stream closed: %w", err))
		}
		v.handle(f)
	}
}

type watchView struct {
	screen bool
	last   *monitor.Snapshot
	alerts []string
	status string
}

func (v *watchView) handle(f frame) {
	switch f.Type {
	case "snapshot":
		var snap monitor.Snapshot
		if err := json.Unmarshal(f.Data, &snap); err != nil {
			return
		}
		v.last = &snap
		v.status = ""
		if !v.screen {
			fmt.Println(display.FormatSnapshot(snap))
		}

	case "alert":
		var ev alert.Event
		if err := json.Unmarshal(f.Data, &ev); err != nil {
			return
		}
		line := alertLine(ev)
		v.alerts = append(v.alerts, line)
		if len(v.alerts) > recentAlerts {
			v.alerts = v.alerts[len(v.alerts)-recentAlerts:]
		}
		if !v.screen {
			fmt.Println(line)
		}

	case "error":
		var msg string
		_ = json.Unmarshal(f.Data, &msg)
		v.status = msg
		if !v.screen {
			fmt.Fprintln(os.Stderr, "error:", msg)
		}
	}

	if v.screen {
		v.render()
	}
}

func (v *watchView) render() {
	var b strings.Builder
	if v.last != nil {
		b.WriteString(display.FormatSnapshot(*v.last))
	} else {
		b.WriteString("Waiting for first sample...\n")
	}

	if len(v.alerts) > 0 {
		b.WriteString("\nRecent alerts:\n")
		for _, a := range v.alerts {
			b.WriteString(a + "\n")
		}
	}
	if v.status != "" {
		b.WriteString("\n" + v.status + "\n")
	}
	b.WriteString("\nCtrl-C to exit")

	clearScreen()
	fmt.Print(b.String())
}

func alertLine(ev alert.Event) string {
	return fmt.Sprintf("[%s] %s", ev.Timestamp.Local().Format(display.TimeFormat), display.FormatAlert(ev))
}

func clearScreen() {
	fmt.Print("\033[H\033[2J")
}

func enableSingleView() func() {
	fmt.Print("\033[?1049h") // switch to alternate buffer
	fmt.Print("\033[?25l")   // hide cursor

	var restore []func()
	stdinFD := int(os.Stdin.Fd())
	if term.IsTerminal(stdinFD) {
		if undoEcho, err := disableInputEcho(stdinFD); err == nil && undoEcho != nil {
			restore = append(restore, undoEcho)
		}
	}

	done := false
	return func() {
		if done {
			return
		}
		done = true
		for i := len(restore) - 1; i >= 0; i-- {
			restore[i]()
		}
		fmt.Print("\033[?25h")   // show cursor
		fmt.Print("\033[?1049l") // restore main buffer
	}
}
