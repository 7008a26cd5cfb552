// status.go - terminal status line for the CLI frontend.
//
// Not part of the engine itself; a thin presentation layer a host program
// can call once per tick (or on a slower redraw interval) to show the
// coprocessor's status byte and a rough channel-occupancy count.

package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type statusStyles struct {
	label   lipgloss.Style
	ok      lipgloss.Style
	warn    lipgloss.Style
	err     lipgloss.Style
	channel lipgloss.Style
}

func newStatusStyles() statusStyles {
	return statusStyles{
		label:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(4)),
		ok:      lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(2)),
		warn:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(3)),
		err:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(7)).Background(lipgloss.ANSIColor(1)),
		channel: lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(5)),
	}
}

// StatusLine renders one line summarizing the engine's current state: the
// raw status byte, its decoded bits, the live-channel count, and any
// accumulated error flags.
func (e *Engine) StatusLine(styles statusStyles) string {
	status := e.Status()
	flags := e.ErrorFlags()

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s  ", styles.label.Render("status"), styles.channel.Render(fmt.Sprintf("%#02x", status)))

	coin := status & 0x0F
	fmt.Fprintf(&b, "%s %s  ", styles.label.Render("coin"), fmt.Sprintf("%04b", coin))

	selfTest := styles.ok.Render("ready")
	if status&(1<<4) != 0 {
		selfTest = styles.warn.Render("self-test")
	}
	fmt.Fprintf(&b, "%s %s  ", styles.label.Render("boot"), selfTest)

	speech := styles.warn.Render("busy")
	if status&(1<<5) != 0 {
		speech = styles.ok.Render("ready")
	}
	fmt.Fprintf(&b, "%s %s  ", styles.label.Render("speech"), speech)

	inFull := styles.ok.Render("ok")
	if status&(1<<6) != 0 {
		inFull = styles.warn.Render("full")
	}
	fmt.Fprintf(&b, "%s %s  ", styles.label.Render("in"), inFull)

	outFull := styles.ok.Render("ok")
	if status&(1<<7) != 0 {
		outFull = styles.warn.Render("full")
	}
	fmt.Fprintf(&b, "%s %s  ", styles.label.Render("out"), outFull)

	fmt.Fprintf(&b, "%s %s", styles.label.Render("channels"), styles.channel.Render(fmt.Sprintf("%d", e.liveChannelCount())))

	if flags != 0 {
		fmt.Fprintf(&b, "  %s", styles.err.Render(flags.String()))
	}

	return b.String()
}

// liveChannelCount walks every channel slot and counts the live ones, for
// display purposes only.
func (e *Engine) liveChannelCount() int {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	n := 0
	for i := uint8(1); i < numChannels; i++ {
		if e.channels.isLive(i) {
			n++
		}
	}
	return n
}
