package main

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/akmonengine/anvil"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

var (
	panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444466")).
		Padding(0, 2)

	title = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#00ccff"))

	label = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888899")).
		Width(14)

	value = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#ffffff")).
		Bold(true)
)

// eventCounter tallies the events delivered by the world
type eventCounter struct {
	mu     sync.Mutex
	counts map[anvil.EventType]int
}

func (c *eventCounter) subscribe(w *anvil.World) {
	for _, eventType := range []anvil.EventType{
		anvil.COLLISION_ENTER, anvil.COLLISION_EXIT,
		anvil.TRIGGER_ENTER, anvil.TRIGGER_EXIT,
		anvil.ON_SLEEP, anvil.ON_WAKE, anvil.JOINT_BREAK,
	} {
		w.Subscribe(eventType, c.count)
	}
}

func (c *eventCounter) count(e anvil.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = make(map[anvil.EventType]int)
	}
	c.counts[e.Type()]++
}

func (c *eventCounter) get(t anvil.EventType) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[t]
}

type report struct {
	scene    string
	steps    int
	dt       float64
	workers  int
	substeps int
	actors   int
	joints   int
	sleeping int
	events   *eventCounter
	elapsed  time.Duration
}

func (r report) stepsPerSecond() float64 {
	if r.elapsed <= 0 {
		return 0
	}
	return float64(r.steps) / r.elapsed.Seconds()
}

func renderReport(r report) string {
	rows := [][2]string{
		{"steps", fmt.Sprintf("%d × %.4fs (%d substeps)", r.steps, r.dt, r.substeps)},
		{"workers", fmt.Sprint(r.workers)},
		{"actors", fmt.Sprintf("%d (%d asleep)", r.actors, r.sleeping)},
		{"joints", fmt.Sprint(r.joints)},
		{"contacts", fmt.Sprintf("%d began, %d ended", r.events.get(anvil.COLLISION_ENTER), r.events.get(anvil.COLLISION_EXIT))},
		{"sleep", fmt.Sprintf("%d slept, %d woke", r.events.get(anvil.ON_SLEEP), r.events.get(anvil.ON_WAKE))},
		{"broken joints", fmt.Sprint(r.events.get(anvil.JOINT_BREAK))},
		{"elapsed", r.elapsed.Round(time.Millisecond).String()},
		{"rate", fmt.Sprintf("%.1f steps/s", r.stepsPerSecond())},
	}

	var b strings.Builder
	b.WriteString(title.Render(r.scene))
	for _, row := range rows {
		b.WriteString("\n")
		b.WriteString(label.Render(row[0]))
		b.WriteString(value.Render(row[1]))
	}
	return panel.Render(b.String())
}

func renderPlot(heights []float64, name string) string {
	if len(heights) == 0 {
		return ""
	}
	return asciigraph.Plot(heights,
		asciigraph.Height(12),
		asciigraph.Width(72),
		asciigraph.Precision(2),
		asciigraph.Caption(fmt.Sprintf("height of the tracked actor, %s", name)),
	)
}
