// Package render draws a running simulation in the terminal: the road, the
// accident zone, the brake line, per-vehicle status and a scrolling event
// log. It consumes committed snapshots and a queue of events on its own
// goroutine, never touching simulation internals.
package render

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/anggasct/roadsim"
)

const (
	statusPanelWidth = 26
	logHeight        = 8
	frameInterval    = time.Second / 30
	flashFrames      = 12
	maxLogLines      = 64
)

var (
	styleDefault = tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite)
	styleBorder  = styleDefault.Foreground(tcell.ColorDarkGray)
	styleRoad    = styleDefault.Foreground(tcell.ColorWhite)
	styleZone    = styleDefault.Foreground(tcell.ColorRed)
	styleBrake   = styleDefault.Foreground(tcell.ColorYellow)
	styleLog     = styleDefault.Foreground(tcell.ColorLime)
	styleHeader  = styleDefault.Foreground(tcell.ColorAqua).Bold(true)
	styleFlash   = styleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorWhite).Bold(true)
	statusStyles = map[roadsim.Status]tcell.Style{
		roadsim.StatusNormal:   styleDefault.Foreground(tcell.ColorGreen),
		roadsim.StatusAccident: styleDefault.Foreground(tcell.ColorRed).Bold(true),
		roadsim.StatusAlert:    styleDefault.Foreground(tcell.ColorOrange),
		roadsim.StatusStopped:  styleDefault.Foreground(tcell.ColorYellow),
	}
)

// Renderer is a terminal view over a simulation
type Renderer struct {
	screen tcell.Screen
	sim    *roadsim.Simulation
	queue  *roadsim.QueueSink

	logLines   []string
	flashLeft  int
	quitKeyHit bool
}

// New creates a renderer with an initialized tcell screen.
// Attach Sink() to the simulation before starting it.
func New(sim *roadsim.Simulation) (*Renderer, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("failed to create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("failed to init screen: %w", err)
	}
	screen.SetStyle(styleDefault)

	return &Renderer{
		screen: screen,
		sim:    sim,
		queue:  roadsim.NewQueueSink(512),
	}, nil
}

// Sink returns the event sink feeding the renderer
func (r *Renderer) Sink() roadsim.Sink {
	return r.queue
}

// Run drives the render loop until the user quits. It returns after the
// simulation has finished and a key was pressed, or immediately on
// q / ESC / Ctrl-C.
func (r *Renderer) Run() error {
	defer r.screen.Fini()

	keys := make(chan *tcell.EventKey, 8)
	go func() {
		for {
			ev := r.screen.PollEvent()
			switch e := ev.(type) {
			case *tcell.EventKey:
				keys <- e
			case *tcell.EventResize:
				r.screen.Sync()
			case nil:
				return
			}
		}
	}()

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	for {
		select {
		case key := <-keys:
			if r.isQuit(key) {
				return nil
			}
			if r.quitKeyHit {
				return nil
			}
		case <-ticker.C:
			r.consumeEvents()
			r.draw()

			select {
			case <-r.sim.Done():
				// Keep the final frame up until any key
				r.quitKeyHit = true
			default:
			}
		}
	}
}

func (r *Renderer) isQuit(key *tcell.EventKey) bool {
	if key.Key() == tcell.KeyEscape || key.Key() == tcell.KeyCtrlC {
		return true
	}
	return key.Rune() == 'q'
}

// consumeEvents drains the queue into log lines and triggers the crash flash
func (r *Renderer) consumeEvents() {
	for _, e := range r.queue.Drain() {
		switch e.Kind {
		case roadsim.EventVehicleMoved:
			// Positions come from snapshots; keep the log readable
			continue
		case roadsim.EventCollisionDetected:
			r.flashLeft = flashFrames
		case roadsim.EventStatusChanged:
			r.appendLog(fmt.Sprintf("Car %d: %s", e.VehicleID, e.Status))
			continue
		case roadsim.EventPhaseChanged:
			r.appendLog(fmt.Sprintf("-- %s --", e.PhaseName))
			continue
		case roadsim.EventFaultRaised:
			r.appendLog(fmt.Sprintf("FAULT: %v", e.Err))
			continue
		}
		r.appendLog(e.Message)
	}
	if r.flashLeft > 0 {
		r.flashLeft--
	}
}

func (r *Renderer) appendLog(line string) {
	if line == "" {
		return
	}
	r.logLines = append(r.logLines, line)
	if len(r.logLines) > maxLogLines {
		r.logLines = r.logLines[len(r.logLines)-maxLogLines:]
	}
}

// draw renders one frame from the latest committed snapshot
func (r *Renderer) draw() {
	r.screen.Clear()

	width, height := r.screen.Size()
	trackW := width - statusPanelWidth
	trackH := height - logHeight
	if trackW < 20 || trackH < 10 {
		r.drawText(0, 0, styleDefault, "terminal too small")
		r.screen.Show()
		return
	}

	scenario := r.sim.Scenario()
	vehicles := r.sim.Snapshot()

	r.drawTrack(trackW, trackH, scenario, vehicles)
	r.drawVehicles(trackW, trackH, scenario, vehicles)
	r.drawStatusPanel(trackW, vehicles)
	r.drawLog(trackH, width)

	r.screen.Show()
}

// scale maps scenario coordinates onto the track area
func scale(v, worldMax, cells int) int {
	if worldMax <= 0 {
		return 0
	}
	c := v * (cells - 1) / worldMax
	if c < 0 {
		c = 0
	}
	if c > cells-1 {
		c = cells - 1
	}
	return c
}

func (r *Renderer) drawTrack(trackW, trackH int, scenario roadsim.Scenario, vehicles []roadsim.Vehicle) {
	// Dashed center line of the horizontal road
	centerX := scale(scenario.WindowW/2, scenario.WindowW, trackW)
	for y := 0; y < trackH; y += 2 {
		r.screen.SetContent(centerX, y, '¦', nil, styleRoad)
	}

	// Accident zone around the colliding pair's row
	minX, maxX, rowY := collisionRow(scenario, vehicles)
	zoneY := scale(rowY, scenario.WindowH, trackH)
	left := scale(minX-40, scenario.WindowW, trackW)
	right := scale(maxX+40, scenario.WindowW, trackW)
	for x := left; x <= right; x++ {
		r.screen.SetContent(x, zoneY+1, '-', nil, styleZone)
		r.screen.SetContent(x, zoneY-1, '-', nil, styleZone)
	}
	r.drawText(left, zoneY-2, styleZone, "ACCIDENT ZONE")

	// Brake line
	brakeY := scale(scenario.BrakeLine(), scenario.WindowH, trackH)
	for x := 0; x < trackW; x++ {
		r.screen.SetContent(x, brakeY, '·', nil, styleBrake)
	}
	r.drawText(1, brakeY-1, styleBrake, "AUTO BRAKE LINE")

	// Panel separator
	for y := 0; y < trackH; y++ {
		r.screen.SetContent(trackW, y, '│', nil, styleBorder)
	}
}

// collisionRow bounds the colliding pair's lateral extent and shared row
func collisionRow(scenario roadsim.Scenario, vehicles []roadsim.Vehicle) (minX, maxX, rowY int) {
	minX, maxX = scenario.WindowW, 0
	rowY = scenario.WindowH / 2
	for _, v := range vehicles {
		if v.Role != roadsim.RoleColliding {
			continue
		}
		if v.X < minX {
			minX = v.X
		}
		if v.X > maxX {
			maxX = v.X
		}
		rowY = v.Y
	}
	return minX, maxX, rowY
}

func (r *Renderer) drawVehicles(trackW, trackH int, scenario roadsim.Scenario, vehicles []roadsim.Vehicle) {
	for _, v := range vehicles {
		x := scale(v.X, scenario.WindowW, trackW)
		y := scale(v.Y, scenario.WindowH, trackH)

		style := statusStyles[v.Status]
		if r.flashLeft > 0 && v.Status == roadsim.StatusAccident && r.flashLeft%2 == 0 {
			style = styleFlash
		}

		label := fmt.Sprintf("C%d", v.ID)
		r.drawText(x, y, style, label)
	}
}

func (r *Renderer) drawStatusPanel(trackW int, vehicles []roadsim.Vehicle) {
	x := trackW + 2
	r.drawText(x, 0, styleHeader, "VEHICLES")
	for i, v := range vehicles {
		style := statusStyles[v.Status]
		r.drawText(x, 2+i, style, fmt.Sprintf("Car %d: %-8s", v.ID, v.Status))
	}

	r.drawText(x, 3+len(vehicles), styleHeader, "PHASE")
	r.drawText(x, 4+len(vehicles), styleDefault, r.sim.Phase().String())

	if r.quitKeyHit {
		r.drawText(x, 6+len(vehicles), styleLog, "press any key to exit")
	}
}

func (r *Renderer) drawLog(trackH, width int) {
	for x := 0; x < width; x++ {
		r.screen.SetContent(x, trackH, '─', nil, styleBorder)
	}

	start := 0
	if len(r.logLines) > logHeight-1 {
		start = len(r.logLines) - (logHeight - 1)
	}
	for i, line := range r.logLines[start:] {
		r.drawText(0, trackH+1+i, styleLog, line)
	}
}

func (r *Renderer) drawText(x, y int, style tcell.Style, text string) {
	for i, ch := range text {
		r.screen.SetContent(x+i, y, ch, nil, style)
	}
}
