package displayer

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"obdiag/internal/dtc"
	"obdiag/internal/obd"
	"obdiag/internal/signal"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// Displayer runs the live dashboard over an OBD provider: a sensor page with
// processed values and a trouble-code table, refreshed on a fixed interval.
type Displayer struct {
	app       *tview.Application
	tabs      *tview.Pages
	provider  obd.Provider
	processor *signal.Processor
	opts      obd.CollectOptions

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	latest *frame

	// UI elements cached for updates
	sensorText *tview.TextView
	statusText *tview.TextView
	helpText   *tview.TextView
	dtcTable   *tview.Table
}

type frame struct {
	result signal.Result
	codes  []dtc.ParsedDTC
}

func New(provider obd.Provider, opts obd.CollectOptions) *Displayer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Displayer{
		app:       tview.NewApplication(),
		tabs:      tview.NewPages(),
		provider:  provider,
		processor: signal.New(),
		opts:      opts,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (d *Displayer) Run() error {
	dashboard := d.buildDashboard()
	dtcPage := d.buildDTC()

	// header area: title, status, help
	title := tview.NewTextView().SetTextAlign(tview.AlignCenter).SetText("obdiag - vehicle diagnostic monitor")
	d.statusText = tview.NewTextView().SetTextAlign(tview.AlignCenter).SetDynamicColors(true)
	d.helpText = tview.NewTextView().SetTextAlign(tview.AlignCenter).SetText("[1 - Sensors] [2 - DTC] [q - Quit]")

	headerFlex := tview.NewFlex().SetDirection(tview.FlexRow)
	headerFlex.AddItem(title, 1, 0, false)
	headerFlex.AddItem(d.statusText, 1, 0, false)
	headerFlex.AddItem(d.helpText, 1, 0, false)

	mainFlex := tview.NewFlex().SetDirection(tview.FlexRow)
	mainFlex.AddItem(headerFlex, 3, 0, false)

	d.tabs.AddPage("sensors", dashboard, true, true)
	d.tabs.AddPage("dtc", dtcPage, true, false)
	mainFlex.AddItem(d.tabs, 0, 1, true)

	d.app.SetRoot(mainFlex, true)
	d.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Rune() {
		case 'q', 'Q':
			d.Shutdown()
			return nil
		case '1':
			d.tabs.SwitchToPage("sensors")
			return nil
		case '2':
			d.tabs.SwitchToPage("dtc")
			return nil
		}
		return event
	})

	d.app.SetBeforeDrawFunc(func(screen tcell.Screen) bool {
		d.render()
		return false
	})

	go d.refreshLoop()

	return d.app.Run()
}

func (d *Displayer) Shutdown() {
	d.cancel()
	d.provider.Stop()
	d.app.Stop()
}

func (d *Displayer) buildDashboard() *tview.Flex {
	d.sensorText = tview.NewTextView().SetDynamicColors(true)

	flex := tview.NewFlex().SetDirection(tview.FlexRow)
	flex.AddItem(d.sensorText, 0, 1, false)
	return flex
}

func (d *Displayer) buildDTC() *tview.Table {
	tbl := tview.NewTable().SetBorders(true)
	tbl.SetCell(0, 0, tview.NewTableCell("Code").SetSelectable(false).SetAlign(tview.AlignCenter))
	tbl.SetCell(0, 1, tview.NewTableCell("Severity").SetSelectable(false).SetAlign(tview.AlignCenter))
	tbl.SetCell(0, 2, tview.NewTableCell("Description").SetSelectable(false).SetAlign(tview.AlignCenter))
	d.dtcTable = tbl
	return tbl
}

func (d *Displayer) refreshLoop() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	d.refresh()
	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.refresh()
		}
	}
}

func (d *Displayer) refresh() {
	snap, err := obd.Collect(d.provider, d.opts)
	if err != nil {
		return
	}

	f := &frame{
		result: d.processor.Process(snap.Readings),
		codes:  dtc.ParseAll(snap.DTCs),
	}

	d.mu.Lock()
	d.latest = f
	d.mu.Unlock()

	d.app.QueueUpdateDraw(func() {})
}

func (d *Displayer) render() {
	d.mu.Lock()
	f := d.latest
	d.mu.Unlock()

	status := "[red]disconnected[white]"
	if d.provider.IsConnected() {
		status = "[green]connected[white]"
	}

	if f == nil {
		d.statusText.SetText(fmt.Sprintf("Status: %s", status))
		d.sensorText.SetText("Waiting for first sweep...")
		return
	}

	d.statusText.SetText(fmt.Sprintf("Status: %s  Mode: %s  Faults: %d", status, f.result.State.Mode, len(f.codes)))

	keys := make([]string, 0, len(f.result.Sensors))
	for k := range f.result.Sensors {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	text := ""
	for _, k := range keys {
		if v := f.result.Sensors[k]; v != nil {
			text += fmt.Sprintf("%s: %.2f\n", k, *v)
		} else {
			text += fmt.Sprintf("%s: [gray]n/a[white]\n", k)
		}
	}
	d.sensorText.SetText(text)

	// rebuild DTC rows below the header
	for r := d.dtcTable.GetRowCount() - 1; r >= 1; r-- {
		d.dtcTable.RemoveRow(r)
	}
	for i, c := range f.codes {
		color := tcell.ColorWhite
		if c.Severity == dtc.SeverityCritical {
			color = tcell.ColorRed
		}
		d.dtcTable.SetCell(i+1, 0, tview.NewTableCell(c.Code).SetTextColor(color))
		d.dtcTable.SetCell(i+1, 1, tview.NewTableCell(string(c.Severity)).SetTextColor(color))
		d.dtcTable.SetCell(i+1, 2, tview.NewTableCell(c.Description))
	}
}
