package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/itohio/tensile/pkg/companion"
	"github.com/itohio/tensile/pkg/config"
	"github.com/itohio/tensile/pkg/scope"
	"github.com/itohio/tensile/pkg/units"
)

// Redraw at most ~60 times per second.
const updateInterval = 16 * time.Millisecond

func NewGUICommand() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "gui",
		Short: "Open the live test window",
		RunE: func(_ *cobra.Command, _ []string) error {
			if port != "" {
				cfg.Companion.Port = port
			}
			unit, err := cfg.Unit()
			if err != nil {
				return err
			}
			runGUI(cfg, unit)
			return nil
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "device serial port (overrides config)")

	return cmd
}

// appState holds the application state.
type appState struct {
	cfg     *config.Config
	unit    units.Unit
	window  fyne.Window
	session *companion.Session
	store   *companion.Store
	client  *companion.Client

	scopeWidget *scope.ScopeWidget
	currentLbl  *widget.Label
	peakLbl     *widget.Label
	statusLbl   *widget.Label

	connectBtn *widget.Button
	newTestBtn *widget.Button
	pauseBtn   *widget.Button
	resumeBtn  *widget.Button
	saveBtn    *widget.Button

	consumerDone chan struct{}

	lastUpdateTime time.Time
	updateMu       sync.Mutex
}

func runGUI(cfg *config.Config, unit units.Unit) {
	application := app.NewWithID("com.itohio.tensile")

	window := application.NewWindow("Tensile Companion")
	window.Resize(fyne.NewSize(1200, 800))
	window.CenterOnScreen()

	state := &appState{
		cfg:     cfg,
		unit:    unit,
		window:  window,
		session: companion.NewSession(unit),
		store:   companion.NewStore(cfg.Companion.TestsDirectory, unit),
	}

	state.scopeWidget = scope.New(unit, cfg.Companion.WindowSeconds)
	state.currentLbl = widget.NewLabel("Current: " + unit.Format(0))
	state.peakLbl = widget.NewLabel("Peak: " + unit.Format(0))
	state.statusLbl = widget.NewLabel("Disconnected")

	readout := container.NewHBox(state.currentLbl, widget.NewSeparator(), state.peakLbl, widget.NewSeparator(), state.statusLbl)

	window.SetContent(container.NewBorder(
		createToolbar(state),
		readout,
		nil,
		nil,
		state.scopeWidget,
	))
	window.SetOnClosed(func() {
		disconnect(state)
	})
	window.ShowAndRun()
}

// createToolbar creates the toolbar with connection, test control, save and settings buttons.
func createToolbar(state *appState) fyne.CanvasObject {
	state.connectBtn = widget.NewButtonWithIcon("Connect", theme.LoginIcon(), func() {
		handleConnect(state)
	})
	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		showSettingsDialog(state)
	})

	state.newTestBtn = widget.NewButtonWithIcon("New Test", theme.MediaRecordIcon(), func() {
		handleNewTest(state)
	})
	state.pauseBtn = widget.NewButtonWithIcon("Pause", theme.MediaPauseIcon(), func() {
		runCommand(state, func() error { return state.client.Pause() })
	})
	state.resumeBtn = widget.NewButtonWithIcon("Resume", theme.MediaPlayIcon(), func() {
		runCommand(state, func() error { return state.client.Resume() })
	})
	state.saveBtn = widget.NewButtonWithIcon("Save", theme.DocumentSaveIcon(), func() {
		showSaveDialog(state)
	})
	exportBtn := widget.NewButtonWithIcon("Export CSV", theme.DownloadIcon(), func() {
		handleExport(state)
	})

	setControlsEnabled(state, false)

	return container.NewBorder(
		nil,
		nil,
		container.NewHBox(state.connectBtn, settingsBtn),
		container.NewHBox(state.newTestBtn, state.pauseBtn, state.resumeBtn, state.saveBtn, exportBtn),
		nil,
	)
}

func setControlsEnabled(state *appState, enabled bool) {
	for _, btn := range []*widget.Button{state.newTestBtn, state.pauseBtn, state.resumeBtn} {
		if enabled {
			btn.Enable()
		} else {
			btn.Disable()
		}
	}
}

// handleConnect connects or disconnects the device.
func handleConnect(state *appState) {
	if state.client != nil && state.client.IsConnected() {
		disconnect(state)
		return
	}

	client := newClient()
	state.connectBtn.Disable()
	state.statusLbl.SetText("Connecting to " + state.cfg.Companion.Port + "...")

	go func() {
		err := client.Connect(context.Background())
		fyne.Do(func() {
			state.connectBtn.Enable()
			if err != nil {
				state.statusLbl.SetText("Disconnected")
				dialog.ShowError(fmt.Errorf("failed to connect to %s: %w", state.cfg.Companion.Port, err), state.window)
				return
			}

			state.client = client
			state.connectBtn.SetText("Disconnect")
			setControlsEnabled(state, true)
			updateStatus(state)

			done := make(chan struct{})
			state.consumerDone = done
			go consumeRecords(state, client.Records(), done)
		})
	}()
}

func disconnect(state *appState) {
	if state.client == nil {
		return
	}
	if err := state.client.Disconnect(); err != nil {
		logrus.WithError(err).Warn("disconnect failed")
	}
	if state.consumerDone != nil {
		<-state.consumerDone
		state.consumerDone = nil
	}
	state.client = nil
	state.connectBtn.SetText("Connect")
	setControlsEnabled(state, false)
	state.statusLbl.SetText("Disconnected")
}

// consumeRecords adds records to the session and refreshes the view, throttled.
func consumeRecords(state *appState, records <-chan companion.Record, done chan<- struct{}) {
	defer close(done)

	for rec := range records {
		state.session.Add(rec)

		state.updateMu.Lock()
		now := time.Now()
		if now.Sub(state.lastUpdateTime) < updateInterval {
			state.updateMu.Unlock()
			continue
		}
		state.lastUpdateTime = now
		state.updateMu.Unlock()

		snapshot := state.session.Records()
		fyne.Do(func() {
			state.currentLbl.SetText("Current: " + state.unit.Format(rec.Current))
			state.peakLbl.SetText("Peak: " + state.unit.Format(rec.Peak))
			state.scopeWidget.UpdateData(snapshot)
		})
	}

	fyne.Do(func() {
		if state.client != nil && !state.client.IsConnected() {
			state.statusLbl.SetText("Connection lost")
		}
	})
}

func handleNewTest(state *appState) {
	start := func() {
		if err := state.client.StartNewTest(context.Background()); err != nil {
			dialog.ShowError(err, state.window)
			return
		}
		state.session.Clear()
		state.scopeWidget.UpdateData(nil)
		updateStatus(state)
	}

	if state.session.Len() == 0 {
		start()
		return
	}
	dialog.ShowConfirm("New Test", "Discard the unsaved readings of the current test?", func(ok bool) {
		if ok {
			start()
		}
	}, state.window)
}

func runCommand(state *appState, cmd func() error) {
	if err := cmd(); err != nil {
		dialog.ShowError(err, state.window)
	}
	updateStatus(state)
}

func updateStatus(state *appState) {
	if state.client == nil {
		state.statusLbl.SetText("Disconnected")
		return
	}
	status := "Measuring"
	if state.client.Paused() {
		status = "Paused"
	}
	state.statusLbl.SetText(fmt.Sprintf("%s on %s", status, state.cfg.Companion.Port))
}

func handleExport(state *appState) {
	path, err := state.session.Save(state.cfg.Companion.ExportDirectory, "")
	if err != nil {
		dialog.ShowError(err, state.window)
		return
	}
	dialog.ShowInformation("Exported", path, state.window)
}

// showSaveDialog asks for test metadata and stores the session.
func showSaveDialog(state *appState) {
	if state.session.Len() == 0 {
		dialog.ShowError(companion.ErrNoData, state.window)
		return
	}

	nameEntry := widget.NewEntry()
	nameEntry.SetPlaceHolder("Test name")
	technicianEntry := widget.NewEntry()
	technicianEntry.SetText(state.cfg.Companion.Technician)
	notesEntry := widget.NewMultiLineEntry()
	notesEntry.SetMinRowsVisible(4)

	items := []*widget.FormItem{
		{Text: "Test Name", Widget: nameEntry},
		{Text: "Technician", Widget: technicianEntry},
		{Text: "Notes", Widget: notesEntry},
	}

	d := dialog.NewForm("Save Test", "Save", "Cancel", items, func(ok bool) {
		if !ok {
			return
		}
		now := time.Now()
		path, err := state.store.NewTestPath(nameEntry.Text, now)
		if err == nil {
			err = state.store.Save(path, companion.Metadata{
				TestName:   nameEntry.Text,
				DateTime:   now.Format(companion.DateTimeLayout),
				Technician: technicianEntry.Text,
				Notes:      notesEntry.Text,
			}, state.session.Records())
		}
		if err != nil {
			dialog.ShowError(err, state.window)
			return
		}
		logrus.WithField("path", path).Info("test saved")
		dialog.ShowInformation("Saved", path, state.window)
	}, state.window)
	d.Resize(fyne.NewSize(500, 350))
	d.Show()
}
