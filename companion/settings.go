package main

import (
	"fmt"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/tensile/pkg/companion"
	"github.com/itohio/tensile/pkg/loadcell"
)

// showSettingsDialog displays the settings tabs.
func showSettingsDialog(state *appState) {
	tabs := container.NewAppTabs(
		createSerialTab(state),
		createStorageTab(state),
		createDisplayTab(state),
	)

	content := container.NewBorder(nil, nil, nil, nil, tabs)
	content.Resize(fyne.NewSize(600, 400))

	d := dialog.NewCustom("Settings", "Close", content, state.window)
	d.Resize(fyne.NewSize(600, 400))
	d.Show()
}

func saveConfig(state *appState) {
	if err := state.cfg.Save(configPath); err != nil {
		dialog.ShowError(fmt.Errorf("failed to save config: %w", err), state.window)
	}
}

// createSerialTab selects the device port and command timing.
func createSerialTab(state *appState) *container.TabItem {
	var options []string
	if ports, err := loadcell.Ports(); err == nil {
		for _, p := range ports {
			options = append(options, p.Name)
		}
	}
	current := state.cfg.Companion.Port
	found := false
	for _, o := range options {
		if o == current {
			found = true
			break
		}
	}
	if !found && current != "" {
		options = append(options, current)
	}

	portSelect := widget.NewSelect(options, nil)
	if current != "" {
		portSelect.SetSelected(current)
	}

	baudEntry := widget.NewEntry()
	baudEntry.SetText(strconv.Itoa(state.cfg.Companion.BaudRate))

	startupEntry := widget.NewEntry()
	startupEntry.SetText(state.cfg.Companion.StartupWait.String())

	delayEntry := widget.NewEntry()
	delayEntry.SetText(state.cfg.Companion.CommandDelay.String())

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Serial Port", Widget: portSelect},
			{Text: "Baud Rate", Widget: baudEntry},
			{Text: "Startup Wait", Widget: startupEntry},
			{Text: "Command Delay", Widget: delayEntry},
		},
		OnSubmit: func() {
			if portSelect.Selected != "" {
				state.cfg.Companion.Port = portSelect.Selected
			}
			if baud, err := strconv.Atoi(baudEntry.Text); err == nil && baud > 0 {
				state.cfg.Companion.BaudRate = baud
			}
			if d, err := time.ParseDuration(startupEntry.Text); err == nil {
				state.cfg.Companion.StartupWait = d
			}
			if d, err := time.ParseDuration(delayEntry.Text); err == nil {
				state.cfg.Companion.CommandDelay = d
			}
			saveConfig(state)
		},
	}

	return container.NewTabItem("Serial", form)
}

// createStorageTab configures where tests go and the default technician.
func createStorageTab(state *appState) *container.TabItem {
	testsEntry := widget.NewEntry()
	testsEntry.SetText(state.cfg.Companion.TestsDirectory)

	exportEntry := widget.NewEntry()
	exportEntry.SetText(state.cfg.Companion.ExportDirectory)

	technicianEntry := widget.NewEntry()
	technicianEntry.SetText(state.cfg.Companion.Technician)

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Tests Directory", Widget: testsEntry},
			{Text: "Export Directory", Widget: exportEntry},
			{Text: "Technician", Widget: technicianEntry},
		},
		OnSubmit: func() {
			if testsEntry.Text != "" {
				state.cfg.Companion.TestsDirectory = testsEntry.Text
				state.store = companion.NewStore(testsEntry.Text, state.unit)
			}
			if exportEntry.Text != "" {
				state.cfg.Companion.ExportDirectory = exportEntry.Text
			}
			state.cfg.Companion.Technician = technicianEntry.Text
			saveConfig(state)
		},
	}

	return container.NewTabItem("Storage", form)
}

// createDisplayTab configures the plot.
func createDisplayTab(state *appState) *container.TabItem {
	windowEntry := widget.NewEntry()
	windowEntry.SetText(strconv.FormatFloat(state.cfg.Companion.WindowSeconds, 'f', 1, 64))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Window (seconds)", Widget: windowEntry},
		},
		OnSubmit: func() {
			if ws, err := strconv.ParseFloat(windowEntry.Text, 64); err == nil && ws > 0 {
				state.cfg.Companion.WindowSeconds = ws
				state.scopeWidget.SetWindow(ws)
			}
			saveConfig(state)
		},
	}

	return container.NewTabItem("Display", form)
}
