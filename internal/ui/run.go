package ui

import (
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"kpc/internal/driver"
)

// RunWithProgress runs compile while drawing its phases to out. compile
// receives the observer to pass to the driver; its results are returned
// once the display has finished.
func RunWithProgress(out io.Writer, title string, compile func(driver.PhaseObserver) error) error {
	events := make(chan driver.PhaseEvent, len(driver.Phases)*2)
	errc := make(chan error, 1)
	go func() {
		defer close(events)
		errc <- compile(func(ev driver.PhaseEvent) { events <- ev })
	}()

	p := tea.NewProgram(NewProgressModel(title, driver.Phases, events), tea.WithOutput(out), tea.WithInput(nil))
	if _, err := p.Run(); err != nil {
		// drain so the compilation can finish
		for range events {
		}
		<-errc
		return err
	}
	return <-errc
}
