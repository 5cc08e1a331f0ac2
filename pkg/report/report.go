package report

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/freetier/reaper/pkg/plans"
)

// Reporter receives progress events while a reap plan executes.
type Reporter interface {
	Tier(name string)
	Outcome(outcome plans.Outcome)
}

var (
	tierStyle     = lipgloss.NewStyle().Bold(true)
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	infoStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	resourceStyle = lipgloss.NewStyle().Faint(true)
)

// Console prints one classified line per resource plus a header per tier.
type Console struct {
	Out io.Writer
}

func (c Console) Tier(name string) {
	fmt.Fprintln(c.Out, tierStyle.Render("==> "+name))
}

func (c Console) Outcome(outcome plans.Outcome) {
	resource := resourceStyle.Render(fmt.Sprintf("%s/%s", outcome.Kind, outcome.ID))
	switch outcome.Status {
	case plans.StatusDeleted:
		fmt.Fprintf(c.Out, "%s %s\n", successStyle.Render("deleted  "), resource)
	case plans.StatusNotFound:
		fmt.Fprintf(c.Out, "%s %s\n", infoStyle.Render("not found"), resource)
	default:
		detail := outcome.Detail
		if detail != "" {
			detail = ": " + detail
		}
		fmt.Fprintf(c.Out, "%s %s%s\n", errorStyle.Render(string(outcome.Status)), resource, detail)
	}
}

// Discard drops all events. Used when no reporter is configured.
type Discard struct{}

func (Discard) Tier(string) {}

func (Discard) Outcome(plans.Outcome) {}
