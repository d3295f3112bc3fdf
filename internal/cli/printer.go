package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"
	"golang.org/x/term"
)

// Printer renders user-facing output. A quiet printer only reports errors.
type Printer struct {
	Quiet bool
	// Out receives Printf, Println and passed-through tool output; nil means os.Stdout.
	Out io.Writer
	// ErrOut receives passed-through tool stderr; nil means os.Stderr.
	ErrOut io.Writer
}

// DefaultPrinter is the printer used by the package-level helpers.
var DefaultPrinter = &Printer{}

func (p *Printer) out() io.Writer {
	switch {
	case p.Quiet:
		return io.Discard
	case p.Out != nil:
		return p.Out
	}
	return os.Stdout
}

func (p *Printer) errOut() io.Writer {
	switch {
	case p.Quiet:
		return io.Discard
	case p.ErrOut != nil:
		return p.ErrOut
	}
	return os.Stderr
}

// Header prints a full-width banner.
func (p *Printer) Header(text string) {
	if p.Quiet {
		return
	}
	pterm.DefaultHeader.WithFullWidth().Println(text)
}

// Section prints a section title.
func (p *Printer) Section(text string) {
	if p.Quiet {
		return
	}
	fmt.Fprint(p.out(), pterm.DefaultSection.Sprintln(text))
}

// Step prints one step of a running sequence.
func (p *Printer) Step(text string) {
	if p.Quiet {
		return
	}
	pterm.Println(pterm.Cyan("→ ") + text)
}

func (p *Printer) Info(text string) {
	if p.Quiet {
		return
	}
	pterm.Info.Println(text)
}

func (p *Printer) Success(text string) {
	if p.Quiet {
		return
	}
	pterm.Success.Println(text)
}

func (p *Printer) Warn(text string) {
	if p.Quiet {
		return
	}
	pterm.Warning.Println(text)
}

// WarnErr is Warn written to ErrOut, for commands whose stdout must stay
// machine readable.
func (p *Printer) WarnErr(text string) {
	fmt.Fprint(p.errOut(), pterm.Warning.Sprintln(text))
}

// Error always prints, quiet or not.
func (p *Printer) Error(text string) {
	pterm.Error.Println(text)
}

func (p *Printer) Printf(format string, args ...any) {
	if p.Quiet {
		return
	}
	fmt.Fprintf(p.out(), format, args...)
}

func (p *Printer) Println(args ...any) {
	if p.Quiet {
		return
	}
	fmt.Fprintln(p.out(), args...)
}

// Table renders data with the first row as header.
func (p *Printer) Table(data [][]string) {
	if p.Quiet || len(data) == 0 {
		return
	}
	p.renderTable(pterm.DefaultTable.WithHasHeader().WithData(data))
}

// TableBoxed renders data inside a box with the first row as header.
func (p *Printer) TableBoxed(data [][]string) {
	if p.Quiet || len(data) == 0 {
		return
	}
	p.renderTable(pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data))
}

func (p *Printer) renderTable(t *pterm.TablePrinter) {
	text, err := t.Srender()
	if err != nil {
		return
	}
	fmt.Fprintln(p.out(), text)
}

// SpinnerStart shows a spinner on a terminal and returns a function that
// stops it with a success or failure message. Off a terminal the result is
// printed as a plain line.
func (p *Printer) SpinnerStart(text string) func(ok bool, msg string) {
	if p.Quiet {
		return func(bool, string) {}
	}
	if !isTerminal(os.Stdout) {
		p.Step(text)
		return func(ok bool, msg string) {
			if ok {
				p.Success(msg)
			} else {
				p.Error(msg)
			}
		}
	}
	spinner, err := pterm.DefaultSpinner.Start(text)
	if err != nil {
		return func(bool, string) {}
	}
	return func(ok bool, msg string) {
		if ok {
			spinner.Success(msg)
		} else {
			spinner.Fail(msg)
		}
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func Header(text string)                { DefaultPrinter.Header(text) }
func Section(text string)               { DefaultPrinter.Section(text) }
func Step(text string)                  { DefaultPrinter.Step(text) }
func Info(text string)                  { DefaultPrinter.Info(text) }
func Success(text string)               { DefaultPrinter.Success(text) }
func Warn(text string)                  { DefaultPrinter.Warn(text) }
func Error(text string)                 { DefaultPrinter.Error(text) }
func Printf(format string, args ...any) { DefaultPrinter.Printf(format, args...) }
func Table(data [][]string)             { DefaultPrinter.Table(data) }
func TableBoxed(data [][]string)        { DefaultPrinter.TableBoxed(data) }

func Green(text string) string  { return pterm.Green(text) }
func Yellow(text string) string { return pterm.Yellow(text) }
func Red(text string) string    { return pterm.Red(text) }
func Cyan(text string) string   { return pterm.Cyan(text) }
