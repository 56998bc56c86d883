package output

import (
	"fmt"
	"io"
	"log"

	"github.com/fatih/color"
	"github.com/rodaine/table"

	"github.com/tdh8316/usercheck/internal/probe"
)

type Printer struct {
	noColor bool
	verbose bool

	out    io.Writer
	logger *log.Logger
}

func NewPrinter(stdout io.Writer, noColor, verbose bool) *Printer {
	return &Printer{
		noColor: noColor,
		verbose: verbose,
		out:     stdout,
		logger:  log.New(stdout, "", 0),
	}
}

// Result prints one line per result. Misses and errors only show when verbose.
func (p *Printer) Result(result probe.Result) {
	if result.Exists() {
		if p.noColor {
			p.logger.Printf("[%s] %s: %s", "+", result.Site, result.URL)
		} else {
			p.logger.Printf("[%s] %s: %s", color.HiGreenString("+"), color.HiWhiteString(result.Site), result.URL)
		}
		return
	}

	if !p.verbose {
		return
	}

	if result.Failed() {
		if p.noColor {
			p.logger.Printf("[%s] %s: ERROR: %s", "!", result.Site, result.Outcome.Message)
		} else {
			p.logger.Printf("[%s] %s: %s: %s",
				color.HiRedString("!"),
				result.Site,
				color.HiMagentaString("ERROR"),
				color.HiRedString(result.Outcome.Message),
			)
		}
		return
	}

	if p.noColor {
		p.logger.Printf("[%s] %s: %s", "-", result.Site, "Not Found!")
	} else {
		p.logger.Printf("[%s] %s: %s", color.HiRedString("-"), result.Site, color.HiYellowString("Not Found!"))
	}
}

// Table renders all results in order as a Site/URL/Status table.
func (p *Printer) Table(results []probe.Result) {
	tbl := table.New("Site", "URL", "Status").WithWriter(p.out)
	if !p.noColor {
		tbl.WithHeaderFormatter(color.New(color.FgGreen, color.Underline).SprintfFunc()).
			WithFirstColumnFormatter(color.New(color.FgYellow).SprintfFunc())
	}
	for _, r := range results {
		tbl.AddRow(r.Site, r.URL, r.Status())
	}
	tbl.Print()
}

// Summary prints found/not-found/error counts.
func (p *Printer) Summary(username string, results []probe.Result) {
	var found, missing, failed int
	for _, r := range results {
		switch {
		case r.Exists():
			found++
		case r.Failed():
			failed++
		default:
			missing++
		}
	}

	if p.noColor {
		fmt.Fprintf(p.out, "\n%s: %d found, %d not found, %d error(s) across %d site(s)\n",
			username, found, missing, failed, len(results))
		return
	}
	fmt.Fprintf(p.out, "\n%s: %s found, %s not found, %s error(s) across %d site(s)\n",
		color.HiGreenString(username),
		color.HiGreenString("%d", found),
		color.HiYellowString("%d", missing),
		color.HiRedString("%d", failed),
		len(results),
	)
}
