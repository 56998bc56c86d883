package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/k0kubun/pp/v3"
	"github.com/sirupsen/logrus"

	"github.com/tdh8316/usercheck/internal/catalog"
	"github.com/tdh8316/usercheck/internal/cli"
	"github.com/tdh8316/usercheck/internal/export"
	"github.com/tdh8316/usercheck/internal/httpx"
	"github.com/tdh8316/usercheck/internal/output"
	"github.com/tdh8316/usercheck/internal/probe"
	"github.com/tdh8316/usercheck/internal/version"
)

// defaultDataFile is where --update stores the catalog when no --catalog is given.
const defaultDataFile = "data.json"

func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fmt.Fprintf(stdout, "%s %s - Investigate Users Across Social Networks.\n", version.Name, version.Version)

	opts, usernames, err := cli.Parse(args, stdout, stderr)
	if err != nil {
		if errors.Is(err, cli.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, err.Error())
		return 2
	}

	color.NoColor = opts.NoColor
	log := newLogger(stderr, opts)

	if opts.Debug {
		printer := pp.New()
		printer.SetOutput(stderr)
		printer.SetColoringEnabled(!opts.NoColor)
		printer.Println(opts)
	}

	httpClient, err := httpx.NewClient(httpx.ClientConfig{
		Timeout:         opts.Timeout,
		MaxConnsPerHost: opts.MaxConnsPerHost,
		WithTor:         opts.WithTor,
		TorProxyURL:     opts.TorProxyURL,
	})
	if err != nil {
		fmt.Fprintf(stderr, "failed to initialize HTTP client: %v\n", err)
		return 1
	}

	sites, err := loadCatalog(ctx, httpClient, &opts, stdout, log)
	if err != nil {
		fmt.Fprintf(stderr, "catalog error: %v\n", err)
		return 1
	}

	if len(opts.Sites) > 0 {
		sites = filterSites(sites, opts.Sites, stdout, opts.NoColor)
	}

	if len(usernames) == 0 && !opts.Test {
		usernames = promptUsernames(stdout, os.Stdin)
		if len(usernames) == 0 {
			fmt.Fprintln(stderr, "no usernames provided")
			return 2
		}
	}

	printer := output.NewPrinter(stdout, opts.NoColor, opts.Verbose)

	probeOpts := probe.Options{
		Timeout:           opts.Timeout,
		Concurrency:       opts.Concurrency,
		UserAgent:         opts.UserAgent,
		Deadline:          opts.Deadline,
		RequestsPerSecond: opts.Rate,
	}

	if opts.Test {
		return runTest(ctx, stdout, opts.NoColor, probe.NewEngine(httpClient, probeOpts, log), sites)
	}

	// Stream results as they complete; the summary and files keep catalog order.
	probeOpts.OnResult = printer.Result
	engine := probe.NewEngine(httpClient, probeOpts, log)

	for _, username := range usernames {
		if opts.NoColor {
			fmt.Fprintf(stdout, "\nInvestigating %s on:\n", username)
		} else {
			fmt.Fprintf(color.Output, "\nInvestigating %s on:\n", color.HiGreenString(username))
		}

		results, err := engine.Probe(ctx, username, sites)
		if err != nil {
			fmt.Fprintf(stderr, "probe error for %q: %v\n", username, err)
			return 1
		}

		printer.Summary(username, results)
		if opts.Table {
			fmt.Fprintln(stdout)
			printer.Table(results)
		}

		if !opts.NoOutput && len(opts.Formats) > 0 {
			paths, err := export.Write(opts.ResultsDir, username, opts.Formats, results)
			if err != nil {
				fmt.Fprintf(stderr, "failed to write results: %v\n", err)
				return 1
			}
			for _, p := range paths {
				log.WithField("path", p).Info("results written")
			}
		}

		if ctx.Err() != nil {
			// Interrupted: the remaining usernames would only record cancellations.
			return 1
		}
	}

	return 0
}

func newLogger(stderr io.Writer, opts cli.Options) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(stderr)
	l.SetFormatter(&logrus.TextFormatter{
		DisableColors: opts.NoColor,
		FullTimestamp: true,
	})

	switch {
	case opts.Debug:
		l.SetLevel(logrus.DebugLevel)
	case opts.Verbose:
		l.SetLevel(logrus.InfoLevel)
	default:
		l.SetLevel(logrus.WarnLevel)
	}
	return l
}

func loadCatalog(ctx context.Context, client httpx.Doer, opts *cli.Options, stdout io.Writer, log logrus.FieldLogger) (*catalog.Catalog, error) {
	if opts.Update {
		if opts.DataFile == "" {
			opts.DataFile = defaultDataFile
		}
		_, statErr := os.Stat(opts.DataFile)
		fileExists := statErr == nil

		if opts.NoColor {
			fmt.Fprintf(stdout, "[!] Update catalog: Downloading...")
		} else {
			fmt.Fprintf(color.Output, "[%s] Update catalog: %s",
				color.HiBlueString("!"),
				color.HiYellowString("Downloading..."),
			)
		}

		if err := catalog.UpdateFromRemote(ctx, client, opts.UserAgent, opts.CatalogURL, opts.DataFile); err != nil {
			if !fileExists {
				fmt.Fprintln(stdout)
				return nil, fmt.Errorf("failed to update catalog and no existing catalog found: %w", err)
			}
			// Fall back to existing catalog.
			log.WithError(err).WithField("path", opts.DataFile).Warn("catalog update failed")
			if opts.NoColor {
				fmt.Fprintf(stdout, "[!] Failed to update catalog: %v (using existing)\n", err)
			} else {
				fmt.Fprintf(color.Output, "[%s] Failed to update catalog: %s (using existing)\n",
					color.HiRedString("!"),
					color.HiRedString(err.Error()),
				)
			}
		} else {
			if opts.NoColor {
				fmt.Fprintln(stdout, "[Done]")
			} else {
				fmt.Fprintf(color.Output, "[%s]\n", color.GreenString("Done"))
			}
		}
	}

	if opts.DataFile == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(opts.DataFile)
}

func filterSites(all *catalog.Catalog, selected []string, stdout io.Writer, noColor bool) *catalog.Catalog {
	out, unknown := all.Filter(selected)

	if len(unknown) > 0 {
		msg := "Unknown sites ignored: " + strings.Join(unknown, ", ")
		if noColor {
			fmt.Fprintf(stdout, "[!] %s\n", msg)
		} else {
			fmt.Fprintf(color.Output, "[%s] %s\n", color.HiRedString("!"), color.HiYellowString(msg))
		}
	}

	if out.Len() == 0 {
		msg := "No matching sites found; using full catalog."
		if noColor {
			fmt.Fprintf(stdout, "[!] %s\n", msg)
		} else {
			fmt.Fprintf(color.Output, "[%s] %s\n", color.HiRedString("!"), color.HiYellowString(msg))
		}
		return all
	}

	if noColor {
		fmt.Fprintf(stdout, "[i] Using %d site(s)\n", out.Len())
	} else {
		fmt.Fprintf(color.Output, "[%s] Using %d site(s)\n", color.HiBlueString("i"), out.Len())
	}
	return out
}

func promptUsernames(stdout io.Writer, stdin io.Reader) []string {
	fmt.Fprint(stdout, "Enter usernames to investigate separated by a space: ")
	r := bufio.NewReader(stdin)
	line, _ := r.ReadString('\n')
	line = strings.TrimSpace(line)
	return strings.Fields(line)
}

func runTest(ctx context.Context, stdout io.Writer, noColor bool, engine *probe.Engine, sites *catalog.Catalog) int {
	if noColor {
		fmt.Fprintln(stdout, "[i] Checking site validity...")
	} else {
		fmt.Fprintf(color.Output, "[%s] Checking site validity...\n", color.HiBlueString("i"))
	}

	failures, err := engine.Validate(ctx, sites)
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(stdout, "validation error: %v\n", err)
		return 1
	}

	for _, f := range failures {
		switch {
		case f.Reason != "":
			if noColor {
				fmt.Fprintf(stdout, "[-] %s: Skipped (%s)\n", f.Site, f.Reason)
			} else {
				fmt.Fprintf(color.Output, "[-] %s: %s (%s)\n", f.Site, color.YellowString("Skipped"), f.Reason)
			}

		case f.Claimed.Failed() || f.Unclaimed.Failed():
			var msgParts []string
			if f.Claimed.Failed() {
				msgParts = append(msgParts, "["+f.Claimed.Outcome.Message+"]")
			}
			if f.Unclaimed.Failed() {
				msgParts = append(msgParts, "["+f.Unclaimed.Outcome.Message+"]")
			}
			errMsg := strings.Join(msgParts, "")

			if noColor {
				fmt.Fprintf(stdout, "[-] %s: Failed with error %s\n", f.Site, errMsg)
			} else {
				fmt.Fprintf(color.Output, "[-] %s: %s %s\n", f.Site, color.YellowString("Failed with error"), errMsg)
			}

		default:
			label := "Not working"
			if !noColor {
				label = color.RedString(label)
			}
			fmt.Fprintf(stdout,
				"[-] %s: %s (%s: expected Found, result is %s | %s: expected Not Found, result is %s)\n",
				f.Site, label,
				f.UsernameClaimed, f.Claimed.Status(),
				f.UsernameUnclaimed, f.Unclaimed.Status(),
			)
		}
	}

	if noColor {
		fmt.Fprintln(stdout, "[Done]")
	} else {
		fmt.Fprintf(color.Output, "[%s]\n", color.GreenString("Done"))
	}

	fmt.Fprintf(stdout, "\n%d of %d site(s) failed validation.\n", len(failures), sites.Len())
	return 0
}
