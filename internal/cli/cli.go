package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/tdh8316/usercheck/internal/config"
	"github.com/tdh8316/usercheck/internal/export"
)

var ErrHelp = errors.New("help requested")

type Options struct {
	NoColor  bool
	NoOutput bool
	Verbose  bool
	Debug    bool
	Update   bool
	Test     bool
	Table    bool
	WithTor  bool

	ConfigFile string
	DataFile   string
	CatalogURL string
	Sites      []string
	Formats    []string
	ResultsDir string

	Timeout     time.Duration
	Deadline    time.Duration
	Concurrency     int
	MaxConnsPerHost int
	Rate            float64
	UserAgent       string
	TorProxyURL     string
}

const usageText = `
usage:
  usercheck [flags] USERNAME [USERNAMES...]
  usercheck --test

positional arguments:
  USERNAMES             one or more usernames to investigate

flags:
  -h, --help            show this help message and exit
  --no-color            disable colored stdout output
  --no-output           disable file output
  --update              download the catalog before the run
  -t, --tor             use tor proxy
  -v, --verbose         also show misses and errors
  --debug               debug logging and effective configuration dump
  --table               print an ordered result table after each username
  --test                validate sites using username_claimed/unclaimed pairs

options:
  --config PATH         defaults from a YAML/JSON/TOML file
  --catalog PATH        sherlock-style data.json (default: built-in catalog)
  --catalog-url URL     where --update downloads from (default: sherlock)
  --sites S1,S2,...     only probe these sites (default: all sites)
  --timeout SECONDS     per request timeout (default: 10)
  --deadline SECONDS    bound for a whole username run (default: none)
  --concurrency N       max concurrent requests (default: 32)
  --max-conns-per-host N
                        max connections to one host (default: no cap)
  --rate N              max requests started per second (default: unlimited)
  --user-agent UA       User-Agent header
  --format F1,F2        result files to write: csv, xlsx (default: csv)
  --results DIR         output directory (default: results)
`

// Parse reads flags on top of the defaults from the --config file and the
// environment. The returned usernames are trimmed and non-empty.
func Parse(args []string, stdout, stderr io.Writer) (Options, []string, error) {
	configFile := config.PathFromArgs(args)
	cfg, err := config.Load(configFile)
	if err != nil {
		return Options{}, nil, err
	}

	opts := Options{ConfigFile: configFile}
	var (
		help       bool
		sitesCSV   string
		formatsCSV string
		timeoutS   int
		deadlineS  int
	)

	fs := flag.NewFlagSet("usercheck", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.Usage = func() {
		_, _ = fmt.Fprint(stdout, usageText)
	}

	// Help
	fs.BoolVar(&help, "h", false, "show help")
	fs.BoolVar(&help, "help", false, "show help")

	// Behavior flags
	fs.BoolVar(&opts.NoColor, "no-color", false, "disable colored output")
	fs.BoolVar(&opts.NoOutput, "no-output", cfg.NoOutput, "disable file output")
	fs.BoolVar(&opts.Update, "update", false, "update catalog before run")
	fs.BoolVar(&opts.Test, "test", false, "validate catalog")
	fs.BoolVar(&opts.Verbose, "v", false, "verbose output")
	fs.BoolVar(&opts.Verbose, "verbose", false, "verbose output")
	fs.BoolVar(&opts.Debug, "debug", false, "debug output")
	fs.BoolVar(&opts.Table, "table", false, "print result table")
	fs.BoolVar(&opts.WithTor, "t", cfg.Tor, "use tor proxy")
	fs.BoolVar(&opts.WithTor, "tor", cfg.Tor, "use tor proxy")

	// Options
	fs.String("config", configFile, "config file")
	fs.StringVar(&opts.DataFile, "catalog", cfg.Catalog, "catalog path")
	fs.StringVar(&opts.DataFile, "database", cfg.Catalog, "catalog path (compat)")
	fs.StringVar(&opts.CatalogURL, "catalog-url", cfg.CatalogURL, "catalog download url")
	fs.StringVar(&sitesCSV, "sites", "", "comma-separated site list")
	fs.StringVar(&sitesCSV, "site", "", "comma-separated site list (compat)")
	fs.StringVar(&formatsCSV, "format", strings.Join(cfg.Formats, ","), "comma-separated result formats")
	fs.IntVar(&timeoutS, "timeout", cfg.Timeout, "request timeout in seconds")
	fs.IntVar(&deadlineS, "deadline", cfg.Deadline, "run deadline in seconds")
	fs.IntVar(&opts.Concurrency, "concurrency", cfg.Concurrency, "max concurrent requests")
	fs.IntVar(&opts.MaxConnsPerHost, "max-conns-per-host", cfg.MaxConnsPerHost, "max connections per host")
	fs.Float64Var(&opts.Rate, "rate", cfg.Rate, "max requests per second")
	fs.StringVar(&opts.UserAgent, "user-agent", cfg.UserAgent, "User-Agent header")
	fs.StringVar(&opts.ResultsDir, "results", cfg.ResultsDir, "results output directory")

	if err := fs.Parse(args); err != nil {
		return Options{}, nil, err
	}
	if help {
		fs.Usage()
		return Options{}, nil, ErrHelp
	}
	opts.TorProxyURL = cfg.TorProxy

	if timeoutS <= 0 {
		// Don't allow zero or negative timeouts; reset to default.
		timeoutS = 10
		warn(stdout, opts.NoColor, "Invalid timeout value; using default of ", "10 seconds")
	}
	opts.Timeout = time.Duration(timeoutS) * time.Second
	if deadlineS > 0 {
		opts.Deadline = time.Duration(deadlineS) * time.Second
	}

	if opts.Concurrency <= 0 {
		opts.Concurrency = 32
	}
	if opts.MaxConnsPerHost < 0 {
		opts.MaxConnsPerHost = 0
	}
	if opts.Rate < 0 {
		opts.Rate = 0
	}

	opts.Formats = splitCSV(formatsCSV)
	for _, f := range opts.Formats {
		if !export.ValidFormat(f) {
			return Options{}, nil, fmt.Errorf("unsupported format %q (want csv or xlsx)", f)
		}
	}

	if sitesCSV != "" {
		opts.Sites = splitCSV(sitesCSV)
		// When specifying sites, force verbose so you see misses/errors.
		opts.Verbose = true
	}
	if opts.Debug {
		opts.Verbose = true
	}

	var usernames []string
	for _, u := range fs.Args() {
		if u = strings.TrimSpace(u); u != "" {
			usernames = append(usernames, u)
		}
	}
	return opts, usernames, nil
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func warn(stdout io.Writer, noColor bool, msg, value string) {
	if noColor {
		fmt.Fprintf(stdout, "[!] %s%s.\n", msg, value)
		return
	}
	fmt.Fprintf(color.Output, "[%s] %s%s.\n", color.HiRedString("!"), msg, color.HiYellowString(value))
}
