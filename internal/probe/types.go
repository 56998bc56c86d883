package probe

import "time"

// Kind is the three-way classification of one site probe.
type Kind uint8

const (
	// Found means the site answered 200.
	Found Kind = iota + 1
	// NotFound means the site answered with any other status.
	NotFound
	// Error means no response was received.
	Error
)

type Outcome struct {
	Kind Kind
	// Message is a one-line diagnostic, set only for Error.
	Message string
}

// String renders the outcome as it appears in exports.
func (o Outcome) String() string {
	switch o.Kind {
	case Found:
		return "Found"
	case NotFound:
		return "Not Found"
	case Error:
		return "Error: " + o.Message
	default:
		return "Unknown"
	}
}

type Result struct {
	Site string
	URL  string

	Outcome Outcome

	// StatusCode is the final status after redirects; 0 when no request completed.
	StatusCode int
	Elapsed    time.Duration
}

func (r Result) Status() string { return r.Outcome.String() }

func (r Result) Exists() bool { return r.Outcome.Kind == Found }

func (r Result) Failed() bool { return r.Outcome.Kind == Error }

type Options struct {
	// Timeout bounds each request on its own.
	Timeout time.Duration

	// Concurrency caps in-flight requests.
	Concurrency int

	UserAgent string

	// Deadline bounds a whole Probe call; zero means none.
	Deadline time.Duration

	// RequestsPerSecond paces request starts at a fixed rate; zero means unpaced.
	RequestsPerSecond float64

	// OnResult, if set, sees each result as it completes. Calls are serialized.
	OnResult func(Result)
}

// ValidationFailure is a site whose claimed/unclaimed usernames did not
// classify as Found/NotFound.
type ValidationFailure struct {
	Site string

	UsernameClaimed   string
	UsernameUnclaimed string

	Claimed   Result
	Unclaimed Result

	// Reason is set when the site could not be checked at all.
	Reason string
}
