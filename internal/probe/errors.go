package probe

import (
	"context"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

func errorOutcome(err error) Outcome {
	return Outcome{Kind: Error, Message: errorMessage(err)}
}

// errorMessage reduces err to one line. The request URL is already part of
// the result, so the url.Error wrapper is dropped.
func errorMessage(err error) string {
	var ue *url.Error
	if errors.As(err, &ue) && ue.Err != nil {
		err = ue.Err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout: " + firstLine(err.Error())
	}

	msg := firstLine(err.Error())
	if msg == "" {
		return "request failed"
	}
	return msg
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	return s
}
