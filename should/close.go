// Package should holds cleanup helpers for operations that ought to succeed
// and have no caller interested in their error. Failures are logged rather
// than returned, which keeps defer sites to one line.
package should

import (
	"io"
	"log/slog"
)

// Close closes the closer and logs at error level if it fails. Meant for
// defer sites like response bodies, where the read path already handled the
// interesting errors.
//
//	defer should.Close(resp.Body, "failed to close probe response body")
func Close(closer io.Closer, msg string) {
	if err := closer.Close(); err != nil {
		slog.Error(msg, "error", err)
	}
}
