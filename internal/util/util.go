package util

import (
	"fmt"
	"net/url"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// ErrorJSONMsg returns a JSON object {"message": msg}, used for errors on the administrative surface.
func ErrorJSONMsg(msg string) []byte {
	w := jwriter.NewWriter()
	obj := w.Object()
	obj.Name("message").String(msg)
	obj.End()
	return w.Bytes()
}

// ErrorJSONMsgf is the same as ErrorJSONMsg but with a format string.
func ErrorJSONMsgf(fmtStr string, args ...interface{}) []byte {
	return ErrorJSONMsg(fmt.Sprintf(fmtStr, args...))
}

// RedactURL parses a URL string and replaces its password, if any, with xxxxx. It is used before
// logging database and node URLs.
func RedactURL(inputURL string) string {
	if parsed, err := url.Parse(inputURL); err == nil && parsed.User != nil {
		if _, hasPW := parsed.User.Password(); hasPW {
			return parsed.Redacted()
		}
	}
	return inputURL
}
