package generation

import (
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

// Error is a failed gateway call
type Error struct {
	Op      string // generateStructure, enhanceText, ...
	Status  int    // HTTP status, 0 for transport errors
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return "generation error"
	}
	msg := strings.TrimSpace(e.Message)
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s failed: status=%d message=%s", e.Op, e.Status, msg)
	}
	return fmt.Sprintf("%s failed: %s", e.Op, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// maxErrorBodyRunes caps a non-JSON error body quoted in an Error
const maxErrorBodyRunes = 200

// parseHTTPError reads the {"error": {"message", "status"}} envelope of the API
func parseHTTPError(op string, status int, raw []byte) error {
	msg := gjson.GetBytes(raw, "error.message").String()
	if msg == "" {
		msg = truncateRunes(strings.TrimSpace(string(raw)), maxErrorBodyRunes)
	}
	return &Error{Op: op, Status: status, Message: msg}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
