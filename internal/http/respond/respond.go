package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

// GenericMessage is used whenever a failure cannot describe itself.
const GenericMessage = "internal server error"

// Envelope is the body of every non-success response.
type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

// StatusError is a failure the HTTP boundary already classified, such as a
// malformed request or a rate-limit rejection.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return e.Message
}

// NewStatusError builds a StatusError.
func NewStatusError(status int, message string) *StatusError {
	return &StatusError{Status: status, Message: message}
}

// describer is implemented by errors that carry a caller-safe description
// separate from their wrapped cause.
type describer interface {
	Describe() string
}

// Translate converts any failure into the status and envelope sent to the
// caller. Connection, store and unclassified failures all become 500s. It never
// panics.
func Translate(err error) (status int, env Envelope) {
	status = http.StatusInternalServerError
	defer func() {
		if r := recover(); r != nil {
			status = http.StatusInternalServerError
			env = Envelope{StatusCode: status, Message: GenericMessage}
		}
	}()

	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.Status >= 400 && statusErr.Status <= 599 {
		status = statusErr.Status
	}

	return status, Envelope{StatusCode: status, Message: describe(err)}
}

func describe(err error) string {
	if err == nil {
		return GenericMessage
	}

	var msg string
	var d describer
	if errors.As(err, &d) {
		msg = d.Describe()
	} else {
		msg = err.Error()
	}

	msg = strings.TrimSpace(firstLine(msg))
	if msg == "" {
		return GenericMessage
	}
	return msg
}

func firstLine(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		return s[:i]
	}
	return s
}

// Recovered turns a value caught by recover into an error for Translate.
func Recovered(v any) error {
	if err, ok := v.(error); ok {
		return err
	}
	return fmt.Errorf("%v", v)
}

// JSON writes a success payload as-is.
func JSON(w http.ResponseWriter, status int, payload any) {
	write(w, status, payload)
}

// Error writes the envelope for err. It is the only place failure bodies are
// produced.
func Error(w http.ResponseWriter, err error) {
	status, env := Translate(err)
	write(w, status, env)
}

// Status writes an envelope for a failure classified by the HTTP layer.
func Status(w http.ResponseWriter, status int, message string) {
	Error(w, NewStatusError(status, message))
}

func write(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logrus.WithError(err).Warn("respond: encode payload failed")
	}
}
