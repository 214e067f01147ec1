package ollama

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/kirillkom/footwear-qc/internal/infrastructure/resilience"
)

// HTTPStatusError is a non-2xx answer from the Ollama server.
type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "ollama status error"
	}
	if body := strings.TrimSpace(e.Body); body != "" {
		return fmt.Sprintf("ollama %s status: %s: %s", e.Operation, e.Status, body)
	}
	return fmt.Sprintf("ollama %s status: %s", e.Operation, e.Status)
}

// ModelMissing reports a 404, which Ollama returns for a model that was never pulled.
func (e *HTTPStatusError) ModelMissing() bool {
	return e != nil && e.StatusCode == http.StatusNotFound
}

// classifyOllamaError retries transport failures and overload statuses. A
// missing model trips the breaker without retries; malformed model output is
// the caller's concern and never reaches here.
var classifyOllamaError = resilience.Classify(func(err error) resilience.ErrorClassification {
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		switch {
		case overloadStatus(statusErr.StatusCode):
			return resilience.Transient
		case statusErr.ModelMissing():
			return resilience.Permanent
		default:
			return resilience.Ignored
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.Transient
	}
	return resilience.Permanent
})

func overloadStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
