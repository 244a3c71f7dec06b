package retry

import (
	"errors"
	"io"
	"net"
	"net/http"

	"github.com/dream-ai/hammond/internal/domain"
)

// ClassifyStatus marks err transient for 429 and 5xx responses.
// Any other status is a malformed request and stays fatal.
func ClassifyStatus(code int, err error) error {
	if code == http.StatusTooManyRequests || code >= http.StatusInternalServerError {
		return domain.Transient(err)
	}
	return err
}

// ClassifyNetwork marks connection failures, timeouts and truncated
// responses transient. Anything else is returned unchanged.
func ClassifyNetwork(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return domain.Transient(err)
	}
	return err
}
