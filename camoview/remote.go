package camoview

import (
	"errors"
	"fmt"
	"net/http"
)

type HTTPError struct {
	URL        string
	StatusCode int
	BodyPrefix string
}

func (err *HTTPError) Error() string {
	return fmt.Sprintf("unexpected response for %q: status code: %d, body prefix: %q", err.URL, err.StatusCode, err.BodyPrefix)
}

func IsNotFoundError(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound
}
