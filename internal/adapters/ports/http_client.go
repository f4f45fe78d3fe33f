package ports

import "net/http"

// HTTPClient defines the interface for making HTTP requests. It lets tests
// swap the transport without standing up a real gateway endpoint.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
