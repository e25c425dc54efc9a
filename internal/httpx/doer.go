package httpx

import "net/http"

// Doer describes an HTTP client.
//
//go:generate mockgen -package=httpxmock -destination=httpxmock/mock_doer.go -source=doer.go Doer
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}
