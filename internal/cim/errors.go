package cim

import "errors"

var (
	// ErrNamespaceNotFound is returned when the namespace or class does not
	// exist on the endpoint, typically because the vendor agent is not installed.
	ErrNamespaceNotFound = errors.New("cim: namespace or class not found")

	// ErrInvalidQuery is returned when a query contains characters that cannot
	// be passed safely to the query host.
	ErrInvalidQuery = errors.New("cim: invalid query")

	// ErrDecode is returned when the query output is not valid JSON.
	ErrDecode = errors.New("cim: decoding output")

	// ErrQueryFailed is returned for any other query host failure.
	ErrQueryFailed = errors.New("cim: query failed")
)
