package http

import (
	"net/http"

	"github.com/jmehdipour/sqlperf-lab/internal/service/perf"
)

// StatusFor maps an error kind from perf.Kind to an HTTP status.
func StatusFor(kind string) int {
	switch kind {
	case "ok":
		return http.StatusOK
	case "connection_error":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(err error) (int, map[string]string) {
	kind := perf.Kind(err)
	return StatusFor(kind), map[string]string{"error": kind}
}
