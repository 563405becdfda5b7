package main

import (
	"net/http"

	"github.com/maruel/serve-dir/loghttp"
)

// serve wraps mux in a request-logging handler and blocks forever.
func serve(addr string, mux http.Handler) {
	http.ListenAndServe(addr, loghttp.Handler(mux))
}
