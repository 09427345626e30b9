// Package web provides the HTTP binding of the vizdb remote-object
// protocol. Operation results stream back as newline-delimited JSON frames
// so the browser can render progressively refined charts while the sketch
// is still running.
package web

import (
	"net"
	"net/http"

	"github.com/getlantern/golog"
	"github.com/getlantern/vizdb"
	"github.com/gorilla/mux"
)

var (
	log = golog.LoggerFor("vizdb.web")
)

// Opts configures the web server.
type Opts struct {
	// Password, if specified, must be presented by clients in the
	// X-Vizdb-Password header.
	Password string
}

type handler struct {
	Opts
	reg *vizdb.Registry
}

// Serve handles HTTP requests on l until the listener closes.
func Serve(reg *vizdb.Registry, l net.Listener, opts *Opts) error {
	if opts == nil {
		opts = &Opts{}
	}
	router := Router(reg, opts)
	return http.Serve(l, router)
}

// Router builds the route table. Exposed separately so tests and embedding
// servers can mount it themselves.
func Router(reg *vizdb.Registry, opts *Opts) *mux.Router {
	h := &handler{Opts: *opts, reg: reg}
	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/rpc/{object}/{operation}", h.runOperation).Methods(http.MethodPost)
	router.HandleFunc("/rpc/{object}", h.evict).Methods(http.MethodDelete)
	router.HandleFunc("/cancel/{object}", h.cancel).Methods(http.MethodPost)
	router.HandleFunc("/metrics", h.metrics).Methods(http.MethodGet)
	return router
}

func (h *handler) authenticate(resp http.ResponseWriter, req *http.Request) bool {
	if h.Password == "" {
		return true
	}
	if req.Header.Get("X-Vizdb-Password") == h.Password {
		return true
	}
	resp.WriteHeader(http.StatusForbidden)
	return false
}
