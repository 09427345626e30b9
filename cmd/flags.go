package cmd

import (
	"flag"
	"net/http"
	_ "net/http/pprof"

	"github.com/getlantern/golog"
)

var (
	log = golog.LoggerFor("vizdb.cmd")
)

var (
	PprofAddr = flag.String("pprofaddr", "", "if specified, will listen for pprof connections at the specified tcp address")
)

func StartPprof() {
	if *PprofAddr != "" {
		go func() {
			log.Debugf("Starting pprof page at http://%s/debug/pprof", *PprofAddr)
			if err := http.ListenAndServe(*PprofAddr, nil); err != nil {
				log.Errorf("Unable to start PPROF HTTP interface: %v", err)
			}
		}()
	}
}
