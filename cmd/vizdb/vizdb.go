// vizdb is the executable for the vizdb visualization backend. It serves a
// synthetic dataset tree over gRPC and HTTP and answers sketch and map
// operations against it.
package main

import (
	"flag"
	"time"

	"github.com/getlantern/golog"
	"github.com/getlantern/vizdb/cmd"
	"github.com/getlantern/vizdb/server"
	"github.com/vharitonsky/iniflags"
)

var (
	log = golog.LoggerFor("vizdb")
)

func main() {
	srv := &server.Server{}
	flag.StringVar(&srv.Addr, "addr", "localhost:17712", "The address at which to listen for gRPC connections, defaults to localhost:17712")
	flag.StringVar(&srv.HTTPAddr, "httpaddr", "localhost:17713", "The address at which to listen for JSON over HTTP connections, defaults to localhost:17713")
	flag.StringVar(&srv.Password, "password", "", "if specified, will authenticate clients using this password")
	flag.StringVar(&srv.PKFile, "pkfile", "", "path to the private key PEM file, set together with -certfile to enable TLS on the gRPC endpoint")
	flag.StringVar(&srv.CertFile, "certfile", "", "path to the certificate PEM file")
	flag.DurationVar(&srv.ListenTimeout, "listentimeout", 10*time.Second, "how long to keep retrying a listen address that is briefly taken")
	flag.IntVar(&srv.Partitions, "partitions", 4, "The number of partitions in the root dataset tree")
	flag.IntVar(&srv.RowsPerPartition, "rowsperpartition", 250000, "The number of synthetic rows per partition")
	flag.IntVar(&srv.BundleInterval, "bundleinterval", 10000, "How many rows each leaf processes between progress reports, set to 0 to compute each leaf in one shot")
	flag.BoolVar(&srv.OnWorker, "onworker", true, "run leaf computations on background workers")
	flag.Int64Var(&srv.Seed, "seed", 0, "seed for the synthetic dataset, making runs reproducible")

	iniflags.Parse()

	cmd.StartPprof()

	_, run, err := srv.Prepare()
	if err != nil {
		log.Fatal(err)
	}
	srv.HandleShutdownSignal()
	if err := run(); err != nil {
		log.Fatal(err)
	}
	log.Debug("Done")
}
