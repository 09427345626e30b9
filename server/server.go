// Package server wires the vizdb engine to its network bindings: the gRPC
// endpoint and the HTTP endpoint, both dispatching against one registry
// that is seeded with a root dataset.
package server

import (
	serrors "errors"
	"net"
	"sync"
	"time"

	"github.com/getlantern/golog"
	"github.com/getlantern/tlsdefaults"
	"github.com/getlantern/vizdb"
	"github.com/getlantern/vizdb/dataset"
	"github.com/getlantern/vizdb/rpc"
	"github.com/getlantern/vizdb/web"
)

const (
	// RootObjectID is the well-known id of the initial dataset object.
	RootObjectID = "root"
)

var (
	ErrAlreadyRunning = serrors.New("already running")
	ErrNoData         = serrors.New("no partitions configured")
)

// Server is a vizdb server.
type Server struct {
	// Addr is the address at which to listen for gRPC connections.
	Addr string
	// Listener, if set, is used instead of listening on Addr.
	Listener net.Listener
	// HTTPAddr is the address at which to listen for HTTP connections.
	HTTPAddr string
	// HTTPListener, if set, is used instead of listening on HTTPAddr.
	HTTPListener net.Listener
	// Password, if set, authenticates clients on both endpoints.
	Password string
	// PKFile and CertFile, if both set, enable TLS on the gRPC endpoint.
	PKFile   string
	CertFile string
	// ListenTimeout bounds retries when a listen address is briefly taken.
	ListenTimeout time.Duration

	// Partitions is the number of leaves in the root dataset tree.
	Partitions int
	// RowsPerPartition is the number of synthetic rows per leaf.
	RowsPerPartition int
	// BundleInterval is the chunk size for leaf sketch computations.
	BundleInterval int
	// OnWorker runs leaf computations on background workers.
	OnWorker bool
	// Seed makes the synthetic data reproducible.
	Seed int64

	log      golog.Logger
	registry *vizdb.Registry

	running   bool
	runningMx sync.Mutex
}

// Prepare builds the registry with the root dataset and returns it along
// with a blocking function that runs the network endpoints.
func (s *Server) Prepare() (*vizdb.Registry, func() error, error) {
	s.log = golog.LoggerFor("vizdb.server")

	s.runningMx.Lock()
	defer s.runningMx.Unlock()
	if s.running {
		return nil, nil, ErrAlreadyRunning
	}
	if s.Partitions <= 0 {
		return nil, nil, ErrNoData
	}

	s.registry = vizdb.NewRegistry()
	root, err := s.buildRootDataSet()
	if err != nil {
		return nil, nil, err
	}
	vizdb.NewDataSetTarget(s.registry, RootObjectID, root)
	s.log.Debugf("Seeded root dataset with %d partitions of %d rows", s.Partitions, s.RowsPerPartition)

	run := func() error {
		defer s.closeListeners()

		if s.Listener == nil && s.Addr != "" {
			err := s.listen(func() error {
				var lerr error
				if s.PKFile != "" && s.CertFile != "" {
					s.Listener, lerr = tlsdefaults.Listen(s.Addr, s.PKFile, s.CertFile)
				} else {
					s.Listener, lerr = net.Listen("tcp", s.Addr)
				}
				return lerr
			})
			if err != nil {
				return s.log.Errorf("Unable to listen for gRPC connections at %v: %v", s.Addr, err)
			}
		}
		if s.HTTPListener == nil && s.HTTPAddr != "" {
			err := s.listen(func() error {
				var lerr error
				s.HTTPListener, lerr = net.Listen("tcp", s.HTTPAddr)
				return lerr
			})
			if err != nil {
				return s.log.Errorf("Unable to listen for HTTP connections at %v: %v", s.HTTPAddr, err)
			}
		}

		endpoints := 0
		errCh := make(chan error, 2)
		if s.Listener != nil {
			s.log.Debugf("Listening for gRPC connections at %v", s.Listener.Addr())
			endpoints++
			go func() {
				errCh <- rpc.Serve(s.registry, s.Listener, &rpc.Opts{Password: s.Password})
			}()
		}
		if s.HTTPListener != nil {
			s.log.Debugf("Listening for HTTP connections at %v", s.HTTPListener.Addr())
			endpoints++
			go func() {
				errCh <- web.Serve(s.registry, s.HTTPListener, &web.Opts{Password: s.Password})
			}()
		}
		if endpoints == 0 {
			return s.log.Errorf("No endpoints configured, specify -addr and/or -httpaddr")
		}

		s.runningMx.Lock()
		s.running = true
		s.runningMx.Unlock()
		s.log.Debug("Started")

		for i := 0; i < endpoints; i++ {
			if err := <-errCh; err != nil {
				return err
			}
		}
		return nil
	}

	return s.registry, run, nil
}

// Close shuts the server down.
func (s *Server) Close() {
	s.runningMx.Lock()
	defer s.runningMx.Unlock()
	if !s.running {
		return
	}
	s.closeListeners()
	s.running = false
	s.log.Debug("Closed")
}

func (s *Server) closeListeners() {
	if s.Listener != nil {
		s.Listener.Close()
		s.Listener = nil
	}
	if s.HTTPListener != nil {
		s.HTTPListener.Close()
		s.HTTPListener = nil
	}
}

func (s *Server) listen(fn func() error) error {
	start := time.Now()
	for {
		err := fn()
		if err == nil {
			return nil
		}
		if s.ListenTimeout <= 0 || time.Now().Sub(start) > s.ListenTimeout {
			return err
		}
		time.Sleep(250 * time.Millisecond)
	}
}

func (s *Server) buildRootDataSet() (dataset.Dataset, error) {
	leaves := make([]dataset.Dataset, 0, s.Partitions)
	opts := &dataset.LocalOpts{
		OnWorker:       s.OnWorker,
		BundleInterval: s.BundleInterval,
	}
	for i := 0; i < s.Partitions; i++ {
		t, err := SyntheticPartition(s.RowsPerPartition, s.Seed+int64(i))
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, dataset.NewLocal(t, opts))
	}
	return dataset.NewParallel(leaves), nil
}
