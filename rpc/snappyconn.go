package rpc

import (
	"net"
	"sync"
	"time"

	"github.com/golang/snappy"
)

// Partial results are small and frequent, so connections are snappy-framed
// with a periodic flush rather than flushing per message.
const flushInterval = 50 * time.Millisecond

// SnappyListener compresses all accepted connections.
type SnappyListener struct {
	net.Listener
}

func (sl *SnappyListener) Accept() (net.Conn, error) {
	conn, err := sl.Listener.Accept()
	if err != nil {
		return nil, err
	}
	return compressed(conn), nil
}

func snappyDialer(dial func(string, time.Duration) (net.Conn, error)) func(addr string, timeout time.Duration) (net.Conn, error) {
	return func(addr string, timeout time.Duration) (net.Conn, error) {
		conn, err := dial(addr, timeout)
		if err != nil {
			return nil, err
		}
		return compressed(conn), nil
	}
}

type snappyConn struct {
	net.Conn
	r *snappy.Reader
	w *snappy.Writer

	flushMx   sync.RWMutex
	closeOnce sync.Once
	done      chan struct{}
}

func compressed(conn net.Conn) net.Conn {
	sc := &snappyConn{
		Conn: conn,
		r:    snappy.NewReader(conn),
		w:    snappy.NewBufferedWriter(conn),
		done: make(chan struct{}),
	}
	go sc.flushPeriodically()
	return sc
}

func (sc *snappyConn) flushPeriodically() {
	t := time.NewTicker(flushInterval)
	defer t.Stop()
	for {
		select {
		case <-sc.done:
			return
		case <-t.C:
		}
		sc.flushMx.Lock()
		err := sc.w.Flush()
		sc.flushMx.Unlock()
		if err != nil {
			return
		}
	}
}

func (sc *snappyConn) Read(p []byte) (int, error) {
	return sc.r.Read(p)
}

func (sc *snappyConn) Write(p []byte) (int, error) {
	sc.flushMx.RLock()
	n, err := sc.w.Write(p)
	sc.flushMx.RUnlock()
	return n, err
}

func (sc *snappyConn) Close() error {
	sc.closeOnce.Do(func() {
		close(sc.done)
	})
	return sc.Conn.Close()
}
