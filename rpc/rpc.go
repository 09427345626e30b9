// Package rpc provides the gRPC binding of the vizdb remote-object
// protocol: an "execute" stream carrying one request and any number of
// reply frames, plus "cancel" and "evict" for object lifecycle. Messages
// travel as msgpack over snappy-compressed connections.
package rpc

import (
	"github.com/getlantern/golog"
	"google.golang.org/grpc"
)

const (
	passwordKey = "pwd"
)

var (
	log = golog.LoggerFor("vizdb.rpc")
)

// CancelRequest stops the in-flight subscription on an object.
type CancelRequest struct {
	ObjectID string
}

// EvictRequest destroys an object, releasing its id.
type EvictRequest struct {
	ObjectID string
}

// Ack is the single reply to cancel and evict requests.
type Ack struct {
	Error string
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: "vizdb",
	HandlerType: (*Server)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "execute",
			Handler:       executeHandler,
			ServerStreams: true,
		},
		{
			StreamName:    "cancel",
			Handler:       cancelHandler,
			ServerStreams: true,
		},
		{
			StreamName:    "evict",
			Handler:       evictHandler,
			ServerStreams: true,
		},
	},
}
