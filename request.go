package vizdb

import (
	"encoding/json"
	serrors "errors"
)

var (
	// ErrNoSuchObject indicates a request named an object id that is unknown
	// or already destroyed.
	ErrNoSuchObject = serrors.New("no such object")

	// ErrBusy indicates a request arrived while the object already had a
	// subscription in flight. The protocol allows at most one request per
	// object at a time; conflicting requests are rejected, never queued.
	ErrBusy = serrors.New("object already has a subscription in flight")

	// ErrUnknownOperation indicates a request named an operation the target
	// does not support.
	ErrUnknownOperation = serrors.New("unknown operation")
)

// Request names a remote object and an operation to invoke on it, with
// operation-specific JSON arguments.
type Request struct {
	RequestID string          `json:"requestId"`
	ObjectID  string          `json:"objectId"`
	Operation string          `json:"operation"`
	Args      json.RawMessage `json:"args,omitempty"`
}

// Reply is one frame of a response stream. Frames with Done=false carry
// data; the terminal frame has Done=true and distinguishes completion
// (neither Cancelled nor Error set), cancellation and failure. Every frame
// is tagged with the owning request id so multiplexed requests on different
// objects cannot be confused.
type Reply struct {
	RequestID string          `json:"requestId"`
	Done      bool            `json:"done,omitempty"`
	Cancelled bool            `json:"cancelled,omitempty"`
	Error     string          `json:"error,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// PartialPayload is the Data of a sketch partial-result frame.
type PartialPayload struct {
	Progress float64     `json:"progress"`
	Value    interface{} `json:"value"`
}

// MapPayload is the Data of a map result frame: the id of the derived
// remote object.
type MapPayload struct {
	ObjectID string `json:"objectId"`
}

// Session is one logical response stream back to a client. Transports
// (gRPC, HTTP) adapt their connections to this. Send may be called from the
// dispatching goroutine only.
type Session interface {
	Send(reply *Reply) error
}
