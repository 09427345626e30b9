package rpc

import (
	"net"

	"github.com/getlantern/errors"
	"github.com/getlantern/vizdb"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// Server handles incoming vizdb RPCs.
type Server interface {
	Execute(req *vizdb.Request, stream grpc.ServerStream) error

	Cancel(req *CancelRequest, stream grpc.ServerStream) error

	Evict(req *EvictRequest, stream grpc.ServerStream) error
}

// Opts configures the RPC server.
type Opts struct {
	// Password, if specified, is the password that clients must present in
	// order to access the server.
	Password string
}

// Serve accepts vizdb RPCs on l, dispatching against reg. It blocks until
// the listener closes.
func Serve(reg *vizdb.Registry, l net.Listener, opts *Opts) error {
	if opts == nil {
		opts = &Opts{}
	}
	l = &SnappyListener{l}
	gs := grpc.NewServer(grpc.CustomCodec(Codec))
	gs.RegisterService(&ServiceDesc, &server{reg, opts.Password})
	return gs.Serve(l)
}

func executeHandler(srv interface{}, stream grpc.ServerStream) error {
	req := new(vizdb.Request)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(Server).Execute(req, stream)
}

func cancelHandler(srv interface{}, stream grpc.ServerStream) error {
	req := new(CancelRequest)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(Server).Cancel(req, stream)
}

func evictHandler(srv interface{}, stream grpc.ServerStream) error {
	req := new(EvictRequest)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(Server).Evict(req, stream)
}

type server struct {
	reg      *vizdb.Registry
	password string
}

// grpcSession adapts a server stream to vizdb.Session.
type grpcSession struct {
	stream grpc.ServerStream
}

func (s *grpcSession) Send(reply *vizdb.Reply) error {
	return s.stream.SendMsg(reply)
}

func (s *server) Execute(req *vizdb.Request, stream grpc.ServerStream) error {
	if err := s.authorize(stream); err != nil {
		return err
	}
	// Terminal frames (including protocol errors) are delivered in-stream,
	// so the dispatch outcome is only logged here.
	err := s.reg.Dispatch(stream.Context(), req, &grpcSession{stream})
	if err != nil {
		log.Debugf("Request %v on %v terminated: %v", req.RequestID, req.ObjectID, err)
	}
	return nil
}

func (s *server) Cancel(req *CancelRequest, stream grpc.ServerStream) error {
	if err := s.authorize(stream); err != nil {
		return err
	}
	ack := &Ack{}
	if err := s.reg.Cancel(req.ObjectID); err != nil {
		ack.Error = err.Error()
	}
	return stream.SendMsg(ack)
}

func (s *server) Evict(req *EvictRequest, stream grpc.ServerStream) error {
	if err := s.authorize(stream); err != nil {
		return err
	}
	ack := &Ack{}
	if err := s.reg.Evict(req.ObjectID); err != nil {
		ack.Error = err.Error()
	}
	return stream.SendMsg(ack)
}

func (s *server) authorize(stream grpc.ServerStream) error {
	if s.password == "" {
		return nil
	}
	md, ok := metadata.FromIncomingContext(stream.Context())
	if !ok {
		return errors.New("no metadata, unable to authenticate")
	}
	passwords := md[passwordKey]
	for _, password := range passwords {
		if password == s.password {
			return nil
		}
	}
	return errors.New("client failed to authenticate")
}
