package rpc

import (
	"crypto/tls"
	"net"
	"time"

	"github.com/getlantern/errors"
	"github.com/getlantern/vizdb"
	"golang.org/x/net/context"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// ClientOpts configures a client connection.
type ClientOpts struct {
	// Password, if specified, is the password that the client will present
	// to the server in order to gain access.
	Password string

	// TLSConfig, if specified, secures the connection. Nil dials plaintext.
	TLSConfig *tls.Config
}

// Client talks the vizdb remote-object protocol.
type Client interface {
	// Execute invokes an operation on a remote object and returns a
	// function producing successive reply frames. The frame with Done=true
	// is the last one; reading past it returns io.EOF.
	Execute(ctx context.Context, req *vizdb.Request, opts ...grpc.CallOption) (func() (*vizdb.Reply, error), error)

	// Cancel stops the in-flight subscription on the named object.
	Cancel(ctx context.Context, objectID string, opts ...grpc.CallOption) error

	// Evict destroys the named object.
	Evict(ctx context.Context, objectID string, opts ...grpc.CallOption) error

	Close() error
}

// Dial connects to a vizdb server.
func Dial(addr string, opts *ClientOpts) (Client, error) {
	if opts == nil {
		opts = &ClientOpts{}
	}
	dial := func(addr string, timeout time.Duration) (net.Conn, error) {
		return net.DialTimeout("tcp", addr, timeout)
	}
	if opts.TLSConfig != nil {
		tlsConfig := opts.TLSConfig
		dial = func(addr string, timeout time.Duration) (net.Conn, error) {
			return tls.DialWithDialer(&net.Dialer{Timeout: timeout}, "tcp", addr, tlsConfig)
		}
	}
	conn, err := grpc.Dial(addr,
		grpc.WithInsecure(),
		grpc.WithCodec(Codec),
		grpc.WithDialer(snappyDialer(dial)),
		grpc.WithBackoffMaxDelay(1*time.Minute))
	if err != nil {
		return nil, err
	}
	return &client{conn, opts.Password}, nil
}

type client struct {
	cc       *grpc.ClientConn
	password string
}

func (c *client) Execute(ctx context.Context, req *vizdb.Request, opts ...grpc.CallOption) (func() (*vizdb.Reply, error), error) {
	stream, err := grpc.NewClientStream(c.authenticated(ctx), &ServiceDesc.Streams[0], c.cc, "/vizdb/execute", opts...)
	if err != nil {
		return nil, errors.New("unable to obtain client stream: %v", err)
	}
	if err := stream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}

	next := func() (*vizdb.Reply, error) {
		reply := &vizdb.Reply{}
		err := stream.RecvMsg(reply)
		return reply, err
	}
	return next, nil
}

func (c *client) Cancel(ctx context.Context, objectID string, opts ...grpc.CallOption) error {
	return c.ack(ctx, 1, "/vizdb/cancel", &CancelRequest{objectID}, opts)
}

func (c *client) Evict(ctx context.Context, objectID string, opts ...grpc.CallOption) error {
	return c.ack(ctx, 2, "/vizdb/evict", &EvictRequest{objectID}, opts)
}

func (c *client) ack(ctx context.Context, streamIdx int, method string, req interface{}, opts []grpc.CallOption) error {
	stream, err := grpc.NewClientStream(c.authenticated(ctx), &ServiceDesc.Streams[streamIdx], c.cc, method, opts...)
	if err != nil {
		return errors.New("unable to obtain client stream: %v", err)
	}
	if err := stream.SendMsg(req); err != nil {
		return err
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}
	ack := &Ack{}
	if err := stream.RecvMsg(ack); err != nil {
		return err
	}
	if ack.Error != "" {
		return errors.New(ack.Error)
	}
	return nil
}

func (c *client) Close() error {
	return c.cc.Close()
}

func (c *client) authenticated(ctx context.Context) context.Context {
	if c.password == "" {
		return ctx
	}
	md := metadata.New(map[string]string{passwordKey: c.password})
	return metadata.NewOutgoingContext(ctx, md)
}
