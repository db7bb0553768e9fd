package ffi

import (
	"context"
	"fmt"
	"net"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/nova-lang/nova/internal/rtvalue"
)

// HostBridge is the client side of the FFI transport: it carries a
// validated `ffi_call` across the process boundary to whatever process
// is running the whitelisted Go functions, narrowed to the single Call
// method every bridge implements (proto.go).
type HostBridge struct {
	conn *grpc.ClientConn
}

// DialHostBridge connects to a host bridge process listening at
// target. Credentials are insecure (plaintext) since the bridge is
// expected to run as a local sidecar process.
func DialHostBridge(target string) (*HostBridge, error) {
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("ffi: dialing host bridge %q: %w", target, err)
	}
	return &HostBridge{conn: conn}, nil
}

func (b *HostBridge) Close() error { return b.conn.Close() }

// Call invokes fnName on the host bridge with args already validated by
// Validator.Check, returning the decoded result (or the bridge-side
// error string, surfaced as a Go error).
func (b *HostBridge) Call(ctx context.Context, fnName string, args []rtvalue.Value, newString func(string) rtvalue.Value) (rtvalue.Value, error) {
	reqDesc, respDesc, valueDesc, err := messageDescriptors()
	if err != nil {
		return rtvalue.Unit(), err
	}

	req := dynamic.NewMessage(reqDesc)
	req.SetFieldByName("fn_name", fnName)
	for _, a := range args {
		wireVal, err := encodeValue(valueDesc, a)
		if err != nil {
			return rtvalue.Unit(), err
		}
		if err := req.TryAddRepeatedFieldByName("args", wireVal); err != nil {
			return rtvalue.Unit(), fmt.Errorf("ffi: appending argument: %w", err)
		}
	}

	resp := dynamic.NewMessage(respDesc)
	if err := b.conn.Invoke(ctx, "/nova.ffi.Bridge/Call", req, resp); err != nil {
		return rtvalue.Unit(), fmt.Errorf("ffi: host bridge call %q failed: %w", fnName, err)
	}

	if errStr, _ := resp.TryGetFieldByName("error"); errStr != nil && errStr.(string) != "" {
		return rtvalue.Unit(), fmt.Errorf("ffi: %q returned an error: %s", fnName, errStr.(string))
	}
	resultField, err := resp.TryGetFieldByName("result")
	if err != nil {
		return rtvalue.Unit(), fmt.Errorf("ffi: decoding call response: %w", err)
	}
	resultMsg, ok := resultField.(*dynamic.Message)
	if !ok {
		return rtvalue.Unit(), nil
	}
	return decodeValue(resultMsg, newString)
}

// HostFunc is the Go-side implementation of one whitelisted foreign
// function, resolved from generated_bindings.go by name.
type HostFunc func(ctx context.Context, args []rtvalue.Value) (rtvalue.Value, error)

// Server is an in-process implementation of the Bridge gRPC service,
// dispatching to a table of whitelisted HostFuncs. A real deployment
// runs this in its own process; this module also exposes it directly
// so tests (and a single-binary "embedded bridge" deployment) can
// exercise the exact same wire path without a second OS process.
// Constructs a grpc.ServiceDesc by hand for a dynamically-described
// service rather than from generated stubs.
type Server struct {
	grpcServer *grpc.Server
	funcs      map[string]HostFunc
	newString  func(string) rtvalue.Value
}

// NewServer builds a Bridge server dispatching ffi_call to funcs.
// newString builds the embedding VM's own string heap object so
// decoded string arguments are directly usable by host functions.
func NewServer(funcs map[string]HostFunc, newString func(string) rtvalue.Value) (*Server, error) {
	reqDesc, respDesc, valueDesc, err := messageDescriptors()
	if err != nil {
		return nil, err
	}
	s := &Server{grpcServer: grpc.NewServer(), funcs: funcs, newString: newString}

	serviceDesc := &grpc.ServiceDesc{
		ServiceName: "nova.ffi.Bridge",
		HandlerType: (*interface{})(nil),
		Methods: []grpc.MethodDesc{{
			MethodName: "Call",
			Handler: func(_ interface{}, ctx context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
				req := dynamic.NewMessage(reqDesc)
				if err := dec(req); err != nil {
					return nil, err
				}
				return s.handleCall(ctx, req, respDesc, valueDesc)
			},
		}},
	}
	s.grpcServer.RegisterService(serviceDesc, s)
	return s, nil
}

// handleCall decodes the incoming request, dispatches to the
// whitelisted HostFunc by name, and re-encodes the result (or error
// string) into a CallResponse — the server-side mirror of HostBridge.Call.
func (s *Server) handleCall(ctx context.Context, req *dynamic.Message, respDesc, valueDesc *desc.MessageDescriptor) (*dynamic.Message, error) {
	resp := dynamic.NewMessage(respDesc)

	fnName, _ := req.TryGetFieldByName("fn_name")
	name, _ := fnName.(string)

	rawArgs := req.GetRepeatedFieldByName("args")
	args := make([]rtvalue.Value, 0, len(rawArgs))
	for _, raw := range rawArgs {
		argMsg, ok := raw.(*dynamic.Message)
		if !ok {
			resp.SetFieldByName("error", "ffi: malformed argument message")
			return resp, nil
		}
		v, err := decodeValue(argMsg, s.newString)
		if err != nil {
			resp.SetFieldByName("error", err.Error())
			return resp, nil
		}
		args = append(args, v)
	}

	fn, ok := s.funcs[name]
	if !ok {
		resp.SetFieldByName("error", fmt.Sprintf("ffi: host bridge has no function %q", name))
		return resp, nil
	}

	result, err := fn(ctx, args)
	if err != nil {
		resp.SetFieldByName("error", err.Error())
		return resp, nil
	}
	wireResult, err := encodeValue(valueDesc, result)
	if err != nil {
		resp.SetFieldByName("error", err.Error())
		return resp, nil
	}
	resp.SetFieldByName("result", wireResult)
	return resp, nil
}

// Serve blocks accepting connections on addr; ServeAsync starts it on a
// background goroutine instead.
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("ffi: listening on %q: %w", addr, err)
	}
	return s.grpcServer.Serve(lis)
}

func (s *Server) ServeAsync(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("ffi: listening on %q: %w", addr, err)
	}
	go func() { _ = s.grpcServer.Serve(lis) }()
	return nil
}

// ServeListener runs the server on an already-bound listener, letting a
// caller (chiefly tests) bind to ":0" and read back the actual port via
// lis.Addr() before the server starts accepting.
func (s *Server) ServeListener(lis net.Listener) error {
	return s.grpcServer.Serve(lis)
}

func (s *Server) Stop() { s.grpcServer.GracefulStop() }
