package ffi

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
)

// bridgeProtoSource describes the one gRPC service every host bridge
// process implements: the host bridge exposes whitelisted host
// functions as a gRPC service described by a .proto file. A single
// generic Call method carries every foreign-function name plus its
// positional rtvalue-shaped arguments, rather than one RPC method per
// whitelisted function, since the whitelist is only known at
// nova.yaml/generation time and the descriptor only needs to exist
// once.
const bridgeProtoSource = `
syntax = "proto3";
package nova.ffi;

message Value {
  int32 kind = 1;
  int64 int_val = 2;
  double float_val = 3;
  bool bool_val = 4;
  string string_val = 5;
}

message CallRequest {
  string fn_name = 1;
  repeated Value args = 2;
}

message CallResponse {
  Value result = 1;
  string error = 2;
}

service Bridge {
  rpc Call(CallRequest) returns (CallResponse);
}
`

var (
	bridgeFileDescOnce sync.Once
	bridgeFileDesc     *desc.FileDescriptor
	bridgeFileDescErr  error
)

// bridgeFileDescriptor parses bridgeProtoSource exactly once, using
// protoparse's Accessor hook to hand it an in-memory reader instead of
// a file on disk; the descriptor only needs defining once per process,
// not once per call.
func bridgeFileDescriptor() (*desc.FileDescriptor, error) {
	bridgeFileDescOnce.Do(func() {
		parser := protoparse.Parser{
			Accessor: func(filename string) (io.ReadCloser, error) {
				if filename != "nova_ffi_bridge.proto" {
					return nil, fmt.Errorf("unknown proto file %q", filename)
				}
				return io.NopCloser(strings.NewReader(bridgeProtoSource)), nil
			},
		}
		fds, err := parser.ParseFiles("nova_ffi_bridge.proto")
		if err != nil {
			bridgeFileDescErr = fmt.Errorf("parsing embedded bridge proto: %w", err)
			return
		}
		bridgeFileDesc = fds[0]
	})
	return bridgeFileDesc, bridgeFileDescErr
}

func messageDescriptors() (callRequest, callResponse, value *desc.MessageDescriptor, err error) {
	fd, err := bridgeFileDescriptor()
	if err != nil {
		return nil, nil, nil, err
	}
	callRequest = fd.FindMessage("nova.ffi.CallRequest")
	callResponse = fd.FindMessage("nova.ffi.CallResponse")
	value = fd.FindMessage("nova.ffi.Value")
	if callRequest == nil || callResponse == nil || value == nil {
		return nil, nil, nil, fmt.Errorf("embedded bridge proto is missing an expected message")
	}
	return callRequest, callResponse, value, nil
}
