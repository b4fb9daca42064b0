package grpcapi

import (
	"context"
	"encoding/json"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"live-interview-service/internal/service/session"
)

// Full method names of the session service.
const (
	GetSessionMethod   = "/" + ServiceName + "/GetSession"
	ListSessionsMethod = "/" + ServiceName + "/ListSessions"
)

// Sessions is the read side of the session manager served over gRPC.
type Sessions interface {
	Snapshot(meetingID string) (session.Snapshot, error)
	List() []session.Snapshot
}

type sessionServiceServer interface {
	GetSession(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	ListSessions(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// sessionServer answers status queries. Messages are protobuf well-known
// types: the meeting id as a StringValue, snapshots as Structs carrying the
// same fields as the HTTP API.
type sessionServer struct {
	sessions Sessions
}

func (s *sessionServer) GetSession(_ context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "meeting id is required")
	}
	snap, err := s.sessions.Snapshot(req.GetValue())
	if errors.Is(err, session.ErrSessionNotFound) {
		return nil, status.Errorf(codes.NotFound, "no session for meeting %q", req.GetValue())
	}
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return toStruct(snap)
}

func (s *sessionServer) ListSessions(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return toStruct(struct {
		Sessions []session.Snapshot `json:"sessions"`
	}{Sessions: s.sessions.List()})
}

func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out := &structpb.Struct{}
	if err := out.UnmarshalJSON(raw); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

var sessionServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*sessionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetSession",
			Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
				in := new(wrapperspb.StringValue)
				if err := dec(in); err != nil {
					return nil, err
				}
				if interceptor == nil {
					return srv.(sessionServiceServer).GetSession(ctx, in)
				}
				info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetSessionMethod}
				return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
					return srv.(sessionServiceServer).GetSession(ctx, req.(*wrapperspb.StringValue))
				})
			},
		},
		{
			MethodName: "ListSessions",
			Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
				in := new(emptypb.Empty)
				if err := dec(in); err != nil {
					return nil, err
				}
				if interceptor == nil {
					return srv.(sessionServiceServer).ListSessions(ctx, in)
				}
				info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ListSessionsMethod}
				return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
					return srv.(sessionServiceServer).ListSessions(ctx, req.(*emptypb.Empty))
				})
			},
		},
	},
	Streams: []grpc.StreamDesc{},
}

// SessionClient calls the session service.
type SessionClient struct {
	cc grpc.ClientConnInterface
}

// NewSessionClient creates a client on cc.
func NewSessionClient(cc grpc.ClientConnInterface) *SessionClient {
	return &SessionClient{cc: cc}
}

// GetSession returns the meeting's session snapshot.
func (c *SessionClient) GetSession(ctx context.Context, meetingID string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, GetSessionMethod, wrapperspb.String(meetingID), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ListSessions returns every session snapshot under a "sessions" list.
func (c *SessionClient) ListSessions(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ListSessionsMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
