package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "chatdock.v1.Messenger"

// MessengerServer is the daemon API.
type MessengerServer interface {
	GetStatus(context.Context, *emptypb.Empty) (*StatusResponse, error)
	ListWindows(context.Context, *emptypb.Empty) (*WindowsResponse, error)
	OpenConversation(context.Context, *ConversationRequest) (*WindowsResponse, error)
	StartChat(context.Context, *StartChatRequest) (*ConversationResponse, error)
	CloseWindow(context.Context, *ConversationRequest) (*WindowsResponse, error)
	MinimizeWindow(context.Context, *ConversationRequest) (*WindowsResponse, error)
	RestoreWindow(context.Context, *ConversationRequest) (*WindowsResponse, error)
	SendMessage(context.Context, *SendRequest) (*MessageResponse, error)
	SetTyping(context.Context, *TypingRequest) (*emptypb.Empty, error)
	ListConversations(context.Context, *emptypb.Empty) (*ConversationsResponse, error)
	GetUnread(context.Context, *emptypb.Empty) (*UnreadResponse, error)
	MarkConversationRead(context.Context, *ConversationRequest) (*UnreadResponse, error)
	MarkAllRead(context.Context, *emptypb.Empty) (*UnreadResponse, error)
	SearchMessages(context.Context, *SearchRequest) (*SearchResponse, error)
	Watch(*WatchRequest, grpc.ServerStreamingServer[EventEnvelope]) error
}

// RegisterMessengerServer registers srv on s.
func RegisterMessengerServer(s grpc.ServiceRegistrar, srv MessengerServer) {
	s.RegisterService(&MessengerServiceDesc, srv)
}

// MessengerServiceDesc describes the Messenger service to grpc.
var MessengerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MessengerServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("GetStatus", MessengerServer.GetStatus),
		unary("ListWindows", MessengerServer.ListWindows),
		unary("OpenConversation", MessengerServer.OpenConversation),
		unary("StartChat", MessengerServer.StartChat),
		unary("CloseWindow", MessengerServer.CloseWindow),
		unary("MinimizeWindow", MessengerServer.MinimizeWindow),
		unary("RestoreWindow", MessengerServer.RestoreWindow),
		unary("SendMessage", MessengerServer.SendMessage),
		unary("SetTyping", MessengerServer.SetTyping),
		unary("ListConversations", MessengerServer.ListConversations),
		unary("GetUnread", MessengerServer.GetUnread),
		unary("MarkConversationRead", MessengerServer.MarkConversationRead),
		unary("MarkAllRead", MessengerServer.MarkAllRead),
		unary("SearchMessages", MessengerServer.SearchMessages),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			Handler:       watchHandler,
			ServerStreams: true,
		},
	},
	Metadata: "chatdock/v1/messenger",
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func unary[Req, Res any](name string, call func(MessengerServer, context.Context, *Req) (*Res, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(MessengerServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(MessengerServer), ctx, req.(*Req))
			})
		},
	}
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	in := new(WatchRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(MessengerServer).Watch(in, &grpc.GenericServerStream[WatchRequest, EventEnvelope]{ServerStream: stream})
}

// UnimplementedMessengerServer answers every method with codes.Unimplemented.
type UnimplementedMessengerServer struct{}

func (UnimplementedMessengerServer) GetStatus(context.Context, *emptypb.Empty) (*StatusResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetStatus not implemented")
}
func (UnimplementedMessengerServer) ListWindows(context.Context, *emptypb.Empty) (*WindowsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListWindows not implemented")
}
func (UnimplementedMessengerServer) OpenConversation(context.Context, *ConversationRequest) (*WindowsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method OpenConversation not implemented")
}
func (UnimplementedMessengerServer) StartChat(context.Context, *StartChatRequest) (*ConversationResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method StartChat not implemented")
}
func (UnimplementedMessengerServer) CloseWindow(context.Context, *ConversationRequest) (*WindowsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CloseWindow not implemented")
}
func (UnimplementedMessengerServer) MinimizeWindow(context.Context, *ConversationRequest) (*WindowsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method MinimizeWindow not implemented")
}
func (UnimplementedMessengerServer) RestoreWindow(context.Context, *ConversationRequest) (*WindowsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RestoreWindow not implemented")
}
func (UnimplementedMessengerServer) SendMessage(context.Context, *SendRequest) (*MessageResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SendMessage not implemented")
}
func (UnimplementedMessengerServer) SetTyping(context.Context, *TypingRequest) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method SetTyping not implemented")
}
func (UnimplementedMessengerServer) ListConversations(context.Context, *emptypb.Empty) (*ConversationsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListConversations not implemented")
}
func (UnimplementedMessengerServer) GetUnread(context.Context, *emptypb.Empty) (*UnreadResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetUnread not implemented")
}
func (UnimplementedMessengerServer) MarkConversationRead(context.Context, *ConversationRequest) (*UnreadResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method MarkConversationRead not implemented")
}
func (UnimplementedMessengerServer) MarkAllRead(context.Context, *emptypb.Empty) (*UnreadResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method MarkAllRead not implemented")
}
func (UnimplementedMessengerServer) SearchMessages(context.Context, *SearchRequest) (*SearchResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SearchMessages not implemented")
}
func (UnimplementedMessengerServer) Watch(*WatchRequest, grpc.ServerStreamingServer[EventEnvelope]) error {
	return status.Error(codes.Unimplemented, "method Watch not implemented")
}
