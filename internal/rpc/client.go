package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
)

// Client is a typed client for the daemon API.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to the daemon's Unix domain socket.
func Dial(socketPath string, opts ...grpc.DialOption) (*Client, error) {
	return dial("unix://"+socketPath, opts...)
}

func dial(target string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func invoke[Req, Res any](ctx context.Context, c *Client, method string, in *Req) (*Res, error) {
	out := new(Res)
	if err := c.conn.Invoke(ctx, fullMethod(method), in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetStatus(ctx context.Context) (*StatusResponse, error) {
	return invoke[emptypb.Empty, StatusResponse](ctx, c, "GetStatus", &emptypb.Empty{})
}

func (c *Client) ListWindows(ctx context.Context) (*WindowsResponse, error) {
	return invoke[emptypb.Empty, WindowsResponse](ctx, c, "ListWindows", &emptypb.Empty{})
}

func (c *Client) OpenConversation(ctx context.Context, id string) (*WindowsResponse, error) {
	return invoke[ConversationRequest, WindowsResponse](ctx, c, "OpenConversation", &ConversationRequest{ConversationID: id})
}

func (c *Client) StartChat(ctx context.Context, recipientID string) (*ConversationResponse, error) {
	return invoke[StartChatRequest, ConversationResponse](ctx, c, "StartChat", &StartChatRequest{RecipientID: recipientID})
}

func (c *Client) CloseWindow(ctx context.Context, id string) (*WindowsResponse, error) {
	return invoke[ConversationRequest, WindowsResponse](ctx, c, "CloseWindow", &ConversationRequest{ConversationID: id})
}

func (c *Client) MinimizeWindow(ctx context.Context, id string) (*WindowsResponse, error) {
	return invoke[ConversationRequest, WindowsResponse](ctx, c, "MinimizeWindow", &ConversationRequest{ConversationID: id})
}

func (c *Client) RestoreWindow(ctx context.Context, id string) (*WindowsResponse, error) {
	return invoke[ConversationRequest, WindowsResponse](ctx, c, "RestoreWindow", &ConversationRequest{ConversationID: id})
}

func (c *Client) SendMessage(ctx context.Context, id, content string) (*MessageResponse, error) {
	return invoke[SendRequest, MessageResponse](ctx, c, "SendMessage", &SendRequest{ConversationID: id, Content: content})
}

func (c *Client) SetTyping(ctx context.Context, id string, typing bool) error {
	_, err := invoke[TypingRequest, emptypb.Empty](ctx, c, "SetTyping", &TypingRequest{ConversationID: id, Typing: typing})
	return err
}

func (c *Client) ListConversations(ctx context.Context) (*ConversationsResponse, error) {
	return invoke[emptypb.Empty, ConversationsResponse](ctx, c, "ListConversations", &emptypb.Empty{})
}

func (c *Client) GetUnread(ctx context.Context) (*UnreadResponse, error) {
	return invoke[emptypb.Empty, UnreadResponse](ctx, c, "GetUnread", &emptypb.Empty{})
}

func (c *Client) MarkConversationRead(ctx context.Context, id string) (*UnreadResponse, error) {
	return invoke[ConversationRequest, UnreadResponse](ctx, c, "MarkConversationRead", &ConversationRequest{ConversationID: id})
}

func (c *Client) MarkAllRead(ctx context.Context) (*UnreadResponse, error) {
	return invoke[emptypb.Empty, UnreadResponse](ctx, c, "MarkAllRead", &emptypb.Empty{})
}

func (c *Client) SearchMessages(ctx context.Context, req *SearchRequest) (*SearchResponse, error) {
	return invoke[SearchRequest, SearchResponse](ctx, c, "SearchMessages", req)
}

// Watch opens the event stream. Cancel ctx to close it.
func (c *Client) Watch(ctx context.Context, prefix string) (grpc.ServerStreamingClient[EventEnvelope], error) {
	stream, err := c.conn.NewStream(ctx, &MessengerServiceDesc.Streams[0], fullMethod("Watch"))
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[WatchRequest, EventEnvelope]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(&WatchRequest{Prefix: prefix}); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
