package api

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/chatdock/internal/backend"
	"github.com/matheus3301/chatdock/internal/bus"
	"github.com/matheus3301/chatdock/internal/chat"
	"github.com/matheus3301/chatdock/internal/messenger"
	"github.com/matheus3301/chatdock/internal/rpc"
	"github.com/matheus3301/chatdock/internal/store"
	"github.com/matheus3301/chatdock/internal/unread"
	"github.com/matheus3301/chatdock/internal/windows"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
)

// Messenger is the core the service drives.
type Messenger interface {
	Status(ctx context.Context) (messenger.Status, error)
	Windows(ctx context.Context) ([]windows.Window, error)
	OpenByID(ctx context.Context, id string) (chat.Conversation, error)
	StartChat(ctx context.Context, recipientID string) (chat.Conversation, error)
	Close(ctx context.Context, id string) error
	Minimize(ctx context.Context, id string) error
	Restore(ctx context.Context, id string) error
	Send(ctx context.Context, id, content string) (chat.Message, error)
	SetTyping(ctx context.Context, id string, typing bool) error
	Conversations(ctx context.Context) ([]chat.Conversation, error)
	Unread(ctx context.Context) (unread.Snapshot, error)
	MarkConversationRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) error
	Search(ctx context.Context, query, conversationID string, limit int) ([]store.SearchResult, error)
}

// Service implements the Messenger gRPC service.
type Service struct {
	rpc.UnimplementedMessengerServer

	sessionName string
	startedAt   time.Time
	messenger   Messenger
	bus         *bus.Bus
	logger      *zap.Logger
}

// NewService creates the daemon API over m.
func NewService(sessionName string, m Messenger, b *bus.Bus, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		sessionName: sessionName,
		startedAt:   time.Now(),
		messenger:   m,
		bus:         b,
		logger:      logger,
	}
}

func (s *Service) GetStatus(ctx context.Context, _ *emptypb.Empty) (*rpc.StatusResponse, error) {
	st, err := s.messenger.Status(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	resp := &rpc.StatusResponse{
		Session:   s.sessionName,
		State:     string(st.State),
		LastError: st.LastError,
		LoggedIn:  st.LoggedIn,
		UserID:    st.UserID,
		UptimeMs:  time.Since(s.startedAt).Milliseconds(),
	}
	if st.LoggedIn {
		if u, err := s.messenger.Unread(ctx); err == nil {
			resp.Bell = u.Bell
		}
	}
	return resp, nil
}

func (s *Service) ListWindows(ctx context.Context, _ *emptypb.Empty) (*rpc.WindowsResponse, error) {
	return s.windows(ctx)
}

func (s *Service) OpenConversation(ctx context.Context, req *rpc.ConversationRequest) (*rpc.WindowsResponse, error) {
	if req.ConversationID == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, "conversation id is required")
	}
	if _, err := s.messenger.OpenByID(ctx, req.ConversationID); err != nil {
		return nil, toStatus(err)
	}
	return s.windows(ctx)
}

func (s *Service) StartChat(ctx context.Context, req *rpc.StartChatRequest) (*rpc.ConversationResponse, error) {
	if req.RecipientID == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, "recipient id is required")
	}
	conv, err := s.messenger.StartChat(ctx, req.RecipientID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &rpc.ConversationResponse{Conversation: conv}, nil
}

func (s *Service) CloseWindow(ctx context.Context, req *rpc.ConversationRequest) (*rpc.WindowsResponse, error) {
	return s.windowOp(ctx, req, s.messenger.Close)
}

func (s *Service) MinimizeWindow(ctx context.Context, req *rpc.ConversationRequest) (*rpc.WindowsResponse, error) {
	return s.windowOp(ctx, req, s.messenger.Minimize)
}

func (s *Service) RestoreWindow(ctx context.Context, req *rpc.ConversationRequest) (*rpc.WindowsResponse, error) {
	return s.windowOp(ctx, req, s.messenger.Restore)
}

func (s *Service) SendMessage(ctx context.Context, req *rpc.SendRequest) (*rpc.MessageResponse, error) {
	msg, err := s.messenger.Send(ctx, req.ConversationID, req.Content)
	if err != nil {
		return nil, toStatus(err)
	}
	return &rpc.MessageResponse{Message: msg}, nil
}

func (s *Service) SetTyping(ctx context.Context, req *rpc.TypingRequest) (*emptypb.Empty, error) {
	if err := s.messenger.SetTyping(ctx, req.ConversationID, req.Typing); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *Service) ListConversations(ctx context.Context, _ *emptypb.Empty) (*rpc.ConversationsResponse, error) {
	convs, err := s.messenger.Conversations(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &rpc.ConversationsResponse{Conversations: convs}, nil
}

func (s *Service) GetUnread(ctx context.Context, _ *emptypb.Empty) (*rpc.UnreadResponse, error) {
	return s.unread(ctx)
}

func (s *Service) MarkConversationRead(ctx context.Context, req *rpc.ConversationRequest) (*rpc.UnreadResponse, error) {
	if err := s.messenger.MarkConversationRead(ctx, req.ConversationID); err != nil {
		return nil, toStatus(err)
	}
	return s.unread(ctx)
}

func (s *Service) MarkAllRead(ctx context.Context, _ *emptypb.Empty) (*rpc.UnreadResponse, error) {
	if err := s.messenger.MarkAllRead(ctx); err != nil {
		return nil, toStatus(err)
	}
	return s.unread(ctx)
}

func (s *Service) SearchMessages(ctx context.Context, req *rpc.SearchRequest) (*rpc.SearchResponse, error) {
	if req.Query == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, "query is required")
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	results, err := s.messenger.Search(ctx, req.Query, req.ConversationID, limit)
	if err != nil {
		return nil, toStatus(err)
	}
	return &rpc.SearchResponse{Results: results}, nil
}

// Watch streams bus events whose kind starts with the requested prefix.
func (s *Service) Watch(req *rpc.WatchRequest, stream grpc.ServerStreamingServer[rpc.EventEnvelope]) error {
	ch, unsub := s.bus.Subscribe(req.Prefix, 256)
	defer unsub()

	for {
		select {
		case evt := <-ch:
			payload, err := json.Marshal(evt.Payload)
			if err != nil {
				s.logger.Warn("skipping unencodable event", zap.String("kind", evt.Kind), zap.Error(err))
				continue
			}
			if err := stream.Send(&rpc.EventEnvelope{
				EventID:          uuid.New().String(),
				Session:          s.sessionName,
				OccurredAtUnixMs: evt.Timestamp.UnixMilli(),
				Kind:             evt.Kind,
				Payload:          payload,
			}); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return nil
		}
	}
}

func (s *Service) windowOp(ctx context.Context, req *rpc.ConversationRequest, op func(context.Context, string) error) (*rpc.WindowsResponse, error) {
	if err := op(ctx, req.ConversationID); err != nil {
		return nil, toStatus(err)
	}
	return s.windows(ctx)
}

func (s *Service) windows(ctx context.Context) (*rpc.WindowsResponse, error) {
	ws, err := s.messenger.Windows(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &rpc.WindowsResponse{Windows: ws}, nil
}

func (s *Service) unread(ctx context.Context) (*rpc.UnreadResponse, error) {
	snap, err := s.messenger.Unread(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &rpc.UnreadResponse{Snapshot: snap}, nil
}

// toStatus maps core errors onto gRPC codes.
func toStatus(err error) error {
	var se *backend.StatusError
	switch {
	case errors.Is(err, messenger.ErrLoggedOut), errors.Is(err, backend.ErrNoCredential):
		return grpcstatus.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, windows.ErrWindowNotFound), errors.Is(err, messenger.ErrConversationNotFound):
		return grpcstatus.Error(codes.NotFound, err.Error())
	case errors.Is(err, windows.ErrEmptyContent):
		return grpcstatus.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return grpcstatus.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return grpcstatus.Error(codes.Canceled, err.Error())
	case errors.As(err, &se):
		switch {
		case se.Code == 401 || se.Code == 403:
			return grpcstatus.Error(codes.PermissionDenied, err.Error())
		case se.Code == 404:
			return grpcstatus.Error(codes.NotFound, err.Error())
		case se.Code >= 400 && se.Code < 500:
			return grpcstatus.Error(codes.FailedPrecondition, err.Error())
		default:
			return grpcstatus.Error(codes.Unavailable, err.Error())
		}
	default:
		return grpcstatus.Error(codes.Internal, err.Error())
	}
}
