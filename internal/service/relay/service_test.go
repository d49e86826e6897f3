package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/dealer-chat/backend/internal/model/chat"
	"github.com/zhouzirui/dealer-chat/backend/internal/model/persona"
	"github.com/zhouzirui/dealer-chat/backend/internal/store"
)

type fakeResponder struct {
	mu        sync.Mutex
	reply     string
	err       error
	delay     time.Duration
	histories [][]chat.Message
	domains   []string
}

func (f *fakeResponder) GenerateReply(_ context.Context, p persona.Persona, history []chat.Message, userMessage string) (string, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.histories = append(f.histories, history)
	f.domains = append(f.domains, p.Domain)
	if f.err != nil {
		return "", f.err
	}
	if f.reply != "" {
		return f.reply, nil
	}
	return "re: " + userMessage, nil
}

func newTestService(t *testing.T, responder Responder) (*Service, *store.MemoryStore) {
	t.Helper()
	f, err := persona.Seed()
	require.NoError(t, err)
	st := store.NewMemoryStore()
	allow := NewAllowList([]string{"toyota.com", "honda.com", "localhost"})
	return NewService(st, persona.NewMemoryStore(f), responder, allow), st
}

func TestHandleTurnRejectsUnauthorizedDomain(t *testing.T) {
	for _, domain := range []string{"", "evil.com", "Toyota.com", "toyota.com.evil.com"} {
		t.Run(fmt.Sprintf("domain=%q", domain), func(t *testing.T) {
			responder := &fakeResponder{}
			svc, st := newTestService(t, responder)

			_, err := svc.HandleTurn(context.Background(), TurnRequest{Message: "Hi", CustomerDomain: domain})
			require.ErrorIs(t, err, ErrUnauthorizedDomain)
			require.Zero(t, st.ConversationCount())
			require.Zero(t, st.MessageCount())
			require.Empty(t, responder.histories)
		})
	}
}

func TestHandleTurnRejectsEmptyMessage(t *testing.T) {
	svc, st := newTestService(t, &fakeResponder{})

	_, err := svc.HandleTurn(context.Background(), TurnRequest{CustomerDomain: "toyota.com"})
	require.ErrorIs(t, err, ErrEmptyMessage)
	require.Zero(t, st.MessageCount())
}

func TestHandleTurnCreatesAndResumesConversation(t *testing.T) {
	responder := &fakeResponder{}
	svc, st := newTestService(t, responder)
	ctx := context.Background()

	first, err := svc.HandleTurn(ctx, TurnRequest{Message: "Hi", CustomerDomain: "toyota.com"})
	require.NoError(t, err)
	require.NotEmpty(t, first.ConversationID)
	require.Equal(t, "re: Hi", first.Response)
	require.Equal(t, 1, st.ConversationCount())

	second, err := svc.HandleTurn(ctx, TurnRequest{Message: "Oil change", CustomerDomain: "toyota.com", ConversationID: first.ConversationID})
	require.NoError(t, err)
	require.Equal(t, first.ConversationID, second.ConversationID)
	require.Equal(t, 1, st.ConversationCount())

	conv, err := st.GetConversation(ctx, first.ConversationID)
	require.NoError(t, err)
	require.Len(t, conv.Messages, 4)
	require.Equal(t, chat.SenderUser, conv.Messages[0].Sender)
	require.Equal(t, "Hi", conv.Messages[0].Content)
	require.Equal(t, chat.SenderBot, conv.Messages[1].Sender)
	require.Equal(t, "re: Hi", conv.Messages[1].Content)
	require.Equal(t, chat.SenderUser, conv.Messages[2].Sender)
	require.Equal(t, chat.SenderBot, conv.Messages[3].Sender)

	// history handed to the responder excludes the turn being answered
	require.Len(t, responder.histories, 2)
	require.Empty(t, responder.histories[0])
	require.Len(t, responder.histories[1], 2)
	require.Equal(t, []string{"toyota.com", "toyota.com"}, responder.domains)
}

func TestHandleTurnUnknownConversation(t *testing.T) {
	svc, st := newTestService(t, &fakeResponder{})

	_, err := svc.HandleTurn(context.Background(), TurnRequest{Message: "Hi", CustomerDomain: "toyota.com", ConversationID: "nope"})
	require.ErrorIs(t, err, ErrConversationNotFound)
	require.Zero(t, st.MessageCount())
	require.Zero(t, svc.locks.size())
}

func TestHandleTurnProviderFailureKeepsUserMessage(t *testing.T) {
	svc, st := newTestService(t, &fakeResponder{err: errors.New("upstream 502")})

	_, err := svc.HandleTurn(context.Background(), TurnRequest{Message: "Hi", CustomerDomain: "localhost"})
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrUnauthorizedDomain)
	require.NotErrorIs(t, err, ErrConversationNotFound)
	require.Equal(t, 1, st.MessageCount())
	require.Zero(t, svc.locks.size())
}

func TestHandleTurnSerialisesSameConversation(t *testing.T) {
	responder := &fakeResponder{delay: 5 * time.Millisecond}
	svc, st := newTestService(t, responder)
	ctx := context.Background()

	first, err := svc.HandleTurn(ctx, TurnRequest{Message: "start", CustomerDomain: "honda.com"})
	require.NoError(t, err)

	const turns = 8
	errs := make(chan error, turns)
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.HandleTurn(ctx, TurnRequest{
				Message:        fmt.Sprintf("turn %d", i),
				CustomerDomain: "honda.com",
				ConversationID: first.ConversationID,
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	conv, err := st.GetConversation(ctx, first.ConversationID)
	require.NoError(t, err)
	require.Len(t, conv.Messages, 2*(turns+1))
	for i := 0; i < len(conv.Messages); i += 2 {
		require.Equal(t, chat.SenderUser, conv.Messages[i].Sender)
		require.Equal(t, chat.SenderBot, conv.Messages[i+1].Sender)
		require.Equal(t, "re: "+conv.Messages[i].Content, conv.Messages[i+1].Content)
	}
	for _, h := range responder.histories {
		require.Zero(t, len(h)%2, "each turn must see only complete user/bot pairs")
	}
	require.Zero(t, svc.locks.size())
}

func TestAllowList(t *testing.T) {
	allow := NewAllowList([]string{"ford.com", "", "localhost"})
	require.True(t, allow.Allowed("ford.com"))
	require.True(t, allow.Allowed("localhost"))
	require.False(t, allow.Allowed(""))
	require.False(t, allow.Allowed("FORD.COM"))
	require.False(t, allow.Allowed("www.ford.com"))
}
