package hub

import (
	"context"
	"errors"
	"maps"
	"slices"

	"go.uber.org/zap"

	"github.com/DoyleJ11/twenty-questions-backend/internal/archive"
	"github.com/DoyleJ11/twenty-questions-backend/internal/engine"
	"github.com/DoyleJ11/twenty-questions-backend/internal/lobby"
	"github.com/DoyleJ11/twenty-questions-backend/internal/timer"
	"github.com/DoyleJ11/twenty-questions-backend/internal/types"
	wire "github.com/DoyleJ11/twenty-questions-backend/pkg/types"
)

var (
	ErrCodeTaken    = errors.New("room code already in use")
	ErrNoSuchRoom   = errors.New("room not found")
	ErrShuttingDown = errors.New("server is shutting down")
)

const maxCodeAttempts = 16

type HubMsg interface{ isHubMsg() }

// CreateLobby opens a room with Creator as its thinker. An empty Code asks
// the hub to pick one.
type CreateLobby struct {
	Code    string
	Creator lobby.Member
	Reply   chan CreateResult
}

type CreateResult struct {
	Lobby *lobby.Lobby
	Err   error
}

type GetLobby struct {
	Code  string
	Reply chan *lobby.Lobby
}

// RemoveLobby is posted by a lobby once its room is destroyed.
type RemoveLobby struct {
	Code  string
	Lobby *lobby.Lobby
}

type LobbyUpdated struct {
	Summary engine.Summary
}

type ListLobbies struct {
	Reply chan []wire.RoomSummary
}

type SuggestCode struct {
	Reply chan string
}

// Subscribe registers a directory listener; it receives room_list now and
// after every change.
type Subscribe struct {
	ID     string
	Outbox chan<- types.ServerMessage
}

type Unsubscribe struct{ ID string }

type ShutdownHub struct{ Reason string }

func (CreateLobby) isHubMsg()  {}
func (GetLobby) isHubMsg()     {}
func (RemoveLobby) isHubMsg()  {}
func (LobbyUpdated) isHubMsg() {}
func (ListLobbies) isHubMsg()  {}
func (SuggestCode) isHubMsg()  {}
func (Subscribe) isHubMsg()    {}
func (Unsubscribe) isHubMsg()  {}
func (ShutdownHub) isHubMsg()  {}

type Options struct {
	Rules    engine.Rules
	Logger   *zap.Logger
	Recorder archive.Recorder
	Clock    timer.Clock
}

type Hub struct {
	inbox       chan HubMsg
	lobbies     map[string]*lobby.Lobby
	summaries   map[string]engine.Summary
	subscribers map[string]chan<- types.ServerMessage
	closing     bool
	opts        Options
	log         *zap.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	done        chan struct{}
}

func NewHub(parent context.Context, opts Options) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Rules == (engine.Rules{}) {
		opts.Rules = engine.DefaultRules()
	}
	h := &Hub{
		inbox:       make(chan HubMsg, 64),
		lobbies:     make(map[string]*lobby.Lobby),
		summaries:   make(map[string]engine.Summary),
		subscribers: make(map[string]chan<- types.ServerMessage),
		opts:        opts,
		log:         opts.Logger.Named("hub"),
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Done is closed once the hub loop has exited.
func (h *Hub) Done() <-chan struct{} { return h.done }

func (h *Hub) loop() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateLobby:
				lb, err := h.create(msg.Code, msg.Creator)
				msg.Reply <- CreateResult{Lobby: lb, Err: err}

			case GetLobby:
				msg.Reply <- h.lobbies[msg.Code] // May be nil

			case RemoveLobby:
				if h.lobbies[msg.Code] != msg.Lobby {
					break
				}
				delete(h.lobbies, msg.Code)
				delete(h.summaries, msg.Code)
				h.log.Info("room removed", zap.String("room", msg.Code), zap.Int("rooms", len(h.lobbies)))
				h.publish()

			case LobbyUpdated:
				if _, ok := h.lobbies[msg.Summary.Code]; !ok {
					break
				}
				h.summaries[msg.Summary.Code] = msg.Summary
				h.publish()

			case ListLobbies:
				msg.Reply <- h.directory()

			case SuggestCode:
				code, err := h.freeCode()
				if err != nil {
					h.log.Warn("no free room code", zap.Error(err))
				}
				msg.Reply <- code

			case Subscribe:
				h.subscribers[msg.ID] = msg.Outbox
				h.notify(msg.ID, h.listMessage())

			case Unsubscribe:
				delete(h.subscribers, msg.ID)

			case ShutdownHub:
				h.closing = true
				for _, lb := range h.lobbies {
					go lb.Send(lobby.Shutdown{Reason: msg.Reason})
				}
			}

			if h.closing && len(h.lobbies) == 0 {
				h.cancel()
				return
			}
		}
	}
}

func (h *Hub) create(code string, creator lobby.Member) (*lobby.Lobby, error) {
	if h.closing {
		return nil, ErrShuttingDown
	}
	var err error
	if code == "" {
		code, err = h.freeCode()
	} else {
		code, err = NormalizeCode(code)
	}
	if err != nil {
		return nil, err
	}
	if h.lobbies[code] != nil {
		return nil, ErrCodeTaken
	}

	lb, err := lobby.NewLobby(h.ctx, lobby.Config{
		Code:     code,
		Rules:    h.opts.Rules,
		Creator:  creator,
		Logger:   h.opts.Logger,
		Recorder: h.opts.Recorder,
		Clock:    h.opts.Clock,
		OnChange: func(s engine.Summary) { h.post(LobbyUpdated{Summary: s}) },
		OnClose:  func(l *lobby.Lobby) { h.post(RemoveLobby{Code: l.Code(), Lobby: l}) },
	})
	if err != nil {
		return nil, err
	}
	h.lobbies[code] = lb
	h.summaries[code] = engine.Summary{Code: code, Players: 1, Status: engine.StatusWaiting}
	h.log.Info("room opened", zap.String("room", code), zap.Int("rooms", len(h.lobbies)))
	h.publish()
	return lb, nil
}

func (h *Hub) freeCode() (string, error) {
	for range maxCodeAttempts {
		c, err := GenerateCode()
		if err != nil {
			return "", err
		}
		if h.lobbies[c] == nil {
			return c, nil
		}
		h.log.Debug("collision on code, regenerating", zap.String("code", c))
	}
	return "", ErrCodeTaken
}

// post is used by lobby goroutines.
func (h *Hub) post(m HubMsg) {
	select {
	case h.inbox <- m:
	case <-h.ctx.Done():
	}
}

func (h *Hub) directory() []wire.RoomSummary {
	out := make([]wire.RoomSummary, 0, len(h.summaries))
	for _, code := range slices.Sorted(maps.Keys(h.summaries)) {
		s := h.summaries[code]
		out = append(out, wire.RoomSummary{Code: s.Code, Players: s.Players, Status: string(s.Status)})
	}
	return out
}

func (h *Hub) listMessage() types.ServerMessage {
	return types.ServerMessage{Type: wire.RoomList, Payload: h.directory()}
}

func (h *Hub) publish() {
	msg := h.listMessage()
	for id := range h.subscribers {
		h.notify(id, msg)
	}
}

func (h *Hub) notify(id string, msg types.ServerMessage) {
	select {
	case h.subscribers[id] <- msg:
	default:
		h.log.Debug("dropping slow directory subscriber", zap.String("conn", id))
		delete(h.subscribers, id)
	}
}

// request posts msg and waits for its reply.
func request[T any](ctx context.Context, h *Hub, msg HubMsg, reply chan T) (T, error) {
	var zero T
	select {
	case h.inbox <- msg:
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-h.done:
		return zero, ErrShuttingDown
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-h.done:
		return zero, ErrShuttingDown
	}
}

func (h *Hub) Create(ctx context.Context, code string, creator lobby.Member) (*lobby.Lobby, error) {
	reply := make(chan CreateResult, 1)
	res, err := request(ctx, h, CreateLobby{Code: code, Creator: creator, Reply: reply}, reply)
	if err != nil {
		return nil, err
	}
	return res.Lobby, res.Err
}

func (h *Hub) Get(ctx context.Context, code string) (*lobby.Lobby, error) {
	code, err := NormalizeCode(code)
	if err != nil {
		return nil, err
	}
	reply := make(chan *lobby.Lobby, 1)
	lb, err := request(ctx, h, GetLobby{Code: code, Reply: reply}, reply)
	if err != nil {
		return nil, err
	}
	if lb == nil {
		return nil, ErrNoSuchRoom
	}
	return lb, nil
}

func (h *Hub) List(ctx context.Context) ([]wire.RoomSummary, error) {
	reply := make(chan []wire.RoomSummary, 1)
	return request(ctx, h, ListLobbies{Reply: reply}, reply)
}

// SuggestCode returns a code no open room is using.
func (h *Hub) SuggestCode(ctx context.Context) (string, error) {
	reply := make(chan string, 1)
	code, err := request(ctx, h, SuggestCode{Reply: reply}, reply)
	if err == nil && code == "" {
		err = ErrCodeTaken
	}
	return code, err
}

func (h *Hub) Subscribe(id string, outbox chan<- types.ServerMessage) {
	h.post(Subscribe{ID: id, Outbox: outbox})
}

func (h *Hub) Unsubscribe(id string) { h.post(Unsubscribe{ID: id}) }

// Shutdown closes every room and waits for the hub to stop.
func (h *Hub) Shutdown(ctx context.Context, reason string) error {
	select {
	case h.inbox <- ShutdownHub{Reason: reason}:
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
