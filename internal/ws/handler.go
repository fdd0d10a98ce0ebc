package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/DoyleJ11/twenty-questions-backend/internal/engine"
	"github.com/DoyleJ11/twenty-questions-backend/internal/hub"
	"github.com/DoyleJ11/twenty-questions-backend/internal/lobby"
	"github.com/DoyleJ11/twenty-questions-backend/internal/types"
	wire "github.com/DoyleJ11/twenty-questions-backend/pkg/types"
)

const (
	outboxSize   = 32
	writeTimeout = 5 * time.Second
	pingInterval = 20 * time.Second
	requestWait  = 5 * time.Second
)

type Options struct {
	Logger *zap.Logger
	// OriginPatterns are host patterns accepted in the Origin header.
	OriginPatterns []string
	// MessagesPerSecond and Burst bound how fast one connection may send.
	MessagesPerSecond float64
	Burst             int
}

func Handler(h *hub.Hub, opts Options) http.HandlerFunc {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.MessagesPerSecond == 0 {
		opts.MessagesPerSecond = 5
	}
	if opts.Burst == 0 {
		opts.Burst = 10
	}
	log := opts.Logger.Named("ws")

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			log.Debug("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		s := &session{
			id:      uuid.NewString(),
			hub:     h,
			conn:    conn,
			out:     make(chan types.ServerMessage, outboxSize),
			limiter: rate.NewLimiter(rate.Limit(opts.MessagesPerSecond), opts.Burst),
			ctx:     ctx,
			cancel:  cancel,
		}
		s.log = log.With(zap.String("conn", s.id))
		s.log.Debug("connected", zap.String("remote", r.RemoteAddr))

		h.Subscribe(s.id, s.out)
		defer s.close()

		go s.writeLoop()
		go s.pingLoop()
		s.readLoop()
	}
}

type session struct {
	id      string
	hub     *hub.Hub
	conn    *websocket.Conn
	out     chan types.ServerMessage
	limiter *rate.Limiter
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc

	mu   sync.Mutex
	room *lobby.Lobby
}

func (s *session) readLoop() {
	for {
		_, data, err := s.conn.Read(s.ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				if s.ctx.Err() == nil {
					s.log.Debug("read failed", zap.Error(err))
				}
			}
			return
		}

		if !s.limiter.Allow() {
			s.fail("rate_limited", "slow down")
			continue
		}

		var cm types.ClientMessage
		if err := json.Unmarshal(data, &cm); err != nil {
			s.fail("bad_json", "bad json")
			continue
		}
		s.dispatch(cm)
	}
}

func (s *session) dispatch(cm types.ClientMessage) {
	ctx, cancel := context.WithTimeout(s.ctx, requestWait)
	defer cancel()

	switch cm.Type {
	case wire.CreateRoom:
		if s.current() != nil {
			s.reject(engine.ErrAlreadyInRoom)
			return
		}
		lb, err := s.hub.Create(ctx, cm.Code, s.member(cm.Name))
		if err != nil {
			s.reject(err)
			return
		}
		s.setRoom(lb)

	case wire.JoinRoom:
		if s.current() != nil {
			s.reject(engine.ErrAlreadyInRoom)
			return
		}
		lb, err := s.hub.Get(ctx, cm.Code)
		if err == nil {
			err = lb.Join(ctx, s.member(cm.Name))
		}
		if err != nil {
			s.reject(err)
			return
		}
		s.setRoom(lb)

	case wire.LeaveRoom:
		lb := s.current()
		if lb == nil {
			s.reject(engine.ErrNotInRoom)
			return
		}
		s.setRoom(nil)
		if err := lb.Leave(ctx, s.id); err != nil && !errors.Is(err, engine.ErrRoomClosed) {
			s.reject(err)
		}

	default:
		cmd, ok := toEngineCommand(cm)
		if !ok {
			s.fail("unknown_type", "unknown type")
			return
		}
		lb := s.current()
		if lb == nil {
			s.reject(engine.ErrNotInRoom)
			return
		}
		if !lb.Send(lobby.FromClient{ConnID: s.id, Cmd: cmd}) {
			s.setRoom(nil)
			s.reject(engine.ErrRoomClosed)
		}
	}
}

func (s *session) member(name string) lobby.Member {
	return lobby.Member{ID: s.id, Name: name, Outbox: s.out, Evict: s.cancel}
}

func (s *session) writeLoop() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case msg := <-s.out:
			switch msg.Type {
			case string(engine.EvtRoomClosed), string(engine.EvtExpelled):
				s.leftRoom(msg.Room)
			}
			ctx, cancel := context.WithTimeout(s.ctx, writeTimeout)
			err := wsjson.Write(ctx, s.conn, msg)
			cancel()
			if err != nil {
				s.log.Debug("write failed", zap.Error(err))
				s.cancel()
				return
			}
		}
	}
}

func (s *session) pingLoop() {
	t := time.NewTicker(pingInterval)
	defer t.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-t.C:
			ctx, cancel := context.WithTimeout(s.ctx, writeTimeout)
			err := s.conn.Ping(ctx)
			cancel()
			if err != nil {
				s.cancel()
				return
			}
		}
	}
}

// close runs when the reader exits; a seat still held turns into a
// disconnect so the room can start its grace window.
func (s *session) close() {
	s.cancel()
	if lb := s.current(); lb != nil {
		lb.Send(lobby.Disconnect{ConnID: s.id})
	}
	s.hub.Unsubscribe(s.id)
	s.log.Debug("disconnected")
}

func (s *session) current() *lobby.Lobby {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room
}

func (s *session) setRoom(lb *lobby.Lobby) {
	s.mu.Lock()
	s.room = lb
	s.mu.Unlock()
}

// leftRoom forgets the current room if the notice is about it.
func (s *session) leftRoom(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.room != nil && s.room.Code() == code {
		s.room = nil
	}
}

func (s *session) reject(err error) {
	s.fail(errorCode(err), err.Error())
}

func (s *session) fail(code, message string) {
	msg := types.Error("", code, message)
	select {
	case s.out <- msg:
	case <-s.ctx.Done():
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, hub.ErrCodeTaken):
		return "code_taken"
	case errors.Is(err, hub.ErrInvalidCode):
		return "invalid_code"
	case errors.Is(err, hub.ErrNoSuchRoom):
		return "room_not_found"
	case errors.Is(err, hub.ErrShuttingDown):
		return "shutting_down"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return lobby.ErrorCode(err)
	}
}

func toEngineCommand(m types.ClientMessage) (engine.Command, bool) {
	switch m.Type {
	case wire.StartRound:
		return engine.Command{Type: engine.CmdStartRound, Text: m.Word}, true
	case wire.AskQuestion:
		return engine.Command{Type: engine.CmdAskQuestion, Text: m.Text}, true
	case wire.AnswerQuestion:
		return engine.Command{Type: engine.CmdAnswerQuestion, QuestionID: m.QuestionID, Answer: m.Answer}, true
	case wire.SubmitGuess:
		return engine.Command{Type: engine.CmdSubmitGuess, Text: m.Text}, true
	case wire.Chat:
		return engine.Command{Type: engine.CmdChat, Text: m.Text}, true
	default:
		return engine.Command{}, false
	}
}
