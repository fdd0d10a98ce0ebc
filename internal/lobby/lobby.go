package lobby

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/twenty-questions-backend/internal/archive"
	"github.com/DoyleJ11/twenty-questions-backend/internal/engine"
	"github.com/DoyleJ11/twenty-questions-backend/internal/timer"
	"github.com/DoyleJ11/twenty-questions-backend/internal/types"
)

const archiveTimeout = 5 * time.Second

type Msg interface{ isLobbyMsg() }

// Member is a connection taking a seat in the room.
type Member struct {
	ID     string
	Name   string
	Outbox chan<- types.ServerMessage
	// Evict is called when the outbox overflows and the member is dropped.
	Evict func()
}

type Join struct {
	Member Member
	Reply  chan error
}

func (Join) isLobbyMsg() {}

type Leave struct {
	ConnID string
	Reply  chan error
}

func (Leave) isLobbyMsg() {}

type Disconnect struct{ ConnID string }

func (Disconnect) isLobbyMsg() {}

type FromClient struct {
	ConnID string
	Cmd    engine.Command
}

func (FromClient) isLobbyMsg() {}

type TimerFired struct {
	Firing timer.Firing[engine.Slot, engine.Ticket]
}

func (TimerFired) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

type Shutdown struct{ Reason string }

func (Shutdown) isLobbyMsg() {}

type View struct {
	Version    int
	NumClients int
	Armed      int
	State      engine.RoomState
}

type Config struct {
	Code     string
	Rules    engine.Rules
	Creator  Member
	Logger   *zap.Logger
	Recorder archive.Recorder
	Clock    timer.Clock
	// OnChange receives the room's directory entry whenever it changes.
	OnChange func(engine.Summary)
	// OnClose runs once on the lobby goroutine after the room is destroyed.
	OnClose func(*Lobby)
}

type Lobby struct {
	code     string
	inbox    chan Msg
	room     *engine.Room
	timers   *timer.Engine[engine.Slot, engine.Ticket]
	version  int
	clients  map[string]Member
	evicted  []string
	summary  engine.Summary
	log      *zap.Logger
	recorder archive.Recorder
	onChange func(engine.Summary)
	onClose  func(*Lobby)
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewLobby creates the room with cfg.Creator as thinker and starts its loop.
func NewLobby(parent context.Context, cfg Config) (*Lobby, error) {
	ctx, cancel := context.WithCancel(parent)
	l := &Lobby{
		code:     cfg.Code,
		inbox:    make(chan Msg, 64),
		clients:  make(map[string]Member),
		log:      cfg.Logger,
		recorder: cfg.Recorder,
		onChange: cfg.OnChange,
		onClose:  cfg.OnClose,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	if l.log == nil {
		l.log = zap.NewNop()
	}
	l.log = l.log.With(zap.String("room", cfg.Code))
	if l.recorder == nil {
		l.recorder = archive.Nop{}
	}
	l.timers = timer.New(cfg.Clock, l.post)

	l.clients[cfg.Creator.ID] = cfg.Creator
	room, err := engine.NewRoom(cfg.Code, cfg.Creator.ID, cfg.Creator.Name, cfg.Rules, l.timers, fanout{l})
	if err != nil {
		cancel()
		return nil, err
	}
	l.room = room
	l.summary = room.Summary()
	l.log.Info("room created", zap.String("thinker", cfg.Creator.ID))

	go l.loop()
	return l, nil
}

func (l *Lobby) Code() string { return l.code }

// Inbox exposes the inbox so the transport and tests can post messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Done is closed once the loop has exited.
func (l *Lobby) Done() <-chan struct{} { return l.done }

// Send posts m unless the lobby has already stopped.
func (l *Lobby) Send(m Msg) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.inbox <- m:
		return true
	case <-l.done:
		return false
	}
}

// Join seats m and waits for the room's verdict.
func (l *Lobby) Join(ctx context.Context, m Member) error {
	reply := make(chan error, 1)
	if !l.Send(Join{Member: m, Reply: reply}) {
		return engine.ErrRoomClosed
	}
	return l.await(ctx, reply)
}

func (l *Lobby) Leave(ctx context.Context, connID string) error {
	reply := make(chan error, 1)
	if !l.Send(Leave{ConnID: connID, Reply: reply}) {
		return engine.ErrRoomClosed
	}
	return l.await(ctx, reply)
}

func (l *Lobby) await(ctx context.Context, reply chan error) error {
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		select {
		case err := <-reply:
			return err
		default:
			return engine.ErrRoomClosed
		}
	}
}

// post runs on the clock's goroutine.
func (l *Lobby) post(f timer.Firing[engine.Slot, engine.Ticket]) {
	select {
	case l.inbox <- TimerFired{Firing: f}:
	case <-l.ctx.Done():
	}
}

func (l *Lobby) loop() {
	defer close(l.done)
	for {
		select {
		case <-l.ctx.Done():
			l.timers.CancelAll()
			return

		case m := <-l.inbox:
			l.handle(m)
			l.settle()
			if l.room.Closed() {
				l.finish()
				return
			}
		}
	}
}

func (l *Lobby) handle(m Msg) {
	switch msg := m.(type) {
	case Join:
		err := l.join(msg.Member)
		if err != nil {
			l.log.Debug("join rejected", zap.String("conn", msg.Member.ID), zap.Error(err))
		}
		msg.Reply <- err

	case Leave:
		msg.Reply <- l.room.Leave(msg.ConnID)

	case Disconnect:
		l.room.Disconnect(msg.ConnID)

	case FromClient:
		if err := l.room.Apply(msg.ConnID, msg.Cmd); err != nil {
			l.reject(msg.ConnID, err)
		}

	case TimerFired:
		if !l.timers.Accept(msg.Firing) {
			l.log.Debug("stale timer dropped", zap.String("purpose", string(msg.Firing.Key.Purpose)))
			break
		}
		l.room.Fire(msg.Firing.Key, msg.Firing.Payload)

	case GetState:
		// test-only: reflect internal state without data races
		msg.Reply <- View{
			Version:    l.version,
			NumClients: len(l.clients),
			Armed:      l.timers.Armed(),
			State:      l.room.Snapshot(),
		}

	case Shutdown:
		l.room.Close(msg.Reason)
	}
}

func (l *Lobby) join(m Member) error {
	if _, ok := l.clients[m.ID]; ok {
		return engine.ErrAlreadyInRoom
	}
	l.clients[m.ID] = m
	if err := l.room.Join(m.ID, m.Name); err != nil {
		delete(l.clients, m.ID)
		return err
	}
	return nil
}

// settle disconnects members evicted for being slow and reports directory
// changes.
func (l *Lobby) settle() {
	for len(l.evicted) > 0 {
		id := l.evicted[0]
		l.evicted = l.evicted[1:]
		l.log.Info("dropping slow client", zap.String("conn", id))
		l.room.Disconnect(id)
	}
	if l.room.Closed() || l.onChange == nil {
		return
	}
	if s := l.room.Summary(); s != l.summary {
		l.summary = s
		l.onChange(s)
	}
}

func (l *Lobby) finish() {
	l.timers.CancelAll()
	l.log.Info("room closed")
	if l.onClose != nil {
		l.onClose(l)
	}
	l.cancel()
}

func (l *Lobby) reject(connID string, err error) {
	l.log.Debug("command rejected", zap.String("conn", connID), zap.Error(err))
	l.deliver(connID, types.Error(l.code, ErrorCode(err), err.Error()))
}

func (l *Lobby) deliver(connID string, msg types.ServerMessage) {
	m, ok := l.clients[connID]
	if !ok {
		return
	}
	select {
	case m.Outbox <- msg:
	default:
		// Client is slow/full - drop them.
		delete(l.clients, connID)
		l.evicted = append(l.evicted, connID)
		if m.Evict != nil {
			m.Evict()
		}
	}
}

func (l *Lobby) archive(p engine.RoundEndedPayload) {
	rec := archive.NewRoundRecord(p, time.Now())
	ctx, cancel := context.WithTimeout(context.WithoutCancel(l.ctx), archiveTimeout)
	go func() {
		defer cancel()
		if err := l.recorder.RecordRound(ctx, rec); err != nil {
			l.log.Warn("archiving round failed", zap.Error(err))
		}
	}()
}

// fanout is the room's engine.Notifier. It is only used from the lobby
// goroutine.
type fanout struct{ l *Lobby }

func (f fanout) Unicast(connID string, evt engine.Event, payload any) {
	l := f.l
	l.deliver(connID, types.ServerMessage{Type: string(evt), Room: l.code, Version: l.version, Payload: payload})
}

func (f fanout) Broadcast(evt engine.Event, payload any) {
	l := f.l
	l.version++
	msg := types.ServerMessage{Type: string(evt), Room: l.code, Version: l.version, Payload: payload}
	for id := range l.clients {
		l.deliver(id, msg)
	}
	if p, ok := payload.(engine.RoundEndedPayload); ok {
		l.archive(p)
	}
}

func (f fanout) Detach(connID string) { delete(f.l.clients, connID) }
