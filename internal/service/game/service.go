package game

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	appErr "toppan-service/pkg/errors"
	"toppan-service/pkg/logger"
	"toppan-service/pkg/utils/random"

	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

// Recorder persists settled rounds.
type Recorder interface {
	Record(ctx context.Context, rec RoundRecord) error
}

// Directory publishes open rooms for the lobby.
type Directory interface {
	Upsert(ctx context.Context, summary Summary) error
	Remove(ctx context.Context, roomID string) error
}

const (
	backgroundTimeout = 5 * time.Second
	directoryBuffer   = 256
)

type session struct {
	roomID string
	outbox chan<- OutgoingMessage
}

// Service is the process-wide room registry. mu guards rooms and sessions
// only; it is never held while a room lock is taken.
type Service struct {
	settings  Settings
	shuffle   Shuffler
	recorder  Recorder
	directory Directory
	newRoomID func() string

	mu       sync.Mutex
	rooms    map[string]*Room
	sessions map[string]*session

	tasks conc.WaitGroup

	// dirMu orders sends on dirEvents against Close.
	dirMu     sync.RWMutex
	dirClosed bool
	dirEvents chan string
}

type Option func(*Service)

func WithSettings(settings Settings) Option {
	return func(s *Service) { s.settings = settings.withDefaults() }
}

func WithShuffler(shuffle Shuffler) Option {
	return func(s *Service) { s.shuffle = shuffle }
}

func WithRecorder(recorder Recorder) Option {
	return func(s *Service) { s.recorder = recorder }
}

func WithDirectory(directory Directory) Option {
	return func(s *Service) { s.directory = directory }
}

func WithRoomIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newRoomID = gen }
}

func NewService(opts ...Option) *Service {
	s := &Service{
		settings:  DefaultSettings(),
		shuffle:   RandomShuffler,
		newRoomID: random.RoomID,
		rooms:     make(map[string]*Room),
		sessions:  make(map[string]*session),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.directory != nil {
		s.dirEvents = make(chan string, directoryBuffer)
		s.tasks.Go(s.syncDirectoryLoop)
	}
	return s
}

// Attach registers the outbound channel of a connected session. A session
// already seated is resubscribed to its room and sent a fresh snapshot.
func (s *Service) Attach(sid string, outbox chan<- OutgoingMessage) {
	s.mu.Lock()
	sess, ok := s.sessions[sid]
	if !ok {
		sess = &session{}
		s.sessions[sid] = sess
	}
	sess.outbox = outbox
	room := s.rooms[sess.roomID]
	s.mu.Unlock()

	if room != nil {
		room.resubscribe(sid, outbox)
	}
}

// Detach drops the session and its seat, unless outbox has since been
// replaced by a newer connection of the same session.
func (s *Service) Detach(sid string, outbox chan<- OutgoingMessage) {
	s.mu.Lock()
	sess, ok := s.sessions[sid]
	if !ok || sess.outbox != outbox {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.Leave(sid)

	s.mu.Lock()
	if cur, ok := s.sessions[sid]; ok && cur.outbox == outbox {
		delete(s.sessions, sid)
	}
	s.mu.Unlock()
}

// CreateRoom registers an empty room under a fresh id, first disposing rooms
// that stayed empty past EmptyRoomTTL.
func (s *Service) CreateRoom() *Room {
	s.sweepEmptyRooms(time.Now().Add(-s.settings.EmptyRoomTTL))

	s.mu.Lock()
	var id string
	for {
		id = s.newRoomID()
		if _, exists := s.rooms[id]; !exists {
			break
		}
	}
	room := newRoom(id, s.settings, s.shuffle)
	room.onSettled = s.recordAsync
	s.rooms[id] = room
	s.mu.Unlock()

	logger.Log.Info("room created", zap.String("roomID", id))
	s.publish(room)
	return room
}

func (s *Service) Room(id string) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[strings.ToUpper(strings.TrimSpace(id))]
	return room, ok
}

// Rooms lists every registered room.
func (s *Service) Rooms() []Summary {
	s.mu.Lock()
	rooms := make([]*Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		rooms = append(rooms, room)
	}
	s.mu.Unlock()

	out := make([]Summary, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, room.Summary())
	}
	sortSummaries(out)
	return out
}

// RoomOf returns the room sid is seated in.
func (s *Service) RoomOf(sid string) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sid]
	if !ok || sess.roomID == "" {
		return nil, false
	}
	room, ok := s.rooms[sess.roomID]
	return room, ok
}

type createPayload struct {
	Name string `json:"name"`
}

type joinPayload struct {
	RoomID string `json:"room_id"`
	Name   string `json:"name"`
}

// JoinResult acknowledges create_room and join_room.
type JoinResult struct {
	RoomID string `json:"room_id"`
}

// Handle routes one inbound action for sid.
func (s *Service) Handle(sid, action string, data json.RawMessage) (interface{}, error) {
	switch action {
	case ActionCreateRoom:
		var payload createPayload
		if err := decodePayload(data, &payload); err != nil {
			return nil, err
		}
		return s.Create(sid, payload.Name)
	case ActionJoinRoom:
		var payload joinPayload
		if err := decodePayload(data, &payload); err != nil {
			return nil, err
		}
		if strings.TrimSpace(payload.RoomID) == "" {
			return nil, appErr.ErrRoomNotFound
		}
		return s.Join(sid, payload.RoomID, payload.Name)
	case ActionLeaveRoom:
		s.Leave(sid)
		return nil, nil
	}

	room, ok := s.RoomOf(sid)
	if !ok {
		return nil, appErr.ErrNotInRoom
	}
	result, err := room.HandleAction(sid, action, data)
	if err == nil {
		s.publish(room)
	}
	return result, err
}

// Create opens a room and seats sid as its host.
func (s *Service) Create(sid, name string) (JoinResult, error) {
	if room, ok := s.RoomOf(sid); ok {
		return JoinResult{}, alreadySeated(room.ID())
	}
	room := s.CreateRoom()
	res, err := s.Join(sid, room.ID(), name)
	if err != nil && room.closeIfEmpty(time.Now()) {
		s.dispose(room)
	}
	return res, err
}

// Join seats sid in roomID.
func (s *Service) Join(sid, roomID, name string) (JoinResult, error) {
	roomID = strings.ToUpper(strings.TrimSpace(roomID))

	s.mu.Lock()
	sess, ok := s.sessions[sid]
	if !ok {
		sess = &session{}
		s.sessions[sid] = sess
	}
	if sess.roomID != "" && sess.roomID != roomID {
		current := sess.roomID
		s.mu.Unlock()
		return JoinResult{}, alreadySeated(current)
	}
	room, exists := s.rooms[roomID]
	if !exists {
		s.mu.Unlock()
		return JoinResult{}, appErr.ErrRoomNotFound
	}
	// Reserve the room so a concurrent join by the same session is rejected.
	reserved := sess.roomID == ""
	sess.roomID = roomID
	outbox := sess.outbox
	s.mu.Unlock()

	if err := room.join(sid, defaultName(name, sid), outbox); err != nil {
		if reserved {
			s.mu.Lock()
			if sess.roomID == roomID {
				sess.roomID = ""
			}
			s.mu.Unlock()
		}
		return JoinResult{}, err
	}

	s.mu.Lock()
	left := sess.roomID != roomID
	s.mu.Unlock()
	if left {
		// A concurrent leave cleared the reservation.
		if room.leave(sid) {
			s.dispose(room)
		} else {
			s.publish(room)
		}
		return JoinResult{}, appErr.ErrNotInRoom
	}

	s.publish(room)
	return JoinResult{RoomID: roomID}, nil
}

// Leave frees sid's seat; the last player out disposes the room.
func (s *Service) Leave(sid string) {
	s.mu.Lock()
	sess, ok := s.sessions[sid]
	if !ok || sess.roomID == "" {
		s.mu.Unlock()
		return
	}
	roomID := sess.roomID
	sess.roomID = ""
	room, exists := s.rooms[roomID]
	s.mu.Unlock()
	if !exists {
		return
	}

	if !room.leave(sid) {
		s.publish(room)
		return
	}
	s.dispose(room)
}

// dispose unregisters a closed room.
func (s *Service) dispose(room *Room) {
	s.mu.Lock()
	if s.rooms[room.ID()] == room {
		delete(s.rooms, room.ID())
	}
	s.mu.Unlock()

	logger.Log.Info("room destroyed", zap.String("roomID", room.ID()))
	s.publish(room)
}

// sweepEmptyRooms disposes rooms created at or before cutoff that nobody is
// seated in.
func (s *Service) sweepEmptyRooms(cutoff time.Time) {
	s.mu.Lock()
	rooms := make([]*Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		rooms = append(rooms, room)
	}
	s.mu.Unlock()

	for _, room := range rooms {
		if room.closeIfEmpty(cutoff) {
			s.dispose(room)
		}
	}
}

// Close disposes every room, withdraws them from the directory and waits for
// pending background writes.
func (s *Service) Close() {
	s.mu.Lock()
	rooms := make([]*Room, 0, len(s.rooms))
	for id, room := range s.rooms {
		rooms = append(rooms, room)
		delete(s.rooms, id)
	}
	s.mu.Unlock()

	for _, room := range rooms {
		room.close()
		s.publish(room)
	}

	s.dirMu.Lock()
	if s.dirEvents != nil && !s.dirClosed {
		s.dirClosed = true
		close(s.dirEvents)
	}
	s.dirMu.Unlock()

	s.tasks.Wait()
}

func (s *Service) recordAsync(rec RoundRecord) {
	if s.recorder == nil {
		return
	}
	s.tasks.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
		defer cancel()
		if err := s.recorder.Record(ctx, rec); err != nil {
			logger.Log.Warn("round record failed",
				zap.String("roomID", rec.RoomID),
				zap.Int("round", rec.RoundNo),
				zap.Error(err),
			)
		}
	})
}

// publish queues a directory refresh for room. The worker reads the room's
// state when it runs, so out-of-order callers still converge.
func (s *Service) publish(room *Room) {
	if s.dirEvents == nil {
		return
	}
	s.dirMu.RLock()
	defer s.dirMu.RUnlock()
	if s.dirClosed {
		return
	}
	s.dirEvents <- room.ID()
}

func (s *Service) syncDirectoryLoop() {
	for roomID := range s.dirEvents {
		s.syncDirectory(roomID)
	}
}

func (s *Service) syncDirectory(roomID string) {
	ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
	defer cancel()

	if room, ok := s.Room(roomID); ok {
		if err := s.directory.Upsert(ctx, room.Summary()); err != nil {
			logger.Log.Warn("directory upsert failed", zap.String("roomID", roomID), zap.Error(err))
		}
		return
	}
	if err := s.directory.Remove(ctx, roomID); err != nil {
		logger.Log.Warn("directory remove failed", zap.String("roomID", roomID), zap.Error(err))
	}
}

func alreadySeated(roomID string) error {
	return &seatedError{roomID: roomID}
}

type seatedError struct {
	roomID string
}

func (e *seatedError) Error() string {
	return appErr.ErrAlreadyInRoom.Error() + ": " + e.roomID
}

func (e *seatedError) Unwrap() error {
	return appErr.ErrAlreadyInRoom
}

func defaultName(name, sid string) string {
	name = strings.TrimSpace(name)
	if name != "" {
		return name
	}
	short := sid
	if len(short) > 4 {
		short = short[:4]
	}
	return "Player-" + short
}
