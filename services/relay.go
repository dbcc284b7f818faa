package services

import (
	"main/utils"
	"sync"

	"github.com/google/uuid"
	"github.com/mileusna/useragent"
)

// Message is the typed envelope fanned out to connected clients. Event names
// mirror the client protocol: session:sync, time:tick, dashboard:stats-update,
// user:status-change.
type Message struct {
	Event        string  `json:"event"`
	Type         string  `json:"type,omitempty"` // start | stop | sync
	UserID       string  `json:"user_id,omitempty"`
	SessionID    string  `json:"session_id,omitempty"`
	ProjectID    string  `json:"project_id,omitempty"`
	Task         string  `json:"task,omitempty"`
	Seconds      int64   `json:"seconds,omitempty"`
	Duration     int64   `json:"duration,omitempty"`
	Productivity float64 `json:"productivity,omitempty"`
	Status       string  `json:"status,omitempty"` // active | inactive
}

const (
	EventSessionSync  = "session:sync"
	EventTimeTick     = "time:tick"
	EventStatsUpdate  = "dashboard:stats-update"
	EventStatusChange = "user:status-change"
)

// Connection is one live subscriber. Out is its private buffered channel;
// the relay never blocks on it — a full buffer means the message is dropped
// and the client reconverges by polling.
type Connection struct {
	ID         string
	UserID     string
	DeviceInfo string
	Observer   bool
	Out        chan Message
}

// Relay is the in-memory fan-out registry mapping users to their live
// connections. It holds nothing durable: the registry is rebuilt as clients
// reconnect and loses nothing of record on restart.
type Relay struct {
	mu        sync.RWMutex
	conns     map[string]map[string]*Connection // userID -> connID -> conn
	observers map[string]*Connection
	bufSize   int
}

func NewRelay(bufSize int) *Relay {
	if bufSize < 1 {
		bufSize = 16
	}
	return &Relay{
		conns:     make(map[string]map[string]*Connection),
		observers: make(map[string]*Connection),
		bufSize:   bufSize,
	}
}

// Register adds a connection for a user. The raw User-Agent header is parsed
// into a short device description for admin views.
func (r *Relay) Register(userID, userAgent string, observer bool) *Connection {
	ua := useragent.Parse(userAgent)
	device := ua.Name
	if ua.OS != "" {
		device = ua.Name + " on " + ua.OS
	}

	conn := &Connection{
		ID:         uuid.New().String(),
		UserID:     userID,
		DeviceInfo: device,
		Observer:   observer,
		Out:        make(chan Message, r.bufSize),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if observer {
		r.observers[conn.ID] = conn
		return conn
	}

	if r.conns[userID] == nil {
		r.conns[userID] = make(map[string]*Connection)
	}
	r.conns[userID][conn.ID] = conn
	return conn
}

// Unregister removes a connection and closes its outbound channel. Safe to
// call once per connection, on disconnect.
func (r *Relay) Unregister(conn *Connection) {
	if conn == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if conn.Observer {
		if _, ok := r.observers[conn.ID]; !ok {
			return
		}
		delete(r.observers, conn.ID)
		close(conn.Out)
		return
	}

	userConns, ok := r.conns[conn.UserID]
	if !ok {
		return
	}
	if _, ok := userConns[conn.ID]; !ok {
		return
	}
	delete(userConns, conn.ID)
	if len(userConns) == 0 {
		delete(r.conns, conn.UserID)
	}
	close(conn.Out)
}

// PublishToUser delivers a message to every live connection of one user
// (cross-tab sync). Delivery is best effort, at most once per connection.
func (r *Relay) PublishToUser(userID string, msg Message) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	utils.RelayMessages.WithLabelValues(msg.Event).Inc()
	for _, conn := range r.conns[userID] {
		r.send(conn, msg)
	}
}

// PublishToObservers delivers a message to every observer connection
// (dashboards watching aggregate productivity).
func (r *Relay) PublishToObservers(msg Message) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	utils.RelayMessages.WithLabelValues(msg.Event).Inc()
	for _, conn := range r.observers {
		r.send(conn, msg)
	}
}

func (r *Relay) send(conn *Connection, msg Message) {
	select {
	case conn.Out <- msg:
	default:
		// Slow consumer; drop rather than block the publisher.
		utils.RelayDropped.Inc()
	}
}

// ConnectionCount reports live connections for a user
func (r *Relay) ConnectionCount(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[userID])
}

// ObserverCount reports live observer connections
func (r *Relay) ObserverCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.observers)
}
