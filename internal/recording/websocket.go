package recording

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// StreamPath is the websocket endpoint served by ServeSink and Listener.
const StreamPath = "/ws"

const (
	defaultQueueSize = 256
	writeTimeout     = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1 << 12,
	WriteBufferSize: 1 << 16,
	// Viewers are local tools, not browsers on foreign origins.
	CheckOrigin: func(*http.Request) bool { return true },
}

func startServer(addr string, handler http.HandlerFunc, logger *slog.Logger) (net.Listener, *http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.HandleFunc(StreamPath, handler)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("websocket server stopped", "addr", ln.Addr().String(), "err", err)
		}
	}()
	return ln, srv, nil
}

func streamURL(ln net.Listener) string {
	return "ws://" + ln.Addr().String() + StreamPath
}

// ServeSink streams the recording to every websocket client that connects.
// Late clients first receive the header and all static messages. A client
// whose queue overflows is disconnected instead of stalling the producer.
type ServeSink struct {
	appID     string
	logger    *slog.Logger
	ln        net.Listener
	srv       *http.Server
	queueSize int

	mu      sync.Mutex
	static  [][]byte
	clients map[*subscriber]struct{}
	closed  bool
	wg      sync.WaitGroup
}

type subscriber struct {
	conn    *websocket.Conn
	queue   chan []byte
	done    chan struct{}
	once    sync.Once
	dropped atomic.Bool
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}

// drop cuts the connection at once; a write blocked on the peer fails and
// nothing left in the queue is sent.
func (s *subscriber) drop() {
	s.dropped.Store(true)
	s.stop()
	_ = s.conn.Close()
}

// Serve starts listening on addr (host:port, port 0 picks a free one).
func Serve(addr, appID string, logger *slog.Logger) (*ServeSink, error) {
	return serve(addr, appID, defaultQueueSize, logger)
}

func serve(addr, appID string, queueSize int, logger *slog.Logger) (*ServeSink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &ServeSink{
		appID:     appID,
		logger:    logger,
		queueSize: queueSize,
		clients:   make(map[*subscriber]struct{}),
	}
	ln, srv, err := startServer(addr, s.handle, logger)
	if err != nil {
		return nil, err
	}
	s.ln, s.srv = ln, srv
	return s, nil
}

// URL returns the websocket URL clients should dial.
func (s *ServeSink) URL() string {
	return streamURL(s.ln)
}

// Clients returns the number of connected clients.
func (s *ServeSink) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *ServeSink) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	sub := &subscriber{conn: conn, queue: make(chan []byte, s.queueSize), done: make(chan struct{})}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	backlog := append([][]byte(nil), s.static...)
	s.clients[sub] = struct{}{}
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.Info("viewer connected", "remote", r.RemoteAddr, "static", len(backlog))
	go func() {
		// Drain control frames; a read error means the peer went away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				sub.stop()
				return
			}
		}
	}()
	s.writeLoop(sub, backlog)
	s.logger.Info("viewer disconnected", "remote", r.RemoteAddr)
}

func (s *ServeSink) writeLoop(sub *subscriber, backlog [][]byte) {
	defer s.wg.Done()
	defer s.remove(sub)

	write := func(b []byte) bool {
		_ = sub.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		return sub.conn.WriteMessage(websocket.BinaryMessage, b) == nil
	}

	if !write(EncodeHeader(s.appID)) {
		return
	}
	for _, b := range backlog {
		if !write(b) {
			return
		}
	}
	for {
		select {
		case b := <-sub.queue:
			if !write(b) {
				return
			}
		case <-sub.done:
			if sub.dropped.Load() {
				return
			}
			// Deliver what was queued before the stop, then say goodbye.
			for {
				select {
				case b := <-sub.queue:
					if !write(b) {
						return
					}
				default:
					msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
					_ = sub.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
					return
				}
			}
		}
	}
}

func (s *ServeSink) remove(sub *subscriber) {
	s.mu.Lock()
	delete(s.clients, sub)
	s.mu.Unlock()
	sub.stop()
	_ = sub.conn.Close()
}

func (s *ServeSink) Send(msg Message) error {
	b, err := EncodeRecord(msg)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStreamClosed
	}
	if msg.Static {
		s.static = append(s.static, b)
	}
	for sub := range s.clients {
		select {
		case sub.queue <- b:
		default:
			delete(s.clients, sub)
			s.logger.Warn("dropping slow viewer", "remote", sub.conn.RemoteAddr().String())
			sub.drop()
		}
	}
	return nil
}

func (s *ServeSink) Flush() error { return nil }

// Close disconnects every client after its queue drains and stops the server.
func (s *ServeSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for sub := range s.clients {
		sub.stop()
	}
	s.mu.Unlock()

	s.wg.Wait()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

// Subscription reads a recording served by ServeSink.
type Subscription struct {
	conn  *websocket.Conn
	appID string
}

// Subscribe dials url and reads the stream header.
func Subscribe(ctx context.Context, url string) (*Subscription, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	_, head, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("read header: %w", err)
	}
	appID, err := DecodeHeader(head)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &Subscription{conn: conn, appID: appID}, nil
}

// AppID returns the application id announced by the server.
func (s *Subscription) AppID() string {
	return s.appID
}

// Next blocks for the next message; io.EOF once the server closed cleanly.
func (s *Subscription) Next() (Message, error) {
	_, b, err := s.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return Message{}, io.EOF
		}
		return Message{}, err
	}
	return DecodeRecord(b)
}

func (s *Subscription) Close() error {
	return s.conn.Close()
}

// ConnectSink pushes the recording to a remote Listener.
type ConnectSink struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

// Connect dials a Listener at url and sends the header.
func Connect(ctx context.Context, url, appID string) (*ConnectSink, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, EncodeHeader(appID)); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send header: %w", err)
	}
	return &ConnectSink{conn: conn}, nil
}

func (s *ConnectSink) Send(msg Message) error {
	b, err := EncodeRecord(msg)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStreamClosed
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteMessage(websocket.BinaryMessage, b)
}

func (s *ConnectSink) Flush() error { return nil }

func (s *ConnectSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return s.conn.Close()
}

// Listener accepts recordings pushed by ConnectSink and exposes them as a
// single message channel.
type Listener struct {
	logger   *slog.Logger
	ln       net.Listener
	srv      *http.Server
	messages chan Message
	done     chan struct{}
	once     sync.Once

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// Listen starts accepting pushed recordings on addr.
func Listen(addr string, logger *slog.Logger) (*Listener, error) {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Listener{
		logger:   logger,
		messages: make(chan Message, 64),
		done:     make(chan struct{}),
		conns:    make(map[*websocket.Conn]struct{}),
	}
	ln, srv, err := startServer(addr, l.handle, logger)
	if err != nil {
		return nil, err
	}
	l.ln, l.srv = ln, srv
	return l, nil
}

// URL returns the websocket URL producers should connect to.
func (l *Listener) URL() string {
	return streamURL(l.ln)
}

// Messages delivers decoded messages from every connected producer.
func (l *Listener) Messages() <-chan Message {
	return l.messages
}

// Done is closed by Close.
func (l *Listener) Done() <-chan struct{} {
	return l.done
}

func (l *Listener) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	l.mu.Lock()
	select {
	case <-l.done:
		l.mu.Unlock()
		_ = conn.Close()
		return
	default:
	}
	l.conns[conn] = struct{}{}
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		delete(l.conns, conn)
		l.mu.Unlock()
		_ = conn.Close()
	}()

	_, head, err := conn.ReadMessage()
	if err != nil {
		return
	}
	appID, err := DecodeHeader(head)
	if err != nil {
		l.logger.Warn("rejecting producer", "remote", r.RemoteAddr, "err", err)
		return
	}
	l.logger.Info("producer connected", "remote", r.RemoteAddr, "app", appID)

	for {
		_, b, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				l.logger.Warn("producer read failed", "remote", r.RemoteAddr, "err", err)
			}
			return
		}
		msg, err := DecodeRecord(b)
		if err != nil {
			l.logger.Warn("dropping bad record", "remote", r.RemoteAddr, "err", err)
			continue
		}
		select {
		case l.messages <- msg:
		case <-l.done:
			return
		}
	}
}

// Close stops the server and disconnects producers.
func (l *Listener) Close() error {
	l.once.Do(func() { close(l.done) })
	l.mu.Lock()
	for c := range l.conns {
		_ = c.Close()
	}
	l.mu.Unlock()
	return l.srv.Close()
}
