package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/GriffinCanCode/confirmscout/internal/activity"
	apperrors "github.com/GriffinCanCode/confirmscout/internal/errors"
	"github.com/GriffinCanCode/confirmscout/internal/monitor"
	"github.com/GriffinCanCode/confirmscout/internal/target"
	"github.com/GriffinCanCode/confirmscout/internal/trace"
)

// Monitor is the session the server drives.
type Monitor interface {
	Status() monitor.Status
	Windows() ([]target.Target, error)
	SelectTarget(t target.Target) error
	Start(ctx context.Context) error
	Stop()
	Click(ctx context.Context) (monitor.Detection, error)
	ScrollSearch(ctx context.Context) error
	CancelScroll() bool
	Events() <-chan monitor.Event
	Activity() *activity.Log
}

// Options tune the server.
type Options struct {
	RateLimit  int
	RateWindow time.Duration
}

type client struct {
	conn    *websocket.Conn
	out     chan any
	limiter *rateLimiter
}

// Server handles HTTP and WebSocket connections.
type Server struct {
	ctx  context.Context
	mon  Monitor
	opts Options

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// New creates a server and starts fanning monitor events out to websocket
// clients. ctx bounds the server's lifetime; sessions and scroll searches
// started through it run under ctx, not under the request.
func New(ctx context.Context, mon Monitor, opts Options) *Server {
	s := &Server{
		ctx:     ctx,
		mon:     mon,
		opts:    opts,
		clients: make(map[*client]struct{}),
	}
	go s.broadcast(ctx)
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.handleWebSocket)

	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/windows", s.handleWindows)
	mux.HandleFunc("POST /api/target", s.handleTarget)
	mux.HandleFunc("POST /api/monitor/start", s.handleStart)
	mux.HandleFunc("POST /api/monitor/stop", s.handleStop)
	mux.HandleFunc("POST /api/click", s.handleClick)
	mux.HandleFunc("POST /api/scroll", s.handleScroll)
	mux.HandleFunc("POST /api/scroll/cancel", s.handleScrollCancel)
	mux.HandleFunc("GET /api/activity", s.handleActivity)

	return trace.Middleware(localOnly(mux))
}

// Close disconnects every websocket client.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		_ = c.conn.Close(websocket.StatusGoingAway, "server shutting down")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperrors.CodeOf(err)
	if code == apperrors.Unknown {
		code = apperrors.Internal
	}
	body := ErrorBody{Error: ErrorDetail{Code: code.String(), Message: apperrors.MessageOf(err)}}
	if tc, ok := trace.FromContext(r.Context()); ok {
		body.TraceID = tc.TraceID
	}
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		trace.Logger(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, body)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.mon.Status())
}

func (s *Server) handleWindows(w http.ResponseWriter, r *http.Request) {
	list, err := s.mon.Windows()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []target.Target{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleTarget(w http.ResponseWriter, r *http.Request) {
	var t target.Target
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&t); err != nil {
		writeError(w, r, apperrors.Wrap(err, apperrors.InvalidArgument, "decode target"))
		return
	}
	if err := s.mon.SelectTarget(t); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.mon.Status())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := s.mon.Start(s.sessionContext(r)); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.mon.Status())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.mon.Stop()
	writeJSON(w, http.StatusOK, s.mon.Status())
}

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	det, err := s.mon.Click(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, det)
}

func (s *Server) handleScroll(w http.ResponseWriter, r *http.Request) {
	if err := s.mon.ScrollSearch(s.sessionContext(r)); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "scrolling"})
}

func (s *Server) handleScrollCancel(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": s.mon.CancelScroll()})
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	n := DefaultActivityLimit
	if v := q.Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			writeError(w, r, apperrors.Newf(apperrors.InvalidArgument, "invalid n %q", v))
			return
		}
		n = parsed
	}
	feed := s.mon.Activity()

	if q.Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		text := feed.Text(n)
		if text != "" {
			text += "\n"
		}
		_, _ = io.WriteString(w, text)
		return
	}

	var entries []activity.Entry
	if v := q.Get("since"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			writeError(w, r, apperrors.Newf(apperrors.InvalidArgument, "invalid since %q", v))
			return
		}
		entries = feed.Since(d)
		if len(entries) > n {
			entries = entries[len(entries)-n:]
		}
	} else {
		entries = feed.Recent(n)
	}
	if entries == nil {
		entries = []activity.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// sessionContext carries the request's trace into the long-lived server ctx.
func (s *Server) sessionContext(r *http.Request) context.Context {
	if tc, ok := trace.FromContext(r.Context()); ok {
		return trace.WithContext(s.ctx, tc)
	}
	return s.ctx
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"localhost:*", "127.0.0.1:*"},
	})
	if err != nil {
		slog.Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	ctx := r.Context()
	log := trace.Logger(ctx)

	c := &client{
		conn:    conn,
		out:     make(chan any, clientBuffer),
		limiter: newRateLimiter(s.opts.RateLimit, s.opts.RateWindow),
	}
	c.out <- HelloMessage{Type: "hello", Status: s.mon.Status(), Activity: s.mon.Activity().Recent(helloActivity)}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	log.Info("websocket connected", "remote", r.RemoteAddr, "clients", s.Clients())

	writerDone := make(chan struct{})
	go s.writeLoop(ctx, c, writerDone)

	defer func() {
		s.mu.Lock()
		delete(s.clients, c)
		close(c.out)
		s.mu.Unlock()
		<-writerDone
		log.Info("websocket disconnected", "remote", r.RemoteAddr, "clients", s.Clients())
	}()

	for {
		var msg json.RawMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
				log.Debug("websocket read error", "error", err)
			}
			return
		}

		if !c.limiter.allow() {
			log.Warn("rate limit exceeded", "remote", r.RemoteAddr)
			send(c, ErrorMessage{Type: "error", Code: apperrors.Busy.String(), Message: "rate limit exceeded"})
			continue
		}
		s.handleCommand(ctx, c, msg)
	}
}

func (s *Server) writeLoop(ctx context.Context, c *client, done chan struct{}) {
	defer close(done)
	for msg := range c.out {
		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		err := wsjson.Write(wctx, c.conn, msg)
		cancel()
		if err != nil {
			// Drain so senders never block on a dead client.
			for range c.out {
			}
			return
		}
	}
}

// send queues msg without blocking; a client that cannot keep up misses it.
func send(c *client, msg any) {
	select {
	case c.out <- msg:
	default:
	}
}

func (s *Server) handleCommand(ctx context.Context, c *client, data []byte) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		send(c, ErrorMessage{Type: "error", Code: apperrors.InvalidArgument.String(), Message: "malformed command"})
		return
	}

	tc, _ := trace.FromMessage(data)
	ctx = trace.WithContext(ctx, tc)
	ctx, span := trace.StartSpan(ctx, "ws_command")
	defer span.End()
	span.SetAttr("command", cmd.Type)

	session := trace.WithContext(s.ctx, tc)

	var err error
	switch cmd.Type {
	case CmdClick:
		var det monitor.Detection
		if det, err = s.mon.Click(ctx); err == nil {
			send(c, ClickedMessage{Type: "clicked", Detection: det})
			return
		}
	case CmdScroll:
		err = s.mon.ScrollSearch(session)
	case CmdCancel:
		s.mon.CancelScroll()
	case CmdStart:
		err = s.mon.Start(session)
	case CmdStop:
		s.mon.Stop()
	case CmdStatus:
		send(c, StatusMessage{Type: "status", Status: s.mon.Status()})
		return
	default:
		err = apperrors.Newf(apperrors.InvalidArgument, "unknown command %q", cmd.Type)
	}

	if err != nil {
		span.SetAttr("error", err.Error())
		send(c, ErrorMessage{
			Type:    "error",
			Command: cmd.Type,
			Code:    apperrors.CodeOf(err).String(),
			Message: apperrors.MessageOf(err),
		})
		return
	}
	send(c, AckMessage{Type: "ack", Command: cmd.Type})
}

// broadcast fans monitor events and activity lines out to every client.
func (s *Server) broadcast(ctx context.Context) {
	events := s.mon.Events()
	lines := s.mon.Activity().Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.fanout(ev)
		case e, ok := <-lines:
			if !ok {
				return
			}
			s.fanout(ActivityMessage{Type: "activity", Entry: e})
		}
	}
}

func (s *Server) fanout(msg any) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.clients {
		send(c, msg)
	}
}

// Clients returns the number of connected websocket clients.
func (s *Server) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}
