package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/w1xm/dish_interface/config"
	"github.com/w1xm/dish_interface/device"
	"github.com/w1xm/dish_interface/logbuf"
	"github.com/w1xm/dish_interface/skyplane"
	"github.com/w1xm/dish_interface/telemetry"
)

// Log commands are handled by the dashboard itself and never reach the
// device.
const (
	cmdPauseLogs  = "pause_logs"
	cmdResumeLogs = "resume_logs"
	cmdClearLogs  = "clear_logs"
)

// Update is one message to a browser. Logs is only sent when the text
// changed since the client's last update, and Alert only once per alert.
type Update struct {
	Skyplane   string            `json:"skyplane,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
	Logs       *LogsUpdate       `json:"logs,omitempty"`
	LogsPaused bool              `json:"logs_paused"`
	Stats      telemetry.Stats   `json:"stats"`
	Alert      string            `json:"alert,omitempty"`
	AlertID    uint64            `json:"alert_id,omitempty"`
	Confirm    *Confirm          `json:"confirm,omitempty"`
	Error      string            `json:"error,omitempty"`
}

type LogsUpdate struct {
	Text       string `json:"text"`
	HasContent bool   `json:"has_content"`
}

// Confirm asks the browser to show Prompt and, if accepted, resend Command
// with confirmed set.
type Confirm struct {
	Command device.Command `json:"command"`
	Prompt  string         `json:"prompt"`
}

type Server struct {
	d      *device.Dispatcher
	logs   *logbuf.Buffer
	listen string
	static string

	// Only touched by Plot, on the poll goroutine.
	svg      *skyplane.SVG
	renderer *skyplane.Renderer

	mu          sync.RWMutex
	cond        *sync.Cond
	version     uint64
	skyplane    string
	fields      map[string]string
	raw         map[string]string
	logText     string
	hasLogs     bool
	logsVersion uint64
	paused      bool
	stats       telemetry.Stats
	alert       string
	alertID     uint64
}

var _ frontend = (*Server)(nil)

func NewServer(d *device.Dispatcher, srv config.ServerConfig, sky config.SkyplaneConfig) *Server {
	svg := skyplane.NewSVG(sky.Width, sky.Height)
	s := &Server{
		d:        d,
		listen:   srv.Listen,
		static:   srv.StaticDir,
		svg:      svg,
		renderer: skyplane.NewRendererWithMargin(svg, sky.Margin),
		version:  1,
		fields:   map[string]string{},
		raw:      map[string]string{},
	}
	s.cond = sync.NewCond(s.mu.RLocker())
	return s
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// update changes state under the lock and wakes every websocket.
func (s *Server) update(f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f()
	s.version++
	s.cond.Broadcast()
}

// SetField records a field without waking anyone; Applied follows.
func (s *Server) SetField(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fields[name] = value
}

func (s *Server) Plot(f skyplane.Frame) {
	s.renderer.Draw(f)
	svg := s.svg.String()
	s.update(func() { s.skyplane = svg })
}

func (s *Server) SetContent(text string, hasContent bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if text == s.logText && hasContent == s.hasLogs {
		return
	}
	s.logText, s.hasLogs = text, hasContent
	s.logsVersion++
	s.version++
	s.cond.Broadcast()
}

// ScrollToEnd is up to the browser, which scrolls on every new text.
func (s *Server) ScrollToEnd() {}

func (s *Server) Applied(snap *telemetry.Snapshot, stats telemetry.Stats) {
	raw := make(map[string]string)
	for _, name := range snap.Fields() {
		raw[name], _ = snap.Field(name)
	}
	s.update(func() {
		s.raw = raw
		s.stats = stats
	})
}

func (s *Server) Alert(msg string) {
	s.update(func() {
		s.alert = msg
		s.alertID++
	})
}

func (s *Server) setPaused(paused bool) {
	s.logs.SetPaused(paused)
	s.update(func() { s.paused = paused })
}

// StatusHandler serves the last snapshot's fields as the device sent them.
func (s *Server) StatusHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	data, err := json.Marshal(s.raw)
	s.mu.RUnlock()
	if err != nil {
		log.Print(err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// handleCommand runs one browser command and returns the reply for that
// browser alone, if any.
func (s *Server) handleCommand(cmd device.Command) *Update {
	switch cmd.Command {
	case cmdPauseLogs:
		s.setPaused(true)
		return nil
	case cmdResumeLogs:
		s.setPaused(false)
		return nil
	case cmdClearLogs:
		s.logs.Clear()
		return nil
	}
	if prompt := device.Prompt(cmd.Command); prompt != "" && !cmd.Confirmed {
		return &Update{Confirm: &Confirm{Command: cmd, Prompt: prompt}}
	}
	if err := s.d.Dispatch(cmd); err != nil {
		log.Printf("command %q: %v", cmd.Command, err)
		return &Update{Error: err.Error()}
	}
	return nil
}

type cursor struct {
	version, logs, alert uint64
}

// next waits for state newer than cur and returns it as an update. It
// returns false once ctx is done.
func (s *Server) next(ctx context.Context, cur *cursor) (*Update, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for s.version == cur.version && ctx.Err() == nil {
		s.cond.Wait()
	}
	if ctx.Err() != nil {
		return nil, false
	}
	cur.version = s.version
	u := &Update{
		Skyplane:   s.skyplane,
		Fields:     make(map[string]string, len(s.fields)),
		LogsPaused: s.paused,
		Stats:      s.stats,
	}
	for k, v := range s.fields {
		u.Fields[k] = v
	}
	if cur.logs != s.logsVersion {
		cur.logs = s.logsVersion
		u.Logs = &LogsUpdate{Text: s.logText, HasContent: s.hasLogs}
	}
	if cur.alert != s.alertID {
		cur.alert = s.alertID
		u.Alert, u.AlertID = s.alert, s.alertID
	}
	return u, true
}

type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) send(u *Update) error {
	data, err := json.Marshal(u)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *Server) StatusSocketHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}
	defer conn.Close()
	c := &wsConn{conn: conn}

	// Read and process incoming messages
	go func() {
		defer cancel()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var cmd device.Command
			var reply *Update
			if err := json.Unmarshal(data, &cmd); err != nil {
				reply = &Update{Error: err.Error()}
			} else {
				reply = s.handleCommand(cmd)
			}
			if reply == nil {
				continue
			}
			if err := c.send(reply); err != nil {
				log.Print(err)
				return
			}
		}
	}()

	stop := context.AfterFunc(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.cond.Broadcast()
	})
	defer stop()

	s.mu.RLock()
	cur := cursor{alert: s.alertID}
	s.mu.RUnlock()
	for {
		u, ok := s.next(ctx, &cur)
		if !ok {
			return
		}
		if err := c.send(u); err != nil {
			log.Print(err)
			return
		}
	}
}

func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/status", s.StatusHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/ws", s.StatusSocketHandler)
	r.PathPrefix("/").Handler(http.FileServer(http.Dir(s.static)))
	return r
}

// Run serves the dashboard until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Handler:      s.Router(),
		Addr:         s.listen,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}
	go func() {
		<-ctx.Done()
		log.Print("shutdown; closing web server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	log.Printf("serving dashboard on %s", s.listen)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}
