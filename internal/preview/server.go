package preview

import (
	"context"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/quizmark/quizmark/internal/logging"
)

// Config holds preview server configuration.
type Config struct {
	Port     int
	Paths    []string
	Interval time.Duration
	Convert  ConvertFunc
}

// Server is the live preview server.
type Server struct {
	cfg     Config
	hub     *Hub
	watcher *Watcher
	http    *http.Server
}

// NewServer creates a preview server for the given configuration.
func NewServer(cfg Config) *Server {
	hub := NewHub()
	s := &Server{
		cfg:     cfg,
		hub:     hub,
		watcher: NewWatcher(hub, cfg.Convert, cfg.Paths, cfg.Interval),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/ws", s.hub.ServeWS)
	mux.HandleFunc("/quiz.xml", s.handleXML)

	s.http = &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", cfg.Port),
		Handler:           logging.CombinedMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Serve runs the hub, the watcher, and the HTTP server until the
// context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("preview server: %w", err)
	}

	done := make(chan struct{})
	go s.hub.Run(done)
	go s.watcher.Run(ctx)
	defer close(done)

	logging.ServerStartup("preview", "http", s.cfg.Port,
		"files", len(s.cfg.Paths))

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Quiz preview</title>
<style>
body { font-family: sans-serif; margin: 2rem; }
pre { background: #f4f4f4; padding: 1rem; overflow-x: auto; }
.error { color: #b00; }
.meta { color: #666; font-size: 0.85rem; }
</style>
</head>
<body>
<h1>Quiz preview</h1>
<p class="meta">Watching {{len .Paths}} file(s). Updates arrive automatically.</p>
{{range .Paths}}
<section data-path="{{.}}">
<h2>{{.}}</h2>
<p class="meta status">waiting for first conversion</p>
<pre class="xml"></pre>
</section>
{{end}}
<script>
const ws = new WebSocket("ws://" + location.host + "/ws");
ws.onmessage = (ev) => {
	for (const line of ev.data.split("\n")) {
		if (!line) continue;
		const msg = JSON.parse(line);
		const section = document.querySelector('[data-path="' + msg.path + '"]');
		if (!section) continue;
		const status = section.querySelector(".status");
		const pre = section.querySelector(".xml");
		if (msg.type === "error") {
			status.textContent = msg.message;
			status.classList.add("error");
		} else {
			status.textContent = msg.questions + " question(s), " + msg.timestamp;
			status.classList.remove("error");
			pre.textContent = msg.xml;
		}
	}
};
</script>
</body>
</html>
`))

// handleIndex serves the preview page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, struct{ Paths []string }{s.cfg.Paths}); err != nil {
		logging.Error("rendering preview page", "error", err)
	}
}

// handleXML serves the latest converted XML for one watched file,
// selected with the path query parameter. With a single watched file
// the parameter may be omitted.
func (s *Server) handleXML(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" && len(s.cfg.Paths) == 1 {
		path = s.cfg.Paths[0]
	}
	if !s.watched(path) {
		http.Error(w, "unknown file", http.StatusNotFound)
		return
	}

	data, ok := s.watcher.Latest(path)
	if !ok {
		http.Error(w, "no conversion available yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("inline; filename=%q", filepath.Base(path)+".xml"))
	w.Write(data)
}

func (s *Server) watched(path string) bool {
	for _, p := range s.cfg.Paths {
		if p == path {
			return true
		}
	}
	return false
}
