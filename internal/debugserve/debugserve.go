// Package debugserve implements the optional --debug-serve=addr live
// disassembly stream: every instruction the VM dispatches under
// --trace-exec is broadcast, as JSON, to every connected websocket
// client. Adapted from the sibling interpreter codebase's
// internal/network/websocket.go accept/upgrade/broadcast shape, trimmed
// to a single fixed endpoint instead of a general-purpose server/client.
// The language has no module system, so this stays host-side tooling
// only, never reachable from interpreted code.
package debugserve

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"sentra/internal/disasm"
	"sentra/internal/value"
)

// Server broadcasts disassembled instructions to every connected client.
type Server struct {
	addr     string
	upgrader websocket.Upgrader
	http     *http.Server

	mu      sync.RWMutex
	clients map[*websocket.Conn]struct{}
}

// Start launches the HTTP server in the background and returns
// immediately; call Close to shut it down.
func Start(addr string) *Server {
	s := &Server{
		addr:    addr,
		clients: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleUpgrade)
	s.http = &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("debugserve: %v", err)
		}
	}()

	return s
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("debugserve: upgrade failed: %v", err)
		return
	}

	s.mu.Lock()
	s.clients[conn] = struct{}{}
	s.mu.Unlock()

	go func() {
		defer s.dropClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) dropClient(conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.clients, conn)
	s.mu.Unlock()
	conn.Close()
}

// Trace matches vmcore.Options.OnTrace: it decodes the instruction about
// to run and broadcasts it to every connected client as JSON.
func (s *Server) Trace(chunk *value.Chunk, offset int) {
	ins := disasm.Decode(chunk, offset)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.clients) == 0 {
		return
	}
	payload, err := json.Marshal(ins)
	if err != nil {
		return
	}
	for conn := range s.clients {
		conn.WriteMessage(websocket.TextMessage, payload)
	}
}

func (s *Server) Close() error {
	return s.http.Close()
}
