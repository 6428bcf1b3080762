package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Tyrowin/potatoserver/internal/hub"
	"github.com/Tyrowin/potatoserver/internal/metrics"
)

const (
	healthMessage = "PotatoServer is running!"
	helloMessage  = "Hello from Web API!"
)

// handleWebSocket upgrades the request and serves the connection on this
// goroutine until it closes. Requests that are not WebSocket upgrades get 400
// and never reach the hub.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		metrics.UpgradeRejectionsTotal.WithLabelValues("not_websocket").Inc()
		http.Error(w, "Bad Request: this endpoint only accepts WebSocket upgrades.", http.StatusBadRequest)
		return
	}

	if s.hub.Closed() {
		metrics.UpgradeRejectionsTotal.WithLabelValues("shutting_down").Inc()
		http.Error(w, "Server is shutting down.", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written the error response.
		metrics.UpgradeRejectionsTotal.WithLabelValues("upgrade_failed").Inc()
		s.log.Info("WebSocket upgrade failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}

	if err := s.hub.Serve(conn, r.RemoteAddr); err != nil && !errors.Is(err, hub.ErrClosed) {
		s.log.Warn("WebSocket connection ended with error", zap.String("remote", r.RemoteAddr), zap.Error(err))
	}
}

// HealthHandler responds with a plain text message indicating the server is running.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = fmt.Fprint(w, healthMessage)
}

// HelloHandler is the sample API controller endpoint.
func HelloHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = fmt.Fprint(w, helloMessage)
}

// TestPageHandler serves a minimal HTML client for the /ws endpoint.
func TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = fmt.Fprint(w, testPageHTML)
}

const testPageHTML = `<!DOCTYPE html>
<html>
<head>
    <title>PotatoServer WebSocket Test</title>
    <style>
        body { font-family: sans-serif; margin: 20px; }
        #log { border: 1px solid #ccc; height: 300px; padding: 8px; overflow-y: auto; margin: 10px 0; }
        .status-open { color: #155724; }
        .status-closed { color: #721c24; }
    </style>
</head>
<body>
    <h1>PotatoServer WebSocket Test</h1>
    <div id="status" class="status-closed">Disconnected</div>
    <div>
        <input type="text" id="input" placeholder="Type a message..." disabled>
        <button id="send" disabled>Send</button>
        <button id="toggle">Connect</button>
    </div>
    <div id="log"></div>

    <script>
        let ws = null;
        const log = document.getElementById('log');
        const input = document.getElementById('input');
        const send = document.getElementById('send');
        const toggle = document.getElementById('toggle');
        const status = document.getElementById('status');

        function append(text, color) {
            const line = document.createElement('div');
            line.textContent = text;
            line.style.color = color || 'black';
            log.appendChild(line);
            log.scrollTop = log.scrollHeight;
        }

        function setOpen(open) {
            status.textContent = open ? 'Connected' : 'Disconnected';
            status.className = open ? 'status-open' : 'status-closed';
            input.disabled = !open;
            send.disabled = !open;
            toggle.textContent = open ? 'Disconnect' : 'Connect';
        }

        toggle.onclick = function() {
            if (ws && ws.readyState === WebSocket.OPEN) {
                ws.close();
                return;
            }
            const scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
            ws = new WebSocket(scheme + location.host + '/ws');
            ws.onopen = function() { append('connected', 'gray'); setOpen(true); };
            ws.onmessage = function(event) { append(event.data, 'green'); };
            ws.onclose = function(event) { append('closed (' + event.code + ')', 'gray'); setOpen(false); ws = null; };
            ws.onerror = function() { append('connection error', 'red'); };
        };

        send.onclick = function() {
            const text = input.value.trim();
            if (text && ws && ws.readyState === WebSocket.OPEN) {
                ws.send(text);
                input.value = '';
            }
        };

        input.addEventListener('keypress', function(e) {
            if (e.key === 'Enter') {
                send.onclick();
            }
        });
    </script>
</body>
</html>`
