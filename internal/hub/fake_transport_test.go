package hub

import (
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type inbound struct {
	messageType int
	data        []byte
	closeCode   int
	err         error
}

type written struct {
	messageType int
	data        []byte
}

// fakeTransport is an in-memory Transport. Frames pushed with sendText and
// sendClose are returned by ReadMessage; writes are recorded.
type fakeTransport struct {
	inbox chan inbound

	mu           sync.Mutex
	writes       []written
	writeErr     error
	closeHandler func(code int, text string) error
	readLimit    int64

	closeOnce sync.Once
	closed    chan struct{}
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		inbox:  make(chan inbound, 16),
		closed: make(chan struct{}),
	}
}

func (f *fakeTransport) sendText(text string) {
	f.inbox <- inbound{messageType: websocket.TextMessage, data: []byte(text)}
}

func (f *fakeTransport) sendBinary(data []byte) {
	f.inbox <- inbound{messageType: websocket.BinaryMessage, data: data}
}

func (f *fakeTransport) sendClose(code int) {
	f.inbox <- inbound{closeCode: code}
}

func (f *fakeTransport) sendError(err error) {
	f.inbox <- inbound{err: err}
}

func (f *fakeTransport) failWrites(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeErr = err
}

func (f *fakeTransport) ReadMessage() (int, []byte, error) {
	select {
	case in := <-f.inbox:
		if in.err != nil {
			return 0, nil, in.err
		}
		if in.closeCode != 0 {
			f.mu.Lock()
			handler := f.closeHandler
			f.mu.Unlock()
			if handler != nil {
				_ = handler(in.closeCode, "")
			}
			return 0, nil, &websocket.CloseError{Code: in.closeCode}
		}
		return in.messageType, in.data, nil
	case <-f.closed:
		return 0, nil, net.ErrClosed
	}
}

func (f *fakeTransport) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.isClosed() {
		return net.ErrClosed
	}
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writes = append(f.writes, written{messageType: messageType, data: append([]byte(nil), data...)})
	return nil
}

func (f *fakeTransport) SetReadLimit(limit int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readLimit = limit
}

func (f *fakeTransport) SetReadDeadline(time.Time) error  { return nil }
func (f *fakeTransport) SetWriteDeadline(time.Time) error { return nil }
func (f *fakeTransport) SetPongHandler(func(string) error) {}

func (f *fakeTransport) SetCloseHandler(h func(code int, text string) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeHandler = h
}

func (f *fakeTransport) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeTransport) isClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}

// texts returns the text frames written so far.
func (f *fakeTransport) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []string
	for _, w := range f.writes {
		if w.messageType == websocket.TextMessage {
			out = append(out, string(w.data))
		}
	}
	return out
}

// closeFrames returns the payloads of close frames written so far.
func (f *fakeTransport) closeFrames() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out [][]byte
	for _, w := range f.writes {
		if w.messageType == websocket.CloseMessage {
			out = append(out, w.data)
		}
	}
	return out
}
