package domain

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncBuffer is a bytes.Buffer safe for one writer and concurrent readers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	text := strings.TrimSpace(b.buf.String())
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func receiveRequest(t *testing.T, ch <-chan *Request) *Request {
	t.Helper()
	select {
	case req, ok := <-ch:
		if !ok {
			t.Fatal("request channel closed")
		}
		return req
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a request")
	}
	return nil
}

func TestStdioTransport_ReadsRequests(t *testing.T) {
	input := strings.NewReader(
		`{"jsonrpc":"2.0","id":1,"method":"tools/list"}` + "\n" +
			"\n" +
			`{"jsonrpc":"2.0","id":"two","method":"ping"}`,
	)
	transport := NewStdioTransportWithIO(input, io.Discard)

	if err := transport.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	first := receiveRequest(t, transport.Receive())
	if first.Method != "tools/list" || first.ID != float64(1) {
		t.Errorf("first request = %+v", first)
	}
	second := receiveRequest(t, transport.Receive())
	if second.Method != "ping" || second.ID != "two" {
		t.Errorf("second request = %+v", second)
	}

	select {
	case _, ok := <-transport.Receive():
		if ok {
			t.Error("unexpected extra request")
		}
	case <-time.After(2 * time.Second):
		t.Error("request channel not closed at EOF")
	}
}

func TestStdioTransport_ProtocolErrors(t *testing.T) {
	input := strings.NewReader(
		"not json\n" +
			`{"jsonrpc":"1.0","id":7,"method":"ping"}` + "\n",
	)
	output := &syncBuffer{}
	transport := NewStdioTransportWithIO(input, output)

	if err := transport.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	for range transport.Receive() {
		t.Error("malformed input must not be forwarded")
	}

	lines := output.Lines()
	if len(lines) != 2 {
		t.Fatalf("got %d responses, want 2: %v", len(lines), lines)
	}

	var parseErr, versionErr Response
	if err := json.Unmarshal([]byte(lines[0]), &parseErr); err != nil {
		t.Fatalf("invalid response line: %v", err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &versionErr); err != nil {
		t.Fatalf("invalid response line: %v", err)
	}

	if parseErr.Error == nil || parseErr.Error.Code != ParseError {
		t.Errorf("first response = %+v, want a parse error", parseErr)
	}
	if versionErr.Error == nil || versionErr.Error.Code != InvalidRequest {
		t.Errorf("second response = %+v, want an invalid request error", versionErr)
	}
	if versionErr.ID != float64(7) {
		t.Errorf("ID = %v, want 7", versionErr.ID)
	}
}

func TestStdioTransport_Send(t *testing.T) {
	output := &syncBuffer{}
	transport := NewStdioTransportWithIO(strings.NewReader(""), output)

	err := transport.Send(&Response{ID: 3, Result: map[string]string{"text": "line1\nline2"}})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	lines := output.Lines()
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want a single line", len(lines))
	}
	if want := `{"jsonrpc":"2.0","id":3,"result":{"text":"line1\nline2"}}`; lines[0] != want {
		t.Errorf("line = %s, want %s", lines[0], want)
	}

	transport.Close()
	if err := transport.Send(&Response{ID: 4}); err == nil {
		t.Error("Send() after Close() error = nil")
	}
}

func TestStdioTransport_ConcurrentSendsDoNotInterleave(t *testing.T) {
	output := &syncBuffer{}
	transport := NewStdioTransportWithIO(strings.NewReader(""), output)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_ = transport.Send(&Response{ID: id, Result: strings.Repeat("x", 512)})
		}(i)
	}
	wg.Wait()

	lines := output.Lines()
	if len(lines) != 20 {
		t.Fatalf("got %d lines, want 20", len(lines))
	}
	for _, line := range lines {
		if !json.Valid([]byte(line)) {
			t.Errorf("interleaved output: %q", line)
		}
	}
}

func TestRequest_IsNotification(t *testing.T) {
	tests := []struct {
		req  Request
		want bool
	}{
		{Request{Method: "notifications/initialized"}, true},
		{Request{ID: 1, Method: "notifications/initialized"}, false},
		{Request{Method: "tools/list"}, false},
	}
	for _, tt := range tests {
		if got := tt.req.IsNotification(); got != tt.want {
			t.Errorf("IsNotification(%+v) = %v, want %v", tt.req, got, tt.want)
		}
	}
}

// sseClient opens the event stream and reads events from it.
type sseClient struct {
	resp    *http.Response
	scanner *bufio.Scanner
}

func openSSE(t *testing.T, baseURL string) *sseClient {
	t.Helper()
	resp, err := http.Get(baseURL + "/mcp")
	if err != nil {
		t.Fatalf("GET /mcp error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /mcp status = %d", resp.StatusCode)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return &sseClient{resp: resp, scanner: bufio.NewScanner(resp.Body)}
}

// next returns the event name and data of the next event.
func (c *sseClient) next(t *testing.T) (string, string) {
	t.Helper()
	var event, data string
	for c.scanner.Scan() {
		line := c.scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && event != "":
			return event, data
		}
	}
	t.Fatalf("event stream ended: %v", c.scanner.Err())
	return "", ""
}

// newSSEServer serves transport from an httptest server. Sessions are
// closed before the server so that Close does not wait on open streams.
func newSSEServer(t *testing.T) (*HTTPTransport, *httptest.Server) {
	t.Helper()
	transport := NewHTTPTransport("127.0.0.1", 0)
	server := httptest.NewServer(transport.Handler())
	t.Cleanup(server.Close)
	t.Cleanup(func() { transport.Close() })
	return transport, server
}

func post(t *testing.T, url, body string) int {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func TestHTTPTransport_RoundTrip(t *testing.T) {
	transport, server := newSSEServer(t)

	client := openSSE(t, server.URL)
	event, endpoint := client.next(t)
	if event != "endpoint" || !strings.HasPrefix(endpoint, "/mcp/message?sessionId=") {
		t.Fatalf("first event = %s %s, want the endpoint event", event, endpoint)
	}

	status := post(t, server.URL+endpoint, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	if status != http.StatusAccepted {
		t.Fatalf("POST status = %d, want 202", status)
	}

	req := receiveRequest(t, transport.Receive())
	if req.Method != "tools/list" {
		t.Errorf("Method = %q", req.Method)
	}
	if req.Session == "" || !strings.HasSuffix(endpoint, req.Session) {
		t.Errorf("Session = %q, want the id of %s", req.Session, endpoint)
	}

	if err := transport.Send(&Response{ID: req.ID, Result: "ok", Session: req.Session}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	event, data := client.next(t)
	if event != "message" {
		t.Fatalf("event = %q, want message", event)
	}
	if want := `{"jsonrpc":"2.0","id":1,"result":"ok"}`; data != want {
		t.Errorf("data = %s, want %s", data, want)
	}
}

func TestHTTPTransport_ResponsesStayInTheirSession(t *testing.T) {
	transport, server := newSSEServer(t)

	first := openSSE(t, server.URL)
	_, firstEndpoint := first.next(t)
	second := openSSE(t, server.URL)
	_, secondEndpoint := second.next(t)

	post(t, server.URL+secondEndpoint, `{"jsonrpc":"2.0","id":2,"method":"ping"}`)
	req := receiveRequest(t, transport.Receive())

	if err := transport.Send(&Response{ID: req.ID, Result: "second", Session: req.Session}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	_, data := second.next(t)
	if !strings.Contains(data, `"second"`) {
		t.Errorf("second session data = %s", data)
	}

	post(t, server.URL+firstEndpoint, `{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	req = receiveRequest(t, transport.Receive())
	transport.Send(&Response{ID: req.ID, Result: "first", Session: req.Session})

	_, data = first.next(t)
	if !strings.Contains(data, `"first"`) {
		t.Errorf("first session data = %s, want only its own response", data)
	}
}

func TestHTTPTransport_MessageErrors(t *testing.T) {
	_, server := newSSEServer(t)

	if status := post(t, server.URL+"/mcp/message", `{}`); status != http.StatusBadRequest {
		t.Errorf("missing session status = %d, want 400", status)
	}
	if status := post(t, server.URL+"/mcp/message?sessionId=unknown", `{}`); status != http.StatusBadRequest {
		t.Errorf("unknown session status = %d, want 400", status)
	}

	client := openSSE(t, server.URL)
	_, endpoint := client.next(t)

	if status := post(t, server.URL+endpoint, `{broken`); status != http.StatusAccepted {
		t.Errorf("parse error status = %d, want 202", status)
	}
	_, data := client.next(t)
	var resp Response
	if err := json.Unmarshal([]byte(data), &resp); err != nil {
		t.Fatalf("invalid event data: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != ParseError {
		t.Errorf("response = %+v, want a parse error", resp)
	}
}

func TestHTTPTransport_SendWithoutSessions(t *testing.T) {
	transport := NewHTTPTransport("127.0.0.1", 0)

	if err := transport.Send(&Response{ID: 1}); err == nil {
		t.Error("Send() error = nil, want no active sessions")
	}
	if err := transport.Send(&Response{ID: 1, Session: "gone"}); err == nil {
		t.Error("Send() to an unknown session error = nil")
	}
}

func TestHTTPTransport_StartAndClose(t *testing.T) {
	transport := NewHTTPTransport("127.0.0.1", 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := transport.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	addr := transport.Addr()
	if strings.HasSuffix(addr, ":0") {
		t.Fatalf("Addr() = %s, want the bound port", addr)
	}

	client := openSSE(t, "http://"+addr)
	if event, _ := client.next(t); event != "endpoint" {
		t.Fatalf("event = %q, want endpoint", event)
	}

	if err := transport.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := transport.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	if _, ok := <-transport.Receive(); ok {
		t.Error("request channel still open after Close()")
	}
	if err := transport.Send(&Response{ID: 1}); err == nil {
		t.Error("Send() after Close() error = nil")
	}
}

func TestHTTPTransport_OutlivesStartContext(t *testing.T) {
	transport := NewHTTPTransport("127.0.0.1", 0)
	ctx, cancel := context.WithCancel(context.Background())

	if err := transport.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { transport.Close() })

	client := openSSE(t, "http://"+transport.Addr())
	_, endpoint := client.next(t)
	sessionID := strings.TrimPrefix(endpoint, "/mcp/message?sessionId=")

	// Shutdown signal arrives while a call is still in flight
	cancel()
	time.Sleep(50 * time.Millisecond)

	if err := transport.Send(&Response{ID: 9, Result: "late", Session: sessionID}); err != nil {
		t.Fatalf("Send() after the start context ended error = %v, want delivery", err)
	}
	event, data := client.next(t)
	if event != "message" || !strings.Contains(data, `"late"`) {
		t.Errorf("event = %s %s, want the late response", event, data)
	}
}

func TestHTTPTransport_StartFailsOnBusyPort(t *testing.T) {
	first := NewHTTPTransport("127.0.0.1", 0)
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer first.Close()

	_, port, _ := strings.Cut(first.Addr(), ":")
	portNumber, err := strconv.Atoi(port)
	if err != nil {
		t.Fatalf("Addr() = %s: %v", first.Addr(), err)
	}
	second := NewHTTPTransport("127.0.0.1", portNumber)
	if err := second.Start(context.Background()); err == nil {
		second.Close()
		t.Fatal("Start() on a busy port error = nil")
	}
}
