package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/muurk/modelfinder/internal/lookup"
)

// newProductEndpoint fakes Apple's product endpoint
func newProductEndpoint(t *testing.T) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		switch r.URL.Query().Get("cc") {
		case "FGHI":
			fmt.Fprint(w, `<?xml version="1.0" encoding="utf-8"?><root><name>CPU Name</name><configCode>MacBook Pro (13-inch, 2016)</configCode><locale>en_US</locale></root>`)
		case "DEF":
			fmt.Fprint(w, `<root><configCode>iMac (27-inch, Late 2013)</configCode></root>`)
		case "EMP":
			fmt.Fprint(w, `<root><configCode></configCode></root>`)
		case "NIL":
			// Empty body
		default:
			fmt.Fprint(w, `<?xml version="1.0" encoding="utf-8"?><root><name>CPU Name</name><locale>en_US</locale></root>`)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newTestServer(t *testing.T) (*Server, *httptest.Server, *int32) {
	t.Helper()
	apple, hits := newProductEndpoint(t)

	s, err := New(&Config{Endpoint: apple.URL, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts, hits
}

func getLookup(t *testing.T, baseURL, serial string) (*http.Response, LookupResponse) {
	t.Helper()
	resp, err := http.Get(baseURL + LookupPath + "?serial=" + serial)
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()

	var lr LookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	return resp, lr
}

func TestHealth(t *testing.T) {
	_, ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + HealthPath)
	if err != nil {
		t.Fatalf("GET /health error = %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(body)) != "OK" {
		t.Errorf("GET /health = %d %q", resp.StatusCode, body)
	}
}

func TestLookupEndpoint(t *testing.T) {
	_, ts, _ := newTestServer(t)

	tests := []struct {
		name          string
		serial        string
		wantStatus    int
		wantKey       string
		wantModel     *string
		wantError     string
		wantErrorType string
	}{
		{
			name:       "12-character serial",
			serial:     "C02ABCDEFGHI",
			wantStatus: http.StatusOK,
			wantKey:    "FGHI",
			wantModel:  ptr("MacBook Pro (13-inch, 2016)"),
		},
		{
			name:       "11-character serial",
			serial:     "W8823ABCDEF",
			wantStatus: http.StatusOK,
			wantKey:    "DEF",
			wantModel:  ptr("iMac (27-inch, Late 2013)"),
		},
		{
			name:       "empty configCode",
			serial:     "EMP",
			wantStatus: http.StatusOK,
			wantKey:    "EMP",
			wantModel:  ptr(""),
		},
		{
			name:          "invalid length",
			serial:        "ABCDE",
			wantStatus:    http.StatusUnprocessableEntity,
			wantError:     lookup.MsgInvalidLength,
			wantErrorType: "invalid_length",
		},
		{
			name:          "missing serial",
			serial:        "",
			wantStatus:    http.StatusUnprocessableEntity,
			wantError:     lookup.MsgEmptyInput,
			wantErrorType: "empty_input",
		},
		{
			name:          "unknown key",
			serial:        "ZZZZ",
			wantStatus:    http.StatusBadGateway,
			wantKey:       "ZZZZ",
			wantError:     lookup.MsgMalformedResponse,
			wantErrorType: "malformed_response",
		},
		{
			name:          "empty body",
			serial:        "NIL",
			wantStatus:    http.StatusBadGateway,
			wantKey:       "NIL",
			wantError:     lookup.MsgEmptyResponse,
			wantErrorType: "empty_response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, lr := getLookup(t, ts.URL, tt.serial)

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}
			if lr.Serial != tt.serial {
				t.Errorf("serial = %q, want %q", lr.Serial, tt.serial)
			}
			if lr.Key != tt.wantKey {
				t.Errorf("key = %q, want %q", lr.Key, tt.wantKey)
			}
			if tt.wantModel == nil {
				if lr.Model != nil {
					t.Errorf("model = %q, want absent", *lr.Model)
				}
			} else if lr.Model == nil || *lr.Model != *tt.wantModel {
				t.Errorf("model = %v, want %q", lr.Model, *tt.wantModel)
			}
			if lr.Error != tt.wantError {
				t.Errorf("error = %q, want %q", lr.Error, tt.wantError)
			}
			if lr.ErrorType != tt.wantErrorType {
				t.Errorf("error_type = %q, want %q", lr.ErrorType, tt.wantErrorType)
			}
			if lr.ID != resp.Header.Get(RequestIDHeader) {
				t.Errorf("id = %q, header = %q", lr.ID, resp.Header.Get(RequestIDHeader))
			}
		})
	}
}

func TestLookupEndpoint_ValidationSkipsUpstream(t *testing.T) {
	_, ts, hits := newTestServer(t)

	getLookup(t, ts.URL, "ABCDE")
	getLookup(t, ts.URL, "")

	if n := atomic.LoadInt32(hits); n != 0 {
		t.Errorf("upstream hit %d times, want 0", n)
	}
}

func TestLookupEndpoint_MethodNotAllowed(t *testing.T) {
	_, ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+LookupPath+"?serial=ABC", "text/plain", nil)
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestRequestID(t *testing.T) {
	_, ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + HealthPath)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if _, err := uuid.Parse(resp.Header.Get(RequestIDHeader)); err != nil {
		t.Errorf("generated request ID %q is not a UUID", resp.Header.Get(RequestIDHeader))
	}

	given := uuid.NewString()
	req, _ := http.NewRequest(http.MethodGet, ts.URL+HealthPath, nil)
	req.Header.Set(RequestIDHeader, given)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get(RequestIDHeader); got != given {
		t.Errorf("request ID = %q, want reused %q", got, given)
	}

	req, _ = http.NewRequest(http.MethodGet, ts.URL+HealthPath, nil)
	req.Header.Set(RequestIDHeader, "not-a-uuid")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get(RequestIDHeader); got == "not-a-uuid" {
		t.Error("invalid request ID should be replaced")
	}
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + WebSocketPath
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocket(t *testing.T) {
	_, ts, _ := newTestServer(t)
	conn := dialWS(t, ts)

	// Binary frames are ignored
	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{0x01}); err != nil {
		t.Fatal(err)
	}
	for _, serial := range []string{"C02ABCDEFGHI", "ABCDE", "W8823ABCDEF"} {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(serial)); err != nil {
			t.Fatalf("WriteMessage() error = %v", err)
		}
	}

	got := make(map[string]LookupResponse)
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for i := 0; i < 3; i++ {
		var lr LookupResponse
		if err := conn.ReadJSON(&lr); err != nil {
			t.Fatalf("ReadJSON() error = %v", err)
		}
		if _, err := uuid.Parse(lr.ID); err != nil {
			t.Errorf("reply id %q is not a UUID", lr.ID)
		}
		got[lr.Serial] = lr
	}

	if lr := got["C02ABCDEFGHI"]; lr.Model == nil || *lr.Model != "MacBook Pro (13-inch, 2016)" {
		t.Errorf("C02ABCDEFGHI reply = %+v", lr)
	}
	if lr := got["W8823ABCDEF"]; lr.Model == nil || *lr.Model != "iMac (27-inch, Late 2013)" {
		t.Errorf("W8823ABCDEF reply = %+v", lr)
	}
	if lr := got["ABCDE"]; lr.Error != lookup.MsgInvalidLength || lr.ErrorType != "invalid_length" {
		t.Errorf("ABCDE reply = %+v", lr)
	}
}

func TestRemoteClient(t *testing.T) {
	_, ts, hits := newTestServer(t)
	client := NewRemoteClient(ts.URL)

	if client.LookupURL != ts.URL+LookupPath {
		t.Errorf("LookupURL = %q, want default path appended", client.LookupURL)
	}

	ctx := context.Background()

	r := client.Lookup(ctx, "C02ABCDEFGHI")
	if !r.OK() || r.Model != "MacBook Pro (13-inch, 2016)" || r.Key != "FGHI" {
		t.Errorf("Lookup(success) = %+v", r)
	}

	r = client.Lookup(ctx, "EMP")
	if !r.OK() || r.Model != "" {
		t.Errorf("Lookup(empty configCode) = %+v", r)
	}

	r = client.Lookup(ctx, "ZZZZ")
	if !lookup.IsMalformedResponse(r.Err) || r.Message() != lookup.MsgMalformedResponse {
		t.Errorf("Lookup(unknown) = %+v", r)
	}

	r = client.Lookup(ctx, "NIL")
	if !lookup.IsEmptyResponse(r.Err) || r.Message() != lookup.MsgEmptyResponse {
		t.Errorf("Lookup(empty body) = %+v", r)
	}

	before := atomic.LoadInt32(hits)
	r = client.Lookup(ctx, "ABCDE")
	if !lookup.IsInvalidLength(r.Err) {
		t.Errorf("Lookup(invalid) = %+v", r)
	}
	if atomic.LoadInt32(hits) != before {
		t.Error("invalid input should not reach the server")
	}
}

func TestRemoteClient_TransportError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	r := NewRemoteClient(url).Lookup(context.Background(), "ABC")
	if !lookup.IsTransportError(r.Err) {
		t.Fatalf("Lookup() = %+v, want transport error", r)
	}
	if r.Message() == "" {
		t.Error("transport error should carry the transport's message")
	}
}

func TestRemoteClient_NotJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html>proxy error</html>")
	}))
	defer ts.Close()

	r := NewRemoteClient(ts.URL + "/custom").Lookup(context.Background(), "ABC")
	if !lookup.IsMalformedResponse(r.Err) {
		t.Errorf("Lookup() = %+v, want malformed response", r)
	}
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		result lookup.Result
		want   int
	}{
		{lookup.ModelResult("ABC", "ABC", "iMac"), http.StatusOK},
		{lookup.FailureResult("", "", lookup.NewEmptyInputError()), http.StatusUnprocessableEntity},
		{lookup.FailureResult("AB", "", lookup.NewInvalidLengthError()), http.StatusUnprocessableEntity},
		{lookup.FailureResult("ABC", "ABC", lookup.NewEmptyResponseError("")), http.StatusBadGateway},
		{lookup.FailureResult("ABC", "ABC", lookup.NewMalformedResponseError("", nil)), http.StatusBadGateway},
	}

	for _, tt := range tests {
		if got := StatusCode(tt.result); got != tt.want {
			t.Errorf("StatusCode(%v) = %d, want %d", tt.result.Message(), got, tt.want)
		}
	}
}

func TestLookupResponse_RoundTrip(t *testing.T) {
	orig := lookup.FailureResult("ABC", "ABC", lookup.NewMalformedResponseError("", nil))
	back := NewLookupResponse("id", orig).Result()

	if !lookup.IsMalformedResponse(back.Err) || back.Message() != lookup.MsgMalformedResponse {
		t.Errorf("Result() = %+v", back)
	}
}

func TestServeAndShutdown(t *testing.T) {
	s, _, _ := newTestServer(t)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- s.Serve(listener) }()

	base := "http://" + listener.Addr().String()
	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = http.Get(base + HealthPath)
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("server never came up: %v", err)
	}
	resp.Body.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+listener.Addr().String()+WebSocketPath, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for s.GetActiveConnections() != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if s.GetActiveConnections() != 1 {
		t.Fatalf("GetActiveConnections() = %d, want 1", s.GetActiveConnections())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
	if err := <-serveErr; err != nil {
		t.Errorf("Serve() error = %v", err)
	}
	if s.GetActiveConnections() != 0 {
		t.Errorf("GetActiveConnections() = %d after shutdown", s.GetActiveConnections())
	}
}

func TestTXTRecords(t *testing.T) {
	records := TXTRecords()
	if len(records) != 2 || records[0] != "path=/api/v1/lookup" || !strings.HasPrefix(records[1], "version=") {
		t.Errorf("TXTRecords() = %v", records)
	}
}

func ptr(s string) *string { return &s }

func TestNew_UpstreamClient(t *testing.T) {
	var ua atomic.Value
	apple := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua.Store(r.Header.Get("User-Agent"))
		fmt.Fprint(w, `<root><configCode>iMac</configCode></root>`)
	}))
	defer apple.Close()

	s, err := New(&Config{Endpoint: apple.URL, Timeout: 3 * time.Second})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if s.Endpoint() != apple.URL {
		t.Errorf("Endpoint() = %q, want %q", s.Endpoint(), apple.URL)
	}
	if s.client.HTTPClient.Timeout != 3*time.Second {
		t.Errorf("Timeout = %v, want 3s", s.client.HTTPClient.Timeout)
	}
	transport, ok := s.client.HTTPClient.Transport.(*http.Transport)
	if !ok || transport.MaxIdleConnsPerHost != maxIdleUpstreamConns {
		t.Errorf("Transport = %#v, want MaxIdleConnsPerHost %d", s.client.HTTPClient.Transport, maxIdleUpstreamConns)
	}

	if r := s.client.Lookup(context.Background(), "ABC"); !r.OK() {
		t.Fatalf("Lookup() = %+v", r)
	}
	if got, _ := ua.Load().(string); !strings.HasPrefix(got, "modelfinder-server/") {
		t.Errorf("User-Agent = %q, want modelfinder-server/ prefix", got)
	}
}

func TestNew_DefaultEndpointAndTimeout(t *testing.T) {
	s, err := New(&Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if s.Endpoint() != lookup.DefaultEndpoint {
		t.Errorf("Endpoint() = %q", s.Endpoint())
	}
	if s.client.HTTPClient.Timeout != lookup.DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", s.client.HTTPClient.Timeout, lookup.DefaultTimeout)
	}
}
