package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testServer 模拟权威服务端：每个接入的连接推送到 conns
type testServer struct {
	*httptest.Server
	conns chan *websocket.Conn
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{conns: make(chan *websocket.Conn, 4)}
	up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ts.conns <- ws
	}))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *testServer) wsURL() string {
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func (ts *testServer) accept(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case ws := <-ts.conns:
		t.Cleanup(func() { _ = ws.Close() })
		return ws
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for client connection")
		return nil
	}
}

type wireFrame struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

func readWire(t *testing.T, ws *websocket.Conn) wireFrame {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, b, err := ws.ReadMessage()
	require.NoError(t, err)
	var f wireFrame
	require.NoError(t, json.Unmarshal(b, &f))
	return f
}

func writeWire(t *testing.T, ws *websocket.Conn, raw string) {
	t.Helper()
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(raw)))
}

// waitInbound 收集至少 n 帧，超时则失败
func waitInbound(t *testing.T, mb *Mailbox, n int) []Inbound {
	t.Helper()
	var got []Inbound
	deadline := time.Now().Add(2 * time.Second)
	for len(got) < n {
		if !time.Now().Before(deadline) {
			t.Fatalf("timed out: got %d of %d frames: %#v", len(got), n, got)
		}
		mb.Wait(context.Background(), 20*time.Millisecond)
		got = append(got, mb.Drain()...)
	}
	return got
}

func startTransport(t *testing.T, ts *testServer) (*Transport, *Mailbox, *Metrics, *websocket.Conn) {
	t.Helper()
	mb := NewMailbox()
	m := &Metrics{}
	tr := NewTransport(ts.wsURL(), mb, WithMetrics(m))
	t.Cleanup(func() { _ = tr.Close() })
	go func() { _ = tr.Run(context.Background()) }()
	ws := ts.accept(t)
	return tr, mb, m, ws
}

func TestTransport_ConnectSendsJoinRequestFirst(t *testing.T) {
	ts := newTestServer(t)
	tr, mb, _, ws := startTransport(t, ts)

	f := readWire(t, ws)
	assert.Equal(t, TypeJoinRequest, f.Type)
	assert.NotNil(t, f.Data)
	assert.Empty(t, f.Data)

	got := waitInbound(t, mb, 1)
	assert.Equal(t, Connected{}, got[0])
	assert.Equal(t, StateOpen, tr.State())
}

func TestTransport_InboundFramesKeepOrderAndSkipMalformed(t *testing.T) {
	ts := newTestServer(t)
	_, mb, m, ws := startTransport(t, ts)
	readWire(t, ws)

	writeWire(t, ws, `{"type":"player_joined","data":{"id":"p1"}}`)
	writeWire(t, ws, `{"type":"match_found"}`)
	writeWire(t, ws, `{oops`)
	writeWire(t, ws, `{"type":"state_update","data":{"players":{"p1":{"pos":[10,20],"role":"runner"},"p2":{"pos":[5,5]}}}}`)
	writeWire(t, ws, `{"type":"waiting_for_opponent"}`)
	writeWire(t, ws, `{"type":"game_over","data":{"winner_role":"catcher"}}`)

	got := waitInbound(t, mb, 6)
	assert.Equal(t, []Inbound{
		Connected{},
		PlayerJoined{ID: "p1"},
		MatchFound{},
		StateUpdate{Players: world(snap("p1", 10, 20, RoleRunner)), Dropped: 1},
		Unknown{Type: "waiting_for_opponent"},
		GameOver{WinnerRole: RoleCatcher},
	}, got)
	assert.Equal(t, int64(1), atomic.LoadInt64(&m.FramesMalformed))
	assert.Equal(t, int64(1), atomic.LoadInt64(&m.FramesUnknown))
	assert.Equal(t, int64(5), atomic.LoadInt64(&m.FramesReceived))
}

func TestTransport_SendMoveReachesServer(t *testing.T) {
	ts := newTestServer(t)
	tr, mb, m, ws := startTransport(t, ts)
	readWire(t, ws)
	waitInbound(t, mb, 1)

	require.NoError(t, tr.Send(Move{DX: -1}))
	f := readWire(t, ws)
	assert.Equal(t, TypeMove, f.Type)
	assert.Equal(t, map[string]any{"dx": float64(-1), "dy": float64(0)}, f.Data)

	require.NoError(t, tr.Send(FindMatch{}))
	assert.Equal(t, TypeFindMatch, readWire(t, ws).Type)
	assert.Eventually(t, func() bool { return atomic.LoadInt64(&m.FramesSent) == 3 },
		time.Second, 10*time.Millisecond)
}

func TestTransport_SendBeforeOpenIsDropped(t *testing.T) {
	m := &Metrics{}
	tr := NewTransport("ws://127.0.0.1:1", NewMailbox(), WithMetrics(m))

	err := tr.Send(Move{DX: 1})
	require.ErrorIs(t, err, ErrTransportClosed)
	assert.Equal(t, StateDisconnected, tr.State())
	assert.Equal(t, int64(1), atomic.LoadInt64(&m.SendDropped))
	assert.NoError(t, tr.Close())
}

func TestTransport_ServerCloseIsTerminal(t *testing.T) {
	ts := newTestServer(t)
	tr, mb, m, ws := startTransport(t, ts)
	readWire(t, ws)
	waitInbound(t, mb, 1)

	require.NoError(t, ws.Close())

	got := waitInbound(t, mb, 1)
	d, ok := got[0].(Disconnected)
	require.True(t, ok, "got %T", got[0])
	assert.Error(t, d.Err)
	assert.Equal(t, StateClosed, tr.State())

	require.ErrorIs(t, tr.Send(Move{DY: 1}), ErrTransportClosed)
	assert.Equal(t, int64(1), atomic.LoadInt64(&m.SendDropped))
}

func TestTransport_DialFailure(t *testing.T) {
	ts := newTestServer(t)
	url := ts.wsURL()
	ts.Close()

	mb := NewMailbox()
	tr := NewTransport(url, mb, WithMetrics(&Metrics{}))
	err := tr.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateClosed, tr.State())

	got := mb.Drain()
	require.Len(t, got, 1)
	d, ok := got[0].(Disconnected)
	require.True(t, ok)
	assert.Error(t, d.Err)

	// 不会自动重连，也不能再次连接
	assert.Error(t, tr.Connect(context.Background()))
}

func TestTransport_CloseSendsNormalClosure(t *testing.T) {
	ts := newTestServer(t)
	tr, mb, _, ws := startTransport(t, ts)
	readWire(t, ws)
	waitInbound(t, mb, 1)

	require.NoError(t, tr.Close())

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := ws.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestTransport_ConnectReturnsImmediately(t *testing.T) {
	ts := newTestServer(t)
	mb := NewMailbox()
	tr := NewTransport(ts.wsURL(), mb, WithMetrics(&Metrics{}))
	t.Cleanup(func() { _ = tr.Close() })

	require.NoError(t, tr.Connect(context.Background()))
	ws := ts.accept(t)
	assert.Equal(t, TypeJoinRequest, readWire(t, ws).Type)

	writeWire(t, ws, `{"type":"player_joined","data":{"id":7}}`)
	got := waitInbound(t, mb, 2)
	assert.Equal(t, []Inbound{Connected{}, PlayerJoined{ID: "7"}}, got)
}

// 传输层 + 主循环：服务端驱动完整一局
func TestTransportAndLoop_EndToEnd(t *testing.T) {
	ts := newTestServer(t)
	tr, mb, m, ws := startTransport(t, ts)
	loop := NewLoop(mb, tr).WithMetrics(m)

	require.Equal(t, TypeJoinRequest, readWire(t, ws).Type)
	writeWire(t, ws, `{"type":"player_joined","data":{"id":"p1"}}`)

	// 等待 player_joined 到达后确认
	require.Eventually(t, func() bool {
		return loop.Tick(NoKeys{}).LocalID == "p1"
	}, 2*time.Second, 5*time.Millisecond)
	s := loop.Tick(press(KeyConfirm))
	require.Equal(t, PhaseLobby, s.Phase)
	require.Equal(t, TypeFindMatch, readWire(t, ws).Type)

	writeWire(t, ws, `{"type":"match_found"}`)
	writeWire(t, ws, `{"type":"state_update","data":{"players":{"p1":{"pos":[10,20],"role":"runner"},"p2":{"pos":[30,40],"role":"catcher"}}}}`)
	require.Eventually(t, func() bool {
		s = loop.Tick(NoKeys{})
		return s.Phase == PhaseGame && s.LocalRole == RoleRunner
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, world(snap("p1", 10, 20, RoleRunner), snap("p2", 30, 40, RoleCatcher)), s.World)

	loop.Tick(hold(KeyLeft, KeyUp))
	f := readWire(t, ws)
	assert.Equal(t, TypeMove, f.Type)
	assert.Equal(t, map[string]any{"dx": float64(-1), "dy": float64(-1)}, f.Data)

	writeWire(t, ws, `{"type":"game_over","data":{"winner_role":"catcher"}}`)
	require.Eventually(t, func() bool {
		s = loop.Tick(hold(KeyLeft))
		return s.Phase == PhaseMenu
	}, 2*time.Second, 5*time.Millisecond)
	assert.Empty(t, s.World)
	assert.Equal(t, RoleNone, s.LocalRole)
	assert.Equal(t, RoleCatcher, s.LastWinner)
}
