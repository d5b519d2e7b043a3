package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ConnState 连接生命周期：Disconnected -> Connecting -> Open -> Closed
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateOpen
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("ConnState(%d)", int32(s))
	}
}

var (
	// ErrTransportClosed 连接未打开或已关闭时发送
	ErrTransportClosed = errors.New("transport not open")
	// ErrSendQueueFull 发送队列已满
	ErrSendQueueFull = errors.New("send queue full")
)

const (
	writeWait        = 5 * time.Second
	handshakeTimeout = 10 * time.Second
	maxFrameSize     = 1 << 20 // 1MB
	DefaultSendQueue = 64
)

// Sender 出站能力；主循环只通过它与传输层交互
type Sender interface {
	Send(o Outbound) error
}

// Transport 持有唯一的一条到服务端的 WebSocket 连接。
// 读协程把解析好的帧投递到 Mailbox；出站帧经 send 队列由写协程写出。
type Transport struct {
	url     string
	dialer  *websocket.Dialer
	mailbox *Mailbox
	metrics *Metrics
	log     *zap.SugaredLogger

	state     atomic.Int32
	conn      atomic.Pointer[websocket.Conn]
	send      chan []byte
	done      chan struct{} // 读循环退出时关闭
	closeOnce sync.Once
}

type TransportOption func(*Transport)

// WithDialer 替换默认拨号器
func WithDialer(d *websocket.Dialer) TransportOption {
	return func(t *Transport) { t.dialer = d }
}

// WithSendQueue 设置出站队列容量（至少为 1）
func WithSendQueue(n int) TransportOption {
	return func(t *Transport) {
		if n < 1 {
			n = 1
		}
		t.send = make(chan []byte, n)
	}
}

// WithMetrics 使用独立的指标对象（测试用）
func WithMetrics(m *Metrics) TransportOption {
	return func(t *Transport) { t.metrics = m }
}

func NewTransport(url string, mb *Mailbox, opts ...TransportOption) *Transport {
	t := &Transport{
		url:     url,
		mailbox: mb,
		metrics: DefaultMetrics,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
		send: make(chan []byte, DefaultSendQueue),
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	// 每次连接一个关联 ID，方便在日志中串起一次会话
	t.log = Log.With("conn", uuid.NewString(), "url", url)
	return t
}

// State 当前连接状态
func (t *Transport) State() ConnState {
	return ConnState(t.state.Load())
}

// Run 建立连接并阻塞运行读循环，直到连接断开。
// 作为后台协程启动，不需要 join；断开后不会自动重连。
func (t *Transport) Run(ctx context.Context) error {
	ws, err := t.connect(ctx)
	if err != nil {
		return err
	}
	t.readPump(ws)
	return nil
}

// Connect 建立连接并发送 join_request，读循环在后台协程运行，立即返回。
func (t *Transport) Connect(ctx context.Context) error {
	ws, err := t.connect(ctx)
	if err != nil {
		return err
	}
	go t.readPump(ws)
	return nil
}

func (t *Transport) connect(ctx context.Context) (*websocket.Conn, error) {
	if !t.state.CompareAndSwap(int32(StateDisconnected), int32(StateConnecting)) {
		return nil, fmt.Errorf("connect: transport already %s", t.State())
	}
	t.log.Infof("connecting")
	ws, _, err := t.dialer.DialContext(ctx, t.url, nil)
	if err != nil {
		t.state.Store(int32(StateClosed))
		close(t.done)
		t.log.Warnf("dial failed: %v", err)
		t.mailbox.Push(Disconnected{Err: err})
		return nil, fmt.Errorf("dial %s: %w", t.url, err)
	}
	ws.SetReadLimit(maxFrameSize)
	t.conn.Store(ws)

	// join_request 必须是第一条出站帧：在写协程启动前先放入队列
	join, _ := EncodeOutbound(JoinRequest{})
	t.send <- join

	t.state.Store(int32(StateOpen))
	t.mailbox.Push(Connected{})
	t.log.Infof("connected")
	go t.writePump(ws)
	return ws, nil
}

// Send 将出站帧压入发送队列（非阻塞）。
// 连接未打开或队列已满时丢弃并记录日志，错误只供调用方参考。
func (t *Transport) Send(o Outbound) error {
	if o == nil {
		return errors.New("send: nil frame")
	}
	if st := t.State(); st != StateOpen {
		t.metrics.IncSendDropped()
		t.log.Warnf("drop %s: connection %s", o.FrameType(), st)
		return fmt.Errorf("send %s: %w", o.FrameType(), ErrTransportClosed)
	}
	b, err := EncodeOutbound(o)
	if err != nil {
		return fmt.Errorf("send %s: %w", o.FrameType(), err)
	}
	select {
	case t.send <- b:
		return nil
	default:
		// 为了不阻塞主循环，队列满时直接丢弃
		t.metrics.IncSendQueueFull()
		t.log.Warnf("drop %s: send queue full", o.FrameType())
		return fmt.Errorf("send %s: %w", o.FrameType(), ErrSendQueueFull)
	}
}

// Close 发送关闭握手并关闭底层连接
func (t *Transport) Close() error {
	ws := t.conn.Load()
	if ws == nil {
		return nil
	}
	var err error
	t.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
		err = multierr.Append(
			ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)),
			ws.Close(),
		)
	})
	return err
}

// writePump 独立协程，负责从 send 队列写出到 WS
func (t *Transport) writePump(ws *websocket.Conn) {
	for {
		select {
		case msg := <-t.send:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				t.log.Warnf("write: %v", err)
				// 关闭连接以结束读循环
				_ = ws.Close()
				return
			}
			t.metrics.IncSent()
		case <-t.done:
			return
		}
	}
}

// readPump 读取服务端帧，解析后投递到 Mailbox。
// 格式错误的帧跳过并继续读取；读错误即连接结束。
func (t *Transport) readPump(ws *websocket.Conn) {
	defer func() {
		close(t.done)
		_ = ws.Close()
	}()
	for {
		_, payload, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				t.log.Infof("connection closed: %v", err)
			} else {
				t.log.Warnf("read: %v", err)
			}
			// 先标记关闭，再通知主循环，保证之后的 Send 都会被丢弃
			t.state.Store(int32(StateClosed))
			t.mailbox.Push(Disconnected{Err: err})
			return
		}
		f, err := DecodeInbound(payload)
		if err != nil {
			t.metrics.IncMalformed()
			t.log.Warnf("skip frame: %v", err)
			continue
		}
		if u, ok := f.(Unknown); ok {
			t.metrics.IncUnknown()
			t.log.Debugf("unhandled frame type %q", u.Type)
		}
		t.metrics.IncReceived()
		t.mailbox.Push(f)
	}
}
