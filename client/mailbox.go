package client

import (
	"context"
	"sync"
	"time"
)

// Mailbox 入站帧队列：传输层读协程写入，主循环每 Tick 一次性全部取出。
// 严格 FIFO，不限长度，不丢弃、不重排。
type Mailbox struct {
	mu     sync.Mutex
	frames []Inbound
	// 非空通知，容量为 1，用于 Wait
	notify chan struct{}
}

func NewMailbox() *Mailbox {
	return &Mailbox{notify: make(chan struct{}, 1)}
}

// Push 追加一帧（仅由传输层读循环调用）
func (m *Mailbox) Push(f Inbound) {
	m.mu.Lock()
	m.frames = append(m.frames, f)
	m.mu.Unlock()
	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// Drain 取出当前队列中的全部帧（按写入顺序），并清空队列。
// 换出整个切片，保证一次取完 Tick 开始前到达的所有帧。
func (m *Mailbox) Drain() []Inbound {
	m.mu.Lock()
	frames := m.frames
	m.frames = nil
	m.mu.Unlock()
	return frames
}

// Len 当前排队帧数
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.frames)
}

// Wait 阻塞直到队列非空、超时或 ctx 结束；返回队列是否非空
func (m *Mailbox) Wait(ctx context.Context, timeout time.Duration) bool {
	if m.Len() > 0 {
		return true
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-m.notify:
	case <-timer.C:
	case <-ctx.Done():
	}
	return m.Len() > 0
}
