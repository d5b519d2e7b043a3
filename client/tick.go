package client

import (
	"context"
	"time"
)

const (
	// TicksPerSecond 主循环频率（60 TPS）
	TicksPerSecond = 60
)

// Renderer 渲染器（窗口或日志），在主循环线程中调用
type Renderer interface {
	Render(s Session)
}

// Loop 主循环：每 Tick 清空 Mailbox -> 状态机/会话 -> 确认输入 -> 采样移动 -> 交给渲染。
// Session 只在这里被修改。
type Loop struct {
	session *Session
	mailbox *Mailbox
	out     Sender
	metrics *Metrics
}

func NewLoop(mb *Mailbox, out Sender) *Loop {
	return &Loop{
		session: NewSession(),
		mailbox: mb,
		out:     out,
		metrics: DefaultMetrics,
	}
}

// WithMetrics 使用独立的指标对象（测试用）
func (l *Loop) WithMetrics(m *Metrics) *Loop {
	l.metrics = m
	return l
}

// Session 返回当前会话的副本。
// 世界快照只会被整体替换，副本中的 World 不会再被修改。
func (l *Loop) Session() Session {
	return *l.session
}

// Tick 推进一帧并返回供渲染的会话副本
func (l *Loop) Tick(keys KeyState) Session {
	start := time.Now()
	s := l.session
	s.Tick++

	// 一次性取完 Tick 开始前到达的所有帧，按顺序处理
	for _, f := range l.mailbox.Drain() {
		if su, ok := f.(StateUpdate); ok && su.Dropped > 0 {
			l.metrics.AddEntriesDropped(su.Dropped)
			Log.Debugf("state_update: dropped %d incomplete entries", su.Dropped)
		}
		if !s.Apply(f) {
			l.metrics.IncIllegalTransition()
			Log.Debugf("ignore %T in phase %s", f, s.Phase)
		}
	}

	if keys != nil && keys.JustPressed(KeyConfirm) {
		s.Confirm(l.out)
	}
	SampleInput(s, keys, l.out)

	l.metrics.AddTick(time.Since(start).Nanoseconds())
	return *s
}

// Run 以固定频率驱动 Tick，直到 ctx 结束；从不等待传输层
func (l *Loop) Run(ctx context.Context, keys KeyState, r Renderer, tps int) error {
	if tps <= 0 {
		tps = TicksPerSecond
	}
	ticker := time.NewTicker(time.Second / time.Duration(tps))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s := l.Tick(keys)
			if r != nil {
				r.Render(s)
			}
		}
	}
}
