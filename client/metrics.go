package client

import (
	"sync/atomic"
)

// Metrics 记录客户端运行期的关键指标（用于监控与调试）
type Metrics struct {
	TickCount          int64 // 主循环 Tick 次数
	TotalTickNs        int64 // Tick 累计耗时（纳秒）
	FramesReceived     int64 // 成功解析并投递到 Mailbox 的入站帧
	FramesMalformed    int64 // 解析失败被跳过的入站帧
	FramesUnknown      int64 // 未处理类型的入站帧
	FramesSent         int64 // 已写出的出站帧
	SendDropped        int64 // 连接未打开时被丢弃的出站帧
	SendQueueFull      int64 // 因发送队列满被丢弃的出站帧
	IllegalTransitions int64 // 被忽略的非法状态转换
	EntriesDropped     int64 // state_update 中被剔除的不完整玩家条目
}

// DefaultMetrics 进程级指标，传输层与主循环共用
var DefaultMetrics = &Metrics{}

func (m *Metrics) IncReceived()          { atomic.AddInt64(&m.FramesReceived, 1) }
func (m *Metrics) IncMalformed()         { atomic.AddInt64(&m.FramesMalformed, 1) }
func (m *Metrics) IncUnknown()           { atomic.AddInt64(&m.FramesUnknown, 1) }
func (m *Metrics) IncSent()              { atomic.AddInt64(&m.FramesSent, 1) }
func (m *Metrics) IncSendDropped()       { atomic.AddInt64(&m.SendDropped, 1) }
func (m *Metrics) IncSendQueueFull()     { atomic.AddInt64(&m.SendQueueFull, 1) }
func (m *Metrics) IncIllegalTransition() { atomic.AddInt64(&m.IllegalTransitions, 1) }
func (m *Metrics) AddEntriesDropped(n int) {
	if n > 0 {
		atomic.AddInt64(&m.EntriesDropped, int64(n))
	}
}
func (m *Metrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *Metrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":          tick,
		"avg_tick_ms":         avgMs,
		"frames_received":     atomic.LoadInt64(&m.FramesReceived),
		"frames_malformed":    atomic.LoadInt64(&m.FramesMalformed),
		"frames_unknown":      atomic.LoadInt64(&m.FramesUnknown),
		"frames_sent":         atomic.LoadInt64(&m.FramesSent),
		"send_dropped":        atomic.LoadInt64(&m.SendDropped),
		"send_queue_full":     atomic.LoadInt64(&m.SendQueueFull),
		"illegal_transitions": atomic.LoadInt64(&m.IllegalTransitions),
		"entries_dropped":     atomic.LoadInt64(&m.EntriesDropped),
	}
}
