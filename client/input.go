package client

// Key 客户端关心的逻辑按键
type Key int

const (
	KeyLeft Key = iota
	KeyRight
	KeyUp
	KeyDown
	KeyConfirm
)

// KeyState 每 Tick 的按键状态，由前端（窗口或无头模式）提供
type KeyState interface {
	// Held 该键当前是否按住
	Held(k Key) bool
	// JustPressed 该键是否在本 Tick 刚按下
	JustPressed(k Key) bool
}

// NoKeys 没有任何输入
type NoKeys struct{}

func (NoKeys) Held(Key) bool        { return false }
func (NoKeys) JustPressed(Key) bool { return false }

// Intent 单 Tick 的离散移动意图，分量 ∈ {-1, 0, 1}
type Intent struct {
	DX int
	DY int
}

func (i Intent) IsZero() bool { return i.DX == 0 && i.DY == 0 }

// SampleIntent 左减右加，上减下加；相反方向同时按住互相抵消
func SampleIntent(keys KeyState) Intent {
	var in Intent
	if keys == nil {
		return in
	}
	if keys.Held(KeyLeft) {
		in.DX--
	}
	if keys.Held(KeyRight) {
		in.DX++
	}
	if keys.Held(KeyUp) {
		in.DY--
	}
	if keys.Held(KeyDown) {
		in.DY++
	}
	return in
}

// SampleInput 在 GAME 阶段且已分配角色时采样按键，意图非零才发送 move。
// 位置以服务端为准，客户端不假设移动成功。
func SampleInput(s *Session, keys KeyState, out Sender) (Intent, bool) {
	if !s.CanMove() {
		return Intent{}, false
	}
	in := SampleIntent(keys)
	if in.IsZero() || out == nil {
		return in, false
	}
	_ = out.Send(Move{DX: in.DX, DY: in.DY})
	return in, true
}
