package client

// Session 客户端本地镜像：阶段、本地身份、本地角色与最近一次世界快照。
// 只由主循环持有和修改，传输层永远拿不到它。
type Session struct {
	Phase      Phase
	LocalID    PlayerID // 空表示尚未分配
	LocalRole  Role     // RoleNone 表示尚未分配
	World      WorldSnapshot
	Connected  bool
	LinkErr    error // 连接结束的原因；非空后不会再恢复
	LastWinner Role  // 上一局胜方，菜单界面展示用
	Tick       int64
}

func NewSession() *Session {
	return &Session{Phase: PhaseMenu, World: WorldSnapshot{}}
}

// ApplyStateUpdate 整体替换世界快照，然后根据本地 ID 重新确定角色。
// 本地玩家不在快照中时保留原角色。
func (s *Session) ApplyStateUpdate(world WorldSnapshot) {
	if world == nil {
		world = WorldSnapshot{}
	}
	s.World = world
	if s.LocalID == "" {
		return
	}
	if p, ok := world[s.LocalID]; ok {
		s.LocalRole = p.Role
	}
}

// CanMove 仅在 GAME 阶段且已分配角色时允许发送移动
func (s *Session) CanMove() bool {
	return s.Phase == PhaseGame && s.LocalRole != RoleNone
}

// Local 返回本地玩家在当前快照中的状态
func (s *Session) Local() (PlayerSnapshot, bool) {
	if s.LocalID == "" {
		return PlayerSnapshot{}, false
	}
	p, ok := s.World[s.LocalID]
	return p, ok
}
