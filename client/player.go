package client

// PlayerID 表示玩家唯一标识（由服务端分配）
type PlayerID string

// Role 玩家角色：追捕者或逃跑者
type Role string

const (
	RoleNone    Role = ""
	RoleCatcher Role = "catcher"
	RoleRunner  Role = "runner"
)

// Valid 仅 catcher / runner 为合法角色
func (r Role) Valid() bool {
	return r == RoleCatcher || r == RoleRunner
}

// Vec2 竞技场坐标
type Vec2 struct {
	X float64
	Y float64
}

// PlayerSnapshot 服务端权威的玩家状态，客户端只整体替换、从不修改
type PlayerSnapshot struct {
	ID   PlayerID
	Pos  Vec2
	Role Role
}

// WorldSnapshot 一次 state_update 的完整玩家集合。
// 构造完成后不再原地修改，只能整体替换。
type WorldSnapshot map[PlayerID]PlayerSnapshot
