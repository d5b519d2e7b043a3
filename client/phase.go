package client

import "fmt"

// Phase 客户端粗粒度模式
type Phase int

const (
	PhaseMenu Phase = iota
	PhaseLobby
	PhaseGame
)

func (p Phase) String() string {
	switch p {
	case PhaseMenu:
		return "MENU"
	case PhaseLobby:
		return "LOBBY"
	case PhaseGame:
		return "GAME"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Confirm 本地确认输入：MENU -> LOBBY 并发送 find_match。
// 其他阶段忽略，返回 false。
func (s *Session) Confirm(out Sender) bool {
	if s.Phase != PhaseMenu {
		return false
	}
	s.Phase = PhaseLobby
	Log.Infof("phase %s -> %s: find match", PhaseMenu, PhaseLobby)
	if out != nil {
		// 发送失败已由传输层记录，这里不再处理
		_ = out.Send(FindMatch{})
	}
	return true
}

// Apply 按转换表处理一条入站帧；不在表中的组合是空操作，返回 false。
// match_found 之后不额外发送零向量 move。
func (s *Session) Apply(f Inbound) bool {
	switch msg := f.(type) {
	case PlayerJoined:
		s.LocalID = msg.ID
		Log.Infof("assigned player id %s", msg.ID)
		return true

	case StateUpdate:
		s.ApplyStateUpdate(msg.Players)
		return true

	case MatchFound:
		if s.Phase != PhaseLobby {
			return false
		}
		s.Phase = PhaseGame
		Log.Infof("phase %s -> %s: match found", PhaseLobby, PhaseGame)
		return true

	case GameOver:
		if s.Phase != PhaseGame {
			return false
		}
		s.Phase = PhaseMenu
		s.World = WorldSnapshot{}
		s.LocalRole = RoleNone
		s.LastWinner = msg.WinnerRole
		Log.Infof("phase %s -> %s: game over, winner %q", PhaseGame, PhaseMenu, msg.WinnerRole)
		return true

	case Connected:
		s.Connected = true
		return true

	case Disconnected:
		s.Connected = false
		s.LinkErr = msg.Err
		if s.LinkErr == nil {
			s.LinkErr = ErrTransportClosed
		}
		Log.Warnf("connection lost: %v", s.LinkErr)
		return true

	default:
		return false
	}
}
