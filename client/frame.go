package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// 线上帧类型
const (
	TypePlayerJoined = "player_joined"
	TypeMatchFound   = "match_found"
	TypeStateUpdate  = "state_update"
	TypeGameOver     = "game_over"

	TypeJoinRequest = "join_request"
	TypeFindMatch   = "find_match"
	TypeMove        = "move"
)

// ErrMalformedFrame 入站字节无法解析为合法帧
var ErrMalformedFrame = errors.New("malformed frame")

// Inbound 入站帧（服务端 -> 客户端），以及传输层内部的连接状态帧
type Inbound interface{ isInbound() }

// PlayerJoined 服务端分配的本地玩家 ID
type PlayerJoined struct{ ID PlayerID }

// MatchFound 匹配成功
type MatchFound struct{}

// StateUpdate 完整世界快照；Dropped 为解析时剔除的不完整条目数
type StateUpdate struct {
	Players WorldSnapshot
	Dropped int
}

// GameOver 对局结束；WinnerRole 可能为空
type GameOver struct{ WinnerRole Role }

// Unknown 结构合法但本客户端不处理的帧（如 waiting_for_opponent）
type Unknown struct{ Type string }

// Connected 传输层连接已打开
type Connected struct{}

// Disconnected 传输层连接已关闭（拨号失败或读循环结束）
type Disconnected struct{ Err error }

func (PlayerJoined) isInbound() {}
func (MatchFound) isInbound()   {}
func (StateUpdate) isInbound()  {}
func (GameOver) isInbound()     {}
func (Unknown) isInbound()      {}
func (Connected) isInbound()    {}
func (Disconnected) isInbound() {}

// DecodeInbound 在解析边界完成校验与过滤：
// 结构错误返回 ErrMalformedFrame，不完整的玩家条目直接剔除。
func DecodeInbound(b []byte) (Inbound, error) {
	env, err := decodeEnvelope(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	data, err := decodeData(env.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedFrame, env.Type, err)
	}

	switch env.Type {
	case TypePlayerJoined:
		id, err := decodeID(data["id"])
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedFrame, env.Type, err)
		}
		return PlayerJoined{ID: id}, nil
	case TypeMatchFound:
		return MatchFound{}, nil
	case TypeStateUpdate:
		su, err := decodeStateUpdate(data["players"])
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedFrame, env.Type, err)
		}
		return su, nil
	case TypeGameOver:
		// winner_role 只用于展示，缺失或取值不对时按 RoleNone 处理
		var winner Role
		if err := json.Unmarshal(data["winner_role"], &winner); err != nil || !winner.Valid() {
			winner = RoleNone
		}
		return GameOver{WinnerRole: winner}, nil
	default:
		return Unknown{Type: env.Type}, nil
	}
}

// 线上帧结构（WebSocket 文本消息），键名区分大小写
// 示例：{"type":"state_update","data":{"players":{"p1":{"pos":[10,20],"role":"runner"}}}}
type envelope struct {
	Type string
	Data json.RawMessage
}

// decodeEnvelope 只认小写的 type/data；encoding/json 的结构体解码会忽略大小写，这里按 map 取键
func decodeEnvelope(b []byte) (envelope, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return envelope{}, err
	}
	var env envelope
	if raw, ok := fields["type"]; ok {
		if err := json.Unmarshal(raw, &env.Type); err != nil {
			return envelope{}, errors.New("type is not a string")
		}
	}
	if env.Type == "" {
		return envelope{}, errors.New("missing type")
	}
	env.Data = fields["data"]
	return env, nil
}

// decodeData data 缺省或为 null 时视为 {}；必须是对象
func decodeData(raw json.RawMessage) (map[string]json.RawMessage, error) {
	if isNull(raw) {
		return map[string]json.RawMessage{}, nil
	}
	var data map[string]json.RawMessage
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, errors.New("data is not an object")
	}
	return data, nil
}

// decodeID 接受字符串或数字，数字按原文本转为 PlayerID
func decodeID(raw json.RawMessage) (PlayerID, error) {
	if isNull(raw) {
		return "", errors.New("missing id")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return "", errors.New("empty id")
		}
		return PlayerID(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("id must be a string or number: %s", raw)
	}
	return PlayerID(n.String()), nil
}

func decodeStateUpdate(raw json.RawMessage) (StateUpdate, error) {
	world := WorldSnapshot{}
	if isNull(raw) {
		return StateUpdate{Players: world}, nil
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return StateUpdate{}, errors.New("players is not an object")
	}
	dropped := 0
	for id, entry := range entries {
		p, ok := decodePlayer(PlayerID(id), entry)
		if !ok {
			dropped++
			continue
		}
		world[p.ID] = p
	}
	return StateUpdate{Players: world, Dropped: dropped}, nil
}

// decodePlayer 缺少 pos/role 或格式不对的条目返回 false
func decodePlayer(id PlayerID, raw json.RawMessage) (PlayerSnapshot, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return PlayerSnapshot{}, false
	}
	var pos []float64
	var role Role
	if isNull(fields["pos"]) || json.Unmarshal(fields["pos"], &pos) != nil || len(pos) != 2 {
		return PlayerSnapshot{}, false
	}
	if isNull(fields["role"]) || json.Unmarshal(fields["role"], &role) != nil || !role.Valid() {
		return PlayerSnapshot{}, false
	}
	return PlayerSnapshot{
		ID:   id,
		Pos:  Vec2{X: pos[0], Y: pos[1]},
		Role: role,
	}, true
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// Outbound 出站帧（客户端 -> 服务端），自身即 data 载荷
type Outbound interface{ FrameType() string }

// JoinRequest 连接打开后立即发送一次
type JoinRequest struct{}

// FindMatch MENU -> LOBBY 时发送
type FindMatch struct{}

// Move 移动意图，dx/dy ∈ {-1, 0, 1}
type Move struct {
	DX int `json:"dx"`
	DY int `json:"dy"`
}

func (JoinRequest) FrameType() string { return TypeJoinRequest }
func (FindMatch) FrameType() string   { return TypeFindMatch }
func (Move) FrameType() string        { return TypeMove }

type outboundEnvelope struct {
	Type string   `json:"type"`
	Data Outbound `json:"data"`
}

// EncodeOutbound 编码为单行 JSON 文本帧
func EncodeOutbound(o Outbound) ([]byte, error) {
	if o == nil {
		return nil, errors.New("nil outbound frame")
	}
	return json.Marshal(outboundEnvelope{Type: o.FrameType(), Data: o})
}
