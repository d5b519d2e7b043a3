package main

import (
	"context"
	"fmt"
	"image/color"
	"sort"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"tagarena/client"
)

const (
	screenWidth  = 800
	screenHeight = 600
	playerRadius = 20
)

var (
	colorBackground = color.RGBA{R: 0x20, G: 0x20, B: 0x28, A: 0xff}
	colorCatcher    = color.RGBA{R: 0xff, A: 0xff}
	colorRunner     = color.RGBA{B: 0xff, A: 0xff}
	colorOutline    = color.Black
	colorLocal      = color.RGBA{R: 150, G: 150, B: 150, A: 0xff}
)

// Game ebiten 适配层：Update 驱动主循环，Draw 只读取最近一次会话副本
// ctx 取消（SIGINT/SIGTERM）时结束 RunGame
type Game struct {
	ctx  context.Context
	loop *client.Loop
	last client.Session
}

func NewGame(ctx context.Context, loop *client.Loop) *Game {
	return &Game{ctx: ctx, loop: loop, last: loop.Session()}
}

func (g *Game) Update() error {
	if g.ctx.Err() != nil {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	g.last = g.loop.Tick(ebitenKeys{})
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(colorBackground)
	s := g.last

	switch {
	case s.LinkErr != nil && s.Phase != client.PhaseGame:
		drawCentered(screen, "Disconnected from server.\nRestart the client to play again.")
	case !s.Connected && s.LinkErr == nil:
		drawCentered(screen, "Connecting...")
	case s.Phase == client.PhaseMenu:
		msg := "Press ENTER to find a match"
		if s.LastWinner != client.RoleNone {
			msg = fmt.Sprintf("Game over! Winner: %s\n%s", s.LastWinner, msg)
		}
		drawCentered(screen, msg)
	case s.Phase == client.PhaseLobby:
		drawCentered(screen, "Waiting for another player...")
	case s.Phase == client.PhaseGame:
		drawPlayers(screen, s)
	}
}

func (g *Game) Layout(_, _ int) (int, int) {
	return screenWidth, screenHeight
}

func drawPlayers(screen *ebiten.Image, s client.Session) {
	ids := make([]string, 0, len(s.World))
	for id := range s.World {
		ids = append(ids, string(id))
	}
	// 固定绘制顺序，避免 map 遍历导致重叠闪烁
	sort.Strings(ids)

	for _, id := range ids {
		p := s.World[client.PlayerID(id)]
		x, y := float32(p.Pos.X), float32(p.Pos.Y)
		fill := colorRunner
		if p.Role == client.RoleCatcher {
			fill = colorCatcher
		}
		vector.DrawFilledCircle(screen, x, y, playerRadius+2, colorOutline, true)
		vector.DrawFilledCircle(screen, x, y, playerRadius, fill, true)
		if p.ID == s.LocalID {
			vector.StrokeCircle(screen, x, y, playerRadius, 3, colorLocal, true)
		}
		label := capitalize(string(p.Role))
		ebitenutil.DebugPrintAt(screen, label, int(x)-len(label)*3, int(y)+playerRadius+10)
	}
	if s.LinkErr != nil {
		ebitenutil.DebugPrintAt(screen, "Disconnected", 8, 8)
	}
}

func drawCentered(screen *ebiten.Image, msg string) {
	lines := strings.Split(msg, "\n")
	// DebugPrint 字形约 6x16
	y := screenHeight/2 - len(lines)*8
	for _, line := range lines {
		ebitenutil.DebugPrintAt(screen, line, screenWidth/2-len(line)*3, y)
		y += 16
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// ebitenKeys 方向键移动，回车确认
type ebitenKeys struct{}

var keyMap = map[client.Key]ebiten.Key{
	client.KeyLeft:    ebiten.KeyArrowLeft,
	client.KeyRight:   ebiten.KeyArrowRight,
	client.KeyUp:      ebiten.KeyArrowUp,
	client.KeyDown:    ebiten.KeyArrowDown,
	client.KeyConfirm: ebiten.KeyEnter,
}

func (ebitenKeys) Held(k client.Key) bool {
	ek, ok := keyMap[k]
	return ok && ebiten.IsKeyPressed(ek)
}

func (ebitenKeys) JustPressed(k client.Key) bool {
	ek, ok := keyMap[k]
	return ok && inpututil.IsKeyJustPressed(ek)
}
