package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hajimehoshi/ebiten/v2"

	"tagarena/client"
)

// TagArena 客户端入口：后台连接服务端，前台固定频率主循环（窗口或无头）
func main() {
	cfg, err := client.LoadConfig(".env", os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	// 使用第三方 zap 日志库写入日志文件（带滚动）
	if err := client.InitLogger(cfg.LogFile, cfg.LogLevel); err != nil {
		panic(err)
	}
	defer client.SyncLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.DebugAddr != "" {
		go func() {
			client.Log.Infof("debug endpoints on %s", cfg.DebugAddr)
			if err := http.ListenAndServe(cfg.DebugAddr, client.DebugRoutes(cfg, client.DefaultMetrics)); err != nil {
				client.Log.Errorf("debug listen: %v", err)
			}
		}()
	}

	mb := client.NewMailbox()
	tr := client.NewTransport(cfg.ServerURL, mb, client.WithSendQueue(cfg.SendQueue))
	loop := client.NewLoop(mb, tr)

	// 读协程独立运行，不 join；断线后需要重启进程
	go func() {
		if err := tr.Run(ctx); err != nil {
			client.Log.Errorf("transport: %v", err)
		}
	}()

	if cfg.Headless {
		runHeadless(ctx, cfg, loop)
	} else {
		runWindow(ctx, cfg, loop)
	}

	if err := tr.Close(); err != nil {
		client.Log.Debugf("close: %v", err)
	}
	client.Log.Info("Shutting down...")
}

func runWindow(ctx context.Context, cfg client.Config, loop *client.Loop) {
	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowTitle("Multiplayer Tag Game")
	ebiten.SetTPS(cfg.TickRate)
	if err := ebiten.RunGame(NewGame(ctx, loop)); err != nil && !errors.Is(err, ebiten.Termination) {
		client.Log.Errorf("window: %v", err)
	}
}

func runHeadless(ctx context.Context, cfg client.Config, loop *client.Loop) {
	var keys client.KeyState = client.NoKeys{}
	if cfg.AutoConfirm {
		keys = autoConfirm{}
	}
	client.Log.Infof("headless client, %d TPS", cfg.TickRate)
	_ = loop.Run(ctx, keys, &logRenderer{}, cfg.TickRate)
}

// autoConfirm 每个 Tick 都确认；只在 MENU 生效，相当于每局结束后自动重新排队
type autoConfirm struct{ client.NoKeys }

func (autoConfirm) JustPressed(k client.Key) bool { return k == client.KeyConfirm }

// logRenderer 无头模式：阶段或连接变化时写日志
type logRenderer struct {
	phase     client.Phase
	connected bool
}

func (r *logRenderer) Render(s client.Session) {
	if s.Phase == r.phase && s.Connected == r.connected {
		return
	}
	r.phase, r.connected = s.Phase, s.Connected
	client.Log.Infow("session", "tick", s.Tick, "phase", s.Phase.String(), "connected", s.Connected,
		"id", s.LocalID, "role", s.LocalRole, "players", len(s.World))
}
