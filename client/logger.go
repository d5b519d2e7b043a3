package client

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log 客户端全局日志；InitLogger 之前为 Nop，测试里无需初始化
var Log = zap.NewNop().Sugar()

// 客户端日志文件滚动参数
const (
	logMaxSizeMB  = 10
	logMaxBackups = 3
	logMaxAgeDays = 7
)

// InitLogger 把日志写到 filePath（lumberjack 滚动），level 取 debug/info/warn/error。
// 终端留给窗口和提示信息，日志只进文件。
func InitLogger(filePath, level string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log level %q: %w", level, err)
	}

	sink := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    logMaxSizeMB,
		MaxBackups: logMaxBackups,
		MaxAge:     logMaxAgeDays,
	})

	enc := zap.NewDevelopmentEncoderConfig()
	enc.TimeKey = "ts"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), sink, lvl)
	Log = zap.New(core, zap.AddCaller()).Sugar()
	return nil
}

// SyncLogger 退出前刷盘
func SyncLogger() {
	_ = Log.Sync()
}
