// Package logger provides the process-wide zap logger used by the wpgen
// tools. Library packages take a *zap.Logger instead and get theirs from
// Named or ForChunk.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log is the global logger. It discards everything until Init is called.
var Log = zap.NewNop()

// Sugar is the sugared form of Log.
var Sugar = Log.Sugar()

// FileConfig configures the rotating log file. An empty Path disables it.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// DefaultFileConfig returns rotation settings for a log file at path.
func DefaultFileConfig(path string) FileConfig {
	return FileConfig{
		Path:       path,
		MaxSizeMB:  50,
		MaxBackups: 3,
		MaxAgeDays: 7,
		Compress:   true,
	}
}

// Init logs to the console and, when logFile is set, to a rotating file.
func Init(level, logFile string) error {
	var fc FileConfig
	if logFile != "" {
		fc = DefaultFileConfig(logFile)
	}
	return InitWithFileConfig(level, fc, true)
}

// InitWithFileConfig replaces the global logger. The console core writes
// to stderr so stdout stays free for command output. Unknown levels fall
// back to info.
func InitWithFileConfig(level string, fc FileConfig, console bool) error {
	lvl := parseLevel(level)

	var cores []zapcore.Core
	if console {
		cores = append(cores, consoleCore(lvl))
	}
	if fc.Path != "" {
		cores = append(cores, fileCore(fc, lvl))
	}
	install(zap.New(zapcore.NewTee(cores...), zap.AddCaller()))
	return nil
}

func consoleCore(lvl zapcore.Level) zapcore.Core {
	enc := encoderConfig(zapcore.TimeEncoderOfLayout("15:04:05"), zapcore.CapitalColorLevelEncoder)
	return zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(os.Stderr), lvl)
}

func fileCore(fc FileConfig, lvl zapcore.Level) zapcore.Core {
	w := &lumberjack.Logger{
		Filename:   fc.Path,
		MaxSize:    fc.MaxSizeMB,
		MaxBackups: fc.MaxBackups,
		MaxAge:     fc.MaxAgeDays,
		Compress:   fc.Compress,
		LocalTime:  true,
	}
	enc := encoderConfig(zapcore.ISO8601TimeEncoder, zapcore.CapitalLevelEncoder)
	return zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(w), lvl)
}

func encoderConfig(timeEnc zapcore.TimeEncoder, levelEnc zapcore.LevelEncoder) zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:          "time",
		LevelKey:         "level",
		NameKey:          "logger",
		MessageKey:       "msg",
		CallerKey:        "caller",
		EncodeTime:       timeEnc,
		EncodeLevel:      levelEnc,
		EncodeName:       zapcore.FullNameEncoder,
		EncodeCaller:     zapcore.ShortCallerEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " ",
	}
}

func parseLevel(level string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

func install(l *zap.Logger) {
	Log = l
	Sugar = l.Sugar()
}

// Nop discards all output. Tests call it to undo Init.
func Nop() {
	install(zap.NewNop())
}

// Named returns a child logger for one component, e.g. "flood".
func Named(component string) *zap.Logger {
	return Log.Named(component)
}

// ForChunk returns a child logger carrying the chunk id.
func ForChunk(id string) *zap.Logger {
	return Log.With(zap.String("chunk", id))
}

// Sync flushes buffered entries.
func Sync() {
	_ = Log.Sync()
}

func Debug(msg string, fields ...zap.Field) { Log.Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { Log.Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { Log.Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { Log.Error(msg, fields...) }
