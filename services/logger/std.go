// Package logsvc provides the core.Logger implementations.
package logsvc

import (
	"log"
	"os"
	"strings"

	"github.com/trezcool/educloud/core"
	"github.com/trezcool/educloud/core/session"
)

// Levels
const (
	LevelDebug = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[int]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

// StdLogger prints to a std log.Logger, dropping messages under its level.
type StdLogger struct {
	std   *log.Logger
	level int
}

var _ core.Logger = (*StdLogger)(nil)

func NewStdLogger(std *log.Logger, level int) *StdLogger {
	if std == nil {
		std = log.New(os.Stderr, "", log.LstdFlags)
	}
	return &StdLogger{std: std, level: level}
}

// New returns the logger matching conf: rollbar backed when a token is set, std otherwise.
func New(conf *core.Config) core.Logger {
	std := log.New(os.Stderr, strings.ToUpper(conf.AppName)+" : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	if conf.RollbarToken != "" {
		return NewRollbarLogger(std, conf)
	}
	level := LevelInfo
	if conf.Debug {
		level = LevelDebug
	}
	return NewStdLogger(std, level)
}

func (l *StdLogger) print(level int, msg string, args []interface{}) {
	if level < l.level {
		return
	}
	l.std.Printf("[%s] %s", levelNames[level], msg)
	for _, arg := range args {
		if claims, ok := arg.(*session.Claims); ok {
			if claims != nil {
				l.std.Printf("  user: %s <%s>", claims.UserID(), claims.Email)
			}
			continue
		}
		l.std.Printf("  %+v", arg)
	}
}

func (l *StdLogger) Debug(msg string, args ...interface{}) { l.print(LevelDebug, msg, args) }
func (l *StdLogger) Info(msg string, args ...interface{})  { l.print(LevelInfo, msg, args) }
func (l *StdLogger) Warn(msg string, args ...interface{})  { l.print(LevelWarn, msg, args) }
func (l *StdLogger) Error(msg string, args ...interface{}) { l.print(LevelError, msg, args) }

func (l *StdLogger) Fatal(msg string, args ...interface{}) {
	l.print(LevelError, msg, args)
	l.std.Fatal(msg)
}
