package logx

import (
	"cmp"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"hwbot/internal/transport"
)

type Config struct {
	Level    string
	Console  bool
	File     FileConfig
	Telegram TelegramConfig
}

type FileConfig struct {
	Enabled bool
	Path    string
}

type TelegramConfig struct {
	Enabled     bool
	Destination string
	MinLevel    string
	RatePerSec  int
}

// Service owns the configured sinks and swaps them on Apply.
type Service struct {
	mu   sync.Mutex
	file *os.File
	sink *telegramSink // nil without a sender

	root atomic.Pointer[zerolog.Logger]
}

// New applies cfg and returns the service with its live root logger.
// sender may be nil, which disables the Telegram sink.
func New(cfg Config, sender transport.Sender) (*Service, Logger) {
	s := &Service{}
	if sender != nil {
		s.sink = newTelegramSink(sender)
	}
	s.Apply(cfg)
	return s, Logger{root: &s.root}
}

// Apply rebuilds the outputs from cfg. Safe to call concurrently with logging.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var writers []io.Writer
	if cfg.Console {
		writers = append(writers, consoleWriter(os.Stdout))
	}

	prev := s.file
	s.file = nil
	if cfg.File.Enabled {
		path := cmp.Or(strings.TrimSpace(cfg.File.Path), "./hwbot.log")
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "logx: open %s: %v\n", path, err)
		} else {
			s.file = f
			writers = append(writers, zerolog.SyncWriter(f))
		}
	}

	if s.sink != nil {
		s.sink.configure(cfg.Telegram)
		if cfg.Telegram.Enabled {
			writers = append(writers, s.sink)
		}
	}
	if len(writers) == 0 {
		writers = append(writers, consoleWriter(os.Stdout))
	}

	zl := build(zerolog.MultiLevelWriter(writers...), parseLevel(cfg.Level, zerolog.InfoLevel))
	s.root.Store(&zl)
	if prev != nil {
		_ = prev.Close()
	}
}

// Close stops the Telegram sink and closes the log file.
func (s *Service) Close() error {
	s.mu.Lock()
	f := s.file
	s.file = nil
	s.mu.Unlock()

	if s.sink != nil {
		s.sink.stop()
	}
	if f != nil {
		return f.Close()
	}
	return nil
}
