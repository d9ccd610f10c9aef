package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"

	"relaychat/internal/protocol/envelope"
	"relaychat/internal/server"
	"relaychat/internal/services/account"
	"relaychat/internal/store"
)

const (
	defaultListen  = ":8084"
	defaultPath    = "/"
	defaultKeyDir  = "keys"
	defaultDataDir = "data"

	// MinKeyBits is the smallest server key accepted by configuration.
	MinKeyBits     = 2048
	defaultKeyBits = 4096
)

// Server is the listener configuration.
type Server struct {
	// Listen is the WebSocket listen address.
	Listen string
	// Path is the HTTP path the WebSocket endpoint is mounted on.
	Path string
	// MetricsListen is the prometheus listen address; empty disables it.
	MetricsListen string
	// AllowedOrigins lists accepted browser origins ("*" for any).
	AllowedOrigins []string
	// ChunkSize is the envelope plaintext chunk size.
	ChunkSize int
	// ReadLimit bounds one inbound frame in bytes.
	ReadLimit int64
	// WriteTimeout bounds one outbound frame.
	WriteTimeout time.Duration
}

// Keys is the server keypair configuration.
type Keys struct {
	Dir        string
	Bits       int
	Passphrase string
}

// Accounts selects the credential store.
type Accounts struct {
	// Backend is one of "bolt", "badger" or "memory".
	Backend string
	// Path is the database file (bolt) or directory (badger).
	Path string
}

// Argon holds the password digest costs.
type Argon struct {
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
}

// Logging is the logger configuration.
type Logging struct {
	// Level is a logrus level name.
	Level string
	// Format is "text" or "json".
	Format string
}

// Config is the top level relay configuration.
type Config struct {
	Server   Server
	Keys     Keys
	Accounts Accounts
	Argon    Argon
	Logging  Logging
}

// Default returns a Config with every default applied.
func Default() *Config {
	cfg := new(Config)
	_ = cfg.FixupAndValidate()
	return cfg
}

// FixupAndValidate applies defaults to config entries and validates the
// supplied configuration. Most people should call one of the Load variants
// instead.
func (cfg *Config) FixupAndValidate() error {
	s := &cfg.Server
	if s.Listen == "" {
		s.Listen = defaultListen
	}
	if s.Path == "" {
		s.Path = defaultPath
	}
	if !strings.HasPrefix(s.Path, "/") {
		return fmt.Errorf("config: Server.Path %q must start with /", s.Path)
	}
	if s.ChunkSize == 0 {
		s.ChunkSize = envelope.DefaultChunkSize
	}
	if s.ChunkSize < 0 {
		return fmt.Errorf("config: Server.ChunkSize %d is negative", s.ChunkSize)
	}
	if s.ReadLimit == 0 {
		s.ReadLimit = server.DefaultReadLimit
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = server.DefaultWriteTimeout
	}

	k := &cfg.Keys
	if k.Dir == "" {
		k.Dir = defaultKeyDir
	}
	if k.Bits == 0 {
		k.Bits = defaultKeyBits
	}
	if k.Bits < MinKeyBits {
		return fmt.Errorf("config: Keys.Bits %d below minimum %d", k.Bits, MinKeyBits)
	}

	a := &cfg.Accounts
	switch a.Backend {
	case "":
		a.Backend = store.BackendBolt
		fallthrough
	case store.BackendBolt:
		if a.Path == "" {
			a.Path = filepath.Join(defaultDataDir, "accounts.db")
		}
	case store.BackendBadger:
		if a.Path == "" {
			a.Path = filepath.Join(defaultDataDir, "accounts")
		}
	case store.BackendMemory:
	default:
		return fmt.Errorf("config: unknown Accounts.Backend %q", a.Backend)
	}

	if cfg.Argon.Time == 0 {
		cfg.Argon.Time = account.DefaultArgon2.Time
	}
	if cfg.Argon.MemoryKiB == 0 {
		cfg.Argon.MemoryKiB = account.DefaultArgon2.MemoryKiB
	}
	if cfg.Argon.Threads == 0 {
		cfg.Argon.Threads = account.DefaultArgon2.Threads
	}

	l := &cfg.Logging
	if l.Level == "" {
		l.Level = "info"
	}
	if _, err := logrus.ParseLevel(l.Level); err != nil {
		return fmt.Errorf("config: Logging.Level: %w", err)
	}
	switch l.Format {
	case "":
		l.Format = "text"
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown Logging.Format %q", l.Format)
	}
	return nil
}

// Load parses and validates the provided buffer b as a config file body and
// returns the Config.
func Load(b []byte) (*Config, error) {
	if b == nil {
		return nil, errors.New("config: nil buffer")
	}

	cfg := new(Config)
	md, err := toml.Decode(string(b), cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config: unknown keys %v", undecoded)
	}
	if err := cfg.FixupAndValidate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads, parses and validates the provided file and returns the
// Config.
func LoadFile(f string) (*Config, error) {
	b, err := os.ReadFile(f)
	if err != nil {
		return nil, err
	}
	return Load(b)
}
