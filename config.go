package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Pexels struct {
		Key string `json:"key"`
	} `json:"pexels.com"`
	Unsplash struct {
		AccessKey string `json:"access"`
		SecretKey string `json:"secret"`
	} `json:"unsplash.com"`
	Pixabay struct {
		Key string `json:"key"`
	} `json:"pixabay.com"`
	Server struct {
		Addr string `json:"addr"`
	} `json:"server"`
	Database string `json:"database"`
	Imagery  struct {
		ExpiryMinutes     int     `json:"expiryMinutes"`
		MaxImages         int     `json:"maxImages"`
		PerSourceCount    int     `json:"perSourceCount"`
		TimeoutSeconds    int     `json:"timeoutSeconds"`
		RequestsPerSecond float64 `json:"requestsPerSecond"`
	} `json:"imagery"`
	Log struct {
		Level       string `json:"level"`
		Development bool   `json:"development"`
	} `json:"log"`
	Debug struct {
		PrettyJson bool `json:"prettyJson"`
	}
}

const defaultConfigFile = "conf/config.json"

// LoadConfig reads the JSON config at path, then applies .env and environment
// overrides. A missing file is not an error: keys may come from the
// environment alone.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = defaultConfigFile
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := decodeConfig(data, cfg); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.setDefaults()
	return cfg, nil
}

func decodeConfig(data []byte, cfg *Config) error {
	err := json.NewDecoder(bytes.NewReader(data)).Decode(cfg)
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		pos := findPos(bufio.NewReader(bytes.NewReader(data)), int(syntaxErr.Offset))
		return fmt.Errorf("unable to decode configuration (Line: %d, Pos: %d): %w", pos.line, pos.pos, err)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("unable to decode configuration: %w", err)
	}
	return nil
}

func (cfg *Config) applyEnv() {
	overrides := []struct {
		env    string
		target *string
	}{
		{"PEXELS_KEY", &cfg.Pexels.Key},
		{"UNSPLASH_ACCESS_KEY", &cfg.Unsplash.AccessKey},
		{"UNSPLASH_SECRET_KEY", &cfg.Unsplash.SecretKey},
		{"PIXABAY_KEY", &cfg.Pixabay.Key},
		{"LISTEN_ADDR", &cfg.Server.Addr},
		{"DATABASE", &cfg.Database},
		{"LOG_LEVEL", &cfg.Log.Level},
	}
	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.env); ok && v != "" {
			*o.target = v
		}
	}
}

func (cfg *Config) setDefaults() {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8081"
	}
	if cfg.Database == "" {
		cfg.Database = dbFile
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Imagery.RequestsPerSecond <= 0 {
		cfg.Imagery.RequestsPerSecond = 5
	}
}

// Settings converts the imagery section into aggregator settings, keeping
// defaults for unset values.
func (cfg *Config) Settings() Settings {
	s := DefaultSettings()
	if cfg.Imagery.ExpiryMinutes > 0 {
		s.Expiry = time.Duration(cfg.Imagery.ExpiryMinutes) * time.Minute
	}
	if cfg.Imagery.MaxImages > 0 {
		s.MaxImages = cfg.Imagery.MaxImages
	}
	if cfg.Imagery.PerSourceCount > 0 {
		s.PerSourceCount = cfg.Imagery.PerSourceCount
	}
	if cfg.Imagery.TimeoutSeconds > 0 {
		s.CallTimeout = time.Duration(cfg.Imagery.TimeoutSeconds) * time.Second
	}
	return s
}

type FilePos struct {
	line int
	pos  int
}

// findPos converts a byte offset into a 1-based line and the column within it.
func findPos(file *bufio.Reader, offset int) FilePos {
	p := FilePos{line: 1, pos: offset}
	consumed := 0
	for {
		line, err := file.ReadBytes('\n')
		if len(line) == 0 || consumed+len(line) >= offset || err != nil {
			p.pos = offset - consumed
			return p
		}
		consumed += len(line)
		p.line++
	}
}
