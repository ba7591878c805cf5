package internal

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xiaobogaga/minicc/util"
	"gopkg.in/yaml.v3"
)

// Config controls the shape of the generated assembly. It can be loaded from a yaml file such as:
//
//	entry_symbol: main
//	frame_slots: 26
//	label_prefix: .L
//	comments: true
type Config struct {
	// EntrySymbol is the exported name of the generated function.
	EntrySymbol string `yaml:"entry_symbol"`
	// FrameSlots bounds the number of distinct identifiers. 0 sizes the frame dynamically.
	FrameSlots int `yaml:"frame_slots"`
	// LabelPrefix is prepended to every generated branch target.
	LabelPrefix string `yaml:"label_prefix"`
	// Comments annotates every top level statement with its source form.
	Comments bool `yaml:"comments"`
}

func DefaultConfig() Config {
	return Config{
		EntrySymbol: "main",
		LabelPrefix: ".L",
	}
}

// LoadConfig reads a yaml config file. Keys missing from the file keep their default values, unknown keys
// are rejected.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	config, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return config, nil
}

func ParseConfig(data []byte) (Config, error) {
	config := DefaultConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	err := decoder.Decode(&config)
	if err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	return config, config.Validate()
}

func (config Config) Validate() error {
	if config.FrameSlots < 0 {
		return fmt.Errorf("frame_slots must not be negative, got %d", config.FrameSlots)
	}
	if !isSymbolName(config.EntrySymbol) {
		return fmt.Errorf("entry_symbol %q is not a valid symbol name", config.EntrySymbol)
	}
	if !isSymbolName(strings.TrimPrefix(config.LabelPrefix, ".")) {
		return fmt.Errorf("label_prefix %q is not a valid label prefix", config.LabelPrefix)
	}
	return nil
}

// withDefaults fills zero valued fields, so a zero Config behaves like DefaultConfig.
func (config Config) withDefaults() Config {
	defaults := DefaultConfig()
	if config.EntrySymbol == "" {
		config.EntrySymbol = defaults.EntrySymbol
	}
	if config.LabelPrefix == "" {
		config.LabelPrefix = defaults.LabelPrefix
	}
	return config
}

func isSymbolName(name string) bool {
	if name == "" || !util.IsIdentifierStart(name[0]) {
		return false
	}
	for i := 1; i < len(name); i++ {
		if !util.IsIdentifierPart(name[i]) {
			return false
		}
	}
	return true
}
