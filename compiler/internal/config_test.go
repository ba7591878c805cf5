package internal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	testData := []struct {
		Content string
		Config  Config
		Err     bool
	}{
		{Content: "", Config: DefaultConfig()},
		{Content: "frame_slots: 26\n", Config: Config{EntrySymbol: "main", FrameSlots: 26, LabelPrefix: ".L"}},
		{Content: "entry_symbol: _start\nlabel_prefix: .LX\ncomments: true\n",
			Config: Config{EntrySymbol: "_start", LabelPrefix: ".LX", Comments: true}},
		{Content: "frame_slot: 3\n", Err: true},
		{Content: "frame_slots: -1\n", Err: true},
		{Content: "entry_symbol: 1main\n", Err: true},
		{Content: "label_prefix: \"\"\n", Err: true},
		{Content: "label_prefix: .\n", Err: true},
		{Content: "label_prefix: \".L x\"\n", Err: true},
		{Content: "label_prefix: \".L:\"\n", Err: true},
		{Content: "label_prefix: ..L\n", Err: true},
		{Content: "label_prefix: L_\n", Config: Config{EntrySymbol: "main", LabelPrefix: "L_"}},
		{Content: "frame_slots: [\n", Err: true},
	}
	for _, data := range testData {
		config, err := ParseConfig([]byte(data.Content))
		if data.Err {
			assert.NotNil(t, err, data.Content)
			continue
		}
		require.Nil(t, err, data.Content)
		assert.Equal(t, data.Config, config, data.Content)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minicc.yaml")
	require.Nil(t, os.WriteFile(path, []byte("frame_slots: 4\ncomments: true\n"), 0o644))
	config, err := LoadConfig(path)
	require.Nil(t, err)
	assert.Equal(t, 4, config.FrameSlots)
	assert.True(t, config.Comments)
	assert.Equal(t, "main", config.EntrySymbol)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
