package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAndSetDefaultsFillsZeroValues(t *testing.T) {
	cfg := Config{}
	require.NoError(t, ValidateConfig(&cfg))

	assert.Equal(t, "hide", cfg.Walk.Hidden)
	assert.Equal(t, -1, cfg.Walk.MaxDepth)
	assert.Equal(t, "none", cfg.Walk.Sort)
	assert.Greater(t, cfg.Walk.Threads, 0)
	assert.NotEmpty(t, cfg.Walk.IgnoreFileNames)

	assert.Equal(t, "adaptive", cfg.Search.BufferPolicy)
	assert.Equal(t, "quit", cfg.Search.BinaryDetection)
	assert.Equal(t, "auto", cfg.Search.Mmap)
	assert.Equal(t, "\n", cfg.Search.LineTerminator)

	assert.Equal(t, 200, cfg.Watch.DebounceMs)
}

func TestValidateRejectsUnknownHiddenPolicy(t *testing.T) {
	cfg := Config{Walk: Walk{Hidden: "sometimes"}}
	assert.Error(t, ValidateConfig(&cfg))
}

func TestValidateRejectsUnknownSort(t *testing.T) {
	cfg := Config{Walk: Walk{Sort: "alphabetical"}}
	assert.Error(t, ValidateConfig(&cfg))
}

func TestValidateRejectsNegativeMaxFilesize(t *testing.T) {
	cfg := Config{Walk: Walk{MaxFilesize: -1}}
	assert.Error(t, ValidateConfig(&cfg))
}

func TestValidateRejectsMultiByteLineTerminator(t *testing.T) {
	cfg := Config{Search: Search{LineTerminator: "\r\n"}}
	assert.Error(t, ValidateConfig(&cfg))
}

func TestValidateRejectsUnknownBinaryDetection(t *testing.T) {
	cfg := Config{Search: Search{BinaryDetection: "ignore"}}
	assert.Error(t, ValidateConfig(&cfg))
}

func TestValidateRejectsNegativeDebounce(t *testing.T) {
	cfg := Config{Watch: Watch{DebounceMs: -5}}
	assert.Error(t, ValidateConfig(&cfg))
}
