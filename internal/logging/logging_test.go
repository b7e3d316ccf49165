package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONCarriesCycleID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := New(Config{Level: "debug", Format: "json", Output: &buf})
	ctx, id := WithCycleID(context.Background())

	log.With(String("interface", "wan")).Debug(ctx, "collected", Int("fields", 3), Err(errors.New("boom")))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "collected", line["msg"])
	assert.Equal(t, "wan", line["interface"])
	assert.Equal(t, id, line["cycle_id"])
	assert.Equal(t, "boom", line["error"])
}

func TestNew_LevelFilters(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := New(Config{Level: "warn", Format: "text", Output: &buf})
	log.Info(context.Background(), "hidden")
	assert.Zero(t, buf.Len())
	log.Warn(context.Background(), "shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestCycleID_Absent(t *testing.T) {
	t.Parallel()

	assert.Empty(t, CycleID(context.Background()))
	Noop().With(String("k", "v")).Error(context.Background(), "dropped")
}
