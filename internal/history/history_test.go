package history

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readRecords(t *testing.T, path string) []record {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var recs []record
	for _, line := range splitLines(data) {
		var rec record
		require.NoError(t, json.Unmarshal(line, &rec))
		recs = append(recs, rec)
	}
	return recs
}

func splitLines(data []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, b := range data {
		if b == '\n' {
			if i > start {
				lines = append(lines, data[start:i])
			}
			start = i + 1
		}
	}
	return lines
}

func TestRecorder_AppendsRunBoundaries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	r := NewRecorder(path, nil)

	r.RunStarted("order-sync", "run-1")
	r.RunCompleted("order-sync", "run-1", nil)
	r.RunStarted("order-sync", "run-2")
	r.RunCompleted("order-sync", "run-2", errors.New("step failed"))

	recs := readRecords(t, path)
	require.Len(t, recs, 4)

	assert.Equal(t, "started", recs[0].Event)
	assert.Equal(t, "run-1", recs[0].RunID)
	assert.Empty(t, recs[0].Error)

	assert.Equal(t, "completed", recs[1].Event)
	assert.Empty(t, recs[1].Error)

	assert.Equal(t, "completed", recs[3].Event)
	assert.Equal(t, "step failed", recs[3].Error)
	assert.False(t, recs[3].Timestamp.IsZero())
}

func TestRecorder_WriteFailureIsAdvisory(t *testing.T) {
	// Unwritable path: recording must not panic or block the run.
	r := NewRecorder(filepath.Join(t.TempDir(), "missing", "deep", "history.jsonl"), nil)
	r.RunStarted("order-sync", "run-1")
	r.RunCompleted("order-sync", "run-1", nil)
}

type countingObserver struct {
	started, completed int
	lastErr            error
}

func (c *countingObserver) RunStarted(flowID, runID string) { c.started++ }

func (c *countingObserver) RunCompleted(flowID, runID string, runErr error) {
	c.completed++
	c.lastErr = runErr
}

func TestMulti_FansOut(t *testing.T) {
	a := &countingObserver{}
	b := &countingObserver{}
	m := Multi{a, b}

	m.RunStarted("f", "r")
	m.RunCompleted("f", "r", errors.New("boom"))

	assert.Equal(t, 1, a.started)
	assert.Equal(t, 1, b.completed)
	assert.EqualError(t, b.lastErr, "boom")
}
