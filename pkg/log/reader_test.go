package log

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCapture(t *testing.T, events []Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.glog")

	logger, err := NewFileLogger(path)
	require.NoError(t, err)
	for _, e := range events {
		logger.Log(e)
	}
	require.NoError(t, logger.Close())
	return path
}

func sampleEvents(base time.Time) []Event {
	return []Event{
		{Timestamp: base, ConnectionID: "a", Direction: DirectionOut, Layer: LayerTransport, Category: CategoryMessage,
			Frame: &FrameEvent{Size: 6, Data: []byte{0x12, 0x03, 0x08, 0xee, 0x04}}},
		{Timestamp: base.Add(time.Second), ConnectionID: "a", Direction: DirectionIn, Layer: LayerProtocol, Category: CategoryMessage,
			Message: &MessageEvent{Opcode: "42", Name: "ping_request"}},
		{Timestamp: base.Add(2 * time.Second), ConnectionID: "b", Mode: ModePin, Layer: LayerSession, Category: CategoryState,
			StateChange: &StateChangeEvent{Entity: StateEntityPairing, NewState: "PIN_PENDING"}, ThingID: "tv"},
		{Timestamp: base.Add(3 * time.Second), ConnectionID: "b", Direction: DirectionIn, Layer: LayerProtocol, Category: CategoryMessage,
			Message: &MessageEvent{Opcode: "c2", Name: "power"}, ThingID: "tv"},
	}
}

func readAll(t *testing.T, r *Reader) []Event {
	t.Helper()
	var events []Event
	for {
		e, err := r.Next()
		if err == io.EOF {
			return events
		}
		require.NoError(t, err)
		events = append(events, e)
	}
}

func TestReaderFilters(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	path := writeCapture(t, sampleEvents(base))

	in := DirectionIn
	protocolLayer := LayerProtocol
	state := CategoryState
	pin := ModePin
	start := base.Add(time.Second)
	end := base.Add(3 * time.Second)

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all", Filter{}, 4},
		{"connection", Filter{ConnectionID: "b"}, 2},
		{"direction", Filter{Direction: &in}, 3},
		{"layer", Filter{Layer: &protocolLayer}, 2},
		{"category", Filter{Category: &state}, 1},
		{"mode", Filter{Mode: &pin}, 1},
		{"opcode", Filter{Opcode: "42"}, 1},
		{"thing", Filter{ThingID: "tv"}, 2},
		{"time window", Filter{TimeStart: &start, TimeEnd: &end}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewFilteredReader(path, tt.filter)
			require.NoError(t, err)
			defer r.Close()
			assert.Len(t, readAll(t, r), tt.want)
		})
	}
}

func TestReaderCollect(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	path := writeCapture(t, sampleEvents(base))

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	stats, err := r.Collect()
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Events)
	assert.Equal(t, 2, stats.Connections)
	assert.Equal(t, 3, stats.ByCategory[CategoryMessage])
	assert.Equal(t, 1, stats.ByOpcode["c2"])
	assert.True(t, stats.FirstEvent.Equal(base))
	assert.True(t, stats.LastEvent.Equal(base.Add(3*time.Second)))
}

func TestReaderMissingFile(t *testing.T) {
	_, err := NewReader(filepath.Join(t.TempDir(), "missing.glog"))
	assert.Error(t, err)
}
