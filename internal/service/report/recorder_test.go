package report

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jmehdipour/sqlperf-lab/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	key, value []byte
	err        error
}

func (p *fakePublisher) Publish(_ context.Context, key, value []byte) error {
	p.key, p.value = key, value
	return p.err
}

type fakeRuns struct{ got []model.RunEvent }

func (r *fakeRuns) Insert(_ context.Context, ev model.RunEvent) error {
	r.got = append(r.got, ev)
	return nil
}

func sampleEvent() model.RunEvent {
	return model.RunEvent{
		RunID:          "01HZZZ",
		Source:         "api",
		Path:           model.PathFast,
		Limit:          10,
		Rows:           10,
		ElapsedSeconds: 0.0123,
		CreatedAt:      time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestKafkaSinkPublishesJSONKeyedByRunID(t *testing.T) {
	pub := &fakePublisher{}
	require.NoError(t, NewKafkaSink(pub).Write(context.Background(), sampleEvent()))

	assert.Equal(t, "01HZZZ", string(pub.key))
	var got model.RunEvent
	require.NoError(t, json.Unmarshal(pub.value, &got))
	assert.Equal(t, sampleEvent(), got)
}

func TestRecorderSurvivesFailingSink(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	runs := &fakeRuns{}

	rec := NewRecorder(nil, NewKafkaSink(pub), NewClickHouseSink(runs))
	assert.NotPanics(t, func() { rec.Report(context.Background(), sampleEvent()) })

	require.Len(t, runs.got, 1)
	assert.Equal(t, "01HZZZ", runs.got[0].RunID)
}

func TestRecorderIgnoresCancelledRequest(t *testing.T) {
	runs := &fakeRuns{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	NewRecorder(nil, NewClickHouseSink(runs)).Report(ctx, sampleEvent())
	assert.Len(t, runs.got, 1)
}

func TestRecorderWithoutSinks(t *testing.T) {
	assert.NotPanics(t, func() { NewRecorder(nil).Report(context.Background(), sampleEvent()) })
}
