package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewProducerFlushesEachMessage(t *testing.T) {
	p := NewProducer(ProducerConfig{Brokers: []string{"localhost:9092"}, Topic: "sqlperf.runs"})
	defer p.Close()

	assert.Equal(t, 1, p.w.BatchSize)
	assert.False(t, p.w.Async)
	assert.Equal(t, 50*time.Millisecond, p.w.BatchTimeout)
	assert.Equal(t, "sqlperf.runs", p.w.Topic)
}

func TestNewProducerKeepsExplicitBatching(t *testing.T) {
	p := NewProducer(ProducerConfig{Brokers: []string{"localhost:9092"}, BatchSize: 10, BatchTimeout: time.Second})
	defer p.Close()

	assert.Equal(t, 10, p.w.BatchSize)
	assert.Equal(t, time.Second, p.w.BatchTimeout)
}
