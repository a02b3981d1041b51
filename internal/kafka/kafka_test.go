package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/daily-meme-quiz/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleRun() domain.RunResult {
	return domain.RunResult{
		RunID:          "run-1",
		Date:           "2024-01-01",
		PlayerID:       "u1",
		Username:       "alice",
		Score:          6500,
		Classification: domain.ClassificationOfficial,
		CompletedAt:    time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
	}
}

type capturingArchive struct {
	batches [][]domain.RunResult
	err     error
}

func (a *capturingArchive) RecordRuns(_ context.Context, runs []domain.RunResult) error {
	a.batches = append(a.batches, append([]domain.RunResult(nil), runs...))
	return a.err
}

func TestDecodeRun(t *testing.T) {
	valid, err := json.Marshal(sampleRun())
	require.NoError(t, err)

	run, err := DecodeRun(valid)
	require.NoError(t, err)
	assert.Equal(t, sampleRun(), run)

	tests := []struct {
		name   string
		mutate func(r *domain.RunResult)
	}{
		{"missing run id", func(r *domain.RunResult) { r.RunID = "" }},
		{"missing player", func(r *domain.RunResult) { r.PlayerID = "" }},
		{"bad date", func(r *domain.RunResult) { r.Date = "2024-1-1" }},
		{"bad classification", func(r *domain.RunResult) { r.Classification = "ranked" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := sampleRun()
			tt.mutate(&run)
			data, err := json.Marshal(run)
			require.NoError(t, err)

			_, err = DecodeRun(data)
			assert.Error(t, err)
		})
	}

	_, err = DecodeRun([]byte("not json"))
	assert.Error(t, err)
}

func TestRunBatch(t *testing.T) {
	archive := &capturingArchive{}
	batch := newRunBatch(archive, 2, testLogger())

	batch.flush()
	assert.Empty(t, archive.batches, "empty batch is not written")

	assert.False(t, batch.add(sampleRun()))
	assert.True(t, batch.add(sampleRun()))
	batch.flush()
	require.Len(t, archive.batches, 1)
	assert.Len(t, archive.batches[0], 2)

	archive.err = errors.New("db down")
	batch.add(sampleRun())
	batch.flush()
	require.Len(t, archive.batches, 2)

	batch.flush()
	assert.Len(t, archive.batches, 2, "failed batches are dropped, not retried")
}

func TestProducer_RecordRun(t *testing.T) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	mock := mocks.NewSyncProducer(t, cfg)

	mock.ExpectSendMessageWithCheckerFunctionAndSucceed(func(value []byte) error {
		run, err := DecodeRun(value)
		if err != nil {
			return err
		}
		if run.Score != 6500 {
			return errors.New("unexpected score")
		}
		return nil
	})
	mock.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	producer := NewProducerWithClient(mock, "daily-runs", testLogger())
	require.NoError(t, producer.RecordRun(context.Background(), sampleRun()))

	err := producer.RecordRun(context.Background(), sampleRun())
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)

	require.NoError(t, producer.Close())
}
