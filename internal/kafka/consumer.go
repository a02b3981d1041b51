package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/daily-meme-quiz/internal/config"
	"github.com/daily-meme-quiz/internal/domain"
)

// RunArchive persists completed runs in bulk
type RunArchive interface {
	RecordRuns(ctx context.Context, runs []domain.RunResult) error
}

// Consumer consumes run-completed events from Kafka into the archive
type Consumer struct {
	config        *config.KafkaConfig
	archive       RunArchive
	logger        *slog.Logger
	consumerGroup sarama.ConsumerGroup
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	ready         chan bool
}

// NewConsumer creates a new Kafka consumer
func NewConsumer(cfg *config.KafkaConfig, archive RunArchive, logger *slog.Logger) (*Consumer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_0_0_0
	saramaConfig.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaConfig.Consumer.Return.Errors = true

	consumerGroup, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, saramaConfig)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Consumer{
		config:        cfg,
		archive:       archive,
		logger:        logger,
		consumerGroup: consumerGroup,
		ctx:           ctx,
		cancel:        cancel,
		ready:         make(chan bool),
	}, nil
}

// Start begins consuming messages from Kafka
func (c *Consumer) Start() error {
	c.logger.Info("starting Kafka consumer",
		"brokers", c.config.Brokers,
		"topic", c.config.Topic,
		"group_id", c.config.GroupID,
	)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			handler := &consumerGroupHandler{
				consumer: c,
				ready:    c.ready,
			}

			if err := c.consumerGroup.Consume(c.ctx, []string{c.config.Topic}, handler); err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) {
					return
				}
				c.logger.Error("error from consumer", "error", err)
			}

			if c.ctx.Err() != nil {
				return
			}

			c.ready = make(chan bool)
		}
	}()

	// Wait until consumer is ready
	<-c.ready
	c.logger.Info("Kafka consumer ready")

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-c.ctx.Done():
				return
			case err, ok := <-c.consumerGroup.Errors():
				if !ok {
					return
				}
				c.logger.Error("consumer group error", "error", err)
			}
		}
	}()

	return nil
}

// Stop gracefully stops the consumer
func (c *Consumer) Stop() error {
	c.logger.Info("stopping Kafka consumer")
	c.cancel()
	c.wg.Wait()
	return c.consumerGroup.Close()
}

// consumerGroupHandler implements sarama.ConsumerGroupHandler
type consumerGroupHandler struct {
	consumer *Consumer
	ready    chan bool
}

// Setup is called at the beginning of a new session
func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	close(h.ready)
	return nil
}

// Cleanup is called at the end of a session
func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim processes messages from a topic partition
func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	cfg := h.consumer.config
	batch := newRunBatch(h.consumer.archive, cfg.BatchSize, h.consumer.logger)
	batchTimer := time.NewTimer(cfg.BatchTimeout)
	defer batchTimer.Stop()

	for {
		select {
		case <-session.Context().Done():
			// Process remaining batch before exit
			batch.flush()
			return nil

		case <-batchTimer.C:
			batch.flush()
			batchTimer.Reset(cfg.BatchTimeout)

		case message, ok := <-claim.Messages():
			if !ok {
				batch.flush()
				return nil
			}

			run, err := DecodeRun(message.Value)
			if err != nil {
				h.consumer.logger.Warn("skipping run event",
					"error", err,
					"offset", message.Offset,
					"partition", message.Partition,
				)
				session.MarkMessage(message, "")
				continue
			}

			session.MarkMessage(message, "")
			if batch.add(run) {
				batch.flush()
				batchTimer.Reset(cfg.BatchTimeout)
			}
		}
	}
}

// runBatch accumulates decoded runs until they are flushed to the archive
type runBatch struct {
	archive RunArchive
	size    int
	runs    []domain.RunResult
	logger  *slog.Logger
}

func newRunBatch(archive RunArchive, size int, logger *slog.Logger) *runBatch {
	if size <= 0 {
		size = 1
	}
	return &runBatch{
		archive: archive,
		size:    size,
		runs:    make([]domain.RunResult, 0, size),
		logger:  logger,
	}
}

// add queues a run and reports whether the batch is full
func (b *runBatch) add(run domain.RunResult) bool {
	b.runs = append(b.runs, run)
	return len(b.runs) >= b.size
}

func (b *runBatch) flush() {
	if len(b.runs) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := b.archive.RecordRuns(ctx, b.runs); err != nil {
		b.logger.Error("failed to archive runs", "error", err, "batch_size", len(b.runs))
	} else {
		b.logger.Debug("archived runs", "batch_size", len(b.runs))
	}

	b.runs = b.runs[:0]
}

// DecodeRun parses and checks one run-completed event
func DecodeRun(value []byte) (domain.RunResult, error) {
	var run domain.RunResult
	if err := json.Unmarshal(value, &run); err != nil {
		return run, fmt.Errorf("unmarshaling run: %w", err)
	}
	if run.RunID == "" || run.PlayerID == "" {
		return run, fmt.Errorf("%w: run_id and player_id are required", domain.ErrInvalidRequest)
	}
	if err := domain.ValidateDate(run.Date); err != nil {
		return run, err
	}
	switch run.Classification {
	case domain.ClassificationOfficial, domain.ClassificationPractice:
	default:
		return run, fmt.Errorf("%w: unknown classification %q", domain.ErrInvalidRequest, run.Classification)
	}
	return run, nil
}
