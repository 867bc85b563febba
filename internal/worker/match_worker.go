package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"

	"github.com/campflow/matching-engine/internal/lock"
	"github.com/campflow/matching-engine/internal/logger"
	"github.com/campflow/matching-engine/internal/service"
)

const (
	// TopicMatchingCommands is the Kafka topic carrying matching commands
	TopicMatchingCommands = "matching.commands"

	ActionMatch   = "match"
	ActionConfirm = "confirm"
)

// Command asks the worker to run an action on a period. Commands are
// keyed by period id, so commands for one period arrive in order.
type Command struct {
	Action   string          `json:"action"`
	PeriodID uuid.UUID       `json:"period_id"`
	Settings map[string]bool `json:"settings,omitempty"`
}

// MatchWorkerConfig holds configuration for MatchWorker
type MatchWorkerConfig struct {
	Brokers        []string
	GroupID        string
	ClientID       string
	Topic          string
	SessionTimeout time.Duration

	ValidityCheck  bool
	StabilityCheck bool
	HardBudget     bool
}

// MatchWorker consumes matching commands and runs them through the
// matcher service, one record at a time.
type MatchWorker struct {
	config  *MatchWorkerConfig
	client  *kgo.Client
	matcher service.MatcherService
}

// NewMatchWorker creates a new MatchWorker
func NewMatchWorker(ctx context.Context, cfg *MatchWorkerConfig, matcher service.MatcherService) (*MatchWorker, error) {
	if cfg.Topic == "" {
		cfg.Topic = TopicMatchingCommands
	}
	if cfg.SessionTimeout == 0 {
		cfg.SessionTimeout = 30 * time.Second
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.GroupID),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.ClientID(cfg.ClientID),
		kgo.DisableAutoCommit(),
		kgo.SessionTimeout(cfg.SessionTimeout),
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka client: %w", err)
	}

	// Ping to verify connection
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Kafka: %w", err)
	}

	return &MatchWorker{
		config:  cfg,
		client:  client,
		matcher: matcher,
	}, nil
}

// Start begins consuming matching commands. Records are processed
// sequentially; a matching run may rewrite a whole period and must not
// race a confirm for the same period.
func (w *MatchWorker) Start(ctx context.Context) error {
	log := logger.Get()
	log.Info("match worker started", zap.String("topic", w.config.Topic))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		fetches := w.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}

		if errs := fetches.Errors(); len(errs) > 0 {
			for _, err := range errs {
				log.Error("fetch error",
					zap.String("topic", err.Topic),
					zap.Int32("partition", err.Partition),
					zap.Error(err.Err),
				)
			}
			continue
		}

		fetches.EachRecord(func(record *kgo.Record) {
			if err := w.Handle(ctx, record.Value); err != nil {
				log.Error("failed to process command", zap.Error(err))
			}
		})

		// Commit after processing
		if err := w.client.CommitUncommittedOffsets(ctx); err != nil {
			log.Error("failed to commit offsets", zap.Error(err))
		}
	}
}

// Handle runs a single matching command
func (w *MatchWorker) Handle(ctx context.Context, payload []byte) error {
	var cmd Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return fmt.Errorf("failed to unmarshal command: %w", err)
	}
	if cmd.PeriodID == uuid.Nil {
		return fmt.Errorf("command without period id")
	}

	log := logger.Get()

	switch cmd.Action {
	case ActionMatch:
		_, err := w.matcher.MatchPeriod(ctx, cmd.PeriodID, &service.MatchOptions{
			Settings:       cmd.Settings,
			ValidityCheck:  w.config.ValidityCheck,
			StabilityCheck: w.config.StabilityCheck,
			HardBudget:     w.config.HardBudget,
		})
		if errors.Is(err, lock.ErrAlreadyLocked) {
			// another run holds the period; its result supersedes ours
			log.Warn("period already being matched, skipping",
				zap.String("period_id", cmd.PeriodID.String()))
			return nil
		}
		return err

	case ActionConfirm:
		return w.matcher.ConfirmPeriod(ctx, cmd.PeriodID)

	default:
		return fmt.Errorf("unknown command action %q", cmd.Action)
	}
}

// Close closes the Kafka client
func (w *MatchWorker) Close() {
	w.client.Close()
}
