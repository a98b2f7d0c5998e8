// Package consumer implements the per-delivery judging contract and
// the worker pool that pulls submissions from the shared queue.
package consumer

import (
	"context"
	"encoding/json"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"grader/internal/config"
	"grader/internal/judge/model"
	"grader/internal/judge/sandbox"
	"grader/internal/judge/scoring"
	appErr "grader/pkg/errors"
	"grader/pkg/utils/contextkey"
	"grader/pkg/utils/logger"
)

// SubmissionStore is the slice of the persistence adapter the
// consumer needs.
type SubmissionStore interface {
	FetchSubmission(ctx context.Context, id uint64) (bool, error)
	SetStatus(ctx context.Context, id uint64, status string) error
	SetVerdict(ctx context.Context, id uint64, result model.JudgeResult) error
}

// BoxFactory builds the sandbox box for one submission. Swappable in
// tests.
type BoxFactory func(spec sandbox.BoxSpec) sandbox.Box

func defaultBoxFactory(spec sandbox.BoxSpec) sandbox.Box {
	return sandbox.NewIsolateBox(spec)
}

// Consumer is one logical judge worker. It owns a disjoint box id
// and processes one submission at a time.
type Consumer struct {
	cfg    *config.Config
	store  SubmissionStore
	engine *scoring.Engine
	root   string
	boxID  int
	tag    string
	newBox BoxFactory
}

// New creates a consumer bound to one box id.
func New(cfg *config.Config, store SubmissionStore, root string, boxID int, tag string) *Consumer {
	return &Consumer{
		cfg:    cfg,
		store:  store,
		engine: scoring.NewEngine(root),
		root:   root,
		boxID:  boxID,
		tag:    tag,
		newBox: defaultBoxFactory,
	}
}

// WithBoxFactory overrides box construction; used by tests.
func (c *Consumer) WithBoxFactory(factory BoxFactory) *Consumer {
	c.newBox = factory
	return c
}

// Run processes deliveries until the channel closes or the context
// is cancelled. A closed channel means the broker connection is
// gone, which is fatal for the process.
func (c *Consumer) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	ctx = context.WithValue(ctx, contextkey.WorkerID, c.boxID)
	logger.Info(ctx, "worker waiting for messages", zap.String("consumer_tag", c.tag))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return appErr.New(appErr.ConsumeFailed).WithMessagef("delivery channel closed for %s", c.tag)
			}
			if err := c.Handle(ctx, d); err != nil {
				return err
			}
		}
	}
}

// Handle runs the per-delivery contract. Every delivery is acked on
// exactly one terminal path; the sandbox is non-idempotent, so a
// judged submission is never redelivered. A returned error signals
// infrastructure loss and kills the worker.
func (c *Consumer) Handle(ctx context.Context, d amqp.Delivery) error {
	var msg model.SubmissionMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		logger.Error(ctx, "malformed submission payload", zap.String("consumer_tag", c.tag), zap.Error(err))
		return c.ack(d)
	}
	if msg.TaskID == "" || msg.SubmissionID == 0 || msg.Language == "" {
		logger.Error(ctx, "submission payload missing required fields", zap.String("consumer_tag", c.tag))
		return c.ack(d)
	}

	ctx = context.WithValue(ctx, contextkey.SubmissionID, msg.SubmissionID)
	logger.Info(ctx, "judging submission",
		zap.String("task_id", msg.TaskID),
		zap.String("consumer_tag", c.tag),
	)

	exists, err := c.store.FetchSubmission(ctx, msg.SubmissionID)
	if err != nil {
		return err
	}
	if !exists {
		logger.Warn(ctx, "submission not found, dropping")
		return c.ack(d)
	}

	if err := c.store.SetStatus(ctx, msg.SubmissionID, model.StatusJudging); err != nil {
		return err
	}

	result, judgeErr := c.judge(ctx, msg)
	if judgeErr != nil {
		logger.Warn(ctx, "judging failed", zap.Error(judgeErr))
		if err := c.store.SetStatus(ctx, msg.SubmissionID, model.StatusJudgeError); err != nil {
			return err
		}
		return c.ack(d)
	}

	if err := c.store.SetVerdict(ctx, msg.SubmissionID, result); err != nil {
		return err
	}
	logger.Info(ctx, "submission finished",
		zap.String("status", result.Status),
		zap.Uint64("score", result.Score),
	)
	return c.ack(d)
}

// judge resolves the language and manifest, provisions the worker's
// box and runs the scoring engine.
func (c *Consumer) judge(ctx context.Context, msg model.SubmissionMessage) (model.JudgeResult, error) {
	profile, err := c.cfg.LanguageProfile(msg.Language)
	if err != nil {
		return model.JudgeResult{}, err
	}
	manifest, err := config.LoadManifest(c.root, msg.TaskID)
	if err != nil {
		return model.JudgeResult{}, err
	}

	box := c.newBox(sandbox.BoxSpec{
		BoxID:         c.boxID,
		Root:          c.root,
		TaskID:        msg.TaskID,
		Code:          msg.Code,
		Ext:           profile.Ext,
		TimeLimit:     manifest.TimeLimit,
		MemoryLimitKB: manifest.MemoryLimitKB(),
		CompileTpl:    profile.Compile,
		RunTpl:        profile.Run,
		Checker:       manifest.Checker,
	})
	return c.engine.Judge(ctx, box, msg.TaskID, manifest)
}

func (c *Consumer) ack(d amqp.Delivery) error {
	if err := d.Ack(false); err != nil {
		return appErr.Wrapf(err, appErr.QueueError, "ack delivery failed")
	}
	return nil
}
