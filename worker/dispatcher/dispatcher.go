// Package dispatcher turns chat commands into ledger-gated pipeline runs and
// routes the outcome back to the chat transport.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chatWorker/worker/apperrors"
	"chatWorker/worker/ledger"
	"chatWorker/worker/models"
)

const (
	transcriptPrefix = "🗣️ "

	msgNoMedia         = "⚠️ Please reply to a voice message with /stt"
	msgInvalidMedia    = "⚠️ Invalid or corrupt audio message."
	msgSTTFailed       = "⚠️ Failed to transcribe audio message."
	msgTranslateFailed = "⚠️ Sorry, something went wrong during translation."

	detachedTimeout = 10 * time.Second
)

type Ledger interface {
	Lookup(ctx context.Context, key models.TaskKey) (*models.TaskRecord, error)
	BeginProcessing(ctx context.Context, key models.TaskKey) (models.Attempt, error)
	Complete(ctx context.Context, attempt models.Attempt, result string) error
	Fail(ctx context.Context, attempt models.Attempt) error
}

type MediaFetcher interface {
	Fetch(ctx context.Context, att models.Attachment) (string, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, mediaPath, language string) (string, error)
}

type Translator interface {
	Translate(ctx context.Context, text, language string) (string, error)
}

// Replier delivers a reply to the chat transport.
type Replier interface {
	SendReply(ctx context.Context, reply models.Reply) error
}

type Options struct {
	DefaultSTTLanguage string
	TaskTimeout        time.Duration
}

type Dispatcher struct {
	ledger      Ledger
	fetcher     MediaFetcher
	transcriber Transcriber
	translator  Translator
	replier     Replier
	opts        Options
	logger      *zap.Logger
}

func NewDispatcher(
	l Ledger,
	fetcher MediaFetcher,
	transcriber Transcriber,
	translator Translator,
	replier Replier,
	opts Options,
	logger *zap.Logger,
) *Dispatcher {
	opts.DefaultSTTLanguage = models.NormalizeLanguage(opts.DefaultSTTLanguage)
	return &Dispatcher{
		ledger:      l,
		fetcher:     fetcher,
		transcriber: transcriber,
		translator:  translator,
		replier:     replier,
		opts:        opts,
		logger:      logger,
	}
}

// Handle processes one chat event. Non-command messages are ignored. The
// returned error is only set for storage failures; pipeline failures are
// recorded in the ledger and answered with an apology.
func (d *Dispatcher) Handle(ctx context.Context, ev *models.ChatEvent) error {
	cmd, ok := ParseCommand(ev.Text)
	if !ok {
		return nil
	}

	traceID := uuid.New().String()
	logger := d.logger.With(
		zap.String("trace_id", traceID),
		zap.String("message_id", ev.ID),
		zap.String("command", string(cmd.Kind)),
	)

	req, err := buildRequest(ev, cmd, d.opts.DefaultSTTLanguage)
	if err != nil {
		logger.Warn("Dropping command without a task key", zap.Error(err))
		return nil
	}
	logger = logger.With(zap.String("task_key", req.Key.String()))
	send := func(text string) { d.reply(ctx, logger, ev, req.Command.Private, traceID, text) }

	switch {
	case req.Command.Kind == models.KindSTT && req.Media == nil:
		send(msgNoMedia)
		return nil
	case req.Command.Kind == models.KindTranslate && req.Query == "":
		logger.Debug("Ignoring translate command without text")
		return nil
	}

	record, err := d.ledger.Lookup(ctx, req.Key)
	if err != nil {
		logger.Error("Ledger lookup failed", zap.Error(err))
		send(failureText(req.Command.Kind, err))
		return err
	}
	if record != nil && record.Status == models.StatusDone {
		logger.Info("Relaying stored result")
		send(formatResult(req.Command.Kind, record.ResultText()))
		return nil
	}

	attempt, err := d.ledger.BeginProcessing(ctx, req.Key)
	if err != nil {
		if errors.Is(err, ledger.ErrAlreadyProcessing) {
			logger.Info("Duplicate request dropped while in flight")
			return nil
		}
		logger.Error("Failed to start task", zap.Error(err))
		send(failureText(req.Command.Kind, err))
		return err
	}

	started := time.Now()
	result, err := d.run(ctx, req)
	if err != nil {
		logger.Error("Task failed",
			zap.Error(err),
			zap.Duration("elapsed", time.Since(started)),
		)
		d.fail(ctx, logger, attempt)
		send(failureText(req.Command.Kind, err))
		return nil
	}

	if err := d.complete(ctx, attempt, result); err != nil {
		logger.Error("Failed to record task result", zap.Error(err))
		d.fail(ctx, logger, attempt)
	} else {
		logger.Info("Task completed", zap.Duration("elapsed", time.Since(started)))
	}
	send(formatResult(req.Command.Kind, result))
	return nil
}

// run executes the pipeline for req under the task timeout. A panic inside a
// pipeline becomes an error so the ledger record is still failed.
func (d *Dispatcher) run(ctx context.Context, req Request) (result string, err error) {
	if d.opts.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.TaskTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline panic: %v", r)
		}
	}()

	switch req.Command.Kind {
	case models.KindSTT:
		path, fetchErr := d.fetcher.Fetch(ctx, *req.Media)
		if fetchErr != nil {
			return "", fetchErr
		}
		return d.transcriber.Transcribe(ctx, path, req.Key.Language)
	case models.KindTranslate:
		return d.translator.Translate(ctx, req.Query, req.Key.Language)
	default:
		return "", fmt.Errorf("unsupported task kind %q", req.Command.Kind)
	}
}

// detached returns a bounded context that survives cancellation of ctx;
// ledger writes and replies after a run must land during shutdown too.
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), detachedTimeout)
}

func (d *Dispatcher) complete(ctx context.Context, attempt models.Attempt, result string) error {
	ctx, cancel := detached(ctx)
	defer cancel()
	return d.ledger.Complete(ctx, attempt, result)
}

func (d *Dispatcher) fail(ctx context.Context, logger *zap.Logger, attempt models.Attempt) {
	ctx, cancel := detached(ctx)
	defer cancel()
	if err := d.ledger.Fail(ctx, attempt); err != nil {
		logger.Error("Failed to mark task failed", zap.Error(err))
	}
}

func (d *Dispatcher) reply(ctx context.Context, logger *zap.Logger, ev *models.ChatEvent, private bool, traceID, text string) {
	reply := models.Reply{
		ChatID:  ev.ChatID,
		Text:    text,
		Private: private,
		TraceID: traceID,
	}
	if private {
		reply.ToSender = ev.SenderID
	} else {
		reply.QuotedID = ev.ID
	}

	ctx, cancel := detached(ctx)
	defer cancel()
	if err := d.replier.SendReply(ctx, reply); err != nil {
		logger.Error("Failed to send reply", zap.Error(err))
	}
}

func formatResult(kind models.TaskKind, result string) string {
	if kind == models.KindSTT {
		return transcriptPrefix + result
	}
	return result
}

func failureText(kind models.TaskKind, err error) string {
	if kind == models.KindTranslate {
		return msgTranslateFailed
	}
	if apperrors.Is(err, apperrors.KindMedia) {
		return msgInvalidMedia
	}
	return msgSTTFailed
}
