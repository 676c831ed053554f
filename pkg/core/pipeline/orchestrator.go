// Package pipeline runs one conversational turn: optional transcription,
// history update, chat reply and speech synthesis.
package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vango-go/vai-talk/pkg/core"
	"github.com/vango-go/vai-talk/pkg/core/chat"
	"github.com/vango-go/vai-talk/pkg/core/conversation"
	"github.com/vango-go/vai-talk/pkg/core/types"
	"github.com/vango-go/vai-talk/pkg/core/voice/tts"
)

// ErrEmptyMessage is wrapped by the validation failure for blank text input.
var ErrEmptyMessage = errors.New("message is empty")

// Transcriber turns an upload into text. See stt.Adapter.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
}

// Synthesizer turns reply text into a published artifact. See tts.Adapter.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (tts.Artifact, error)
}

// Observer receives stage outcomes. err is nil on success.
type Observer interface {
	ObserveStage(stage core.Stage, elapsed time.Duration, err error)
	ObserveTurn(role types.Role)
}

// Timeouts bound each remote call. Zero disables the bound.
type Timeouts struct {
	STT  time.Duration
	Chat time.Duration
	TTS  time.Duration
}

// Deps wires an Orchestrator.
type Deps struct {
	Store     conversation.Store
	Locks     *conversation.SessionLocks
	STT       Transcriber
	Responder chat.Responder
	TTS       Synthesizer
	Prompt    chat.PromptBuilder
	Timeouts  Timeouts
	Logger    *slog.Logger
	Observer  Observer
}

// Input is one turn request. Audio, when non-nil, takes precedence over
// Message.
type Input struct {
	RequestID string
	SessionID string
	Message   string
	Audio     io.Reader
	Filename  string
}

// Result is a completed turn.
type Result struct {
	SessionID       string
	Text            string
	AudioURL        string
	TranscribedText string
}

type Orchestrator struct {
	store     conversation.Store
	locks     *conversation.SessionLocks
	stt       Transcriber
	responder chat.Responder
	tts       Synthesizer
	prompt    chat.PromptBuilder
	timeouts  Timeouts
	logger    *slog.Logger
	observer  Observer
}

func New(d Deps) *Orchestrator {
	if d.Store == nil {
		d.Store = conversation.NewMemoryStore()
	}
	if d.Locks == nil {
		d.Locks = conversation.NewSessionLocks()
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Observer == nil {
		d.Observer = nopObserver{}
	}
	if d.Prompt.Window < 1 {
		d.Prompt.Window = chat.DefaultWindow
	}
	return &Orchestrator{
		store:     d.Store,
		locks:     d.Locks,
		stt:       d.STT,
		responder: d.Responder,
		tts:       d.TTS,
		prompt:    d.Prompt,
		timeouts:  d.Timeouts,
		logger:    d.Logger,
		observer:  d.Observer,
	}
}

// Transcribe runs only the transcription stage.
func (o *Orchestrator) Transcribe(ctx context.Context, requestID string, audio io.Reader, filename string) (string, error) {
	log := o.logger.With("request_id", requestID)
	var text string
	err := o.run(ctx, log, core.StageTranscribe, o.timeouts.STT, func(ctx context.Context) error {
		var err error
		text, err = o.stt.Transcribe(ctx, audio, filename)
		return err
	})
	return text, err
}

// Converse runs a full turn. On chat failure the user turn stays recorded
// without an assistant turn; on synthesis failure both turns stay recorded.
func (o *Orchestrator) Converse(ctx context.Context, in Input) (*Result, error) {
	res := &Result{SessionID: in.SessionID}
	if res.SessionID == "" {
		res.SessionID = uuid.NewString()
	}
	log := o.logger.With("request_id", in.RequestID, "session_id", res.SessionID)

	message := in.Message
	if in.Audio != nil {
		text, err := o.Transcribe(ctx, in.RequestID, in.Audio, in.Filename)
		if err != nil {
			return nil, err
		}
		message = text
		res.TranscribedText = text
	} else if strings.TrimSpace(message) == "" {
		err := core.NewStageError(core.StageValidate, core.KindEmptyMessage, ErrEmptyMessage)
		log.Info("turn rejected", "stage", core.StageValidate, "error", err)
		return nil, err
	}

	reply, err := o.reply(ctx, log, res.SessionID, message)
	if err != nil {
		return nil, err
	}
	res.Text = reply

	err = o.run(ctx, log, core.StageTTS, o.timeouts.TTS, func(ctx context.Context) error {
		art, err := o.tts.Synthesize(ctx, reply)
		if err != nil {
			return err
		}
		res.AudioURL = art.URL
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("turn completed", "audio_url", res.AudioURL)
	return res, nil
}

// reply holds the session's section across append-user, recent, chat and
// append-assistant so same-session turns never interleave.
func (o *Orchestrator) reply(ctx context.Context, log *slog.Logger, sessionID, message string) (string, error) {
	unlock, err := o.locks.Lock(ctx, sessionID)
	if err != nil {
		err = core.NewStageError(core.StageChat, core.KindGenerationFailed, err)
		o.observer.ObserveStage(core.StageChat, 0, err)
		log.Warn("session busy", "stage", core.StageChat, "error", err)
		return "", err
	}
	defer unlock()

	var reply string
	err = o.run(ctx, log, core.StageChat, o.timeouts.Chat, func(ctx context.Context) error {
		if err := o.store.Append(ctx, sessionID, types.UserTurn(message)); err != nil {
			return core.NewStageError(core.StageChat, core.KindGenerationFailed, err)
		}
		o.observer.ObserveTurn(types.RoleUser)

		recent, err := o.store.Recent(ctx, sessionID, o.prompt.Window)
		if err != nil {
			return core.NewStageError(core.StageChat, core.KindGenerationFailed, err)
		}
		reply, err = o.responder.Reply(ctx, o.prompt.Build(recent))
		if err != nil {
			return err
		}
		if strings.TrimSpace(reply) == "" {
			return core.NewStageError(core.StageChat, core.KindGenerationFailed, chat.ErrEmptyStream)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	// The chat deadline must not cost us a reply we already hold.
	if err := o.store.Append(context.WithoutCancel(ctx), sessionID, types.AssistantTurn(reply)); err != nil {
		return "", core.NewStageError(core.StageChat, core.KindGenerationFailed, err)
	}
	o.observer.ObserveTurn(types.RoleAssistant)
	return reply, nil
}

func (o *Orchestrator) run(ctx context.Context, log *slog.Logger, stage core.Stage, timeout time.Duration, fn func(context.Context) error) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if err != nil {
		err = tagStage(stage, err)
	}
	o.observer.ObserveStage(stage, elapsed, err)

	if err != nil {
		log.Warn("stage failed", "stage", stage, "elapsed_ms", elapsed.Milliseconds(), "error", err)
		return err
	}
	log.Debug("stage completed", "stage", stage, "elapsed_ms", elapsed.Milliseconds())
	return nil
}

// tagStage guarantees every failure leaving the orchestrator names its stage.
func tagStage(stage core.Stage, err error) error {
	if _, ok := core.StageFailure(err); ok {
		return err
	}
	kind := core.KindGenerationFailed
	switch stage {
	case core.StageTranscribe:
		kind = core.KindNoSpeech
	case core.StageTTS:
		kind = core.KindSynthesisFailed
	}
	return core.NewStageError(stage, kind, err)
}

type nopObserver struct{}

func (nopObserver) ObserveStage(core.Stage, time.Duration, error) {}
func (nopObserver) ObserveTurn(types.Role)                        {}
