// Package tutor runs one conversational exchange end to end: session lookup,
// document resolution, prompt assembly, the model call and recording.
package tutor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zhouzirui/study-mentor/backend/internal/extract"
	"github.com/zhouzirui/study-mentor/backend/internal/model/chat"
	docmodel "github.com/zhouzirui/study-mentor/backend/internal/model/document"
	"github.com/zhouzirui/study-mentor/backend/internal/service/document"
	"github.com/zhouzirui/study-mentor/backend/internal/service/gateway"
	"github.com/zhouzirui/study-mentor/backend/internal/service/history"
	"github.com/zhouzirui/study-mentor/backend/internal/service/prompt"
	"github.com/zhouzirui/study-mentor/backend/internal/service/session"
)

const DefaultTimeout = 60 * time.Second

var (
	ErrSessionRequired = errors.New("session id is required")
	ErrEmptyMessage    = errors.New("message must not be empty")
	ErrInvalidFileType = errors.New("invalid file type")
	ErrEmptyFile       = errors.New("no file uploaded")
)

// Options wires the engine. Only Gateway is required.
type Options struct {
	Sessions  *session.Registry
	History   *history.Store
	Documents *document.Store
	Assembler *prompt.Assembler
	Gateway   gateway.Gateway
	Timeout   time.Duration
	Logger    *zap.Logger
}

// Engine serialises the exchanges of each session and keeps sessions apart.
type Engine struct {
	sessions  *session.Registry
	history   *history.Store
	documents *document.Store
	assembler *prompt.Assembler
	gateway   gateway.Gateway
	timeout   time.Duration
	logger    *zap.Logger
}

// NewEngine fills defaults and registers the session reset hooks.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Gateway == nil {
		return nil, errors.New("tutor: gateway is required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Sessions == nil {
		opts.Sessions = session.NewRegistry(0, opts.Logger)
	}
	if opts.History == nil {
		opts.History = history.NewStore()
	}
	if opts.Documents == nil {
		opts.Documents = document.NewStore(document.NewMemoryBackend(), nil, opts.Logger)
	}
	if opts.Assembler == nil {
		assembler, err := prompt.NewAssembler(prompt.DefaultPolicy())
		if err != nil {
			return nil, err
		}
		opts.Assembler = assembler
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	e := &Engine{
		sessions:  opts.Sessions,
		history:   opts.History,
		documents: opts.Documents,
		assembler: opts.Assembler,
		gateway:   opts.Gateway,
		timeout:   opts.Timeout,
		logger:    opts.Logger.Named("tutor"),
	}

	e.sessions.OnReset(e.history.Reset)
	e.sessions.OnReset(e.documents.Delete)
	return e, nil
}

// SaveProfile replaces the session profile, clearing its history and document.
func (e *Engine) SaveProfile(ctx context.Context, sessionID, name, age string) (chat.Profile, error) {
	if sessionID == "" {
		return chat.Profile{}, ErrSessionRequired
	}
	unlock := e.sessions.Lock(sessionID)
	defer unlock()

	profile, err := e.sessions.SetProfile(ctx, sessionID, name, age)
	if err != nil {
		return profile, err
	}
	e.logger.Info("profile saved", zap.String("session", sessionID))
	return profile, nil
}

// Ask sends message to the model and records the exchange. History changes
// only when the model replied; gateway failures are *gateway.Error.
func (e *Engine) Ask(ctx context.Context, sessionID, message string) (string, error) {
	if sessionID == "" {
		return "", ErrSessionRequired
	}
	if strings.TrimSpace(message) == "" {
		return "", ErrEmptyMessage
	}

	unlock := e.sessions.Lock(sessionID)
	defer unlock()

	profile := e.sessions.Profile(sessionID)
	built := e.assembler.Assemble(profile, e.attachment(ctx, sessionID, message), message)
	turns := e.history.Replay(sessionID)

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	started := time.Now()
	reply, err := e.gateway.Send(callCtx, turns, built.Text)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, gateway.ErrTimeout) {
			err = &gateway.Error{Kind: gateway.ErrTimeout, Err: err}
		}
		return "", gateway.Classify(err)
	}

	if err := e.history.Append(sessionID, message, reply); err != nil {
		return "", fmt.Errorf("failed to record exchange: %w", err)
	}

	e.logger.Info("exchange completed",
		zap.String("session", sessionID),
		zap.Int("turns", len(turns)+2),
		zap.Bool("document", built.DocumentIncluded),
		zap.Bool("truncated", built.Truncated),
		zap.Duration("elapsed", time.Since(started)),
	)
	return reply, nil
}

// Upload stores data as the session's document, replacing any earlier one,
// and extracts its text. On extraction failure the new document is removed
// and the *extract.Error is returned.
func (e *Engine) Upload(ctx context.Context, sessionID, filename string, data []byte) (docmodel.Ref, error) {
	if sessionID == "" {
		return docmodel.Ref{}, ErrSessionRequired
	}
	filename = strings.TrimSpace(filename)
	if filename == "" || len(data) == 0 {
		return docmodel.Ref{}, ErrEmptyFile
	}
	if !extract.Accepted(filename) {
		return docmodel.Ref{}, ErrInvalidFileType
	}

	unlock := e.sessions.Lock(sessionID)
	defer unlock()

	ref, err := e.documents.Store(ctx, sessionID, filename, data)
	if err != nil {
		return docmodel.Ref{}, err
	}
	e.sessions.SetDocument(sessionID, ref)

	if _, err := e.documents.ExtractText(ctx, ref); err != nil {
		e.discard(ctx, sessionID)
		e.logger.Warn("document rejected",
			zap.String("session", sessionID),
			zap.String("filename", filename),
			zap.Error(err))
		return docmodel.Ref{}, err
	}
	return ref, nil
}

// Transcript returns the session history. An expired session has none,
// even before its next exchange resets it.
func (e *Engine) Transcript(sessionID string) []chat.Turn {
	if !e.sessions.Live(sessionID) {
		return nil
	}
	return e.history.Replay(sessionID)
}

// Session returns the live session, if any.
func (e *Engine) Session(sessionID string) (chat.Session, bool) {
	return e.sessions.Session(sessionID)
}

// Policy returns the prompt policy in effect.
func (e *Engine) Policy() prompt.Policy {
	return e.assembler.Policy()
}

// Formats lists the document extensions text can be extracted from.
func (e *Engine) Formats() []string {
	formats := e.documents.Formats()
	out := make([]string, 0, len(formats))
	for _, f := range formats {
		out = append(out, string(f))
	}
	return out
}

// Profile returns the session profile or the default one.
func (e *Engine) Profile(sessionID string) chat.Profile {
	return e.sessions.Profile(sessionID)
}

// Document returns the session's live document reference, if any.
func (e *Engine) Document(ctx context.Context, sessionID string) (docmodel.Ref, bool) {
	ref, ok := e.sessions.Document(sessionID)
	if !ok {
		return docmodel.Ref{}, false
	}
	if _, err := e.documents.Load(ctx, ref); err != nil {
		return docmodel.Ref{}, false
	}
	return ref, true
}

func (e *Engine) attachment(ctx context.Context, sessionID, message string) *prompt.Attachment {
	ref, ok := e.sessions.Document(sessionID)
	if !ok {
		return nil
	}

	if !e.assembler.WantsDocument(message) {
		if _, err := e.documents.Load(ctx, ref); err != nil {
			e.forget(sessionID, err)
			return nil
		}
		return &prompt.Attachment{Filename: ref.Filename}
	}

	text, err := e.documents.ExtractText(ctx, ref)
	if err != nil {
		e.forget(sessionID, err)
		return nil
	}
	return &prompt.Attachment{Filename: ref.Filename, Text: text}
}

// forget clears a reference that no longer resolves to a usable document.
func (e *Engine) forget(sessionID string, err error) {
	e.sessions.ClearDocument(sessionID)
	if errors.Is(err, document.ErrNotFound) {
		e.logger.Debug("cleared stale document reference", zap.String("session", sessionID))
		return
	}
	e.logger.Warn("document unavailable", zap.String("session", sessionID), zap.Error(err))
}

func (e *Engine) discard(ctx context.Context, sessionID string) {
	e.sessions.ClearDocument(sessionID)
	if err := e.documents.Delete(ctx, sessionID); err != nil {
		e.logger.Error("failed to delete rejected document", zap.String("session", sessionID), zap.Error(err))
	}
}
