package document

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/study-mentor/backend/internal/extract"
	"github.com/zhouzirui/study-mentor/backend/internal/model/document"
)

var (
	ErrNotFound      = errors.New("document not found")
	ErrOwnerRequired = errors.New("document owner is required")
	ErrEmpty         = errors.New("document is empty")
)

// Backend keeps at most one document per owner.
type Backend interface {
	// Get returns ErrNotFound when owner holds nothing.
	Get(ctx context.Context, owner string) (document.Document, error)
	// Put stores doc, deleting whatever owner held before in the same step.
	Put(ctx context.Context, doc document.Document) error
	// SetText caches extracted text if owner still holds document id.
	SetText(ctx context.Context, owner, id, text string) error
	Delete(ctx context.Context, owner string) error
	Close() error
}

// Store is the document store: raw bytes per owner plus lazy text extraction.
type Store struct {
	backend    Backend
	extractors *extract.Registry
	logger     *zap.Logger
}

// NewStore wires a backend with the enabled extractors.
func NewStore(backend Backend, extractors *extract.Registry, logger *zap.Logger) *Store {
	if extractors == nil {
		extractors = extract.NewRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{backend: backend, extractors: extractors, logger: logger.Named("document")}
}

// Store saves data as owner's only document and discards the previous one.
func (s *Store) Store(ctx context.Context, owner, filename string, data []byte) (document.Ref, error) {
	if strings.TrimSpace(owner) == "" {
		return document.Ref{}, ErrOwnerRequired
	}
	if len(data) == 0 {
		return document.Ref{}, ErrEmpty
	}

	doc := document.Document{
		ID:         uuid.NewString(),
		Owner:      owner,
		Filename:   filename,
		Data:       data,
		UploadedAt: time.Now().UTC(),
	}
	if err := s.backend.Put(ctx, doc); err != nil {
		return document.Ref{}, fmt.Errorf("failed to store document: %w", err)
	}

	s.logger.Info("document stored",
		zap.String("owner", owner),
		zap.String("filename", filename),
		zap.Int("bytes", len(data)),
	)
	return doc.Ref(), nil
}

// Load resolves ref. A ref to a superseded or deleted document yields ErrNotFound.
func (s *Store) Load(ctx context.Context, ref document.Ref) (document.Document, error) {
	if ref.IsZero() {
		return document.Document{}, ErrNotFound
	}
	doc, err := s.backend.Get(ctx, ref.Owner)
	if err != nil {
		return document.Document{}, err
	}
	if doc.ID != ref.ID {
		return document.Document{}, ErrNotFound
	}
	return doc, nil
}

// ExtractText returns the document text, extracting it on first use.
// Extraction failures are *extract.Error.
func (s *Store) ExtractText(ctx context.Context, ref document.Ref) (string, error) {
	doc, err := s.Load(ctx, ref)
	if err != nil {
		return "", err
	}
	if doc.Extracted {
		return doc.Text, nil
	}

	text, err := s.extractors.Extract(doc.Filename, doc.Data)
	if err != nil {
		return "", err
	}

	if err := s.backend.SetText(ctx, doc.Owner, doc.ID, text); err != nil && !errors.Is(err, ErrNotFound) {
		s.logger.Warn("failed to cache extracted text", zap.String("owner", doc.Owner), zap.Error(err))
	}
	return text, nil
}

// Delete drops owner's document. Deleting nothing is not an error.
func (s *Store) Delete(ctx context.Context, owner string) error {
	if err := s.backend.Delete(ctx, owner); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// Formats lists the formats text can be extracted from.
func (s *Store) Formats() []extract.Format {
	return s.extractors.Formats()
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}
