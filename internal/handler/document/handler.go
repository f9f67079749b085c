package document

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/study-mentor/backend/internal/handler/apierror"
	"github.com/zhouzirui/study-mentor/backend/internal/middleware"
	docmodel "github.com/zhouzirui/study-mentor/backend/internal/model/document"
	"github.com/zhouzirui/study-mentor/backend/pkg/utils"
)

const DefaultMaxUploadBytes = 16 << 20

// Uploader stores a session's document.
type Uploader interface {
	Upload(ctx context.Context, sessionID, filename string, data []byte) (docmodel.Ref, error)
}

// Handler serves document uploads.
type Handler struct {
	uploader Uploader
	maxBytes int64
	logger   *zap.Logger
}

// New creates an upload handler. maxBytes <= 0 uses DefaultMaxUploadBytes.
func New(uploader Uploader, maxBytes int64, logger *zap.Logger) *Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{uploader: uploader, maxBytes: maxBytes, logger: logger.Named("upload")}
}

// RegisterRoutes mounts the document routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/upload", h.handleUpload)
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	// Multipart framing needs some room on top of the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+1<<20)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.RespondError(w, http.StatusBadRequest, apierror.MsgFileTooLarge)
			return
		}
		utils.RespondError(w, http.StatusBadRequest, apierror.MsgNoFile)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, apierror.MsgNoFile)
		return
	}
	defer file.Close()

	if strings.TrimSpace(header.Filename) == "" {
		utils.RespondError(w, http.StatusBadRequest, apierror.MsgNoFile)
		return
	}
	if header.Size > h.maxBytes {
		utils.RespondError(w, http.StatusBadRequest, apierror.MsgFileTooLarge)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, h.maxBytes+1))
	if err != nil {
		apierror.Write(w, h.logger, err)
		return
	}
	if int64(len(data)) > h.maxBytes {
		utils.RespondError(w, http.StatusBadRequest, apierror.MsgFileTooLarge)
		return
	}

	ref, err := h.uploader.Upload(r.Context(), middleware.SessionID(r.Context()), header.Filename, data)
	if err != nil {
		apierror.Write(w, h.logger, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"status":   utils.StatusSuccess,
		"filename": ref.Filename,
	})
}
