package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"go.uber.org/zap"

	"github.com/ong-aas/claims-portal/internal/guard"
	"github.com/ong-aas/claims-portal/internal/http/respond"
	"github.com/ong-aas/claims-portal/internal/middleware"
	"github.com/ong-aas/claims-portal/internal/upload"
)

// maxFilesPerBatch bounds the request body of multi-file kinds.
const maxFilesPerBatch = 10

// UploadHandler accepts multipart uploads for the named upload kinds.
type UploadHandler struct {
	workflow *upload.Workflow
	profiles map[string]upload.Profile
	sessions middleware.SessionResolver
	logger   *zap.Logger
}

// NewUploadHandler constructs the handler.
func NewUploadHandler(workflow *upload.Workflow, profiles map[string]upload.Profile, sessions middleware.SessionResolver, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{workflow: workflow, profiles: profiles, sessions: sessions, logger: logger}
}

// Register attaches upload routes to the mux.
func (h *UploadHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /uploads/{kind}", h.handleUpload)
}

func (h *UploadHandler) handleUpload(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.profiles[r.PathValue("kind")]
	if !ok {
		respond.Fail(w, http.StatusNotFound, "upload.unknown_kind", "unknown upload kind", upload.Kinds(h.profiles))
		return
	}
	if !profile.Public {
		if _, decision := middleware.Authorize(r, h.sessions, profile.Policy, h.logger); decision != guard.Allow {
			middleware.Deny(w, decision)
			return
		}
	}

	limit := profile.MaxBytes + 1<<20
	if profile.Multiple {
		limit = profile.MaxBytes*maxFilesPerBatch + 1<<20
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Fail(w, http.StatusRequestEntityTooLarge, "upload.too_large", "selection is too large", nil)
			return
		}
		respond.Fail(w, http.StatusBadRequest, "upload.invalid_form", "expected multipart form with field \"files\"", nil)
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	files := make([]upload.File, 0, len(headers))
	for _, fh := range headers {
		files = append(files, fileFromHeader(fh))
	}

	result, err := h.workflow.Run(r.Context(), profile, files)
	var verr *upload.ValidationError
	switch {
	case errors.As(err, &verr):
		respond.Fail(w, http.StatusBadRequest, "upload.rejected", verr.Message, verr.Files)
		return
	case err != nil:
		h.logger.Debug("upload cancelled", zap.String("kind", profile.Kind), zap.Error(err))
		return
	}

	stored := len(result.URLs())
	switch {
	case stored == 0:
		respond.Fail(w, http.StatusBadGateway, "upload.failed", "no file could be uploaded", result)
	case stored < len(files):
		respond.JSON(w, http.StatusOK, fmt.Sprintf("uploaded %d of %d files", stored, len(files)), result)
	default:
		respond.JSON(w, http.StatusOK, "uploaded", result)
	}
}

func fileFromHeader(fh *multipart.FileHeader) upload.File {
	return upload.File{
		Name:        fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}
