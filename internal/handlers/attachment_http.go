package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/onesoftuk/bugflow/internal/repository"
	"github.com/onesoftuk/bugflow/internal/utils"
	"github.com/onesoftuk/bugflow/internal/workflow"
)

type AttachmentHTTP struct {
	engine *workflow.Engine
	users  repository.UserStore

	// maxUploadBytes caps the whole multipart body; per-file and per-ticket
	// limits are enforced by the engine.
	maxUploadBytes int64
}

func NewAttachmentHTTP(engine *workflow.Engine, users repository.UserStore, maxUploadBytes int64) *AttachmentHTTP {
	return &AttachmentHTTP{engine: engine, users: users, maxUploadBytes: maxUploadBytes}
}

// POST /api/tickets/{id}/attachments (multipart, field "files")
func (h *AttachmentHTTP) Upload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r, h.users)
		if err != nil {
			utils.Err(w, err)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			utils.Error(w, http.StatusBadRequest, "invalid multipart body")
			return
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()

		fhs := r.MultipartForm.File["files"]
		files := make([]workflow.FileUpload, 0, len(fhs))
		for _, fh := range fhs {
			f, err := fh.Open()
			if err != nil {
				utils.Error(w, http.StatusBadRequest, "unreadable file "+fh.Filename)
				return
			}
			defer f.Close()
			files = append(files, workflow.FileUpload{
				Name:     fh.Filename,
				MimeType: fh.Header.Get("Content-Type"),
				Size:     fh.Size,
				Content:  f,
			})
		}

		atts, err := h.engine.AddAttachments(r.Context(), actor, chi.URLParam(r, "id"), files)
		if err != nil {
			utils.Err(w, err)
			return
		}
		utils.JSON(w, http.StatusCreated, map[string]any{"items": atts})
	}
}

// GET /api/tickets/{id}/attachments
func (h *AttachmentHTTP) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r, h.users)
		if err != nil {
			utils.Err(w, err)
			return
		}
		atts, err := h.engine.ListAttachments(r.Context(), actor, chi.URLParam(r, "id"))
		if err != nil {
			utils.Err(w, err)
			return
		}
		utils.JSON(w, http.StatusOK, map[string]any{"items": atts})
	}
}

// GET /api/attachments/{id}/download
func (h *AttachmentHTTP) Download() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r, h.users)
		if err != nil {
			utils.Err(w, err)
			return
		}
		a, rc, err := h.engine.OpenAttachment(r.Context(), actor, chi.URLParam(r, "id"))
		if err != nil {
			utils.Err(w, err)
			return
		}
		defer rc.Close()

		w.Header().Set("Content-Type", a.MimeType)
		w.Header().Set("Content-Length", strconv.FormatInt(a.Size, 10))
		w.Header().Set("Content-Disposition", `attachment; filename="`+a.OriginalName+`"`)
		w.WriteHeader(http.StatusOK)
		_, _ = io.Copy(w, rc)
	}
}
