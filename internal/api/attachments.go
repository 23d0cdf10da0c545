package api

import (
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/marchglen/lorekeep/internal/storage"
)

const maxUploadBytes = 50 << 20 // 50 MB

// AttachmentHandler serves and accepts attachment files (maps, portraits,
// handouts) keyed by entity.
type AttachmentHandler struct {
	store storage.Provider
}

// NewAttachmentHandler creates a handler over the attachment store.
func NewAttachmentHandler(store storage.Provider) *AttachmentHandler {
	return &AttachmentHandler{store: store}
}

// List handles GET /api/entities/{id}/attachments.
//
//	@Summary		List an entity's attachments
//	@Tags			attachments
//	@Produce		json
//	@Param			id	path		string	true	"Entity ID"
//	@Success		200	{array}		storage.Attachment
//	@Security		BearerAuth
//	@Router			/entities/{id}/attachments [get]
func (h *AttachmentHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.List(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "list attachments", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"attachments": items})
}

// Upload handles POST /api/entities/{id}/attachments (multipart/form-data,
// field "file").
//
//	@Summary		Upload an attachment for an entity
//	@Tags			attachments
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			id		path		string	true	"Entity ID"
//	@Param			file	formData	file	true	"File to upload"
//	@Success		201		{object}	storage.Attachment
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entities/{id}/attachments [post]
func (h *AttachmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read upload"))
		return
	}

	att, err := h.store.Write(chi.URLParam(r, "id"), header.Filename, content)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusCreated, att)
}

// ServeFile handles GET /attachments/*.
func (h *AttachmentHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if path == "" {
		http.NotFound(w, r)
		return
	}
	data, err := h.store.Read(path)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	_, _ = w.Write(data)
}

// Delete handles DELETE /api/attachments/*.
//
//	@Summary		Delete an attachment
//	@Tags			attachments
//	@Success		204	"Attachment deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/attachments/{path} [delete]
func (h *AttachmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if err := h.store.Delete(path); err != nil {
		http.NotFound(w, r)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
