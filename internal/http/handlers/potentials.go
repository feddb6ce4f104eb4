package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"mdserver/internal/domain"
)

const maxPotentialBytes = 8 << 20

type potentialUploadRequest struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// PotentialsUpload accepts a potential file either as multipart form data
// (field "file") or as a JSON body. The file is stored verbatim and later
// materialized into job working directories under its original base name.
func (a *App) PotentialsUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPotentialBytes)

	var req potentialUploadRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "missing file field")
			return
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "unreadable file upload")
			return
		}
		req.Filename = header.Filename
		req.Content = string(data)
	} else {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
			return
		}
	}

	req.Filename = filepath.Base(strings.TrimSpace(req.Filename))
	if req.Filename == "" || req.Filename == "." || req.Filename == string(filepath.Separator) {
		a.error(w, http.StatusBadRequest, "bad_request", "filename required")
		return
	}
	if req.Content == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "empty potential file")
		return
	}

	pf := &domain.PotentialFile{
		ID:        uuid.NewString(),
		Filename:  req.Filename,
		Content:   req.Content,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.Potentials.Create(r.Context(), pf); err != nil {
		a.Logger.Error().Err(err).Msg("handlers: persist potential failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to store potential file")
		return
	}

	a.json(w, http.StatusCreated, map[string]string{
		"potential_file_id": pf.ID,
		"filename":          pf.Filename,
	})
}
