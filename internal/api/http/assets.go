package http

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mind-engage/eduquest/internal/storage"
)

const maxPhotoBytes = 5 << 20

// MountAssets serves stored blobs, e.g. profile photos, at /assets/*.
func MountAssets(r chi.Router, bs storage.BlobStore) {
	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
		if !strings.HasPrefix(key, "photos/") {
			writeError(w, http.StatusNotFound, "not found", "")
			return
		}
		rc, err := bs.Get(r.Context(), key)
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found", "")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "store error", "")
			return
		}
		defer rc.Close()
		ct := mime.TypeByExtension(path.Ext(key))
		if ct == "" {
			ct = "application/octet-stream"
		}
		w.Header().Set("Content-Type", ct)
		w.Header().Set("Cache-Control", "public, max-age=3600")
		_, _ = io.Copy(w, rc)
	})
}

var photoExt = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// POST /api/admin/students/{roll}/photo (multipart file=)
func UploadPhotoHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roll := chi.URLParam(r, "roll")
		st, err := d.Repo.StudentByRoll(r.Context(), roll)
		if err != nil {
			fail(w, d.Log, err)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxPhotoBytes+1024)
		f, _, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "file required", "")
			return
		}
		defer f.Close()

		head := make([]byte, 512)
		n, _ := io.ReadFull(f, head)
		ct := http.DetectContentType(head[:n])
		ext, ok := photoExt[ct]
		if !ok {
			writeError(w, http.StatusBadRequest, "unsupported image type: "+ct, "")
			return
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			writeError(w, http.StatusInternalServerError, "rewind upload", "")
			return
		}

		key := "photos/" + roll + "-" + uuid.NewString() + ext
		if _, err := d.Blobs.Put(r.Context(), key, f, ct); err != nil {
			fail(w, d.Log, err)
			return
		}
		st.ProfilePhoto = "/assets/" + key
		if err := d.Repo.UpdateStudent(r.Context(), st); err != nil {
			fail(w, d.Log, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}
