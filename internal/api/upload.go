package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/omegachat/omegachat/internal/blob"
)

type UploadResponse struct {
	Url string `json:"url"`
}

// storeUploadedFile reads the "file" part of a multipart request into the
// blob store and returns the public URL.
func (s *OmegaChatApp) storeUploadedFile(r *http.Request) (string, *ApiError) {
	r.Body = http.MaxBytesReader(nil, r.Body, blob.MaxUploadSize+4096)

	file, header, err := r.FormFile("file")
	if err != nil {
		return "", NewValidationError("missing file field")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return "", NewValidationError("file exceeds size limit")
		}
		return "", NewInternalServerError(err)
	}

	url, err := s.blobs.Store(data, header.Header.Get("Content-Type"))
	if err != nil {
		switch {
		case errors.Is(err, blob.ErrTooLarge):
			return "", NewValidationError("file exceeds size limit")
		case errors.Is(err, blob.ErrUnsupportedType):
			return "", NewValidationError("unsupported file type")
		default:
			return "", NewInternalServerError(err)
		}
	}

	return url, nil
}

func (s *OmegaChatApp) handleUpload(w http.ResponseWriter, r *http.Request) {
	url, errResp := s.storeUploadedFile(r)
	if errResp != nil {
		s.writeError(w, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, UploadResponse{Url: url})
}

func (s *OmegaChatApp) handleUploadAvatar(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerIdentity(r.Context())

	url, errResp := s.storeUploadedFile(r)
	if errResp != nil {
		s.writeError(w, errResp)
		return
	}

	if err := s.db.UpdateAvatar(caller.UserId, url); err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	s.writeJson(w, http.StatusOK, UploadResponse{Url: url})
}
