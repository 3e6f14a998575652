package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

// upload is one file received from a multipart form.
type upload struct {
	data     []byte
	filename string
	mime     string
}

// readUpload parses the multipart form and reads the named file field. The
// body is capped at MaxUploadBytes before any handler logic touches it, so
// oversized uploads fail here with a validation error.
func (a *App) readUpload(w http.ResponseWriter, r *http.Request, field string) (*upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, a.MaxUploadBytes)
	if err := r.ParseMultipartForm(a.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("file exceeds the %dMB upload limit", a.MaxUploadBytes/(1024*1024))
		}
		return nil, errors.New("invalid multipart form")
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("no %s uploaded", field)
	}
	defer func() {
		_ = file.Close()
	}()
	data, err := io.ReadAll(file)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("file exceeds the %dMB upload limit", a.MaxUploadBytes/(1024*1024))
		}
		return nil, fmt.Errorf("failed to read %s upload", field)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("no %s uploaded", field)
	}
	return &upload{
		data:     data,
		filename: header.Filename,
		mime:     header.Header.Get("Content-Type"),
	}, nil
}
