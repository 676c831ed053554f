package handlers

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/vango-go/vai-talk/pkg/core"
)

// multipartMemory is how much of a multipart upload stays in memory before
// net/http spools the rest to disk.
const multipartMemory = 8 << 20

// upload is an audio file received in one request.
type upload struct {
	Audio     io.Reader
	Filename  string
	SessionID string
	close     func()
}

func (u *upload) Close() {
	if u != nil && u.close != nil {
		u.close()
	}
}

func isMultipart(r *http.Request) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mediaType == "multipart/form-data"
}

// readUpload accepts either a multipart form with a "file" field or a raw
// audio body. The raw form takes session_id from the query string and the
// extension from Content-Type.
func readUpload(w http.ResponseWriter, r *http.Request, limit int64) (*upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if isMultipart(r) {
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return nil, err
			}
			return nil, core.NewInvalidRequestError("malformed multipart body")
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			r.MultipartForm.RemoveAll()
			return nil, core.NewInvalidRequestErrorWithParam("missing audio file", "file")
		}
		return &upload{
			Audio:     f,
			Filename:  hdr.Filename,
			SessionID: strings.TrimSpace(r.FormValue("session_id")),
			close: func() {
				f.Close()
				r.MultipartForm.RemoveAll()
			},
		}, nil
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	ext, ok := audioExtension(mediaType)
	if !ok {
		return nil, unsupportedMediaType()
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	return &upload{
		Audio:     bytes.NewReader(body),
		Filename:  "upload" + ext,
		SessionID: strings.TrimSpace(r.URL.Query().Get("session_id")),
	}, nil
}

func audioExtension(mediaType string) (string, bool) {
	switch mediaType {
	case "audio/wav", "audio/wave", "audio/x-wav", "audio/vnd.wave":
		return ".wav", true
	case "audio/mpeg", "audio/mp3":
		return ".mp3", true
	case "audio/webm", "video/webm":
		return ".webm", true
	case "audio/ogg":
		return ".ogg", true
	case "audio/flac", "audio/x-flac":
		return ".flac", true
	case "audio/mp4", "audio/m4a", "audio/x-m4a":
		return ".m4a", true
	case "application/octet-stream":
		return ".wav", true
	default:
		return "", false
	}
}
