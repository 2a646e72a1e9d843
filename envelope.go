package docrest

import (
	"crypto/sha1"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/xdbsoft/docrest/format"
)

const (
	allowedHeaders  = "Origin, Accept, Content-Type, X-Requested-With, X-CSRF-Token"
	internalMessage = "Internal Server Error."
)

// Response is what a view hands back to be written
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

type errorEnvelope struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
}

func jsonResponse(status int, data interface{}, pretty bool) (*Response, error) {
	encode := format.EncodeJSON
	if pretty {
		encode = format.EncodeIndentedJSON
	}
	b, err := encode(data)
	if err != nil {
		return nil, errors.Wrap(err, "unable to encode response")
	}
	return &Response{Status: status, ContentType: format.ContentTypeJSON, Body: b}, nil
}

// headers sets what every response carries: CORS and a default content type
func (s *Server) headers(next http.Handler) http.Handler {
	methods := strings.Join(s.cfg.methods(), ", ")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", methods)
		h.Set("Access-Control-Allow-Headers", allowedHeaders)
		h.Set("Content-Type", format.ContentTypeJSON)
		next.ServeHTTP(w, r)
	})
}

func computeEtag(body []byte) string {
	h := sha1.Sum(body)
	return `"` + hex.EncodeToString(h[:]) + `"`
}

func (s *Server) writeResponse(w http.ResponseWriter, r *http.Request, resp *Response) {

	if len(resp.ContentType) > 0 {
		w.Header().Set("Content-Type", resp.ContentType)
	}

	// Handle ETag / If-None-Match
	if r.Method == http.MethodGet && resp.Status == http.StatusOK && len(resp.Body) > 0 {
		etag := computeEtag(resp.Body)
		w.Header().Set("ETag", etag)

		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	w.WriteHeader(resp.Status)
	if _, err := w.Write(resp.Body); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to write response body")
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {

	logger := zerolog.Ctx(r.Context())

	status := statusCode(err)
	message := errors.Cause(err).Error()
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Msg("request failed")
		message = internalMessage
	} else {
		logger.Debug().Err(err).Int("status", status).Msg("request rejected")
	}

	resp, encErr := jsonResponse(status, errorEnvelope{Error: status, Message: message}, false)
	if encErr != nil {
		http.Error(w, internalMessage, http.StatusInternalServerError)
		return
	}
	s.writeResponse(w, r, resp)
}

// recoverer turns a panicking view into the internal error envelope
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.writeError(w, r, errors.Errorf("panic: %v", rec))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
