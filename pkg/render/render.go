// Package render writes API responses as JSON or MessagePack depending on
// the Accept header of the request.
package render

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// MsgpackContentType is the media type clients send to request MessagePack
const MsgpackContentType = "application/msgpack"

// Envelope is the standard response body
type Envelope struct {
	Data     interface{}            `json:"data" msgpack:"data"`
	Metadata map[string]interface{} `json:"metadata" msgpack:"metadata"`
}

// Wrap puts data into the standard envelope stamped with the current time
func Wrap(data interface{}) Envelope {
	return Envelope{
		Data: data,
		Metadata: map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
}

// WantsMsgpack reports whether the client asked for MessagePack
func WantsMsgpack(r *http.Request) bool {
	if r == nil {
		return false
	}
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mediaType, _, _ := strings.Cut(strings.TrimSpace(part), ";")
		if mediaType == MsgpackContentType || mediaType == "application/x-msgpack" {
			return true
		}
	}
	return false
}

// Write encodes body in the negotiated format
func Write(w http.ResponseWriter, r *http.Request, status int, body interface{}, log zerolog.Logger) {
	if WantsMsgpack(r) {
		w.Header().Set("Content-Type", MsgpackContentType)
		w.WriteHeader(status)
		if err := msgpack.NewEncoder(w).Encode(body); err != nil {
			log.Error().Err(err).Msg("Failed to encode msgpack response")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// OK writes data wrapped in the standard envelope with status 200
func OK(w http.ResponseWriter, r *http.Request, data interface{}, log zerolog.Logger) {
	Write(w, r, http.StatusOK, Wrap(data), log)
}

// DecodeJSON reads a JSON request body into v
func DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
