package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// eventStream writes newline-delimited JSON, committing a 200 on the
// first event and flushing after each one.
type eventStream struct {
	w       http.ResponseWriter
	enc     *json.Encoder
	log     *zap.Logger
	started bool
	gone    bool
}

func newEventStream(w http.ResponseWriter, logger *zap.Logger) *eventStream {
	return &eventStream{w: w, enc: json.NewEncoder(w), log: logger}
}

func (s *eventStream) send(v interface{}) {
	if !s.started {
		s.w.Header().Set("Content-Type", "application/x-ndjson")
		s.w.Header().Set("Cache-Control", "no-cache")
		s.w.WriteHeader(http.StatusOK)
		s.started = true
	}

	// the run carries on after the client leaves; log the first failure only
	if err := s.enc.Encode(v); err != nil {
		if !s.gone {
			s.log.Debug("client disconnected during campaign stream", zap.Error(err))
			s.gone = true
		}
		return
	}

	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}
}
