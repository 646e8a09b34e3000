package main

import (
	"context"
	"net/http"

	"github.com/CTAG07/lipsum/pkg/lorem"
	"github.com/CTAG07/lipsum/pkg/markov"
	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
)

// handleStream upgrades to a WebSocket and sends one text message per word.
// The stream ends after the requested number of words or when the client goes
// away, whichever comes first.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	words, err := s.wordsParam(r, 1)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	seed, err := seedParam(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := s.chains.get(r.Context(), name)
	if err != nil {
		s.respondWithCorpusError(w, r, err)
		return
	}

	var sampler *markov.Sampler
	if from := markov.Tokenize(r.URL.Query().Get("from")); len(from) > 0 {
		sampler, err = c.StartFrom(lorem.NewRand(seed), from)
	} else {
		sampler, err = c.StartRandomly(lorem.NewRand(seed))
	}
	if err != nil {
		s.respondWithCorpusError(w, r, err)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}
	defer conn.CloseNow()

	// Messages from the client are not expected; reading only detects the close.
	ctx, cancel := context.WithCancel(conn.CloseRead(r.Context()))
	defer cancel()

	sent := 0
	for token := range markov.GenerateStream(ctx, sampler, words) {
		if err := conn.Write(ctx, websocket.MessageText, []byte(token)); err != nil {
			s.logger.Debug("Stream aborted", "corpus", name, "sent", sent, "error", err)
			break
		}
		sent++
	}
	cancel()
	s.metrics.wordsGenerated.WithLabelValues(name).Add(float64(sent))

	if sent == words {
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}
}
