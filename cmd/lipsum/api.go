package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strconv"

	"github.com/CTAG07/lipsum/pkg/corpus"
	"github.com/CTAG07/lipsum/pkg/lorem"
	"github.com/CTAG07/lipsum/pkg/markov"
	"github.com/go-chi/chi/v5"
)

// maxTextSize limits the body of a single uploaded text.
const maxTextSize = 10 << 20

type generateResponse struct {
	Corpus string `json:"corpus"`
	Words  int    `json:"words"`
	Seed   uint64 `json:"seed"`
	Text   string `json:"text"`
}

type createCorpusRequest struct {
	Name  string `json:"name"`
	Order *int   `json:"order"`
}

type statsResponse struct {
	Corpus corpus.Info       `json:"corpus"`
	Model  markov.ModelStats `json:"model"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLipsum(w http.ResponseWriter, r *http.Request) {
	words, err := s.wordsParam(r, 0)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	seed, err := seedParam(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	text, err := lorem.LipsumFrom(lorem.Chain(), lorem.NewRand(seed), words)
	if err != nil {
		s.respondWithCorpusError(w, r, err)
		return
	}
	s.metrics.wordsGenerated.WithLabelValues(builtinCorpus).Add(float64(words))
	respondWithJSON(w, http.StatusOK, generateResponse{Corpus: builtinCorpus, Words: words, Seed: seed, Text: text})
}

func (s *Server) handleListCorpora(w http.ResponseWriter, r *http.Request) {
	stored, err := s.store.ListCorpora(r.Context())
	if err != nil {
		s.respondWithCorpusError(w, r, err)
		return
	}
	builtin, _ := s.chains.info(r.Context(), builtinCorpus)
	respondWithJSON(w, http.StatusOK, append([]corpus.Info{builtin}, stored...))
}

func (s *Server) handleCreateCorpus(w http.ResponseWriter, r *http.Request) {
	var req createCorpusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == builtinCorpus {
		respondWithError(w, http.StatusConflict, fmt.Sprintf("corpus %q already exists", req.Name))
		return
	}
	order := s.config.Generation.DefaultOrder
	if req.Order != nil {
		order = *req.Order
	}

	info, err := s.store.CreateCorpus(r.Context(), req.Name, order)
	if err != nil {
		s.respondWithCorpusError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, info)
}

func (s *Server) handleRemoveCorpus(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == builtinCorpus {
		s.respondWithCorpusError(w, r, errReadOnly)
		return
	}
	info, err := s.store.GetCorpus(r.Context(), name)
	if err == nil {
		err = s.store.RemoveCorpus(r.Context(), info)
	}
	if err != nil {
		s.respondWithCorpusError(w, r, err)
		return
	}
	s.chains.forget(name)
	w.WriteHeader(http.StatusNoContent)
}

// handleAddText stores the request body as a new text of the corpus. The body
// format follows the Content-Type header, falling back to the extension of the
// optional title parameter.
func (s *Server) handleAddText(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == builtinCorpus {
		s.respondWithCorpusError(w, r, errReadOnly)
		return
	}
	info, err := s.store.GetCorpus(r.Context(), name)
	if err != nil {
		s.respondWithCorpusError(w, r, err)
		return
	}

	title := r.URL.Query().Get("title")
	format := corpus.DetectFormat(title, r.Header.Get("Content-Type"))
	body, err := corpus.Extract(http.MaxBytesReader(w, r.Body, maxTextSize), format)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("could not read %s text: %v", format, err))
		return
	}
	id, err := s.store.AddText(r.Context(), info, title, body)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err = s.chains.reload(r.Context(), name); err != nil {
		s.respondWithCorpusError(w, r, err)
		return
	}
	info, err = s.store.GetCorpus(r.Context(), name)
	if err != nil {
		s.respondWithCorpusError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]interface{}{"id": id, "corpus": info})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	info, err := s.chains.info(r.Context(), name)
	if err != nil {
		s.respondWithCorpusError(w, r, err)
		return
	}
	c, err := s.chains.get(r.Context(), name)
	if err != nil {
		s.respondWithCorpusError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, statsResponse{Corpus: info, Model: c.Stats()})
}

// handleGenerate returns words from the corpus chain. The optional from
// parameter is a cue the text continues, as with markov.Chain.GenerateFromString.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	words, err := s.wordsParam(r, 0)
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

	text, err := c.GenerateFromString(lorem.NewRand(seed), words, r.URL.Query().Get("from"))
	if err != nil {
		s.respondWithCorpusError(w, r, err)
		return
	}
	s.metrics.wordsGenerated.WithLabelValues(name).Add(float64(words))
	respondWithJSON(w, http.StatusOK, generateResponse{Corpus: name, Words: words, Seed: seed, Text: text})
}

// wordsParam parses the words query parameter, which defaults to the configured
// word count and must lie between minWords and the configured maximum.
func (s *Server) wordsParam(r *http.Request, minWords int) (int, error) {
	raw := r.URL.Query().Get("words")
	if raw == "" {
		return max(s.config.Generation.DefaultWords, minWords), nil
	}
	words, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid words parameter %q", raw)
	}
	if words < minWords || words > s.config.Generation.MaxWords {
		return 0, fmt.Errorf("words must be between %d and %d", minWords, s.config.Generation.MaxWords)
	}
	return words, nil
}

// seedParam parses the optional seed query parameter. Without one a random
// seed is drawn and echoed in the response, so any text can be reproduced.
func seedParam(r *http.Request) (uint64, error) {
	raw := r.URL.Query().Get("seed")
	if raw == "" {
		return rand.Uint64(), nil
	}
	seed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid seed parameter %q", raw)
	}
	return seed, nil
}

// respondWithCorpusError maps store and chain errors to status codes.
func (s *Server) respondWithCorpusError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, corpus.ErrCorpusNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, corpus.ErrCorpusExists), errors.Is(err, markov.ErrEmptyModel):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, corpus.ErrInvalidName), errors.Is(err, markov.ErrInvalidOrder):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, errReadOnly):
		respondWithError(w, http.StatusForbidden, err.Error())
	default:
		s.logger.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
		respondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}
