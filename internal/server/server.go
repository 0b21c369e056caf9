// Package server is the browser front end: a URL form that triggers a weave
// and endpoints to fetch the resulting graph and note.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"weavoor/internal/export"
	"weavoor/internal/graph"
	"weavoor/internal/models"
	"weavoor/internal/weave"
)

const maxRequestBodySize = 1 << 20

// Weaver is the part of *weave.Weaver the handlers use.
type Weaver interface {
	Weave(ctx context.Context, sourceURL string) (*weave.Result, error)
	Lookup(ctx context.Context, mediaID string) (*weave.Result, error)
}

type weaveRequest struct {
	URL string `json:"url"`
}

type weaveResponse struct {
	Message string `json:"message"`
	*weave.Result
}

// NewHandler returns the router for all front end routes.
func NewHandler(w Weaver) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", handleIndex)
	r.Post("/weave", handleWeave(w))
	r.Route("/weaves/{id}", func(r chi.Router) {
		r.Get("/graph.html", handleGraphHTML(w))
		r.Get("/graph.json", handleGraphJSON(w))
		r.Get("/note.md", handleNote(w))
	})
	r.Get("/healthz", handleHealth)

	return r
}

// ListenAndServe serves h on addr until ctx is cancelled.
func ListenAndServe(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func handleIndex(w http.ResponseWriter, r *http.Request) {
	renderPage(w, http.StatusOK, pageData{})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleWeave(wv Weaver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		asJSON := isJSON(r)

		var req weaveRequest
		if asJSON {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				httpError(w, http.StatusBadRequest, weave.Message{Kind: weave.KindUnexpected, Text: fmt.Sprintf("invalid request body: %v", err)})
				return
			}
		} else {
			if err := r.ParseForm(); err != nil {
				renderPage(w, http.StatusBadRequest, pageData{Error: &weave.Message{Kind: weave.KindUnexpected, Text: err.Error()}})
				return
			}
			req.URL = r.PostForm.Get("url")
		}

		res, err := wv.Weave(r.Context(), req.URL)
		if err != nil {
			msg := weave.Describe(err)
			status := statusFor(msg.Kind)
			if asJSON {
				httpError(w, status, msg)
			} else {
				renderPage(w, status, pageData{URL: req.URL, Error: &msg})
			}
			return
		}

		if asJSON {
			writeJSON(w, http.StatusOK, weaveResponse{Message: res.Message(), Result: res})
			return
		}

		summaryHTML, err := export.NoteHTML(res.Item.SummaryText)
		if err != nil {
			log.Warn().Err(err).Msg("Falling back to plain summary")
		}
		renderPage(w, http.StatusOK, pageData{URL: req.URL, Result: res, SummaryHTML: trusted(summaryHTML)})
	}
}

func handleGraphHTML(wv Weaver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, ok := lookup(w, r, wv)
		if !ok {
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := graph.RenderHTML(w, res.Graph); err != nil {
			log.Error().Err(err).Msg("Graph render failed")
		}
	}
}

func handleGraphJSON(wv Weaver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, ok := lookup(w, r, wv)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, res.Graph)
	}
}

func handleNote(wv Weaver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, ok := lookup(w, r, wv)
		if !ok {
			return
		}
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": res.NoteFileName}))
		_, _ = w.Write([]byte(res.Note))
	}
}

func lookup(w http.ResponseWriter, r *http.Request, wv Weaver) (*weave.Result, bool) {
	id, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, http.StatusBadRequest, weave.Message{Kind: weave.KindUnexpected, Text: fmt.Sprintf("invalid id: %v", err)})
		return nil, false
	}
	res, err := wv.Lookup(r.Context(), id)
	if errors.Is(err, models.ErrEntryNotFound) {
		httpError(w, http.StatusNotFound, weave.Message{Kind: weave.KindUnexpected, Text: fmt.Sprintf("no weave for %q", id)})
		return nil, false
	}
	if err != nil {
		httpError(w, http.StatusInternalServerError, weave.Describe(err))
		return nil, false
	}
	return res, true
}

func statusFor(kind weave.Kind) int {
	switch kind {
	case weave.KindEmptyURL:
		return http.StatusBadRequest
	case weave.KindNoCaptions, weave.KindCaptionsDisabled:
		return http.StatusUnprocessableEntity
	case weave.KindTranscriptionService, weave.KindDownload, weave.KindGeneration:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Error writing response")
	}
}

func httpError(w http.ResponseWriter, code int, msg weave.Message) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("Handled request")
	})
}
