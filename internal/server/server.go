// Package server exposes the menu assistant as a single-form web page and a
// plain-text API.
package server

import (
	"context"
	"errors"
	"html/template"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const maxQuestionBytes = 64 << 10

// Asker answers questions. Implementations serialize calls themselves.
type Asker interface {
	Ask(ctx context.Context, question string) string
	Count() int
}

type Server struct {
	asker    Asker
	gatherer prometheus.Gatherer
	logger   *zap.Logger
}

func New(a Asker, g prometheus.Gatherer, logger *zap.Logger) *Server {
	return &Server{asker: a, gatherer: g, logger: logger}
}

type pageData struct {
	Question string
	Answer   string
}

var page = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="fr">
<head>
<meta charset="utf-8">
<title>Chatbot - La belle pizza !</title>
<style>
body { font-family: sans-serif; max-width: 48rem; margin: 2rem auto; }
textarea { width: 100%; }
pre { white-space: pre-wrap; background: #f6f6f6; padding: 1rem; }
</style>
</head>
<body>
<h1>Chatbot - La belle pizza !</h1>
<p>Posez une question sur le menu ou les allergènes.</p>
<p><em>ex : Bonjour, je voudrais prendre la pizza MARGHERITA DI BUFALA. Je suis allergique au céleri c'est un soucis ?</em></p>
<form method="post" action="/">
<label for="question">Votre question</label>
<textarea id="question" name="question" rows="3" placeholder="Quels plats ne contiennent pas de gluten ?">{{.Question}}</textarea>
<button type="submit">Envoyer</button>
</form>
{{if .Answer}}<h2>Réponse du chatbot</h2>
<pre>{{.Answer}}</pre>{{end}}
</body>
</html>
`))

func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(s.requestID)

	router.HandleFunc("/", s.formHandler).Methods(http.MethodGet)
	router.HandleFunc("/", s.submitHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/ask", s.askHandler).Methods(http.MethodPost)
	router.HandleFunc("/healthz", s.healthzHandler).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	return router
}

// Serve listens on addr until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("🌐 server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (s *Server) formHandler(w http.ResponseWriter, r *http.Request) {
	s.render(w, pageData{})
}

func (s *Server) submitHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxQuestionBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	question := r.PostFormValue("question")
	s.render(w, pageData{Question: question, Answer: s.ask(r, question)})
}

func (s *Server) askHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxQuestionBytes))
	if err != nil {
		http.Error(w, "question too large", http.StatusRequestEntityTooLarge)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, s.ask(r, string(body)))
}

func (s *Server) healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if s.asker.Count() == 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, "empty collection\n")
		return
	}
	_, _ = io.WriteString(w, "ok\n")
}

func (s *Server) ask(r *http.Request, question string) string {
	return s.asker.Ask(r.Context(), strings.TrimSpace(question))
}

func (s *Server) render(w http.ResponseWriter, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := page.Execute(w, data); err != nil {
		s.logger.Error("❌ render failed", zap.Error(err))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// requestID tags every request with an id, echoed in X-Request-ID, and
// logs it once served.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", id)

		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.logger.Info("request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("took", time.Since(started)))
	})
}
