package web

import (
	"bytes"
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/vbonduro/hoardings/internal/domain"
	"github.com/vbonduro/hoardings/internal/service"
)

// Options tunes the server; zero values fall back to defaults.
type Options struct {
	MaxUploadBytes       int64
	EnquiryRatePerMinute int
	// TrustProxyHeaders takes the client address from X-Forwarded-For or
	// X-Real-IP. Only safe behind a proxy that overwrites those headers.
	TrustProxyHeaders bool
	// MetricsHandler is mounted on /metrics when set.
	MetricsHandler http.Handler
}

const (
	defaultMaxUploadBytes       = 25 << 20
	defaultEnquiryRatePerMinute = 5
)

type Server struct {
	service        *service.HoardingService
	templates      fs.FS
	router         chi.Router
	tmplFuncs      template.FuncMap
	logger         *slog.Logger
	maxUploadBytes int64
	enquiryLimiter *ipLimiter
}

func NewServer(svc *service.HoardingService, tmpl fs.FS, logger *slog.Logger, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	if opts.EnquiryRatePerMinute <= 0 {
		opts.EnquiryRatePerMinute = defaultEnquiryRatePerMinute
	}

	s := &Server{
		service:        svc,
		templates:      tmpl,
		router:         chi.NewRouter(),
		logger:         logger,
		maxUploadBytes: opts.MaxUploadBytes,
		enquiryLimiter: newIPLimiter(opts.EnquiryRatePerMinute),
		tmplFuncs: template.FuncMap{
			"inc":      func(i int) int { return i + 1 },
			"rupees":   formatRupees,
			"date":     func(t time.Time) string { return t.Format("02 Jan 2006") },
			"imageURL": imageURL,
		},
	}
	s.registerRoutes(opts)
	return s
}

func (s *Server) registerRoutes(opts Options) {
	r := s.router
	r.Use(chimw.RequestID)
	if opts.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(chimw.Recoverer)
	r.Use(observeRequests)
	r.Use(requestLogger(s.logger))
	r.Use(securityHeaders)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/hoardings", http.StatusSeeOther)
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	if opts.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", opts.MetricsHandler)
	}

	r.Route("/hoardings", func(r chi.Router) {
		r.Get("/", s.handleListHoardings)
		r.Post("/", s.handleCreateHoarding)
		r.Get("/new", s.handleNewHoarding)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetHoarding)
			r.Post("/", s.handleUpdateHoarding)
			r.Delete("/", s.handleDeleteHoarding)
			r.Get("/edit", s.handleEditHoarding)

			r.Post("/images", s.handleUploadImages)
			r.Get("/images/{imageID}", s.handleGetImage)

			r.Get("/enquire", s.handleEnquiryForm)
			r.With(s.limitEnquiries).Post("/enquiries", s.handleSubmitEnquiry)
		})
	})
	r.Get("/enquiries", s.handleListEnquiries)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.renderError(w, http.StatusNotFound, "Page not found.")
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// renderPage parses a full-page template set and writes it with status.
// Output is buffered so a failing template never leaves a half-written page.
func (s *Server) renderPage(w http.ResponseWriter, status int, data any, files ...string) error {
	tmpl, err := template.New("").Funcs(s.tmplFuncs).ParseFS(s.templates, files...)
	if err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return err
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err = buf.WriteTo(w)
	return err
}

// renderPartial parses and executes a single named partial template.
// The file must contain exactly one {{define "name"}}...{{end}} block.
func (s *Server) renderPartial(w http.ResponseWriter, file string, data any) error {
	tmpl, err := template.New("").Funcs(s.tmplFuncs).ParseFS(s.templates, file)
	if err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return err
	}

	basename := file
	if idx := strings.LastIndexByte(file, '/'); idx >= 0 {
		basename = file[idx+1:]
	}
	name := basename
	for _, t := range tmpl.Templates() {
		if n := t.Name(); n != "" && n != basename {
			name = n
			break
		}
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err = buf.WriteTo(w)
	return err
}

func (s *Server) renderError(w http.ResponseWriter, status int, message string) {
	if err := s.renderPage(w, status,
		map[string]any{"Status": status, "StatusText": http.StatusText(status), "Message": message, "ActiveNav": ""},
		"base.html", "pages/error.html",
	); err != nil {
		s.logger.Error("render error page failed", "error", err)
	}
}

func imageURL(img domain.Image) string {
	return "/hoardings/" + itoa(img.HoardingID) + "/images/" + itoa(img.ID)
}
