// Package web serves the add-word form: a small password-protected page
// that appends to the flat store. Presentation only; every data access goes
// through the store package.
package web

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/wordpusher/internal/store"
	"github.com/example/wordpusher/pkg/models"
)

const (
	sessionCookie = "wordpusher_session"
	sessionTTL    = 12 * time.Hour

	maxTermLen       = 50
	maxDefinitionLen = 200
)

// Server is the add-word web application
type Server struct {
	store        *store.Store
	passwordHash [32]byte
	secret       []byte
	httpServer   *http.Server
}

// New creates the server. The password is compared by SHA-256 digest, same
// scheme the login has always used. The secret signs the session cookie,
// so sessions survive a restart; with an empty secret a random per-process
// key is generated and every restart logs everyone out.
func New(addr, password, secret string, st *store.Store) *Server {
	s := &Server{
		store:        st,
		passwordHash: sha256.Sum256([]byte(password)),
		secret:       []byte(secret),
	}
	if secret == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			// crypto/rand failing means the host is broken; an empty key
			// makes newSession fail closed
			log.Printf("web: failed to generate session key: %v", err)
			key = nil
		}
		s.secret = key
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/login", s.handleLogin)
	mux.HandleFunc("/logout", s.handleLogout)
	mux.HandleFunc("/stats", s.requireLogin(s.handleStats))
	mux.HandleFunc("/", s.requireLogin(s.handleIndex))

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// ListenAndServe blocks until the context is cancelled or the listener fails
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.httpServer.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Handler exposes the mux for tests
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// newSession issues a signed "valid until" token: the expiry timestamp plus
// an HMAC over it. Nothing is kept server side.
func (s *Server) newSession() string {
	if len(s.secret) == 0 {
		return ""
	}
	expiry := strconv.FormatInt(time.Now().Add(sessionTTL).Unix(), 10)
	return expiry + "." + s.sign(expiry)
}

func (s *Server) sign(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *Server) validSession(token string) bool {
	if len(s.secret) == 0 {
		return false
	}
	expiry, sig, ok := strings.Cut(token, ".")
	if !ok || !hmac.Equal([]byte(sig), []byte(s.sign(expiry))) {
		return false
	}
	unix, err := strconv.ParseInt(expiry, 10, 64)
	if err != nil {
		return false
	}
	return time.Now().Unix() < unix
}

func (s *Server) requireLogin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(sessionCookie)
		if err != nil || !s.validSession(c.Value) {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		given := sha256.Sum256([]byte(r.FormValue("password")))
		if subtle.ConstantTimeCompare(given[:], s.passwordHash[:]) == 1 {
			token := s.newSession()
			if token != "" {
				http.SetCookie(w, &http.Cookie{
					Name:     sessionCookie,
					Value:    token,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
				http.Redirect(w, r, "/", http.StatusSeeOther)
				return
			}
		}
		s.render(w, loginTmpl, pageData{Flash: "Wrong password, try again"})
		return
	}
	s.render(w, loginTmpl, pageData{})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		s.render(w, indexTmpl, pageData{})
		return
	}

	term := trimmedForm(r, "word")
	definition := trimmedForm(r, "definition")

	flash := s.addWord(term, definition)
	s.render(w, indexTmpl, pageData{Flash: flash})
}

// addWord validates and appends; the returned string is the user message
func (s *Server) addWord(term, definition string) string {
	if term == "" || definition == "" {
		return "Both word and definition are required"
	}
	if len(term) > maxTermLen || len(definition) > maxDefinitionLen {
		return "Word or definition is too long"
	}

	err := s.store.AppendUnique(models.NewWordRecord(term, definition, time.Now()))
	switch {
	case errors.Is(err, store.ErrDuplicateTerm):
		return fmt.Sprintf("%q already exists", term)
	case errors.Is(err, store.ErrStorageUnavailable):
		return "The word file is busy, try again in a moment"
	case err != nil:
		log.Printf("web: failed to add word: %v", err)
		return "Failed to save the word, try again"
	default:
		return fmt.Sprintf("Added %q", term)
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	records, malformed, err := s.store.ReadAll()
	if err != nil {
		log.Printf("web: failed to read store: %v", err)
		http.Error(w, "word file unavailable", http.StatusServiceUnavailable)
		return
	}

	data := statsData{Total: len(records), Malformed: len(malformed)}
	totalStages := 0
	for _, rec := range records {
		if rec.ReviewStage == 0 {
			data.New++
		}
		totalStages += rec.ReviewStage
	}
	data.Reviewed = data.Total - data.New
	if data.Total > 0 {
		data.AvgStage = float64(totalStages) / float64(data.Total)
	}
	// Five most recently appended words, newest first
	for i := len(records) - 1; i >= 0 && len(data.Recent) < 5; i-- {
		data.Recent = append(data.Recent, records[i])
	}

	s.render(w, statsTmpl, data)
}

func trimmedForm(r *http.Request, key string) string {
	return strings.TrimSpace(r.FormValue(key))
}

func (s *Server) render(w http.ResponseWriter, t *template.Template, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.Execute(w, data); err != nil {
		log.Printf("web: failed to render template: %v", err)
	}
}
