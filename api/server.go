package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/VijayarajParamasivam/PaperMind/counter"
	"github.com/VijayarajParamasivam/PaperMind/session"
)

const maxUploadBytes = 64 << 20

// Server exposes the single live session over HTTP. Mutating operations are
// strictly sequential and serialize on a mutex; status reads bypass it so a
// poll during processing sees the live phase and progress.
type Server struct {
	sess    *session.Session
	counter counter.Store
	tempDir string
	logger  *log.Logger
	handler http.Handler

	mu sync.Mutex
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type statusResponse struct {
	session.Status
	QuestionsAnswered int64 `json:"questionsAnswered"`
}

type chatRequest struct {
	Question string `json:"question"`
}

type chatResponse struct {
	Answer string        `json:"answer"`
	Phase  session.Phase `json:"phase"`
}

func New(sess *session.Session, counterStore counter.Store, tempDir string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}

	s := &Server{
		sess:    sess,
		counter: counterStore,
		tempDir: tempDir,
		logger:  logger,
	}
	s.handler = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/session", s.handleSession)
	mux.HandleFunc("/v1/chat", s.handleChat)
	mux.HandleFunc("/v1/clear", s.handleClear)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}

	s.writeJSON(w, http.StatusOK, messageResponse{Message: "ok"})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleSessionStatus(w, r)
	case http.MethodPost:
		s.handleSessionSubmit(w, r)
	default:
		s.methodNotAllowed(w, "GET, POST")
	}
}

func (s *Server) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	status := s.sess.Status()

	answered, err := s.counter.Read(r.Context(), counter.QuestionsAnswered)
	if err != nil {
		s.logger.Printf("read counter: %v", err)
	}

	s.writeJSON(w, http.StatusOK, statusResponse{Status: status, QuestionsAnswered: answered})
}

// handleSessionSubmit accepts the credential and PDF as one multipart form
// and runs the whole processing phase in the foreground: the response only
// returns once the session is ready (or reset by a failure).
func (s *Server) handleSessionSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("parse upload: %w", err))
		return
	}

	credential := strings.TrimSpace(r.FormValue("credential"))

	path, err := s.saveUpload(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sess.Submit(credential, path); err != nil {
		if path != "" {
			_ = os.Remove(path)
		}
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.sess.Process(r.Context()); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, session.ErrCredential) {
			status = http.StatusBadRequest
		}
		s.writeError(w, status, err)
		return
	}

	s.writeJSON(w, http.StatusOK, s.sess.Status())
}

func (s *Server) saveUpload(r *http.Request) (string, error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil
		}
		return "", fmt.Errorf("read upload: %w", err)
	}
	defer file.Close()

	if err := os.MkdirAll(s.tempDir, 0o755); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}

	path := filepath.Join(s.tempDir, filepath.Base(header.Filename))
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("store upload: %w", err)
	}

	return path, nil
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}

	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("question is required"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	answer, err := s.sess.Ask(r.Context(), req.Question)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrGeneration):
			// A failed generation call still carries the apology answer; the
			// session has already been reset and the client sees both.
			s.logger.Printf("chat error: %v", err)
			s.writeJSON(w, http.StatusOK, chatResponse{Answer: answer, Phase: s.sess.Phase()})
		case errors.Is(err, session.ErrIndex):
			s.writeError(w, http.StatusInternalServerError, err)
		default:
			s.writeError(w, http.StatusBadRequest, err)
		}
		return
	}

	s.writeJSON(w, http.StatusOK, chatResponse{Answer: answer, Phase: s.sess.Phase()})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}

	s.mu.Lock()
	s.sess.Clear(r.Context())
	s.mu.Unlock()

	s.writeJSON(w, http.StatusOK, messageResponse{Message: "session cleared"})
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	s.writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed, use %s", allowed))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Printf("encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.logger.Printf("api error (%d): %v", status, err)
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}

	if dec.More() {
		return fmt.Errorf("request body must contain a single JSON object")
	}

	return nil
}
