// Package registrytest provides an in-memory installer registry for tests.
package registrytest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strings"
	"sync"
)

// Default credentials accepted by a new Server.
const (
	APIKey   = "test-api-key"
	Username = "admin"
	Password = "secret"
	Token    = "test-token"
)

// Installer is the wire shape the fake registry stores.
type Installer struct {
	Filename             string            `json:"filename"`
	Version              string            `json:"version"`
	PythonVersion        string            `json:"pythonVersion"`
	Platform             string            `json:"platform"`
	PythonModules        map[string]string `json:"pythonModules"`
	RuntimePythonModules map[string]string `json:"runtimePythonModules"`
	Checksum             string            `json:"checksum"`
	ChecksumAlgorithm    string            `json:"checksumAlgorithm"`
	Size                 int64             `json:"size"`
}

// Call is one request the server received.
type Call struct {
	Method string
	Path   string
}

// String renders the call as "METHOD /path".
func (c Call) String() string {
	return c.Method + " " + c.Path
}

// Server is a fake registry backed by httptest.Server.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	installers []Installer
	uploads    map[string][]byte
	calls      []Call
	failures   map[string]int
}

// NewServer starts a registry holding a copy of installers.
func NewServer(installers ...Installer) *Server {
	s := &Server{
		installers: slices.Clone(installers),
		uploads:    make(map[string][]byte),
		failures:   make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/info", s.handleInfo)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("GET /api/users/me", s.authorized(s.handleMe))
	mux.HandleFunc("GET /api/desktop/installers", s.authorized(s.handleList))
	mux.HandleFunc("POST /api/desktop/installers", s.authorized(s.handleCreate))
	mux.HandleFunc("DELETE /api/desktop/installers/{filename}", s.authorized(s.handleDelete))
	mux.HandleFunc("PUT /api/desktop/installers/{filename}", s.authorized(s.handleUpload))

	s.Server = httptest.NewServer(s.record(mux))

	return s
}

// FailNext makes the next request matching "METHOD /path" answer with status.
func (s *Server) FailNext(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures[method+" "+path] = status
}

// Calls returns the requests received so far.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.calls)
}

// WriteCalls returns the received requests that change registry state.
func (s *Server) WriteCalls() []Call {
	var writes []Call

	for _, call := range s.Calls() {
		if call.Method != http.MethodGet {
			writes = append(writes, call)
		}
	}

	return writes
}

// Installers returns the stored entries in registry order.
func (s *Server) Installers() []Installer {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.installers)
}

// Upload returns the uploaded bytes for filename.
func (s *Server) Upload(filename string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.uploads[filename]

	return data, ok
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.EscapedPath()
		if unescaped, err := url.PathUnescape(path); err == nil {
			path = unescaped
		}

		key := r.Method + " " + path

		s.mu.Lock()
		s.calls = append(s.calls, Call{Method: r.Method, Path: path})
		status, fail := s.failures[key]
		delete(s.failures, key)
		s.mu.Unlock()

		if fail {
			writeDetail(w, status, "injected failure")

			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") == APIKey || r.Header.Get("Authorization") == "Bearer "+Token {
			next(w, r)

			return
		}

		writeDetail(w, http.StatusUnauthorized, "not logged in")
	}
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": "1.0.0"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name     string `json:"name"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())

		return
	}

	if payload.Name != Username || payload.Password != Password {
		writeDetail(w, http.StatusUnauthorized, "invalid login")

		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": Token})
}

func (s *Server) handleMe(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"name": Username})
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]Installer{"installers": s.Installers()})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var entry Installer

	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.installers {
		if existing.Filename == entry.Filename ||
			(existing.Platform == entry.Platform && existing.Version == entry.Version) {
			writeDetail(w, http.StatusConflict, "installer already exists")

			return
		}
	}

	s.installers = append(s.installers, entry)

	writeJSON(w, http.StatusCreated, map[string]string{"filename": entry.Filename})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")

	s.mu.Lock()
	defer s.mu.Unlock()

	index := slices.IndexFunc(s.installers, func(i Installer) bool { return i.Filename == filename })
	if index < 0 {
		writeDetail(w, http.StatusNotFound, "installer not found")

		return
	}

	s.installers = slices.Delete(s.installers, index, index+1)
	delete(s.uploads, filename)

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/octet-stream") {
		writeDetail(w, http.StatusUnsupportedMediaType, "expected application/octet-stream")

		return
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !slices.ContainsFunc(s.installers, func(i Installer) bool { return i.Filename == filename }) {
		writeDetail(w, http.StatusNotFound, "installer not found")

		return
	}

	s.uploads[filename] = data

	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(body)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
