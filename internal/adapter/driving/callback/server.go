// Package callback runs the short-lived local HTTP listener that captures the
// OAuth redirect (authorization code) and, for the destination service, the
// folder selection form submission.
package callback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// SessionState tracks how far an authorization session has progressed.
type SessionState int

const (
	// StateAwaitingCode means the browser redirect with ?code= has not arrived.
	StateAwaitingCode SessionState = iota
	// StateAwaitingFolder means the code arrived and the folder selection form
	// was rendered but not yet submitted.
	StateAwaitingFolder
	// StateComplete is terminal.
	StateComplete
)

// ErrNoActiveSession is returned to requests arriving outside a session.
var ErrNoActiveSession = errors.New("no active authorization session")

// Session is one in-flight interactive authorization. Results are delivered
// over buffered channels so the HTTP handler never blocks on the main flow.
type Session struct {
	mu          sync.Mutex
	state       SessionState
	expectState string // OAuth state parameter the redirect must echo.
	needsFolder bool

	codeCh   chan string
	folderCh chan string
}

// State returns the current session state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// WaitForCode blocks until the authorization code arrives or ctx expires.
func (s *Session) WaitForCode(ctx context.Context) (string, error) {
	select {
	case code := <-s.codeCh:
		return code, nil
	case <-ctx.Done():
		return "", fmt.Errorf("waiting for authorization code: %w", ctx.Err())
	}
}

// WaitForFolder blocks until the folder id arrives or ctx expires.
func (s *Session) WaitForFolder(ctx context.Context) (string, error) {
	select {
	case folderID := <-s.folderCh:
		return folderID, nil
	case <-ctx.Done():
		return "", fmt.Errorf("waiting for folder selection: %w", ctx.Err())
	}
}

// Server is the local callback HTTP listener. It serves at most one Session
// at a time; the authorization flows for the two services run sequentially.
type Server struct {
	srv *http.Server

	mu      sync.Mutex
	session *Session
}

// NewServer creates a Server listening on addr once Start is called.
func NewServer(addr string) *Server {
	s := &Server{}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRedirect)
	mux.HandleFunc("POST /select_folder", s.handleSelectFolder)

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

// Handler exposes the route handler for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start begins serving on the configured address in a background goroutine.
func (s *Server) Start() {
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("callback listener error", "error", err)
		}
	}()
}

// Shutdown stops the listener gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// NewSession arms the listener for one authorization flow. expectState is the
// OAuth state parameter the redirect must carry; needsFolder requests the
// folder selection step after the code arrives.
func (s *Server) NewSession(expectState string, needsFolder bool) *Session {
	sess := &Session{
		state:       StateAwaitingCode,
		expectState: expectState,
		needsFolder: needsFolder,
		codeCh:      make(chan string, 1),
		folderCh:    make(chan string, 1),
	}

	s.mu.Lock()
	s.session = sess
	s.mu.Unlock()

	return sess
}

func (s *Server) current() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// handleRedirect processes the OAuth redirect carrying ?code= (and ?state=).
func (s *Server) handleRedirect(w http.ResponseWriter, r *http.Request) {
	sess := s.current()
	if sess == nil {
		renderError(w, http.StatusNotFound, "No authorization in progress.")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		renderError(w, http.StatusNotFound, "Page not found.")
		return
	}

	if state := r.URL.Query().Get("state"); state != sess.expectState {
		slog.Warn("callback state mismatch", "got", state)
		renderError(w, http.StatusBadRequest, "Authorization state mismatch. Please restart the flow.")
		return
	}

	sess.mu.Lock()
	if sess.state != StateAwaitingCode {
		sess.mu.Unlock()
		renderError(w, http.StatusBadRequest, "Authorization code already received.")
		return
	}
	if sess.needsFolder {
		sess.state = StateAwaitingFolder
	} else {
		sess.state = StateComplete
	}
	needsFolder := sess.needsFolder
	sess.mu.Unlock()

	sess.codeCh <- code
	slog.Info("authorization code received", "needs_folder", needsFolder)

	if needsFolder {
		renderFolderForm(w)
		return
	}
	renderSuccess(w, "Authorization successful! You can close this window.")
}

// handleSelectFolder completes the folder selection step.
func (s *Server) handleSelectFolder(w http.ResponseWriter, r *http.Request) {
	sess := s.current()
	if sess == nil || sess.State() != StateAwaitingFolder {
		renderError(w, http.StatusNotFound, "Invalid request.")
		return
	}

	if err := r.ParseForm(); err != nil {
		renderError(w, http.StatusBadRequest, "Malformed form submission.")
		return
	}

	folderID := r.PostForm.Get("folder_id")
	if folderID == "" {
		renderError(w, http.StatusBadRequest, "Error: no folder ID provided.")
		return
	}

	sess.mu.Lock()
	sess.state = StateComplete
	sess.mu.Unlock()

	sess.folderCh <- folderID
	slog.Info("folder selected", "folder_id", folderID)

	renderSuccess(w, "Folder selected! You can close this window.")
}
