// Package web provides the HTTP status and control page of the phone.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/sweeney/rotary-phone/internal/command"
	"github.com/sweeney/rotary-phone/internal/directory"
	"github.com/sweeney/rotary-phone/internal/logic"
	"github.com/sweeney/rotary-phone/internal/params"
	"github.com/sweeney/rotary-phone/internal/status"
)

// Directory lists the dialable numbers and where their recordings live.
type Directory interface {
	Dir() string
	Entries() []directory.Entry
	Entry(number string) (directory.Entry, bool)
}

// maxUpload bounds the size of an uploaded recording.
const maxUpload = 32 << 20

// Params lists the stored parameters.
type Params interface {
	All() []params.Entry
}

// CommandSink accepts commands for the polling loop.
type CommandSink interface {
	Submit(c command.Command) error
}

// Deps are the collaborators of a Server. Directory and Params may be nil.
type Deps struct {
	Directory Directory
	Params    Params
	Commands  CommandSink
}

// Server serves the status page over HTTP and forwards control requests
// to the polling loop.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	deps       Deps
}

// New creates a Server that reads state from the given tracker.
func New(addr string, tracker *status.Tracker, deps Deps) *Server {
	s := &Server{tracker: tracker, deps: deps}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/numbers.json", s.handleNumbers)
	mux.HandleFunc("/numbers", s.post(s.handleUpload))
	mux.HandleFunc("/numbers/delete", s.post(s.handleDelete))
	mux.HandleFunc("/call", s.post(s.handleCall))
	mux.HandleFunc("/hangup", s.post(s.handleHangup))
	mux.HandleFunc("/refresh", s.post(s.handleRefresh))
	mux.HandleFunc("/params", s.post(s.handleParams))

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// Handler returns the request multiplexer.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, s.page())
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

type numberJSON struct {
	Number      string `json:"number"`
	Description string `json:"description"`
}

func (s *Server) handleNumbers(w http.ResponseWriter, r *http.Request) {
	out := []numberJSON{}
	if s.deps.Directory != nil {
		for _, e := range s.deps.Directory.Entries() {
			out = append(out, numberJSON{Number: e.Number, Description: e.Description})
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

// handleUpload stores a <number>_<description>.wav recording in the numbers
// directory and asks the loop to rescan it.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.deps.Directory == nil {
		http.Error(w, "no numbers directory", http.StatusNotFound)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "upload: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	e, ok := directory.ParseName(name)
	if !ok || len(e.Number) > logic.MaxDigits {
		http.Error(w, "file name must be <number>_<description>"+directory.Ext, http.StatusBadRequest)
		return
	}
	if cur, taken := s.deps.Directory.Entry(e.Number); taken && filepath.Base(cur.Path) != name {
		http.Error(w, fmt.Sprintf("number %s is already %s", e.Number, filepath.Base(cur.Path)), http.StatusConflict)
		return
	}

	dir := s.deps.Directory.Dir()
	if err := writeFile(filepath.Join(dir, name), file); err != nil {
		log.Error().Err(err).Str("file", name).Msg("upload failed")
		http.Error(w, "upload failed", http.StatusInternalServerError)
		return
	}
	log.Info().Str("file", name).Str("remote", r.RemoteAddr).Msg("recording uploaded")
	s.submit(w, r, command.Refresh())
}

// writeFile writes src next to path and renames it into place, so a
// partial upload never shows up as a number.
func writeFile(path string, src io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

// handleDelete removes the recording of a number.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	number := strings.TrimSpace(r.FormValue("number"))
	if s.deps.Directory == nil {
		http.Error(w, "no numbers directory", http.StatusNotFound)
		return
	}
	e, ok := s.deps.Directory.Entry(number)
	if !ok {
		http.Error(w, "unknown number: "+number, http.StatusNotFound)
		return
	}
	if err := os.Remove(e.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Error().Err(err).Str("file", e.Path).Msg("delete failed")
		http.Error(w, "delete failed", http.StatusInternalServerError)
		return
	}
	log.Info().Str("number", number).Str("remote", r.RemoteAddr).Msg("recording deleted")
	s.submit(w, r, command.Refresh())
}

// post restricts h to POST requests.
func (s *Server) post(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	number := strings.TrimSpace(r.FormValue("number"))
	s.submit(w, r, command.Ring(number))
}

func (s *Server) handleHangup(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, command.Hangup())
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, command.Refresh())
}

func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.FormValue("name"))
	if s.deps.Params != nil && name != "" && !s.knownParam(name) {
		http.Error(w, params.ErrUnknownParam.Error()+": "+name, http.StatusBadRequest)
		return
	}
	s.submit(w, r, command.SetParam(name, strings.TrimSpace(r.FormValue("value"))))
}

func (s *Server) knownParam(name string) bool {
	for _, e := range s.deps.Params.All() {
		if e.Name == name {
			return true
		}
	}
	return false
}

// submit queues c and redirects back to the status page.
func (s *Server) submit(w http.ResponseWriter, r *http.Request, c command.Command) {
	c.Source = "http"
	err := s.deps.Commands.Submit(c)
	switch {
	case errors.Is(err, command.ErrQueueFull):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	log.Info().Str("command", c.String()).Str("remote", r.RemoteAddr).Msg("http command queued")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) page() pageData {
	snap := s.tracker.Snapshot()
	data := pageData{Snapshot: snap, Uptime: snap.Uptime()}
	if s.deps.Directory != nil {
		data.Numbers = s.deps.Directory.Entries()
	}
	if s.deps.Params != nil {
		data.Params = s.deps.Params.All()
	}
	return data
}
