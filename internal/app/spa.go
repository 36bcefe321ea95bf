package app

import (
	"errors"
	"io/fs"
	"log"
	"net/http"
	"strings"
)

// Route is the decision taken for one request below the mount point.
type Route int

const (
	// RoutePassThrough leaves non-GET requests to normal resolution.
	RoutePassThrough Route = iota
	RouteAPI
	RouteStatic
	RouteRoot
	// RouteShell answers with the application shell so the client-side
	// router can take over.
	RouteShell
)

func (r Route) String() string {
	switch r {
	case RoutePassThrough:
		return "pass-through"
	case RouteAPI:
		return "api"
	case RouteStatic:
		return "static"
	case RouteRoot:
		return "root"
	case RouteShell:
		return "shell"
	default:
		return "unknown"
	}
}

// Classify decides how a request for the mount-relative path is served.
// The first matching rule wins.
func Classify(method, path string) Route {
	switch {
	case method != http.MethodGet:
		return RoutePassThrough
	case strings.HasPrefix(path, apiPrefix):
		return RouteAPI
	case hasExtension(path):
		return RouteStatic
	case path == "" || path == "/":
		return RouteRoot
	default:
		return RouteShell
	}
}

func hasExtension(path string) bool {
	last := path[strings.LastIndex(path, "/")+1:]
	return strings.Contains(last, ".")
}

// route strips the mount point and dispatches by Classify.
func (s *HTTPServer) route(w http.ResponseWriter, r *http.Request) {
	path, ok := s.relativePath(r.URL.Path)
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	switch Classify(r.Method, path) {
	case RouteAPI:
		s.handleAPI(w, r, path)
	case RouteStatic:
		if s.shell.requested(path) {
			// FileServer would redirect .../index.html to ./
			s.shell.serve(w, r)
			return
		}
		s.serveStatic(w, r, path)
	case RouteRoot:
		s.serveStatic(w, r, path)
	case RouteShell:
		s.shell.serve(w, r)
	default:
		if strings.HasPrefix(path, apiPrefix) {
			s.handleAPI(w, r, path)
			return
		}
		s.serveStatic(w, r, path)
	}
}

// relativePath returns urlPath relative to the mount point, always starting
// with "/". Paths outside the mount report !ok.
func (s *HTTPServer) relativePath(urlPath string) (string, bool) {
	if s.mount == "" {
		if urlPath == "" {
			return "/", true
		}
		return urlPath, true
	}
	if urlPath == s.mount {
		return "/", true
	}
	if strings.HasPrefix(urlPath, s.mount+"/") {
		return strings.TrimPrefix(urlPath, s.mount), true
	}
	return "", false
}

func (s *HTTPServer) serveStatic(w http.ResponseWriter, r *http.Request, path string) {
	r2 := r.Clone(r.Context())
	r2.URL.Path = path
	r2.URL.RawPath = ""
	s.static.ServeHTTP(w, r2)
}

type shellDocument struct {
	fs   http.FileSystem
	name string
}

func (d *shellDocument) requested(path string) bool {
	return path == "/"+strings.TrimPrefix(d.name, "/")
}

// serve writes the shell document for r without redirecting, so the URL the
// client asked for stays in place.
func (d *shellDocument) serve(w http.ResponseWriter, r *http.Request) {
	f, err := d.fs.Open("/" + strings.TrimPrefix(d.name, "/"))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Printf(`{"request_id":"%s","shell_error":%q}`, requestID(r.Context()), err.Error())
		}
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
