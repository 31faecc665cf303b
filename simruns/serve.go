package simruns

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/juju/gnuflag"
	"github.com/nrsim/simtools/config"
	"github.com/nrsim/simtools/record"
	"github.com/nrsim/simtools/util"
)

// Helper function to write http JSON response
func writeJsonResponse(w http.ResponseWriter, httpStatus int, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		httpStatus = http.StatusInternalServerError
		jsonData = []byte(`{"error": "Internal server error: ` + err.Error() + `"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_, err = w.Write(jsonData)
	if err != nil {
		util.Logger().Warnf("failed to write response: %v", err)
	}
}

func handlePing(w http.ResponseWriter, r *http.Request) {
	writeJsonResponse(w, http.StatusOK, map[string]string{"message": "pong"})
}

type server struct {
	root string
}

// Handle request for the names of all runs below the output root
func (s *server) handleRuns(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(s.root)
	if errors.Is(err, os.ErrNotExist) {
		writeJsonResponse(w, http.StatusOK, []string{})
		return
	}
	if err != nil {
		writeJsonResponse(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	names := []string{}
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	writeJsonResponse(w, http.StatusOK, names)
}

// Handle request for the records of a single run
func (s *server) handleRun(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		writeJsonResponse(w, http.StatusBadRequest, map[string]string{"error": "invalid run name"})
		return
	}
	recs, err := record.List(filepath.Join(s.root, name))
	if errors.Is(err, os.ErrNotExist) {
		writeJsonResponse(w, http.StatusNotFound, map[string]string{"error": fmt.Sprintf("no run named %q", name)})
		return
	}
	if err != nil {
		writeJsonResponse(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJsonResponse(w, http.StatusOK, recs)
}

// newRouter serves the runs below root. Run listings require a valid HS256
// bearer token when auth is non-nil.
func newRouter(root string, auth *jwtauth.JWTAuth) http.Handler {
	s := &server{root: root}
	r := chi.NewRouter()
	r.Get("/ping", handlePing)
	r.Route("/runs", func(r chi.Router) {
		if auth != nil {
			r.Use(jwtauth.Verifier(auth))
			r.Use(jwtauth.Authenticator(auth))
		}
		r.Get("/", s.handleRuns)
		r.Get("/{name}", s.handleRun)
	})
	return r
}

func runServe(args []string) error {
	var root, host string
	fs := gnuflag.NewFlagSet("serve", gnuflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&root, "o", "", "output root")
	fs.StringVar(&root, "output", "", "output root")
	fs.StringVar(&host, "addr", "", "listen address")
	if err := fs.Parse(true, args); err != nil {
		return err
	}

	conf := config.GetConfig()
	if root == "" {
		root = conf.Run.OutputRoot
	}
	if host == "" {
		host = conf.Runs.Host
	}
	if host == "" {
		return fmt.Errorf("listen address not set in config")
	}

	var auth *jwtauth.JWTAuth
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		auth = jwtauth.New("HS256", []byte(secret), nil)
	} else if !isLoopback(host) {
		return fmt.Errorf("JWT_SECRET not set, refusing to serve on %s", host)
	}
	util.Logger().Infof("serving runs below %s on %s", root, host)
	return http.ListenAndServe(host, newRouter(root, auth))
}

// isLoopback reports whether the listen address only accepts local connections.
func isLoopback(addr string) bool {
	h, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if h == "localhost" {
		return true
	}
	ip := net.ParseIP(h)
	return ip != nil && ip.IsLoopback()
}
