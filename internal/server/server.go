package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"

	"github.com/yuin/goldmark"

	"github.com/TobiSchelling/MisfitCrawler/internal/config"
	"github.com/TobiSchelling/MisfitCrawler/internal/database"
	"github.com/TobiSchelling/MisfitCrawler/internal/member"
	"github.com/TobiSchelling/MisfitCrawler/internal/state"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

// recentRuns is how many runs the history page lists.
const recentRuns = 25

// LoadFunc returns a fresh snapshot of the crawl state and member directory.
type LoadFunc func() (*state.State, *member.Directory, error)

// Server is the HTTP server for the leaderboard.
type Server struct {
	cfg   *config.Config
	db    *database.DB
	load  LoadFunc
	pages map[string]*template.Template
	mux   *http.ServeMux
}

// Standing is one leaderboard row.
type Standing struct {
	Rank    int
	Handle  string
	Reports int
	Signups int
}

// UnresolvedName is a roster name no member matched, with an optional hint.
type UnresolvedName struct {
	Name       string
	Suggestion string
	Score      float64
}

// New creates a new Server. db may be nil, in which case the history page
// is empty.
func New(cfg *config.Config, db *database.DB, load LoadFunc) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
		"percent": func(f float64) string {
			return fmt.Sprintf("%.0f%%", f*100)
		},
	}

	// Parse base template first
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// For each page template, clone the base and parse the page into the clone.
	// This gives each page its own {{define "content"}} and {{define "title"}}.
	pageNames := []string{"index.html", "runs.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{cfg: cfg, db: db, load: load, pages: pages, mux: http.NewServeMux()}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/runs", s.handleRuns)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	by, err := member.ParseCounter(r.URL.Query().Get("by"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	st, dir, err := s.load()
	if err != nil {
		log.Printf("Error loading state: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.render(w, "index.html", map[string]any{
		"Subreddit":  s.cfg.Reddit.Subreddit,
		"About":      s.cfg.Server.About,
		"By":         by.String(),
		"Standings":  standings(dir.Members(), by),
		"Unresolved": unresolved(st, dir),
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{"Subreddit": s.cfg.Reddit.Subreddit}
	if s.db != nil {
		runs, err := s.db.GetRecentRuns(recentRuns)
		if err != nil {
			log.Printf("Error reading runs: %v", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		rescanned, err := s.db.GetRescannedSubmissions(database.CommandSignup)
		if err != nil {
			log.Printf("Error reading rescanned submissions: %v", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		data["Runs"] = runs
		data["Rescanned"] = rescanned
	}
	s.render(w, "runs.html", data)
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		log.Printf("Template %s not found", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		log.Printf("Error rendering template %s: %v", name, err)
	}
}

// standings ranks members by counter. Members sharing a value share a rank.
func standings(members []*member.Member, by member.Counter) []Standing {
	ranked := member.Rank(members, by)
	positions := member.Positions(ranked, by)
	out := make([]Standing, 0, len(ranked))
	for i, m := range ranked {
		out = append(out, Standing{Rank: positions[i], Handle: m.Handle, Reports: m.ReportCount, Signups: m.SignupCount})
	}
	return out
}

func unresolved(st *state.State, dir *member.Directory) []UnresolvedName {
	out := make([]UnresolvedName, 0, len(st.UnresolvedNames))
	for _, name := range st.UnresolvedNames {
		u := UnresolvedName{Name: name}
		if sug, ok := dir.Suggest(name); ok {
			u.Suggestion = sug.Member.Handle
			u.Score = sug.Score
		}
		out = append(out, u)
	}
	return out
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// Serve starts the HTTP server on the given port.
func Serve(cfg *config.Config, db *database.DB, load LoadFunc, port int) error {
	srv, err := New(cfg, db, load)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("Server listening on http://%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
