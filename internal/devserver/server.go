// Package devserver serves local books over the webby HTTP API so the
// reader can be run and tested without a webby server.
package devserver

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/justyntemme/webby-pager/internal/localbook"
	"github.com/justyntemme/webby-pager/pkg/models"
)

// Server is the HTTP API server for a set of local books
type Server struct {
	router chi.Router
	log    *zap.Logger
	token  string

	books map[string]*localbook.Book
	order []string

	mu        sync.Mutex
	positions map[string]models.ReadingPosition
}

// New creates a server over books. A non-empty token is required as a
// bearer token on /api routes.
func New(books []*localbook.Book, token string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		log:       log.Named("devserver"),
		token:     token,
		books:     make(map[string]*localbook.Book, len(books)),
		positions: make(map[string]models.ReadingPosition),
	}
	for _, b := range books {
		id := b.Info().ID
		if _, dup := s.books[id]; dup {
			continue
		}
		s.books[id] = b
		s.order = append(s.order, id)
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Route("/api/books", func(r chi.Router) {
		if s.token != "" {
			r.Use(AuthMiddleware(s.token))
		}
		r.Get("/", s.handleListBooks)
		r.Route("/{bookID}", func(r chi.Router) {
			r.Get("/", s.handleGetBook)
			r.Get("/toc", s.handleTOC)
			r.Get("/text/{chapter}", s.handleChapterText)
			r.Get("/position", s.handleGetPosition)
			r.Post("/position", s.handleSavePosition)
		})
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	search := strings.ToLower(q.Get("search"))

	var all []models.Book
	for _, id := range s.order {
		info := s.books[id].Info()
		if search != "" && !strings.Contains(strings.ToLower(info.Title+" "+info.Author), search) {
			continue
		}
		all = append(all, info)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Title < all[j].Title })

	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	start := min((page-1)*limit, len(all))
	end := min(start+limit, len(all))

	writeJSON(w, http.StatusOK, models.BooksResponse{
		Books: all[start:end],
		Count: end - start,
		Total: len(all),
		Page:  page,
		Limit: limit,
	})
}

func (s *Server) book(w http.ResponseWriter, r *http.Request) (*localbook.Book, bool) {
	b, ok := s.books[chi.URLParam(r, "bookID")]
	if !ok {
		jsonError(w, "book not found", http.StatusNotFound)
	}
	return b, ok
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	b, ok := s.book(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, b.Info())
}

func (s *Server) handleTOC(w http.ResponseWriter, r *http.Request) {
	b, ok := s.book(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, models.TOCResponse{Chapters: b.TOC()})
}

func (s *Server) handleChapterText(w http.ResponseWriter, r *http.Request) {
	b, ok := s.book(w, r)
	if !ok {
		return
	}
	n, err := strconv.Atoi(chi.URLParam(r, "chapter"))
	if err != nil {
		jsonError(w, "invalid chapter index", http.StatusBadRequest)
		return
	}
	cc, err := b.Chapter(n)
	if err != nil {
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, cc)
}

func (s *Server) handleGetPosition(w http.ResponseWriter, r *http.Request) {
	b, ok := s.book(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	pos, found := s.positions[b.Info().ID]
	s.mu.Unlock()

	resp := models.PositionResponse{}
	if found {
		resp.Position = &pos
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSavePosition(w http.ResponseWriter, r *http.Request) {
	b, ok := s.book(w, r)
	if !ok {
		return
	}
	var pos models.ReadingPosition
	if err := json.NewDecoder(r.Body).Decode(&pos); err != nil {
		jsonError(w, "invalid position: "+err.Error(), http.StatusBadRequest)
		return
	}
	if pos.Position < 0 || pos.Position > 1 {
		jsonError(w, "position must be between 0 and 1", http.StatusBadRequest)
		return
	}
	pos.BookID = b.Info().ID
	pos.UpdatedAt = time.Now()

	s.mu.Lock()
	s.positions[pos.BookID] = pos
	s.mu.Unlock()

	s.log.Debug("position saved",
		zap.String("book_id", pos.BookID),
		zap.Int("chapter", pos.ChapterIndex),
		zap.Int("char_offset", pos.CharOffset))
	writeJSON(w, http.StatusOK, models.PositionResponse{Position: &pos})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, models.ErrorResponse{Error: msg})
}
