// Package mockapi is an in-memory implementation of the library service's
// REST API, used for local development and end-to-end tests.
package mockapi

import (
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mmcdole/libraryhub/internal/domain"
)

// Config holds the credentials the mock accepts
type Config struct {
	AdminEmail    string
	AdminPassword string
	Token         string
}

// Server holds the mock's state. All handlers serialize on one mutex.
type Server struct {
	cfg    Config
	logger *slog.Logger
	engine *gin.Engine

	mu      sync.Mutex
	nextID  domain.ID
	authors map[domain.ID]domain.Author
	books   map[domain.ID]domain.Book
	users   map[domain.ID]domain.User
	loans   map[domain.ID]domain.BorrowRecord
	hits    map[string]int
}

// New creates an empty mock server
func New(cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:     cfg,
		logger:  logger,
		authors: make(map[domain.ID]domain.Author),
		books:   make(map[domain.ID]domain.Book),
		users:   make(map[domain.ID]domain.User),
		loans:   make(map[domain.ID]domain.BorrowRecord),
		hits:    make(map[string]int),
	}
	s.engine = s.routes()
	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.countHits())

	r.POST("/auth/login", s.login)

	api := r.Group("/", s.requireToken())
	api.GET("/authors", s.listAuthors)
	api.POST("/authors", s.createAuthor)
	api.PUT("/authors/:id", s.updateAuthor)
	api.DELETE("/authors/:id", s.deleteAuthor)

	api.GET("/books", s.listBooks)
	api.POST("/books", s.createBook)
	api.PUT("/books/:id", s.updateBook)
	api.DELETE("/books/:id", s.deleteBook)

	api.GET("/users", s.listUsers)
	api.POST("/users", s.createUser)
	api.PUT("/users/:id", s.updateUser)
	api.DELETE("/users/:id", s.deleteUser)

	api.POST("/borrow", s.borrow)
	api.GET("/borrow/user/:id", s.loansForUser)
	api.POST("/borrow/return/:bookId", s.returnBook)
	return r
}

// Hits returns how many requests matched a route, e.g. Hits("GET /books").
func (s *Server) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[route]
}

func (s *Server) countHits() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.Request.Method + " " + c.FullPath()
		s.mu.Lock()
		s.hits[route]++
		s.mu.Unlock()
		c.Next()
	}
}

func (s *Server) requireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token != s.cfg.Token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing token"})
			return
		}
		c.Next()
	}
}

// === Seeding ===

// AddAuthor inserts an author directly, bypassing HTTP.
func (s *Server) AddAuthor(name string) domain.Author {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := domain.Author{ID: s.newID(), Name: name}
	s.authors[a.ID] = a
	return a
}

// AddBook inserts a book directly, bypassing HTTP.
func (s *Server) AddBook(title string, authorID domain.ID) domain.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := domain.Book{ID: s.newID(), Title: title, AuthorID: authorID}
	s.books[b.ID] = b
	return b
}

// AddUser inserts a user directly, bypassing HTTP.
func (s *Server) AddUser(name, email string) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := domain.User{ID: s.newID(), Name: name, Email: email}
	s.users[u.ID] = u
	return u
}

// Seed fills the mock with a small demo catalog.
func (s *Server) Seed() {
	ada := s.AddAuthor("Ada Lovelace")
	grace := s.AddAuthor("Grace Hopper")
	sagan := s.AddAuthor("Carl Sagan")
	s.AddBook("Notes on the Analytical Engine", ada.ID)
	s.AddBook("Understanding Computers", grace.ID)
	s.AddBook("Cosmos", sagan.ID)
	s.AddBook("Pale Blue Dot", sagan.ID)
	s.AddUser("Alan Turing", "alan@example.com")
	s.AddUser("Katherine Johnson", "katherine@example.com")
}

func (s *Server) newID() domain.ID {
	s.nextID++
	return s.nextID
}

// === Handlers ===

func (s *Server) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if !strings.EqualFold(req.Email, s.cfg.AdminEmail) || req.Password != s.cfg.AdminPassword {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	s.logger.Info("mock login", "email", req.Email)
	c.JSON(http.StatusOK, gin.H{"access_token": s.cfg.Token})
}

func pathID(c *gin.Context, name string) (domain.ID, bool) {
	id, err := domain.ParseID(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func bindFields[F interface{ Validate() error }](c *gin.Context) (F, bool) {
	var fields F
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return fields, false
	}
	if err := fields.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return fields, false
	}
	return fields, true
}

// sorted returns map values in id order
func sorted[T domain.Entity](m map[domain.ID]T) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GetID() < out[j].GetID() })
	return out
}

// stringID renders an id as a JSON string, as the real service does on
// update responses.
func stringID(id domain.ID) string {
	return strconv.FormatInt(int64(id), 10)
}

func (s *Server) listAuthors(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, sorted(s.authors))
}

func (s *Server) createAuthor(c *gin.Context) {
	fields, ok := bindFields[domain.AuthorFields](c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a := domain.Author{ID: s.newID(), Name: fields.Name}
	s.authors[a.ID] = a
	c.JSON(http.StatusCreated, a)
}

func (s *Server) updateAuthor(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	fields, ok := bindFields[domain.AuthorFields](c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, found := s.authors[id]
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "author not found"})
		return
	}
	a.Name = fields.Name
	s.authors[id] = a
	c.JSON(http.StatusOK, gin.H{"id": stringID(a.ID), "name": a.Name})
}

func (s *Server) deleteAuthor(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.authors[id]; !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "author not found"})
		return
	}
	// Books keep a dangling author_id; their join comes back empty.
	delete(s.authors, id)
	c.Status(http.StatusNoContent)
}

func (s *Server) joined(b domain.Book) domain.Book {
	if a, ok := s.authors[b.AuthorID]; ok {
		b.Author = &a
	} else {
		b.Author = nil
	}
	return b
}

func (s *Server) listBooks(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	books := sorted(s.books)
	for i := range books {
		books[i] = s.joined(books[i])
	}
	c.JSON(http.StatusOK, books)
}

func (s *Server) createBook(c *gin.Context) {
	fields, ok := bindFields[domain.BookFields](c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.authors[fields.AuthorID]; !found {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown author"})
		return
	}
	b := domain.Book{ID: s.newID(), Title: fields.Title, AuthorID: fields.AuthorID}
	s.books[b.ID] = b
	// Creation responses carry no join data.
	c.JSON(http.StatusCreated, b)
}

func (s *Server) updateBook(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	fields, ok := bindFields[domain.BookFields](c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, found := s.books[id]
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "book not found"})
		return
	}
	b.Title = fields.Title
	b.AuthorID = fields.AuthorID
	s.books[id] = b
	c.JSON(http.StatusOK, gin.H{
		"id":          stringID(b.ID),
		"title":       b.Title,
		"author_id":   stringID(b.AuthorID),
		"is_borrowed": b.IsBorrowed,
	})
}

func (s *Server) deleteBook(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.books[id]; !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "book not found"})
		return
	}
	delete(s.books, id)
	for loanID, rec := range s.loans {
		if rec.BookID == id {
			delete(s.loans, loanID)
		}
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listUsers(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, sorted(s.users))
}

func (s *Server) createUser(c *gin.Context) {
	fields, ok := bindFields[domain.UserFields](c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := domain.User{ID: s.newID(), Name: fields.Name, Email: fields.Email}
	s.users[u.ID] = u
	c.JSON(http.StatusCreated, u)
}

func (s *Server) updateUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	fields, ok := bindFields[domain.UserFields](c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, found := s.users[id]
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	u.Name = fields.Name
	u.Email = fields.Email
	s.users[id] = u
	c.JSON(http.StatusOK, gin.H{"id": stringID(u.ID), "name": u.Name, "email": u.Email})
}

func (s *Server) deleteUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.users[id]; !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	delete(s.users, id)
	for loanID, rec := range s.loans {
		if rec.UserID == id {
			if b, ok := s.books[rec.BookID]; ok && rec.Active() {
				b.IsBorrowed = false
				s.books[rec.BookID] = b
			}
			delete(s.loans, loanID)
		}
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) withSnapshot(rec domain.BorrowRecord) domain.BorrowRecord {
	if b, ok := s.books[rec.BookID]; ok {
		rec.Book = &domain.BookSnapshot{ID: b.ID, Title: b.Title}
	}
	return rec
}

func (s *Server) borrow(c *gin.Context) {
	var req struct {
		UserID domain.ID `json:"user_id"`
		BookID domain.ID `json:"book_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[req.UserID]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	b, ok := s.books[req.BookID]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "book not found"})
		return
	}
	if b.IsBorrowed {
		c.JSON(http.StatusConflict, gin.H{"error": "book is already borrowed"})
		return
	}
	b.IsBorrowed = true
	s.books[b.ID] = b

	rec := domain.BorrowRecord{
		ID:         s.newID(),
		UserID:     req.UserID,
		BookID:     req.BookID,
		BorrowedAt: domain.Timestamp{Time: time.Now().UTC()},
	}
	s.loans[rec.ID] = rec
	c.JSON(http.StatusCreated, s.withSnapshot(rec))
}

func (s *Server) loansForUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	records := make([]domain.BorrowRecord, 0)
	for _, rec := range sorted(s.loans) {
		if rec.UserID == id && rec.Active() {
			records = append(records, s.withSnapshot(rec))
		}
	}
	c.JSON(http.StatusOK, records)
}

func (s *Server) returnBook(c *gin.Context) {
	bookID, ok := pathID(c, "bookId")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, rec := range s.loans {
		if rec.BookID == bookID && rec.Active() {
			now := domain.Timestamp{Time: time.Now().UTC()}
			rec.ReturnedAt = &now
			s.loans[id] = rec
			if b, ok := s.books[bookID]; ok {
				b.IsBorrowed = false
				s.books[bookID] = b
			}
			c.JSON(http.StatusOK, gin.H{"message": "book returned"})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "no active loan for book"})
}
