package remote

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roach88/mydays/internal/store"
)

// maxDocumentSize bounds an upserted document body.
const maxDocumentSize = 8 << 20

// DocumentStore persists documents for the server.
//
// Implemented by store.Store.
type DocumentStore interface {
	ReadDocument(ctx context.Context, id string) (store.Document, error)
	UpsertDocument(ctx context.Context, d store.Document) error
}

// wireRow is Row with the payload left undecoded; the server stores
// documents without interpreting them.
type wireRow struct {
	ID        string          `json:"id"`
	Owner     string          `json:"user_id"`
	Data      json.RawMessage `json:"data"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Server is the document server behind Client.
type Server struct {
	docs   DocumentStore
	router *gin.Engine
	now    func() time.Time
}

// NewServer creates a document server backed by docs.
func NewServer(docs DocumentStore) *Server {
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		docs:   docs,
		router: router,
		now:    time.Now,
	}

	router.GET("/healthz", s.handleHealth)

	api := router.Group("/v1")
	{
		api.GET("/documents/:id", s.handleGet)
		api.PUT("/documents/:id", s.handlePut)
	}

	return s
}

// Handler returns the HTTP handler, for embedding or httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	slog.Info("document server listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleGet(c *gin.Context) {
	id := c.Param("id")

	doc, err := s.docs.ReadDocument(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "document not found",
		})
		return
	}
	if err != nil {
		slog.Error("read document failed", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": wireRow{
			ID:        doc.ID,
			Owner:     doc.Owner,
			Data:      json.RawMessage(doc.Data),
			UpdatedAt: doc.UpdatedAt,
		},
	})
}

func (s *Server) handlePut(c *gin.Context) {
	id := c.Param("id")
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxDocumentSize)

	var row wireRow
	if err := c.ShouldBindJSON(&row); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	if row.ID != "" && row.ID != id {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "row id does not match path",
		})
		return
	}
	if !isJSONObject(row.Data) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "data must be a JSON object",
		})
		return
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = s.now()
	}

	err := s.docs.UpsertDocument(c.Request.Context(), store.Document{
		ID:        id,
		Owner:     row.Owner,
		Data:      row.Data,
		UpdatedAt: row.UpdatedAt,
	})
	if err != nil {
		slog.Error("upsert document failed", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	slog.Debug("document stored", "id", id, "owner", row.Owner, "bytes", len(row.Data))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func isJSONObject(raw json.RawMessage) bool {
	var obj map[string]json.RawMessage
	return len(raw) > 0 && json.Unmarshal(raw, &obj) == nil && obj != nil
}
