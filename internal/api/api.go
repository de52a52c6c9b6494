// api.go - REST surface over the note core.
//
// This is the boundary layer: secrets arrive hex-encoded in request bodies,
// are used once, and are zeroized before the handler returns. Responses only
// ever carry public projections.

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sparknote/internal/note"
	"sparknote/internal/store"
)

// Server wires the note registry and the optional persistent spent store to
// HTTP handlers.
type Server struct {
	registry *note.Registry
	store    *store.SpentStore
	logger   *zap.Logger
}

// New creates a server. spentStore may be nil for in-memory-only operation.
func New(registry *note.Registry, spentStore *store.SpentStore) *Server {
	return &Server{
		registry: registry,
		store:    spentStore,
		logger:   zap.NewNop(),
	}
}

// SetLogger attaches a logger and returns the server.
func (s *Server) SetLogger(logger *zap.Logger) *Server {
	s.logger = logger
	return s
}

// Router builds the gin engine with the given extra middleware.
func (s *Server) Router(middleware ...gin.HandlerFunc) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware...)

	v1 := engine.Group("/v1")
	v1.POST("/notes", s.handleCreateNote)
	v1.GET("/notes", s.handleListNotes)
	v1.GET("/notes/:id", s.handleGetNote)
	v1.DELETE("/notes/:id", s.handleRemoveNote)
	v1.POST("/notes/:id/nullifier", s.handleGenerateNullifier)
	v1.POST("/notes/:id/spend", s.handleSpendNote)
	v1.GET("/nullifiers/:nullifier", s.handleCheckNullifier)
	v1.POST("/nullifiers/check", s.handleCheckMany)
	v1.POST("/nullifiers/spend", s.handleSpendMany)
	v1.GET("/spentset", s.handleExportSpentSet)
	v1.POST("/spentset", s.handleImportSpentSet)
	v1.GET("/spentset/stats", s.handleSpentSetStats)
	return engine
}

type errorResponse struct {
	Code  note.ErrorCode `json:"code"`
	Error string         `json:"error"`
}

// abortWith maps the core error taxonomy onto HTTP statuses.
func (s *Server) abortWith(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case note.IsAlreadySpent(err):
		status = http.StatusConflict
	case note.IsValidation(err), note.CodeOf(err) == note.CodeSerialization:
		status = http.StatusBadRequest
	case note.CodeOf(err) == note.CodeOperation:
		status = http.StatusNotFound
	}
	s.logger.Debug("request rejected",
		zap.Int("status", status), zap.Error(err))
	c.JSON(status, errorResponse{Code: note.CodeOf(err), Error: err.Error()})
}

func (s *Server) abortBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errorResponse{
		Code:  note.CodeSerialization,
		Error: err.Error(),
	})
}

type createNoteRequest struct {
	ID     string        `json:"id"`
	Value  uint64        `json:"value"`
	Secret note.HexBytes `json:"secret"`
}

func (s *Server) handleCreateNote(c *gin.Context) {
	var req createNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortBadRequest(c, err)
		return
	}
	secret := note.NewSecret(req.Secret)
	defer secret.Zeroize()

	n, err := note.New(req.Value, secret)
	if err != nil {
		s.abortWith(c, err)
		return
	}
	id, err := s.registry.Add(req.ID, n)
	if err != nil {
		// Duplicate identifier, not a lookup miss.
		c.JSON(http.StatusConflict, errorResponse{Code: note.CodeOf(err), Error: err.Error()})
		return
	}
	s.logger.Info("note created", zap.String("id", id), zap.Uint64("value", n.Value()))
	c.JSON(http.StatusCreated, gin.H{"id": id, "note": n.Public()})
}

func (s *Server) handleListNotes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"notes": s.registry.List()})
}

func (s *Server) handleGetNote(c *gin.Context) {
	entry, err := s.registry.Get(c.Param("id"))
	if err != nil {
		s.abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (s *Server) handleRemoveNote(c *gin.Context) {
	entry, ok := s.registry.Remove(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, errorResponse{
			Code:  note.CodeOperation,
			Error: "note not found",
		})
		return
	}
	c.JSON(http.StatusOK, entry)
}

type secretRequest struct {
	Secret note.HexBytes `json:"secret"`
}

func (s *Server) handleGenerateNullifier(c *gin.Context) {
	var req secretRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortBadRequest(c, err)
		return
	}
	secret := note.NewSecret(req.Secret)
	defer secret.Zeroize()

	nf, err := s.registry.GenerateNullifier(c.Param("id"), secret)
	if err != nil {
		s.abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"nullifier": nf.Hex()})
}

func (s *Server) handleSpendNote(c *gin.Context) {
	id := c.Param("id")
	if err := s.registry.MarkSpent(id); err != nil {
		s.abortWith(c, err)
		return
	}
	entry, err := s.registry.Get(id)
	if err == nil && entry.Nullifier != nil {
		if err := s.persist(entry.Nullifier); err != nil {
			s.logger.Error("failed to persist spend",
				zap.String("id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, errorResponse{
				Code:  note.CodeOperation,
				Error: "spend recorded in memory but not persisted",
			})
			return
		}
	}
	s.logger.Info("note spent", zap.String("id", id))
	c.Status(http.StatusNoContent)
}

type nullifiersRequest struct {
	Nullifiers []note.HexBytes `json:"nullifiers"`
}

func (s *Server) handleCheckNullifier(c *gin.Context) {
	raw := note.HexBytes{}
	if err := raw.UnmarshalJSON([]byte(`"` + c.Param("nullifier") + `"`)); err != nil {
		s.abortWith(c, err)
		return
	}
	if err := note.ValidateNullifierBytes(raw); err != nil {
		s.abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"spent": s.registry.IsSpent(raw)})
}

func (s *Server) handleCheckMany(c *gin.Context) {
	var req nullifiersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortBadRequest(c, err)
		return
	}
	ns := make([]note.Nullifier, len(req.Nullifiers))
	for i, raw := range req.Nullifiers {
		n, err := note.NullifierFromBytes(raw)
		if err != nil {
			s.abortWith(c, err)
			return
		}
		ns[i] = n
	}
	c.JSON(http.StatusOK, gin.H{"spent": s.registry.SpentSet().CheckMany(ns)})
}

func (s *Server) handleSpendMany(c *gin.Context) {
	var req nullifiersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortBadRequest(c, err)
		return
	}
	raw := make([][]byte, len(req.Nullifiers))
	for i, h := range req.Nullifiers {
		raw[i] = h
	}
	if err := s.registry.SpentSet().MarkManySpent(raw); err != nil {
		s.abortWith(c, err)
		return
	}
	if s.store != nil {
		ns := make([]note.Nullifier, len(raw))
		for i, b := range raw {
			n, _ := note.NullifierFromBytes(b)
			ns[i] = n
		}
		if err := s.store.AddMany(ns); err != nil && !note.IsAlreadySpent(err) {
			s.logger.Error("failed to persist spend batch", zap.Error(err))
			c.JSON(http.StatusInternalServerError, errorResponse{
				Code:  note.CodeOperation,
				Error: "batch recorded in memory but not persisted",
			})
			return
		}
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleExportSpentSet(c *gin.Context) {
	data, err := note.ExportSpentSet(s.registry.SpentSet())
	if err != nil {
		s.abortWith(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", data)
}

func (s *Server) handleImportSpentSet(c *gin.Context) {
	data, err := c.GetRawData()
	if err != nil {
		s.abortBadRequest(c, err)
		return
	}
	imported, err := note.ImportSpentSet(data)
	if err != nil {
		s.abortWith(c, err)
		return
	}
	// Merge: import never removes, and existing members are not conflicts.
	target := s.registry.SpentSet()
	added := 0
	for _, n := range imported.Export() {
		if target.Add(n) {
			added++
			if err := s.persist(n.Bytes()); err != nil {
				s.logger.Error("failed to persist imported nullifier", zap.Error(err))
			}
		}
	}
	s.logger.Info("spent-set imported",
		zap.Int("total", imported.Len()), zap.Int("added", added))
	c.JSON(http.StatusOK, gin.H{"imported": imported.Len(), "added": added})
}

func (s *Server) handleSpentSetStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.registry.SpentStats())
}

// persist writes a nullifier through to the durable store when one is
// configured. A conflict means the store already knew about it, which is
// not an error for write-through.
func (s *Server) persist(b []byte) error {
	if s.store == nil {
		return nil
	}
	n, err := note.NullifierFromBytes(b)
	if err != nil {
		return err
	}
	if err := s.store.Add(n); err != nil && !note.IsAlreadySpent(err) {
		return err
	}
	return nil
}
