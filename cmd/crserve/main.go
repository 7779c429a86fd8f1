// crserve exposes the CR parser and the journal resolver over HTTP so the
// parse of a citation string can be checked before a batch run.
package main

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"example.com/crcheck/biblio"
	"example.com/crcheck/config"
	"example.com/crcheck/journals"
	"example.com/crcheck/logging"
	"example.com/crcheck/parser"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger, _, err := logging.New(cfg.LogMode, "")
	if err != nil {
		log.Fatal("Failed to build logger:", err)
	}
	defer logger.Sync()

	resolver := journals.NewResolver(journals.FileLoader{Path: cfg.JournalTable}, logger)
	if err := resolver.Preload(); err != nil {
		logger.Fatal("Journal table load error", zap.String("path", cfg.JournalTable), zap.Error(err))
	}

	if strings.EqualFold(cfg.LogMode, "production") {
		gin.SetMode(gin.ReleaseMode)
	}
	router := newRouter(parser.New(resolver, logger), resolver, cfg.BiblioBaseURL, logger)

	logger.Info("🚀 Server starting", zap.String("addr", "0.0.0.0:"+cfg.HTTPPort))
	if err := router.Run("0.0.0.0:" + cfg.HTTPPort); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}
}

// JournalResolver is the lookup used by /api/resolve.
type JournalResolver interface {
	Resolve(name string) string
	Unresolved() int
}

type server struct {
	parser   *parser.Parser
	journals JournalResolver
	baseURL  string
	logger   *zap.Logger
}

func newRouter(p *parser.Parser, j JournalResolver, baseURL string, logger *zap.Logger) *gin.Engine {
	s := &server{parser: p, journals: j, baseURL: baseURL, logger: logger}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	router.GET("/health", s.healthCheck)
	router.POST("/api/parse", s.handleParse)
	router.POST("/api/resolve", s.handleResolve)
	return router
}

type parseRequest struct {
	CR      string `json:"cr" binding:"required"`
	EntryID string `json:"entry_id"`
}

type citationView struct {
	Author    string `json:"author"`
	Forename  string `json:"forename"`
	Surname   string `json:"surname"`
	Journal   string `json:"journal"`
	JournalID string `json:"journal_id"`
	Issue     string `json:"issue"`
	Date      string `json:"date"`
	Pages     string `json:"pages"`
	Link      string `json:"link"`
	Raw       string `json:"raw"`
	Resolved  bool   `json:"resolved"`
	Preview   string `json:"preview"`
}

type resolveRequest struct {
	Journal string `json:"journal" binding:"required"`
}

func (s *server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"service":    "crserve",
		"unresolved": s.journals.Unresolved(),
		"time":       time.Now().Format(time.RFC3339),
	})
}

// handleParse parses a CR string as if it were found on entry_id and returns
// every citation with the record that would be created for it.
func (s *server) handleParse(c *gin.Context) {
	var req parseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request: %v", err)})
		return
	}

	entry := biblio.NewEntry("")
	entry.ID = req.EntryID
	entry.Set(biblio.FieldCR, req.CR)

	citations := s.parser.ParseEntry(entry)
	views := make([]citationView, 0, len(citations))
	for _, cit := range citations {
		views = append(views, citationView{
			Author:    cit.Author,
			Forename:  cit.Forename,
			Surname:   cit.Surname,
			Journal:   cit.Journal,
			JournalID: cit.JournalID,
			Issue:     cit.Issue,
			Date:      cit.Date,
			Pages:     cit.PageRange(),
			Link:      cit.Link,
			Raw:       cit.Raw,
			Resolved:  cit.Resolved(),
			Preview:   cit.TEI(s.baseURL),
		})
	}
	s.logger.Info("parsed CR over http", zap.String("entry", req.EntryID), zap.Int("citations", len(views)))
	c.JSON(http.StatusOK, gin.H{"citations": views})
}

func (s *server) handleResolve(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request: %v", err)})
		return
	}
	id := s.journals.Resolve(req.Journal)
	c.JSON(http.StatusOK, gin.H{
		"journal":    req.Journal,
		"journal_id": id,
		"resolved":   id != journals.Unresolved,
	})
}

// corsMiddleware lets a browser page call the JSON endpoints. Only the
// methods the router serves and the headers a JSON POST needs are allowed.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Accept")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Max-Age", "600")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
