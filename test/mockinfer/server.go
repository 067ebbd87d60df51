// Package mockinfer is a mock inference server implementing the /generate
// wire contract. It simulates token arrival timing and can inject
// application errors and malformed bodies, which the replayer's retry loop
// must absorb. It is test tooling, not a model of a real serving engine.
package mockinfer

import (
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the mock inference API server
type Server struct {
	state  *State
	router *gin.Engine
	logger *slog.Logger
}

// NewServer creates a new mock inference server
func NewServer(state *State) *Server {
	if state == nil {
		state = NewState()
	}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		state:  state,
		router: router,
		logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})),
	}

	s.setupRoutes()
	return s
}

// Router returns the gin router for testing
func (s *Server) Router() *gin.Engine {
	return s.router
}

// State returns the underlying state for test manipulation
func (s *Server) State() *State {
	return s.state
}

// Run starts the server on the given address
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

func (s *Server) setupRoutes() {
	s.router.POST("/generate", s.handleGenerate)
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// generateRequest mirrors the replayer's payload
type generateRequest struct {
	Prompt        string  `json:"prompt" binding:"required"`
	N             int     `json:"n"`
	BestOf        int     `json:"best_of"`
	UseBeamSearch bool    `json:"use_beam_search"`
	Temperature   float64 `json:"temperature"`
	TopP          float64 `json:"top_p"`
	MaxTokens     int     `json:"max_tokens" binding:"required,gt=0"`
	IgnoreEOS     bool    `json:"ignore_eos"`
	Stream        bool    `json:"stream"`
}

// generateResponse mirrors the server wire contract
type generateResponse struct {
	Text       string    `json:"text"`
	Timestamps []float64 `json:"timestamps"`
}

func (s *Server) handleGenerate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	mode, message := s.state.takeRequest()
	switch mode {
	case modeAppError:
		s.logger.Debug("injecting application error", slog.String("prompt", req.Prompt))
		c.JSON(http.StatusOK, gin.H{"error": message})
		return
	case modeMalformed:
		s.logger.Debug("injecting malformed body", slog.String("prompt", req.Prompt))
		c.String(http.StatusOK, "CUDA error: device-side assert triggered")
		return
	}

	ttft, gap := s.state.Latency()

	// Simulate generation: block for the full decode, then report per-token
	// arrival timestamps consistent with the simulated pacing.
	received := time.Now()
	total := ttft + gap*time.Duration(req.MaxTokens-1)
	time.Sleep(total)

	timestamps := make([]float64, req.MaxTokens)
	for i := range timestamps {
		arrival := received.Add(ttft + gap*time.Duration(i))
		timestamps[i] = float64(arrival.UnixNano()) / float64(time.Second)
	}

	c.JSON(http.StatusOK, generateResponse{
		Text:       strings.Repeat("tok ", req.MaxTokens),
		Timestamps: timestamps,
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "requests_served": s.state.RequestsServed()})
}
