package relayserver

import (
	"crypto/subtle"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"bidvault/internal/relay"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 8 << 20

// Handler serves the relay API over a Store.
type Handler struct {
	Store    Store
	Log      logrus.FieldLogger
	validate *validator.Validate
}

// NewRouter builds the gin engine for the relay API. An empty apiKey
// disables the API key check.
func NewRouter(store Store, apiKey string, logger logrus.FieldLogger) *gin.Engine {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	h := &Handler{Store: store, Log: logger, validate: validator.New()}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger), limitBody(maxBodyBytes))

	r.GET(relay.PathHealth, h.Health)

	api := r.Group("/", requireAPIKey(apiKey))
	api.POST(relay.PathIdentities, h.RegisterIdentity)
	api.GET(relay.PathIdentities+"/:id", h.GetIdentity)
	api.POST(relay.PathObservations, h.SubmitObservations)
	api.POST(relay.PathBeacon, h.Beacon)
	api.GET(relay.PathObservations, h.ListObservations)
	api.POST(relay.PathGrants, h.CreateGrant)
	api.GET(relay.PathGrants, h.ListGrants)
	return r
}

func requireAPIKey(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.Next()
			return
		}
		got := c.GetHeader(relay.HeaderAPIKey)
		if subtle.ConstantTimeCompare([]byte(got), []byte(apiKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, relay.ErrorResponse{Error: "invalid api key"})
			return
		}
		c.Next()
	}
}

func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}

func requestLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		entry := logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("relay request failed")
			return
		}
		entry.Debug("relay request")
	}
}
