package handler

import (
	"crypto/subtle"
	"net/http"

	"signal_kz/internal/transport"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// WebhookPath is the route Telegram posts updates to; the last segment is the shared secret
const WebhookPath = "/telegram/webhook/:secret"

// UpdateParser decodes a webhook request into an update
type UpdateParser interface {
	ParseWebhook(r *http.Request) (transport.Inbound, bool, error)
}

// WebhookHandler receives bot updates pushed by Telegram
type WebhookHandler struct {
	parser  UpdateParser
	updates UpdateHandler
	secret  string
	log     *logrus.Logger
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(parser UpdateParser, updates UpdateHandler, secret string, log *logrus.Logger) *WebhookHandler {
	return &WebhookHandler{parser: parser, updates: updates, secret: secret, log: log}
}

func (h *WebhookHandler) Receive(c *gin.Context) {
	if subtle.ConstantTimeCompare([]byte(c.Param("secret")), []byte(h.secret)) != 1 {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	in, ok, err := h.parser.ParseWebhook(c.Request)
	if err != nil {
		h.log.WithError(err).Warn("Malformed webhook update")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid update"})
		return
	}
	if ok {
		h.updates.Handle(c.Request.Context(), in)
	}
	c.Status(http.StatusOK)
}

// RegisterWebhookRoutes registers the webhook route
func (h *WebhookHandler) RegisterWebhookRoutes(r gin.IRouter) {
	r.POST(WebhookPath, h.Receive)
}
