package http

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"project_chatflow/internal/entities"
	"project_chatflow/internal/infrastructure"
	"project_chatflow/internal/interfaces"
)

// Handler receives provider webhooks. It does no processing beyond
// wrapping the raw body into an envelope and enqueueing it: providers
// expect a fast 200 and retry aggressively on anything else, so all real
// work happens in the inbound worker.
type Handler struct {
	log         *infrastructure.Logger
	queue       interfaces.Queue
	verifyToken string
}

func NewHandler(log *infrastructure.Logger, queue interfaces.Queue, verifyToken string) *Handler {
	return &Handler{
		log:         log.With("component", "webhook"),
		queue:       queue,
		verifyToken: verifyToken,
	}
}

func SetupRoutes(r *gin.Engine, h *Handler) {
	r.GET("/health", h.Health)

	webhook := r.Group("/webhook")
	{
		webhook.GET("/whatsapp", h.VerifyMeta)
		webhook.POST("/whatsapp", h.receive(entities.ChannelWhatsApp))
		webhook.GET("/messenger", h.VerifyMeta)
		webhook.POST("/messenger", h.receive(entities.ChannelMessenger))
		webhook.GET("/instagram", h.VerifyMeta)
		webhook.POST("/instagram", h.receive(entities.ChannelInstagram))
		webhook.POST("/telegram", h.receive(entities.ChannelTelegram))
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// VerifyMeta answers the Meta webhook subscription handshake: echo
// hub.challenge when the verify token matches.
func (h *Handler) VerifyMeta(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token == h.verifyToken {
		c.String(http.StatusOK, challenge)
		return
	}
	c.JSON(http.StatusForbidden, gin.H{"error": "verification failed"})
}

func (h *Handler) receive(channel string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil || len(body) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "empty body"})
			return
		}

		env := entities.InboundEnvelope{
			ID:         uuid.NewString(),
			Channel:    channel,
			ReceivedAt: time.Now().UTC(),
			Payload:    body,
		}
		if err := h.queue.Enqueue(c.Request.Context(), infrastructure.InboundQueue, env); err != nil {
			h.log.Error("enqueue inbound event failed", "channel", channel, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "enqueue failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "queued", "id": env.ID})
	}
}
