package handlers

import (
	"net/http"
	"strings"

	"issuance-backend/internal/services"

	"github.com/gin-gonic/gin"
)

// WebSocketHandler upgrades connections and hands them to the push service.
type WebSocketHandler struct {
	push *services.WebSocketPushService
}

func NewWebSocketHandler(push *services.WebSocketPushService) *WebSocketHandler {
	return &WebSocketHandler{push: push}
}

// StreamHandler handles GET /ws
// A comma-separated "kinds" query parameter narrows the stream to specific
// operation kinds; with no filter the subscriber receives everything.
func (h *WebSocketHandler) StreamHandler(c *gin.Context) {
	var kinds []string
	if raw := c.Query("kinds"); raw != "" {
		for _, k := range strings.Split(raw, ",") {
			k = strings.TrimSpace(k)
			if k != "" {
				kinds = append(kinds, k)
			}
		}
	}

	h.push.HandleWebSocket(c.Writer, c.Request, kinds)
}

// StatsHandler handles GET /api/ws/stats
func (h *WebSocketHandler) StatsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"subscribers": h.push.ActiveSubscribers(),
	})
}
