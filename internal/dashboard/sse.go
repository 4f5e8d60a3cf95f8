package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/akimovd/deskbot/internal/models"
)

// failureEvent holds data for a delivery failure SSE event.
type failureEvent struct {
	ID       uint   `json:"id"`
	Platform string `json:"platform"`
	ChatID   int64  `json:"chat_id"`
	TaskID   int    `json:"task_id"`
	Reason   string `json:"reason"`
	Count    int64  `json:"count"`
}

// handleSSE streams new delivery failures to the client as they appear.
func handleSSE(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		writeSSE(c.Writer, "connected", map[string]string{"type": "connected"})
		c.Writer.Flush()

		// Tests use a nil DB; connected is all they get.
		if db == nil {
			return
		}

		// Only alert on failures newer than the connection.
		var lastSeenID uint
		var latest models.DeliveryFailure
		if err := db.Order("id DESC").Limit(1).First(&latest).Error; err == nil {
			lastSeenID = latest.ID
		}

		ctx := c.Request.Context()
		ticker := time.NewTicker(3 * time.Second)
		heartbeat := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		defer heartbeat.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-heartbeat.C:
				writeSSE(c.Writer, "heartbeat", map[string]string{
					"timestamp": time.Now().UTC().Format(time.RFC3339),
				})
				c.Writer.Flush()
			case <-ticker.C:
				var fresh []models.DeliveryFailure
				db.Where("id > ?", lastSeenID).Order("id ASC").Find(&fresh)
				if len(fresh) == 0 {
					continue
				}
				lastSeenID = fresh[len(fresh)-1].ID

				var count int64
				db.Model(&models.DeliveryFailure{}).Count(&count)

				f := fresh[len(fresh)-1]
				writeSSE(c.Writer, "failure", failureEvent{
					ID:       f.ID,
					Platform: f.Platform,
					ChatID:   f.ChatID,
					TaskID:   f.TaskID,
					Reason:   f.Reason,
					Count:    count,
				})
				c.Writer.Flush()
			}
		}
	}
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, string(jsonData))
}
