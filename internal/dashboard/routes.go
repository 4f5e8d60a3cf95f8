package dashboard

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// registerRoutes sets up all dashboard routes on the Gin router.
func registerRoutes(router *gin.Engine, db *gorm.DB) {
	// Pages.
	router.GET("/", handleOverview(db))
	router.GET("/events", handleEvents(db))
	router.GET("/failures", handleFailures(db))
	router.GET("/cartridges", handleCartridges(db))

	// JSON API, same data as the pages.
	router.GET("/api/events", handleEventsJSON(db))
	router.GET("/api/failures", handleFailuresJSON(db))
	router.GET("/api/cartridges", handleCartridgesJSON(db))

	// SSE stream of new delivery failures.
	router.GET("/api/stream", handleSSE(db))
}

func handleOverview(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		summary, err := EventSummary(db)
		if err != nil {
			c.String(http.StatusInternalServerError, "query failed: %v", err)
			return
		}
		c.HTML(http.StatusOK, "layout.html", gin.H{
			"Page":         "overview",
			"Summary":      summary,
			"FailureCount": FailureCount(db),
		})
	}
}

func handleEvents(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		kind := c.Query("kind")
		result := ListEvents(db, kind)
		c.HTML(http.StatusOK, "layout.html", gin.H{
			"Page":   "events",
			"Kind":   kind,
			"Events": result.Events,
			"Kinds":  result.Kinds,
		})
	}
}

func handleFailures(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.HTML(http.StatusOK, "layout.html", gin.H{
			"Page":     "failures",
			"Failures": ListFailures(db),
		})
	}
}

func handleCartridges(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.HTML(http.StatusOK, "layout.html", gin.H{
			"Page":    "cartridges",
			"Changes": ListCartridgeChanges(db),
		})
	}
}

func handleEventsJSON(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, ListEvents(db, c.Query("kind")).Events)
	}
}

func handleFailuresJSON(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, ListFailures(db))
	}
}

func handleCartridgesJSON(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, ListCartridgeChanges(db))
	}
}
