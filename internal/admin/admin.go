// Package admin serves a small read-only HTTP surface next to the TCP
// protocol: a health probe and a view of the leased port set. It never
// touches the inventory itself.
package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// PortLister is the slice of the port broker the admin surface needs.
type PortLister interface {
	Leased() []int
}

func NewRouter(db *gorm.DB, ports PortLister) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(ctx *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx.Request.Context())
		}
		if err != nil {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ports", func(ctx *gin.Context) {
		leased := ports.Leased()
		ctx.JSON(http.StatusOK, gin.H{
			"leased": leased,
			"count":  len(leased),
		})
	})

	return r
}
