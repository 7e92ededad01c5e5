package routers

import (
	"database/sql"
	"log"
	"os"
	"time"

	"approvalapi/controllers"
	"approvalapi/middlewares"
	"approvalapi/models"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
)

func Route() *gin.Engine {
	router := gin.Default()
	router.Use(CORS())
	api := controllers.NewAPI()

	api.Db = newDB(nil)
	api.Db.SetConnMaxLifetime(5 * time.Minute)
	redisHost := os.Getenv("REDIS_HOST")
	redisPort := os.Getenv("REDIS_PORT")

	api.Redis = redis.NewClient(&redis.Options{
		Addr: redisHost + ":" + redisPort,
		DB:   0,
	})

	router.POST("/api/login", api.Authenticate)
	router.POST("/api/register", api.Register)
	router.GET("/api/check-session", middlewares.Auth(api.Redis), api.CheckSession)
	router.GET("/api/refresh-session", middlewares.Auth(api.Redis), api.RefreshSession)
	router.GET("/api/logout", middlewares.Auth(api.Redis), api.Logout)
	router.POST("/api/forgot-password", api.ForgotPassword)
	router.GET("/api/verify-token/:token", api.VerifyTokenReset)
	router.POST("/api/reset-password/:token", api.UpdateUserReset)

	users := router.Group("/api/users")
	users.Use(middlewares.Auth(api.Redis))
	{
		users.POST("", middlewares.RequirePermission(models.PermUsersManage), api.CreateUser)
		users.GET("/me", api.GetUser)
		users.PUT("/me", api.UpdateUser)
		users.GET("/me/permissions", api.GetPermissions)
	}

	// one identical route set per document type
	for _, dt := range models.DocumentTypes {
		docs := router.Group("/api/" + dt.Slug)
		docs.Use(middlewares.Auth(api.Redis))
		{
			docs.GET("", middlewares.RequirePermission(models.PermDocumentsRead), api.ListDocuments(dt))
			docs.GET("/counts", middlewares.RequirePermission(models.PermDocumentsRead), api.GetStatusCounts(dt))
			docs.GET("/detail/:id", middlewares.RequirePermission(models.PermDocumentsRead), api.GetDocument(dt))
			docs.GET("/detail/:id/history", middlewares.RequirePermission(models.PermDocumentsRead), api.GetApprovalHistory(dt))
			docs.GET("/detail/:id/voucher", middlewares.RequirePermission(models.PermDocumentsExport), api.PrintVoucher(dt))

			docs.POST("", middlewares.RequirePermission(models.PermDocumentsPrepare), api.CreateDocument(dt))
			docs.PUT("", middlewares.RequirePermission(models.PermDocumentsPrepare), api.UpdateDocument(dt))
			docs.DELETE("", middlewares.RequirePermission(models.PermDocumentsPrepare), api.DeleteDocuments(dt))

			docs.POST("/status", middlewares.RequirePermission(models.PermDocumentsTransition), api.TransitionStatus(dt))

			docs.POST("/detail/:id/attachments", middlewares.RequirePermission(models.PermDocumentsPrepare), api.UploadAttachment(dt))
			docs.GET("/detail/:id/attachments/:attachmentId", middlewares.RequirePermission(models.PermDocumentsRead), api.DownloadAttachment(dt))
			docs.DELETE("/detail/:id/attachments/:attachmentId", middlewares.RequirePermission(models.PermDocumentsPrepare), api.DeleteAttachment(dt))
		}
	}

	return router
}

// CORS Cross Origin Resource Sharing
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, "+
			"Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func newDB(indb *sql.DB) *sql.DB {
	if indb != nil {
		return indb
	}
	connString := os.Getenv("DB_CONNECTION_STRING")
	if connString == "" {
		log.Fatal("Please provide DB_CONNECTION_STRING environment variable")
	}

	var err error
	conn, err := sql.Open("postgres", connString)
	if err != nil {
		log.Fatalf("Cannot connect to db with connection %s: %v", connString, err)
	}

	err = conn.Ping()
	if err != nil {
		log.Fatal(err)
	}

	return conn
}
