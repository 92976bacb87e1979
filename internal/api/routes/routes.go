package routes

import (
	"log/slog"
	"net/http"

	"field-attendance-api-server/config"
	"field-attendance-api-server/internal/api/handlers"
	"field-attendance-api-server/internal/api/middleware"
	"field-attendance-api-server/internal/attendance"
	"field-attendance-api-server/internal/auth"
	"field-attendance-api-server/internal/geofence"
	"field-attendance-api-server/internal/metrics"
	"field-attendance-api-server/internal/socket"
	"field-attendance-api-server/internal/store"
	"field-attendance-api-server/internal/taskguard"
	"field-attendance-api-server/internal/zone"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Dependencies struct {
	Config     config.Config
	Tokens     *auth.Manager
	Users      store.UserStore
	Zones      *zone.Service
	Validator  *geofence.Validator
	Attendance *attendance.Service
	Guard      *taskguard.Guard
	Hub        *socket.Hub
	Metrics    *metrics.Metrics
	Log        *slog.Logger
}

func SetupRouter(d Dependencies) *gin.Engine {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	origins := d.Config.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(d.Log))
	router.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
	}))

	zoneHandler := &handlers.ZoneHandler{Zones: d.Zones, Validator: d.Validator}
	attendanceHandler := &handlers.AttendanceHandler{Attendance: d.Attendance, MaxPhotoBytes: d.Config.Attendance.MaxPhotoBytes}
	taskHandler := &handlers.TaskHandler{Guard: d.Guard}
	userHandler := &handlers.UserHandler{Users: d.Users, Tokens: d.Tokens, Guard: d.Guard, Log: d.Log}
	webSocketHandler := &handlers.WebSocketHandler{Hub: d.Hub, Tokens: d.Tokens, Log: d.Log}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if d.Metrics != nil {
		router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	apiV1 := router.Group("/api/v1")
	{
		apiV1.GET("/ws", webSocketHandler.ServeWs)

		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/login", userHandler.Login)
			authGroup.POST("/logout", middleware.Authenticate(d.Tokens), userHandler.Logout)
		}

		admin := apiV1.Group("/admin")
		admin.Use(middleware.Authenticate(d.Tokens))
		admin.Use(middleware.Authorize(auth.RoleAdmin))
		{
			admin.POST("/users", userHandler.CreateUser)

			zones := admin.Group("/zones")
			{
				zones.POST("", zoneHandler.CreateZone)
				zones.GET("", zoneHandler.GetAllZones)
				zones.GET("/:id", zoneHandler.GetZoneByID)
				zones.PUT("/:id", zoneHandler.UpdateZone)
				zones.DELETE("/:id", zoneHandler.DeleteZone)
				zones.PATCH("/:id/active", zoneHandler.SetZoneActive)
			}

			admin.PATCH("/attendance/:id/break", attendanceHandler.SetBreak)
		}

		employee := apiV1.Group("/")
		employee.Use(middleware.Authenticate(d.Tokens))
		employee.Use(middleware.Authorize(auth.RoleEmployee, auth.RoleAdmin))
		{
			employee.GET("/zones/active", zoneHandler.GetActiveZones)
			employee.POST("/geofence/validate", zoneHandler.ValidateLocation)

			att := employee.Group("/attendance")
			{
				att.POST("/check-in", attendanceHandler.CheckIn)
				att.POST("/check-out", attendanceHandler.CheckOut)
				att.GET("/open", attendanceHandler.GetOpenRecord)
				att.GET("/history", attendanceHandler.GetHistory)
			}

			tasks := employee.Group("/tasks")
			{
				tasks.PUT("/status", taskHandler.UpdateStatus)
				tasks.GET("/status", taskHandler.GetStatus)
			}
		}
	}

	return router
}
