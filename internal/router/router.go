package router

import (
	"time"

	"Campus_Community/internal/handler"
	"Campus_Community/internal/metrics"
	"Campus_Community/internal/middleware"
	"Campus_Community/internal/service"

	"github.com/gin-gonic/gin"
)

// Deps 是路由需要的全部服务
type Deps struct {
	Users         *service.UserService
	Emails        *service.EmailService
	Bans          *service.BanService
	Boards        *service.BoardService
	Clubs         *service.ClubService
	PORs          *service.PORService
	Forums        *service.ForumService
	Posts         *service.PostService
	PostLikes     *service.PostLikeService
	Opportunities *service.OpportunityService
	Subscriptions *service.SubscriptionService
	Notifications *service.NotificationService

	UploadDir      string
	MaxUploadBytes int64
	PollInterval   time.Duration
}

func InitRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())
	r.MaxMultipartMemory = d.MaxUploadBytes

	user := handler.NewUserHandler(d.Users, d.Bans)
	email := handler.NewEmailHandler(d.Emails)
	board := handler.NewBoardHandler(d.Boards)
	club := handler.NewClubHandler(d.Clubs)
	por := handler.NewPORHandler(d.PORs)
	forum := handler.NewForumHandler(d.Forums)
	post := handler.NewPostHandler(d.Posts)
	like := handler.NewPostLikeHandler(d.PostLikes)
	opp := handler.NewOpportunityHandler(d.Opportunities)
	sub := handler.NewSubscriptionHandler(d.Subscriptions)
	notify := handler.NewNotificationHandler(d.Notifications, d.Bans, d.PollInterval)
	admin := handler.NewAdminHandler(d.Bans, d.Notifications)

	r.Static(service.UploadURLPrefix, d.UploadDir)
	r.GET("/metrics", gin.WrapH(metrics.PromHandler()))

	// 邮件相关接口
	emailGroup := r.Group("/api/email")
	{
		emailGroup.POST("/:scope/code", email.SendCode)
	}

	// 用户相关接口
	userGroup := r.Group("/api/user")
	{
		userGroup.POST("/register", user.Register)
		userGroup.POST("/login", user.Login)
		userGroup.POST("/reset", user.ResetPassword)
	}

	// token相关接口
	tokenGroup := r.Group("/api/token")
	{
		tokenGroup.POST("/refresh", user.TokenRefresh)
	}

	// 封禁状态不要求登录：被封禁后 token 已失效
	r.GET("/api/users/:id/status", user.Status)

	// 登录态接口
	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(d.Users), middleware.BanGuard(d.Bans))

	authGroup := api.Group("/user")
	{
		authGroup.POST("/logout", user.Logout)
		authGroup.POST("/change-password", user.ChangePassword)
	}

	usersGroup := api.Group("/users")
	{
		usersGroup.GET("/me", user.Me)
		usersGroup.GET("/:id", user.Get)
		usersGroup.GET("/:id/pors", por.ListByUser)
	}

	boardGroup := api.Group("/boards")
	{
		boardGroup.GET("", board.List)
		boardGroup.POST("", board.Create)
		boardGroup.GET("/:id", board.Get)
		boardGroup.PUT("/:id", board.Update)
		boardGroup.DELETE("/:id", board.Delete)
		boardGroup.POST("/:id/image", board.UploadImage)
		boardGroup.GET("/:id/subscribers", sub.BoardSubscribers)
	}

	clubGroup := api.Group("/clubs")
	{
		clubGroup.GET("", club.List)
		clubGroup.POST("", club.Create)
		clubGroup.GET("/:id", club.Get)
		clubGroup.PUT("/:id", club.Update)
		clubGroup.DELETE("/:id", club.Delete)
		clubGroup.POST("/:id/image", club.UploadImage)
		clubGroup.GET("/:id/subscribers", sub.ClubSubscribers)
	}

	porGroup := api.Group("/pors")
	{
		porGroup.POST("", por.Grant)
		porGroup.GET("", por.ListByScope)
		porGroup.PUT("/:id", por.Update)
		porGroup.DELETE("/:id", por.Revoke)
	}

	// 论坛与帖子
	forumGroup := api.Group("/forums")
	{
		forumGroup.POST("", forum.Create)
		forumGroup.GET("", forum.List)
		forumGroup.GET("/:id", forum.Get)
		forumGroup.DELETE("/:id", forum.Delete)
		forumGroup.GET("/:id/members", forum.Members)
		forumGroup.POST("/:id/members", forum.Join)
		forumGroup.DELETE("/:id/members", forum.Leave)
		forumGroup.DELETE("/:id/members/:user_id", forum.Kick)
		forumGroup.POST("/:id/posts", post.CreatePost)
		forumGroup.GET("/:id/posts", post.ListByForum)
	}

	postGroup := api.Group("/posts")
	{
		postGroup.DELETE("/:id", post.DeletePost)
		postGroup.POST("/:id/like", like.Like)
		postGroup.DELETE("/:id/like", like.Unlike)
		postGroup.GET("/:id/like", like.State)
	}

	oppGroup := api.Group("/opportunities")
	{
		oppGroup.GET("", opp.List)
		oppGroup.POST("", opp.Create)
		oppGroup.GET("/:id", opp.Get)
		oppGroup.PUT("/:id", opp.Update)
		oppGroup.DELETE("/:id", opp.Delete)
	}

	subGroup := api.Group("/subscriptions")
	{
		subGroup.POST("", sub.Subscribe)
		subGroup.GET("", sub.ListMine)
	}

	// 通知相关接口
	notifyGroup := api.Group("/notifications")
	{
		notifyGroup.POST("/transfer", notify.Transfer)
		notifyGroup.GET("", notify.List)
		notifyGroup.GET("/unread-count", notify.UnreadCount)
		notifyGroup.PUT("/read-all", notify.MarkAllRead)
		notifyGroup.PUT("/:id/read", notify.MarkRead)
		notifyGroup.DELETE("/:id", notify.Delete)
		notifyGroup.GET("/ws", notify.Stream)
	}

	adminGroup := api.Group("/admin")
	adminGroup.Use(middleware.AdminOnly())
	{
		adminGroup.POST("/users/:id/ban", admin.Ban)
		adminGroup.POST("/users/:id/unban", admin.Unban)
		adminGroup.POST("/notifications", admin.Broadcast)
		adminGroup.GET("/stats", admin.Stats)
	}

	return r
}
