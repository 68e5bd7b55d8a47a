package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"Campus_Community/internal/config"
	"Campus_Community/internal/logging"
	"Campus_Community/internal/pkg"
	"Campus_Community/internal/repository/mysql"
	"Campus_Community/internal/repository/redis"
	"Campus_Community/internal/router"
	"Campus_Community/internal/service"

	"github.com/gin-gonic/gin"
)

const consumerRestartDelay = 3 * time.Second

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		logging.Log.Fatal().Err(err).Msg("load config")
	}
	closeLog, err := logging.Init(cfg.Log.File, cfg.Log.Level)
	if err != nil {
		logging.Log.Fatal().Err(err).Msg("init logger")
	}
	defer closeLog()
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	pkg.ConfigureJWT(cfg.JWT.AccessSecret, cfg.JWT.RefreshSecret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)

	if err = mysql.InitDB(cfg.MySQL.DSN); err != nil {
		logging.Log.Fatal().Err(err).Msg("connect mysql")
	}
	defer mysql.Close()
	// 自动建表
	if err = mysql.AutoMigrate(mysql.DB); err != nil {
		logging.Log.Fatal().Err(err).Msg("migrate")
	}

	// 连接redis
	if err = redis.Init(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
		logging.Log.Fatal().Err(err).Msg("connect redis")
	}
	defer redis.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// repositories
	db, rdb := mysql.DB, redis.Client
	users := mysql.NewUserRepository(db)
	boards := mysql.NewBoardRepository(db)
	clubs := mysql.NewClubRepository(db)
	pors := mysql.NewPORRepository(db)
	forums := mysql.NewForumRepository(db)
	members := mysql.NewForumMemberRepository(db)
	posts := mysql.NewPostRepository(db)
	postLikes := mysql.NewPostLikeRepository(db)
	opps := mysql.NewOpportunityRepository(db)
	subs := mysql.NewSubscriptionRepository(db)
	notifications := mysql.NewNotificationRepository(db)
	outbox := mysql.NewOutboxRepository(db)
	lock := redis.NewDistLock(rdb)

	// services
	uploader := service.NewImageUploader(cfg.HTTP.UploadDir, cfg.HTTP.MaxUploadBytes)
	mailer := pkg.NewSMTPMailer(pkg.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})
	tokens := redis.NewUserRepository(rdb, cfg.JWT.AccessTTL)
	emailSvc := service.NewEmailService(mailer, redis.NewEmailRepository(rdb))
	userSvc := service.NewUserService(users, tokens, emailSvc)
	banSvc := service.NewBanService(users, redis.NewBanCacheRepository(rdb, cfg.Notify.BanCacheTTL), tokens)
	porSvc := service.NewPORService(pors, clubs, boards, users)
	forumSvc := service.NewForumService(forums, members, porSvc)
	notifySvc := service.NewNotificationService(notifications, outbox, subs, members, users, lock, service.NotifyOptions{
		TransferBatch:    cfg.Notify.TransferBatch,
		TransferLockTTL:  cfg.Notify.TransferLockTTL,
		BroadcastPageLen: cfg.Notify.BroadcastPageLen,
	})

	deps := router.Deps{
		Users:          userSvc,
		Emails:         emailSvc,
		Bans:           banSvc,
		Boards:         service.NewBoardService(boards, porSvc, uploader),
		Clubs:          service.NewClubService(clubs, boards, porSvc, uploader),
		PORs:           porSvc,
		Forums:         forumSvc,
		Posts:          service.NewPostService(posts, forumSvc),
		PostLikes:      service.NewPostLikeService(postLikes, posts, redis.NewLikeCacheRepository(rdb), lock),
		Opportunities:  service.NewOpportunityService(opps, porSvc),
		Subscriptions:  service.NewSubscriptionService(subs, clubs, boards),
		Notifications:  notifySvc,
		UploadDir:      cfg.HTTP.UploadDir,
		MaxUploadBytes: cfg.HTTP.MaxUploadBytes,
		PollInterval:   cfg.Notify.PollInterval,
	}

	var wg sync.WaitGroup
	startWorkers(ctx, &wg, cfg, notifySvc, outbox, mysql.NewSubscriberCountReconcilerRepo(db))

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router.InitRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logging.Log.Info().Str("addr", cfg.HTTP.Addr).Bool("kafka", cfg.KafkaEnabled()).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Log.Error().Err(err).Msg("http server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	logging.Log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = srv.Shutdown(shutdownCtx); err != nil {
		logging.Log.Error().Err(err).Msg("http shutdown")
	}
	wg.Wait()
}

// startWorkers 启动 outbox 投递、Kafka 消费与订阅数对账
func startWorkers(ctx context.Context, wg *sync.WaitGroup, cfg *config.Config, notifySvc *service.NotificationService,
	outbox service.OutboxStore, counts service.SubscriberCountStore) {

	sender := service.DirectSender(notifySvc)
	if cfg.KafkaEnabled() {
		kcfg := pkg.KafkaConfig{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic, GroupID: cfg.Kafka.GroupID}
		producer, err := pkg.NewKafkaProducer(kcfg)
		if err != nil {
			logging.Log.Fatal().Err(err).Msg("kafka producer")
		}
		sender = service.KafkaSender(producer)

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer producer.Close()
			consume(ctx, kcfg, notifySvc)
		}()
	}

	relayer := service.NewOutboxRelayer(outbox, sender, cfg.Notify.RelayBatch, cfg.Notify.RelayMaxRetry, cfg.Notify.RelayInterval)
	reconciler := service.NewSubscriberCountReconciler(counts, cfg.Notify.ReconcileBatch, cfg.Notify.ReconcileEvery)
	wg.Add(2)
	go func() {
		defer wg.Done()
		relayer.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		reconciler.Run(ctx)
	}()
}

// consume 消费者出错后等待片刻重建 reader，未提交的消息会被重新投递
func consume(ctx context.Context, kcfg pkg.KafkaConfig, notifySvc *service.NotificationService) {
	log := logging.Component("kafka-consumer")
	for ctx.Err() == nil {
		consumer, err := pkg.NewKafkaConsumer(kcfg)
		if err != nil {
			log.Error().Err(err).Msg("create consumer")
			return
		}
		err = consumer.Run(ctx, notifySvc.HandleMessage)
		_ = consumer.Close()
		if err == nil {
			return
		}
		log.Warn().Err(err).Dur("retry_in", consumerRestartDelay).Msg("consumer stopped")
		select {
		case <-ctx.Done():
			return
		case <-time.After(consumerRestartDelay):
		}
	}
}
