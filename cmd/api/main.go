package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"gimbap-dashboard/internal/adapters/api"
	"gimbap-dashboard/internal/adapters/repo"
	"gimbap-dashboard/internal/domain"
	"gimbap-dashboard/internal/infra/cache"
	"gimbap-dashboard/internal/infra/config"
	"gimbap-dashboard/internal/infra/db"
	httpinfra "gimbap-dashboard/internal/infra/http"
	infralog "gimbap-dashboard/internal/infra/log"
	"gimbap-dashboard/internal/infra/metrics"
	"gimbap-dashboard/internal/infra/queue"
	"gimbap-dashboard/internal/usecase/attendance"
	"gimbap-dashboard/internal/usecase/blog"
	"gimbap-dashboard/internal/usecase/comments"
	"gimbap-dashboard/internal/usecase/members"
	"gimbap-dashboard/internal/usecase/period"
)

func main() {
	cfg := config.Load()
	logger := infralog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	loc, err := time.LoadLocation(cfg.TZ)
	if err != nil {
		log.Fatal().Err(err).Str("tz", cfg.TZ).Msg("api: неизвестный часовой пояс")
	}
	if cfg.Session.Secret == "" {
		log.Fatal().Msg("api: SESSION_SECRET обязателен")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("api: нет подключения к БД")
	}
	defer pool.Close()

	repoAdapter := repo.NewPostgres(pool)

	var teamCache domain.Cache
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		teamCache = cache.NewRedis(redisClient)
		defer redisClient.Close()
	}

	var activityQueue domain.ActivityQueue
	switch {
	case cfg.AMQPURL != "":
		amqpQueue, err := queue.NewAMQPActivityQueue(cfg.AMQPURL, cfg.Queues.Activity)
		if err != nil {
			log.Fatal().Err(err).Msg("api: нет подключения к брокеру")
		}
		defer amqpQueue.Close()
		activityQueue = amqpQueue
	case redisClient != nil:
		activityQueue = queue.NewRedisActivityQueue(redisClient, cfg.Queues.Activity)
	}

	periodUC := period.NewService(repoAdapter, loc)
	attendanceUC := attendance.NewService(repoAdapter, repoAdapter, activityQueue, loc, cfg.Checklist.Wednesdays)
	blogUC := blog.NewService(repoAdapter, repoAdapter, activityQueue)
	commentsUC := comments.NewService(repoAdapter, repoAdapter, repoAdapter, activityQueue, cfg.Checklist.CommentTargets)
	membersUC := members.NewService(repoAdapter, attendanceUC, blogUC, commentsUC, teamCache,
		time.Duration(cfg.Checklist.OnlineWindowMin)*time.Minute)

	handler := api.NewHandler(logger.With().Str("component", "api").Logger(),
		periodUC, attendanceUC, blogUC, commentsUC, membersUC, repoAdapter)

	server := httpinfra.NewServer(logger)
	server.Router.Group(func(protected chi.Router) {
		protected.Use(httpinfra.SessionAuthMiddleware(cfg.Session.Secret))
		handler.Register(protected)
	})

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), ":9090")

	go func() {
		if err := server.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logger.Error().Err(err).Msg("api: сервер остановлен")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("api: остановка")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}
