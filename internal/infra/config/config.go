package config

import (
	"log"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	TZ     string `envconfig:"TZ" default:"Asia/Seoul"`
	Port   int    `envconfig:"PORT" default:"8080"`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	AMQPURL string `envconfig:"AMQP_URL"`

	Session struct {
		Secret string `envconfig:"SESSION_SECRET"`
	} `envconfig:""`

	Checklist struct {
		// CommentTargets — сколько разных постов нужно прокомментировать за период.
		CommentTargets int `envconfig:"CHECKLIST_COMMENT_TARGETS" default:"4"`
		// Wednesdays — сколько целевых дней посещаемости закрывает задачу.
		Wednesdays int `envconfig:"CHECKLIST_WEDNESDAYS" default:"2"`
		// OnlineWindowMin — окно в минутах, в пределах которого участник считается онлайн.
		OnlineWindowMin int `envconfig:"ONLINE_WINDOW_MIN" default:"30"`
	} `envconfig:""`

	Queues struct {
		Activity string `envconfig:"ACTIVITY_QUEUE_KEY" default:"activity_events"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
