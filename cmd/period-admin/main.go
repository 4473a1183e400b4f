package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"gimbap-dashboard/internal/adapters/repo"
	"gimbap-dashboard/internal/domain"
	"gimbap-dashboard/internal/infra/config"
	"gimbap-dashboard/internal/infra/db"
	httpinfra "gimbap-dashboard/internal/infra/http"
	"gimbap-dashboard/internal/usecase/period"
)

// Утилита администратора: заводит отчётные периоды и выписывает сессионные токены.
//
//	period-admin create -year 2025 -month 9 -start 2025-09-01 -end 2025-09-30
//	period-admin list
//	period-admin token -user <uuid> -ttl 720h
func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg := config.Load()

	switch os.Args[1] {
	case "create":
		runCreate(cfg, os.Args[2:])
	case "list":
		runList(cfg)
	case "token":
		runToken(cfg, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "использование: period-admin <create|list|token> [флаги]")
}

func connect(cfg config.AppConfig) *repo.Postgres {
	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("period-admin: нет подключения к БД")
	}
	return repo.NewPostgres(pool)
}

func runCreate(cfg config.AppConfig, args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	year := fs.Int("year", 0, "год периода")
	month := fs.Int("month", 0, "месяц периода (1-12)")
	start := fs.String("start", "", "начало окна, YYYY-MM-DD")
	end := fs.String("end", "", "конец окна, YYYY-MM-DD")
	_ = fs.Parse(args)

	startDate, err := time.Parse("2006-01-02", *start)
	if err != nil {
		log.Fatal().Err(err).Msg("period-admin: некорректная дата начала")
	}
	endDate, err := time.Parse("2006-01-02", *end)
	if err != nil {
		log.Fatal().Err(err).Msg("period-admin: некорректная дата конца")
	}

	created, err := connect(cfg).CreatePeriod(context.Background(), domain.Period{
		Year:      *year,
		Month:     *month,
		StartDate: startDate,
		EndDate:   endDate,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("period-admin: период не создан")
	}
	fmt.Printf("создан период %s: %s (%s — %s)\n",
		created.ID, period.DisplayLabel(created),
		created.StartDate.Format("2006-01-02"), created.EndDate.Format("2006-01-02"))
}

func runList(cfg config.AppConfig) {
	periods, err := connect(cfg).ListAll(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("period-admin: список периодов")
	}
	for _, p := range periods {
		fmt.Printf("%s  %s  %s — %s\n", p.ID, period.DisplayLabel(p),
			p.StartDate.Format("2006-01-02"), p.EndDate.Format("2006-01-02"))
	}
}

func runToken(cfg config.AppConfig, args []string) {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	user := fs.String("user", "", "ID участника")
	ttl := fs.Duration("ttl", 30*24*time.Hour, "срок действия токена")
	_ = fs.Parse(args)

	if cfg.Session.Secret == "" {
		log.Fatal().Msg("period-admin: SESSION_SECRET обязателен")
	}
	userID, err := uuid.Parse(*user)
	if err != nil {
		log.Fatal().Err(err).Msg("period-admin: некорректный ID участника")
	}

	// Токен выписывается только существующему участнику.
	if _, err := connect(cfg).GetUser(context.Background(), userID); err != nil {
		log.Fatal().Err(err).Msg("period-admin: участник не найден")
	}
	fmt.Println(httpinfra.IssueSessionToken(cfg.Session.Secret, userID, time.Now().Add(*ttl)))
}
