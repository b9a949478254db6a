package main

import (
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/fatimazahra-12/school-manage/internal/config"
	"github.com/fatimazahra-12/school-manage/internal/database"
	"github.com/fatimazahra-12/school-manage/internal/handler"
	"github.com/fatimazahra-12/school-manage/internal/mail"
	"github.com/fatimazahra-12/school-manage/internal/queue"
	"github.com/fatimazahra-12/school-manage/internal/repository"
	"github.com/fatimazahra-12/school-manage/internal/router"
	notifier "github.com/fatimazahra-12/school-manage/internal/service"
	"github.com/fatimazahra-12/school-manage/internal/token"
	"github.com/fatimazahra-12/school-manage/internal/twofactor"
)

func main() {
	// .env is a dev convenience; real deployments set the environment.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	codec := token.NewCodec(
		token.Secrets{Access: cfg.AccessSecret, Refresh: cfg.RefreshSecret, Reset: cfg.ResetSecret},
		token.Lifetimes{
			Access:  time.Duration(cfg.AccessTTLMin) * time.Minute,
			Refresh: time.Duration(cfg.RefreshTTLHrs) * time.Hour,
			Reset:   time.Duration(cfg.ResetTTLMin) * time.Minute,
		},
	)

	accounts := repository.NewAccountRepo(db)
	roles := repository.NewRoleRepo(db)
	sessions := repository.NewSessionRepo(db)
	courses := repository.NewCourseRepo(db)
	grades := repository.NewGradeRepo(db)

	var mailer mail.Mailer = mail.LogMailer{}
	if cfg.SMTPHost != "" {
		mailer = mail.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom)
	} else {
		log.Println("mail: SMTP_HOST not set, logging outgoing mail instead")
	}

	publisher := notifier.New()
	go func() {
		if err := queue.StartNotificationConsumer(); err != nil {
			log.Printf("queue: notification consumer stopped: %v", err)
		}
	}()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis: unavailable, rate limiting and caching disabled")
	}

	engine := twofactor.NewEngine(cfg.TOTPIssuer)

	e := router.New(router.Deps{
		DB:        db,
		Redis:     rdb,
		Codec:     codec,
		Accounts:  accounts,
		Roles:     roles,
		Sessions:  sessions,
		Auth:      handler.NewAuthHandler(cfg, codec, accounts, roles, sessions, mailer, publisher),
		TwoFactor: handler.NewTwoFactorHandler(accounts, engine),
		Courses:   handler.NewCourseHandler(courses),
		Grades:    handler.NewGradeHandler(grades),
		Admin:     handler.NewAdminHandler(accounts, roles),
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
