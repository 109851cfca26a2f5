package main

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/aleixpons/padel-club-backend/internal/config"
	"github.com/aleixpons/padel-club-backend/internal/database"
	"github.com/aleixpons/padel-club-backend/internal/handler"
	"github.com/aleixpons/padel-club-backend/internal/queue"
	"github.com/aleixpons/padel-club-backend/internal/router"
	"github.com/aleixpons/padel-club-backend/internal/service"
	"github.com/aleixpons/padel-club-backend/internal/store/mysql"
	"github.com/aleixpons/padel-club-backend/internal/txqueue"
	"github.com/aleixpons/padel-club-backend/internal/utils"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	st := mysql.New(db)

	// All writes and reads flow through the sequencer, one transaction
	// at a time in arrival order.
	q := txqueue.New(st, cfg.QueueDepth, cfg.QueueWait)
	defer q.Close()

	var events service.Events = service.NopEvents{}
	if cfg.AMQPURL != "" {
		events = queue.NewPublisher(cfg.AMQPURL)
		go func() {
			if err := queue.StartConsumer(cfg.AMQPURL); err != nil {
				log.Printf("slot-consumer: %v", err)
			}
		}()
	}

	booking := service.NewBooking(q, events)
	reservations := service.NewReservations(q, events)
	ledger := service.NewLedger(q, cfg.MaintenanceFee)
	members := service.NewMembers(q, time.Duration(cfg.RefreshTTLDays)*24*time.Hour)
	clubs := service.NewClubs(q)
	weeks := service.NewWeeks(q)

	var verifier utils.IdentityVerifier
	if cfg.JWKSURL != "" {
		verifier = utils.NewJWKSVerifier(cfg.JWKSURL)
	}

	authH := handler.NewAuthHandler(cfg, members, verifier)
	slotH := handler.NewSlotHandler(booking, reservations)
	ledgerH := handler.NewLedgerHandler(ledger)
	memberH := handler.NewMemberHandler(members, clubs)
	weekH := handler.NewWeekHandler(weeks)

	rdb := config.NewRedisClient() // nil disables rate limiting and caching

	e := echo.New()
	router.RegisterRoutes(e, authH)
	router.RegisterMember(e, cfg, rdb, authH, slotH, ledgerH, weekH, memberH)
	router.RegisterAdmin(e, cfg, rdb, slotH, ledgerH, memberH)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
