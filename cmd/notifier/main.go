package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"rollcall/internal/config"
	"rollcall/internal/directory"
	"rollcall/internal/notify"
	"rollcall/internal/queue"
	"rollcall/internal/store"
)

// The notifier consumes absence events and emails the affected students.
// It runs strictly after the attendance write is durable; every failure
// here is logged and dropped, never surfaced to the write path.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "rollcall:absences")
	}

	dir := directory.NewRepository(db.Client)
	mailer := notify.NewSMTPMailer(cfg.SMTPServer, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.FromEmail)
	notifier := notify.New(dir, mailer)

	if cfg.SMTPServer == "" {
		log.Println("WARNING: SMTP relay not configured, absence notices will fail")
	}

	events, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("notifier started, waiting for absence events...")
	for evt := range events {
		log.Printf("processing absence for student %s in class %s (record %s)", evt.StudentID, evt.ClassID, evt.RecordID)
		_ = notifier.HandleAbsence(ctx, evt)
	}

	log.Println("notifier stopped")
}
