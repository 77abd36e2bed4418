package main

import (
	"context"
	"flag"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"okrdrift/internal/config"
	"okrdrift/internal/model"
	"okrdrift/internal/platform/logger"
	"okrdrift/internal/repository"
	"okrdrift/internal/service"
)

// demo students seeded into the outcome archive
var students = []struct {
	ID    string
	Goal  string
	Level model.Level
}{
	{"1001", "Become a GenAI Expert", model.LevelIntermediate},
	{"1002", "Launch a campus startup", model.LevelBeginner},
	{"1003", "Land a product internship", model.LevelAdvanced},
}

func main() {
	sessionID := flag.String("session", "seed", "session id recorded on seeded outcomes")
	flag.Parse()

	cfg := config.Load()
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal("failed to connect to MongoDB", "error", err)
	}
	defer client.Disconnect(ctx)

	db := client.Database(cfg.MongoDB)
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		log.Fatal("failed to ensure indexes", "error", err)
	}
	repo := repository.NewOutcomeRepo(db)

	now := time.Now().UTC()
	for i, s := range students {
		report := service.SyntheticReport(s.ID, s.Goal, s.Level, now)
		record := &model.OutcomeRecord{
			SessionID:         *sessionID,
			StudentID:         s.ID,
			Token:             uint64(i + 1),
			Kind:              model.OutcomeFallback,
			UsedSyntheticData: true,
			Report:            &report,
			CreatedAt:         now,
		}
		if err := repo.Save(ctx, record); err != nil {
			log.Fatal("failed to seed outcome", "student_id", s.ID, "error", err)
		}
		log.Info("seeded outcome", "id", record.ID, "student_id", s.ID)
	}
}
