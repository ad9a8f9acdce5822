package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/existflow/ironplan/internal/logger"
	"github.com/existflow/ironplan/server"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	mongoURI := os.Getenv("IRONPLAN_MONGO_URI")
	if mongoURI == "" {
		mongoURI = "mongodb://localhost:27017"
	}

	dbName := os.Getenv("IRONPLAN_MONGO_DB")
	if dbName == "" {
		dbName = "ironplan"
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = logger.ParseLevel(os.Getenv("IRONPLAN_LOG_LEVEL"))
	logCfg.Console = true
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	srv, err := server.New(ctx, mongoURI, dbName)
	cancel()
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}
	defer func() {
		if err := srv.Close(context.Background()); err != nil {
			log.Printf("Error closing server: %v", err)
		}
	}()

	log.Printf("ironplan server starting on :%s", port)
	if err := srv.Start(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
