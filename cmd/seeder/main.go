package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/cadencehq/outreach-backend/internal/config"
	"github.com/cadencehq/outreach-backend/internal/db"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to connect:", err)
		os.Exit(1)
	}
	defer conn.Close()

	files := []string{
		"migrations/schema.sql",
		"seed/leads.sql",
		"seed/campaigns.sql",
	}

	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read %s: %v\n", file, err)
			os.Exit(1)
		}
		if _, err := conn.Exec(string(content)); err != nil {
			fmt.Fprintf(os.Stderr, "failed to execute %s: %v\n", file, err)
			os.Exit(1)
		}
		fmt.Println("applied:", file)
	}

	fmt.Println("database seeding completed")
}
