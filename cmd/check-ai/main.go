package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"cinescript/internal/ai"
	"cinescript/internal/config"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: could not load .env file: %v\n", err)
	}

	// This tool reports through stdout; keep the structured log quiet.
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("❌ Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("🔍 Checking Generation Backend")
	fmt.Println("==============================")

	if cfg.GeminiAPIKey == "" {
		fmt.Println("⚠️  WARNING: No API key configured!")
		fmt.Println("   Set GEMINI_API_KEY to run this check.")
		os.Exit(1)
	}

	fmt.Printf("🌐 Backend: %s\n", cfg.AIBaseURL)
	fmt.Println("🎛️  Models:")
	fmt.Printf("   - Analysis: %s\n", cfg.AnalysisModel)
	fmt.Printf("   - Storyboard: %s\n", cfg.ImageModel)
	fmt.Printf("   - Video: %s\n", cfg.VideoModel)
	fmt.Println()

	client := ai.NewClient(cfg.AI(), cfg.GeminiAPIKey)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := client.Probe(ctx); err != nil {
		if errors.Is(err, ai.ErrCredentialExpired) {
			fmt.Println("❌ Key rejected by the backend.")
			fmt.Println("   Generate a fresh key and set GEMINI_API_KEY.")
		} else {
			fmt.Printf("❌ Probe failed: %v\n", err)
		}
		os.Exit(1)
	}

	fmt.Println("✅ Key accepted. The backend is reachable.")
}
