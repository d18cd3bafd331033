package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"cinescript/internal/ai"
	"cinescript/internal/config"
	"cinescript/internal/models"
)

func main() {
	var (
		file       = flag.String("file", "", "Path to a screenplay PDF")
		genre      = flag.String("genre", models.Genres[0], "Genre")
		mood       = flag.String("mood", models.Moods[0], "Mood")
		camera     = flag.String("camera", models.Cameras[0], "Camera movement")
		archetypes = flag.String("archetypes", "Reluctant Hero", "Comma-separated character archetypes")
		subtitles  = flag.Bool("subtitles", false, "Request subtitle cues")
		storyboard = flag.Bool("storyboard", false, "Also generate the storyboard still")
	)
	flag.Parse()

	if *file == "" {
		fmt.Println("Please provide a screenplay with -file")
		os.Exit(1)
	}

	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: could not load .env file: %v\n", err)
	}

	// Scene JSON goes to stdout; keep the structured log quiet.
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if cfg.GeminiAPIKey == "" {
		fmt.Println("No API key configured. Set GEMINI_API_KEY.")
		os.Exit(1)
	}

	document, err := os.ReadFile(*file)
	if err != nil {
		fmt.Printf("Failed to read screenplay: %v\n", err)
		os.Exit(1)
	}

	genCfg := models.GenerationConfig{
		Genre:            *genre,
		Mood:             *mood,
		Camera:           *camera,
		IncludeSubtitles: *subtitles,
	}
	for _, a := range strings.Split(*archetypes, ",") {
		if a = strings.TrimSpace(a); a != "" {
			genCfg.Archetypes = append(genCfg.Archetypes, a)
		}
	}

	client := ai.NewClient(cfg.AI(), cfg.GeminiAPIKey)
	ctx := context.Background()

	fmt.Printf("Analyzing screenplay: %s\n", *file)
	scene, err := client.AnalyzeScreenplay(ctx, document, genCfg)
	if err != nil {
		fmt.Printf("Analysis failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Scene extracted: %s\n", scene.Title)

	if *storyboard {
		fmt.Println("Generating storyboard still...")
		image, err := client.GenerateStoryboard(ctx, scene.VisualPrompt)
		if err != nil {
			fmt.Printf("Storyboard failed: %v\n", err)
			os.Exit(1)
		}
		scene.StoryboardImage = image
		fmt.Printf("✓ Storyboard attached (%d bytes)\n", len(image))
	}

	out, err := json.MarshalIndent(scene, "", "  ")
	if err != nil {
		fmt.Printf("Failed to encode scene: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
