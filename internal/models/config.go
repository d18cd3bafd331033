package models

import "slices"

var Genres = []string{
	"Sci-fi",
	"Drama",
	"Action",
	"Comedy",
	"Horror",
	"Thriller",
	"Romance",
	"Fantasy",
	"Mystery",
	"Western",
}

var Moods = []string{
	"Epic",
	"Dark",
	"Whimsical",
	"Melancholic",
	"Suspenseful",
	"Hopeful",
	"Gritty",
	"Dreamlike",
}

var Cameras = []string{
	"Static",
	"Slow pan",
	"Dolly zoom",
	"Handheld",
	"Tracking shot",
	"Crane shot",
	"Aerial",
}

var Archetypes = []string{
	"Reluctant Hero",
	"Wise Mentor",
	"Charming Rogue",
	"Femme Fatale",
	"Loyal Sidekick",
	"Mastermind Villain",
	"Comic Relief",
	"Mysterious Stranger",
}

type GenerationConfig struct {
	Genre            string   `json:"genre"`
	Mood             string   `json:"mood"`
	Archetypes       []string `json:"archetypes"`
	Camera           string   `json:"camera"`
	IncludeSubtitles bool     `json:"includeSubtitles"`
}

func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Genre:      Genres[0],
		Mood:       Moods[0],
		Camera:     Cameras[0],
		Archetypes: []string{},
	}
}

func (c GenerationConfig) Clone() GenerationConfig {
	out := c
	out.Archetypes = append([]string(nil), c.Archetypes...)
	return out
}

// ConfigPatch is a partial overwrite of the single-select fields; nil fields
// are left untouched. Archetypes change only through membership toggles.
type ConfigPatch struct {
	Genre            *string `json:"genre"`
	Mood             *string `json:"mood"`
	Camera           *string `json:"camera"`
	IncludeSubtitles *bool   `json:"includeSubtitles"`
}

func (c *GenerationConfig) Apply(p ConfigPatch) {
	if p.Genre != nil {
		c.Genre = *p.Genre
	}
	if p.Mood != nil {
		c.Mood = *p.Mood
	}
	if p.Camera != nil {
		c.Camera = *p.Camera
	}
	if p.IncludeSubtitles != nil {
		c.IncludeSubtitles = *p.IncludeSubtitles
	}
}

func ValidGenre(v string) bool     { return slices.Contains(Genres, v) }
func ValidMood(v string) bool      { return slices.Contains(Moods, v) }
func ValidCamera(v string) bool    { return slices.Contains(Cameras, v) }
func ValidArchetype(v string) bool { return slices.Contains(Archetypes, v) }
