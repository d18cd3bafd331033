package models

import (
	"math"
	"strconv"
	"strings"
)

type MovieScene struct {
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	VisualPrompt    string     `json:"visualPrompt"`
	Genre           string     `json:"genre"`
	Mood            string     `json:"mood"`
	Characters      []string   `json:"characters"`
	Subtitles       []Subtitle `json:"subtitles,omitempty"`
	StoryboardImage string     `json:"storyboardImage,omitempty"`
}

type Subtitle struct {
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
	Text      string  `json:"text"`
}

// WellFormed reports whether the cue spans a valid interval: 0 <= start < end.
func (s Subtitle) WellFormed() bool {
	return s.StartTime >= 0 && s.StartTime < s.EndTime
}

func (m *MovieScene) Clone() *MovieScene {
	if m == nil {
		return nil
	}
	out := *m
	out.Characters = append([]string(nil), m.Characters...)
	out.Subtitles = append([]Subtitle(nil), m.Subtitles...)
	return &out
}

// ActiveSubtitleAt returns the index of the cue to display at playback time
// at. Among well-formed cues whose interval contains the instant, the one
// with the earliest start time wins; ties go to the lowest index. Malformed
// cues never match.
func ActiveSubtitleAt(subs []Subtitle, at float64) (int, bool) {
	best := -1
	for i, s := range subs {
		if !s.WellFormed() {
			continue
		}
		if at < s.StartTime || at >= s.EndTime {
			continue
		}
		if best == -1 || s.StartTime < subs[best].StartTime {
			best = i
		}
	}
	return best, best != -1
}

// ParseSeconds turns raw user input into a subtitle timestamp. Anything that
// is not a finite non-negative number coerces to 0.
func ParseSeconds(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
