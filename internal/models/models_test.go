package models

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

func TestAdSearchResultAverageScore(t *testing.T) {
	tests := []struct {
		name   string
		result AdSearchResult
		want   float64
	}{
		{
			name: "two clips",
			result: AdSearchResult{
				ID:    "vid-1",
				Clips: []AdClip{{Score: 0.8}, {Score: 0.9}},
			},
			want: 0.85,
		},
		{
			name:   "no clips",
			result: AdSearchResult{ID: "vid-2"},
			want:   0.0,
		},
		{
			name: "single clip",
			result: AdSearchResult{
				ID:    "vid-3",
				Clips: []AdClip{{Score: 0.75}},
			},
			want: 0.75,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.result.AverageScore()
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("AverageScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVideoTypeValid(t *testing.T) {
	if !VideoTypeCreator.Valid() || !VideoTypeAd.Valid() {
		t.Error("creator/ad should be valid")
	}
	if VideoType("trailer").Valid() {
		t.Error("unknown type should be invalid")
	}
	if VideoType("").Valid() {
		t.Error("empty type should be invalid")
	}
}

func TestNewUploadURLResponse(t *testing.T) {
	before := time.Now().UTC()
	resp := NewUploadURLResponse("https://example.com/put", "upload/abc.mp4", 1800*time.Second)
	after := time.Now().UTC()

	if resp.ExpiresIn != 1800 {
		t.Errorf("ExpiresIn = %d, want 1800", resp.ExpiresIn)
	}

	expiresAt, err := time.Parse(time.RFC3339, resp.ExpiresAt)
	if err != nil {
		t.Fatalf("ExpiresAt is not RFC3339: %v", err)
	}

	wantEarliest := before.Add(1800 * time.Second).Add(-2 * time.Second)
	wantLatest := after.Add(1800 * time.Second).Add(2 * time.Second)
	if expiresAt.Before(wantEarliest) || expiresAt.After(wantLatest) {
		t.Errorf("ExpiresAt = %s, outside tolerance [%s, %s]", expiresAt, wantEarliest, wantLatest)
	}
}

func TestPlacementResultJSONRoundTrip(t *testing.T) {
	doc := PlacementResult{
		Summary:            "a hiking documentary",
		Tags:               []string{"outdoors"},
		Themes:             []string{"perseverance"},
		ArtisticStyle:      "cinematic",
		GeneralColorTone:   "warm",
		ToneClassification: []string{"inspirational"},
		Characters:         []Character{{Name: "Maya", Arc: "novice to guide"}},
		NarrativeStructure: []Narration{{
			Timestamp:      30,
			Narration:      "the ascent begins",
			Themes:         []string{"struggle"},
			NarrativeTrope: "rising_action",
			Act:            "act_2_confrontation",
		}},
		Placements: []Placement{{
			Timestamp:  120,
			Reason:     "scene transition",
			Themes:     []string{"rest"},
			AdKeywords: []string{"energy drink"},
		}},
	}

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}

	var decoded PlacementResult
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}

	if decoded.Summary != doc.Summary {
		t.Errorf("Summary = %q, want %q", decoded.Summary, doc.Summary)
	}
	if len(decoded.Placements) != 1 || decoded.Placements[0].Timestamp != 120 {
		t.Errorf("Placements not preserved: %+v", decoded.Placements)
	}
	if decoded.NarrativeStructure[0].NarrativeTrope != "rising_action" {
		t.Errorf("NarrativeTrope = %q", decoded.NarrativeStructure[0].NarrativeTrope)
	}
}
