package news

import (
	"strings"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
)

func TestSanitizeHTMLKeepsAllowedTags(t *testing.T) {
	in := `🔥<b>Күннің IT жаңалықтары</b>
<blockquote>2 > 1 & <script>alert(1)</script></blockquote>`
	out := SanitizeHTML(in)

	if !strings.Contains(out, "<b>Күннің IT жаңалықтары</b>") {
		t.Fatalf("bold tag not preserved: %q", out)
	}
	if !strings.Contains(out, "<blockquote>") || !strings.Contains(out, "</blockquote>") {
		t.Fatalf("blockquote not preserved: %q", out)
	}
	if strings.Contains(out, "<script>") {
		t.Fatalf("script tag survived: %q", out)
	}
	if !strings.Contains(out, "2 &gt; 1 &amp;") {
		t.Fatalf("entities not escaped: %q", out)
	}
}

func TestSanitizeHTMLEmpty(t *testing.T) {
	if SanitizeHTML("") != "" {
		t.Fatal("empty input must stay empty")
	}
}

func TestStripTags(t *testing.T) {
	in := `<b>Title</b>
<blockquote>Body</blockquote>`
	out := StripTags(in)
	if strings.ContainsAny(out, "<>") {
		t.Fatalf("tags survived: %q", out)
	}
	if !strings.Contains(out, "Title") || !strings.Contains(out, "Body") {
		t.Fatalf("text lost: %q", out)
	}
}

func TestParseScoresToleratesProse(t *testing.T) {
	content := "Here are the ratings:\n" +
		`[{"id": 0, "impact_score": 9, "reason": "major"}, {"id": 1, "impact_score": 2, "reason": "minor"}]` +
		"\nLet me know if you need more."
	entries, err := parseScores(content)
	if err != nil {
		t.Fatalf("parseScores: %v", err)
	}
	if len(entries) != 2 || entries[0].ImpactScore != 9 || entries[1].ID != 1 {
		t.Fatalf("entries = %+v", entries)
	}
}

func TestParseScoresRejectsGarbage(t *testing.T) {
	if _, err := parseScores("no json here"); err == nil {
		t.Fatal("expected error for non-JSON content")
	}
}

func TestTopByImpact(t *testing.T) {
	pool := []Item{
		{ID: 0, ImpactScore: 3},
		{ID: 1, ImpactScore: 9},
		{ID: 2, ImpactScore: 5},
		{ID: 3, ImpactScore: 9},
	}
	top := TopByImpact(pool, 2)
	if len(top) != 2 {
		t.Fatalf("len = %d", len(top))
	}
	if top[0].ID != 1 || top[1].ID != 3 {
		t.Fatalf("selection unstable or wrong: %+v", top)
	}
	// The source pool must stay untouched.
	if pool[0].ID != 0 {
		t.Fatal("input slice reordered")
	}
}

func TestCollectFreshFiltersByAgeAndLimit(t *testing.T) {
	now := time.Now().UTC()
	old := now.Add(-48 * time.Hour)
	fresh := now.Add(-1 * time.Hour)

	feed := &gofeed.Feed{
		Title: "Test Feed",
		Items: []*gofeed.Item{
			{Title: "fresh", PublishedParsed: &fresh, Description: strings.Repeat("x", 400)},
			{Title: "stale", PublishedParsed: &old},
			{Title: "undated"},
			{Title: "over limit", PublishedParsed: &fresh},
		},
	}

	items := collectFresh(feed, 3, now.Add(-24*time.Hour))
	if len(items) != 1 {
		t.Fatalf("items = %+v, want only the fresh one within limit", items)
	}
	if items[0].Title != "fresh" || items[0].Source != "Test Feed" {
		t.Fatalf("item = %+v", items[0])
	}
	if len(items[0].Summary) != summaryLimit {
		t.Fatalf("summary not truncated: %d chars", len(items[0].Summary))
	}
}
