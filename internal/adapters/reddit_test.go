package adapters

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"sentinel/pkg/models"
)

func TestClassifyRedditPostsNoPosts(t *testing.T) {
	card := ClassifyRedditPosts("ghost.example", nil)
	if card.Severity != models.SeverityInfo {
		t.Fatalf("expected info severity, got %s", card.Severity)
	}
	if card.Metadata["postCount"] != 0 {
		t.Fatalf("expected postCount 0, got %v", card.Metadata["postCount"])
	}
	if card.Confidence != 0.3 {
		t.Fatalf("expected confidence 0.3, got %v", card.Confidence)
	}
}

func TestClassifyRedditPostsScamReportsInTrustSubreddit(t *testing.T) {
	posts := []redditPost{
		{Title: "shady.example is a scam, never received my order", Subreddit: "Scams", Score: 150},
		{Title: "shady.example ripoff, avoid", Subreddit: "scams", Score: 20},
	}
	card := ClassifyRedditPosts("shady.example", posts)
	if card.Severity != models.SeverityCritical {
		t.Fatalf("expected critical, got %s", card.Severity)
	}
	if card.Confidence != 0.88 {
		t.Fatalf("expected confidence 0.88, got %v", card.Confidence)
	}
	if card.Title != "2 scam reports found on Reddit" {
		t.Fatalf("unexpected title %q", card.Title)
	}
}

func TestClassifyRedditPostsSingleMentionIsWarning(t *testing.T) {
	posts := []redditPost{
		{Title: "is sketchy.example fraud?", Subreddit: "AskReddit", Score: 2},
	}
	card := ClassifyRedditPosts("sketchy.example", posts)
	if card.Severity != models.SeverityWarning {
		t.Fatalf("expected warning, got %s", card.Severity)
	}
}

func TestClassifyRedditPostsPositiveSentiment(t *testing.T) {
	posts := []redditPost{
		{Title: "good.example is legit, fast shipping", Subreddit: "reviews", Score: 40},
	}
	card := ClassifyRedditPosts("good.example", posts)
	if card.Severity != models.SeveritySafe {
		t.Fatalf("expected safe, got %s", card.Severity)
	}
}

func TestClassifyRedditPostsIgnoresUnrelatedPosts(t *testing.T) {
	posts := []redditPost{
		{Title: "some other site is a scam", Subreddit: "scams", Score: 500},
	}
	card := ClassifyRedditPosts("clean.example", posts)
	if card.Severity != models.SeverityInfo {
		t.Fatalf("unrelated post changed sentiment: %s", card.Severity)
	}
}

func TestRedditAdapterRunAgainstCannedServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"children":[
			{"data":{"title":"bad.example scam, chargeback needed","subreddit":"scams","score":120}}
		]}}`))
	}))
	defer srv.Close()

	a := NewRedditAdapter(RedditConfig{URL: srv.URL})
	cards := a.Run(context.Background(), NewSubject("https://bad.example/item"))
	if len(cards) != 1 {
		t.Fatalf("expected 1 card, got %d", len(cards))
	}
	if cards[0].Severity != models.SeverityWarning && cards[0].Severity != models.SeverityCritical {
		t.Fatalf("scam post not reflected: %s", cards[0].Severity)
	}
}

func TestRedditAdapterTransportFailureDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := NewRedditAdapter(RedditConfig{URL: srv.URL})
	cards := a.Run(context.Background(), NewSubject("https://bad.example"))
	if len(cards) != 1 || cards[0].Kind != models.KindFailed {
		t.Fatalf("expected single failed card, got %+v", cards)
	}
	if cards[0].Confidence != 0 {
		t.Fatalf("degraded card must carry confidence 0")
	}
}
