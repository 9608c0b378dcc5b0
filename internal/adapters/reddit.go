package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"sentinel/pkg/models"
)

const redditSource = "Reddit Search"

// Subreddits that indicate a post is about scam or trust analysis.
var trustSubreddits = map[string]bool{
	"scams": true, "scam": true, "isitascam": true, "isitbullshit": true,
	"fraudalert": true, "reviews": true, "sitereview": true,
	"consumerprotection": true,
}

var scamKeywordRe = regexp.MustCompile(`(?i)\b(scam|fraud|fake|ripoff|phishing|stole|never (arrived|received)|chargeback)\b`)
var positiveKeywordRe = regexp.MustCompile(`(?i)\b(legit|legitimate|recommend|good experience|fast shipping)\b`)

// RedditConfig configures the community-sentiment adapter.
type RedditConfig struct {
	URL     string // search endpoint, default reddit.com/search.json
	Timeout time.Duration
}

// RedditAdapter searches Reddit for discussions about the subject domain
// and classifies community sentiment with deterministic keyword scoring.
type RedditAdapter struct {
	url    string
	client *http.Client
}

// NewRedditAdapter creates the Reddit adapter.
func NewRedditAdapter(cfg RedditConfig) *RedditAdapter {
	if cfg.URL == "" {
		cfg.URL = "https://www.reddit.com/search.json"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &RedditAdapter{
		url:    cfg.URL,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Name returns the registry key.
func (a *RedditAdapter) Name() string { return "reddit" }

type redditPost struct {
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Subreddit   string  `json:"subreddit"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	Permalink   string  `json:"permalink"`
	CreatedUTC  float64 `json:"created_utc"`
}

type redditResponse struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// Run searches for scam reports and reviews mentioning the subject.
func (a *RedditAdapter) Run(ctx context.Context, subject Subject) []models.EvidenceCard {
	target := subject.Domain
	if target == "" {
		target = subject.Raw
	}
	if target == "" {
		return []models.EvidenceCard{SkippedCard("Reddit search skipped", "empty subject", redditSource)}
	}

	query := fmt.Sprintf("%q scam OR legit OR review OR fraud", target)
	posts, err := a.search(ctx, query)
	if err != nil {
		return []models.EvidenceCard{FailedCard("Reddit search failed", err, redditSource)}
	}

	card := ClassifyRedditPosts(target, posts)
	return []models.EvidenceCard{card}
}

func (a *RedditAdapter) search(ctx context.Context, query string) ([]redditPost, error) {
	u := fmt.Sprintf("%s?q=%s&limit=25&sort=relevance", a.url, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "sentinel/1.0")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("reddit search returned %s", resp.Status)
	}

	var parsed redditResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode reddit response: %w", err)
	}

	posts := make([]redditPost, 0, len(parsed.Data.Children))
	for _, child := range parsed.Data.Children {
		posts = append(posts, child.Data)
	}
	return posts, nil
}

// ClassifyRedditPosts reduces a post set to a single sentiment card. The
// classification is deterministic for the same posts: scam-keyword hits
// weighted by subreddit and upvotes against positive-keyword hits.
func ClassifyRedditPosts(target string, posts []redditPost) models.EvidenceCard {
	if len(posts) == 0 {
		card := models.NewCard(models.KindReviewAnalysis, models.SeverityInfo,
			fmt.Sprintf("No Reddit discussions found for %s", target),
			fmt.Sprintf("No posts mentioning %q found on Reddit. Zero online presence is unusual for an established retailer.", target),
			redditSource, 0.3)
		card.Metadata = map[string]interface{}{"postCount": 0}
		return card
	}

	scamHits := 0
	positiveHits := 0
	weighted := 0
	topTitle := ""
	topScore := -1
	for _, p := range posts {
		combined := p.Title + " " + p.Selftext
		if !strings.Contains(strings.ToLower(combined), strings.ToLower(target)) {
			continue
		}
		if scamKeywordRe.MatchString(combined) {
			scamHits++
			weight := 1
			if trustSubreddits[strings.ToLower(p.Subreddit)] {
				weight += 2
			}
			if p.Score >= 100 {
				weight++
			}
			weighted += weight
			if p.Score > topScore {
				topScore = p.Score
				topTitle = p.Title
			}
		} else if positiveKeywordRe.MatchString(combined) {
			positiveHits++
		}
	}

	var severity string
	var title string
	confidence := 0.7
	switch {
	case weighted >= 5:
		severity = models.SeverityCritical
		title = fmt.Sprintf("%d scam reports found on Reddit", scamHits)
		confidence = 0.88
	case scamHits > 0:
		severity = models.SeverityWarning
		title = fmt.Sprintf("%d posts mention scam concerns for %s", scamHits, target)
	case positiveHits > 0:
		severity = models.SeveritySafe
		title = fmt.Sprintf("Positive community sentiment for %s", target)
	default:
		severity = models.SeverityInfo
		title = fmt.Sprintf("Reddit mentions %s without clear sentiment", target)
		confidence = 0.4
	}

	detail := fmt.Sprintf("%d relevant posts analyzed; %d raised scam concerns, %d were positive.", len(posts), scamHits, positiveHits)
	if topTitle != "" {
		detail += fmt.Sprintf(" Top post: %q (%d upvotes).", topTitle, topScore)
	}

	card := models.NewCard(models.KindReviewAnalysis, severity, title, detail, redditSource, confidence)
	card.Metadata = map[string]interface{}{
		"postCount":    len(posts),
		"scamHits":     scamHits,
		"positiveHits": positiveHits,
	}
	return card
}
