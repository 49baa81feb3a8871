package sentiment

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"signal-trader/internal/config"
	"signal-trader/internal/errors"
	"signal-trader/internal/models"
)

const (
	googleNewsRSSURL = "https://news.google.com/rss/search"
	maxBodyChars     = 2000
)

// RSS feed shape of news.google.com.
type rssFeed struct {
	XMLName xml.Name   `xml:"rss"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title string    `xml:"title"`
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	PubDate     string    `xml:"pubDate"`
	Source      rssSource `xml:"source"`
	GUID        string    `xml:"guid"`
}

type rssSource struct {
	URL  string `xml:"url,attr"`
	Text string `xml:",chardata"`
}

// NewsFetcher pulls recent coverage for a symbol from the Google News RSS
// feed, optionally enriching items with article body text.
type NewsFetcher struct {
	client      *resty.Client
	maxArticles int
	fetchBodies bool
}

func NewNewsFetcher(cfg config.SentimentModelConfig) *NewsFetcher {
	client := resty.New()
	client.SetTimeout(30 * time.Second)
	client.SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")

	maxArticles := cfg.MaxArticles
	if maxArticles <= 0 {
		maxArticles = 10
	}

	return &NewsFetcher{
		client:      client,
		maxArticles: maxArticles,
		fetchBodies: cfg.FetchBodies,
	}
}

// Fetch returns up to MaxArticles recent items for the symbol, in the order
// the feed delivers them.
func (f *NewsFetcher) Fetch(ctx context.Context, symbol string) ([]models.NewsItem, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":    symbol + " stock",
			"hl":   "en-US",
			"gl":   "US",
			"ceid": "US:en",
		}).
		Get(googleNewsRSSURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch news feed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("news feed returned %d", resp.StatusCode())
	}

	var feed rssFeed
	if err := xml.Unmarshal(resp.Body(), &feed); err != nil {
		return nil, fmt.Errorf("failed to parse news feed: %w", err)
	}

	items := make([]models.NewsItem, 0, f.maxArticles)
	for _, it := range feed.Channel.Items {
		if len(items) >= f.maxArticles {
			break
		}
		item := models.NewsItem{
			Title:       cleanTitle(it.Title, it.Source.Text),
			Source:      it.Source.Text,
			URL:         it.Link,
			PublishedAt: parsePubDate(it.PubDate),
		}
		if f.fetchBodies {
			item.Description = f.articleBody(ctx, it.Link)
		}
		items = append(items, item)
	}

	if len(items) == 0 {
		return nil, errors.Wrapf(errors.ErrSentimentUnavailable, "%s: feed returned no items", symbol)
	}
	return items, nil
}

// cleanTitle strips the " - Publisher" suffix Google News appends to titles.
func cleanTitle(title, source string) string {
	title = strings.TrimSpace(title)
	if source != "" {
		if trimmed := strings.TrimSuffix(title, " - "+source); trimmed != title {
			return strings.TrimSpace(trimmed)
		}
	}
	if i := strings.LastIndex(title, " - "); i > 0 {
		title = title[:i]
	}
	return strings.TrimSpace(title)
}

func parsePubDate(raw string) time.Time {
	if t, err := time.Parse(time.RFC1123Z, raw); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC1123, raw); err == nil {
		return t
	}
	return time.Time{}
}

// articleBody extracts paragraph text from the linked article, capped at
// maxBodyChars. Any failure degrades to headline-only analysis.
func (f *NewsFetcher) articleBody(ctx context.Context, link string) string {
	if link == "" {
		return ""
	}
	resp, err := f.client.R().SetContext(ctx).Get(link)
	if err != nil || resp.StatusCode() != http.StatusOK {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return ""
	}

	var parts []string
	total := 0
	doc.Find("article p, .article-content p, main p, p").EachWithBreak(func(i int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if len(text) < 40 {
			return true
		}
		parts = append(parts, text)
		total += len(text)
		return total < maxBodyChars
	})

	body := strings.Join(parts, " ")
	if len(body) > maxBodyChars {
		body = body[:maxBodyChars]
	}
	return body
}
