// Package education は教育トピックに関連する外部記事の取得を提供する。
// 設定されたRSS/Atomフィードを取得し、トピックのキーワードに一致する記事を返す。
package education

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html"
)

// Article はトピックに関連する記事。
type Article struct {
	Title   string
	Link    string
	Summary string
}

// topicKeywords は教育トピック番号（1〜5）ごとの照合キーワード（小文字）。
var topicKeywords = map[int][]string{
	1: {"sti", "sexually transmitted", "hiv", "syphilis", "gonorrh", "chlamydia"},
	2: {"contracept", "family planning", "birth control"},
	3: {"consent", "gender-based violence", "sexual violence"},
	4: {"menstrua", "period", "sanitary", "hygiene"},
	5: {"myth", "misconception", "fact"},
}

// summaryLimit は記事要約の最大文字数。
const summaryLimit = 160

// Provider は教育記事の取得インターフェース。
type Provider interface {
	Latest(ctx context.Context, topic, n int) []Article
}

// FeedService は外部フィードから教育記事を取得するProvider実装。
// 取得結果はTTLの間キャッシュする。
type FeedService struct {
	client  *http.Client
	feedURL string
	maxBody int64
	ttl     time.Duration
	logger  *slog.Logger
	now     func() time.Time

	mu        sync.Mutex
	items     []*gofeed.Item
	fetchedAt time.Time
}

// NewFeedService はFeedServiceを生成する。
// clientにはSSRF防止付きクライアントを渡すこと。
func NewFeedService(client *http.Client, feedURL string, maxBody int64, ttl time.Duration, logger *slog.Logger) *FeedService {
	if maxBody <= 0 {
		maxBody = 5 * 1024 * 1024
	}
	return &FeedService{
		client:  client,
		feedURL: feedURL,
		maxBody: maxBody,
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
	}
}

// Latest はトピックに一致する記事を最大n件返す。
// フィード未設定や取得失敗の場合は空のスライスを返す。
func (s *FeedService) Latest(ctx context.Context, topic, n int) []Article {
	keywords, ok := topicKeywords[topic]
	if !ok || n <= 0 || s.feedURL == "" {
		return nil
	}

	items, err := s.load(ctx)
	if err != nil {
		s.logger.Warn("教育フィードの取得に失敗しました",
			slog.String("feed_url", s.feedURL),
			slog.String("error", err.Error()),
		)
		return nil
	}

	var out []Article
	for _, item := range items {
		if item == nil || item.Link == "" || !matches(item, keywords) {
			continue
		}
		out = append(out, Article{
			Title:   strings.TrimSpace(item.Title),
			Link:    item.Link,
			Summary: truncate(PlainText(item.Description), summaryLimit),
		})
		if len(out) == n {
			break
		}
	}
	return out
}

// load はキャッシュが有効ならそれを返し、期限切れならフィードを再取得する。
// 再取得に失敗した場合、古いキャッシュがあればそれを返す。
func (s *FeedService) load(ctx context.Context) ([]*gofeed.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.items != nil && s.now().Sub(s.fetchedAt) < s.ttl {
		return s.items, nil
	}

	items, err := s.fetch(ctx)
	if err != nil {
		if s.items != nil {
			return s.items, nil
		}
		return nil, err
	}
	s.items = items
	s.fetchedAt = s.now()
	return items, nil
}

func (s *FeedService) fetch(ctx context.Context) ([]*gofeed.Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build feed request: %w", err)
	}
	req.Header.Set("User-Agent", "venille-bot/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected feed status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read feed body: %w", err)
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}
	return feed.Items, nil
}

func matches(item *gofeed.Item, keywords []string) bool {
	haystack := strings.ToLower(item.Title + " " + strings.Join(item.Categories, " "))
	for _, k := range keywords {
		if strings.Contains(haystack, k) {
			return true
		}
	}
	return false
}

// PlainText はHTML断片からテキストノードのみを取り出し、空白を整えて返す。
func PlainText(fragment string) string {
	if fragment == "" {
		return ""
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(fragment))
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.StartTagToken:
			name, _ := z.TagName()
			if t := string(name); t == "script" || t == "style" {
				skip++
			}
			b.WriteByte(' ')
		case html.EndTagToken:
			name, _ := z.TagName()
			if t := string(name); (t == "script" || t == "style") && skip > 0 {
				skip--
			}
			b.WriteByte(' ')
		case html.SelfClosingTagToken:
			b.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return strings.TrimSpace(string(runes[:limit-1])) + "…"
}

// compile-time interface check
var _ Provider = (*FeedService)(nil)
