package collect

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"
)

// FeedSource reads a subreddit's public search feed. It needs no credentials
// but cannot list comments, so only the sign-up flow can use it.
type FeedSource struct {
	baseURL   string
	subreddit string
	parser    *gofeed.Parser
}

// NewFeedSource creates a feed source for subreddit.
func NewFeedSource(baseURL, subreddit, userAgent string) *FeedSource {
	if baseURL == "" {
		baseURL = "https://www.reddit.com"
	}
	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	return &FeedSource{
		baseURL:   strings.TrimRight(baseURL, "/"),
		subreddit: subreddit,
		parser:    parser,
	}
}

// Search parses the search feed for query within tf.
func (f *FeedSource) Search(ctx context.Context, query string, tf Timeframe) ([]Submission, error) {
	params := url.Values{
		"q":           {query},
		"restrict_sr": {"on"},
		"sort":        {"new"},
		"t":           {string(tf)},
		"limit":       {fmt.Sprintf("%d", pageSize)},
	}
	feedURL := fmt.Sprintf("%s/r/%s/search.rss?%s", f.baseURL, f.subreddit, params.Encode())

	feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parsing feed %s: %w", feedURL, err)
	}

	var subs []Submission
	for _, item := range feed.Items {
		if s, ok := parseItem(item); ok {
			subs = append(subs, s)
		}
	}

	log.Printf("Parsed %d submissions from the r/%s feed for query: %s", len(subs), f.subreddit, query)
	return subs, nil
}

// CanListComments is false: feeds carry submissions only.
func (f *FeedSource) CanListComments() bool {
	return false
}

// Comments is not available from feeds.
func (f *FeedSource) Comments(_ context.Context, _ Submission) ([]Comment, error) {
	return nil, ErrCommentsUnsupported
}

func parseItem(item *gofeed.Item) (Submission, bool) {
	id := strings.TrimPrefix(item.GUID, "t3_")
	if id == "" {
		return Submission{}, false
	}

	title := strings.TrimSpace(item.Title)
	if title == "" {
		return Submission{}, false
	}

	s := Submission{
		ID:        id,
		Title:     title,
		Body:      item.Content,
		Permalink: item.Link,
	}
	if s.Body == "" {
		s.Body = item.Description
	}
	if item.Author != nil {
		s.Author = strings.TrimPrefix(item.Author.Name, "/u/")
	}
	if item.PublishedParsed != nil {
		s.Created = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		s.Created = *item.UpdatedParsed
	}
	return s, true
}
