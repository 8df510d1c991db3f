// Package collect fetches submissions and their direct replies from reddit.
package collect

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/TobiSchelling/MisfitCrawler/internal/config"
)

// ErrCommentsUnsupported is returned by sources that cannot list replies.
var ErrCommentsUnsupported = errors.New("source cannot list comments")

// Timeframe is reddit's search time window.
type Timeframe string

const (
	Hour  Timeframe = "hour"
	Day   Timeframe = "day"
	Week  Timeframe = "week"
	Month Timeframe = "month"
	Year  Timeframe = "year"
	All   Timeframe = "all"
)

// ParseTimeframe returns the timeframe named by s, or Month when s is empty
// or unknown.
func ParseTimeframe(s string) Timeframe {
	switch tf := Timeframe(strings.ToLower(strings.TrimSpace(s))); tf {
	case Hour, Day, Week, Month, Year, All:
		return tf
	}
	return Month
}

// Submission is a top-level post.
type Submission struct {
	ID          string
	Title       string
	Flair       string
	Author      string
	AuthorID    string
	Created     time.Time
	NumComments int
	Body        string // rendered HTML
	Permalink   string
}

// Comment is a direct reply to a submission.
type Comment struct {
	ID       string
	Author   string
	AuthorID string
	Body     string
}

// Source lists submissions and their direct replies.
type Source interface {
	Search(ctx context.Context, query string, tf Timeframe) ([]Submission, error)
	Comments(ctx context.Context, sub Submission) ([]Comment, error)
	// CanListComments reports whether Comments is supported at all.
	CanListComments() bool
}

// NewSource builds the source selected by cfg.Reddit.Mode.
func NewSource(cfg *config.Config) (Source, error) {
	rc := cfg.Reddit
	if rc.Subreddit == "" {
		return nil, fmt.Errorf("reddit.subreddit is not configured")
	}

	switch rc.Mode {
	case config.ModeFeed:
		return NewFeedSource(rc.FeedBaseURL, rc.Subreddit, rc.UserAgent), nil
	case config.ModeAPI, "":
		id, secret := cfg.ClientID(), cfg.ClientSecret()
		if id == "" || secret == "" {
			return nil, fmt.Errorf("reddit credentials missing: set %s and %s", rc.ClientIDEnv, rc.ClientSecretEnv)
		}
		return NewRedditClient(RedditOptions{
			Subreddit:    rc.Subreddit,
			ClientID:     id,
			ClientSecret: secret,
			UserAgent:    rc.UserAgent,
			APIBaseURL:   rc.APIBaseURL,
			AuthURL:      rc.AuthURL,
		}), nil
	}
	return nil, fmt.Errorf("unknown reddit mode %q", rc.Mode)
}
