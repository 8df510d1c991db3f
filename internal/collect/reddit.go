package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	pageSize       = 100
	maxSearchPages = 10
	moreBatchSize  = 100
	maxMoreRounds  = 50
	commentLimit   = 500
)

// webBaseURL prefixes the relative permalinks the API returns.
const webBaseURL = "https://www.reddit.com"

// RedditOptions configures a RedditClient.
type RedditOptions struct {
	Subreddit    string
	ClientID     string
	ClientSecret string
	UserAgent    string
	APIBaseURL   string
	AuthURL      string
	Timeout      time.Duration
}

// RedditClient reads a subreddit through the reddit API using an
// application-only OAuth token.
type RedditClient struct {
	http         *resty.Client
	subreddit    string
	clientID     string
	clientSecret string
	authURL      string

	token     string
	expiresAt time.Time
}

// NewRedditClient creates a new reddit API client.
func NewRedditClient(opts RedditOptions) *RedditClient {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.APIBaseURL == "" {
		opts.APIBaseURL = "https://oauth.reddit.com"
	}
	if opts.AuthURL == "" {
		opts.AuthURL = "https://www.reddit.com/api/v1/access_token"
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimRight(opts.APIBaseURL, "/"))
	client.SetHeader("User-Agent", opts.UserAgent)
	client.SetTimeout(opts.Timeout)

	return &RedditClient{
		http:         client,
		subreddit:    opts.Subreddit,
		clientID:     opts.ClientID,
		clientSecret: opts.ClientSecret,
		authURL:      opts.AuthURL,
	}
}

type listing struct {
	Data struct {
		After    string  `json:"after"`
		Children []thing `json:"children"`
	} `json:"data"`
}

type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type linkData struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	LinkFlairText  string  `json:"link_flair_text"`
	Author         string  `json:"author"`
	AuthorFullname string  `json:"author_fullname"`
	CreatedUTC     float64 `json:"created_utc"`
	NumComments    int     `json:"num_comments"`
	SelftextHTML   string  `json:"selftext_html"`
	Permalink      string  `json:"permalink"`
}

type commentData struct {
	ID             string `json:"id"`
	Author         string `json:"author"`
	AuthorFullname string `json:"author_fullname"`
	Body           string `json:"body"`
	ParentID       string `json:"parent_id"`
}

type moreData struct {
	Children []string `json:"children"`
	ParentID string   `json:"parent_id"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// authenticate fetches an app-only token unless the current one is still valid.
func (c *RedditClient) authenticate(ctx context.Context) (string, error) {
	if c.token != "" && time.Now().Before(c.expiresAt) {
		return c.token, nil
	}

	var tok tokenResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBasicAuth(c.clientID, c.clientSecret).
		SetFormData(map[string]string{"grant_type": "client_credentials"}).
		SetResult(&tok).
		Post(c.authURL)
	if err != nil {
		return "", fmt.Errorf("reddit auth: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("reddit auth: HTTP %d", resp.StatusCode())
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("reddit auth: empty access token")
	}

	c.token = tok.AccessToken
	// Refresh a minute early.
	c.expiresAt = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - time.Minute)
	return c.token, nil
}

func (c *RedditClient) get(ctx context.Context, path string, params map[string]string, result any) error {
	token, err := c.authenticate(ctx)
	if err != nil {
		return err
	}

	params["raw_json"] = "1"
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(params).
		SetResult(result).
		Get(path)
	if err != nil {
		return fmt.Errorf("reddit GET %s: %w", path, err)
	}
	if resp.IsError() {
		return fmt.Errorf("reddit GET %s: HTTP %d", path, resp.StatusCode())
	}
	return nil
}

// Search returns the subreddit's link submissions matching query within tf,
// newest first, following pagination.
func (c *RedditClient) Search(ctx context.Context, query string, tf Timeframe) ([]Submission, error) {
	var subs []Submission
	after := ""

	for page := 0; page < maxSearchPages; page++ {
		params := map[string]string{
			"q":           query,
			"restrict_sr": "on",
			"sort":        "new",
			"t":           string(tf),
			"type":        "link",
			"limit":       fmt.Sprintf("%d", pageSize),
		}
		if after != "" {
			params["after"] = after
		}

		var l listing
		if err := c.get(ctx, "/r/"+c.subreddit+"/search", params, &l); err != nil {
			return nil, err
		}

		for _, t := range l.Data.Children {
			if t.Kind != "t3" {
				continue
			}
			var d linkData
			if err := json.Unmarshal(t.Data, &d); err != nil {
				return nil, fmt.Errorf("decoding submission: %w", err)
			}
			subs = append(subs, d.submission())
		}

		after = l.Data.After
		if after == "" || len(l.Data.Children) == 0 {
			break
		}
	}

	log.Printf("Fetched %d submissions from r/%s for query: %s", len(subs), c.subreddit, query)
	return subs, nil
}

// CanListComments is true for the API.
func (c *RedditClient) CanListComments() bool {
	return true
}

// Comments returns the direct replies to sub, expanding "load more" stubs.
func (c *RedditClient) Comments(ctx context.Context, sub Submission) ([]Comment, error) {
	linkName := "t3_" + sub.ID

	var listings []listing
	params := map[string]string{
		"depth": "1",
		"limit": fmt.Sprintf("%d", commentLimit),
		"sort":  "old",
	}
	if err := c.get(ctx, "/r/"+c.subreddit+"/comments/"+sub.ID, params, &listings); err != nil {
		return nil, err
	}
	if len(listings) < 2 {
		return nil, fmt.Errorf("comments for %s: unexpected response shape", sub.ID)
	}

	comments, more, err := directReplies(listings[1].Data.Children, linkName)
	if err != nil {
		return nil, err
	}

	for round := 0; len(more) > 0 && round < maxMoreRounds; round++ {
		batch := more
		if len(batch) > moreBatchSize {
			batch = batch[:moreBatchSize]
		}
		more = more[len(batch):]

		var res struct {
			JSON struct {
				Data struct {
					Things []thing `json:"things"`
				} `json:"data"`
			} `json:"json"`
		}
		params := map[string]string{
			"api_type": "json",
			"link_id":  linkName,
			"children": strings.Join(batch, ","),
		}
		if err := c.get(ctx, "/api/morechildren", params, &res); err != nil {
			return nil, err
		}

		extra, extraMore, err := directReplies(res.JSON.Data.Things, linkName)
		if err != nil {
			return nil, err
		}
		comments = append(comments, extra...)
		more = append(more, extraMore...)
	}
	if len(more) > 0 {
		log.Printf("Gave up expanding %d comment stubs on %s", len(more), sub.ID)
	}

	return comments, nil
}

// directReplies keeps comments whose parent is the submission itself and
// returns the ids behind any "more" stubs hanging off it.
func directReplies(things []thing, linkName string) ([]Comment, []string, error) {
	var comments []Comment
	var more []string
	for _, t := range things {
		switch t.Kind {
		case "t1":
			var d commentData
			if err := json.Unmarshal(t.Data, &d); err != nil {
				return nil, nil, fmt.Errorf("decoding comment: %w", err)
			}
			if d.ParentID != linkName {
				continue
			}
			comments = append(comments, Comment{
				ID:       d.ID,
				Author:   d.Author,
				AuthorID: d.AuthorFullname,
				Body:     d.Body,
			})
		case "more":
			var d moreData
			if err := json.Unmarshal(t.Data, &d); err != nil {
				return nil, nil, fmt.Errorf("decoding more: %w", err)
			}
			if d.ParentID != linkName {
				continue
			}
			more = append(more, d.Children...)
		}
	}
	return comments, more, nil
}

func (d linkData) submission() Submission {
	permalink := d.Permalink
	if strings.HasPrefix(permalink, "/") {
		permalink = webBaseURL + permalink
	}

	return Submission{
		ID:          d.ID,
		Title:       d.Title,
		Flair:       d.LinkFlairText,
		Author:      d.Author,
		AuthorID:    d.AuthorFullname,
		Created:     time.Unix(int64(d.CreatedUTC), 0).UTC(),
		NumComments: d.NumComments,
		Body:        d.SelftextHTML,
		Permalink:   permalink,
	}
}
