package tools

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// DefaultNewsType is used when no category is given
const DefaultNewsType = "top"

// NewsTypes are the headline categories the upstream API serves
var NewsTypes = []string{"top", "shehui", "guonei", "guoji", "yule", "tiyu", "junshi", "keji", "caijing", "shishang"}

// NewsItem is a single headline
type NewsItem struct {
	UniqueKey       string `json:"uniquekey"`
	Title           string `json:"title"`
	Date            string `json:"date"`
	Category        string `json:"category"`
	AuthorName      string `json:"author_name"`
	URL             string `json:"url"`
	ThumbnailPicS   string `json:"thumbnail_pic_s,omitempty"`
	ThumbnailPicS02 string `json:"thumbnail_pic_s02,omitempty"`
	ThumbnailPicS03 string `json:"thumbnail_pic_s03,omitempty"`
	IsContent       string `json:"is_content,omitempty"`
}

type newsResult struct {
	Stat string     `json:"stat"`
	Data []NewsItem `json:"data"`
}

// NewsClient fetches headlines
type NewsClient struct {
	c *client
}

// NewNewsClient creates a headlines client. It fails with ErrMissingAPIKey
// when no key is configured.
func NewNewsClient(cfg Config) (*NewsClient, error) {
	c, err := newClient("news", DefaultNewsURL, cfg)
	if err != nil {
		return nil, err
	}
	return &NewsClient{c: c}, nil
}

// Headlines returns the current headlines for a category
func (n *NewsClient) Headlines(ctx context.Context, newsType string) ([]NewsItem, error) {
	if newsType == "" {
		newsType = DefaultNewsType
	}
	if !slices.Contains(NewsTypes, newsType) {
		return nil, fmt.Errorf("%w: news type %q, valid types: %s", ErrInvalidChoice, newsType, strings.Join(NewsTypes, ", "))
	}

	var res newsResult
	if err := n.c.get(ctx, url.Values{"type": {newsType}}, &res); err != nil {
		return nil, err
	}
	if res.Data == nil {
		return nil, ErrUnexpectedFormat
	}
	return res.Data, nil
}
