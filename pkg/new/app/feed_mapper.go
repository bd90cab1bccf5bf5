package app

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"
	"github.com/piraces/feedloader/pkg/converter"
	"github.com/piraces/feedloader/pkg/new/domain/feed"
	"github.com/pkg/errors"
)

// FeedMapper decodes the body of a successful feed response.
type FeedMapper interface {
	Map(body []byte) ([]feed.Item, error)
}

const (
	FeedFormatJSON = "json"
	FeedFormatRSS  = "rss"
)

func NewFeedMapper(format string) (FeedMapper, error) {
	switch format {
	case FeedFormatJSON, "":
		return NewJSONFeedMapper(), nil
	case FeedFormatRSS:
		return NewRSSFeedMapper(), nil
	default:
		return nil, errors.Errorf("unknown feed format '%s'", format)
	}
}

type JSONFeedMapper struct {
}

func NewJSONFeedMapper() *JSONFeedMapper {
	return &JSONFeedMapper{}
}

type feedPayload struct {
	Items *[]feedItemPayload `json:"items"`
}

type feedItemPayload struct {
	ID          *uuid.UUID `json:"id"`
	Description *string    `json:"description"`
	Location    *string    `json:"location"`
	Image       *string    `json:"image"`
}

func (m *JSONFeedMapper) Map(body []byte) ([]feed.Item, error) {
	var payload feedPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.Wrap(err, "error decoding feed")
	}

	if payload.Items == nil {
		return nil, errors.New("missing items")
	}

	items := make([]feed.Item, 0, len(*payload.Items))
	for i, p := range *payload.Items {
		if p.ID == nil || p.Image == nil {
			return nil, errors.Errorf("item %d is missing a required field", i)
		}

		image, err := feed.NewImageURL(*p.Image)
		if err != nil {
			return nil, errors.Wrapf(err, "error creating image url of item %d", i)
		}

		item, err := feed.NewItem(*p.ID, stringOrEmpty(p.Description), stringOrEmpty(p.Location), image)
		if err != nil {
			return nil, errors.Wrapf(err, "error creating item %d", i)
		}

		items = append(items, item)
	}

	return items, nil
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// RSSFeedMapper reads RSS, Atom and JSON Feed documents. Item descriptions are
// converted from HTML to text and items without an image are skipped.
type RSSFeedMapper struct {
	parser *gofeed.Parser
}

func NewRSSFeedMapper() *RSSFeedMapper {
	return &RSSFeedMapper{
		parser: gofeed.NewParser(),
	}
}

func (m *RSSFeedMapper) Map(body []byte) ([]feed.Item, error) {
	parsed, err := m.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "error parsing feed")
	}

	items := make([]feed.Item, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		image, ok := m.imageOf(it)
		if !ok {
			continue
		}

		item, err := feed.NewItem(m.idOf(it), m.descriptionOf(it), m.locationOf(it), image)
		if err != nil {
			return nil, errors.Wrap(err, "error creating item")
		}

		items = append(items, item)
	}

	return items, nil
}

func (m *RSSFeedMapper) idOf(item *gofeed.Item) uuid.UUID {
	key := item.GUID
	if key == "" {
		key = item.Link
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key))
}

func (m *RSSFeedMapper) descriptionOf(item *gofeed.Item) string {
	description := item.Description
	if description == "" {
		description = item.Title
	}
	return converter.HTMLToText(description)
}

func (m *RSSFeedMapper) locationOf(item *gofeed.Item) string {
	if len(item.Categories) > 0 {
		return item.Categories[0]
	}
	return ""
}

func (m *RSSFeedMapper) imageOf(item *gofeed.Item) (feed.ImageURL, bool) {
	candidates := make([]string, 0, len(item.Enclosures)+1)
	if item.Image != nil {
		candidates = append(candidates, item.Image.URL)
	}
	for _, enclosure := range item.Enclosures {
		if strings.HasPrefix(enclosure.Type, "image/") {
			candidates = append(candidates, enclosure.URL)
		}
	}

	for _, candidate := range candidates {
		if image, err := feed.NewImageURL(candidate); err == nil {
			return image, true
		}
	}

	return feed.ImageURL{}, false
}
