package feed

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/piraces/feedloader/pkg/helpers"
)

// Item is a single entry of the feed. It is immutable once created.
type Item struct {
	id          uuid.UUID
	description string
	location    string
	image       ImageURL
}

func NewItem(id uuid.UUID, description, location string, image ImageURL) (Item, error) {
	if id == uuid.Nil {
		return Item{}, errors.New("item id can't be nil")
	}

	if image.IsZero() {
		return Item{}, errors.New("item image url can't be empty")
	}

	return Item{id: id, description: description, location: location, image: image}, nil
}

func MustNewItem(id uuid.UUID, description, location string, image ImageURL) Item {
	item, err := NewItem(id, description, location, image)
	if err != nil {
		panic(err)
	}
	return item
}

func (i Item) ID() uuid.UUID {
	return i.id
}

func (i Item) Description() string {
	return i.description
}

func (i Item) Location() string {
	return i.location
}

func (i Item) Image() ImageURL {
	return i.image
}

// CachedFeed is what a feed store holds: the items and when they were saved.
type CachedFeed struct {
	Items     []Item
	Timestamp time.Time
}

// ImageURL is an absolute http(s) URL, also used as the image data key.
type ImageURL struct {
	s string
}

func NewImageURL(s string) (ImageURL, error) {
	if s == "" {
		return ImageURL{}, errors.New("image url can't be an empty string")
	}

	if !helpers.IsValidHttpUrl(s) {
		return ImageURL{}, errors.New("invalid URL provided (must be in absolute format and with http or https scheme)")
	}

	return ImageURL{s: s}, nil
}

func MustNewImageURL(s string) ImageURL {
	u, err := NewImageURL(s)
	if err != nil {
		panic(err)
	}
	return u
}

func (u ImageURL) String() string {
	return u.s
}

func (u ImageURL) IsZero() bool {
	return u.s == ""
}
