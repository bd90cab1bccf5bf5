package app

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/piraces/feedloader/pkg/loader"
	"github.com/piraces/feedloader/pkg/new/domain/comment"
	"github.com/pkg/errors"
)

// RemoteCommentLoader loads the comments of one image. Comments are never
// cached.
type RemoteCommentLoader struct {
	url      string
	client   HTTPClient
	lifetime loader.Lifetime
}

func NewRemoteCommentLoader(url string, client HTTPClient) *RemoteCommentLoader {
	return &RemoteCommentLoader{url: url, client: client}
}

func (l *RemoteCommentLoader) Load(completion func(loader.Result[[]comment.Comment])) loader.Task {
	return l.client.Get(l.url, loader.Bind(&l.lifetime, func(result loader.Result[HTTPResponse]) {
		completion(mapResponse(result, decodeComments))
	}))
}

func (l *RemoteCommentLoader) Close() error {
	l.lifetime.Release()
	return nil
}

type commentsPayload struct {
	Items *[]commentPayload `json:"items"`
}

type commentPayload struct {
	ID        *uuid.UUID `json:"id"`
	Message   *string    `json:"message"`
	CreatedAt *string    `json:"created_at"`
	Author    *struct {
		Username *string `json:"username"`
	} `json:"author"`
}

func decodeComments(body []byte) ([]comment.Comment, error) {
	var payload commentsPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.Wrap(err, "error decoding comments")
	}

	if payload.Items == nil {
		return nil, errors.New("missing items")
	}

	comments := make([]comment.Comment, 0, len(*payload.Items))
	for i, item := range *payload.Items {
		if item.ID == nil || item.Message == nil || item.CreatedAt == nil || item.Author == nil || item.Author.Username == nil {
			return nil, errors.Errorf("comment %d is missing a required field", i)
		}

		createdAt, err := parseCommentDate(*item.CreatedAt)
		if err != nil {
			return nil, errors.Wrapf(err, "error parsing date of comment %d", i)
		}

		c, err := comment.NewComment(*item.ID, *item.Message, createdAt, *item.Author.Username)
		if err != nil {
			return nil, errors.Wrapf(err, "error creating comment %d", i)
		}

		comments = append(comments, c)
	}

	return comments, nil
}

// Comment dates are ISO 8601, with or without a colon in the zone offset.
var commentDateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05Z0700"}

func parseCommentDate(s string) (time.Time, error) {
	var err error
	for _, layout := range commentDateLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}
