package comment

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Comment struct {
	id        uuid.UUID
	message   string
	createdAt time.Time
	author    string
}

func NewComment(id uuid.UUID, message string, createdAt time.Time, author string) (Comment, error) {
	if id == uuid.Nil {
		return Comment{}, errors.New("comment id can't be nil")
	}

	if author == "" {
		return Comment{}, errors.New("comment author can't be an empty string")
	}

	return Comment{id: id, message: message, createdAt: createdAt, author: author}, nil
}

func (c Comment) ID() uuid.UUID {
	return c.id
}

func (c Comment) Message() string {
	return c.message
}

func (c Comment) CreatedAt() time.Time {
	return c.createdAt
}

func (c Comment) Author() string {
	return c.author
}
