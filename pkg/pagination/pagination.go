package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

// Params are the raw limit and opaque cursor from a list request.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor is the (created_at, id) keyset position of the last row handed out.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// Direction picks the keyset ordering.
type Direction int

const (
	NewestFirst Direction = iota
	OldestFirst
)

var errMalformed = errors.New("malformed cursor")

func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// EncodeCursor renders c as a URL-safe token.
func EncodeCursor(c Cursor) string {
	raw := c.CreatedAt.UTC().Format(time.RFC3339Nano) + "|" + c.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// ParseCursor returns nil for an empty token.
func ParseCursor(token string) (*Cursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}
	at, id, ok := strings.Cut(string(raw), "|")
	if !ok {
		return nil, errMalformed
	}
	createdAt, err := time.Parse(time.RFC3339Nano, at)
	if err != nil {
		return nil, fmt.Errorf("%w: timestamp: %v", errMalformed, err)
	}
	parsedID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: id: %v", errMalformed, err)
	}
	return &Cursor{CreatedAt: createdAt, ID: parsedID}, nil
}

// Keyset runs query as one page ordered by (created_at, id) starting after
// the cursor. One extra row is fetched to tell whether another page exists;
// its key becomes the next cursor.
func Keyset[T any](query *gorm.DB, dir Direction, limit int, after *Cursor, key func(T) Cursor) ([]T, *Cursor, error) {
	cmp, order := "<", "created_at DESC, id DESC"
	if dir == OldestFirst {
		cmp, order = ">", "created_at ASC, id ASC"
	}
	if after != nil {
		query = query.Where("(created_at, id) "+cmp+" (?, ?)", after.CreatedAt, after.ID)
	}
	var rows []T
	if err := query.Order(order).Limit(NormalizeLimit(limit) + 1).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := Split(rows, limit, key)
	return page, next, nil
}

// Split trims an over-fetched result to the page size and keys the next page
// on the last row kept.
func Split[T any](rows []T, limit int, key func(T) Cursor) ([]T, *Cursor) {
	n := NormalizeLimit(limit)
	if len(rows) <= n {
		return rows, nil
	}
	next := key(rows[n-1])
	return rows[:n], &next
}
