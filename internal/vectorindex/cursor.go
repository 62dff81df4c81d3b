package vectorindex

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/cisearch/ingest/internal/fault"
)

// cursor marks a position in a ranked result stream. Rank bounds how
// far the next query must search; Score and ID give the exact resume
// point so concurrent writes cannot make the page skip or duplicate a
// document that was already served.
type cursor struct {
	Rank  int     `json:"r"`
	Score float32 `json:"s"`
	ID    string  `json:"i"`
}

func encodeCursor(c cursor) string {
	data, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(data)
}

func decodeCursor(s string) (cursor, error) {
	var c cursor
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return c, fault.New(fault.Invalid, "indexing", fmt.Errorf("%w: %v", ErrBadCursor, err))
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, fault.New(fault.Invalid, "indexing", fmt.Errorf("%w: %v", ErrBadCursor, err))
	}
	if c.Rank < 0 || c.ID == "" {
		return c, fault.New(fault.Invalid, "indexing", ErrBadCursor)
	}
	return c, nil
}

// after reports whether the hit at (score, id) sorts strictly after the
// cursor position. Scores descend; ties break on ascending id.
func (c cursor) after(score float32, id string) bool {
	if score < c.Score {
		return true
	}
	if score > c.Score {
		return false
	}
	return id > c.ID
}
