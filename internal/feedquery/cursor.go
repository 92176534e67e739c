package feedquery

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// Cursor is the decoded sort key of the last row returned by a page: the
// three columns the feed orders by, in order. Encoding it opaque keeps the
// ordering contract private to this package instead of leaking it into the
// URL.
type Cursor struct {
	ImportanceScore int64     `json:"importanceScore"`
	LastSignalAt    time.Time `json:"lastSignalAt"`
	ID              string    `json:"id"`
}

// Encode renders a cursor as URL-safe base64 of its canonical JSON form.
func (c Cursor) Encode() string {
	raw, err := json.Marshal(c)
	if err != nil {
		// Cursor has no unmarshalable field; this cannot happen.
		panic(fmt.Sprintf("encode cursor: %v", err))
	}
	return base64.URLEncoding.EncodeToString(raw)
}

// DecodeCursor parses an opaque token produced by Cursor.Encode. A malformed
// or tampered token is reported as an error rather than silently ignored.
func DecodeCursor(token string) (Cursor, error) {
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("decode cursor: %w", err)
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return Cursor{}, fmt.Errorf("unmarshal cursor: %w", err)
	}
	return c, nil
}
