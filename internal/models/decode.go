package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/lexisync/internal/common"
)

var (
	cardRequired      = []string{"id", "word", "meaning", "due_date", "created_at", "updated_at"}
	reviewLogRequired = []string{"id", "card_id", "review_date", "rating"}
	userRequired      = []string{"id", "username", "created_at", "updated_at"}
	refRequired       = []string{"id"}
)

// DecodeCard decodes an add/update payload of the cards table.
func DecodeCard(raw json.RawMessage) (Card, error) {
	var c Card
	if err := decodeStrict(raw, cardRequired, &c); err != nil {
		return Card{}, err
	}
	return c, nil
}

// DecodeReviewLog decodes an add/update payload of the review_logs table.
// created_at and updated_at default to review_date.
func DecodeReviewLog(raw json.RawMessage) (ReviewLog, error) {
	var r ReviewLog
	if err := decodeStrict(raw, reviewLogRequired, &r); err != nil {
		return ReviewLog{}, err
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = r.ReviewDate
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = r.ReviewDate
	}
	return r, nil
}

// DecodeUser decodes an add/update payload of the users table.
func DecodeUser(raw json.RawMessage) (User, error) {
	var u User
	if err := decodeStrict(raw, userRequired, &u); err != nil {
		return User{}, err
	}
	return u, nil
}

// DecodeRef decodes a delete payload. Only id is required.
func DecodeRef(raw json.RawMessage) (Ref, error) {
	var r Ref
	if err := decodeStrict(raw, refRequired, &r); err != nil {
		return Ref{}, err
	}
	return r, nil
}

// IsDeletedRow reports whether a diff row is a tombstone marker.
func IsDeletedRow(raw json.RawMessage) bool {
	var marker struct {
		IsDeleted bool `json:"is_deleted"`
	}
	if err := json.Unmarshal(raw, &marker); err != nil {
		return false
	}
	return marker.IsDeleted
}

// decodeStrict checks that every required key is present and not null, then
// unmarshals raw into dst. Unknown keys are ignored.
func decodeStrict(raw json.RawMessage, required []string, dst any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return fmt.Errorf("%w: payload must be a JSON object", common.ErrMalformedPayload)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("%w: %v", common.ErrMalformedPayload, err)
	}

	var missing []string
	for _, key := range required {
		v, ok := fields[key]
		if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", common.ErrMalformedPayload, strings.Join(missing, ", "))
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", common.ErrMalformedPayload, err)
	}

	if id, ok := fields["id"]; ok && bytes.Equal(bytes.TrimSpace(id), []byte(`""`)) {
		return fmt.Errorf("%w: empty id", common.ErrMalformedPayload)
	}
	return nil
}
