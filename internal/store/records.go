package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/webstream-tools/pwi-gateway/pkg/models"
)

// ReadCategory returns the cached value of one category from a student's
// record, or nil if never scraped.
func ReadCategory(ctx context.Context, s Store, identifier, category string) (*models.CategoryValue, error) {
	raw, ok, err := s.Get(ctx, CollStudentDetails, identifier)
	if err != nil || !ok {
		return nil, err
	}
	doc := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	field, ok := doc[category]
	if !ok {
		return nil, nil
	}
	var val models.CategoryValue
	if err := json.Unmarshal(field, &val); err != nil {
		return nil, err
	}
	return &val, nil
}

// WriteCategory overwrites one category field on the student record with a
// refreshed timestamp and returns the stored value.
func WriteCategory(ctx context.Context, s Store, identifier, category string, data json.RawMessage) (*models.CategoryValue, error) {
	val := models.CategoryValue{Data: data, LastUpdated: time.Now().UTC()}
	encoded, err := json.Marshal(val)
	if err != nil {
		return nil, err
	}
	err = s.Merge(ctx, CollStudentDetails, identifier, map[string]json.RawMessage{
		category: encoded,
	})
	if err != nil {
		return nil, err
	}
	return &val, nil
}

// AppendCategory unions a new entry into an array-valued history category
// (grievances, leave applications). Existing entries are kept as-is.
func AppendCategory(ctx context.Context, s Store, identifier, category string, entry json.RawMessage) (*models.CategoryValue, error) {
	var history []json.RawMessage
	if prev, err := ReadCategory(ctx, s, identifier, category); err != nil {
		return nil, err
	} else if prev != nil && len(prev.Data) > 0 {
		if err := json.Unmarshal(prev.Data, &history); err != nil {
			return nil, err
		}
	}
	history = append(history, entry)
	data, err := json.Marshal(history)
	if err != nil {
		return nil, err
	}
	return WriteCategory(ctx, s, identifier, category, data)
}
