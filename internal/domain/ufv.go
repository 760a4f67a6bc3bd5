package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// UFVRecord is one entry of the BCB UFV series.
// The feed has published the value both as "val_ufv" and as "valor",
// sometimes quoted and sometimes as a bare number.
type UFVRecord struct {
	Date  string `json:"fecha,omitempty"`
	Value string `json:"valor"`
}

func (r *UFVRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if v, ok := raw["fecha"]; ok {
		r.Date = rawText(v)
	}
	for _, key := range []string{"val_ufv", "valor"} {
		if v, ok := raw[key]; ok {
			r.Value = rawText(v)
			return nil
		}
	}
	r.Value = ""
	return nil
}

// rawText returns a JSON string without quotes, or a bare literal as is.
func rawText(v json.RawMessage) string {
	v = bytes.TrimSpace(v)
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return strings.TrimSpace(s)
	}
	if bytes.Equal(v, []byte("null")) {
		return ""
	}
	return string(v)
}

// ParseValue parses the record value as a strictly positive number.
func (r UFVRecord) ParseValue() (float64, error) {
	if r.Value == "" {
		return 0, fmt.Errorf("record has no UFV value")
	}
	f, err := strconv.ParseFloat(r.Value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid UFV value %q: %w", r.Value, err)
	}
	if !positive(f) {
		return 0, fmt.Errorf("UFV value %q is not positive", r.Value)
	}
	return f, nil
}

// IndexPairFromRecords picks the first record as index-at-start and the last
// as index-at-end, in array order. Records in between are ignored.
func IndexPairFromRecords(records []UFVRecord) (IndexPair, error) {
	if len(records) < 2 {
		return IndexPair{}, &ErrIndexUnavailable{
			Reason: fmt.Sprintf("expected at least 2 UFV records, got %d", len(records)),
		}
	}

	start, err := records[0].ParseValue()
	if err != nil {
		return IndexPair{}, &ErrIndexUnavailable{Reason: "index-at-start", Err: err}
	}
	end, err := records[len(records)-1].ParseValue()
	if err != nil {
		return IndexPair{}, &ErrIndexUnavailable{Reason: "index-at-end", Err: err}
	}
	return NewIndexPair(start, end)
}
