package model

import "encoding/json"

// EncodeDecimalArray serializes a slice of arbitrary-precision integers
// (already decimal-stringified by the caller) as a JSON array for storage
// in a single TEXT column, used by ERC1155TransferBatch's ids[]/values[].
func EncodeDecimalArray(values []string) string {
	b, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// DecodeDecimalArray is the inverse of EncodeDecimalArray.
func DecodeDecimalArray(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}
