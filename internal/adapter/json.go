package adapter

import "encoding/json"

// JSON defines an interface for JSON encoding to enable mocking
//
//go:generate mockgen -source=json.go -destination=../mocks/json.go -package=mocks -mock_names=JSON=MockJSON
type JSON interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// RealJSON implements JSON using the standard library encoder
type RealJSON struct{}

// NewJSON creates a new real JSON adapter
func NewJSON() JSON {
	return &RealJSON{}
}

func (RealJSON) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (RealJSON) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
