package api

import (
	"github.com/ssargent/datumkit/pkg/codec"
	"github.com/ssargent/datumkit/pkg/normalize"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Bind   string
	Port   int
	APIKey string // empty disables authentication
}

// StoreInfo describes one store the browser serves
type StoreInfo struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// RecordView is the JSON form of one stored record. Values that do not
// decode as records are returned raw with the decode error.
type RecordView struct {
	Key         string    `json:"key"`
	Channels    int32     `json:"channels"`
	Height      int32     `json:"height"`
	Width       int32     `json:"width"`
	Label       int32     `json:"label"`
	Encoded     bool      `json:"encoded,omitempty"`
	DataSize    int       `json:"data_size"`
	Data        []byte    `json:"data,omitempty"`
	FloatData   []float32 `json:"float_data,omitempty"`
	Raw         []byte    `json:"raw,omitempty"`
	DecodeError string    `json:"decode_error,omitempty"`
}

// RecordPage is one page of a record listing. Next is the key to pass as
// start for the following page, empty on the last page.
type RecordPage struct {
	Store   string       `json:"store"`
	Records []RecordView `json:"records"`
	Next    string       `json:"next,omitempty"`
}

// StoreStats summarizes a full scan of a store
type StoreStats struct {
	Store      string           `json:"store"`
	Count      int              `json:"count"`
	FirstKey   string           `json:"first_key,omitempty"`
	LastKey    string           `json:"last_key,omitempty"`
	Schema     *codec.Schema    `json:"schema,omitempty"`
	Mismatches int              `json:"schema_mismatches"`
	Fields     *normalize.Stats `json:"fields,omitempty"`
	FieldError string           `json:"field_error,omitempty"`
}

func newRecordView(key, value []byte, withData bool) RecordView {
	view := RecordView{Key: string(key)}
	r, err := codec.Unmarshal(value)
	if err != nil {
		view.Raw = append([]byte(nil), value...)
		view.DecodeError = err.Error()
		return view
	}
	view.Channels = r.Channels
	view.Height = r.Height
	view.Width = r.Width
	view.Label = r.Label
	view.Encoded = r.Encoded
	view.DataSize = len(r.Data)
	view.FloatData = r.FloatData
	if withData {
		view.Data = r.Data
	}
	return view
}
