package stremio

import (
	"encoding/json"
	"fmt"
)

// Manifest represents a Stremio addon manifest. Raw holds the payload as
// received so fields not decoded here are not lost.
type Manifest struct {
	ID          string          `json:"id"`
	Version     string          `json:"version"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Types       []string        `json:"types"`
	IDPrefixes  []string        `json:"idPrefixes"`
	Catalogs    []CatalogItem   `json:"catalogs"`
	Resources   json.RawMessage `json:"resources"`
	Raw         json.RawMessage `json:"-"`
}

// CatalogItem represents a Stremio manifest catalog item
type CatalogItem struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

func (m *Manifest) UnmarshalJSON(data []byte) error {
	type plain Manifest
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*m = Manifest(p)
	m.Raw = append(json.RawMessage(nil), data...)
	return nil
}

func (m Manifest) MarshalJSON() ([]byte, error) {
	if len(m.Raw) > 0 {
		return m.Raw, nil
	}
	type plain Manifest
	return json.Marshal(plain(m))
}

type Flags struct {
	Official  bool `json:"official"`
	Protected bool `json:"protected"`
}

// Descriptor is one entry of a user's addon collection.
type Descriptor struct {
	TransportURL  string   `json:"transportUrl"`
	TransportName string   `json:"transportName"`
	Manifest      Manifest `json:"manifest"`
	Flags         Flags    `json:"flags"`
}

// Collection is the result of an AddonCollectionGet call.
type Collection struct {
	Addons       []Descriptor `json:"addons"`
	LastModified string       `json:"lastModified,omitempty"`
}

type User struct {
	ID    string `json:"_id"`
	Email string `json:"email"`
}

// Auth is the persisted session returned by a successful login.
type Auth struct {
	Key  string `json:"key"`
	User User   `json:"user"`
}

type loginRequest struct {
	Type     string `json:"type"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Facebook bool   `json:"facebook"`
}

type loginResult struct {
	AuthKey string `json:"authKey"`
	User    User   `json:"user"`
}

type collectionRequest struct {
	Type    string `json:"type"`
	AuthKey string `json:"authKey"`
	Update  bool   `json:"update"`
}

type envelope struct {
	Result json.RawMessage `json:"result"`
	Error  *APIError       `json:"error"`
}

// APIError is an error reported by the API in its response envelope.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("stremio api: %s (code %d)", e.Message, e.Code)
	}
	return "stremio api: " + e.Message
}
