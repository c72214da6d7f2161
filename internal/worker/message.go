package worker

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Payload is the normalized form of a queue message body. Messages arrive
// either as our own enqueue payload ({document_id, name, key, ...}) or as an
// S3 event notification, optionally wrapped once in an SNS-style
// {"Message": "<json>"} envelope.
type Payload struct {
	DocumentID       string            `json:"document_id"`
	Name             string            `json:"name"`
	Description      string            `json:"description"`
	DocumentType     string            `json:"document_type"`
	OriginalFilename string            `json:"original_filename"`
	Bucket           string            `json:"bucket"`
	Key              string            `json:"key"`
	Metadata         map[string]string `json:"metadata"`
}

type s3Event struct {
	Records []struct {
		S3 struct {
			Bucket struct {
				Name string `json:"name"`
			} `json:"bucket"`
			Object struct {
				Key string `json:"key"`
			} `json:"object"`
		} `json:"s3"`
	} `json:"Records"`
}

type snsEnvelope struct {
	Message string `json:"Message"`
}

// ParsePayload decodes a message body, transparently unwrapping one level of
// notification envelope.
func ParsePayload(body string) (*Payload, error) {
	var env snsEnvelope
	if err := json.Unmarshal([]byte(body), &env); err == nil && env.Message != "" {
		body = env.Message
	}

	var p Payload
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return nil, fmt.Errorf("parse message body: %w", err)
	}

	if p.Key == "" {
		var ev s3Event
		if err := json.Unmarshal([]byte(body), &ev); err == nil && len(ev.Records) > 0 {
			rec := ev.Records[0].S3
			p.Bucket = rec.Bucket.Name
			// S3 event object keys arrive URL-encoded.
			if key, err := url.QueryUnescape(rec.Object.Key); err == nil {
				p.Key = key
			} else {
				p.Key = rec.Object.Key
			}
		}
	}
	return &p, nil
}

// Resolvable reports whether the payload identifies a document, either
// directly or through a storage location.
func (p *Payload) Resolvable() bool {
	return p.DocumentID != "" || p.Key != ""
}

// DisplayName picks a display name for an auto-created document: the payload
// name if present, otherwise the last path segment of the storage key.
func (p *Payload) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	key := strings.TrimSuffix(p.Key, "/")
	if i := strings.LastIndexByte(key, '/'); i >= 0 {
		key = key[i+1:]
	}
	return key
}
