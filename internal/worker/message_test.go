package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePayloadFlat(t *testing.T) {
	p, err := ParsePayload(`{
		"document_id": "doc-1",
		"name": "Handbook",
		"key": "uploads/handbook.pdf",
		"document_type": "policy",
		"metadata": {"source": "api"}
	}`)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", p.DocumentID)
	assert.Equal(t, "Handbook", p.Name)
	assert.Equal(t, "uploads/handbook.pdf", p.Key)
	assert.Equal(t, "policy", p.DocumentType)
	assert.Equal(t, "api", p.Metadata["source"])
	assert.True(t, p.Resolvable())
}

func TestParsePayloadS3Event(t *testing.T) {
	p, err := ParsePayload(`{
		"Records": [
			{"s3": {"bucket": {"name": "docs"}, "object": {"key": "team/annual+report.pdf"}}}
		]
	}`)
	require.NoError(t, err)
	assert.Equal(t, "docs", p.Bucket)
	assert.Equal(t, "team/annual report.pdf", p.Key)
	assert.True(t, p.Resolvable())
	assert.Equal(t, "annual report.pdf", p.DisplayName())
}

func TestParsePayloadUnwrapsEnvelope(t *testing.T) {
	p, err := ParsePayload(`{"Message": "{\"document_id\": \"doc-7\"}"}`)
	require.NoError(t, err)
	assert.Equal(t, "doc-7", p.DocumentID)
}

func TestParsePayloadUnresolvable(t *testing.T) {
	p, err := ParsePayload(`{"note": "nothing useful"}`)
	require.NoError(t, err)
	assert.False(t, p.Resolvable())

	_, err = ParsePayload(`not json`)
	assert.Error(t, err)
}

func TestDisplayNamePrefersPayloadName(t *testing.T) {
	p := &Payload{Name: "Quarterly Report", Key: "a/b/q3.pdf"}
	assert.Equal(t, "Quarterly Report", p.DisplayName())

	p = &Payload{Key: "a/b/q3.pdf"}
	assert.Equal(t, "q3.pdf", p.DisplayName())
}
