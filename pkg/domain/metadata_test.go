package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetaValue_RoundTrip(t *testing.T) {
	meta := Metadata{
		"region":                 String("eu-west-1"),
		"token_estimate":         Number(1420),
		"contains_personal_data": Bool(true),
		"batch_id":               Null(),
	}

	data, err := json.Marshal(meta)
	require.NoError(t, err)

	var decoded Metadata
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, meta, decoded)
}

func TestMetaValue_RejectsNestedValues(t *testing.T) {
	cases := map[string]string{
		"object": `{"meta": {"inner": 1}}`,
		"array":  `{"meta": [1, 2, 3]}`,
	}

	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			var decoded Metadata
			err := json.Unmarshal([]byte(payload), &decoded)
			assert.Error(t, err)
		})
	}
}

func TestMetadata_Flag(t *testing.T) {
	meta := Metadata{
		"bool_true":    Bool(true),
		"bool_false":   Bool(false),
		"num_set":      Number(1),
		"num_zero":     Number(0),
		"str_set":      String("yes"),
		"str_empty":    String(""),
		"null_present": Null(),
	}

	assert.True(t, meta.Flag("bool_true"))
	assert.False(t, meta.Flag("bool_false"))
	assert.True(t, meta.Flag("num_set"))
	assert.False(t, meta.Flag("num_zero"))
	assert.True(t, meta.Flag("str_set"))
	assert.False(t, meta.Flag("str_empty"))
	assert.False(t, meta.Flag("null_present"))
	assert.False(t, meta.Flag("absent"))
}

func TestNewAuditEntry(t *testing.T) {
	entry := NewAuditEntry("cust-1", "key-1", "gpt-4", "completion", Metadata{"x": Number(1)}, 70, false, "contains_personal_data")

	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, "cust-1", entry.CustomerID)
	assert.Equal(t, "key-1", entry.APIKeyID)
	assert.False(t, entry.Allowed)
	assert.Equal(t, 70, entry.RiskScore)
	assert.False(t, entry.CreatedAt.IsZero())

	other := NewAuditEntry("cust-1", "key-1", "gpt-4", "completion", nil, 0, true, "ok")
	assert.NotEqual(t, entry.ID, other.ID)
}
