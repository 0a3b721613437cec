package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAnalysisCandidates_Valid(t *testing.T) {
	body := []byte(`[
		{
			"intent": "actionable",
			"endpoint": {
				"base": "https://backend.example.com",
				"path": "/cv/generate",
				"verb": "POST",
				"endpoint_id": "ep-1",
				"endpoint_name": "Generate CV",
				"api_group_id": "grp-cv"
			},
			"completion": {"percent": 100, "missing_required": [], "missing_optional": ["template"]},
			"parameters": [
				{"name": "person", "value": "jane", "semantic_value": null},
				{"name": "template", "value": null}
			],
			"prompt_for_user": "",
			"payload": "{}"
		}
	]`)
	assert.NoError(t, ValidateAnalysisCandidates(body))
}

func TestValidateAnalysisCandidates_EmptyArray(t *testing.T) {
	assert.NoError(t, ValidateAnalysisCandidates([]byte(`[]`)))
}

func TestValidateAnalysisCandidates_NotAnArray(t *testing.T) {
	err := ValidateAnalysisCandidates([]byte(`{"intent":"help"}`))
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.NotEmpty(t, ve.Errors)
}

func TestValidateAnalysisCandidates_BadIntent(t *testing.T) {
	err := ValidateAnalysisCandidates([]byte(`[{"intent":"launch_missiles"}]`))
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Error(), "intent")
}

func TestValidateAnalysisCandidates_ParameterRequiresName(t *testing.T) {
	err := ValidateAnalysisCandidates([]byte(`[{"parameters":[{"value":"x"}]}]`))
	assert.Error(t, err)
}

func TestValidateAnalysisCandidates_PercentBounds(t *testing.T) {
	err := ValidateAnalysisCandidates([]byte(`[{"completion":{"percent":150}}]`))
	assert.Error(t, err)
}

func TestValidateAnalysisCandidates_MalformedJSON(t *testing.T) {
	assert.Error(t, ValidateAnalysisCandidates([]byte(`{not json`)))
}

func TestValidateAnalysisCandidates_UnknownFieldsAllowed(t *testing.T) {
	assert.NoError(t, ValidateAnalysisCandidates([]byte(`[{"intent":"help","extra_field":42}]`)))
}
