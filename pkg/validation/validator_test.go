package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateActivateRequest(t *testing.T) {
	tooMany := make([]string, MaxActivateNodes+1)
	for i := range tooMany {
		tooMany[i] = "n"
	}

	tests := []struct {
		name    string
		req     *ActivateRequest
		wantErr string
	}{
		{"ids only", &ActivateRequest{NodeIDs: []string{"1", "2"}}, ""},
		{"nodes only", &ActivateRequest{Nodes: []NodeEntry{{ID: "1", Name: "One"}}, Append: true}, ""},
		{"both", &ActivateRequest{NodeIDs: []string{"1"}, Nodes: []NodeEntry{{ID: "2"}}}, ""},
		{"nil", nil, "cannot be nil"},
		{"empty", &ActivateRequest{}, ErrEmptyActivation.Error()},
		{"blank id", &ActivateRequest{NodeIDs: []string{""}}, "required"},
		{"padded id", &ActivateRequest{NodeIDs: []string{" 1"}}, "invalid node id"},
		{"control char", &ActivateRequest{Nodes: []NodeEntry{{ID: "a\nb"}}}, "invalid node id"},
		{"missing node id", &ActivateRequest{Nodes: []NodeEntry{{Name: "x"}}}, "required"},
		{"long name", &ActivateRequest{Nodes: []NodeEntry{{ID: "1", Name: strings.Repeat("x", 300)}}}, "must not exceed"},
		{"too many", &ActivateRequest{NodeIDs: tooMany}, "must not exceed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateActivateRequest(tt.req)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateNodeID(t *testing.T) {
	assert.NoError(t, ValidateNodeID("neuron-42"))
	assert.Error(t, ValidateNodeID(""))
	assert.Error(t, ValidateNodeID(strings.Repeat("a", MaxIDLength+1)))
	assert.Error(t, ValidateNodeID("tab\there"))
}
