package channels

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReplaceTextMappings(t *testing.T) {
	tests := []struct {
		name     string
		mappings map[string]interface{}
		outputs  map[string]string
		want     map[string]interface{}
	}{
		{
			name:     "single placeholder",
			mappings: map[string]interface{}{"status": "check out %repository_name%"},
			outputs:  map[string]string{"repository_name": "test_repo"},
			want:     map[string]interface{}{"status": "check out test_repo"},
		},
		{
			name:     "multiple placeholders in one template",
			mappings: map[string]interface{}{"body": "%title% at %link%"},
			outputs:  map[string]string{"title": "New release", "link": "https://example.com"},
			want:     map[string]interface{}{"body": "New release at https://example.com"},
		},
		{
			name:     "repeated placeholder",
			mappings: map[string]interface{}{"text": "%name% and %name%"},
			outputs:  map[string]string{"name": "bob"},
			want:     map[string]interface{}{"text": "bob and bob"},
		},
		{
			name:     "unknown placeholder passes through",
			mappings: map[string]interface{}{"status": "hello %nobody%"},
			outputs:  map[string]string{"somebody": "x"},
			want:     map[string]interface{}{"status": "hello %nobody%"},
		},
		{
			name:     "non-string values untouched",
			mappings: map[string]interface{}{"count": 3, "flag": true, "text": "%n%"},
			outputs:  map[string]string{"n": "7"},
			want:     map[string]interface{}{"count": 3, "flag": true, "text": "7"},
		},
		{
			name:     "value containing marker is not re-expanded",
			mappings: map[string]interface{}{"text": "%a%"},
			outputs:  map[string]string{"a": "%b%", "b": "never"},
			want:     map[string]interface{}{"text": "%b%"},
		},
		{
			name:     "no outputs leaves templates alone",
			mappings: map[string]interface{}{"text": "%field%"},
			outputs:  map[string]string{},
			want:     map[string]interface{}{"text": "%field%"},
		},
		{
			name:     "empty mappings",
			mappings: map[string]interface{}{},
			outputs:  map[string]string{"a": "b"},
			want:     map[string]interface{}{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ReplaceTextMappings(tt.mappings, tt.outputs)
			assert.Equal(t, tt.want, got)
		})
	}
}
