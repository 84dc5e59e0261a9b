package runio

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/llmgate/llmgate/types"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadInputJSON(t *testing.T) {
	path := writeFile(t, "input.json", `{
		"messages": [
			{"role": "system", "content": "You review code."},
			{"role": "user", "content": "Review this diff."}
		],
		"context": {"pr": 42}
	}`)

	history, ctx, err := LoadInput(path)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, types.RoleSystem, history[0].Role)
	assert.Equal(t, "Review this diff.", history[1].Content)
	assert.Equal(t, float64(42), ctx["pr"])
}

func TestLoadInputYAML(t *testing.T) {
	path := writeFile(t, "input.yaml", `
messages:
  - role: user
    content: hello
`)

	history, _, err := LoadInput(path)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, types.RoleUser, history[0].Role)
}

func TestLoadInputRejectsInvalidHistory(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no messages", `{"messages": []}`},
		{"bad role", `{"messages": [{"role": "robot", "content": "x"}]}`},
		{"empty content", `{"messages": [{"role": "user", "content": ""}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "input.json", tt.content)
			_, _, err := LoadInput(path)
			require.Error(t, err)
			assert.Equal(t, types.ErrConfiguration, types.GetErrorCode(err))
		})
	}
}

func TestLoadInputMissingFile(t *testing.T) {
	_, _, err := LoadInput(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.Equal(t, types.ErrConfiguration, types.GetErrorCode(err))
}

func TestLoadSchema(t *testing.T) {
	path := writeFile(t, "schema.json", `{
		"type": "object",
		"properties": {"verdict": {"type": "string"}}
	}`)

	schema, err := LoadSchema(path)
	require.NoError(t, err)
	assert.Equal(t, "object", schema["type"])
}

func TestLoadSchemaYAML(t *testing.T) {
	path := writeFile(t, "schema.yaml", `
type: object
properties:
  verdict:
    type: string
`)

	schema, err := LoadSchema(path)
	require.NoError(t, err)
	assert.Equal(t, "object", schema["type"])
}

func TestLoadSchemaRejectsEmpty(t *testing.T) {
	path := writeFile(t, "schema.json", `{}`)
	_, err := LoadSchema(path)
	require.Error(t, err)
	assert.Equal(t, types.ErrSchema, types.GetErrorCode(err))
}

func TestWriteOutputJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, WriteOutput(path, &Output{
		Success:  true,
		Response: map[string]any{"verdict": "pass"},
		Metadata: map[string]any{"backend": "azure"},
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var out Output
	require.NoError(t, json.Unmarshal(data, &out))
	assert.True(t, out.Success)
	assert.Equal(t, "pass", out.Response.(map[string]any)["verdict"])
	assert.Equal(t, "azure", out.Metadata["backend"])
}

func TestWriteOutputYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, WriteOutput(path, &Output{Success: true, Response: "text"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var out Output
	require.NoError(t, yaml.Unmarshal(data, &out))
	assert.True(t, out.Success)
	assert.Equal(t, "text", out.Response)
}
