// Package runio reads task input and schema files and writes the result
// envelope. JSON and YAML are both accepted, decided by file extension.
package runio

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/llmgate/llmgate/types"
)

// Input is the task document: the conversation plus optional free-form
// context rendered into it.
type Input struct {
	Messages []InputMessage `json:"messages" yaml:"messages"`
	Context  map[string]any `json:"context,omitempty" yaml:"context,omitempty"`
}

// InputMessage is one conversation entry as written in the task file.
type InputMessage struct {
	Role    string `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
}

// Output is the result envelope written on completion.
type Output struct {
	Success  bool           `json:"success" yaml:"success"`
	Response any            `json:"response" yaml:"response"`
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// LoadInput reads and validates a task file, returning the chat history.
func LoadInput(path string) (types.ChatHistory, map[string]any, error) {
	var input Input
	if err := loadDocument(path, &input); err != nil {
		return nil, nil, err
	}

	history := make(types.ChatHistory, 0, len(input.Messages))
	for _, msg := range input.Messages {
		history = append(history, types.Message{
			Role:    types.Role(msg.Role),
			Content: msg.Content,
			Name:    msg.Name,
		})
	}
	if err := types.ValidateHistory(history); err != nil {
		return nil, nil, err
	}
	return history, input.Context, nil
}

// LoadSchema reads a JSON Schema document from a JSON or YAML file.
func LoadSchema(path string) (map[string]any, error) {
	var schema map[string]any
	if err := loadDocument(path, &schema); err != nil {
		return nil, err
	}
	if len(schema) == 0 {
		return nil, types.NewError(types.ErrSchema,
			fmt.Sprintf("schema file %s is empty", path))
	}
	return schema, nil
}

// WriteOutput writes the result envelope. An empty path writes JSON to
// stdout; otherwise the extension picks the format.
func WriteOutput(path string, out *Output) error {
	if path == "" {
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return types.NewError(types.ErrExecution, "cannot encode output").WithCause(err)
		}
		fmt.Println(string(data))
		return nil
	}

	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(out)
	} else {
		data, err = json.MarshalIndent(out, "", "  ")
	}
	if err != nil {
		return types.NewError(types.ErrExecution, "cannot encode output").WithCause(err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return types.NewError(types.ErrExecution,
			fmt.Sprintf("cannot write output file %s", path)).WithCause(err)
	}
	return nil
}

func loadDocument(path string, target any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.NewError(types.ErrConfiguration,
			fmt.Sprintf("cannot read file %s", path)).WithCause(err)
	}

	if isYAML(path) {
		if err := yaml.Unmarshal(data, target); err != nil {
			return types.NewError(types.ErrConfiguration,
				fmt.Sprintf("cannot parse YAML file %s", path)).WithCause(err)
		}
		return nil
	}

	if err := json.Unmarshal(data, target); err != nil {
		return types.NewError(types.ErrConfiguration,
			fmt.Sprintf("cannot parse JSON file %s", path)).WithCause(err)
	}
	return nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
