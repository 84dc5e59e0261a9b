// Package types provides the core data types shared across llmgate.
// This package has ZERO dependencies on other llmgate packages to avoid
// circular imports. All other packages should import types from here.
package types
