package openapi

import (
	"strings"
)

// generatorConfig renders a components-only document unless an operation is
// configured.
type generatorConfig struct {
	openAPIVersion string
	info           openapiInfo
	operation      *operationConfig
	contentType    string
	responses      map[string]responseConfig
}

type openapiInfo struct {
	Title       string
	Version     string
	Description string
}

type operationConfig struct {
	Path        string
	Method      string
	OperationID string
	Summary     string
}

type responseConfig struct {
	Description string
}

func defaultGeneratorConfig() generatorConfig {
	return generatorConfig{
		openAPIVersion: "3.0.3",
		info: openapiInfo{
			Title:   "Annotation Schema",
			Version: "1.0.0",
		},
		contentType: "application/json",
	}
}

// operationResponses returns the configured responses, or a single 204 when
// none were registered.
func (cfg generatorConfig) operationResponses() map[string]responseConfig {
	if len(cfg.responses) > 0 {
		return cfg.responses
	}
	return map[string]responseConfig{"204": {Description: "No Content"}}
}

// GeneratorOption configures the OpenAPI generator behaviour.
type GeneratorOption func(*generatorConfig)

// WithOpenAPIVersion overrides the OpenAPI version string (default: 3.0.3).
func WithOpenAPIVersion(version string) GeneratorOption {
	return func(cfg *generatorConfig) {
		if version == "" {
			return
		}
		cfg.openAPIVersion = version
	}
}

// InfoOption configures optional fields on the OpenAPI info section.
type InfoOption func(*openapiInfo)

// WithInfoDescription sets the optional description field for the info section.
func WithInfoDescription(description string) InfoOption {
	return func(info *openapiInfo) {
		info.Description = description
	}
}

// WithInfo configures the OpenAPI info block. Empty strings retain the
// existing values.
func WithInfo(title, version string, opts ...InfoOption) GeneratorOption {
	return func(cfg *generatorConfig) {
		if title != "" {
			cfg.info.Title = title
		}
		if version != "" {
			cfg.info.Version = version
		}
		for _, opt := range opts {
			if opt != nil {
				opt(&cfg.info)
			}
		}
	}
}

// OperationOption configures optional operation metadata.
type OperationOption func(*operationConfig)

// WithOperationSummary attaches a summary to the configured operation.
func WithOperationSummary(summary string) OperationOption {
	return func(operation *operationConfig) {
		operation.Summary = summary
	}
}

// WithOperation adds an operation whose request body accepts any of the
// generated annotation schemas, for services that receive annotation payloads.
// The path is required; method defaults to post and operationId to
// "method:path".
func WithOperation(path, method string, opts ...OperationOption) GeneratorOption {
	return func(cfg *generatorConfig) {
		path = strings.TrimSpace(path)
		if path == "" {
			return
		}
		operation := &operationConfig{Path: path, Method: strings.ToLower(strings.TrimSpace(method))}
		if operation.Method == "" {
			operation.Method = "post"
		}
		for _, opt := range opts {
			if opt != nil {
				opt(operation)
			}
		}
		cfg.operation = operation
	}
}

// WithOperationID overrides the operationId of the configured operation.
func WithOperationID(id string) OperationOption {
	return func(operation *operationConfig) {
		operation.OperationID = id
	}
}

// WithContentType sets the content type of the operation request body.
func WithContentType(contentType string) GeneratorOption {
	return func(cfg *generatorConfig) {
		if contentType == "" {
			return
		}
		cfg.contentType = contentType
	}
}

// ResponseOption configures additional response metadata.
type ResponseOption func(*responseConfig)

// WithResponse registers or overrides an operation response for status.
func WithResponse(status, description string, opts ...ResponseOption) GeneratorOption {
	return func(cfg *generatorConfig) {
		if status == "" {
			return
		}
		if cfg.responses == nil {
			cfg.responses = map[string]responseConfig{}
		}
		resp := cfg.responses[status]
		if description != "" {
			resp.Description = description
		}
		for _, opt := range opts {
			if opt != nil {
				opt(&resp)
			}
		}
		cfg.responses[status] = resp
	}
}
