package parser

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/prasenjit/go-mocksim/internal/models"
)

// Parser turns OpenAPI 3 documents into API models and mock configs
type Parser struct{}

// NewParser creates a new OpenAPI parser
func NewParser() *Parser {
	return &Parser{}
}

// ParseResult contains the models and endpoint skeletons of a document
type ParseResult struct {
	Title     string
	Version   string
	Models    []*models.ApiModel
	Endpoints []*models.MockConfig
}

// Parse parses an OpenAPI 3 document. Endpoint paths are prefixed with basePath.
func (p *Parser) Parse(content string, basePath string) (*ParseResult, error) {
	doc, err := load(content)
	if err != nil {
		return nil, err
	}

	result := &ParseResult{
		Models:    extractModels(doc),
		Endpoints: extractEndpoints(doc, normalizeBasePath(basePath)),
	}
	if doc.Info != nil {
		result.Title = doc.Info.Title
		result.Version = doc.Info.Version
	}
	return result, nil
}

// ParseModels returns the ApiModels declared under components.schemas
func (p *Parser) ParseModels(content string) ([]*models.ApiModel, error) {
	doc, err := load(content)
	if err != nil {
		return nil, err
	}
	return extractModels(doc), nil
}

func load(content string) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true

	doc, err := loader.LoadFromData([]byte(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OpenAPI spec: %w", err)
	}

	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI spec: %w", err)
	}
	return doc, nil
}

func extractModels(doc *openapi3.T) []*models.ApiModel {
	if doc.Components == nil {
		return nil
	}

	names := make([]string, 0, len(doc.Components.Schemas))
	for name := range doc.Components.Schemas {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make([]*models.ApiModel, 0, len(names))
	for _, name := range names {
		ref := doc.Components.Schemas[name]
		if ref == nil || ref.Value == nil {
			continue
		}
		result = append(result, &models.ApiModel{
			Name:        name,
			Description: ref.Value.Description,
			Fields:      fieldsOf(ref.Value, 0),
		})
	}
	return result
}

// maxInlineDepth bounds recursion through inline object schemas
const maxInlineDepth = 8

// fieldsOf converts the properties of an object schema, sorted by name
func fieldsOf(schema *openapi3.Schema, depth int) []models.ApiField {
	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]models.ApiField, 0, len(names))
	for _, name := range names {
		field := fieldOf(name, schema.Properties[name], depth)
		field.IsRequired = required[name]
		fields = append(fields, field)
	}
	return fields
}

func fieldOf(name string, ref *openapi3.SchemaRef, depth int) models.ApiField {
	field := models.ApiField{Name: name, Type: "String"}
	if ref == nil {
		return field
	}

	if ref.Ref != "" {
		field.Type = refName(ref.Ref)
		field.IsComplex = true
		return field
	}

	schema := ref.Value
	if schema == nil {
		return field
	}

	switch {
	case schema.Type.Is("array"):
		elem := "String"
		if schema.Items != nil {
			item := fieldOf(name, schema.Items, depth)
			elem = item.Type
			field.IsComplex = item.IsComplex
			field.RefFields = item.RefFields
		}
		field.Type = "List<" + elem + ">"
	case schema.Type.Is("object") || len(schema.Properties) > 0:
		field.IsComplex = true
		field.Type = "Object"
		if depth < maxInlineDepth {
			field.RefFields = fieldsOf(schema, depth+1)
		}
	default:
		field.Type = primitiveType(schema)
	}
	return field
}

// primitiveType maps an OpenAPI type and format to a declared field type
func primitiveType(schema *openapi3.Schema) string {
	switch schema.Format {
	case "date-time", "date":
		return "Date"
	case "uuid":
		return "UUID"
	}

	switch {
	case schema.Type.Is("integer"):
		return "Integer"
	case schema.Type.Is("number"):
		return "Double"
	case schema.Type.Is("boolean"):
		return "Boolean"
	default:
		return "String"
	}
}

// refName returns the last segment of "#/components/schemas/User"
func refName(ref string) string {
	return ref[strings.LastIndex(ref, "/")+1:]
}

// extractEndpoints builds a disabled-by-default mock skeleton per operation
func extractEndpoints(doc *openapi3.T, basePath string) []*models.MockConfig {
	if doc.Paths == nil {
		return nil
	}

	var endpoints []*models.MockConfig
	for pathPattern, pathItem := range doc.Paths.Map() {
		if pathItem == nil {
			continue
		}

		methods := map[string]*openapi3.Operation{
			"GET":     pathItem.Get,
			"POST":    pathItem.Post,
			"PUT":     pathItem.Put,
			"DELETE":  pathItem.Delete,
			"PATCH":   pathItem.Patch,
			"HEAD":    pathItem.Head,
			"OPTIONS": pathItem.Options,
		}

		for method, op := range methods {
			if op == nil {
				continue
			}

			fullPath := path.Join("/", basePath, pathPattern)
			cfg := &models.MockConfig{
				EndpointID: endpointID(op.OperationID, method, fullPath),
				Method:     method,
				Path:       fullPath,
				StatusCode: 200,
			}
			applySuccessResponse(cfg, op)
			endpoints = append(endpoints, cfg)
		}
	}

	sort.Slice(endpoints, func(i, j int) bool {
		if endpoints[i].Path != endpoints[j].Path {
			return endpoints[i].Path < endpoints[j].Path
		}
		return endpoints[i].Method < endpoints[j].Method
	})
	return endpoints
}

// applySuccessResponse fills status, body and model from the first success response
func applySuccessResponse(cfg *models.MockConfig, op *openapi3.Operation) {
	if op.Responses == nil {
		return
	}

	for _, statusCode := range []int{200, 201, 202, 204} {
		response := op.Responses.Status(statusCode)
		if response == nil || response.Value == nil {
			continue
		}
		cfg.StatusCode = statusCode

		for mediaType, content := range response.Value.Content {
			if !strings.Contains(mediaType, "json") || content == nil {
				continue
			}
			cfg.ResponseHeaders = map[string]string{"Content-Type": mediaType}

			switch {
			case content.Example != nil:
				cfg.ResponseBody = formatExample(content.Example)
			case len(content.Examples) > 0:
				for _, name := range sortedKeys(content.Examples) {
					if ex := content.Examples[name]; ex != nil && ex.Value != nil && ex.Value.Value != nil {
						cfg.ResponseBody = formatExample(ex.Value.Value)
						break
					}
				}
			}

			if content.Schema != nil && content.Schema.Ref != "" {
				cfg.ResponseModel = refName(content.Schema.Ref)
				cfg.DynamicResponse = cfg.ResponseBody == ""
			}
			break
		}
		return
	}
}

func sortedKeys(examples openapi3.Examples) []string {
	keys := make([]string, 0, len(examples))
	for k := range examples {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// formatExample converts an example value to a JSON string
func formatExample(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	default:
		if data, err := json.Marshal(val); err == nil {
			return string(data)
		}
		return fmt.Sprintf("%v", val)
	}
}

// normalizeBasePath ensures the base path is properly formatted
func normalizeBasePath(basePath string) string {
	if basePath == "" {
		return ""
	}

	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	return strings.TrimSuffix(basePath, "/")
}

// sanitizePath converts a path to a valid identifier
func sanitizePath(pathPattern string) string {
	result := strings.ReplaceAll(pathPattern, "{", "")
	result = strings.ReplaceAll(result, "}", "")
	result = strings.ReplaceAll(result, "/", "_")
	result = strings.TrimPrefix(result, "_")
	result = strings.TrimSuffix(result, "_")
	return result
}

// endpointID prefers the operationId and otherwise derives a stable id from
// method and path, so re-importing a document maps onto the same endpoints
func endpointID(operationID, method, fullPath string) string {
	if operationID != "" {
		return operationID
	}
	name := strings.ToLower(method) + "_" + sanitizePath(fullPath)
	hash := sha256.Sum256([]byte(method + ":" + fullPath))
	return name + "_" + hex.EncodeToString(hash[:4])
}
