// Package openapi describes a resource definition's REST contract as an
// OpenAPI 3 document: the collection list and create operations, the health
// probe, and component schemas for records and drafts in wire field names.
package openapi

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-resync/pkg/resource"
)

// Generate builds the OpenAPI document for def.
func Generate(def resource.Definition, opts ...Option) (map[string]any, error) {
	def = def.WithDefaults()
	if err := def.Validate(); err != nil {
		return nil, err
	}
	cfg := defaultGeneratorConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.info.Title == "" {
		cfg.info.Title = componentName(def.Name) + " API"
	}

	b := builder{cfg: cfg, def: def, base: componentName(def.Name)}
	document := map[string]any{
		"openapi": cfg.openAPIVersion,
		"info":    b.info(),
		"paths":   b.paths(),
		"components": map[string]any{
			"schemas": b.schemas(),
		},
	}
	if len(cfg.servers) > 0 {
		servers := make([]any, len(cfg.servers))
		for i, url := range cfg.servers {
			servers[i] = map[string]any{"url": url}
		}
		document["servers"] = servers
	}
	if err := validateDocument(document); err != nil {
		return nil, err
	}
	return document, nil
}

type builder struct {
	cfg  generatorConfig
	def  resource.Definition
	base string
}

func (b builder) ref(suffix string) map[string]any {
	return map[string]any{"$ref": "#/components/schemas/" + b.base + suffix}
}

func (b builder) info() map[string]any {
	out := map[string]any{
		"title":   b.cfg.info.Title,
		"version": b.cfg.info.Version,
	}
	if b.cfg.info.Description != "" {
		out["description"] = b.cfg.info.Description
	}
	return out
}

func (b builder) content(schema map[string]any) map[string]any {
	return map[string]any{
		b.cfg.contentType: map[string]any{"schema": schema},
	}
}

func (b builder) errorResponse() map[string]any {
	return map[string]any{
		"description": "Error with an optional detail message",
		"content":     b.content(map[string]any{"$ref": "#/components/schemas/Error"}),
	}
}

func (b builder) paths() map[string]any {
	return map[string]any{
		b.def.Collection: map[string]any{
			"get": map[string]any{
				"operationId": "list" + b.base,
				"summary":     fmt.Sprintf("List %s", b.def.Name),
				"responses": map[string]any{
					"200": map[string]any{
						"description": "Collection envelope; records share one field set",
						"content":     b.content(b.ref("Collection")),
					},
					"default": b.errorResponse(),
				},
			},
			"post": map[string]any{
				"operationId": "create" + b.base,
				"summary":     fmt.Sprintf("Create one %s record", b.def.Name),
				"requestBody": map[string]any{
					"required": true,
					"content":  b.content(b.ref("Draft")),
				},
				"responses": map[string]any{
					"201": map[string]any{
						"description": "Created record with server assigned id and created_at",
						"content":     b.content(b.ref("Record")),
					},
					"default": b.errorResponse(),
				},
			},
		},
		b.def.Health: map[string]any{
			"get": map[string]any{
				"operationId": "health" + b.base,
				"summary":     "Service health",
				"responses": map[string]any{
					"200": map[string]any{
						"description": "Health status",
						"content":     b.content(map[string]any{"$ref": "#/components/schemas/Health"}),
					},
					"default": b.errorResponse(),
				},
			},
		},
	}
}

func (b builder) schemas() map[string]any {
	itemsKey := b.def.ItemsKey
	return map[string]any{
		b.base + "Record": b.recordSchema(),
		b.base + "Draft":  b.draftSchema(),
		b.base + "Collection": map[string]any{
			"type": "object",
			"properties": map[string]any{
				itemsKey: map[string]any{
					"type":  "array",
					"items": b.ref("Record"),
				},
			},
			"required": []string{itemsKey},
		},
		"Health": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"ok":          map[string]any{"type": "boolean"},
				"server_time": map[string]any{"type": "string"},
				"detail":      map[string]any{"type": "string"},
			},
			"required": []string{"ok"},
		},
		"Error": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"detail": map[string]any{"type": "string"},
			},
		},
	}
}

func (b builder) recordSchema() map[string]any {
	if len(b.def.Fields) == 0 {
		return map[string]any{
			"type":                 "object",
			"additionalProperties": true,
		}
	}
	props := make(map[string]any, len(b.def.Fields))
	for _, field := range b.def.Fields {
		props[field] = b.fieldSchema(field)
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   append([]string{}, b.def.Fields...),
		"x-order":    append([]string{}, b.def.Fields...),
	}
}

// draftSchema lists every field the definition knows about on the input
// side, translated to wire names.
func (b builder) draftSchema() map[string]any {
	names := map[string]struct{}{}
	add := func(ui string) { names[b.def.WireName(ui)] = struct{}{} }
	for _, f := range b.def.Required {
		add(f)
	}
	for _, f := range b.def.Numeric {
		add(f)
	}
	for f := range b.def.Defaults {
		add(f)
	}
	for ui := range b.def.Aliases {
		add(ui)
	}
	for _, d := range b.def.Derived {
		add(d.Field)
	}

	props := make(map[string]any, len(names))
	for wire := range names {
		props[wire] = b.fieldSchema(wire)
	}
	for _, d := range b.def.Derived {
		schema := b.fieldSchema(b.def.WireName(d.Field))
		schema["description"] = fmt.Sprintf("Computed as %s, rounded to %d places, when omitted or zero", d.Expr, d.Places())
		props[b.def.WireName(d.Field)] = schema
	}

	required := make([]string, 0, len(b.def.Required))
	for _, f := range b.def.Required {
		required = append(required, b.def.WireName(f))
	}
	sort.Strings(required)

	out := map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": true,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

func (b builder) fieldSchema(wire string) map[string]any {
	if b.isNumericWire(wire) {
		return map[string]any{"type": "number"}
	}
	switch {
	case wire == "id":
		return map[string]any{"oneOf": []any{
			map[string]any{"type": "integer"},
			map[string]any{"type": "string"},
		}}
	case wire == "created_at" || strings.HasSuffix(wire, "_at"):
		return map[string]any{"type": "string", "format": "date-time"}
	case strings.HasSuffix(wire, "_on") || strings.HasSuffix(wire, "_date"):
		return map[string]any{"type": "string", "format": "date"}
	default:
		return map[string]any{"type": "string"}
	}
}

func (b builder) isNumericWire(wire string) bool {
	for _, f := range b.def.Numeric {
		if b.def.WireName(f) == wire {
			return true
		}
	}
	return false
}

// componentName turns "purchase-orders" into "PurchaseOrders".
func componentName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '-' || r == '_' || r == ' ' || r == '.' || r == '/'
	})
	var sb strings.Builder
	for _, part := range parts {
		sb.WriteString(strings.ToUpper(part[:1]))
		sb.WriteString(part[1:])
	}
	if sb.Len() == 0 {
		return "Resource"
	}
	return sb.String()
}

func validateDocument(document map[string]any) error {
	if document == nil {
		return fmt.Errorf("openapi: document cannot be nil")
	}
	if version, _ := document["openapi"].(string); version == "" {
		return fmt.Errorf("openapi: document missing version string")
	}
	info, _ := document["info"].(map[string]any)
	if info == nil {
		return fmt.Errorf("openapi: document missing info section")
	}
	if title, _ := info["title"].(string); title == "" {
		return fmt.Errorf("openapi: info.title must be set")
	}
	if version, _ := info["version"].(string); version == "" {
		return fmt.Errorf("openapi: info.version must be set")
	}
	paths, _ := document["paths"].(map[string]any)
	if len(paths) == 0 {
		return fmt.Errorf("openapi: document must define at least one path")
	}
	for pathKey, pathValue := range paths {
		if !strings.HasPrefix(pathKey, "/") {
			return fmt.Errorf("openapi: path %q must start with /", pathKey)
		}
		pathItem, _ := pathValue.(map[string]any)
		if len(pathItem) == 0 {
			return fmt.Errorf("openapi: path %q missing operations", pathKey)
		}
		for method, operationValue := range pathItem {
			operation, _ := operationValue.(map[string]any)
			if operation == nil {
				return fmt.Errorf("openapi: operation %s %s invalid payload", method, pathKey)
			}
			if _, ok := operation["operationId"].(string); !ok {
				return fmt.Errorf("openapi: operation %s %s missing operationId", method, pathKey)
			}
			if method == "post" {
				requestBody, _ := operation["requestBody"].(map[string]any)
				content, _ := requestBody["content"].(map[string]any)
				if len(content) == 0 {
					return fmt.Errorf("openapi: operation %s %s requestBody missing content", method, pathKey)
				}
			}
			if _, ok := operation["responses"].(map[string]any); !ok {
				return fmt.Errorf("openapi: operation %s %s missing responses", method, pathKey)
			}
		}
	}
	return nil
}
