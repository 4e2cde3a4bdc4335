package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"stylecanvas/internal/css"
	"stylecanvas/internal/domain"
	"stylecanvas/internal/service"
)

func (s *Server) registerDesignTools() {
	s.mcp.AddTool(mcp.NewTool("get_design_data",
		mcp.WithDescription("Get the full canvas document: settings, layers, elements, palette, tokens, metadata"),
	), s.handleGetDesignData)

	s.mcp.AddTool(mcp.NewTool("list_elements",
		mcp.WithDescription("List canvas elements, optionally filtered by kind or source stylesheet"),
		mcp.WithString("kind", mcp.Description("Filter by element kind: rectangle, circle, text, line, image, container")),
		mcp.WithString("sourceFile", mcp.Description("Filter by originating stylesheet path")),
	), s.handleListElements)

	s.mcp.AddTool(mcp.NewTool("draw_element",
		mcp.WithDescription("Add a new element to the canvas. Its CSS rule is written to the element's stylesheet."),
		mcp.WithString("kind", mcp.Description("Element kind: rectangle, circle, text, line, image, container"), mcp.Required()),
		mcp.WithNumber("x", mcp.Description("X position"), mcp.Required()),
		mcp.WithNumber("y", mcp.Description("Y position"), mcp.Required()),
		mcp.WithNumber("width", mcp.Description("Width"), mcp.Required()),
		mcp.WithNumber("height", mcp.Description("Height"), mcp.Required()),
		mcp.WithString("styleJSON", mcp.Description("JSON object of style properties (fill, stroke, fontSize, ...)")),
		mcp.WithString("selector", mcp.Description("CSS selector to bind the element to (optional, generated from ID otherwise)")),
	), s.handleDrawElement)

	s.mcp.AddTool(mcp.NewTool("update_element",
		mcp.WithDescription("Update an existing element. Style keys merge; position and size replace when given."),
		mcp.WithString("elementId", mcp.Description("Element ID to update"), mcp.Required()),
		mcp.WithString("patchJSON", mcp.Description("JSON object with properties to update (x, y, width, height, style)"), mcp.Required()),
	), s.handleUpdateElement)

	s.mcp.AddTool(mcp.NewTool("delete_element",
		mcp.WithDescription("Remove an element by ID and rewrite its stylesheet without the rule"),
		mcp.WithString("elementId", mcp.Description("Element ID to delete"), mcp.Required()),
	), s.handleDeleteElement)

	s.mcp.AddTool(mcp.NewTool("css_for_element",
		mcp.WithDescription("Show the CSS rule that an element currently generates"),
		mcp.WithString("elementId", mcp.Description("Element ID"), mcp.Required()),
	), s.handleCSSForElement)
}

func (s *Server) handleGetDesignData(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.sync.DesignData())
}

func (s *Server) handleListElements(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	kind, _ := args["kind"].(string)
	sourceFile, _ := args["sourceFile"].(string)

	doc := s.sync.DesignData()
	var out []domain.CanvasElement
	for _, el := range doc.Elements {
		if kind != "" && string(el.Kind) != kind {
			continue
		}
		if sourceFile != "" && el.SourceFile != sourceFile {
			continue
		}
		out = append(out, el)
	}
	return jsonResult(out)
}

func (s *Server) handleDrawElement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	kind, err := requiredString(args, "kind")
	if err != nil {
		return nil, err
	}

	el := domain.CanvasElement{
		Kind: domain.ElementKind(kind),
		Position: domain.Position{
			X: floatArg(args, "x"),
			Y: floatArg(args, "y"),
		},
		Size: domain.Size{
			Width:  floatArg(args, "width"),
			Height: floatArg(args, "height"),
		},
	}
	if selector, ok := args["selector"].(string); ok && selector != "" {
		el.SourceSelector = selector
	}
	if raw, ok := args["styleJSON"].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &el.Style); err != nil {
			return nil, fmt.Errorf("parse styleJSON: %w", err)
		}
	}

	created, err := s.sync.ApplyShapeDrawn(el)
	if err != nil {
		return nil, err
	}
	return jsonResult(created)
}

func (s *Server) handleUpdateElement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	elementID, err := requiredString(args, "elementId")
	if err != nil {
		return nil, err
	}
	patchJSON, err := requiredString(args, "patchJSON")
	if err != nil {
		return nil, err
	}

	var fields struct {
		X      *float64       `json:"x"`
		Y      *float64       `json:"y"`
		Width  *float64       `json:"width"`
		Height *float64       `json:"height"`
		Style  map[string]any `json:"style"`
	}
	if err := json.Unmarshal([]byte(patchJSON), &fields); err != nil {
		return nil, fmt.Errorf("parse patchJSON: %w", err)
	}

	patch := service.ShapePatch{ID: elementID, Style: fields.Style}
	if fields.X != nil || fields.Y != nil {
		current := s.sync.DesignData().FindByID(elementID)
		if current == nil {
			return nil, fmt.Errorf("element %s not found", elementID)
		}
		pos := current.Position
		if fields.X != nil {
			pos.X = *fields.X
		}
		if fields.Y != nil {
			pos.Y = *fields.Y
		}
		patch.Position = &pos
	}
	if fields.Width != nil || fields.Height != nil {
		current := s.sync.DesignData().FindByID(elementID)
		if current == nil {
			return nil, fmt.Errorf("element %s not found", elementID)
		}
		size := current.Size
		if fields.Width != nil {
			size.Width = *fields.Width
		}
		if fields.Height != nil {
			size.Height = *fields.Height
		}
		patch.Size = &size
	}

	updated, err := s.sync.ApplyShapeUpdated(patch)
	if err != nil {
		return nil, err
	}
	return jsonResult(updated)
}

func (s *Server) handleDeleteElement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	elementID, err := requiredString(args, "elementId")
	if err != nil {
		return nil, err
	}
	if err := s.sync.ApplyShapeDeleted(elementID); err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("deleted element %s", elementID)), nil
}

func (s *Server) handleCSSForElement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	elementID, err := requiredString(args, "elementId")
	if err != nil {
		return nil, err
	}
	el := s.sync.DesignData().FindByID(elementID)
	if el == nil {
		return nil, fmt.Errorf("element %s not found", elementID)
	}
	return textResult(css.ElementToRule(*el)), nil
}

func floatArg(args map[string]any, key string) float64 {
	v, _ := args[key].(float64)
	return v
}
