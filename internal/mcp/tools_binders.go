package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/biroman/pkmnbindrnew-sub000/internal/service"
)

func (s *Server) registerBinderTools() {
	s.mcp.AddTool(mcp.NewTool("create_binder",
		mcp.WithDescription("Create a binder with a grid size (like \"3x3\") and page count"),
		mcp.WithString("ownerId", mcp.Description("Owner user ID"), mcp.Required()),
		mcp.WithString("name", mcp.Description("Binder name"), mcp.Required()),
		mcp.WithString("gridSize", mcp.Description("Grid token <columns>x<rows>, defaults to 3x3")),
		mcp.WithNumber("pageCount", mcp.Description("Page count, defaults to 1")),
	), s.handleCreateBinder)

	s.mcp.AddTool(mcp.NewTool("list_binders",
		mcp.WithDescription("List an owner's binders"),
		mcp.WithString("ownerId", mcp.Description("Owner user ID"), mcp.Required()),
	), s.handleListBinders)

	s.mcp.AddTool(mcp.NewTool("get_binder",
		mcp.WithDescription("Get one binder with its slot capacity"),
		mcp.WithString("binderId", mcp.Description("Binder ID"), mcp.Required()),
	), s.handleGetBinder)

	s.mcp.AddTool(mcp.NewTool("delete_binder",
		mcp.WithDescription("🛑 DESTRUCTIVE: Delete a binder with its queued changes and sync history"),
		mcp.WithString("binderId", mcp.Description("Binder ID"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteBinder)

	s.mcp.AddTool(mcp.NewTool("set_grid_size",
		mcp.WithDescription("Change a binder's grid size. Fails if any placed card no longer fits."),
		mcp.WithString("binderId", mcp.Description("Binder ID"), mcp.Required()),
		mcp.WithString("gridSize", mcp.Description("Grid token <columns>x<rows>"), mcp.Required()),
	), s.handleSetGridSize)

	s.mcp.AddTool(mcp.NewTool("add_pages",
		mcp.WithDescription("Grow a binder by N pages (the add-capacity remediation for a full binder)"),
		mcp.WithString("binderId", mcp.Description("Binder ID"), mcp.Required()),
		mcp.WithNumber("pages", mcp.Description("Pages to add, defaults to 1")),
	), s.handleAddPages)

	s.mcp.AddTool(mcp.NewTool("set_reverse_holo",
		mcp.WithDescription("Toggle reverse holo display for a binder"),
		mcp.WithString("binderId", mcp.Description("Binder ID"), mcp.Required()),
		mcp.WithBoolean("enabled", mcp.Description("Whether reverse holo variants are shown"), mcp.Required()),
	), s.handleSetReverseHolo)

	s.mcp.AddTool(mcp.NewTool("find_available_slots",
		mcp.WithDescription("Find the next N free slots in a binder, in reading order"),
		mcp.WithString("binderId", mcp.Description("Binder ID"), mcp.Required()),
		mcp.WithNumber("count", mcp.Description("How many free slots to find, defaults to 1")),
	), s.handleFindSlots)

	s.mcp.AddTool(mcp.NewTool("render_layout",
		mcp.WithDescription("Render a binder's effective layout (queued edits applied, reverse holo variants inserted when enabled)"),
		mcp.WithString("binderId", mcp.Description("Binder ID"), mcp.Required()),
	), s.handleRenderLayout)

	s.mcp.AddTool(mcp.NewTool("user_totals",
		mcp.WithDescription("Aggregate binder, placement and pending-change counts for an owner"),
		mcp.WithString("ownerId", mcp.Description("Owner user ID"), mcp.Required()),
	), s.handleUserTotals)
}

func (s *Server) handleCreateBinder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	ownerID, err := requireString(args, "ownerId")
	if err != nil {
		return nil, err
	}
	name, err := requireString(args, "name")
	if err != nil {
		return nil, err
	}
	gridSize, _ := args["gridSize"].(string)

	b, err := s.binders.CreateBinder(ctx, service.CreateBinderInput{
		OwnerID:   ownerID,
		Name:      name,
		GridSize:  gridSize,
		PageCount: intArg(args, "pageCount", 1),
	})
	if err != nil {
		return nil, err
	}
	return jsonResult(b)
}

func (s *Server) handleListBinders(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ownerID, err := requireString(req.GetArguments(), "ownerId")
	if err != nil {
		return nil, err
	}
	binders, err := s.binders.ListBinders(ownerID)
	if err != nil {
		return nil, err
	}
	return jsonResult(binders)
}

func (s *Server) handleGetBinder(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	binderID, err := requireString(req.GetArguments(), "binderId")
	if err != nil {
		return nil, err
	}
	b, err := s.binders.GetBinder(binderID)
	if err != nil {
		return nil, err
	}
	cap, err := s.binders.Capacity(binderID)
	if err != nil {
		return nil, err
	}
	return jsonResult(map[string]any{"binder": b, "capacity": cap})
}

func (s *Server) handleDeleteBinder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	binderID, err := requireString(req.GetArguments(), "binderId")
	if err != nil {
		return nil, err
	}
	if err := s.binders.DeleteBinder(ctx, binderID); err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Deleted binder %s", binderID)), nil
}

func (s *Server) handleSetGridSize(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	binderID, err := requireString(args, "binderId")
	if err != nil {
		return nil, err
	}
	gridSize, err := requireString(args, "gridSize")
	if err != nil {
		return nil, err
	}
	b, err := s.binders.SetGridSize(ctx, binderID, gridSize)
	if err != nil {
		return nil, err
	}
	return jsonResult(b)
}

func (s *Server) handleAddPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	binderID, err := requireString(args, "binderId")
	if err != nil {
		return nil, err
	}
	b, err := s.binders.AddPages(ctx, binderID, intArg(args, "pages", 1))
	if err != nil {
		return nil, err
	}
	return jsonResult(b)
}

func (s *Server) handleSetReverseHolo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	binderID, err := requireString(args, "binderId")
	if err != nil {
		return nil, err
	}
	enabled, _ := args["enabled"].(bool)
	b, err := s.binders.SetReverseHolo(ctx, binderID, enabled)
	if err != nil {
		return nil, err
	}
	return jsonResult(b)
}

func (s *Server) handleFindSlots(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	binderID, err := requireString(args, "binderId")
	if err != nil {
		return nil, err
	}
	slots, err := s.binders.FindAvailableSlots(binderID, intArg(args, "count", 1))
	if err != nil {
		return nil, err
	}
	return jsonResult(slots)
}

func (s *Server) handleRenderLayout(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	binderID, err := requireString(req.GetArguments(), "binderId")
	if err != nil {
		return nil, err
	}
	placements, err := s.binders.RenderLayout(binderID)
	if err != nil {
		return nil, err
	}
	return jsonResult(placements)
}

func (s *Server) handleUserTotals(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ownerID, err := requireString(req.GetArguments(), "ownerId")
	if err != nil {
		return nil, err
	}
	totals, err := s.binders.UserTotals(ownerID)
	if err != nil {
		return nil, err
	}
	return jsonResult(totals)
}
