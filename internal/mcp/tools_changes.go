package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/biroman/pkmnbindrnew-sub000/internal/domain"
	"github.com/biroman/pkmnbindrnew-sub000/internal/service"
)

func (s *Server) registerChangeTools() {
	s.mcp.AddTool(mcp.NewTool("add_card_to_binder",
		mcp.WithDescription("Queue adding a card to a binder. Without a slot the first free slot is assigned."),
		mcp.WithString("binderId", mcp.Description("Binder ID"), mcp.Required()),
		mcp.WithString("cardId", mcp.Description("Card ID"), mcp.Required()),
		mcp.WithNumber("pageNumber", mcp.Description("Target page (optional, paired with slotInPage)")),
		mcp.WithNumber("slotInPage", mcp.Description("Target slot within the page (optional)")),
	), s.handleAddCard)

	s.mcp.AddTool(mcp.NewTool("remove_card_from_binder",
		mcp.WithDescription("Queue removing a card from a binder. Cancels an uncommitted add outright."),
		mcp.WithString("binderId", mcp.Description("Binder ID"), mcp.Required()),
		mcp.WithString("cardId", mcp.Description("Card ID"), mcp.Required()),
	), s.handleRemoveCard)

	s.mcp.AddTool(mcp.NewTool("move_card",
		mcp.WithDescription("Queue moving a card to another slot. Repeated moves keep only the net displacement."),
		mcp.WithString("binderId", mcp.Description("Binder ID"), mcp.Required()),
		mcp.WithString("cardId", mcp.Description("Card ID"), mcp.Required()),
		mcp.WithNumber("pageNumber", mcp.Description("Destination page"), mcp.Required()),
		mcp.WithNumber("slotInPage", mcp.Description("Destination slot within the page"), mcp.Required()),
	), s.handleMoveCard)

	s.mcp.AddTool(mcp.NewTool("update_card_in_binder",
		mcp.WithDescription("Queue a field update for a placed card, merged last-writer-wins per field"),
		mcp.WithString("binderId", mcp.Description("Binder ID"), mcp.Required()),
		mcp.WithString("cardId", mcp.Description("Card ID"), mcp.Required()),
		mcp.WithString("fieldsJSON", mcp.Description("Changed fields as a JSON object"), mcp.Required()),
	), s.handleUpdateCard)

	s.mcp.AddTool(mcp.NewTool("list_pending_changes",
		mcp.WithDescription("List a binder's queued changes in apply order"),
		mcp.WithString("binderId", mcp.Description("Binder ID"), mcp.Required()),
	), s.handleListChanges)

	s.mcp.AddTool(mcp.NewTool("summarize_pending_changes",
		mcp.WithDescription("Count a binder's queued changes per kind"),
		mcp.WithString("binderId", mcp.Description("Binder ID"), mcp.Required()),
	), s.handleSummarizeChanges)
}

// recordResult renders a coalesced-away change distinctly from a queued one.
func recordResult(ch *domain.PendingChange) (*mcp.CallToolResult, error) {
	if ch == nil {
		return textResult("Change cancelled out against an earlier queued edit; nothing queued."), nil
	}
	return jsonResult(ch)
}

func (s *Server) handleAddCard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	binderID, err := requireString(args, "binderId")
	if err != nil {
		return nil, err
	}
	cardID, err := requireString(args, "cardId")
	if err != nil {
		return nil, err
	}

	input := service.RecordChangeInput{
		BinderID: binderID,
		CardID:   cardID,
		Kind:     domain.ChangeAdd,
	}
	if page := intArg(args, "pageNumber", 0); page > 0 {
		input.Slot = &domain.SlotRef{PageNumber: page, SlotInPage: intArg(args, "slotInPage", 1)}
	}

	ch, err := s.ledger.Record(ctx, input)
	if err != nil {
		return nil, err
	}
	return recordResult(ch)
}

func (s *Server) handleRemoveCard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	binderID, err := requireString(args, "binderId")
	if err != nil {
		return nil, err
	}
	cardID, err := requireString(args, "cardId")
	if err != nil {
		return nil, err
	}

	ch, err := s.ledger.Record(ctx, service.RecordChangeInput{
		BinderID: binderID,
		CardID:   cardID,
		Kind:     domain.ChangeRemove,
	})
	if err != nil {
		return nil, err
	}
	return recordResult(ch)
}

func (s *Server) handleMoveCard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	binderID, err := requireString(args, "binderId")
	if err != nil {
		return nil, err
	}
	cardID, err := requireString(args, "cardId")
	if err != nil {
		return nil, err
	}

	ch, err := s.ledger.Record(ctx, service.RecordChangeInput{
		BinderID: binderID,
		CardID:   cardID,
		Kind:     domain.ChangeMove,
		ToSlot: &domain.SlotRef{
			PageNumber: intArg(args, "pageNumber", 0),
			SlotInPage: intArg(args, "slotInPage", 0),
		},
	})
	if err != nil {
		return nil, err
	}
	return recordResult(ch)
}

func (s *Server) handleUpdateCard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	binderID, err := requireString(args, "binderId")
	if err != nil {
		return nil, err
	}
	cardID, err := requireString(args, "cardId")
	if err != nil {
		return nil, err
	}
	fieldsJSON, err := requireString(args, "fieldsJSON")
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := parseJSON(fieldsJSON, &fields); err != nil {
		return nil, err
	}

	ch, err := s.ledger.Record(ctx, service.RecordChangeInput{
		BinderID: binderID,
		CardID:   cardID,
		Kind:     domain.ChangeUpdate,
		Fields:   fields,
	})
	if err != nil {
		return nil, err
	}
	return recordResult(ch)
}

func (s *Server) handleListChanges(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	binderID, err := requireString(req.GetArguments(), "binderId")
	if err != nil {
		return nil, err
	}
	changes, err := s.ledger.List(binderID)
	if err != nil {
		return nil, err
	}
	return jsonResult(changes)
}

func (s *Server) handleSummarizeChanges(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	binderID, err := requireString(req.GetArguments(), "binderId")
	if err != nil {
		return nil, err
	}
	summary, err := s.ledger.Summarize(binderID)
	if err != nil {
		return nil, err
	}
	return jsonResult(summary)
}
