package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/biroman/pkmnbindrnew-sub000/internal/domain"
	"github.com/biroman/pkmnbindrnew-sub000/internal/service"
)

func (s *Server) registerCardTools() {
	s.mcp.AddTool(mcp.NewTool("create_card",
		mcp.WithDescription("Add a card to the catalog"),
		mcp.WithString("name", mcp.Description("Card name"), mcp.Required()),
		mcp.WithString("setCode", mcp.Description("Set code, e.g. \"sv4\"")),
		mcp.WithString("number", mcp.Description("Collector number within the set")),
		mcp.WithString("rarity", mcp.Description("Rarity tier: common, uncommon, rare, holo_rare, ultra_rare, secret_rare")),
		mcp.WithString("imageUrl", mcp.Description("Card image URL")),
	), s.handleCreateCard)

	s.mcp.AddTool(mcp.NewTool("list_cards",
		mcp.WithDescription("List the card catalog"),
	), s.handleListCards)

	s.mcp.AddTool(mcp.NewTool("import_cards",
		mcp.WithDescription("Import a card-list file (json or csv) into the catalog"),
		mcp.WithString("path", mcp.Description("Path to the card-list file"), mcp.Required()),
	), s.handleImportCards)

	s.mcp.AddTool(mcp.NewTool("delete_card",
		mcp.WithDescription("🛑 DESTRUCTIVE: Delete a card from the catalog"),
		mcp.WithString("cardId", mcp.Description("Card ID"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteCard)
}

func (s *Server) handleCreateCard(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	name, err := requireString(args, "name")
	if err != nil {
		return nil, err
	}
	setCode, _ := args["setCode"].(string)
	number, _ := args["number"].(string)
	rarity, _ := args["rarity"].(string)
	imageURL, _ := args["imageUrl"].(string)

	c, err := s.cards.CreateCard(service.CreateCardInput{
		Name:     name,
		SetCode:  setCode,
		Number:   number,
		Rarity:   domain.RarityTier(rarity),
		ImageURL: imageURL,
	})
	if err != nil {
		return nil, err
	}
	return jsonResult(c)
}

func (s *Server) handleListCards(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cards, err := s.cards.ListCards()
	if err != nil {
		return nil, err
	}
	return jsonResult(cards)
}

func (s *Server) handleImportCards(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := requireString(req.GetArguments(), "path")
	if err != nil {
		return nil, err
	}
	result, err := s.cards.ImportFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return jsonResult(result)
}

func (s *Server) handleDeleteCard(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cardID, err := requireString(req.GetArguments(), "cardId")
	if err != nil {
		return nil, err
	}
	if err := s.cards.DeleteCard(cardID); err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Deleted card %s", cardID)), nil
}
