package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/ersonp/termgraph/internal/domain/apperrors"
	"github.com/ersonp/termgraph/internal/domain/services"
	"github.com/ersonp/termgraph/internal/infrastructure/parsers"
)

// ImportHandler handles importing glossaries from files.
type ImportHandler struct {
	service *services.ImportService
}

// NewImportHandler creates a new import handler.
func NewImportHandler(service *services.ImportService) *ImportHandler {
	return &ImportHandler{
		service: service,
	}
}

// ImportOptions controls import behavior.
type ImportOptions struct {
	Format     string // "json", "csv", or "auto"
	DryRun     bool   // Validate without saving
	OnConflict string // "skip" (default) or "overwrite"
}

// Handle imports terms and relationships from a file.
func (h *ImportHandler) Handle(ctx context.Context, filePath string, opts ImportOptions) (*services.ImportResult, error) {
	onConflict, err := services.ParseConflictStrategy(opts.OnConflict)
	if err != nil {
		return nil, err
	}

	var parser parsers.Parser
	if opts.Format == "" || opts.Format == "auto" {
		parser = parsers.ForFile(filePath)
	} else {
		parser = parsers.ForFormat(opts.Format)
	}

	if parser == nil {
		return nil, fmt.Errorf("unsupported format for file: %s: %w", filePath, apperrors.ErrInvalidArgument)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer file.Close()

	glossary, err := parser.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("parsing file: %w", err)
	}

	if glossary.Len() == 0 {
		return &services.ImportResult{}, nil
	}

	return h.service.Import(ctx, glossary, services.ImportOptions{
		DryRun:     opts.DryRun,
		OnConflict: onConflict,
	})
}
