package parser

import (
	"context"
	"fmt"
	"log/slog"

	"HNWatcher/internal/domain"
	"HNWatcher/internal/ports"
	"HNWatcher/internal/scanner"
)

// StrategySource implements ItemSource via the scanner strategy selected in config.
type StrategySource struct {
	strategy scanner.Scanner
	logger   *slog.Logger
}

var _ ports.ItemSource = (*StrategySource)(nil)

// NewStrategySource resolves kind in the registry.
func NewStrategySource(reg *scanner.Registry, kind string, log *slog.Logger) (*StrategySource, error) {
	if reg == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}
	strategy, err := reg.Resolve(kind)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", kind, err)
	}
	return &StrategySource{strategy: strategy, logger: log}, nil
}

// Kind reports the strategy in use.
func (s *StrategySource) Kind() string {
	return s.strategy.Name()
}

// RankedIDs delegates to the configured strategy.
func (s *StrategySource) RankedIDs(ctx context.Context, limit int) ([]domain.ItemID, error) {
	s.debug("fetch ranked ids", "scanner", s.strategy.Name(), "limit", limit)
	ids, err := s.strategy.RankedIDs(ctx, limit)
	if err != nil {
		return nil, err
	}
	s.debug("ranked ids fetched", "scanner", s.strategy.Name(), "count", len(ids))
	return ids, nil
}

// Item delegates to the configured strategy.
func (s *StrategySource) Item(ctx context.Context, id domain.ItemID) (domain.ItemMetadata, error) {
	s.debug("fetch item", "scanner", s.strategy.Name(), "id", id.String())
	return s.strategy.Item(ctx, id)
}

func (s *StrategySource) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
