package models

import "context"

// ChartReader sends a chart image to an LLM and returns its raw text answer
type ChartReader interface {
	ReadChart(ctx context.Context, image ChartImage, hints ChartHints) (string, error)
}

// AnalysisStore persists analyses per user
type AnalysisStore interface {
	SaveAnalysis(ctx context.Context, a *Analysis) error
	GetAnalysis(ctx context.Context, userID, id string) (*Analysis, error)
	ListAnalyses(ctx context.Context, userID string, limit int) ([]Analysis, error)
	DeleteAnalysis(ctx context.Context, userID, id string) (bool, error)
}
