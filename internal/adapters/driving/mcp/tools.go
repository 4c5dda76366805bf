package mcp

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/fundlink/internal/core/domain"
	"github.com/custodia-labs/fundlink/internal/core/services"
)

const (
	defaultResults = 5
	maxResults     = 50
)

// QueryInput is the input schema for the query_funds tool.
type QueryInput struct {
	Query    string `json:"query" jsonschema:"the question about a mutual fund"`
	NResults int    `json:"n_results,omitempty" jsonschema:"maximum number of results to return (default 5)"`
	AMCName  string `json:"amc_name,omitempty" jsonschema:"restrict results to one asset management company"`
}

// QueryOutput is the output schema for the query_funds tool.
type QueryOutput struct {
	Results []QueryResultOutput `json:"results"`
	Count   int                 `json:"count"`
}

// QueryResultOutput is one ranked chunk with its citation.
type QueryResultOutput struct {
	ChunkID   string          `json:"chunk_id"`
	Content   string          `json:"content"`
	AMCName   string          `json:"amc_name,omitempty"`
	SourceURL string          `json:"source_url,omitempty"`
	Score     float64         `json:"score"`
	Citation  domain.Citation `json:"citation"`
}

// ResolveInput is the input schema for the resolve_link tool.
type ResolveInput struct {
	Text      string `json:"text" jsonschema:"the content or question to classify"`
	SourceURL string `json:"source_url,omitempty" jsonschema:"where the content came from"`
	AMCName   string `json:"amc_name,omitempty" jsonschema:"asset management company name"`
	FundURL   string `json:"fund_url,omitempty" jsonschema:"a platform fund page identifying the scheme"`
}

// ResolveOutput is the output schema for the resolve_link tool.
type ResolveOutput struct {
	Category string `json:"category,omitempty"`
	URL      string `json:"url,omitempty"`
	Message  string `json:"message"`
}

// StatsInput is the (empty) input schema for the source_stats tool.
type StatsInput struct{}

// StatsOutput is the output schema for the source_stats tool.
type StatsOutput struct {
	Sources  *domain.SourceStatistics `json:"sources,omitempty"`
	LastRun  *domain.PipelineStats    `json:"last_run,omitempty"`
	Chunks   int                      `json:"indexed_chunks"`
	Platform string                   `json:"platform"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "query_funds",
		Description: "Search indexed mutual fund content and cite the best link for each answer",
	}, s.handleQuery)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "resolve_link",
		Description: "Map a piece of fund content to its canonical platform page",
	}, s.handleResolve)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "source_stats",
		Description: "Summarise tracked sources, the index size and the last ingestion run",
	}, s.handleStats)
}

// handleQuery handles the query_funds tool invocation.
func (s *Server) handleQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, QueryOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, QueryOutput{}, errors.New("query is required")
	}

	n := input.NResults
	if n <= 0 {
		n = defaultResults
	}
	n = min(n, maxResults)

	req := domain.QueryRequest{Text: input.Query, NResults: n}
	if input.AMCName != "" {
		req.Where = map[string]any{domain.MetaAMCName: input.AMCName}
	}

	results, err := s.ports.Index.Query(ctx, req)
	if err != nil {
		return nil, QueryOutput{}, err
	}

	output := QueryOutput{
		Results: make([]QueryResultOutput, len(results)),
		Count:   len(results),
	}
	for i := range results {
		output.Results[i] = QueryResultOutput{
			ChunkID:   results[i].ChunkID,
			Content:   results[i].Content,
			AMCName:   domain.MetadataString(results[i].Metadata, domain.MetaAMCName),
			SourceURL: results[i].SourceURL(),
			Score:     results[i].Score,
			Citation:  services.Cite(s.ports.Resolver, input.Query, results[i]),
		}
	}

	return nil, output, nil
}

// handleResolve handles the resolve_link tool invocation.
func (s *Server) handleResolve(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ResolveInput,
) (*mcp.CallToolResult, ResolveOutput, error) {
	meta := map[string]any{}
	if input.AMCName != "" {
		meta[domain.MetaAMCName] = input.AMCName
	}
	if input.FundURL != "" {
		meta[domain.MetaFundURL] = input.FundURL
	}

	chunk := domain.Chunk{
		Content:   input.Text,
		SourceURL: input.SourceURL,
		Metadata:  meta,
	}
	resolver := s.ports.Resolver
	category := resolver.IdentifyInfoCategory(input.Text)
	link := resolver.Resolve(chunk)
	primary, _ := resolver.Priority(input.Text, chunk, link)

	return nil, ResolveOutput{
		Category: category,
		URL:      link,
		Message:  resolver.FallbackMessage(category, primary),
	}, nil
}

// handleStats handles the source_stats tool invocation.
func (s *Server) handleStats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ StatsInput,
) (*mcp.CallToolResult, StatsOutput, error) {
	count, err := s.ports.Index.Count(ctx)
	if err != nil {
		return nil, StatsOutput{}, err
	}

	output := StatsOutput{
		Chunks:   count,
		Platform: s.ports.Resolver.Catalog().Platform.Name,
	}
	if s.ports.Sources != nil {
		stats := s.ports.Sources.Statistics()
		output.Sources = &stats
	}
	if s.ports.Pipeline != nil {
		last, err := s.ports.Pipeline.LastStats(ctx)
		switch {
		case err == nil:
			output.LastRun = last
		case !errors.Is(err, domain.ErrArtifactMissing):
			return nil, StatsOutput{}, err
		}
	}

	return nil, output, nil
}
