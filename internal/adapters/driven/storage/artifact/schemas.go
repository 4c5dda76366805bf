package artifact

import "github.com/custodia-labs/fundlink/internal/core/domain"

const summarySchema = `{
	"type": "object",
	"properties": {
		"total_documents": {"type": "integer", "minimum": 0},
		"total_chunks": {"type": "integer", "minimum": 0},
		"embedding_model": {"type": "string"}
	}
}`

const scrapedSchema = `{
	"type": "object",
	"required": ["scraped_content"],
	"properties": {
		"scraped_content": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["url", "content"],
				"properties": {
					"url": {"type": "string"},
					"amc_name": {"type": "string"},
					"amc_id": {"type": "string"},
					"title": {"type": "string"},
					"content": {"type": "string"},
					"scraped_at": {"type": "string"}
				}
			}
		},
		"metadata": ` + summarySchema + `
	}
}`

const processedSchema = `{
	"type": "object",
	"required": ["processed_documents"],
	"properties": {
		"processed_documents": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["content", "metadata"],
				"properties": {
					"content": {"type": "string"},
					"structured_info": {"type": ["object", "null"]},
					"metadata": {"type": "object"}
				}
			}
		},
		"metadata": ` + summarySchema + `
	}
}`

// chunkItem is shared by the three chunk artifacts. embedded adds the
// embedding requirement.
const chunkItem = `{
	"type": "object",
	"required": ["chunk_id", "content", "chunk_index"],
	"properties": {
		"chunk_id": {"type": "string", "minLength": 1},
		"content": {"type": "string"},
		"chunk_index": {"type": "integer", "minimum": 0},
		"source_url": {"type": "string"},
		"metadata": {"type": ["object", "null"]},
		"embedding": {"type": "array", "items": {"type": "number"}},
		"embedding_model": {"type": "string"},
		"embedding_dimension": {"type": "integer"},
		"groww_page_url": {"type": ["string", "null"]}
	}
}`

const chunksSchema = `{
	"type": "object",
	"required": ["chunks"],
	"properties": {
		"chunks": {"type": "array", "items": ` + chunkItem + `},
		"metadata": ` + summarySchema + `
	}
}`

const embeddedSchema = `{
	"type": "object",
	"required": ["chunks"],
	"properties": {
		"chunks": {
			"type": "array",
			"items": {
				"allOf": [
					` + chunkItem + `,
					{"required": ["embedding"], "properties": {"embedding": {"minItems": 1}}}
				]
			}
		},
		"metadata": ` + summarySchema + `
	}
}`

const statsSchema = `{
	"type": "object",
	"required": ["run_id", "state", "start_time", "errors"],
	"properties": {
		"run_id": {"type": "string"},
		"state": {"enum": ["idle", "scraped", "processed", "chunked", "embedded", "mapped", "stored", "done"]},
		"start_time": {"type": "string"},
		"end_time": {"type": ["string", "null"]},
		"duration_seconds": {"type": "number"},
		"errors": {"type": "array", "items": {"type": "string"}}
	}
}`

const issueList = `{
	"type": ["array", "null"],
	"items": {
		"type": "object",
		"required": ["type", "index"],
		"properties": {
			"type": {"type": "string", "minLength": 1},
			"index": {"type": "integer"}
		}
	}
}`

const validationSchema = `{
	"type": "object",
	"required": ["generated_at"],
	"properties": {
		"generated_at": {"type": "string"},
		"scraped_data": {"type": "object", "properties": {"issues": ` + issueList + `}},
		"processed_docs": {"type": "object", "properties": {"issues": ` + issueList + `}},
		"chunks": {"type": "object", "properties": {"issues": ` + issueList + `}},
		"embeddings": {"type": "object", "properties": {"issues": ` + issueList + `}},
		"platform_mappings": {"type": "object", "properties": {"issues": ` + issueList + `}}
	}
}`

var schemas = map[string]string{
	domain.ArtifactScraped:    scrapedSchema,
	domain.ArtifactProcessed:  processedSchema,
	domain.ArtifactChunks:     chunksSchema,
	domain.ArtifactEmbedded:   embeddedSchema,
	domain.ArtifactFinal:      embeddedSchema,
	domain.ArtifactStats:      statsSchema,
	domain.ArtifactValidation: validationSchema,
}
