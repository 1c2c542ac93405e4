// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arbiter Contributors

package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/arbiter-ai/arbiter/internal/agent"
	"github.com/arbiter-ai/arbiter/internal/vector"
	arberr "github.com/arbiter-ai/arbiter/pkg/errors"
)

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "submit-query",
		Method:      http.MethodPost,
		Path:        "/api/v1/query",
		Summary:     "Route and answer a query",
		Tags:        []string{"query"},
	}, s.handleQuery)

	huma.Register(s.api, huma.Operation{
		OperationID: "ingest-document",
		Method:      http.MethodPost,
		Path:        "/api/v1/documents",
		Summary:     "Ingest a text document into the vector store",
		Tags:        []string{"documents"},
	}, s.handleIngestDocument)

	huma.Register(s.api, huma.Operation{
		OperationID: "import-csv",
		Method:      http.MethodPost,
		Path:        "/api/v1/tables",
		Summary:     "Import a CSV file as a database table",
		Tags:        []string{"tables"},
	}, s.handleImportCSV)

	huma.Register(s.api, huma.Operation{
		OperationID: "system-status",
		Method:      http.MethodGet,
		Path:        "/api/v1/status",
		Summary:     "System status",
		Tags:        []string{"system"},
	}, s.handleStatus)
}

// --- Request/Response types for huma ---

type queryInput struct {
	Body struct {
		Query string `json:"query" minLength:"1" doc:"The user query to route and answer"`
	}
}
type queryOutput struct {
	Body struct {
		QueryID    string                  `json:"query_id" doc:"Unique ID assigned to this query"`
		Success    bool                    `json:"success" doc:"Whether a handler produced a confident answer"`
		Response   string                  `json:"response" doc:"The answer text"`
		Agent      string                  `json:"agent" doc:"Name of the handler that answered"`
		RoutedTo   string                  `json:"routed_to" doc:"Handler kind the supervisor chose"`
		Confidence float64                 `json:"confidence" doc:"Handler confidence in [0,1]"`
		Metadata   map[string]any          `json:"metadata,omitempty" doc:"Handler-specific details"`
		Transcript []agent.TranscriptEntry `json:"transcript,omitempty" doc:"Workflow states visited"`
	}
}

type ingestDocumentInput struct {
	Body struct {
		Filename string `json:"filename" minLength:"1" doc:"Source document name"`
		Content  string `json:"content" minLength:"1" doc:"Raw document text"`
	}
}
type ingestDocumentOutput struct {
	Body struct {
		DocumentID string `json:"document_id" doc:"ID assigned to the document"`
		Documents  int    `json:"documents" doc:"Total chunks in the vector store after ingestion"`
	}
}

type importCSVInput struct {
	Body struct {
		Filename string `json:"filename" minLength:"1" doc:"CSV file name, used to derive the table name"`
		Content  string `json:"content" minLength:"1" doc:"Raw CSV content with a header row"`
	}
}
type importCSVOutput struct {
	Body struct {
		Table string `json:"table" doc:"Name of the created table"`
		Rows  int    `json:"rows" doc:"Number of rows imported"`
	}
}

type statusOutput struct {
	Body struct {
		Status      string `json:"status" example:"ok" doc:"Gateway status"`
		Database    string `json:"database" doc:"Schema summary or availability note"`
		VectorStore struct {
			Available bool `json:"available" doc:"Whether embeddings can be computed"`
			Documents int  `json:"documents" doc:"Chunks stored in the index"`
			Dimension int  `json:"dimension" doc:"Embedding dimension"`
		} `json:"vector_store"`
	}
}

// --- Handlers ---

func (s *Server) handleQuery(ctx context.Context, input *queryInput) (*queryOutput, error) {
	if s.services == nil || s.services.Workflow == nil {
		return nil, huma.Error503ServiceUnavailable("query workflow not configured")
	}
	if strings.TrimSpace(input.Body.Query) == "" {
		return nil, huma.Error422UnprocessableEntity("query must not be blank",
			arberr.New(arberr.CodeServerRequestInvalid, "server: blank query"))
	}

	result := s.services.Workflow.Process(ctx, input.Body.Query)

	out := &queryOutput{}
	out.Body.QueryID = result.QueryID
	out.Body.Success = result.Success
	out.Body.Response = result.Response
	out.Body.Agent = result.Agent
	out.Body.RoutedTo = string(result.RoutedTo)
	out.Body.Confidence = result.Confidence
	out.Body.Metadata = result.Metadata
	out.Body.Transcript = result.Transcript
	return out, nil
}

func (s *Server) handleIngestDocument(ctx context.Context, input *ingestDocumentInput) (*ingestDocumentOutput, error) {
	if s.services == nil || s.services.Engine == nil {
		return nil, huma.Error503ServiceUnavailable("document store not configured")
	}

	docID := uuid.NewString()
	meta := vector.Metadata{
		"document_id": docID,
		"filename":    input.Body.Filename,
	}

	if err := s.services.Engine.Ingest(ctx, input.Body.Content, meta); err != nil {
		return nil, huma.Error422UnprocessableEntity("ingesting document", err)
	}

	out := &ingestDocumentOutput{}
	out.Body.DocumentID = docID
	out.Body.Documents = s.services.Engine.Status().Documents
	return out, nil
}

func (s *Server) handleImportCSV(ctx context.Context, input *importCSVInput) (*importCSVOutput, error) {
	if s.services == nil || s.services.Store == nil {
		return nil, huma.Error503ServiceUnavailable("database not configured")
	}

	table, rows, err := s.services.Store.ImportCSV(ctx, strings.NewReader(input.Body.Content), input.Body.Filename)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("importing csv", err)
	}

	out := &importCSVOutput{}
	out.Body.Table = table
	out.Body.Rows = rows
	return out, nil
}

func (s *Server) handleStatus(ctx context.Context, _ *struct{}) (*statusOutput, error) {
	out := &statusOutput{}
	out.Body.Status = "ok"
	out.Body.Database = "Database not available"

	if s.services != nil && s.services.Store != nil && s.services.Store.Connected() {
		schema, err := s.services.Store.Describe(ctx)
		if err != nil {
			out.Body.Database = "Schema inspection failed"
		} else {
			out.Body.Database = schema
		}
	}

	if s.services != nil && s.services.Engine != nil {
		st := s.services.Engine.Status()
		out.Body.VectorStore.Available = st.Available
		out.Body.VectorStore.Documents = st.Documents
		out.Body.VectorStore.Dimension = st.Dimension
	}

	return out, nil
}
