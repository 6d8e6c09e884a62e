package models

// Chunk is a bounded span of text extracted from one material, the unit of
// embedding and retrieval. Ordinal is the chunk's position within its
// material and is stable across re-ingestions of identical content.
type Chunk struct {
	Content string
	Page    int
	Ordinal int
}

// Citation points back at an indexed chunk that supported an answer.
type Citation struct {
	MaterialID string  `json:"materialId"`
	Source     string  `json:"source"`
	Page       int     `json:"page"`
	Ordinal    int     `json:"ordinal"`
	Content    string  `json:"content"`
	Score      float32 `json:"score"`
}

// Answer is the synthesized response to a question, with the chunks used to
// produce it. Not persisted.
type Answer struct {
	Text      string     `json:"answer"`
	Citations []Citation `json:"citations,omitempty"`
}

// IngestState tracks the ingestion pipeline's progress for one material.
type IngestState string

const (
	StateReceived IngestState = "received"
	StateLoaded   IngestState = "loaded"
	StateChunked  IngestState = "chunked"
	StateEmbedded IngestState = "embedded"
	StateIndexed  IngestState = "indexed"
	StateComplete IngestState = "complete"
	StateFailed   IngestState = "failed"
)

// IngestReport summarizes one ingestion run.
type IngestReport struct {
	RunID          string      `json:"runId"`
	Subject        string      `json:"subject"`
	MaterialID     string      `json:"materialId"`
	Source         string      `json:"source"`
	State          IngestState `json:"state"`
	ChunksIndexed  int         `json:"chunksIndexed"`
	FailedOrdinals []int       `json:"failedOrdinals,omitempty"`
	Note           string      `json:"note,omitempty"`
}
