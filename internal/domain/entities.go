package domain

import "time"

// Fragment is a contiguous span of document words, the unit of retrieval.
type Fragment struct {
	Ordinal int    `json:"ordinal"`
	Text    string `json:"text"`
}

type ScoredFragment struct {
	Fragment Fragment
	Score    float64
}

// DocumentInfo describes an ingested document.
type DocumentInfo struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	FragmentCount int       `json:"fragment_count"`
	Model         string    `json:"model"`
	Dimension     int       `json:"dimension"`
	IngestedAt    time.Time `json:"ingested_at"`
}

// AnswerContext is the retrieval result handed to the generator.
type AnswerContext struct {
	Context   string
	Fragments []ScoredFragment
}

type Answer struct {
	Text          string `json:"answer"`
	FragmentsUsed int    `json:"relevant_chunks_used"`
}
