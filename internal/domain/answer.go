package domain

// Answer is the generated response to a question, paired with the chunk
// references the generation was conditioned on. Transient: never persisted.
type Answer struct {
	Text    string
	Model   string
	Sources []Source
}

// Source is one supporting chunk reference in an answer.
type Source struct {
	ChunkID   string
	Seq       int
	Excerpt   string
	Score     float64
	PageStart int
	PageEnd   int
}
