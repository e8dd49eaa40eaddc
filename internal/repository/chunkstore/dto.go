package chunkstore

import (
	"encoding/binary"
	"math"
	"strconv"

	"github.com/sievelab/paperdex/internal/db"
	"github.com/sievelab/paperdex/internal/domain"
)

// Hash field names for the chunk record. fieldVector holds raw little-endian
// float32 bytes as required by FT vector indexing over HASH storage.
const (
	fieldDoc       = "doc"
	fieldSeq       = "seq"
	fieldText      = "text"
	fieldPageStart = "page_start"
	fieldPageEnd   = "page_end"
	fieldVector    = "vector"
)

// buildHashFields converts a domain Chunk into a flat map[string]string for HSET.
func buildHashFields(ch *domain.Chunk) map[string]string {
	return map[string]string{
		fieldDoc:       ch.DocumentID,
		fieldSeq:       strconv.Itoa(ch.Seq),
		fieldText:      ch.Text,
		fieldPageStart: strconv.Itoa(ch.PageStart),
		fieldPageEnd:   strconv.Itoa(ch.PageEnd),
		fieldVector:    vectorToBytes(ch.Vector),
	}
}

// parseSearchEntry converts an FT.SEARCH hit back into a scored chunk.
// The vector itself is not returned by retrieval queries.
func parseSearchEntry(entry db.SearchEntry) domain.ScoredChunk {
	sc := domain.ScoredChunk{Score: entry.Score}
	sc.DocumentID = entry.Fields[fieldDoc]
	sc.Text = entry.Fields[fieldText]
	if n, err := strconv.Atoi(entry.Fields[fieldSeq]); err == nil {
		sc.Seq = n
	}
	if n, err := strconv.Atoi(entry.Fields[fieldPageStart]); err == nil {
		sc.PageStart = n
	}
	if n, err := strconv.Atoi(entry.Fields[fieldPageEnd]); err == nil {
		sc.PageEnd = n
	}
	return sc
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
