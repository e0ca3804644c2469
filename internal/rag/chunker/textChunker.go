package chunker

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/avellore/ragstack/internal/config"
	"github.com/avellore/ragstack/internal/domain/commonModels"
	"github.com/google/uuid"
)

// sentence boundaries: terminal punctuation followed by whitespace, or line breaks
var sentenceSplitter = regexp.MustCompile(`[.!?]+\s+|[\n\r]+`)

// TextChunker splits raw text into sentence-respecting chunks with a
// word-level overlap. It is stateless across calls - safe to share.
type TextChunker struct {
	chunkSize    int //soft character bound per chunk
	chunkOverlap int //trailing words carried into the next chunk
}

func NewTextChunker(chunkSize int, chunkOverlap int) *TextChunker {
	if chunkSize <= 0 {
		chunkSize = config.ChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = config.ChunkOverlap
	}
	return &TextChunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

// Chunk splits text into ordered DocumentChunks. chunk_index starts at 0 and
// increments per emitted chunk. Empty input yields an empty slice, no error.
// A single sentence longer than chunkSize is emitted whole - sentence
// integrity wins over the size bound.
func (c *TextChunker) Chunk(text string, documentID string, sourceURL string) []commonModels.DocumentChunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	sentences := splitIntoSentences(text)

	var chunks []commonModels.DocumentChunk
	var current string
	chunkIndex := 0

	for _, sentence := range sentences {
		if len(current)+len(sentence) > c.chunkSize && current != "" {
			chunks = append(chunks, c.newChunk(strings.TrimSpace(current), documentID, sourceURL, chunkIndex))

			if c.chunkOverlap > 0 {
				current = overlapTail(current, c.chunkOverlap) + " " + sentence
			} else {
				current = sentence
			}
			chunkIndex++
		} else {
			current += " " + sentence
		}
	}

	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, c.newChunk(strings.TrimSpace(current), documentID, sourceURL, chunkIndex))
	}

	return chunks
}

func splitIntoSentences(text string) []string {
	parts := sentenceSplitter.Split(text, -1)
	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			sentences = append(sentences, p)
		}
	}
	return sentences
}

// overlapTail returns the last overlapSize words of text, or the whole text
// when it has fewer words.
func overlapTail(text string, overlapSize int) string {
	words := strings.Fields(text)
	if len(words) <= overlapSize {
		return strings.TrimSpace(text)
	}
	return strings.Join(words[len(words)-overlapSize:], " ")
}

func (c *TextChunker) newChunk(content string, documentID string, sourceURL string, chunkIndex int) commonModels.DocumentChunk {
	prefix := content
	if len(prefix) > 50 {
		prefix = prefix[:50]
	}
	//deterministic id: same document + position + content prefix => same chunk id
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s_%d_%s", documentID, chunkIndex, prefix))).String()

	now := time.Now()
	return commonModels.DocumentChunk{
		ID:         id,
		DocumentID: documentID,
		SourceURL:  sourceURL,
		ChunkIndex: chunkIndex,
		Content:    content,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
