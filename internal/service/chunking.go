package service

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lectern-ai/lectern/internal/domain"
)

// ChunkConfig controls how lesson text is split for content embeddings.
type ChunkConfig struct {
	ChunkSize    int
	ChunkOverlap int
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		ChunkSize:    800,
		ChunkOverlap: 100,
	}
}

var sentenceBoundary = regexp.MustCompile(`[.!?]+\s+`)

// splitSentences breaks text into trimmed sentences at terminator-plus-
// whitespace boundaries. Punctuation inside a token (URLs, decimals, "3.5")
// does not split, and every rune of the input lands in exactly one sentence;
// text without terminal punctuation comes back as a single sentence.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	for _, loc := range sentenceBoundary.FindAllStringIndex(text, -1) {
		if s := strings.TrimSpace(text[start:loc[1]]); s != "" {
			sentences = append(sentences, s)
		}
		start = loc[1]
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// chunkText splits text into sentence-bounded segments of at most
// cfg.ChunkSize characters with roughly cfg.ChunkOverlap characters of
// overlap between consecutive segments. A single sentence longer than the
// chunk size is hard-split. The function is pure: identical input and config
// always produce the identical segment sequence.
func chunkText(text string, cfg ChunkConfig) []string {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return nil
	}
	if cfg.ChunkSize <= 0 {
		cfg = DefaultChunkConfig()
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = 0
	}

	var sentences []string
	for _, s := range splitSentences(clean) {
		// Hard-split sentences that cannot fit a chunk on their own.
		runes := []rune(s)
		for len(runes) > cfg.ChunkSize {
			sentences = append(sentences, string(runes[:cfg.ChunkSize]))
			runes = runes[cfg.ChunkSize:]
		}
		if len(runes) > 0 {
			sentences = append(sentences, string(runes))
		}
	}

	var chunks []string
	i := 0
	for i < len(sentences) {
		end := i
		size := 0
		for end < len(sentences) {
			next := len(sentences[end])
			if end > i {
				next++ // joining space
			}
			if size+next > cfg.ChunkSize {
				break
			}
			size += next
			end++
		}
		if end == i {
			end = i + 1
		}
		chunks = append(chunks, strings.Join(sentences[i:end], " "))
		if end >= len(sentences) {
			break
		}

		// Step back over trailing sentences until roughly ChunkOverlap
		// characters are repeated at the start of the next chunk.
		next := end
		overlap := 0
		for next > i+1 && overlap+len(sentences[next-1]) <= cfg.ChunkOverlap {
			overlap += len(sentences[next-1]) + 1
			next--
		}
		i = next
	}

	return chunks
}

// chunkPrefix renders the provenance prefix embedded ahead of every chunk so
// the vector captures where the text came from.
func chunkPrefix(courseTitle string, lessonNumber *int) string {
	if lessonNumber == nil {
		return fmt.Sprintf("Course %s content: ", courseTitle)
	}
	return fmt.Sprintf("Course %s Lesson %d content: ", courseTitle, *lessonNumber)
}

// BuildCourseChunks turns a parsed course document into the ordered chunk
// sequence stored in the content collection. Chunk indexes run across the
// whole course and are the deterministic part of each chunk's identity.
func BuildCourseChunks(doc *domain.CourseDocument, cfg ChunkConfig) []domain.Chunk {
	if doc == nil || doc.Course == nil {
		return nil
	}

	var out []domain.Chunk
	index := 0
	for _, section := range doc.Contents {
		for _, segment := range chunkText(section.Text, cfg) {
			var lesson *int
			if section.LessonNumber != nil {
				n := *section.LessonNumber
				lesson = &n
			}
			out = append(out, domain.Chunk{
				CourseTitle:  doc.Course.Title,
				LessonNumber: lesson,
				ChunkIndex:   index,
				Content:      chunkPrefix(doc.Course.Title, lesson) + segment,
			})
			index++
		}
	}
	return out
}
