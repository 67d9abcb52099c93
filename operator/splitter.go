package operator

import (
	"context"
	"strings"

	"github.com/dshills/flowgraph-engine/graph"
)

// Splitter implements the `splitter` vertex (§4.5.7): breaks the inbound
// payload into an ordered chunk list, published as a JSON array a
// downstream `reducer` recognizes.
type Splitter struct{}

func (Splitter) Execute(_ context.Context, v *graph.Vertex, inbound string, pub graph.Publisher, _ <-chan struct{}) (string, error) {
	pub.NodeStart(v.ID)

	strategy, err := configString(v, "strategy", "fixed")
	if err != nil {
		return "", failNode(v.ID, pub, graph.KindOperatorBadConfig, err.Error(), err)
	}
	chunkSize, err := configInt(v, "chunk_size", 0)
	if err != nil {
		return "", failNode(v.ID, pub, graph.KindOperatorBadConfig, err.Error(), err)
	}
	if chunkSize <= 0 {
		return "", failNode(v.ID, pub, graph.KindOperatorBadConfig, "chunk_size must be > 0", nil)
	}
	overlap, err := configInt(v, "overlap", 0)
	if err != nil {
		return "", failNode(v.ID, pub, graph.KindOperatorBadConfig, err.Error(), err)
	}
	if overlap < 0 || overlap >= chunkSize {
		return "", failNode(v.ID, pub, graph.KindOperatorBadConfig, "overlap must satisfy 0 <= overlap < chunk_size", nil)
	}

	var chunks []string
	switch strategy {
	case "fixed":
		chunks = splitFixed(inbound, chunkSize)
	case "sliding":
		chunks = splitSliding(inbound, chunkSize, overlap)
	case "semantic":
		chunks = splitSemantic(inbound, chunkSize)
	default:
		return "", failNode(v.ID, pub, graph.KindOperatorBadConfig, "strategy: unknown "+strategy, nil)
	}

	result := encodeChunks(chunks)
	pub.NodeFinish(v.ID, result)
	return result, nil
}

// splitFixed breaks text into consecutive windows of chunkSize characters.
func splitFixed(text string, chunkSize int) []string {
	runes := []rune(text)
	var chunks []string
	for start := 0; start < len(runes); start += chunkSize {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// splitSliding breaks text into overlapping windows of chunkSize characters
// advancing by chunkSize-overlap characters per step.
func splitSliding(text string, chunkSize, overlap int) []string {
	runes := []rune(text)
	stride := chunkSize - overlap
	var chunks []string
	for start := 0; start < len(runes); start += stride {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// splitSemantic splits on blank-line paragraph boundaries, then greedily
// packs consecutive paragraphs into a chunk while the chunk stays within
// chunkSize bytes. A single paragraph is never split, so a paragraph
// longer than chunkSize becomes a chunk of its own that exceeds it.
func splitSemantic(text string, chunkSize int) []string {
	paragraphs := strings.Split(text, "\n\n")
	var chunks []string
	var current strings.Builder
	for _, p := range paragraphs {
		if current.Len() > 0 && current.Len()+len("\n\n")+len(p) > chunkSize {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(p)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}
