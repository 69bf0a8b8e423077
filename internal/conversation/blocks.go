// Package conversation handles inbound WhatsApp messages end to end:
// session state, persistence, the assistant exchange and reply delivery.
package conversation

import "strings"

// BlockMarker separates listing cards in assistant replies so each card
// arrives as its own WhatsApp message.
const BlockMarker = "[PROPERTY_BLOCK]"

// SplitBlocks breaks a reply on block markers, dropping empty segments.
// Replies without markers come back as a single block.
func SplitBlocks(text string) []string {
	if !strings.Contains(text, BlockMarker) {
		return []string{text}
	}

	parts := strings.Split(text, BlockMarker)
	blocks := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			blocks = append(blocks, trimmed)
		}
	}
	return blocks
}

// StripMarkers removes block markers for persistence, so stored transcripts
// read as plain text.
func StripMarkers(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, BlockMarker, ""))
}
