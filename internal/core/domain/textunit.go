package domain

import (
	"fmt"
	"strings"
	"time"
)

type Granularity string

const (
	GranularityDocument Granularity = "document"
	GranularityChunk    Granularity = "chunk"
)

func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(strings.ToLower(strings.TrimSpace(s))) {
	case GranularityDocument:
		return GranularityDocument, nil
	case GranularityChunk, "":
		return GranularityChunk, nil
	default:
		return "", WrapError(ErrInvalidInput, "parse granularity", fmt.Errorf("unknown granularity %q", s))
	}
}

// SourceType tags which external origin produced a TextUnit.
type SourceType string

const (
	SourceFile      SourceType = "FILE"
	SourceExtension SourceType = "EXTENSION"
	SourceCrawled   SourceType = "CRAWLED_URL"
	SourceSlack     SourceType = "SLACK_CONNECTOR"
	SourceNotion    SourceType = "NOTION_CONNECTOR"
	SourceGitHub    SourceType = "GITHUB_CONNECTOR"
	SourceYouTube   SourceType = "YOUTUBE_VIDEO"
	SourceLinear    SourceType = "LINEAR_CONNECTOR"
	SourceDiscord   SourceType = "DISCORD_CONNECTOR"
)

var knownSourceTypes = map[SourceType]struct{}{
	SourceFile:      {},
	SourceExtension: {},
	SourceCrawled:   {},
	SourceSlack:     {},
	SourceNotion:    {},
	SourceGitHub:    {},
	SourceYouTube:   {},
	SourceLinear:    {},
	SourceDiscord:   {},
}

func ParseSourceType(s string) (SourceType, error) {
	st := SourceType(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := knownSourceTypes[st]; !ok {
		return "", WrapError(ErrInvalidInput, "parse source type", fmt.Errorf("unknown source type %q", s))
	}
	return st, nil
}

// TextUnit is an indexed piece of searchable content at document or chunk
// granularity. DocumentID is empty for document-granularity units.
type TextUnit struct {
	ID          string         `json:"id"`
	DocumentID  string         `json:"document_id,omitempty"`
	WorkspaceID int64          `json:"workspace_id"`
	Granularity Granularity    `json:"granularity"`
	SourceType  SourceType     `json:"source_type"`
	Content     string         `json:"content"`
	Metadata    SourceMetadata `json:"metadata,omitempty"`
	Score       float64        `json:"score"`
	CreatedAt   time.Time      `json:"created_at"`
}
