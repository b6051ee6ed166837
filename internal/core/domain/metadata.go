package domain

// SourceMetadata is the per-origin metadata variant attached to a TextUnit.
// Each source type carries its own typed payload instead of an untyped map so
// consumers can switch exhaustively on the concrete variant.
type SourceMetadata interface {
	SourceType() SourceType
}

type FileMetadata struct {
	Filename string `json:"filename"`
	MimeType string `json:"mime_type,omitempty"`
}

func (FileMetadata) SourceType() SourceType { return SourceFile }

type PageMetadata struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

func (PageMetadata) SourceType() SourceType { return SourceCrawled }

type ExtensionMetadata struct {
	URL       string `json:"url"`
	Title     string `json:"title,omitempty"`
	VisitedAt string `json:"visited_at,omitempty"`
}

func (ExtensionMetadata) SourceType() SourceType { return SourceExtension }

type SlackMetadata struct {
	ChannelID   string `json:"channel_id"`
	ChannelName string `json:"channel_name,omitempty"`
}

func (SlackMetadata) SourceType() SourceType { return SourceSlack }

type NotionMetadata struct {
	PageID string `json:"page_id"`
	Title  string `json:"title,omitempty"`
}

func (NotionMetadata) SourceType() SourceType { return SourceNotion }

type GitHubMetadata struct {
	Repository string `json:"repository"`
	Path       string `json:"path,omitempty"`
}

func (GitHubMetadata) SourceType() SourceType { return SourceGitHub }

type YouTubeMetadata struct {
	VideoID string `json:"video_id"`
	Title   string `json:"title,omitempty"`
}

func (YouTubeMetadata) SourceType() SourceType { return SourceYouTube }

type LinearMetadata struct {
	IssueID string `json:"issue_id"`
	Team    string `json:"team,omitempty"`
}

func (LinearMetadata) SourceType() SourceType { return SourceLinear }

type DiscordMetadata struct {
	ChannelID string `json:"channel_id"`
	GuildID   string `json:"guild_id,omitempty"`
}

func (DiscordMetadata) SourceType() SourceType { return SourceDiscord }

// DecodeSourceMetadata builds the typed variant for a source type from the raw
// key/value payload stored alongside the index entry. Unknown keys are ignored;
// missing keys leave zero values.
func DecodeSourceMetadata(st SourceType, raw map[string]any) SourceMetadata {
	get := func(key string) string {
		v, ok := raw[key]
		if !ok {
			return ""
		}
		s, _ := v.(string)
		return s
	}

	switch st {
	case SourceFile:
		return FileMetadata{Filename: get("filename"), MimeType: get("mime_type")}
	case SourceCrawled:
		return PageMetadata{URL: get("url"), Title: get("title")}
	case SourceExtension:
		return ExtensionMetadata{URL: get("url"), Title: get("title"), VisitedAt: get("visited_at")}
	case SourceSlack:
		return SlackMetadata{ChannelID: get("channel_id"), ChannelName: get("channel_name")}
	case SourceNotion:
		return NotionMetadata{PageID: get("page_id"), Title: get("title")}
	case SourceGitHub:
		return GitHubMetadata{Repository: get("repository"), Path: get("path")}
	case SourceYouTube:
		return YouTubeMetadata{VideoID: get("video_id"), Title: get("title")}
	case SourceLinear:
		return LinearMetadata{IssueID: get("issue_id"), Team: get("team")}
	case SourceDiscord:
		return DiscordMetadata{ChannelID: get("channel_id"), GuildID: get("guild_id")}
	default:
		return nil
	}
}
