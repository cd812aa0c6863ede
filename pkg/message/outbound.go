package message

// Format selects how a channel interprets OutboundMessage.Text.
type Format string

const (
	// FormatPlain sends text verbatim.
	FormatPlain Format = ""
	// FormatMarkdown marks text as standard markdown (**bold**, `code`);
	// channels convert it to their own dialect and escape the rest.
	FormatMarkdown Format = "markdown"
)

// Document is a local file attached to an outbound message.
type Document struct {
	Path    string `json:"path"`
	Caption string `json:"caption,omitempty"`
}

// OutboundMessage represents a message to be sent through a channel.
// When Document is set the message carries the file and Text is ignored.
type OutboundMessage struct {
	Channel   string    `json:"channel"`
	Chat      Chat      `json:"chat"`
	ReplyToID string    `json:"reply_to_id,omitempty"`
	Text      string    `json:"text,omitempty"`
	Format    Format    `json:"format,omitempty"`
	Document  *Document `json:"document,omitempty"`
}

// NewReply creates a text message answering in the chat of in.
func NewReply(in InboundMessage, text string) OutboundMessage {
	return OutboundMessage{
		Channel: in.Channel,
		Chat:    in.Chat,
		Text:    text,
	}
}

// NewDocumentReply creates a message sending the file at path to the chat of in.
func NewDocumentReply(in InboundMessage, path, caption string) OutboundMessage {
	return OutboundMessage{
		Channel:  in.Channel,
		Chat:     in.Chat,
		Document: &Document{Path: path, Caption: caption},
	}
}
