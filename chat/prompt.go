package chat

import "strings"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one (role, message) entry of the session transcript.
type Turn struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

// AssembleContext flattens retrieved unit texts into one context string, one
// unit per line, preserving retrieval order. Empty input yields an empty
// string; the prompt template stays well-formed either way.
func AssembleContext(texts []string) string {
	return strings.Join(texts, "\n")
}

// HistoryWindow returns at most the last n turns of the transcript.
func HistoryWindow(turns []Turn, n int) []Turn {
	if n <= 0 || len(turns) <= n {
		return turns
	}
	return turns[len(turns)-n:]
}

// FormatHistory renders turns chronologically, one per line. Any role other
// than RoleUser renders as the assistant.
func FormatHistory(turns []Turn) string {
	var sb strings.Builder
	for _, turn := range turns {
		if turn.Role == RoleUser {
			sb.WriteString("User: ")
		} else {
			sb.WriteString("Assistant: ")
		}
		sb.WriteString(turn.Message)
		sb.WriteString("\n")
	}
	return sb.String()
}

// ComposePrompt combines context, rendered history and the new question into
// the single instruction string sent to the generation endpoint. The section
// ordering and labels are the only mechanism steering the model, so they are
// fixed: policy header, "PDF Context:", "Chat History:", the user question,
// and an open "Assistant:" continuation marker.
func ComposePrompt(context, history, question string) string {
	var sb strings.Builder
	sb.WriteString("You are a helpful assistant. Answer as briefly and directly as possible, ")
	sb.WriteString("using the provided context from the PDF whenever it is relevant. ")
	sb.WriteString("For general questions that are not about the document you may answer from your own knowledge. ")
	sb.WriteString("If the answer cannot be found, say it is not in the PDF instead of guessing.\n\n")
	sb.WriteString("PDF Context:\n")
	sb.WriteString(context)
	sb.WriteString("\n\n")
	sb.WriteString("Chat History:\n")
	sb.WriteString(history)
	sb.WriteString("\n")
	sb.WriteString("User: ")
	sb.WriteString(question)
	sb.WriteString("\nAssistant:")
	return sb.String()
}
