package models

const (
	ReportLabel   = "User report:\n"
	QuestionLabel = "\n\nQuestion: "
	ChunkJoiner   = "\n"

	DefaultFallbackMessage = "This is a demo response. Connect your API keys for real answers."
)

// Mode selects which transcript a question belongs to
type Mode string

const (
	ModeGeneral Mode = "general"
	ModeReport  Mode = "report"
)

// ParseMode returns the mode for s, or false when s names no mode
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeGeneral, ModeReport:
		return Mode(s), true
	}
	return "", false
}
