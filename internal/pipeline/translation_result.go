package pipeline

import "github.com/oukeidos/mdtrans/internal/llm"

// TranslationStatus is the terminal state of a translation run.
type TranslationStatus string

const (
	TranslationStatusSuccess        TranslationStatus = "Success"
	TranslationStatusPartialSuccess TranslationStatus = "Partial Success"
	TranslationStatusFailure        TranslationStatus = "Failure"
	TranslationStatusSkipped        TranslationStatus = "Skipped"
)

// TranslationResult contains structured outputs from RunTranslation.
type TranslationResult struct {
	RunID        string
	Status       TranslationStatus
	ReportPath   string
	OutputPath   string
	Usage        llm.Usage
	FailedChunks int
	TotalChunks  int
	Split        bool
}

// statusFor maps failure counts to a status. A run with nothing to
// translate is a success.
func statusFor(failed, total int) TranslationStatus {
	switch {
	case failed == 0:
		return TranslationStatusSuccess
	case failed < total:
		return TranslationStatusPartialSuccess
	default:
		return TranslationStatusFailure
	}
}
