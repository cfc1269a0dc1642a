package manifest

import "time"

type FileStatus string

const (
	StatusSplit  FileStatus = "split"
	StatusFailed FileStatus = "failed"
)

type SpecFile struct {
	ID           int64      `json:"id"`
	Path         string     `json:"path"`
	Stem         string     `json:"stem"`
	ContentHash  string     `json:"content_hash"`
	Encoding     string     `json:"encoding"`
	RecordCount  int        `json:"record_count"`
	Status       FileStatus `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	SplitAt      time.Time  `json:"split_at"`
}

// Example is one written output file. Section, Example and the line range
// are known only for records that carry them.
type Example struct {
	ID         int64  `json:"id"`
	FileID     int64  `json:"file_id"`
	SpecPath   string `json:"spec_path"`
	Stem       string `json:"stem"`
	Number     int    `json:"number"`
	OutputPath string `json:"output_path"`
	Section    string `json:"section,omitempty"`
	Example    int    `json:"example,omitempty"`
	StartLine  int    `json:"start_line,omitempty"`
	EndLine    int    `json:"end_line,omitempty"`
	RecordHash string `json:"record_hash"`
}

type Filter struct {
	Stem    string
	Section string
	Limit   int
}

type Stats struct {
	TotalFiles  int       `json:"total_files"`
	SplitFiles  int       `json:"split_files"`
	FailedFiles int       `json:"failed_files"`
	Examples    int       `json:"examples"`
	LastSplitAt time.Time `json:"last_split_at"`
}
