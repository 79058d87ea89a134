package wadtype

// ProgressEvent represents a progress update during write, repack, or verify.
type ProgressEvent struct {
	// Stage identifies the current phase of the operation.
	Stage ProgressStage

	// Path is the entry currently being processed. Empty for entries
	// written by hash only.
	Path string

	// PathHash is the hash of the entry currently being processed.
	PathHash uint64

	// BytesDone is the number of payload bytes written or read so far.
	BytesDone uint64

	// EntriesDone is the number of entries completed.
	EntriesDone int

	// EntriesTotal is the total number of entries.
	EntriesTotal int
}

// ProgressStage identifies the current phase of an operation.
type ProgressStage uint8

// Progress stages.
const (
	// StagePreparing indicates entries are being hashed and validated.
	StagePreparing ProgressStage = iota

	// StageCompressing indicates payloads are being compressed and written.
	StageCompressing

	// StageWritingTable indicates the header and entry table are being written.
	StageWritingTable

	// StageVerifying indicates entries are being read back and checked.
	StageVerifying
)

// String returns the string representation of the stage.
func (s ProgressStage) String() string {
	switch s {
	case StagePreparing:
		return "preparing"
	case StageCompressing:
		return "compressing"
	case StageWritingTable:
		return "writing table"
	case StageVerifying:
		return "verifying"
	default:
		return "unknown"
	}
}

// ProgressFunc receives progress updates.
// Implementations must be safe for concurrent calls.
type ProgressFunc func(ProgressEvent)
