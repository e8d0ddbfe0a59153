package lifecycle

// EnableReport describes the outcome of enabling one mod.
type EnableReport struct {
	ID string
	// Installed are the destination paths that were written.
	Installed []string
	// Skipped are the files that could not be installed.
	Skipped []SkippedFile
}

// SkippedFile is a mod file left out of an enable.
type SkippedFile struct {
	// Path is relative to the mod's storage folder.
	Path string
	Err  error
}

// BatchResult is the outcome of EnableAll or DisableAll.
type BatchResult struct {
	// Succeeded ids in listing order.
	Succeeded []string
	// Skipped ids were already in the requested state.
	Skipped []string
	Failed  map[string]error
}

func newBatchResult() *BatchResult {
	return &BatchResult{Failed: map[string]error{}}
}
