package constants

// DocumentStatus is the outcome of one document in a batch run.
type DocumentStatus string

// Stable values (written to all_results.json and the XLSX export).
const (
	DocumentStatusOK     DocumentStatus = "OK"     // pipeline completed
	DocumentStatusCached DocumentStatus = "CACHED" // served from the result cache
	DocumentStatusFailed DocumentStatus = "FAILED" // unreadable document or invalid schema
)
