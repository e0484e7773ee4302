package models

// Function outcomes shown in the run summary
const (
	StatusWritten = "Written"
	StatusNoData  = "No data"
	StatusFailed  = "Failed"
)

// FunctionResult is the outcome of extracting one function
type FunctionResult struct {
	Function string
	Mode     string
	Status   string
	Records  int    // rows written
	Warnings int    // record and page failures
	Path     string // local CSV path, empty unless written
	Bytes    int64  // size of the CSV
	S3URI    string // set when the copy to S3 succeeded
	Err      error  // FunctionFailure or upload error
}
