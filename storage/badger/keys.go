package badger

// Key prefixes for different data types
const (
	recordPrefix     = "qrec"
	checkpointPrefix = "chkpt"
)

// makeRecordKey generates a key for a question record by ID.
// Record IDs are fixed-width hex strings, so lexicographic key order
// matches ID order and the record prefix doubles as a paging index.
func makeRecordKey(id string) []byte {
	return []byte(recordPrefix + ":" + id)
}

// makeCheckpointKey generates a key for a sweep checkpoint.
func makeCheckpointKey(key string) []byte {
	return []byte(checkpointPrefix + ":" + key)
}
