package indexfile

import "encoding/json"

// CurrentVersion is the on-disk artifact format version (spec.md §6).
// Loading an artifact written by a different version discards it.
const CurrentVersion = 9

// Serialize produces the opaque on-disk form of an IndexFile. The wire
// format is implementation-defined; the only contract (spec.md §6 and
// testable property 1) is that Deserialize(Serialize(x)) reproduces x
// structurally. No third-party serialization library appears anywhere
// in the example pack's domain code (the teacher and every sibling
// repo reach for encoding/json for anything JSON-shaped, including
// store.marshalProps and the MCP tool layer) so this stays on
// encoding/json rather than introducing an unwired dependency.
func Serialize(f *IndexFile) ([]byte, error) {
	return json.Marshal(f)
}

// Deserialize parses bytes produced by Serialize back into an
// IndexFile.
func Deserialize(data []byte) (*IndexFile, error) {
	var f IndexFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}
