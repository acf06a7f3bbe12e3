package checksum

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
)

// CalculateCheckSum hashes the raw bytes of a document. The value is recorded
// on the header as an audit trail of what was actually ingested.
func CalculateCheckSum(raw []byte) string {
	digest := xxhash.New()
	digest.Write(raw)

	return hex.EncodeToString(digest.Sum(nil))
}

func GetFileChecksum(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	defer file.Close()

	hasher := xxhash.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("failed to copy file content to hasher for file %s: %w", filePath, err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
