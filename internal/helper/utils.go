package helper

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// GenerateUUID creates a random unique UUID string.
func GenerateUUID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate UUID: %v", err)
	}
	return id.String(), nil
}

// MaterialID derives a stable identifier for an uploaded material from its
// subject and filename, so re-uploading a revised file replaces the prior
// chunk set instead of duplicating it.
func MaterialID(subject, filename string) string {
	h := sha1.Sum([]byte(subject + "/" + filename))
	return hex.EncodeToString(h[:])[:12]
}

// PrettyPrint dumps v as indented JSON to stdout.
func PrettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Warn().Msg("Error pretty printing")
	}
	fmt.Println(string(b))
}
