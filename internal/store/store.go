// Package store provides the durable key-value persistence used for small
// JSON blobs: the installed-models index, per-model install records, the
// selected-model pointer, and the persisted style configuration.
package store

// ContentStore is the key-value contract. Reads tolerate absent keys; writes
// are unconditionally last-writer-wins.
type ContentStore interface {
	// Get returns the value and whether the key was present.
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(keys ...string) error
	ListKeys() ([]string, error)
	Close() error
}

// Well-known keys.
const (
	KeySelectedModel  = "enhance/selected-model"
	KeyInstalledIndex = "enhance/installed-models"
	KeyStyleConfig    = "enhance/style-config"

	recordPrefix = "enhance/installed/"
)

// KeyInstalledRecord returns the per-model install record key.
func KeyInstalledRecord(modelID string) string {
	return recordPrefix + modelID
}
