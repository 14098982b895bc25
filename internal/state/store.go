package state

// Store is durable string storage for session state. Implementations must
// distinguish an absent key (empty string, nil error) from a failed read.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Remove(key string) error
}
