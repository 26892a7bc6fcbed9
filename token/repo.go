package token

// Durable storage keys. Both entries are written and cleared together.
const (
	RefreshTokenKey = "refresh_token"
	UserKey         = "user"
)

// Repo is the durable half of the credential store: a small key/value space that survives
// process restarts. Load returns errors.ErrNotFound for a missing key and Delete is
// idempotent.
type Repo interface {
	Load(key string) ([]byte, error)
	Save(key string, value []byte) error
	Delete(key string) error
}
