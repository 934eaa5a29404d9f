// Package uploads generates the public filenames for user-uploaded photos.
package uploads

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	hashids "github.com/speps/go-hashids/v2"
)

// Namer produces collision-resistant filenames for the public uploads
// directory. The hashid encodes the uploader and an upload timestamp under a
// deployment-specific salt; the uuid fragment keeps two uploads in the same
// nanosecond apart.
type Namer struct {
	h *hashids.HashID
}

func NewNamer(salt string) (*Namer, error) {
	data := hashids.NewData()
	data.Salt = salt
	data.MinLength = 8

	h, err := hashids.NewWithData(data)
	if err != nil {
		return nil, fmt.Errorf("init hashids: %w", err)
	}
	return &Namer{h: h}, nil
}

// Name returns a fresh filename with the given extension (".jpg", ".png", ...).
func (n *Namer) Name(ownerID int64, ext string) string {
	encoded, err := n.h.EncodeInt64([]int64{ownerID, time.Now().UnixNano()})
	if err != nil {
		// EncodeInt64 only fails on negative inputs; fall back to a plain uuid.
		encoded = uuid.NewString()
	}
	return fmt.Sprintf("%s-%s%s", encoded, uuid.NewString()[:8], ext)
}

// EnsureDir creates the uploads directory if it does not exist yet.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}
