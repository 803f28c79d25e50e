// Package transfer is the file-transfer collaborator: it copies
// attachment bytes into a shared files area and hands back a reference.
// The delivery core never inspects the bytes, only carries the reference.
package transfer

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"localchat/domain"

	"github.com/gabriel-vasile/mimetype"
)

// broadcastDir receives attachments addressed to everyone.
const broadcastDir = "broadcast"

// Reference points at a stored attachment copy.
type Reference struct {
	Path     string // stored location, travels as message content
	Filename string // base name, what recipients see
	Mime     string
}

func (r Reference) String() string { return r.Path }

// Store copies attachments into one directory per recipient, mirroring
// the shared-filesystem layout of the reference client.
type Store struct {
	root string
	log  *slog.Logger
}

func NewStore(root string, log *slog.Logger) *Store {
	return &Store{root: root, log: log}
}

// Put copies the source file into the target's directory and returns the
// stored reference. Broadcast attachments land in a single shared
// directory rather than one per recipient.
func (s *Store) Put(target domain.Target, srcPath string) (Reference, error) {
	dir := target.String()
	if target.IsBroadcast() {
		dir = broadcastDir
	}

	destDir := filepath.Join(s.root, dir)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return Reference{}, fmt.Errorf("create recipient directory: %w", err)
	}

	filename := filepath.Base(srcPath)
	destPath := filepath.Join(destDir, filename)

	if err := copyFile(srcPath, destPath); err != nil {
		return Reference{}, fmt.Errorf("store attachment: %w", err)
	}

	ref := Reference{Path: destPath, Filename: filename}
	if mt, err := mimetype.DetectFile(destPath); err == nil {
		ref.Mime = mt.String()
	}

	s.log.Debug("Attachment stored", "path", destPath, "mime", ref.Mime)
	return ref, nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
