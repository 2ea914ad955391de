package service

import (
	"context"
	"mime"
	"path"

	"github.com/pkordes/garagekeeper/backend/internal/domain"
	"github.com/pkordes/garagekeeper/backend/internal/storage"
)

// attacher is the upload-then-link two-phase writer standing in for a
// transaction the store cannot give us. The blob goes up first; if the
// metadata insert then fails, the blob is deleted so storage never holds
// orphans. The reverse order would leave rows pointing at nothing, which
// is the invariant we must not break.
type attacher struct {
	store storage.BlobStore
}

// run uploads data to storagePath and then calls link to insert the
// metadata row. On link failure the uploaded blob is removed; the delete
// runs even when the failure was a cancellation, so a cancelled commit
// leaves no orphans either.
func (a attacher) run(ctx context.Context, storagePath string, data []byte, link func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return domain.ErrCancelled
	}
	if err := a.store.Upload(ctx, storagePath, data, contentTypeFor(storagePath)); err != nil {
		return err
	}
	if err := link(ctx); err != nil {
		// Compensation must survive the cancellation that may have caused
		// the link failure.
		_ = a.store.Delete(context.WithoutCancel(ctx), storagePath)
		return err
	}
	return nil
}

// contentTypeFor guesses a MIME type from the file extension.
func contentTypeFor(name string) string {
	if t := mime.TypeByExtension(path.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}
