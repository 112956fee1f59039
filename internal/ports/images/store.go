package images

import (
	"context"
	"io"
)

// Store guarda imágenes y devuelve una URL estable.
// El core solo persiste la URL resultante (mainImage); no conoce el backend.
type Store interface {
	Put(ctx context.Context, key, contentType string, size int64, r io.Reader) (string, error)
}
