package repository

import "context"

// ReferenceCounter contador atómico por prefijo para números de referencia.
type ReferenceCounter interface {
	// Next incrementa y devuelve el siguiente valor del prefijo (el primero es 1).
	Next(ctx context.Context, prefix string) (int64, error)
}
