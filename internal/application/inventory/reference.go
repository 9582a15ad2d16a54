package inventory

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
	"github.com/jhoicas/inventory-ledger/internal/domain/repository"
)

// Prefijos de referencia por tipo de documento.
const (
	PrefixIN         = "IN"
	PrefixOUT        = "OUT"
	PrefixTransfer   = "TRF"
	PrefixAdjustment = "ADJ"
	PrefixCount      = "CNT"
)

// DefaultScanWindow cantidad de movimientos recientes que revisa ScanAllocator.
const DefaultScanWindow = 200

// ReferencePrefix prefijo de referencia para un tipo de movimiento.
func ReferencePrefix(movementType string) string {
	switch movementType {
	case entity.MovementTypeIN:
		return PrefixIN
	case entity.MovementTypeOUT:
		return PrefixOUT
	case entity.MovementTypeTRANSFER:
		return PrefixTransfer
	default:
		return PrefixAdjustment
	}
}

// FormatReference "TRF" + 42 -> "TRF-000042".
func FormatReference(prefix string, n int64) string {
	return fmt.Sprintf("%s-%06d", prefix, n)
}

// SequenceAllocator asigna referencias con un contador atómico por prefijo en el almacén.
// Dos llamadas concurrentes nunca reciben la misma referencia.
type SequenceAllocator struct {
	counter repository.ReferenceCounter
}

func NewSequenceAllocator(counter repository.ReferenceCounter) *SequenceAllocator {
	return &SequenceAllocator{counter: counter}
}

func (a *SequenceAllocator) Next(ctx context.Context, prefix string) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("prefijo de referencia vacío")
	}
	n, err := a.counter.Next(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("contador de referencias %s: %w", prefix, err)
	}
	return FormatReference(prefix, n), nil
}

// ScanAllocator deriva la siguiente referencia del máximo visto en los últimos movimientos.
// No reserva nada: dos llamadas concurrentes pueden recibir la misma etiqueta.
type ScanAllocator struct {
	movements repository.MovementRepository
	window    int
}

func NewScanAllocator(movements repository.MovementRepository, window int) *ScanAllocator {
	if window <= 0 {
		window = DefaultScanWindow
	}
	return &ScanAllocator{movements: movements, window: window}
}

func (a *ScanAllocator) Next(ctx context.Context, prefix string) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("prefijo de referencia vacío")
	}
	recent, err := a.movements.ListRecent(ctx, a.window)
	if err != nil {
		return "", fmt.Errorf("escanear referencias: %w", err)
	}
	var max int64
	for _, m := range recent {
		if n, ok := referenceNumber(prefix, m.ReferenceNo); ok && n > max {
			max = n
		}
	}
	return FormatReference(prefix, max+1), nil
}

// referenceNumber "TRF-000042" con prefijo "TRF" -> 42. Solo acepta dígitos tras el guion.
func referenceNumber(prefix, ref string) (int64, bool) {
	digits, ok := strings.CutPrefix(ref, prefix+"-")
	if !ok || digits == "" {
		return 0, false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

var (
	_ ReferenceAllocator = (*SequenceAllocator)(nil)
	_ ReferenceAllocator = (*ScanAllocator)(nil)
)
