package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errores de dominio (sin dependencias de infraestructura).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrDuplicate         = errors.New("recurso duplicado")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrForbidden         = errors.New("acceso denegado")
	ErrConflict          = errors.New("conflicto con el estado actual")
	ErrInsufficientStock = errors.New("stock insuficiente")

	// ErrInvalidState la solicitud o sesión no está en el estado requerido por la operación.
	ErrInvalidState = errors.New("estado inválido para la operación")
	// ErrUnsupportedTransferShape un traslado sin pierna pareada localizable (forma heredada).
	ErrUnsupportedTransferShape = errors.New("traslado sin pierna pareada: no se puede revertir")
	// ErrAlreadyReversed el traslado de la referencia ya tiene piernas de reversión.
	ErrAlreadyReversed = errors.New("el traslado ya fue revertido")
	// ErrTxConflict se agotaron los reintentos de la transacción por conflictos de concurrencia.
	ErrTxConflict = errors.New("conflicto de concurrencia: reintentos agotados")
)

// ValidationError error de validación con el campo que lo causó.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrInvalidInput, e.Message)
	}
	return fmt.Sprintf("%s: %s %s", ErrInvalidInput, e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// Invalid atajo para construir un ValidationError.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// InsufficientStockError detalle de un faltante: el saldo resultante sería negativo.
type InsufficientStockError struct {
	Key       string
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente en %s: disponible %s, solicitado %s",
		e.Key, e.Available.String(), e.Requested.String())
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// InvalidStateError una transición no permitida desde el estado actual.
type InvalidStateError struct {
	Entity  string
	ID      string
	Current string
	Action  string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s %s en estado %q no admite %s", e.Entity, e.ID, e.Current, e.Action)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// IsClientError indica si el error se debe a la entrada o al estado (no se reintenta).
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrDuplicate) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrUnsupportedTransferShape) ||
		errors.Is(err, ErrAlreadyReversed)
}
