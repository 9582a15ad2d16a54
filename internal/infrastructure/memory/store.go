// Package memory almacén en memoria con concurrencia optimista.
// Sirve para pruebas y para desarrollo con STORE_DRIVER=memory.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jhoicas/inventory-ledger/internal/application/inventory"
	"github.com/jhoicas/inventory-ledger/internal/domain"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
)

// DefaultMaxRetries reintentos de una unidad de trabajo ante conflictos.
const DefaultMaxRetries = 20

var _ inventory.TxRunner = (*Store)(nil)

// Store guarda saldos, libro y documentos. Cada unidad de trabajo registra la versión
// de todo lo que lee; el commit valida esas versiones bajo el lock y aplica las escrituras.
type Store struct {
	mu         sync.RWMutex
	balances   map[string]entity.Balance
	balTomb    map[string]int64 // versión al borrar un saldo; al recrearlo sigue desde ahí
	movements  map[string]entity.Movement
	order      []string          // ids de movimientos en orden de creación
	idem       map[string]string // llave de idempotencia -> id de movimiento
	transfers  map[string]entity.TransferRequest
	counts     map[string]entity.CountSession
	maxRetries int
	log        zerolog.Logger

	directory *Directory
}

// NewStore crea un almacén vacío. maxRetries <= 0 usa DefaultMaxRetries.
func NewStore(maxRetries int, log zerolog.Logger) *Store {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Store{
		balances:   make(map[string]entity.Balance),
		balTomb:    make(map[string]int64),
		movements:  make(map[string]entity.Movement),
		idem:       make(map[string]string),
		transfers:  make(map[string]entity.TransferRequest),
		counts:     make(map[string]entity.CountSession),
		maxRetries: maxRetries,
		log:        log,
		directory:  NewDirectory(),
	}
}

// Directory bodegas, ítems y contadores de referencia del almacén.
func (s *Store) Directory() *Directory { return s.directory }

// Run ejecuta fn en una unidad de trabajo. Un conflicto al validar re-ejecuta fn completa;
// al agotar los reintentos devuelve domain.ErrTxConflict.
func (s *Store) Run(ctx context.Context, fn func(repos inventory.TxRepos) error) error {
	return s.run(ctx, func(u *unitOfWork) error {
		return fn(u.repos())
	})
}

func (s *Store) run(ctx context.Context, fn func(u *unitOfWork) error) error {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		u := newUnitOfWork(s)
		err := fn(u)
		if err == nil {
			err = s.commit(u)
		}
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return err
		}
		if attempt >= s.maxRetries {
			return fmt.Errorf("%w: %v", domain.ErrTxConflict, err)
		}
		s.log.Debug().Int("attempt", attempt+1).Err(err).Msg("conflicto en unidad de trabajo, reintentando")
	}
}

// unitOfWork lecturas registradas y escrituras pendientes de una transacción.
type unitOfWork struct {
	s *Store

	balRead map[string]int64
	movRead map[string]int64
	idRead  map[string]string
	refRead map[string][]string
	trRead  map[string]int64
	cntRead map[string]int64

	balWrites map[string]*entity.Balance // nil = borrar
	movWrites map[string]*entity.Movement
	movNew    []string
	idWrites  map[string]string // "" = llave liberada
	trWrites  map[string]*entity.TransferRequest
	trNew     map[string]bool
	cntWrites map[string]*entity.CountSession
	cntNew    map[string]bool
}

func newUnitOfWork(s *Store) *unitOfWork {
	return &unitOfWork{
		s:         s,
		balRead:   make(map[string]int64),
		movRead:   make(map[string]int64),
		idRead:    make(map[string]string),
		refRead:   make(map[string][]string),
		trRead:    make(map[string]int64),
		cntRead:   make(map[string]int64),
		balWrites: make(map[string]*entity.Balance),
		movWrites: make(map[string]*entity.Movement),
		idWrites:  make(map[string]string),
		trWrites:  make(map[string]*entity.TransferRequest),
		trNew:     make(map[string]bool),
		cntWrites: make(map[string]*entity.CountSession),
		cntNew:    make(map[string]bool),
	}
}

func (u *unitOfWork) repos() inventory.TxRepos {
	b := binding{s: u.s, u: u}
	return inventory.TxRepos{
		Movements: &MovementRepo{b},
		Balances:  &BalanceRepo{b},
		Transfers: &TransferRequestRepo{b},
		Counts:    &CountSessionRepo{b},
	}
}

// binding ata un repositorio a una unidad de trabajo; sin ella cada llamada es su propia transacción.
type binding struct {
	s *Store
	u *unitOfWork
}

func (b binding) do(ctx context.Context, fn func(u *unitOfWork) error) error {
	if b.u != nil {
		return fn(b.u)
	}
	return b.s.run(ctx, fn)
}

// Balances repositorio de saldos fuera de transacción.
func (s *Store) Balances() *BalanceRepo { return &BalanceRepo{binding{s: s}} }

// Movements repositorio del libro fuera de transacción.
func (s *Store) Movements() *MovementRepo { return &MovementRepo{binding{s: s}} }

// Transfers repositorio de solicitudes fuera de transacción.
func (s *Store) Transfers() *TransferRequestRepo { return &TransferRequestRepo{binding{s: s}} }

// Counts repositorio de sesiones de conteo fuera de transacción.
func (s *Store) Counts() *CountSessionRepo { return &CountSessionRepo{binding{s: s}} }

func (u *unitOfWork) dirty() bool {
	return len(u.balWrites) > 0 || len(u.movWrites) > 0 || len(u.trWrites) > 0 || len(u.cntWrites) > 0
}

// commit valida lo leído contra el estado confirmado y aplica las escrituras.
func (s *Store) commit(u *unitOfWork) error {
	if !u.dirty() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range u.balRead {
		if s.balanceVersionLocked(k) != v {
			return fmt.Errorf("saldo %s: %w", k, domain.ErrConflict)
		}
	}
	for id, v := range u.movRead {
		if s.movements[id].Version != v {
			return fmt.Errorf("movimiento %s: %w", id, domain.ErrConflict)
		}
	}
	for k, id := range u.idRead {
		if s.idem[k] != id {
			return fmt.Errorf("llave de idempotencia %s: %w", k, domain.ErrConflict)
		}
	}
	for ref, ids := range u.refRead {
		if !equalIDs(ids, s.idsByReferenceLocked(ref)) {
			return fmt.Errorf("referencia %s: %w", ref, domain.ErrConflict)
		}
	}
	for id, v := range u.trRead {
		if s.transfers[id].Version != v {
			return fmt.Errorf("solicitud %s: %w", id, domain.ErrConflict)
		}
	}
	for id, v := range u.cntRead {
		if s.counts[id].Version != v {
			return fmt.Errorf("sesión %s: %w", id, domain.ErrConflict)
		}
	}
	for id := range u.trNew {
		if _, ok := s.transfers[id]; ok {
			return fmt.Errorf("solicitud %s: %w", id, domain.ErrDuplicate)
		}
	}
	for id := range u.cntNew {
		if _, ok := s.counts[id]; ok {
			return fmt.Errorf("sesión %s: %w", id, domain.ErrDuplicate)
		}
	}

	for k, b := range u.balWrites {
		if b == nil {
			if cur, ok := s.balances[k]; ok {
				s.balTomb[k] = cur.Version
				delete(s.balances, k)
			}
			continue
		}
		s.balances[k] = *b
	}
	for id, m := range u.movWrites {
		if m == nil {
			delete(s.movements, id)
			continue
		}
		s.movements[id] = *m
	}
	s.order = append(s.order, u.movNew...)
	for k, id := range u.idWrites {
		if id == "" {
			delete(s.idem, k)
			continue
		}
		s.idem[k] = id
	}
	for id, r := range u.trWrites {
		s.transfers[id] = cloneTransfer(*r)
	}
	for id, c := range u.cntWrites {
		s.counts[id] = cloneCount(*c)
	}
	return nil
}

// idsByReferenceLocked ids confirmados de una referencia, ordenados. Requiere s.mu.
func (s *Store) idsByReferenceLocked(ref string) []string {
	var ids []string
	for id, m := range s.movements {
		if m.ReferenceNo == ref {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func cloneTransfer(r entity.TransferRequest) entity.TransferRequest {
	r.Lines = append([]entity.TransferLine(nil), r.Lines...)
	return r
}

func cloneCount(c entity.CountSession) entity.CountSession {
	c.Lines = append([]entity.CountLine(nil), c.Lines...)
	return c
}
