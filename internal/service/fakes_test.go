package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/nurpe/plantrent-contracts/internal/config"
	"github.com/nurpe/plantrent-contracts/internal/model"
)

type memTxKey struct{}

// memStore implements every store interface in memory. A unit of work holds
// the store mutex for its whole duration and restores a snapshot on failure,
// which gives the serializable behaviour row locks give the real store.
type memStore struct {
	mu        sync.Mutex
	contracts map[uuid.UUID]model.Contract
	inventory map[uuid.UUID]model.Inventory
	plants    map[uuid.UUID]model.CustomerPlant
	customers map[uuid.UUID]model.Customer
	catalog   map[uuid.UUID]model.PlantType

	failInstall      error
	failUpdateStatus error
}

func newMemStore() *memStore {
	return &memStore{
		contracts: map[uuid.UUID]model.Contract{},
		inventory: map[uuid.UUID]model.Inventory{},
		plants:    map[uuid.UUID]model.CustomerPlant{},
		customers: map[uuid.UUID]model.Customer{},
		catalog:   map[uuid.UUID]model.PlantType{},
	}
}

type memSnapshot struct {
	contracts map[uuid.UUID]model.Contract
	inventory map[uuid.UUID]model.Inventory
	plants    map[uuid.UUID]model.CustomerPlant
	customers map[uuid.UUID]model.Customer
}

func (s *memStore) snapshot() memSnapshot {
	snap := memSnapshot{
		contracts: make(map[uuid.UUID]model.Contract, len(s.contracts)),
		inventory: make(map[uuid.UUID]model.Inventory, len(s.inventory)),
		plants:    make(map[uuid.UUID]model.CustomerPlant, len(s.plants)),
		customers: make(map[uuid.UUID]model.Customer, len(s.customers)),
	}
	for k, v := range s.contracts {
		snap.contracts[k] = cloneContract(v)
	}
	for k, v := range s.inventory {
		snap.inventory[k] = v
	}
	for k, v := range s.plants {
		snap.plants[k] = v
	}
	for k, v := range s.customers {
		snap.customers[k] = v
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.contracts = snap.contracts
	s.inventory = snap.inventory
	s.plants = snap.plants
	s.customers = snap.customers
}

func (s *memStore) Atomic(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// guard locks the store for calls made outside a unit of work.
func (s *memStore) guard(ctx context.Context) func() {
	if ctx.Value(memTxKey{}) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func cloneContract(c model.Contract) model.Contract {
	c.Items = append([]model.ContractItem(nil), c.Items...)
	return c
}

// seeding helpers

func (s *memStore) addCustomer(name string, status model.CustomerStatus) model.Customer {
	c := model.Customer{ID: uuid.New(), Name: name, Status: status}
	s.customers[c.ID] = c
	return c
}

func (s *memStore) addPlantType(code string, price model.Money, available int) model.PlantType {
	p := model.PlantType{ID: uuid.New(), Code: code, Name: "Plant " + code, MonthlyPrice: price}
	s.catalog[p.ID] = p
	s.inventory[p.ID] = model.Inventory{PlantTypeID: p.ID, AvailableStock: available}
	return p
}

func (s *memStore) stock(id uuid.UUID) model.Inventory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inventory[id]
}

func (s *memStore) contract(id uuid.UUID) model.Contract {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneContract(s.contracts[id])
}

func (s *memStore) customer(id uuid.UUID) model.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.customers[id]
}

func (s *memStore) plantsOf(contractID uuid.UUID) []model.CustomerPlant {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []model.CustomerPlant
	for _, p := range s.plants {
		if p.ContractID == contractID {
			result = append(result, p)
		}
	}
	return result
}

func (s *memStore) contractCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.contracts)
}

// ContractStore

func (s *memStore) Get(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	defer s.guard(ctx)()
	c, ok := s.contracts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c = cloneContract(c)
	return &c, nil
}

func (s *memStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	return s.Get(ctx, id)
}

func (s *memStore) Insert(ctx context.Context, c *model.Contract) error {
	defer s.guard(ctx)()
	for _, existing := range s.contracts {
		if existing.Number == c.Number {
			return fmt.Errorf("duplicate contract number %s", c.Number)
		}
		if c.PreviousContractID != nil && existing.PreviousContractID != nil && *existing.PreviousContractID == *c.PreviousContractID {
			return fmt.Errorf("duplicate successor for %s", *c.PreviousContractID)
		}
	}
	s.contracts[c.ID] = cloneContract(*c)
	return nil
}

func (s *memStore) UpdateDraft(ctx context.Context, c *model.Contract) (bool, error) {
	defer s.guard(ctx)()
	current, ok := s.contracts[c.ID]
	if !ok || current.Status != model.ContractStatusDraft {
		return false, nil
	}
	s.contracts[c.ID] = cloneContract(*c)
	return true, nil
}

func (s *memStore) UpdateStatus(ctx context.Context, c *model.Contract) error {
	defer s.guard(ctx)()
	if s.failUpdateStatus != nil {
		return s.failUpdateStatus
	}
	current, ok := s.contracts[c.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	current.Status = c.Status
	current.TermsNotes = c.TermsNotes
	current.TerminationReason = c.TerminationReason
	current.ActivatedAt = c.ActivatedAt
	current.CancelledAt = c.CancelledAt
	current.TerminatedAt = c.TerminatedAt
	current.UpdatedAt = c.UpdatedAt
	s.contracts[c.ID] = current
	return nil
}

func (s *memStore) HasSuccessor(ctx context.Context, id uuid.UUID) (bool, error) {
	defer s.guard(ctx)()
	for _, c := range s.contracts {
		if c.PreviousContractID != nil && *c.PreviousContractID == id {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) LatestNumber(ctx context.Context, prefix string) (string, error) {
	defer s.guard(ctx)()
	latest := ""
	for _, c := range s.contracts {
		if !strings.HasPrefix(c.Number, prefix) {
			continue
		}
		if len(c.Number) > len(latest) || (len(c.Number) == len(latest) && c.Number > latest) {
			latest = c.Number
		}
	}
	return latest, nil
}

func (s *memStore) ListExpiring(ctx context.Context, from, to time.Time) ([]model.Contract, error) {
	defer s.guard(ctx)()
	var result []model.Contract
	for _, c := range s.contracts {
		if c.Status == model.ContractStatusActive && !c.EndDate.Before(from) && !c.EndDate.After(to) {
			result = append(result, cloneContract(c))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].EndDate.Equal(result[j].EndDate) {
			return result[i].EndDate.Before(result[j].EndDate)
		}
		return result[i].Number < result[j].Number
	})
	return result, nil
}

func (s *memStore) Stats(ctx context.Context, today, soon time.Time) (model.ContractStats, error) {
	defer s.guard(ctx)()
	var stats model.ContractStats
	for _, c := range s.contracts {
		stats.Total++
		if c.Status != model.ContractStatusActive {
			continue
		}
		stats.Active++
		stats.MonthlyRecurring += c.MonthlyFee
		if !c.EndDate.Before(today) && !c.EndDate.After(soon) {
			stats.ExpiringSoon++
		}
	}
	return stats, nil
}

func (s *memStore) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]model.Contract, error) {
	defer s.guard(ctx)()
	var result []model.Contract
	for _, c := range s.contracts {
		if c.CustomerID == customerID {
			result = append(result, cloneContract(c))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Number > result[j].Number })
	return result, nil
}

// memLedger exposes the inventory half of memStore under the InventoryLedger
// method names, which overlap with ContractStore.Get.
type memLedger struct{ s *memStore }

func (l memLedger) Get(ctx context.Context, id uuid.UUID) (*model.Inventory, error) {
	defer l.s.guard(ctx)()
	inv, ok := l.s.inventory[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &inv, nil
}

func (l memLedger) ReserveBatch(ctx context.Context, lines []model.StockAdjustment) ([]model.Shortage, error) {
	defer l.s.guard(ctx)()
	lines = model.AggregateAdjustments(lines)
	if shortages := model.CheckReservation(l.s.inventory, lines); len(shortages) > 0 {
		return shortages, nil
	}
	for _, line := range lines {
		inv := l.s.inventory[line.PlantTypeID]
		inv.AvailableStock -= line.Quantity
		inv.RentedStock += line.Quantity
		l.s.inventory[line.PlantTypeID] = inv
	}
	return nil, nil
}

func (l memLedger) ReleaseBatch(ctx context.Context, lines []model.StockAdjustment) ([]model.Shortage, error) {
	defer l.s.guard(ctx)()
	lines = model.AggregateAdjustments(lines)
	if shortages := model.CheckRelease(l.s.inventory, lines); len(shortages) > 0 {
		return shortages, nil
	}
	for _, line := range lines {
		inv := l.s.inventory[line.PlantTypeID]
		inv.AvailableStock += line.Quantity
		inv.RentedStock -= line.Quantity
		l.s.inventory[line.PlantTypeID] = inv
	}
	return nil, nil
}

func (l memLedger) Restock(ctx context.Context, lines []model.StockAdjustment) error {
	defer l.s.guard(ctx)()
	for _, line := range lines {
		inv := l.s.inventory[line.PlantTypeID]
		inv.PlantTypeID = line.PlantTypeID
		inv.AvailableStock += line.Quantity
		l.s.inventory[line.PlantTypeID] = inv
	}
	return nil
}

type memPlants struct{ s *memStore }

func (p memPlants) Install(ctx context.Context, plants []model.CustomerPlant) error {
	defer p.s.guard(ctx)()
	if p.s.failInstall != nil {
		return p.s.failInstall
	}
	for _, plant := range plants {
		p.s.plants[plant.ID] = plant
	}
	return nil
}

func (p memPlants) RemoveByContract(ctx context.Context, contractID uuid.UUID, at time.Time) ([]model.CustomerPlant, error) {
	defer p.s.guard(ctx)()
	var removed []model.CustomerPlant
	for id, plant := range p.s.plants {
		if plant.ContractID != contractID || plant.Status != model.CustomerPlantStatusActive {
			continue
		}
		removedAt := at
		plant.Status = model.CustomerPlantStatusRemoved
		plant.RemovedAt = &removedAt
		p.s.plants[id] = plant
		removed = append(removed, plant)
	}
	return removed, nil
}

func (p memPlants) ListActiveByContract(ctx context.Context, contractID uuid.UUID) ([]model.CustomerPlant, error) {
	defer p.s.guard(ctx)()
	var result []model.CustomerPlant
	for _, plant := range p.s.plants {
		if plant.ContractID == contractID && plant.Status == model.CustomerPlantStatusActive {
			result = append(result, plant)
		}
	}
	return result, nil
}

type memCustomers struct{ s *memStore }

func (c memCustomers) Get(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	defer c.s.guard(ctx)()
	customer, ok := c.s.customers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &customer, nil
}

func (c memCustomers) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	return c.Get(ctx, id)
}

func (c memCustomers) SetStatus(ctx context.Context, id uuid.UUID, status model.CustomerStatus) error {
	defer c.s.guard(ctx)()
	customer, ok := c.s.customers[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	customer.Status = status
	c.s.customers[id] = customer
	return nil
}

type memCatalog struct{ s *memStore }

func (c memCatalog) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.PlantType, error) {
	defer c.s.guard(ctx)()
	result := make(map[uuid.UUID]model.PlantType, len(ids))
	for _, id := range ids {
		if p, ok := c.s.catalog[id]; ok {
			result[id] = p
		}
	}
	return result, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []model.ContractEvent
	err    error
}

func (n *recordingNotifier) ContractChanged(_ context.Context, event model.ContractEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

func (n *recordingNotifier) transitions() []model.Transition {
	n.mu.Lock()
	defer n.mu.Unlock()
	result := make([]model.Transition, 0, len(n.events))
	for _, e := range n.events {
		result = append(result, e.Transition)
	}
	return result
}

type recordingShortages struct {
	mu    sync.Mutex
	calls int
	last  []model.Shortage
}

func (r *recordingShortages) StockShortage(_ context.Context, _ uuid.UUID, shortages []model.Shortage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.last = shortages
}

type stubExcel struct {
	report model.ExpiringReport
}

func (e *stubExcel) GenerateExpiring(report model.ExpiringReport) ([]byte, error) {
	e.report = report
	return []byte("xlsx"), nil
}

type stubPDF struct {
	doc model.ContractDocument
	err error
}

func (p *stubPDF) Generate(doc model.ContractDocument) ([]byte, error) {
	p.doc = doc
	if p.err != nil {
		return nil, p.err
	}
	return []byte("%PDF-stub"), nil
}

var errInjected = errors.New("injected failure")

type testEnv struct {
	store     *memStore
	svc       *ContractService
	inventory *InventoryService
	notifier  *recordingNotifier
	shortages *recordingShortages
	excel     *stubExcel
	pdf       *stubPDF
	now       time.Time
}

func newTestEnv() *testEnv {
	store := newMemStore()
	env := &testEnv{
		store:     store,
		notifier:  &recordingNotifier{},
		shortages: &recordingShortages{},
		excel:     &stubExcel{},
		pdf:       &stubPDF{},
		now:       time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC),
	}
	cfg := &config.Config{Contracts: config.ContractsConfig{
		NumberPrefix: "HD",
		ExpiringDays: 30,
		Timezone:     "UTC",
	}}
	env.svc = NewContractService(Dependencies{
		Tx:        store,
		Contracts: store,
		Inventory: memLedger{store},
		Plants:    memPlants{store},
		Customers: memCustomers{store},
		Catalog:   memCatalog{store},
		Excel:     env.excel,
		PDF:       env.pdf,
		Notifiers: []Notifier{env.notifier},
		Shortages: env.shortages,
		Log:       zerolog.Nop(),
	}, cfg)
	env.svc.now = func() time.Time { return env.now }
	env.inventory = NewInventoryService(store, memLedger{store}, memCatalog{store}, zerolog.Nop())
	return env
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
