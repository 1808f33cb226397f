package printlog

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"
)

type printKey struct {
	date    string
	tod     time.Duration
	client  int64
	printer int64
	user    int64
	server  int64
}

type memoryState struct {
	entities    map[Entity]map[string]int64
	departments map[int64]struct{}
	prints      map[printKey]Printing
	nextID      int64
}

func (s memoryState) clone() memoryState {
	out := memoryState{
		entities:    make(map[Entity]map[string]int64, len(s.entities)),
		departments: maps.Clone(s.departments),
		prints:      maps.Clone(s.prints),
		nextID:      s.nextID,
	}
	for kind, rows := range s.entities {
		out.entities[kind] = maps.Clone(rows)
	}
	return out
}

// memoryRepo commits a transaction's working copy only when the callback
// succeeds, mirroring rollback semantics.
type memoryRepo struct {
	mu        sync.Mutex
	state     memoryState
	insertErr error
	txCalls   int
	raceOnce  map[Entity]string
}

type memoryTx struct {
	repo  *memoryRepo
	state *memoryState
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{state: memoryState{
		entities:    map[Entity]map[string]int64{},
		departments: map[int64]struct{}{},
		prints:      map[printKey]Printing{},
	}}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txCalls++
	work := r.state.clone()
	if err := fn(ctx, &memoryTx{repo: r, state: &work}); err != nil {
		return err
	}
	r.state = work
	return nil
}

func (r *memoryRepo) addDepartment(id int64) {
	r.state.departments[id] = struct{}{}
}

func (r *memoryRepo) count(kind Entity) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.state.entities[kind])
}

func (r *memoryRepo) has(kind Entity, key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.state.entities[kind][key]
	return ok
}

func (r *memoryRepo) printings() []Printing {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Printing, 0, len(r.state.prints))
	for _, p := range r.state.prints {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (tx *memoryTx) nextID() int64 {
	tx.state.nextID++
	return tx.state.nextID
}

func (tx *memoryTx) FindEntity(ctx context.Context, kind Entity, key string) (int64, error) {
	id, ok := tx.state.entities[kind][key]
	if !ok {
		return 0, ErrNotFound
	}
	return id, nil
}

func (tx *memoryTx) CreateEntity(ctx context.Context, kind Entity, key string) (int64, error) {
	if raced, ok := tx.repo.raceOnce[kind]; ok && raced == key {
		// Simulate another importer committing the same key first.
		delete(tx.repo.raceOnce, kind)
		tx.put(kind, key)
		return 0, ErrDuplicate
	}
	if _, ok := tx.state.entities[kind][key]; ok {
		return 0, ErrDuplicate
	}
	return tx.put(kind, key), nil
}

func (tx *memoryTx) put(kind Entity, key string) int64 {
	if tx.state.entities[kind] == nil {
		tx.state.entities[kind] = map[string]int64{}
	}
	id := tx.nextID()
	tx.state.entities[kind][key] = id
	return id
}

func (tx *memoryTx) FindDepartment(ctx context.Context, externalID int64) (int64, error) {
	if _, ok := tx.state.departments[externalID]; !ok {
		return 0, ErrNotFound
	}
	return externalID, nil
}

func (tx *memoryTx) InsertPrinting(ctx context.Context, p Printing) (int64, error) {
	if tx.repo.insertErr != nil {
		return 0, tx.repo.insertErr
	}
	key := printKey{
		date:    p.Date.Format("2006-01-02"),
		tod:     p.TimeOfDay,
		client:  p.ClientID,
		printer: p.PrinterID,
		user:    p.UserID,
		server:  p.ServerID,
	}
	if _, ok := tx.state.prints[key]; ok {
		return 0, ErrDuplicate
	}
	p.ID = tx.nextID()
	tx.state.prints[key] = p
	return p.ID, nil
}

type memDisk struct {
	mu      sync.Mutex
	files   map[string][]byte
	openErr map[string]error
	listErr error
	deleted []string
}

func newMemDisk(files map[string]string) *memDisk {
	d := &memDisk{files: map[string][]byte{}, openErr: map[string]error{}}
	for name, body := range files {
		d.files[name] = []byte(body)
	}
	return d
}

func (d *memDisk) Files(ctx context.Context) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.listErr != nil {
		return nil, d.listErr
	}
	names := make([]string, 0, len(d.files))
	for name := range d.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (d *memDisk) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.openErr[name]; err != nil {
		return nil, err
	}
	body, ok := d.files[name]
	if !ok {
		return nil, errors.New("no such file")
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

func (d *memDisk) Delete(ctx context.Context, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.files, name)
	d.deleted = append(d.deleted, name)
	return nil
}

func (d *memDisk) exists(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.files[name]
	return ok
}

type captureHandler struct {
	mu      *sync.Mutex
	records *[]slog.Record
}

func newCapture() (*slog.Logger, *captureHandler) {
	h := &captureHandler{mu: &sync.Mutex{}, records: &[]slog.Record{}}
	return slog.New(h), h
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	*h.records = append(*h.records, r.Clone())
	return nil
}

func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *captureHandler) WithGroup(string) slog.Handler { return h }

func (h *captureHandler) count(level slog.Level) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, r := range *h.records {
		if r.Level == level {
			n++
		}
	}
	return n
}

func (h *captureHandler) attr(level slog.Level, key string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, r := range *h.records {
		if r.Level != level {
			continue
		}
		r.Attrs(func(a slog.Attr) bool {
			if a.Key == key {
				out = append(out, a.Value.String())
			}
			return true
		})
	}
	return out
}

// Field positions in a log line.
const (
	posServer = iota
	posDate
	posTime
	posFilename
	posUsername
	posCorporateID
	posDepartment
	posReserved
	posClient
	posPrinter
	posFileSize
	posPages
	posCopies
)

func baseFields() []string {
	return []string{"srv-print-01", "01/06/2021", "10:20:30", "relatorio.pdf", "jdoe", "11111", "5", "", "ws-0042", "hp-laser-3", "2048", "3", "2"}
}

func line(overrides map[int]string) string {
	fields := baseFields()
	for pos, v := range overrides {
		fields[pos] = v
	}
	return strings.Join(fields, Delimiter)
}
