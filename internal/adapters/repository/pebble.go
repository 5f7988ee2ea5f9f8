package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/okian/tweetcast/pkg/metrics"
)

// keySep separates the table prefix from the record key. Keys must not
// contain it, which holds for topic names, uuids and tweet ids.
const keySep = "\x00"

// PebbleOptions configures the Pebble-backed store.
type PebbleOptions struct {
	// Dir is the path to the Pebble database directory.
	Dir string
	// Sync forces a WAL fsync on every write.
	Sync bool
	// Tuning allows advanced tuning of Pebble. If nil, defaults are used.
	Tuning *pebble.Options
}

// PebbleKV implements KV on an embedded Pebble database.
type PebbleKV struct {
	db        *pebble.DB
	writeOpts *pebble.WriteOptions

	// condMu serialises PutIfAbsent so the read-then-write is atomic
	// within this process, the only writer of the directory.
	condMu sync.Mutex
}

// OpenPebble creates or opens a Pebble database.
func OpenPebble(opts PebbleOptions) (*PebbleKV, error) {
	if opts.Dir == "" {
		return nil, errors.New("pebble: Dir is required")
	}
	po := opts.Tuning
	if po == nil {
		po = &pebble.Options{}
	}
	db, err := pebble.Open(opts.Dir, po)
	if err != nil {
		return nil, unavailable("pebble open", err)
	}
	wo := pebble.NoSync
	if opts.Sync {
		wo = pebble.Sync
	}
	return &PebbleKV{db: db, writeOpts: wo}, nil
}

func pebbleKey(table, key string) []byte {
	return []byte(table + keySep + key)
}

func (p *PebbleKV) Get(_ context.Context, table, key string) ([]byte, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("pebble", "get", msSince(start)) }()

	val, closer, err := p.db.Get(pebbleKey(table, key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, notFound(table, key)
		}
		return nil, unavailable("pebble get", err)
	}
	defer closer.Close()
	return append([]byte(nil), val...), nil
}

func (p *PebbleKV) Put(_ context.Context, table, key string, value []byte) error {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("pebble", "put", msSince(start)) }()

	if err := p.db.Set(pebbleKey(table, key), value, p.writeOpts); err != nil {
		return unavailable("pebble put", err)
	}
	return nil
}

func (p *PebbleKV) PutIfAbsent(ctx context.Context, table, key string, value []byte) (bool, error) {
	p.condMu.Lock()
	defer p.condMu.Unlock()

	_, closer, err := p.db.Get(pebbleKey(table, key))
	switch {
	case err == nil:
		_ = closer.Close()
		return false, nil
	case !errors.Is(err, pebble.ErrNotFound):
		return false, unavailable("pebble get", err)
	}
	if err := p.Put(ctx, table, key, value); err != nil {
		return false, err
	}
	return true, nil
}

func (p *PebbleKV) Delete(_ context.Context, table, key string) error {
	if err := p.db.Delete(pebbleKey(table, key), p.writeOpts); err != nil {
		return unavailable("pebble delete", err)
	}
	return nil
}

func (p *PebbleKV) Scan(_ context.Context, table, cursor string, limit int) (Page, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("pebble", "scan", msSince(start)) }()

	if limit <= 0 {
		limit = defaultPageSize
	}
	prefix := table + keySep
	lower := []byte(prefix)
	if cursor != "" {
		// Smallest key strictly greater than the cursor.
		lower = []byte(prefix + cursor + "\x00")
	}
	// The byte after keySep bounds the table's key range.
	upper := []byte(table + "\x01")

	it, err := p.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return Page{}, unavailable("pebble scan", err)
	}
	defer it.Close()

	var page Page
	for ok := it.First(); ok; ok = it.Next() {
		if len(page.Items) == limit {
			page.Next = page.Items[len(page.Items)-1].Key
			break
		}
		page.Items = append(page.Items, Item{
			Key:   string(it.Key()[len(prefix):]),
			Value: append([]byte(nil), it.Value()...),
		})
	}
	if err := it.Error(); err != nil {
		return Page{}, unavailable("pebble scan", err)
	}
	return page, nil
}

func (p *PebbleKV) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
