package index

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unsafe"

	"github.com/ssargent/freyjadb/pkg/bptree"
)

// SecondaryIndex maintains a hash-keyed B+Tree index for one field. Each
// composite key (serialized field value + primary key) goes in through
// InsertString, which hashes it into the tree's int64 key space and keeps
// the original bytes recoverable via GetMapping. The value side stores a
// copy of the caller's primary key bytes; the index makes no assumption
// about their length or encoding.
//
// Hashing trades away the byte-order-preserving prefix/range search the
// original byte-string-keyed tree gave for free, so Search and SearchRange
// below walk the tree's Iterator and filter by the recovered bytes rather
// than relying on key ordering.
type SecondaryIndex struct {
	fieldName string
	tree      *bptree.Tree
	mutex     sync.RWMutex
}

// NewSecondaryIndex creates a new secondary index for a field. order is
// retained for call-site compatibility with the byte-keyed tree this index
// used to wrap; the int64-keyed core derives its node capacity from
// bptree.Config instead of a caller-chosen tree order.
func NewSecondaryIndex(fieldName string, order int) *SecondaryIndex {
	return &SecondaryIndex{
		fieldName: fieldName,
		tree:      bptree.NewDefaultTree(),
	}
}

// Insert adds a record to the secondary index.
// The index key is: field_value + primary_key (to ensure uniqueness)
func (idx *SecondaryIndex) Insert(fieldValue interface{}, primaryKey []byte) error {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	indexKey := idx.createIndexKey(fieldValue, primaryKey)
	stored := make([]byte, len(primaryKey))
	copy(stored, primaryKey)
	idx.tree.InsertString(indexKey, unsafe.Pointer(&stored))
	return nil
}

// Delete removes a record from the secondary index.
func (idx *SecondaryIndex) Delete(fieldValue interface{}, primaryKey []byte) bool {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	indexKey := idx.createIndexKey(fieldValue, primaryKey)
	return idx.tree.Delete(bptree.HashKey(indexKey))
}

// Search finds the primary keys of every record with an exact field value
// match.
func (idx *SecondaryIndex) Search(fieldValue interface{}) ([][]byte, error) {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	prefix := idx.createFieldPrefix(fieldValue)
	var matches [][]byte
	for it := idx.tree.NewIterator(); it.Valid(); it.Next() {
		raw, ok := idx.tree.GetMapping(it.Key())
		if !ok {
			continue
		}
		if bytes.HasPrefix([]byte(raw), prefix) {
			matches = append(matches, []byte(raw[len(prefix):]))
		}
	}
	return matches, nil
}

// SearchRange finds the primary keys of every record whose field value
// falls within [startValue, endValue]. startValue and endValue must be of
// the same comparable kind (int/int64/float64 treated as numeric, string
// compared lexicographically); records of a different field type are
// skipped. Either bound may be nil for a one-sided range (">"/"<" queries).
func (idx *SecondaryIndex) SearchRange(startValue, endValue interface{}) ([][]byte, error) {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	var matches [][]byte
	for it := idx.tree.NewIterator(); it.Valid(); it.Next() {
		raw, ok := idx.tree.GetMapping(it.Key())
		if !ok {
			continue
		}
		fieldValue, primaryKey, err := deserializeValue([]byte(raw))
		if err != nil {
			continue
		}
		if startValue != nil {
			if cmp, ok := compareValues(fieldValue, startValue); !ok || cmp < 0 {
				continue
			}
		}
		if endValue != nil {
			if cmp, ok := compareValues(fieldValue, endValue); !ok || cmp > 0 {
				continue
			}
		}
		matches = append(matches, primaryKey)
	}
	return matches, nil
}

// Save persists the index to disk as a sequential dump of (composite key
// bytes, primary key bytes) pairs, replayed on Load via InsertString. The
// core tree intentionally persists no superblock, root pointer, or free
// list of its own (spec's recovery model delegates structural durability to
// an external log); this is that external replay, scoped to one index file.
func (idx *SecondaryIndex) Save(dir string) error {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	filename := filepath.Join(dir, fmt.Sprintf("index_%s.dat", idx.fieldName))
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create index file for field %s: %w", idx.fieldName, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for it := idx.tree.NewIterator(); it.Valid(); it.Next() {
		raw, ok := idx.tree.GetMapping(it.Key())
		if !ok {
			continue
		}
		primaryKey := *(*[]byte)(it.Value())
		if err := binary.Write(w, binary.BigEndian, uint32(len(raw))); err != nil {
			return fmt.Errorf("failed to write index entry length for field %s: %w", idx.fieldName, err)
		}
		if _, err := w.WriteString(raw); err != nil {
			return fmt.Errorf("failed to write index entry key for field %s: %w", idx.fieldName, err)
		}
		if err := binary.Write(w, binary.BigEndian, uint32(len(primaryKey))); err != nil {
			return fmt.Errorf("failed to write index entry value length for field %s: %w", idx.fieldName, err)
		}
		if _, err := w.Write(primaryKey); err != nil {
			return fmt.Errorf("failed to write index entry value for field %s: %w", idx.fieldName, err)
		}
	}
	return w.Flush()
}

// Load restores the index from disk.
func (idx *SecondaryIndex) Load(dir string) error {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	filename := filepath.Join(dir, fmt.Sprintf("index_%s.dat", idx.fieldName))
	f, err := os.Open(filename)
	if os.IsNotExist(err) {
		// Index doesn't exist yet, keep empty tree
		return nil
	} else if err != nil {
		return fmt.Errorf("failed to load index for field %s: %w", idx.fieldName, err)
	}
	defer f.Close()

	tree := bptree.NewDefaultTree()
	r := bufio.NewReader(f)
	for {
		var keyLen uint32
		if err := binary.Read(r, binary.BigEndian, &keyLen); err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("failed to read index entry length for field %s: %w", idx.fieldName, err)
		}
		keyBuf := make([]byte, keyLen)
		if _, err := io.ReadFull(r, keyBuf); err != nil {
			return fmt.Errorf("failed to read index key for field %s: %w", idx.fieldName, err)
		}
		var valLen uint32
		if err := binary.Read(r, binary.BigEndian, &valLen); err != nil {
			return fmt.Errorf("failed to read index value length for field %s: %w", idx.fieldName, err)
		}
		valBuf := make([]byte, valLen)
		if _, err := io.ReadFull(r, valBuf); err != nil {
			return fmt.Errorf("failed to read index value for field %s: %w", idx.fieldName, err)
		}
		tree.InsertString(keyBuf, unsafe.Pointer(&valBuf))
	}

	idx.tree = tree
	return nil
}

// createIndexKey creates a composite key: field_value + primary_key
func (idx *SecondaryIndex) createIndexKey(fieldValue interface{}, primaryKey []byte) []byte {
	var buf bytes.Buffer
	idx.serializeValue(&buf, fieldValue)
	buf.Write(primaryKey)
	return buf.Bytes()
}

// createFieldPrefix creates a key prefix for field value matching
func (idx *SecondaryIndex) createFieldPrefix(fieldValue interface{}) []byte {
	var buf bytes.Buffer
	idx.serializeValue(&buf, fieldValue)
	return buf.Bytes()
}

// serializeValue serializes different value types for indexing
func (idx *SecondaryIndex) serializeValue(buf *bytes.Buffer, value interface{}) {
	switch v := value.(type) {
	case int:
		buf.WriteByte(0) // Type marker for int
		binary.Write(buf, binary.BigEndian, int64(v))
	case int64:
		buf.WriteByte(0)
		binary.Write(buf, binary.BigEndian, v)
	case float64:
		buf.WriteByte(1) // Type marker for float64
		binary.Write(buf, binary.BigEndian, v)
	case string:
		buf.WriteByte(2) // Type marker for string
		buf.WriteString(v)
		buf.WriteByte(0) // Null terminator
	default:
		// For unknown types, convert to string
		buf.WriteByte(2)
		buf.WriteString(fmt.Sprintf("%v", v))
		buf.WriteByte(0)
	}
}

// deserializeValue is serializeValue's inverse: it decodes the field value
// at the front of data and returns the remaining bytes (the primary key).
func deserializeValue(data []byte) (interface{}, []byte, error) {
	if len(data) == 0 {
		return nil, nil, fmt.Errorf("empty index entry")
	}
	switch data[0] {
	case 0:
		if len(data) < 9 {
			return nil, nil, fmt.Errorf("truncated int64 field")
		}
		return int64(binary.BigEndian.Uint64(data[1:9])), data[9:], nil
	case 1:
		if len(data) < 9 {
			return nil, nil, fmt.Errorf("truncated float64 field")
		}
		bits := binary.BigEndian.Uint64(data[1:9])
		return math.Float64frombits(bits), data[9:], nil
	case 2:
		term := bytes.IndexByte(data[1:], 0)
		if term < 0 {
			return nil, nil, fmt.Errorf("unterminated string field")
		}
		return string(data[1 : 1+term]), data[2+term:], nil
	default:
		return nil, nil, fmt.Errorf("unknown field type tag %d", data[0])
	}
}

// compareValues orders a and b when both are numeric (int/int64/float64) or
// both strings, returning -1/0/1 and ok=true. A mismatched pairing returns
// ok=false; SearchRange treats that as out of range regardless of which
// bound triggered it.
func compareValues(a, b interface{}) (cmp int, ok bool) {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			switch {
			case af < bf:
				return -1, true
			case af > bf:
				return 1, true
			default:
				return 0, true
			}
		}
		return 0, false
	}
	if as, aok := a.(string); aok {
		if bs, bok := b.(string); bok {
			return strings.Compare(as, bs), true
		}
	}
	return 0, false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// IndexManager manages multiple secondary indexes for a partition
type IndexManager struct {
	indexes map[string]*SecondaryIndex
	mutex   sync.RWMutex
	order   int
}

// NewIndexManager creates a new index manager
func NewIndexManager(order int) *IndexManager {
	return &IndexManager{
		indexes: make(map[string]*SecondaryIndex),
		order:   order,
	}
}

// GetOrCreateIndex gets an existing index or creates a new one for a field
func (im *IndexManager) GetOrCreateIndex(fieldName string) *SecondaryIndex {
	im.mutex.Lock()
	defer im.mutex.Unlock()

	if idx, exists := im.indexes[fieldName]; exists {
		return idx
	}

	idx := NewSecondaryIndex(fieldName, im.order)
	im.indexes[fieldName] = idx
	return idx
}

// SaveAll saves all indexes to disk
func (im *IndexManager) SaveAll(dir string) error {
	im.mutex.RLock()
	defer im.mutex.RUnlock()

	for _, idx := range im.indexes {
		if err := idx.Save(dir); err != nil {
			return err
		}
	}
	return nil
}

// LoadAll loads all indexes from disk
func (im *IndexManager) LoadAll(dir string) error {
	im.mutex.Lock()
	defer im.mutex.Unlock()

	// Find all index files
	pattern := filepath.Join(dir, "index_*.dat")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}

	for _, file := range files {
		filename := filepath.Base(file)
		if len(filename) < 10 { // "index_.dat" is 10 chars minimum
			continue
		}

		// Extract field name from filename
		fieldName := filename[6 : len(filename)-4] // Remove "index_" prefix and ".dat" suffix

		idx := NewSecondaryIndex(fieldName, im.order)
		if err := idx.Load(dir); err != nil {
			return err
		}

		im.indexes[fieldName] = idx
	}

	return nil
}
