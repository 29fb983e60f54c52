package storage

// Namespace confines a component to the keys under "<name>/" of a shared
// database. Keys seen by callers never include the namespace.
type Namespace struct {
	inner DB
	name  string
	pfx   []byte
}

// NewNamespace returns the namespace name within inner.
func NewNamespace(inner DB, name string) *Namespace {
	return &Namespace{inner: inner, name: name, pfx: []byte(name + "/")}
}

// Name returns the namespace name.
func (n *Namespace) Name() string { return n.name }

func (n *Namespace) key(k []byte) []byte {
	return append(append(make([]byte, 0, len(n.pfx)+len(k)), n.pfx...), k...)
}

func (n *Namespace) Get(key []byte) ([]byte, error) { return n.inner.Get(n.key(key)) }
func (n *Namespace) Put(key, value []byte) error    { return n.inner.Put(n.key(key), value) }
func (n *Namespace) Delete(key []byte) error        { return n.inner.Delete(n.key(key)) }
func (n *Namespace) Has(key []byte) (bool, error)   { return n.inner.Has(n.key(key)) }

// ForEach visits the keys under prefix within the namespace.
func (n *Namespace) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	return n.inner.ForEach(n.key(prefix), func(key, value []byte) error {
		return fn(key[len(n.pfx):], value)
	})
}

// Close does nothing; the shared database is closed by its owner.
func (n *Namespace) Close() error { return nil }

// NewBatch returns a batch of the inner database with namespaced keys.
func (n *Namespace) NewBatch() Batch {
	return namespaceBatch{ns: n, b: NewBatch(n.inner)}
}

type namespaceBatch struct {
	ns *Namespace
	b  Batch
}

func (nb namespaceBatch) Put(key, value []byte) error { return nb.b.Put(nb.ns.key(key), value) }
func (nb namespaceBatch) Delete(key []byte) error     { return nb.b.Delete(nb.ns.key(key)) }
func (nb namespaceBatch) Commit() error               { return nb.b.Commit() }
