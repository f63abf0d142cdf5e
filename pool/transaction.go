package pool

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// A TxnAction is one step of a storage transaction.
//
// There is no rollback: the transaction's only ordering tool is the
// barrier, and callers sequence actions so that partial failure leaves
// the store merely stale, never inconsistent (objects first, then the
// index that references them).
type TxnAction interface {
	txnAction()
}

func (PutAction) txnAction()    {}
func (DeleteAction) txnAction() {}
func (BarrierAction) txnAction() {}
func (Assertion) txnAction()    {}

// PutAction uploads the content produced by Open under Key.
type PutAction struct {
	Key  string
	Open func() (io.ReadCloser, error)
}

// PutFileAction uploads a local file.
func PutFileAction(key, path string) PutAction {
	return PutAction{Key: key, Open: func() (io.ReadCloser, error) {
		return os.Open(path)
	}}
}

// PutBytesAction uploads an in-memory blob.
func PutBytesAction(key string, data []byte) PutAction {
	return PutAction{Key: key, Open: func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}}
}

// DeleteAction removes Key. Deleting an absent key is not an error.
type DeleteAction struct {
	Key string
}

// BarrierAction forces every earlier action to finish before any later
// one starts.
type BarrierAction struct{}

// Assertion verifies a remote invariant mid-transaction: Pred receives
// the object's content (nil when absent) and fails the transaction by
// returning false.
type Assertion struct {
	Key  string
	Pred func(data []byte, exists bool) bool
}

// Txn is an ordered list of actions. Actions between two barriers carry
// no mutual ordering and execute concurrently at commit time.
type Txn struct {
	seq []TxnAction
}

func NewTxn() *Txn {
	return &Txn{}
}

func (t *Txn) Add(action TxnAction) {
	t.seq = append(t.seq, action)
}

// Commit runs the transaction against target. The first failure aborts
// the commit after the in-flight segment drains; completed actions stay
// applied.
func (t *Txn) Commit(target StorageProvider) error {
	var staged []TxnAction
	for _, action := range t.seq {
		if _, isBarrier := action.(BarrierAction); isBarrier {
			if err := runSegment(target, staged); err != nil {
				return err
			}
			staged = staged[:0]
			continue
		}
		staged = append(staged, action)
	}
	return runSegment(target, staged)
}

func runSegment(target StorageProvider, actions []TxnAction) error {
	var g errgroup.Group
	for _, action := range actions {
		action := action
		g.Go(func() error {
			return runAction(target, action)
		})
	}
	return g.Wait()
}

func runAction(target StorageProvider, action TxnAction) error {
	switch act := action.(type) {
	case PutAction:
		src, err := act.Open()
		if err != nil {
			return errors.Wrapf(err, "failed to open source for %s", act.Key)
		}
		defer src.Close()
		return target.PutFile(act.Key, src)
	case DeleteAction:
		return target.DeleteFile(act.Key)
	case Assertion:
		data, exists, err := fetch(target, act.Key)
		if err != nil {
			return err
		}
		if !act.Pred(data, exists) {
			return errors.Errorf("assertion failed on %s", act.Key)
		}
		return nil
	default:
		return errors.Errorf("unexecutable action %T", action)
	}
}

func fetch(target StorageProvider, key string) (data []byte, exists bool, _ error) {
	r, err := target.GetFile(key)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer r.Close()
	data, err = io.ReadAll(r)
	if err != nil {
		return nil, false, errors.Wrapf(err, "failed to read %s", key)
	}
	return data, true, nil
}
