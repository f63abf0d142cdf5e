package pool

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/termie/go-shutil"
	"github.com/theckman/go-flock"
)

// PackagePool tracks built artifacts across three tiers: the staging
// area (fresh builds awaiting commit), the local cache directory, and
// the remote store. Commit publishes the whole staging area in one
// transaction and rewrites the remote index.
type PackagePool struct {
	remote StorageProvider
	local  string

	mu        sync.Mutex
	remoteMap map[PackageMeta]string // meta -> remote key
	localMap  map[PackageMeta]string // meta -> cache filename
	stageMap  map[PackageMeta]string // meta -> local path of the built artifact

	lock *flock.Flock
}

// NewPackagePool opens a pool over the remote provider with a local
// cache at localDir. Commits from concurrent pool processes exclude each
// other through a lock file inside the cache directory.
func NewPackagePool(remote StorageProvider, localDir string) (*PackagePool, error) {
	if err := os.MkdirAll(localDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create local cache %s", localDir)
	}
	p := &PackagePool{
		remote:    remote,
		local:     localDir,
		remoteMap: make(map[PackageMeta]string),
		localMap:  make(map[PackageMeta]string),
		stageMap:  make(map[PackageMeta]string),
		lock:      flock.NewFlock(filepath.Join(localDir, ".pool.lock")),
	}
	if err := p.loadRemoteIndex(); err != nil {
		return nil, err
	}
	return p, nil
}

// loadRemoteIndex seeds the remote map from the published lockfile; a
// store with no index yet is simply empty.
func (p *PackagePool) loadRemoteIndex() error {
	r, err := p.remote.GetFile(LockFileKey)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	defer r.Close()
	raw, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrap(err, "failed to read remote index")
	}
	lf, err := DecodeLockFile(raw)
	if err != nil {
		return err
	}
	p.remoteMap = lf.Map()
	return nil
}

// Stage records a freshly built artifact for the next commit.
func (p *PackagePool) Stage(unit LocalPackageUnit) {
	p.mu.Lock()
	p.stageMap[unit.Meta] = unit.Path
	p.mu.Unlock()
}

// Get returns a local path for the artifact: straight from staging, from
// the cache, or downloaded from the remote into the cache. ok is false
// when the pool has never seen the artifact.
func (p *PackagePool) Get(meta PackageMeta) (path string, ok bool, _ error) {
	p.mu.Lock()
	if staged, hit := p.stageMap[meta]; hit {
		p.mu.Unlock()
		return staged, true, nil
	}
	if filename, hit := p.localMap[meta]; hit {
		p.mu.Unlock()
		return filepath.Join(p.local, filename), true, nil
	}
	key, hit := p.remoteMap[meta]
	p.mu.Unlock()
	if !hit {
		return "", false, nil
	}

	// The remote object is opened outside the lock and copied into the
	// cache under it; a concurrent Get for the same artifact may open it
	// twice, and only the first to take the lock copies it.
	r, err := p.remote.GetFile(key)
	if err != nil {
		return "", false, errors.Wrapf(err, "failed to fetch %s", key)
	}
	defer r.Close()

	p.mu.Lock()
	defer p.mu.Unlock()
	if filename, hit := p.localMap[meta]; hit {
		return filepath.Join(p.local, filename), true, nil
	}
	localPath := filepath.Join(p.local, key)
	f, err := os.Create(localPath)
	if err != nil {
		return "", false, errors.Wrapf(err, "failed to create cache entry %s", localPath)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(localPath)
		return "", false, errors.Wrapf(err, "failed to cache %s", key)
	}
	if err := f.Close(); err != nil {
		return "", false, errors.Wrapf(err, "failed to flush cache entry %s", localPath)
	}
	p.localMap[meta] = key
	return localPath, true, nil
}

// Commit publishes the staging area: every package object uploads first
// (in parallel), a barrier waits them out, the stale index goes away,
// and the fresh index lands last. Staged artifacts also pre-seed the
// local cache so later Gets stay off the network.
func (p *PackagePool) Commit() error {
	if err := p.lock.Lock(); err != nil {
		return errors.Wrap(err, "failed to take the pool lock")
	}
	defer p.lock.Unlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	txn := NewTxn()
	for meta, path := range p.stageMap {
		unit := LocalPackageUnit{Meta: meta, Path: path}
		key := unit.CanonicalFilename()

		p.remoteMap[meta] = key
		p.localMap[meta] = key

		txn.Add(PutFileAction(key, path))

		// Pre-seed the cache now; the maps are locked, so a concurrent
		// Get cannot observe the entry before the file is in place.
		if err := copyFile(path, filepath.Join(p.local, key)); err != nil {
			return err
		}
	}

	txn.Add(BarrierAction{})
	txn.Add(DeleteAction{Key: LockFileKey})
	// The store may lack atomic replace, so the delete must settle
	// before the new index uploads.
	txn.Add(BarrierAction{})

	lf := NewLockFile(p.remoteMap)
	raw, err := lf.Encode()
	if err != nil {
		return err
	}
	txn.Add(PutBytesAction(LockFileKey, raw))

	if err := txn.Commit(p.remote); err != nil {
		return err
	}

	p.stageMap = make(map[PackageMeta]string)
	return nil
}

func copyFile(src, dst string) error {
	if err := shutil.CopyFile(src, dst, false); err != nil {
		return errors.Wrapf(err, "failed to copy %s into the cache", src)
	}
	return nil
}
