// Package sim is an in-memory native backend. It reproduces the SDK's
// threading model — every submission returns immediately and completes later
// by invoking the listener on a worker goroutine — without any network or
// cgo, which makes it the backend for tests and local development.
//
// It registers itself as driver "sim".
//
// TODO: retire the default registration once the megasdk cgo binding ships
// and the simulator is only reachable behind --backend sim.
package sim

import (
	"os"
	"path"
	"sync"
	"sync/atomic"
	"time"

	"github.com/openmega/megawait/internal/native"
)

func init() {
	native.Register("sim", func(appKey string) (native.API, error) {
		return New(), nil
	})
}

// fallbackSize is used for uploads whose local path cannot be stat'ed.
const fallbackSize = 4096

// storageMax is the simulated account quota (50 GB, the MEGA free tier).
const storageMax = 50 * 1024 * 1024 * 1024

// scripted is a one-shot failure injected for the next operation of a kind.
type scripted struct {
	code native.Code
	msg  string
}

// Sim is an in-memory native.API. The zero value is not usable; call New.
//
// Knobs (SetLatency, FailNext, DuplicateFinishes, Gate, RequireCredentials)
// must be set before the operations they affect are submitted.
type Sim struct {
	latency    time.Duration
	nextHandle atomic.Uint64
	workers    sync.WaitGroup

	mu        sync.Mutex
	released  bool
	entries   map[string]native.Entry
	used      int64
	email     string
	password  string
	totp      string
	needCreds bool
	failNext  map[native.Kind]scripted
	cancelled map[uint64]bool
	kinds     map[uint64]native.Kind
	duplicate bool
	gate      chan struct{}
}

// New creates a simulator with an empty account containing only the root.
func New() *Sim {
	return &Sim{
		entries: map[string]native.Entry{
			"/": {Name: "/", Path: "/", Dir: true},
		},
		failNext:  map[native.Kind]scripted{},
		cancelled: map[uint64]bool{},
		kinds:     map[uint64]native.Kind{},
	}
}

// SetLatency delays every completion by d, simulating network time.
func (s *Sim) SetLatency(d time.Duration) { s.latency = d }

// RequireCredentials makes Login validate against the given values.
// totp may be empty. Without this, any non-empty credentials are accepted.
func (s *Sim) RequireCredentials(email, password, totp string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.needCreds = true
	s.email, s.password, s.totp = email, password, totp
}

// FailNext scripts the next operation of the given kind to fail.
func (s *Sim) FailNext(kind native.Kind, code native.Code, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failNext[kind] = scripted{code: code, msg: msg}
}

// DuplicateFinishes makes every completion invoke the listener twice,
// violating the SDK contract on purpose so the bridge's idempotence can be
// exercised.
func (s *Sim) DuplicateFinishes() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.duplicate = true
}

// Gate blocks every subsequent completion until the returned release
// function is called. Used to keep operations outstanding during teardown
// tests.
func (s *Sim) Gate() (release func()) {
	ch := make(chan struct{})

	s.mu.Lock()
	s.gate = ch
	s.mu.Unlock()

	return sync.OnceFunc(func() { close(ch) })
}

// Wait blocks until all in-flight workers have delivered their callbacks.
func (s *Sim) Wait() { s.workers.Wait() }

// Seed inserts an entry directly, bypassing the operation path.
func (s *Sim) Seed(e native.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[e.Path] = e
	if !e.Dir {
		s.used += e.Size
	}
}

func (s *Sim) Login(email, password, totp string, l native.Listener) uint64 {
	return s.submit(native.KindLogin, l, func(req *native.Request) (native.Code, string) {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.needCreds {
			if email != s.email || password != s.password {
				return native.CodeNoEnt, "invalid email or password"
			}

			if s.totp != "" && totp != s.totp {
				return native.CodeMFARequired, "two-factor code required"
			}
		}

		s.email = email

		return native.CodeOK, ""
	})
}

func (s *Sim) Logout(l native.Listener) uint64 {
	return s.submit(native.KindLogout, l, func(req *native.Request) (native.Code, string) {
		return native.CodeOK, ""
	})
}

func (s *Sim) FetchAccountDetails(l native.Listener) uint64 {
	return s.submit(native.KindAccountDetails, l, func(req *native.Request) (native.Code, string) {
		s.mu.Lock()
		defer s.mu.Unlock()

		req.Account = &native.AccountDetails{
			Email:       s.email,
			StorageUsed: s.used,
			StorageMax:  storageMax,
			TransferMax: storageMax,
		}

		return native.CodeOK, ""
	})
}

func (s *Sim) List(dir string, l native.Listener) uint64 {
	return s.submit(native.KindList, l, func(req *native.Request) (native.Code, string) {
		s.mu.Lock()
		defer s.mu.Unlock()

		parent, ok := s.entries[dir]
		if !ok || !parent.Dir {
			return native.CodeNoEnt, "no such directory: " + dir
		}

		for _, e := range s.entries {
			if e.Path != dir && path.Dir(e.Path) == dir {
				req.Entries = append(req.Entries, e)
			}
		}

		return native.CodeOK, ""
	})
}

func (s *Sim) Upload(localPath, remotePath string, l native.Listener) uint64 {
	return s.submit(native.KindUpload, l, func(req *native.Request) (native.Code, string) {
		size := int64(fallbackSize)
		if fi, err := os.Stat(localPath); err == nil {
			size = fi.Size()
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		if s.used+size > storageMax {
			return native.CodeOverQuota, "storage quota exceeded"
		}

		s.entries[remotePath] = native.Entry{
			Name:     path.Base(remotePath),
			Path:     remotePath,
			Size:     size,
			Handle:   req.Handle,
			Modified: time.Now(),
		}
		s.used += size

		req.Transfer = &native.TransferInfo{Source: localPath, Target: remotePath, Bytes: size}

		return native.CodeOK, ""
	})
}

func (s *Sim) Download(remotePath, localPath string, l native.Listener) uint64 {
	return s.submit(native.KindDownload, l, func(req *native.Request) (native.Code, string) {
		s.mu.Lock()
		e, ok := s.entries[remotePath]
		s.mu.Unlock()

		if !ok || e.Dir {
			return native.CodeNoEnt, "no such file: " + remotePath
		}

		req.Transfer = &native.TransferInfo{Source: remotePath, Target: localPath, Bytes: e.Size}

		return native.CodeOK, ""
	})
}

func (s *Sim) Move(srcPath, dstPath string, l native.Listener) uint64 {
	return s.submit(native.KindMove, l, func(req *native.Request) (native.Code, string) {
		s.mu.Lock()
		defer s.mu.Unlock()

		e, ok := s.entries[srcPath]
		if !ok {
			return native.CodeNoEnt, "no such entry: " + srcPath
		}

		delete(s.entries, srcPath)
		e.Path = dstPath
		e.Name = path.Base(dstPath)
		s.entries[dstPath] = e

		return native.CodeOK, ""
	})
}

func (s *Sim) Delete(p string, l native.Listener) uint64 {
	return s.submit(native.KindDelete, l, func(req *native.Request) (native.Code, string) {
		s.mu.Lock()
		defer s.mu.Unlock()

		e, ok := s.entries[p]
		if !ok {
			return native.CodeNoEnt, "no such entry: " + p
		}

		delete(s.entries, p)
		if !e.Dir {
			s.used -= e.Size
		}

		return native.CodeOK, ""
	})
}

func (s *Sim) MkDir(p string, l native.Listener) uint64 {
	return s.submit(native.KindMkDir, l, func(req *native.Request) (native.Code, string) {
		s.mu.Lock()
		defer s.mu.Unlock()

		if _, exists := s.entries[p]; exists {
			return native.CodeExist, "already exists: " + p
		}

		s.entries[p] = native.Entry{Name: path.Base(p), Path: p, Dir: true, Modified: time.Now()}

		return native.CodeOK, ""
	})
}

// Cancel accepts cancellation for transfers only, matching the SDK.
func (s *Sim) Cancel(handle uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	kind, ok := s.kinds[handle]
	if !ok || (kind != native.KindUpload && kind != native.KindDownload) {
		return false
	}

	s.cancelled[handle] = true

	return true
}

// Release marks the handle freed. In-flight workers still run to completion;
// their callbacks land after Release just like late native callbacks do.
func (s *Sim) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.released = true
}

// submit runs perform on a worker goroutine and delivers the result through
// the listener, mimicking the SDK's request queue.
func (s *Sim) submit(kind native.Kind, l native.Listener, perform func(*native.Request) (native.Code, string)) uint64 {
	handle := s.nextHandle.Add(1)

	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		panic("sim: submission after Release")
	}
	s.kinds[handle] = kind
	gate := s.gate
	s.mu.Unlock()

	s.workers.Add(1)

	go func() {
		defer s.workers.Done()

		if s.latency > 0 {
			time.Sleep(s.latency)
		}

		if gate != nil {
			<-gate
		}

		req := &native.Request{Kind: kind, Handle: handle}
		code, msg := s.outcome(kind, handle, req, perform)

		l.OnFinish(req, code, msg)

		s.mu.Lock()
		dup := s.duplicate
		s.mu.Unlock()

		if dup {
			l.OnFinish(req, code, msg)
		}
	}()

	return handle
}

// outcome applies cancellation and scripted failures before performing.
func (s *Sim) outcome(kind native.Kind, handle uint64, req *native.Request, perform func(*native.Request) (native.Code, string)) (native.Code, string) {
	s.mu.Lock()
	if s.cancelled[handle] {
		delete(s.cancelled, handle)
		s.mu.Unlock()

		return native.CodeIncomplete, "transfer cancelled"
	}

	if f, ok := s.failNext[kind]; ok {
		delete(s.failNext, kind)
		s.mu.Unlock()

		return f.code, f.msg
	}
	s.mu.Unlock()

	return perform(req)
}
