// Package native defines the contract of the MEGA SDK binding that megawait
// wraps. The SDK is an opaque collaborator: it owns the storage protocol,
// transport, and retry policy, and completes every submitted operation by
// invoking a Listener on one of its own worker threads. This package holds
// only the submission interface, the listener contract, the numeric result
// codes, and the descriptor types that flow across that boundary.
//
// Backends register themselves by name (like database/sql drivers) so the
// cgo binding and the in-memory simulator can coexist.
package native

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"
)

// Code is a native SDK result code. The values match the MEGA SDK's error
// enumeration; CodeOK is the only success value.
type Code int

// Result codes reported by the native SDK.
const (
	CodeOK                  Code = 0
	CodeInternal            Code = -1
	CodeArgs                Code = -2
	CodeAgain               Code = -3
	CodeRateLimit           Code = -4
	CodeFailed              Code = -5
	CodeTooMany             Code = -6
	CodeRange               Code = -7
	CodeExpired             Code = -8
	CodeNoEnt               Code = -9
	CodeCircular            Code = -10
	CodeAccess              Code = -11
	CodeExist               Code = -12
	CodeIncomplete          Code = -13
	CodeKey                 Code = -14
	CodeSID                 Code = -15
	CodeBlocked             Code = -16
	CodeOverQuota           Code = -17
	CodeTempUnavail         Code = -18
	CodeTooManyConnections  Code = -19
	CodeWrite               Code = -20
	CodeRead                Code = -21
	CodeAppKey              Code = -22
	CodeSSL                 Code = -23
	CodeGoingOverQuota      Code = -24
	CodeMFARequired         Code = -26
)

var codeNames = map[Code]string{
	CodeOK:                 "OK",
	CodeInternal:           "EINTERNAL",
	CodeArgs:               "EARGS",
	CodeAgain:              "EAGAIN",
	CodeRateLimit:          "ERATELIMIT",
	CodeFailed:             "EFAILED",
	CodeTooMany:            "ETOOMANY",
	CodeRange:              "ERANGE",
	CodeExpired:            "EEXPIRED",
	CodeNoEnt:              "ENOENT",
	CodeCircular:           "ECIRCULAR",
	CodeAccess:             "EACCESS",
	CodeExist:              "EEXIST",
	CodeIncomplete:         "EINCOMPLETE",
	CodeKey:                "EKEY",
	CodeSID:                "ESID",
	CodeBlocked:            "EBLOCKED",
	CodeOverQuota:          "EOVERQUOTA",
	CodeTempUnavail:        "ETEMPUNAVAIL",
	CodeTooManyConnections: "ETOOMANYCONNECTIONS",
	CodeWrite:              "EWRITE",
	CodeRead:               "EREAD",
	CodeAppKey:             "EAPPKEY",
	CodeSSL:                "ESSL",
	CodeGoingOverQuota:     "EGOINGOVERQUOTA",
	CodeMFARequired:        "EMFAREQUIRED",
}

// String returns the SDK's symbolic name for the code, or the raw number
// for codes this package does not know about.
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}

	return strconv.Itoa(int(c))
}

// Kind identifies one native operation type.
type Kind int

// Operation kinds submitted through API.
const (
	KindLogin Kind = iota
	KindLogout
	KindAccountDetails
	KindList
	KindUpload
	KindDownload
	KindMove
	KindDelete
	KindMkDir
)

var kindNames = [...]string{
	KindLogin:          "login",
	KindLogout:         "logout",
	KindAccountDetails: "account_details",
	KindList:           "list",
	KindUpload:         "upload",
	KindDownload:       "download",
	KindMove:           "move",
	KindDelete:         "delete",
	KindMkDir:          "mkdir",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}

	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// AccountDetails is the account snapshot returned by a fetch-account-details
// request. Sizes are bytes.
type AccountDetails struct {
	Email        string
	StorageUsed  int64
	StorageMax   int64
	TransferUsed int64
	TransferMax  int64
	ProLevel     int
}

// Entry is one node in a directory listing.
type Entry struct {
	Name     string
	Path     string
	Size     int64
	Dir      bool
	Handle   uint64
	Modified time.Time
}

// TransferInfo describes a completed upload or download.
type TransferInfo struct {
	Source       string
	Target       string
	Bytes        int64
	MeanSpeedBps int64
}

// Request is the descriptor the SDK hands back to the listener on
// completion. The payload fields are populated according to Kind and are
// passed through to the caller untouched.
type Request struct {
	Kind   Kind
	Handle uint64

	Account  *AccountDetails
	Entries  []Entry
	Transfer *TransferInfo
}

// Listener is the callback contract the native SDK invokes when a submitted
// operation completes. OnFinish is called exactly once per submission, on a
// worker thread owned by the SDK; implementations must not block and must
// not assume any particular goroutine.
type Listener interface {
	OnFinish(req *Request, code Code, message string)
}

// API is the submission surface of one native client handle. Every call
// returns immediately with the request handle; the outcome arrives later via
// the listener. A handle is single-session: it is created by a Factory,
// driven through Login/Logout, and freed with Release.
type API interface {
	Login(email, password, totp string, l Listener) uint64
	Logout(l Listener) uint64
	FetchAccountDetails(l Listener) uint64
	List(path string, l Listener) uint64
	Upload(localPath, remotePath string, l Listener) uint64
	Download(remotePath, localPath string, l Listener) uint64
	Move(srcPath, dstPath string, l Listener) uint64
	Delete(path string, l Listener) uint64
	MkDir(path string, l Listener) uint64

	// Cancel requests cancellation of an outstanding operation by handle.
	// Support is operation-kind dependent in the SDK (transfers yes, most
	// requests no); the return value reports whether the backend accepted
	// the request. Even an accepted cancel still completes the operation
	// through the listener, with CodeIncomplete.
	Cancel(handle uint64) bool

	// Release frees the native client handle. No submissions may follow.
	Release()
}

// Factory creates a fresh native client handle for one session.
type Factory func(appKey string) (API, error)

var (
	driversMu sync.Mutex
	drivers   = map[string]Factory{}
)

// Register makes a backend available under the given name. It is intended
// to be called from a backend package's init and panics on duplicates,
// matching database/sql driver semantics.
func Register(name string, f Factory) {
	driversMu.Lock()
	defer driversMu.Unlock()

	if f == nil {
		panic("native: Register with nil factory")
	}

	if _, dup := drivers[name]; dup {
		panic("native: Register called twice for driver " + name)
	}

	drivers[name] = f
}

// Open creates a client handle using the named backend.
func Open(name, appKey string) (API, error) {
	driversMu.Lock()
	f, ok := drivers[name]
	var known []string
	if !ok {
		for n := range drivers {
			known = append(known, n)
		}
	}
	driversMu.Unlock()

	if !ok {
		sort.Strings(known)

		return nil, fmt.Errorf("native: unknown backend %q (registered: %v)", name, known)
	}

	return f(appKey)
}
