package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openmega/megawait/internal/native"
)

// chanListener collects completions on a channel.
type chanListener struct {
	done chan result
}

type result struct {
	req  *native.Request
	code native.Code
	msg  string
}

func newChanListener() *chanListener {
	return &chanListener{done: make(chan result, 2)}
}

func (l *chanListener) OnFinish(req *native.Request, code native.Code, msg string) {
	l.done <- result{req: req, code: code, msg: msg}
}

func (l *chanListener) wait(t *testing.T) result {
	t.Helper()

	select {
	case r := <-l.done:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("no completion arrived")

		return result{}
	}
}

func TestSim_RegisteredAsDriver(t *testing.T) {
	api, err := native.Open("sim", "appkey")
	require.NoError(t, err)
	require.NotNil(t, api)
	api.Release()
}

func TestSim_LoginValidation(t *testing.T) {
	s := New()
	s.RequireCredentials("a@b.c", "secret", "")

	l := newChanListener()
	s.Login("a@b.c", "nope", "", l)

	r := l.wait(t)
	assert.Equal(t, native.CodeNoEnt, r.code)

	s.Login("a@b.c", "secret", "", l)
	r = l.wait(t)
	assert.Equal(t, native.CodeOK, r.code)
	assert.Equal(t, native.KindLogin, r.req.Kind)
}

func TestSim_CancelOnlyTransfers(t *testing.T) {
	s := New()
	release := s.Gate()

	l := newChanListener()
	listHandle := s.List("/", l)
	dlHandle := s.Download("/x", "/tmp/x", l)

	// Requests are not cancellable; transfers are.
	assert.False(t, s.Cancel(listHandle))
	assert.True(t, s.Cancel(dlHandle))
	assert.False(t, s.Cancel(9999))

	release()

	// The cancelled download completes with EINCOMPLETE, the list normally.
	codes := map[native.Kind]native.Code{}
	for range 2 {
		r := l.wait(t)
		codes[r.req.Kind] = r.code
	}

	assert.Equal(t, native.CodeOK, codes[native.KindList])
	assert.Equal(t, native.CodeIncomplete, codes[native.KindDownload])
}

func TestSim_DuplicateFinishes(t *testing.T) {
	s := New()
	s.DuplicateFinishes()

	l := newChanListener()
	s.List("/", l)

	first := l.wait(t)
	second := l.wait(t)
	assert.Equal(t, first.req, second.req)
	assert.Equal(t, first.code, second.code)
}

func TestSim_UploadQuota(t *testing.T) {
	s := New()
	s.Seed(native.Entry{Name: "huge", Path: "/huge", Size: 50 * 1024 * 1024 * 1024})

	l := newChanListener()
	s.Upload("/tmp/x", "/x", l)

	r := l.wait(t)
	assert.Equal(t, native.CodeOverQuota, r.code)
}

func TestSim_SubmitAfterReleasePanics(t *testing.T) {
	s := New()
	s.Release()

	assert.Panics(t, func() { s.List("/", newChanListener()) })
}
