package mega

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/openmega/megawait/internal/native"
)

func TestFacade_ListAndMkDir(t *testing.T) {
	s, backend := newOpenSession(t)
	defer s.Close()

	backend.Seed(native.Entry{Name: "report.pdf", Path: "/report.pdf", Size: 1024})

	require.NoError(t, s.MkDir(context.Background(), "/docs"))

	entries, err := s.List(context.Background(), "/")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	names := map[string]bool{}
	for _, e := range entries {
		names[e.Name] = true
	}
	assert.True(t, names["report.pdf"])
	assert.True(t, names["docs"])
}

func TestFacade_UploadDownloadMoveDelete(t *testing.T) {
	s, _ := newOpenSession(t)
	defer s.Close()

	ctx := context.Background()

	info, err := s.Upload(ctx, "/tmp/does-not-exist.bin", "/backup.bin")
	require.NoError(t, err)
	assert.Equal(t, "/backup.bin", info.Target)
	assert.Positive(t, info.Bytes)

	dl, err := s.Download(ctx, "/backup.bin", "/tmp/out.bin")
	require.NoError(t, err)
	assert.Equal(t, info.Bytes, dl.Bytes)

	require.NoError(t, s.Move(ctx, "/backup.bin", "/archive.bin"))

	_, err = s.Download(ctx, "/backup.bin", "/tmp/out.bin")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Delete(ctx, "/archive.bin"))

	err = s.Delete(ctx, "/archive.bin")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFacade_ConcurrentOperationsNoCrossTalk(t *testing.T) {
	// N downloads in flight at once, each for a file of a distinct size;
	// every caller must get back the size of its own file.
	const n = 16

	s, backend := newOpenSession(t)
	defer s.Close()

	backend.SetLatency(5 * time.Millisecond)

	for i := range n {
		backend.Seed(native.Entry{
			Name: fmt.Sprintf("f%d", i),
			Path: fmt.Sprintf("/f%d", i),
			Size: int64(1000 + i),
		})
	}

	g := new(errgroup.Group)
	for i := range n {
		g.Go(func() error {
			info, err := s.Download(context.Background(), fmt.Sprintf("/f%d", i), "/tmp/x")
			if err != nil {
				return err
			}

			if info.Bytes != int64(1000+i) {
				return fmt.Errorf("download %d got bytes for another file: %d", i, info.Bytes)
			}

			return nil
		})
	}

	require.NoError(t, g.Wait())
	assert.Equal(t, 0, s.Outstanding())
}

func TestFacade_DuplicateNativeCallback(t *testing.T) {
	// The sim violates the listener contract by completing twice; only the
	// first callback may have any observable effect.
	s, backend := newOpenSession(t)
	defer s.Close()

	backend.DuplicateFinishes()

	entries, err := s.List(context.Background(), "/")
	require.NoError(t, err)
	assert.Empty(t, entries)

	backend.Wait()
	assert.Equal(t, 0, s.Outstanding())

	// The session keeps working normally afterwards.
	require.NoError(t, s.MkDir(context.Background(), "/later"))
}

func TestFacade_CancellationRemovesEntry(t *testing.T) {
	s, backend := newOpenSession(t)
	defer s.Close()

	release := backend.Gate()
	defer release()

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := s.Download(ctx, "/anything", "/tmp/x")
		done <- err
	}()

	waitFor(t, func() bool { return s.Outstanding() == 1 })
	cancel()

	err := <-done
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCancelled)

	// The registry entry is gone before the native completion arrives.
	assert.Equal(t, 0, s.Outstanding())

	release()
	backend.Wait()
	assert.Equal(t, 0, s.Outstanding())
}

func TestFacade_OperationTimeout(t *testing.T) {
	s, backend := newOpenSession(t, WithOperationTimeout(20*time.Millisecond))
	defer s.Close()

	release := backend.Gate()
	defer release()

	_, err := s.List(context.Background(), "/")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, 0, s.Outstanding())
}

func TestFacade_ErrorTranslation(t *testing.T) {
	tests := []struct {
		name     string
		code     native.Code
		sentinel error
	}{
		{"over quota", native.CodeOverQuota, ErrQuotaExceeded},
		{"transient", native.CodeAgain, ErrTransient},
		{"blocked", native.CodeBlocked, ErrAuthentication},
		{"unknown", native.Code(-123), ErrUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, backend := newOpenSession(t)
			defer s.Close()

			backend.FailNext(native.KindList, tt.code, "scripted failure")

			_, err := s.List(context.Background(), "/")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)

			var opErr *OpError
			require.ErrorAs(t, err, &opErr)
			assert.Equal(t, tt.code, opErr.Code)
			assert.Equal(t, "scripted failure", opErr.Message)
		})
	}
}

func TestFacade_ArgumentValidation(t *testing.T) {
	s, _ := newOpenSession(t)
	defer s.Close()

	ctx := context.Background()

	_, err := s.List(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = s.Upload(ctx, "", "/x")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = s.Download(ctx, "/x", "")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	assert.ErrorIs(t, s.Move(ctx, "/x", ""), ErrInvalidArgument)
	assert.ErrorIs(t, s.Delete(ctx, ""), ErrInvalidArgument)
	assert.ErrorIs(t, s.MkDir(ctx, ""), ErrInvalidArgument)

	// Nothing was submitted for any of these.
	assert.Equal(t, 0, s.Outstanding())
}

func TestFacade_QuotaExceededOnUpload(t *testing.T) {
	s, backend := newOpenSession(t)
	defer s.Close()

	backend.FailNext(native.KindUpload, native.CodeOverQuota, "storage quota exceeded")

	_, err := s.Upload(context.Background(), "/tmp/big.bin", "/big.bin")
	assert.ErrorIs(t, err, ErrQuotaExceeded)
}
