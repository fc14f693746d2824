package mega

import (
	"context"
	"log/slog"

	"github.com/openmega/megawait/internal/bridge"
	"github.com/openmega/megawait/internal/native"
)

// AccountDetails fetches the account snapshot (storage and transfer usage).
func (s *Session) AccountDetails(ctx context.Context) (*native.AccountDetails, error) {
	req, err := s.do(ctx, "account_details", func(l native.Listener) uint64 {
		return s.api.FetchAccountDetails(l)
	})
	if err != nil {
		return nil, err
	}

	return req.Account, nil
}

// List returns the entries directly under the given remote directory.
func (s *Session) List(ctx context.Context, dir string) ([]native.Entry, error) {
	if dir == "" {
		return nil, &OpError{Op: "list", Err: ErrInvalidArgument, Message: "path is required"}
	}

	req, err := s.do(ctx, "list", func(l native.Listener) uint64 {
		return s.api.List(dir, l)
	})
	if err != nil {
		return nil, err
	}

	return req.Entries, nil
}

// Upload transfers a local file to the given remote path.
//
// If ctx is cancelled mid-transfer the facade requests native cancellation;
// uploads are cancellable in the SDK, so the transfer normally stops.
func (s *Session) Upload(ctx context.Context, localPath, remotePath string) (*native.TransferInfo, error) {
	if localPath == "" || remotePath == "" {
		return nil, &OpError{Op: "upload", Err: ErrInvalidArgument, Message: "local and remote paths are required"}
	}

	req, err := s.do(ctx, "upload", func(l native.Listener) uint64 {
		return s.api.Upload(localPath, remotePath, l)
	})
	if err != nil {
		return nil, err
	}

	return req.Transfer, nil
}

// Download transfers a remote file to the given local path. Cancellation
// behaves as for Upload.
func (s *Session) Download(ctx context.Context, remotePath, localPath string) (*native.TransferInfo, error) {
	if remotePath == "" || localPath == "" {
		return nil, &OpError{Op: "download", Err: ErrInvalidArgument, Message: "remote and local paths are required"}
	}

	req, err := s.do(ctx, "download", func(l native.Listener) uint64 {
		return s.api.Download(remotePath, localPath, l)
	})
	if err != nil {
		return nil, err
	}

	return req.Transfer, nil
}

// Move renames or relocates a remote entry.
//
// Moves are not cancellable in the SDK: cancelling the ctx only stops
// waiting, and the move may still take effect remotely.
func (s *Session) Move(ctx context.Context, srcPath, dstPath string) error {
	if srcPath == "" || dstPath == "" {
		return &OpError{Op: "move", Err: ErrInvalidArgument, Message: "source and destination paths are required"}
	}

	_, err := s.do(ctx, "move", func(l native.Listener) uint64 {
		return s.api.Move(srcPath, dstPath, l)
	})

	return err
}

// Delete removes a remote entry. Like Move, deletion is not cancellable in
// the SDK; a cancelled Delete may still take effect remotely.
func (s *Session) Delete(ctx context.Context, path string) error {
	if path == "" {
		return &OpError{Op: "delete", Err: ErrInvalidArgument, Message: "path is required"}
	}

	_, err := s.do(ctx, "delete", func(l native.Listener) uint64 {
		return s.api.Delete(path, l)
	})

	return err
}

// MkDir creates a remote directory.
func (s *Session) MkDir(ctx context.Context, path string) error {
	if path == "" {
		return &OpError{Op: "mkdir", Err: ErrInvalidArgument, Message: "path is required"}
	}

	_, err := s.do(ctx, "mkdir", func(l native.Listener) uint64 {
		return s.api.MkDir(path, l)
	})

	return err
}

// do runs one native operation end to end: state check, waiter
// registration, submission, await, translation. The session mutex covers
// the state check and the submission together, so a submission can never
// slip in after Close has started tearing down; it is released before the
// await.
func (s *Session) do(ctx context.Context, op string, submit func(native.Listener) uint64) (*native.Request, error) {
	s.mu.Lock()
	switch s.state {
	case StateAuthenticated:
	case StateClosing, StateClosed:
		s.mu.Unlock()

		return nil, &OpError{Op: op, Err: ErrSessionClosed}
	default:
		s.mu.Unlock()

		return nil, &OpError{Op: op, Err: ErrNotOpen}
	}

	w := s.reg.NewWaiter()
	handle := submit(w)
	s.mu.Unlock()

	s.logger.Debug("operation submitted",
		slog.String("op", op),
		slog.String("correlation_id", w.ID()),
		slog.Uint64("handle", handle),
	)

	o, err := s.await(ctx, op, w, handle)
	if err != nil {
		return nil, err
	}

	return o.Request, nil
}

// settle awaits a lifecycle operation (login/logout) and reduces the
// outcome to an error.
func (s *Session) settle(ctx context.Context, op string, w *bridge.Waiter, handle uint64) error {
	_, err := s.await(ctx, op, w, handle)

	return err
}

// await blocks until the waiter resolves or ctx is done, then translates.
// On ctx expiry the registry entry is already removed by Await; native
// cancellation is requested best-effort. Where the SDK rejects the cancel
// the operation completes in the background and its result is discarded
// against the stale correlation id.
func (s *Session) await(ctx context.Context, op string, w *bridge.Waiter, handle uint64) (bridge.Outcome, error) {
	if s.opTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opTimeout)
		defer cancel()
	}

	o, err := w.Await(ctx)
	if err != nil {
		if s.api.Cancel(handle) {
			s.logger.Debug("native cancellation requested",
				slog.String("op", op),
				slog.Uint64("handle", handle),
			)
		} else {
			s.logger.Debug("native cancellation unsupported, discarding eventual result",
				slog.String("op", op),
				slog.Uint64("handle", handle),
			)
		}

		return bridge.Outcome{}, &OpError{Op: op, Err: ErrCancelled, Message: err.Error()}
	}

	if terr := translate(op, o); terr != nil {
		s.logger.Debug("operation failed",
			slog.String("op", op),
			slog.String("correlation_id", w.ID()),
			slog.String("code", o.Code.String()),
			slog.String("message", o.Message),
		)

		return bridge.Outcome{}, terr
	}

	s.logger.Debug("operation finished",
		slog.String("op", op),
		slog.String("correlation_id", w.ID()),
	)

	return o, nil
}
