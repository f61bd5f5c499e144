package spillover

import (
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrOutOfBudget means a single value's encoded size exceeds the RAM
	// budget, so it can never be held resident.
	ErrOutOfBudget = errors.New("value exceeds ram budget")

	// ErrIO wraps read/write/allocate failures of the backing file.
	ErrIO = errors.New("backing file io failure")

	// ErrUnsupportedValue means the codec cannot serialize the value.
	ErrUnsupportedValue = errors.New("value not serializable")

	// ErrKeyNotFound mirrors missing-key container semantics.
	ErrKeyNotFound = errors.New("key not found")

	// ErrIndexOutOfRange mirrors out-of-range sequence semantics.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrCorruptState signals a broken internal invariant, e.g. a slot read
	// returning the wrong length. The container is unusable afterwards.
	ErrCorruptState = errors.New("corrupt container state")

	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("container closed")
)

// BundleErr collects errors from multi-part teardown paths.
type BundleErr struct {
	errs []error
}

func (be *BundleErr) Add(err error) *BundleErr {
	if err != nil {
		be.errs = append(be.errs, err)
	}
	return be
}

func (be *BundleErr) Error() error {
	if len(be.errs) == 0 {
		return nil
	}
	if len(be.errs) == 1 {
		return be.errs[0]
	}

	msgs := make([]string, 0, len(be.errs))
	for _, e := range be.errs {
		msgs = append(msgs, e.Error())
	}

	return errors.Wrap(be.errs[0], strings.Join(msgs[1:], "; "))
}
