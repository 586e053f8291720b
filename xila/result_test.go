package xila

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"syscall"
	"testing"

	"github.com/hack-pad/hackpadfs"
)

func TestResultString(t *testing.T) {
	cases := map[Result]string{
		Success:           "Success",
		AlreadyExists:     "Already exists",
		DirectoryNotEmpty: "Directory not empty",
		Other:             "Other",
		Other + 1:         fmt.Sprintf("Result(%d)", uint32(Other+1)),
	}
	for result, want := range cases {
		if got := result.String(); got != want {
			t.Errorf("%d: want %q, got %q", uint32(result), want, got)
		}
		if got := result.Error(); got != want {
			t.Errorf("%d: Error() = %q", uint32(result), got)
		}
	}
	for r := Success; r <= Other; r++ {
		if resultStrings[r] == "" {
			t.Errorf("result %d has no name", uint32(r))
		}
	}
}

func TestResultOK(t *testing.T) {
	if !Success.OK() {
		t.Error("Success is not OK")
	}
	for r := Success + 1; r <= Other; r++ {
		if r.OK() {
			t.Errorf("%v is OK", r)
		}
	}
}

func TestResultOf(t *testing.T) {
	cases := []struct {
		err  error
		want Result
	}{
		{nil, Success},
		{NoSpaceLeft, NoSpaceLeft},
		{fmt.Errorf("wrapped: %w", TimeError), TimeError},
		{fs.ErrNotExist, NotFound},
		{&fs.PathError{Op: "open", Path: "x", Err: fs.ErrExist}, AlreadyExists},
		{fs.ErrPermission, PermissionDenied},
		{fs.ErrClosed, InvalidIdentifier},
		{fs.ErrInvalid, InvalidParameter},
		{hackpadfs.ErrIsDir, IsDirectory},
		{syscall.EISDIR, IsDirectory},
		{hackpadfs.ErrNotDir, NotDirectory},
		{hackpadfs.ErrNotEmpty, DirectoryNotEmpty},
		{&fs.PathError{Op: "chmod", Path: "x", Err: hackpadfs.ErrNotImplemented}, UnsupportedOperation},
		{errors.ErrUnsupported, UnsupportedOperation},
		{syscall.ENOSPC, NoSpaceLeft},
		{syscall.ENAMETOOLONG, NameTooLong},
		{syscall.EMFILE, TooManyOpenFiles},
		{syscall.EBUSY, RessourceBusy},
		{syscall.EFBIG, FileTooLarge},
		{io.ErrUnexpectedEOF, InputOutput},
		{context.Canceled, Unknown},
		{errors.New("something else"), Other},
	}
	for _, tc := range cases {
		if got := ResultOf(tc.err); got != tc.want {
			t.Errorf("ResultOf(%v): want %v, got %v", tc.err, tc.want, got)
		}
	}
}
