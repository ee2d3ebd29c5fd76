// Copyright 2021 The OpenSSL Project Authors. All rights reserved.
// Use of this source code is governed by an Apache-2.0 license
// that can be found in the LICENSE file.

// Package runutil executes external commands and chains of filesystem
// operations with consistent logging, output handling and error reporting.
package runutil

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"v.io/x/lib/envvar"
)

// Sequence provides for convenient chaining of multiple calls to its
// methods to obtain a single error result. For example:
//
//	err := s.Run("echo", "a").Dir("dir").Last("git", "status")
//
// The usual boilerplate of checking an error after every operation is
// handled internally: once an operation fails, all subsequent operations
// are reduced to no-ops until the error is retrieved via Done, Last or one
// of the terminating methods. Recorded errors are annotated with the file
// and line of the operation that produced them.
//
// Modifier methods (Capture, Read, Env, Dir, Timeout, Verbose) apply to the
// next operation only and are reset once it has run. Commands do not read
// from the sequence's stdin unless Read is used.
//
// The stdout and stderr of a command that is not being captured accumulate
// in an internal buffer: in verbose mode the buffer is echoed to the
// sequence's stdout once the command has finished, otherwise it is written
// to the sequence's stderr if and only if the command failed.
type Sequence struct {
	*sequence
}

type sequence struct {
	r      *executor
	err    error
	caller string
	op     string

	// Pending modifiers, consumed by the next operation.
	captured  bool
	stdout    io.Writer
	stderr    io.Writer
	stdin     io.Reader
	env       map[string]string
	dir       string
	timeout   time.Duration
	verbosity *bool

	// Directories entered via Pushd; Done unwinds the stack.
	dirs []string
}

// NewSequence creates an instance of Sequence with the given environment,
// standard input, output and error streams, color and verbosity settings.
// A nil environment means the process environment is inherited.
func NewSequence(env map[string]string, stdin io.Reader, stdout, stderr io.Writer, color, verbose bool) Sequence {
	return Sequence{&sequence{r: newExecutor(env, stdin, stdout, stderr, color, verbose)}}
}

// Capture arranges for the next operation's stdout and stderr to be written
// to the given writers. A nil writer falls back to the corresponding stream
// supplied to NewSequence.
func (s Sequence) Capture(stdout, stderr io.Writer) Sequence {
	if s.err != nil {
		return s
	}
	s.captured = true
	s.stdout, s.stderr = stdout, stderr
	return s
}

// Read arranges for the next operation to read its standard input from the
// given reader.
func (s Sequence) Read(stdin io.Reader) Sequence {
	if s.err != nil {
		return s
	}
	s.stdin = stdin
	return s
}

// Env arranges for the next operation to see the given variables merged
// over the sequence's environment.
func (s Sequence) Env(env map[string]string) Sequence {
	if s.err != nil {
		return s
	}
	s.env = env
	return s
}

// Dir arranges for the next command to be run in the given directory.
func (s Sequence) Dir(dir string) Sequence {
	if s.err != nil {
		return s
	}
	s.dir = dir
	return s
}

// Timeout arranges for the next command to be terminated forcefully if it
// is still running after the given duration.
func (s Sequence) Timeout(timeout time.Duration) Sequence {
	if s.err != nil {
		return s
	}
	s.timeout = timeout
	return s
}

// Verbose overrides the sequence's verbosity for the next operation.
func (s Sequence) Verbose(verbosity bool) Sequence {
	if s.err != nil {
		return s
	}
	s.verbosity = &verbosity
	return s
}

// Run executes the given command with the given arguments.
func (s Sequence) Run(path string, args ...string) Sequence {
	if s.err != nil {
		return s
	}
	s.setErr(s.execute(path, args...), fmtOp("Run", path, args))
	return s
}

// Last executes the given command like Run and then terminates the
// sequence like Done.
func (s Sequence) Last(path string, args ...string) error {
	if s.err == nil {
		s.setErr(s.execute(path, args...), fmtOp("Run", path, args))
	}
	return s.Done()
}

// Call runs the given function, logging its invocation and outcome using
// the printf-style format and args as its description.
func (s Sequence) Call(fn func() error, format string, args ...interface{}) Sequence {
	if s.err != nil {
		return s
	}
	o := s.r.opts
	o.verbose = s.verbosity != nil && *s.verbosity
	if s.captured {
		if s.stdout != nil {
			o.stdout = s.stdout
		}
		if s.stderr != nil {
			o.stderr = s.stderr
		}
	}
	s.resetOpts()
	s.setErr(s.r.function(o, fn, format, args...), fmt.Sprintf("Call(%s)", fmt.Sprintf(format, args...)))
	return s
}

// Output logs the given lines using the sequence's logging conventions; the
// lines are only written when the operation is verbose.
func (s Sequence) Output(output []string) Sequence {
	if s.err != nil {
		return s
	}
	o := s.r.opts
	if s.verbosity != nil {
		o.verbose = *s.verbosity
	}
	s.resetOpts()
	s.r.output(o, output)
	return s
}

// Fprintf writes the formatted string to the given writer.
func (s Sequence) Fprintf(w io.Writer, format string, args ...interface{}) Sequence {
	if s.err != nil {
		return s
	}
	_, err := fmt.Fprintf(w, format, args...)
	s.setErr(err, "Fprintf")
	return s
}

// Done returns the first error recorded by the sequence and resets the
// sequence, unwinding any directories entered via Pushd.
func (s Sequence) Done() error {
	err := s.done()
	s.popAll()
	return err
}

// Error returns the error recorded in the sequence, if any, without
// resetting it.
func (s Sequence) Error() error {
	return s.anError()
}

// Pushd pushes the current working directory onto a stack maintained by
// the sequence and changes into the given directory. The stack is unwound
// by Done or by matching calls to Popd.
func (s Sequence) Pushd(dir string) Sequence {
	if s.err != nil {
		return s
	}
	cwd, err := os.Getwd()
	if err == nil {
		s.dirs = append(s.dirs, cwd)
		err = os.Chdir(dir)
	}
	s.setErr(err, fmt.Sprintf("Pushd(%q)", dir))
	return s
}

// Popd changes back to the directory that was current when Pushd was last
// called and pops it off the stack.
func (s Sequence) Popd() Sequence {
	if s.err != nil {
		return s
	}
	if len(s.dirs) == 0 {
		s.setErr(errors.New("directory stack is empty"), "Popd()")
		return s
	}
	dir := s.dirs[len(s.dirs)-1]
	s.dirs = s.dirs[:len(s.dirs)-1]
	s.setErr(os.Chdir(dir), fmt.Sprintf("Popd() [%v]", dir))
	return s
}

// Chdir changes the working directory of the process.
func (s Sequence) Chdir(dir string) Sequence {
	if s.err != nil {
		return s
	}
	s.setErr(os.Chdir(dir), fmt.Sprintf("Chdir(%q)", dir))
	return s
}

// Mkdir creates the given directory.
func (s Sequence) Mkdir(dir string, mode os.FileMode) Sequence {
	if s.err != nil {
		return s
	}
	s.setErr(os.Mkdir(dir, mode), fmt.Sprintf("Mkdir(%q, %v)", dir, mode))
	return s
}

// MkdirAll creates the given directory along with any missing parents.
func (s Sequence) MkdirAll(dir string, mode os.FileMode) Sequence {
	if s.err != nil {
		return s
	}
	s.setErr(os.MkdirAll(dir, mode), fmt.Sprintf("MkdirAll(%q, %v)", dir, mode))
	return s
}

// Remove removes the given file or empty directory.
func (s Sequence) Remove(name string) Sequence {
	if s.err != nil {
		return s
	}
	s.setErr(os.Remove(name), fmt.Sprintf("Remove(%q)", name))
	return s
}

// RemoveAll removes the given path and any children it contains.
func (s Sequence) RemoveAll(path string) Sequence {
	if s.err != nil {
		return s
	}
	s.setErr(os.RemoveAll(path), fmt.Sprintf("RemoveAll(%q)", path))
	return s
}

// Rename renames oldpath to newpath.
func (s Sequence) Rename(oldpath, newpath string) Sequence {
	if s.err != nil {
		return s
	}
	s.setErr(os.Rename(oldpath, newpath), fmt.Sprintf("Rename(%q, %q)", oldpath, newpath))
	return s
}

// Symlink creates newname as a symbolic link to oldname.
func (s Sequence) Symlink(oldname, newname string) Sequence {
	if s.err != nil {
		return s
	}
	s.setErr(os.Symlink(oldname, newname), fmt.Sprintf("Symlink(%q, %q)", oldname, newname))
	return s
}

// Chmod changes the mode of the given file.
func (s Sequence) Chmod(name string, mode os.FileMode) Sequence {
	if s.err != nil {
		return s
	}
	s.setErr(os.Chmod(name, mode), fmt.Sprintf("Chmod(%q, %v)", name, mode))
	return s
}

// WriteFile writes the given data to the named file, creating it if needed.
func (s Sequence) WriteFile(filename string, data []byte, mode os.FileMode) Sequence {
	if s.err != nil {
		return s
	}
	s.setErr(os.WriteFile(filename, data, mode), fmt.Sprintf("WriteFile(%q, ..., %v)", filename, mode))
	return s
}

// ReadFile reads the named file and terminates the sequence.
func (s Sequence) ReadFile(filename string) ([]byte, error) {
	if s.err != nil {
		return nil, s.done()
	}
	data, err := os.ReadFile(filename)
	s.setErr(err, fmt.Sprintf("ReadFile(%q)", filename))
	return data, s.done()
}

// ReadDir reads the named directory and terminates the sequence.
func (s Sequence) ReadDir(dirname string) ([]os.DirEntry, error) {
	if s.err != nil {
		return nil, s.done()
	}
	entries, err := os.ReadDir(dirname)
	s.setErr(err, fmt.Sprintf("ReadDir(%q)", dirname))
	return entries, s.done()
}

// Stat returns info for the named file and terminates the sequence.
func (s Sequence) Stat(name string) (os.FileInfo, error) {
	if s.err != nil {
		return nil, s.done()
	}
	fi, err := os.Stat(name)
	s.setErr(err, fmt.Sprintf("Stat(%q)", name))
	return fi, s.done()
}

// Lstat returns info for the named file without following symbolic links
// and terminates the sequence.
func (s Sequence) Lstat(name string) (os.FileInfo, error) {
	if s.err != nil {
		return nil, s.done()
	}
	fi, err := os.Lstat(name)
	s.setErr(err, fmt.Sprintf("Lstat(%q)", name))
	return fi, s.done()
}

// IsDir reports whether the given path exists and is a directory,
// terminating the sequence.
func (s Sequence) IsDir(dirname string) (bool, error) {
	if s.err != nil {
		return false, s.done()
	}
	fi, err := os.Stat(dirname)
	if err != nil {
		s.setErr(err, fmt.Sprintf("IsDir(%q)", dirname))
		return false, s.done()
	}
	return fi.IsDir(), s.done()
}

// Open opens the named file for reading and terminates the sequence.
func (s Sequence) Open(name string) (*os.File, error) {
	if s.err != nil {
		return nil, s.done()
	}
	f, err := os.Open(name)
	s.setErr(err, fmt.Sprintf("Open(%q)", name))
	return f, s.done()
}

// Create creates or truncates the named file and terminates the sequence.
func (s Sequence) Create(name string) (*os.File, error) {
	if s.err != nil {
		return nil, s.done()
	}
	f, err := os.Create(name)
	s.setErr(err, fmt.Sprintf("Create(%q)", name))
	return f, s.done()
}

// TempDir creates a new temporary directory and terminates the sequence.
func (s Sequence) TempDir(dir, prefix string) (string, error) {
	if s.err != nil {
		return "", s.done()
	}
	name, err := os.MkdirTemp(dir, prefix)
	s.setErr(err, fmt.Sprintf("TempDir(%q, %q)", dir, prefix))
	return name, s.done()
}

// TempFile creates a new temporary file and terminates the sequence.
func (s Sequence) TempFile(dir, pattern string) (*os.File, error) {
	if s.err != nil {
		return nil, s.done()
	}
	f, err := os.CreateTemp(dir, pattern)
	s.setErr(err, fmt.Sprintf("TempFile(%q, %q)", dir, pattern))
	return f, s.done()
}

// IsTimeout reports whether the given error resulted from a command timing
// out, unwrapping any sequence annotation.
func IsTimeout(err error) bool {
	return errors.Is(err, commandTimedOutErr)
}

// IsNotExist reports whether the given error corresponds to a missing file
// or directory, unwrapping any sequence annotation.
func IsNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}

// opError annotates an operation error with the location and a rendering
// of the sequence operation that produced it.
type opError struct {
	caller string
	op     string
	err    error
}

func (e *opError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.caller, e.op, e.err)
}

func (e *opError) Unwrap() error {
	return e.err
}

// sharedBuffer accumulates the stdout and stderr of a command that is not
// being captured; the two streams are serviced by separate goroutines.
type sharedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *sharedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *sharedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Bytes()
}

func (s *sequence) execute(path string, args ...string) error {
	o, buf, timeout, verbose := s.nextOpts()
	err := s.r.run(timeout, o, path, args...)
	s.flush(buf, err, verbose)
	return err
}

// nextOpts assembles the executor options for the next operation from the
// sequence defaults and any pending modifiers, consuming the modifiers. It
// returns the options, the buffer backing an uncaptured command's output,
// the timeout and the operation's effective verbosity.
func (s *sequence) nextOpts() (opts, *sharedBuffer, time.Duration, bool) {
	o := s.r.opts
	verbose := o.verbose
	if s.verbosity != nil {
		verbose = *s.verbosity
	}
	// The executor logs to its own stdout unless the operation itself is
	// marked verbose, which keeps log lines out of the output buffer.
	o.verbose = s.verbosity != nil && *s.verbosity
	o.stdin = s.stdin
	if s.dir != "" {
		o.dir = s.dir
	}
	if s.env != nil {
		o.env = mergeEnv(o.env, s.env)
	}
	var buf *sharedBuffer
	if s.captured {
		if s.stdout != nil {
			o.stdout = s.stdout
		}
		if s.stderr != nil {
			o.stderr = s.stderr
		}
	} else {
		buf = &sharedBuffer{}
		o.stdout, o.stderr = buf, buf
	}
	timeout := s.timeout
	s.resetOpts()
	return o, buf, timeout, verbose
}

// flush propagates the accumulated output of an uncaptured command.
func (s *sequence) flush(buf *sharedBuffer, err error, verbose bool) {
	if buf == nil {
		return
	}
	out := buf.Bytes()
	if len(out) == 0 {
		return
	}
	if verbose {
		s.r.opts.stdout.Write(out)
	} else if err != nil {
		s.r.opts.stderr.Write(out)
	}
}

// mergeEnv overlays the given variables on top of the base environment.
func mergeEnv(base, override map[string]string) map[string]string {
	merged := envvar.CopyMap(base)
	for k, v := range override {
		merged[k] = v
	}
	return merged
}

func (s *sequence) setErr(err error, op string) {
	if err == nil || s.err != nil {
		return
	}
	s.err = err
	s.op = op
	if _, file, line, ok := runtime.Caller(2); ok {
		s.caller = fmt.Sprintf("%s:%d", filepath.Base(file), line)
	} else {
		s.caller = "unknown"
	}
}

func (s *sequence) anError() error {
	if s.err == nil {
		return nil
	}
	return &opError{caller: s.caller, op: s.op, err: s.err}
}

// done returns the recorded error and resets the error state and pending
// modifiers; the Pushd stack is left to Done.
func (s *sequence) done() error {
	err := s.anError()
	s.err, s.caller, s.op = nil, "", ""
	s.resetOpts()
	return err
}

func (s *sequence) resetOpts() {
	s.captured = false
	s.stdout, s.stderr = nil, nil
	s.stdin = nil
	s.env = nil
	s.dir = ""
	s.timeout = 0
	s.verbosity = nil
}

func (s *sequence) popAll() {
	if len(s.dirs) > 0 {
		os.Chdir(s.dirs[0])
		s.dirs = nil
	}
}

func fmtOp(name, path string, args []string) string {
	elems := make([]string, 0, len(args)+1)
	for _, arg := range append([]string{path}, args...) {
		elems = append(elems, strconv.Quote(arg))
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(elems, ", "))
}
