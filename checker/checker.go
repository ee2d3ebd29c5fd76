// Copyright 2023 The OpenSSL Project Authors. All rights reserved.
// Use of this source code is governed by an Apache-2.0 license
// that can be found in the LICENSE file.

// Package checker builds and tests a source tree under a set of build
// profiles to verify that a change holds up beyond the developer's own
// configuration.
package checker

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"v.io/x/lib/simplemr"

	"github.com/mspncp/tools"
)

// errCanceled marks profiles whose run was interrupted before they
// finished.
var errCanceled = errors.New("check canceled")

// Result records the outcome of one profile.
type Result struct {
	Profile string
	Err     error
}

// Opts configures a verification run.
type Opts struct {
	// SourceDir is the root of the tree to verify. It defaults to the
	// current working directory.
	SourceDir string
	// Jobs caps how many profiles build in parallel. Zero means one
	// per CPU.
	Jobs int
}

type runner struct {
	x                  *tools.X
	srcDir             string
	collatedOutputLock sync.Mutex
	resultsLock        sync.Mutex
	results            []Result
}

type mapOutput struct {
	outputFilename string
	err            error
}

// buildSteps returns the commands that verify one profile, in order:
// an out-of-tree Configure, the build, then the profile's targets.
func buildSteps(srcDir string, p Profile) [][]string {
	steps := [][]string{
		append([]string{filepath.Join(srcDir, "Configure")}, p.ConfigureArgs()...),
		{"make", "-s"},
	}
	for _, target := range p.Targets() {
		steps = append(steps, []string{"make", "-s", target})
	}
	return steps
}

func (r *runner) Map(mr *simplemr.MR, key string, val interface{}) error {
	profile := val.(Profile)
	output := &mapOutput{}
	s := r.x.NewSeq()
	workDir, err := s.TempDir("", "check-"+profile.Name()+"-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(workDir)
	f, err := s.TempFile("", "check-"+profile.Name()+"-")
	if err != nil {
		return err
	}
	output.outputFilename = f.Name()
	for _, step := range buildSteps(r.srcDir, profile) {
		select {
		case <-mr.CancelCh():
			output.err = errCanceled
		default:
			if err := s.Dir(workDir).Env(profile.Env()).Capture(f, f).Last(step[0], step[1:]...); err != nil {
				output.err = err
			}
		}
		if output.err != nil {
			break
		}
	}
	f.Close()
	mr.MapOut(key, output)
	return nil
}

func (r *runner) Reduce(mr *simplemr.MR, key string, values []interface{}) error {
	for _, v := range values {
		mo := v.(*mapOutput)
		if mo.outputFilename != "" {
			r.collatedOutputLock.Lock()
			if f, err := os.Open(mo.outputFilename); err == nil {
				copyWithPrefix(key, r.x.Stdout(), f)
				f.Close()
			}
			os.Remove(mo.outputFilename)
			r.collatedOutputLock.Unlock()
		}
		if mo.err != nil {
			fmt.Fprintf(r.x.Stdout(), "FAILED: %v: %v\n", key, mo.err)
		}
		r.resultsLock.Lock()
		r.results = append(r.results, Result{Profile: key, Err: mo.err})
		r.resultsLock.Unlock()
	}
	return nil
}

func copyWithPrefix(prefix string, w io.Writer, r io.Reader) {
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if line != "" {
				fmt.Fprintf(w, "%v: %v\n", prefix, line)
			}
			break
		}
		fmt.Fprintf(w, "%v: %v", prefix, line)
	}
}

// Run verifies every profile of the config, at most opts.Jobs at a
// time, and returns one Result per profile in name order. Each
// profile builds in its own scratch directory; its output is collated
// onto the context's stdout once it finishes, every line prefixed with
// the profile name. An interrupt cancels profiles that have not
// finished their current step.
func Run(x *tools.X, config *Config, opts Opts) ([]Result, error) {
	profiles := config.Profiles()
	if len(profiles) == 0 {
		return nil, fmt.Errorf("no profiles to check")
	}
	srcDir := opts.SourceDir
	if srcDir == "" {
		var err error
		if srcDir, err = os.Getwd(); err != nil {
			return nil, err
		}
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	runner := &runner{x: x, srcDir: srcDir}
	mr := simplemr.MR{NumMappers: jobs}
	in, out := make(chan *simplemr.Record, len(profiles)), make(chan *simplemr.Record, len(profiles))
	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt)
	defer close(sigch)
	defer signal.Stop(sigch)
	go func() {
		if _, ok := <-sigch; ok {
			mr.Cancel()
		}
	}()
	go mr.Run(in, out, runner, runner)
	for _, profile := range profiles {
		in <- &simplemr.Record{Key: profile.Name(), Values: []interface{}{profile}}
	}
	close(in)
	<-out
	sort.Slice(runner.results, func(i, j int) bool {
		return runner.results[i].Profile < runner.results[j].Profile
	})
	return runner.results, mr.Error()
}
