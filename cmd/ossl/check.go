// Copyright 2023 The OpenSSL Project Authors. All rights reserved.
// Use of this source code is governed by an Apache-2.0 license
// that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/mspncp/tools"
	"github.com/mspncp/tools/checker"
	"github.com/mspncp/tools/collect"
	"github.com/mspncp/tools/gitutil"
	"v.io/x/lib/cmdline"
)

var (
	configFlag string
	jobsFlag   int
	cleanFlag  bool
)

func init() {
	cmdCheck.Flags.StringVar(&configFlag, "config", "", `Read build profiles from this configuration file instead of using the built-in default profile.`)
	cmdCheck.Flags.IntVar(&jobsFlag, "j", 0, `Number of profiles to build in parallel.  Zero means one per CPU.`)
	cmdCheck.Flags.BoolVar(&cleanFlag, "clean", false, `Stash local modifications and verify the committed tree, restoring them afterwards.`)
}

// cmdCheck represents the "ossl check" command.
var cmdCheck = &cmdline.Command{
	Runner: tools.RunnerFunc(runCheck),
	Name:   "check",
	Short:  "Build and test the tree across build profiles",
	Long: `
Command "check" configures, builds, and tests the OpenSSL source tree once
per build profile, building the profiles in parallel in scratch directories
and reporting which profiles passed.  Each build's output is printed
prefixed with the profile name.  Without a configuration file a single
default profile (plain Configure, "make test") is checked.
`,
}

func runCheck(x *tools.X, args []string) (e error) {
	if len(args) != 0 {
		return x.UsageErrorf("check: expected no arguments, got %d", len(args))
	}
	git := gitutil.New(x.NewSeq())
	srcDir, err := git.TopLevel()
	if err != nil {
		return err
	}
	if merging, err := git.MergeInProgress(); err != nil {
		return err
	} else if merging {
		return fmt.Errorf("a merge is in progress, finish or abort it first")
	}
	config := checker.DefaultConfig()
	if configFlag != "" {
		if config, err = checker.LoadConfig(x.NewSeq(), configFlag); err != nil {
			return err
		}
	}
	if cleanFlag {
		stashed, err := git.Stash()
		if err != nil {
			return err
		}
		if stashed {
			defer collect.Error(func() error { return git.StashPop() }, &e)
		}
	}
	results, err := checker.Run(x, config, checker.Opts{
		SourceDir: srcDir,
		Jobs:      jobsFlag,
	})
	if err != nil {
		return err
	}
	failed := 0
	for _, result := range results {
		status := "ok"
		if result.Err != nil {
			status = "FAILED"
			failed++
		}
		fmt.Fprintf(x.Stdout(), "%v: %v\n", result.Profile, status)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d profiles failed", failed, len(results))
	}
	return nil
}
