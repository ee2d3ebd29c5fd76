// Copyright 2022 The OpenSSL Project Authors. All rights reserved.
// Use of this source code is governed by an Apache-2.0 license
// that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/mspncp/tools"
	"github.com/mspncp/tools/cherry"
	"github.com/mspncp/tools/gitutil"
	"v.io/x/lib/cmdline"
)

var (
	allFlag   bool
	shortFlag bool
)

func init() {
	cmdCherries.Flags.BoolVar(&allFlag, "all", false, `List picked and matched commits too, not only the missing ones.`)
	cmdCherries.Flags.BoolVar(&shortFlag, "short", false, `Print the counts only.`)
}

// cmdCherries represents the "ossl cherries" command.
var cmdCherries = &cmdline.Command{
	Runner: tools.RunnerFunc(runCherries),
	Name:   "cherries",
	Short:  "Report cherry-pick status between two branches",
	Long: `
Command "cherries" compares two branches and reports which commits of the
upstream branch have been cherry picked onto the release branch.  A commit
counts as picked when a release commit names its hash in a "(cherry picked
from commit ...)" trailer.  Commits picked without such a trailer are
matched by subject instead, except for subjects that occur more than once
on either branch.  By default only the commits missing from the release
branch are listed.
`,
	ArgsName: "<upstream> [<release>]",
	ArgsLong: `
<upstream> is the branch the commits were originally made on.  <release> is
the branch the cherry picks land on; it defaults to the current branch.
`,
}

func runCherries(x *tools.X, args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return x.UsageErrorf("cherries: expected one or two branches, got %d arguments", len(args))
	}
	git := gitutil.New(x.NewSeq())
	upstream := args[0]
	release := ""
	if len(args) == 2 {
		release = args[1]
	} else {
		var err error
		if release, err = git.CurrentBranchName(); err != nil {
			return err
		}
	}
	report, err := cherry.Compare(git, upstream, release)
	if err != nil {
		return err
	}
	if shortFlag {
		fmt.Fprintf(x.Stdout(), "%d cherry picked, %d matched by subject, %d not picked\n",
			len(report.Picked), len(report.Matched), len(report.Unpicked))
		return nil
	}
	if allFlag {
		printEntries(x, '+', report.Picked)
		printEntries(x, '~', report.Matched)
	}
	printEntries(x, '-', report.Unpicked)
	return nil
}

// printEntries lists entries in "git cherry" style, one commit per
// line behind its status mark.
func printEntries(x *tools.X, mark rune, entries []cherry.Entry) {
	for _, entry := range entries {
		fmt.Fprintf(x.Stdout(), "%c %s %s\n", mark, shortHash(entry.Upstream.Hash), entry.Upstream.Subject)
	}
}

func shortHash(hash string) string {
	if len(hash) > 10 {
		return hash[:10]
	}
	return hash
}
