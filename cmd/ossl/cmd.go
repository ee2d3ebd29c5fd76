// Copyright 2021 The OpenSSL Project Authors. All rights reserved.
// Use of this source code is governed by an Apache-2.0 license
// that can be found in the LICENSE file.

// The following enables go generate to generate the doc.go file.
//go:generate go run v.io/x/lib/cmdline/gendoc -env="" .

package main

import (
	"runtime"

	"github.com/mspncp/tools/tool"
	"v.io/x/lib/cmdline"
)

func init() {
	runtime.GOMAXPROCS(runtime.NumCPU())

	tool.InitializeRunFlags(&cmdRoot.Flags)
}

func main() {
	cmdline.Main(cmdRoot)
}

// cmdRoot represents the root of the ossl tool.
var cmdRoot = &cmdline.Command{
	Name:  "ossl",
	Short: "Helper tool for OpenSSL development",
	Long: `
Command ossl is a helper tool for day-to-day OpenSSL development.
`,
	LookPath: true,
	Children: []*cmdline.Command{
		cmdLink,
		cmdCherries,
		cmdPulls,
		cmdCheck,
	},
	Topics: []cmdline.Topic{
		topicLocations,
	},
}

var topicLocations = cmdline.Topic{
	Name:  "locations",
	Short: "Description of source locations",
	Long: `
Several ossl commands understand source locations, short textual references
to a file or a line of a file in the OpenSSL repository.  A location has the
form

 [revision:]path[:lineno]

where the optional revision is a branch name, a tag, or an (abbreviated)
commit hash, path is a file path, and the optional lineno selects a single
line of that file.  A trailing colon after the path or the line number is
accepted, so locations can be pasted directly from compiler, grep, or
sanitizer output.

Examples:

 crypto/bn/bn_lib.c
 crypto/bn/bn_lib.c:57
 master:crypto/bn/bn_lib.c:57
 OpenSSL_1_1_1-stable:Configure

Locations are resolved against the repository in the current working
directory.  The revision defaults to the branch that was checked out when
the command started.  A revision that names a branch on the hosting site is
kept by name, so the resulting link follows the branch; any other revision
is pinned to the (abbreviated) commit hash it resolves to locally.  Paths
are interpreted relative to the current working directory and translated to
repository-relative paths.  A location whose revision is unknown or whose
path does not exist at the resolved revision is not rewritten.
`,
}
