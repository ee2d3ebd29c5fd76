// Copyright 2021 The OpenSSL Project Authors. All rights reserved.
// Use of this source code is governed by an Apache-2.0 license
// that can be found in the LICENSE file.

package main

import (
	"github.com/mspncp/tools"
	"github.com/mspncp/tools/collect"
	"github.com/mspncp/tools/gitutil"
	"github.com/mspncp/tools/linkify"
	"v.io/x/lib/cmdline"
)

var (
	markdownFlag  bool
	permanentFlag bool
	listFlag      bool
	remoteFlag    string
)

func init() {
	cmdLink.Flags.BoolVar(&markdownFlag, "markdown", false, `Emit markdown links instead of bare URLs.`)
	cmdLink.Flags.BoolVar(&markdownFlag, "m", false, `Shorthand for -markdown.`)
	cmdLink.Flags.BoolVar(&permanentFlag, "permanent", false, `Pin links to full commit hashes, never branch names.`)
	cmdLink.Flags.BoolVar(&permanentFlag, "p", false, `Shorthand for -permanent.`)
	cmdLink.Flags.BoolVar(&listFlag, "list", false, `Print the links only, one per line, discarding the surrounding text.`)
	cmdLink.Flags.BoolVar(&listFlag, "l", false, `Shorthand for -list.`)
	cmdLink.Flags.StringVar(&remoteFlag, "remote", "", `Name of the git remote pointing at the hosting site.  If empty, the configured remotes are searched for one.`)
}

// cmdLink represents the "ossl link" command.
var cmdLink = &cmdline.Command{
	Runner: tools.RunnerFunc(runLink),
	Name:   "link",
	Short:  "Rewrite source locations as links",
	Long: `
Command "link" reads text, rewrites every source location in it into a link
to the corresponding file on the hosting site, and prints the result.  The
input is read from the given files, or from stdin when no files are named.
Locations that cannot be resolved are printed unchanged.

Run "ossl help locations" for a description of source locations.
`,
	ArgsName: "<file ...>",
	ArgsLong: `
<file ...> is a list of files to filter.  If no files are named, stdin is
filtered instead.
`,
}

func runLink(x *tools.X, args []string) error {
	linker, err := linkify.NewLinker(gitutil.New(x.NewSeq()), linkify.Opts{
		Markdown:  markdownFlag,
		Permanent: permanentFlag,
		List:      listFlag,
		Remote:    remoteFlag,
	})
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return linker.Run(x.Stdin(), x.Stdout())
	}
	for _, name := range args {
		if err := linkFile(x, linker, name); err != nil {
			return err
		}
	}
	return nil
}

func linkFile(x *tools.X, linker *linkify.Linker, name string) (e error) {
	file, err := x.NewSeq().Open(name)
	if err != nil {
		return err
	}
	defer collect.Error(func() error { return file.Close() }, &e)
	return linker.Run(file, x.Stdout())
}
