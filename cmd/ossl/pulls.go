// Copyright 2022 The OpenSSL Project Authors. All rights reserved.
// Use of this source code is governed by an Apache-2.0 license
// that can be found in the LICENSE file.

package main

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/mspncp/tools"
	"github.com/mspncp/tools/github"
	"v.io/x/lib/cmdline"
)

var (
	stateFlag string
	limitFlag int
)

func init() {
	cmdPulls.Flags.StringVar(&stateFlag, "state", "open", `List pull requests in this state ("open", "closed" or "all").`)
	cmdPulls.Flags.IntVar(&limitFlag, "n", 0, `List at most this many pull requests.  Zero means no limit.`)
}

// cmdPulls represents the "ossl pulls" command.
var cmdPulls = &cmdline.Command{
	Runner: tools.RunnerFunc(runPulls),
	Name:   "pulls",
	Short:  "List pull requests of the OpenSSL repository",
	Long: `
Command "pulls" lists the pull requests of the OpenSSL repository on the
hosting site, or shows the details of a single pull request.  Credentials
are read from $HOME/.netrc or from the cookie file named by the git
http.cookiefile setting; without credentials the (rate limited) anonymous
API is used.
`,
	ArgsName: "[<number>]",
	ArgsLong: `
<number> is the number of a pull request to show in detail.  Without it,
pull requests are listed one per line.
`,
}

func runPulls(x *tools.X, args []string) error {
	host, err := url.Parse(tools.APIHost)
	if err != nil {
		return err
	}
	gh := x.GitHub(host)
	switch len(args) {
	case 0:
		return listPulls(x, gh)
	case 1:
		number, err := strconv.Atoi(args[0])
		if err != nil {
			return x.UsageErrorf("pulls: not a pull request number: %q", args[0])
		}
		return showPull(x, gh, number)
	default:
		return x.UsageErrorf("pulls: expected at most one argument, got %d", len(args))
	}
}

func listPulls(x *tools.X, gh *github.GitHub) error {
	pulls, err := gh.ListPullRequests(tools.RepoOwner, tools.RepoName, stateFlag)
	if err != nil {
		return err
	}
	if limitFlag > 0 && len(pulls) > limitFlag {
		pulls = pulls[:limitFlag]
	}
	for _, pull := range pulls {
		draft := ""
		if pull.Draft {
			draft = " [draft]"
		}
		fmt.Fprintf(x.Stdout(), "#%d %s (%s)%s\n", pull.Number, pull.Title, pull.User.Login, draft)
	}
	return nil
}

func showPull(x *tools.X, gh *github.GitHub, number int) error {
	pull, err := gh.GetPullRequest(tools.RepoOwner, tools.RepoName, number)
	if err != nil {
		return err
	}
	state := pull.State
	if pull.Draft {
		state += " (draft)"
	}
	fmt.Fprintf(x.Stdout(), "pull:    #%d\n", pull.Number)
	fmt.Fprintf(x.Stdout(), "title:   %s\n", pull.Title)
	fmt.Fprintf(x.Stdout(), "author:  %s\n", pull.User.Login)
	fmt.Fprintf(x.Stdout(), "state:   %s\n", state)
	fmt.Fprintf(x.Stdout(), "head:    %s @ %s\n", pull.Head.Label, pull.Head.SHA)
	fmt.Fprintf(x.Stdout(), "base:    %s\n", pull.Base.Ref)
	fmt.Fprintf(x.Stdout(), "created: %s\n", pull.CreatedAt)
	fmt.Fprintf(x.Stdout(), "updated: %s\n", pull.UpdatedAt)
	fmt.Fprintf(x.Stdout(), "url:     %s\n", pull.HTMLURL)
	return nil
}
