// Copyright 2021 The OpenSSL Project Authors. All rights reserved.
// Use of this source code is governed by an Apache-2.0 license
// that can be found in the LICENSE file.

// This file was auto-generated via go generate.
// DO NOT UPDATE MANUALLY

/*
Command ossl is a helper tool for day-to-day OpenSSL development.

Usage:
   ossl [flags] <command>

The ossl commands are:
   link     Rewrite source locations as links
   cherries Report cherry-pick status between two branches
   pulls    List pull requests of the OpenSSL repository
   check    Build and test the tree across build profiles
   help     Display help for commands or topics

The ossl additional help topics are:
   locations Description of source locations

The ossl flags are:
 -color=true
   Use color to format output.
 -v=false
   Print verbose output.

The global flags are:
 -metadata=<just specify -metadata to activate>
   Displays metadata for the program and exits.
 -time=false
   Dump timing information to stderr before exiting the program.

Ossl link - Rewrite source locations as links

Command "link" reads text, rewrites every source location in it into a link to
the corresponding file on the hosting site, and prints the result.  The input
is read from the given files, or from stdin when no files are named.  Locations
that cannot be resolved are printed unchanged.

Run "ossl help locations" for a description of source locations.

Usage:
   ossl link [flags] <file ...>

<file ...> is a list of files to filter.  If no files are named, stdin is
filtered instead.

The ossl link flags are:
 -l=false
   Shorthand for -list.
 -list=false
   Print the links only, one per line, discarding the surrounding text.
 -m=false
   Shorthand for -markdown.
 -markdown=false
   Emit markdown links instead of bare URLs.
 -p=false
   Shorthand for -permanent.
 -permanent=false
   Pin links to full commit hashes, never branch names.
 -remote=
   Name of the git remote pointing at the hosting site.  If empty, the
   configured remotes are searched for one.

 -color=true
   Use color to format output.
 -v=false
   Print verbose output.

Ossl cherries - Report cherry-pick status between two branches

Command "cherries" compares two branches and reports which commits of the
upstream branch have been cherry picked onto the release branch.  A commit
counts as picked when a release commit names its hash in a "(cherry picked from
commit ...)" trailer.  Commits picked without such a trailer are matched by
subject instead, except for subjects that occur more than once on either
branch.  By default only the commits missing from the release branch are
listed.

Usage:
   ossl cherries [flags] <upstream> [<release>]

<upstream> is the branch the commits were originally made on.  <release> is the
branch the cherry picks land on; it defaults to the current branch.

The ossl cherries flags are:
 -all=false
   List picked and matched commits too, not only the missing ones.
 -short=false
   Print the counts only.

 -color=true
   Use color to format output.
 -v=false
   Print verbose output.

Ossl pulls - List pull requests of the OpenSSL repository

Command "pulls" lists the pull requests of the OpenSSL repository on the
hosting site, or shows the details of a single pull request.  Credentials are
read from $HOME/.netrc or from the cookie file named by the git http.cookiefile
setting; without credentials the (rate limited) anonymous API is used.

Usage:
   ossl pulls [flags] [<number>]

<number> is the number of a pull request to show in detail.  Without it, pull
requests are listed one per line.

The ossl pulls flags are:
 -n=0
   List at most this many pull requests.  Zero means no limit.
 -state=open
   List pull requests in this state ("open", "closed" or "all").

 -color=true
   Use color to format output.
 -v=false
   Print verbose output.

Ossl check - Build and test the tree across build profiles

Command "check" configures, builds, and tests the OpenSSL source tree once per
build profile, building the profiles in parallel in scratch directories and
reporting which profiles passed.  Each build's output is printed prefixed with
the profile name.  Without a configuration file a single default profile (plain
Configure, "make test") is checked.

Usage:
   ossl check [flags]

The ossl check flags are:
 -clean=false
   Stash local modifications and verify the committed tree, restoring them
   afterwards.
 -config=
   Read build profiles from this configuration file instead of using the
   built-in default profile.
 -j=0
   Number of profiles to build in parallel.  Zero means one per CPU.

 -color=true
   Use color to format output.
 -v=false
   Print verbose output.

Ossl help - Display help for commands or topics

Help with no args displays the usage of the parent command.

Help with args displays the usage of the specified sub-command or help topic.

"help ..." recursively displays help for all commands and topics.

Usage:
   ossl help [flags] [command/topic ...]

[command/topic ...] optionally identifies a specific sub-command or help topic.

The ossl help flags are:
 -style=compact
   The formatting style for help output:
      compact   - Good for compact cmdline output.
      full      - Good for cmdline output, shows all global flags.
      godoc     - Good for godoc processing.
      shortonly - Only output short description.
   Override the default by setting the CMDLINE_STYLE environment variable.
 -width=<terminal width>
   Format output to this target width in runes, or unlimited if width < 0.
   Defaults to the terminal width if available.  Override the default by setting
   the CMDLINE_WIDTH environment variable.

Ossl locations - Description of source locations

Several ossl commands understand source locations, short textual references to
a file or a line of a file in the OpenSSL repository.  A location has the form

 [revision:]path[:lineno]

where the optional revision is a branch name, a tag, or an (abbreviated) commit
hash, path is a file path, and the optional lineno selects a single line of
that file.  A trailing colon after the path or the line number is accepted, so
locations can be pasted directly from compiler, grep, or sanitizer output.

Examples:

 crypto/bn/bn_lib.c
 crypto/bn/bn_lib.c:57
 master:crypto/bn/bn_lib.c:57
 OpenSSL_1_1_1-stable:Configure

Locations are resolved against the repository in the current working directory.
The revision defaults to the branch that was checked out when the command
started.  A revision that names a branch on the hosting site is kept by name,
so the resulting link follows the branch; any other revision is pinned to the
(abbreviated) commit hash it resolves to locally.  Paths are interpreted
relative to the current working directory and translated to repository-relative
paths.  A location whose revision is unknown or whose path does not exist at
the resolved revision is not rewritten.
*/
package main
