// Copyright 2021 The OpenSSL Project Authors. All rights reserved.
// Use of this source code is governed by an Apache-2.0 license
// that can be found in the LICENSE file.

// Package linkify rewrites source locations mentioned in text into
// stable web links against the OpenSSL hosting site.
//
// A location has the form [<revision>:]<path>[:<lineno>], optionally
// followed by a colon, the way compilers and grep print them.
// Locations that name an actual file in an actual revision of the
// repository become https://github.com/openssl/openssl/blob/... links;
// everything else passes through untouched.
package linkify

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"v.io/x/lib/set"

	"github.com/mspncp/tools"
	"github.com/mspncp/tools/gitutil"
)

// locationRE matches a single location token. The revision and line
// number are optional, path segments never start with a digit so that
// "grep.c:42" parses as path plus line number rather than as a
// revision named "grep.c".
var locationRE = regexp.MustCompile(`(?:([A-Za-z0-9._-]+):)?((?:[A-Za-z._-][A-Za-z0-9._-]*/)*[A-Za-z._-][A-Za-z0-9._-]*)(?::([0-9]+))?:?`)

// Opts configures a Linker.
type Opts struct {
	// Markdown renders links as [<location>](<url>) instead of
	// replacing the location with the bare url.
	Markdown bool
	// Permanent resolves every revision to its full commit id so that
	// links stay valid after branches move.
	Permanent bool
	// List emits one resolved link per line instead of rewriting the
	// input.
	List bool
	// Remote names the git remote used to decide whether a revision is
	// a published branch. When empty the remote is auto-detected by
	// looking for one whose url points at the OpenSSL repository.
	Remote string
}

type urlKey struct {
	revision string
	path     string
}

// Linker rewrites location tokens into web links. It captures the
// current branch and the position of the working directory within the
// repository once, at creation time, and caches every git lookup for
// its lifetime. A Linker is not safe for concurrent use.
type Linker struct {
	git    *gitutil.Git
	remote string
	branch string
	prefix string
	opts   Opts

	// revCache maps a revision as written to the revision used in
	// links, urlCache maps a resolved revision and qualified path to
	// the link for that file. The empty string records a failed
	// lookup so that it is never repeated.
	revCache map[string]string
	urlCache map[urlKey]string
}

// NewLinker creates a Linker for the git repository containing the
// current working directory. It fails when no usable remote can be
// determined or when the repository state cannot be read.
func NewLinker(git *gitutil.Git, opts Opts) (*Linker, error) {
	remote := opts.Remote
	if remote == "" {
		var err error
		if remote, err = hostingRemote(git); err != nil {
			return nil, err
		}
	} else {
		remotes, err := git.Remotes()
		if err != nil {
			return nil, err
		}
		remoteSet := set.String.FromSlice(remotes)
		if _, ok := remoteSet[remote]; !ok {
			return nil, fmt.Errorf("remote %q does not exist", remote)
		}
	}
	branch, err := git.CurrentBranchName()
	if err != nil {
		return nil, err
	}
	prefix, err := git.ShowPrefix()
	if err != nil {
		return nil, err
	}
	return &Linker{
		git:      git,
		remote:   remote,
		branch:   branch,
		prefix:   prefix,
		opts:     opts,
		revCache: map[string]string{},
		urlCache: map[urlKey]string{},
	}, nil
}

// hostingRemote returns the name of the first remote whose url points
// at the upstream OpenSSL repository.
func hostingRemote(git *gitutil.Git) (string, error) {
	remotes, err := git.Remotes()
	if err != nil {
		return "", err
	}
	for _, remote := range remotes {
		url, err := git.RemoteUrl(remote)
		if err != nil {
			continue
		}
		if tools.IsOpenSSLRemote(url) {
			return remote, nil
		}
	}
	return "", fmt.Errorf("no git remote points at %v: not an OpenSSL working tree?", tools.HostingRoot)
}

// Run rewrites all locations read from in onto out, line by line. In
// list mode it emits the resolved links instead, one per line.
func (l *Linker) Run(in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		if l.opts.List {
			for _, link := range l.Links(line) {
				if _, err := fmt.Fprintln(out, link); err != nil {
					return err
				}
			}
			continue
		}
		if _, err := fmt.Fprintln(out, l.Rewrite(line)); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// Rewrite returns line with every resolvable location replaced by its
// link. Plain links carry a trailing space so that a following word,
// typically the message the location was printed with, stays separate.
// Locations that do not resolve are left exactly as they were.
func (l *Linker) Rewrite(line string) string {
	var b strings.Builder
	last := 0
	for _, m := range locationRE.FindAllStringSubmatchIndex(line, -1) {
		url, ok := l.resolveToken(line, m)
		if !ok {
			continue
		}
		b.WriteString(line[last:m[0]])
		if l.opts.Markdown {
			b.WriteString("[" + line[m[0]:m[1]] + "](" + url + ")")
		} else {
			b.WriteString(url + " ")
		}
		last = m[1]
	}
	if last == 0 {
		return line
	}
	b.WriteString(line[last:])
	return b.String()
}

// Links returns the links for the resolvable locations on line, in
// order of appearance.
func (l *Linker) Links(line string) []string {
	var links []string
	for _, m := range locationRE.FindAllStringSubmatchIndex(line, -1) {
		url, ok := l.resolveToken(line, m)
		if !ok {
			continue
		}
		if l.opts.Markdown {
			url = "[" + line[m[0]:m[1]] + "](" + url + ")"
		}
		links = append(links, url)
	}
	return links
}

// resolveToken resolves one regexp match to a link. It reports false
// when the revision is unknown or the file does not exist in it, in
// which case the input is to be kept verbatim.
func (l *Linker) resolveToken(line string, m []int) (string, bool) {
	revision := submatch(line, m, 1)
	path := submatch(line, m, 2)
	lineno := submatch(line, m, 3)
	if revision == "" {
		revision = l.branch
	}
	resolved := l.resolveRevision(revision)
	if resolved == "" {
		return "", false
	}
	url := l.fileURL(resolved, l.prefix+path)
	if url == "" {
		return "", false
	}
	if lineno != "" {
		url += "#L" + lineno
	}
	return url, true
}

// resolveRevision maps a revision as written to the revision to embed
// in links: itself if it is a branch published on the remote, its full
// commit id in permanent mode, and the abbreviated commit id otherwise.
// Failed lookups are cached like successful ones.
func (l *Linker) resolveRevision(revision string) string {
	if resolved, ok := l.revCache[revision]; ok {
		return resolved
	}
	resolved := l.lookupRevision(revision)
	l.revCache[revision] = resolved
	return resolved
}

func (l *Linker) lookupRevision(revision string) string {
	if !l.git.RevisionExists(revision) {
		return ""
	}
	if l.opts.Permanent {
		resolved, err := l.git.ResolveRevision(revision)
		if err != nil {
			return ""
		}
		return resolved
	}
	if l.isRemoteHead(revision) {
		return revision
	}
	resolved, err := l.git.ShortRevision(revision)
	if err != nil {
		return ""
	}
	return resolved
}

// isRemoteHead reports whether revision is a branch head published on
// the hosting remote. Only such names are stable enough to link by
// name.
func (l *Linker) isRemoteHead(revision string) bool {
	heads, err := l.git.LsRemoteHeads(l.remote, revision)
	if err != nil {
		return false
	}
	ref := "refs/heads/" + revision
	for _, head := range heads {
		if fields := strings.Fields(head); len(fields) == 2 && fields[1] == ref {
			return true
		}
	}
	return false
}

// fileURL returns the link for path at the resolved revision, or the
// empty string when the revision does not contain the path.
func (l *Linker) fileURL(revision, path string) string {
	key := urlKey{revision: revision, path: path}
	if url, ok := l.urlCache[key]; ok {
		return url
	}
	url := ""
	if l.git.IsFileInRevision(revision, path) {
		url = tools.HostingRoot + "/blob/" + revision + "/" + path
	}
	l.urlCache[key] = url
	return url
}

func submatch(line string, m []int, i int) string {
	if m[2*i] < 0 {
		return ""
	}
	return line[m[2*i]:m[2*i+1]]
}
