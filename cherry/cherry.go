// Copyright 2022 The OpenSSL Project Authors. All rights reserved.
// Use of this source code is governed by an Apache-2.0 license
// that can be found in the LICENSE file.

// Package cherry reports the cherry-pick status of two diverged
// branches, typically a release branch against master. Commits are
// paired by the "(cherry picked from commit ...)" trailer that git
// cherry-pick -x records, with the commit subject as a fallback for
// picks done without -x.
package cherry

import (
	"fmt"
	"regexp"

	"v.io/x/lib/set"

	"github.com/mspncp/tools/gitutil"
)

// cherryPickedRE matches the trailer appended by git cherry-pick -x.
var cherryPickedRE = regexp.MustCompile(`\(cherry picked from commit ([0-9a-f]{40})\)`)

// Commit is one commit on either side of the comparison.
type Commit struct {
	Hash    string
	Subject string
	// Markers holds the commit ids named by cherry-pick trailers in
	// this commit's message.
	Markers []string
}

// Entry pairs an upstream commit with the release commit that carries
// it. Release is nil for commits that have not been picked.
type Entry struct {
	Upstream Commit
	Release  *Commit
}

// Report classifies the upstream commits that are not on the release
// branch's side of the merge base. Each list keeps the upstream log
// order, newest first.
type Report struct {
	// Picked holds commits a release commit names in a trailer.
	Picked []Entry
	// Matched holds commits paired by subject only. The pairing is
	// skipped for subjects that occur more than once on either side.
	Matched []Entry
	// Unpicked holds commits with no counterpart on the release branch.
	Unpicked []Entry
}

// Compare computes the cherry-pick report for the commits that
// upstream and release do not share, using their merge base as the
// common cutoff.
func Compare(g *gitutil.Git, upstream, release string) (*Report, error) {
	base, err := g.MergeBase(upstream, release)
	if err != nil {
		return nil, err
	}
	upstreamCommits, err := commits(g, upstream, base)
	if err != nil {
		return nil, err
	}
	releaseCommits, err := commits(g, release, base)
	if err != nil {
		return nil, err
	}
	return classify(upstreamCommits, releaseCommits), nil
}

// commits lists the commits on <branch> that are not on <base>, with
// their cherry-pick markers extracted from the message body.
func commits(g *gitutil.Git, branch, base string) ([]Commit, error) {
	logs, err := g.Log(branch, base, "%H%n%s%n%B")
	if err != nil {
		return nil, err
	}
	var result []Commit
	for _, lines := range logs {
		if len(lines) < 2 {
			return nil, fmt.Errorf("unexpected git log entry: %v", lines)
		}
		commit := Commit{Hash: lines[0], Subject: lines[1]}
		for _, line := range lines[2:] {
			for _, match := range cherryPickedRE.FindAllStringSubmatch(line, -1) {
				commit.Markers = append(commit.Markers, match[1])
			}
		}
		result = append(result, commit)
	}
	return result, nil
}

func classify(upstream, release []Commit) *Report {
	pickedBy := map[string]*Commit{}
	bySubject := map[string]*Commit{}
	for i := range release {
		commit := &release[i]
		for _, marker := range commit.Markers {
			if _, ok := pickedBy[marker]; !ok {
				pickedBy[marker] = commit
			}
		}
		if _, ok := bySubject[commit.Subject]; !ok {
			bySubject[commit.Subject] = commit
		}
	}
	// Subjects that repeat on either side cannot be paired reliably.
	ambiguous := duplicatedSubjects(upstream)
	set.String.Union(ambiguous, duplicatedSubjects(release))
	report := &Report{}
	for _, commit := range upstream {
		if releaseCommit, ok := pickedBy[commit.Hash]; ok {
			report.Picked = append(report.Picked, Entry{Upstream: commit, Release: releaseCommit})
			continue
		}
		if _, dup := ambiguous[commit.Subject]; !dup {
			if releaseCommit, ok := bySubject[commit.Subject]; ok {
				report.Matched = append(report.Matched, Entry{Upstream: commit, Release: releaseCommit})
				continue
			}
		}
		report.Unpicked = append(report.Unpicked, Entry{Upstream: commit})
	}
	return report
}

func duplicatedSubjects(commits []Commit) map[string]struct{} {
	seen, duplicated := map[string]struct{}{}, []string{}
	for _, commit := range commits {
		if _, ok := seen[commit.Subject]; ok {
			duplicated = append(duplicated, commit.Subject)
		}
		seen[commit.Subject] = struct{}{}
	}
	return set.String.FromSlice(duplicated)
}
