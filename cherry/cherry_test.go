// Copyright 2022 The OpenSSL Project Authors. All rights reserved.
// Use of this source code is governed by an Apache-2.0 license
// that can be found in the LICENSE file.

package cherry_test

import (
	"testing"

	"github.com/mspncp/tools/cherry"
	"github.com/mspncp/tools/gitutil"
	"github.com/mspncp/tools/toolstest"
)

func commitFile(t *testing.T, repo *toolstest.FakeRepo, g *gitutil.Git, file, message string) string {
	if err := repo.CommitFile(file, "content of "+file, message); err != nil {
		t.Fatalf("CommitFile(%v) failed: %v", file, err)
	}
	revision, err := g.CurrentRevision()
	if err != nil {
		t.Fatalf("CurrentRevision() failed: %v", err)
	}
	return revision
}

func subjects(entries []cherry.Entry) []string {
	result := []string{}
	for _, entry := range entries {
		result = append(result, entry.Upstream.Subject)
	}
	return result
}

func equal(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestCompare(t *testing.T) {
	repo, cleanup := toolstest.NewFakeRepo(t)
	defer cleanup()
	g := repo.Git()
	base, err := g.CurrentRevision()
	if err != nil {
		t.Fatalf("CurrentRevision() failed: %v", err)
	}
	picked := commitFile(t, repo, g, "a.c", "fix one")
	commitFile(t, repo, g, "b.c", "fix two")
	unpicked := commitFile(t, repo, g, "c.c", "fix three")
	if err := g.CreateBranchFrom("release", base); err != nil {
		t.Fatalf("CreateBranchFrom() failed: %v", err)
	}
	if err := g.CheckoutBranch("release"); err != nil {
		t.Fatalf("CheckoutBranch() failed: %v", err)
	}
	commitFile(t, repo, g, "a-port.c", "fix one\n\n(cherry picked from commit "+picked+")")
	commitFile(t, repo, g, "b-port.c", "fix two")
	commitFile(t, repo, g, "r.c", "release only tweak")

	report, err := cherry.Compare(g, "main", "release")
	if err != nil {
		t.Fatalf("Compare() failed: %v", err)
	}
	if got, want := subjects(report.Picked), []string{"fix one"}; !equal(got, want) {
		t.Fatalf("picked: got %v, want %v", got, want)
	}
	if got, want := subjects(report.Matched), []string{"fix two"}; !equal(got, want) {
		t.Fatalf("matched: got %v, want %v", got, want)
	}
	if got, want := subjects(report.Unpicked), []string{"fix three"}; !equal(got, want) {
		t.Fatalf("unpicked: got %v, want %v", got, want)
	}
	if got, want := report.Picked[0].Upstream.Hash, picked; got != want {
		t.Errorf("picked hash: got %v, want %v", got, want)
	}
	if release := report.Picked[0].Release; release == nil || release.Subject != "fix one" {
		t.Errorf("picked release commit: got %v, want subject %q", release, "fix one")
	}
	if release := report.Unpicked[0].Release; release != nil {
		t.Errorf("unpicked release commit: got %v, want nil", release)
	}
	if got, want := report.Unpicked[0].Upstream.Hash, unpicked; got != want {
		t.Errorf("unpicked hash: got %v, want %v", got, want)
	}
}

func TestCompareOrder(t *testing.T) {
	repo, cleanup := toolstest.NewFakeRepo(t)
	defer cleanup()
	g := repo.Git()
	base, err := g.CurrentRevision()
	if err != nil {
		t.Fatalf("CurrentRevision() failed: %v", err)
	}
	commitFile(t, repo, g, "a.c", "first")
	commitFile(t, repo, g, "b.c", "second")
	commitFile(t, repo, g, "c.c", "third")
	if err := g.CreateBranchFrom("release", base); err != nil {
		t.Fatalf("CreateBranchFrom() failed: %v", err)
	}
	if err := g.CheckoutBranch("release"); err != nil {
		t.Fatalf("CheckoutBranch() failed: %v", err)
	}
	commitFile(t, repo, g, "r.c", "release only tweak")

	report, err := cherry.Compare(g, "main", "release")
	if err != nil {
		t.Fatalf("Compare() failed: %v", err)
	}
	if got, want := subjects(report.Unpicked), []string{"third", "second", "first"}; !equal(got, want) {
		t.Errorf("unpicked: got %v, want %v", got, want)
	}
}

func TestCompareAmbiguousSubject(t *testing.T) {
	repo, cleanup := toolstest.NewFakeRepo(t)
	defer cleanup()
	g := repo.Git()
	base, err := g.CurrentRevision()
	if err != nil {
		t.Fatalf("CurrentRevision() failed: %v", err)
	}
	commitFile(t, repo, g, "a.c", "dup fix")
	commitFile(t, repo, g, "b.c", "dup fix")
	commitFile(t, repo, g, "c.c", "unique fix")
	if err := g.CreateBranchFrom("release", base); err != nil {
		t.Fatalf("CreateBranchFrom() failed: %v", err)
	}
	if err := g.CheckoutBranch("release"); err != nil {
		t.Fatalf("CheckoutBranch() failed: %v", err)
	}
	commitFile(t, repo, g, "d.c", "dup fix")
	commitFile(t, repo, g, "e.c", "unique fix")

	report, err := cherry.Compare(g, "main", "release")
	if err != nil {
		t.Fatalf("Compare() failed: %v", err)
	}
	// The repeated subject must not be paired, the unique one must be.
	if got, want := subjects(report.Matched), []string{"unique fix"}; !equal(got, want) {
		t.Errorf("matched: got %v, want %v", got, want)
	}
	if got, want := subjects(report.Unpicked), []string{"dup fix", "dup fix"}; !equal(got, want) {
		t.Errorf("unpicked: got %v, want %v", got, want)
	}
}
