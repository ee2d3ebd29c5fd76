// Copyright 2021 The OpenSSL Project Authors. All rights reserved.
// Use of this source code is governed by an Apache-2.0 license
// that can be found in the LICENSE file.

package toolstest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mspncp/tools"
	"github.com/mspncp/tools/gitutil"
	"github.com/mspncp/tools/tool"
)

// DefaultBranch is the branch the fake repositories are created on.
const DefaultBranch = "main"

// FakeRepo is a local git repository paired with a second repository
// configured as its "origin" remote, mirroring the layout the ossl
// commands expect to operate in.
type FakeRepo struct {
	X      *tools.X
	Root   string // working repository
	Remote string // repository behind the "origin" remote
}

// NewFakeRepo returns a new FakeRepo and a cleanup closure. The closure
// must be run to remove the temporary repositories; typically it is run
// as a defer function.
func NewFakeRepo(t *testing.T) (*FakeRepo, func()) {
	x := &tools.X{Context: tool.NewDefaultContext()}
	s := x.NewSeq()
	remoteDir, err := s.TempDir("", "upstream")
	if err != nil {
		t.Fatalf("TempDir() failed: %v", err)
	}
	rootDir, err := s.TempDir("", "repo")
	if err != nil {
		t.Fatalf("TempDir() failed: %v", err)
	}
	fake := &FakeRepo{X: x, Root: rootDir, Remote: remoteDir}

	if err := gitutil.New(x.NewSeq()).Init(remoteDir); err != nil {
		t.Fatal(err)
	}
	if err := configureIdentity(fake.RemoteGit()); err != nil {
		t.Fatal(err)
	}
	if err := fake.RemoteGit().CreateAndCheckoutBranch(DefaultBranch); err != nil {
		t.Fatal(err)
	}
	if err := fake.RemoteGit().CommitWithMessage("initial commit"); err != nil {
		t.Fatal(err)
	}
	if err := gitutil.New(x.NewSeq()).Clone(remoteDir, rootDir); err != nil {
		t.Fatal(err)
	}
	if err := configureIdentity(fake.Git()); err != nil {
		t.Fatal(err)
	}

	cleanup := func() {
		if err := x.NewSeq().RemoveAll(rootDir).Done(); err != nil {
			t.Fatalf("RemoveAll(%q) failed: %v", rootDir, err)
		}
		if err := x.NewSeq().RemoveAll(remoteDir).Done(); err != nil {
			t.Fatalf("RemoveAll(%q) failed: %v", remoteDir, err)
		}
	}
	return fake, cleanup
}

// Git returns a Git instance rooted at the working repository.
func (fake *FakeRepo) Git() *gitutil.Git {
	return gitutil.New(fake.X.NewSeq(), gitutil.RootDirOpt(fake.Root))
}

// RemoteGit returns a Git instance rooted at the remote repository.
func (fake *FakeRepo) RemoteGit() *gitutil.Git {
	return gitutil.New(fake.X.NewSeq(), gitutil.RootDirOpt(fake.Remote))
}

// WriteFile writes the given content to the given path relative to the
// working repository, creating any missing directories.
func (fake *FakeRepo) WriteFile(path, content string) error {
	abs := filepath.Join(fake.Root, path)
	return fake.X.NewSeq().
		MkdirAll(filepath.Dir(abs), os.FileMode(0755)).
		WriteFile(abs, []byte(content), os.FileMode(0644)).
		Done()
}

// CommitFile writes the given content to the given path relative to the
// working repository and commits it with the given message.
func (fake *FakeRepo) CommitFile(path, content, message string) error {
	if err := fake.WriteFile(path, content); err != nil {
		return err
	}
	return fake.Git().CommitFile(path, message)
}

func configureIdentity(git *gitutil.Git) error {
	if err := git.Config("user.name", "tester"); err != nil {
		return err
	}
	return git.Config("user.email", "tester@example.com")
}
