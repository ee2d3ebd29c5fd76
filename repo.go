// Copyright 2021 The OpenSSL Project Authors. All rights reserved.
// Use of this source code is governed by an Apache-2.0 license
// that can be found in the LICENSE file.

package tools

import "regexp"

const (
	// HostingRoot is the web root of the OpenSSL repository on its code
	// hosting service, used to construct links to blobs within the tree.
	HostingRoot = "https://github.com/openssl/openssl"

	// APIHost is the REST endpoint of the code hosting service.
	APIHost = "https://api.github.com"

	// RepoOwner and RepoName identify the upstream OpenSSL repository on
	// the hosting service.
	RepoOwner = "openssl"
	RepoName  = "openssl"
)

// openSSLRemoteRE matches the remote URL spellings that identify a checkout
// of the upstream OpenSSL repository: the GitHub https and ssh forms as well
// as the git.openssl.org mirror, with or without a trailing ".git".
var openSSLRemoteRE = regexp.MustCompile(`(github\.com[:/]openssl/openssl|git\.openssl\.org/openssl)(\.git)?/?$`)

// IsOpenSSLRemote reports whether the given git remote URL points at the
// upstream OpenSSL repository.
func IsOpenSSLRemote(url string) bool {
	return openSSLRemoteRE.MatchString(url)
}
