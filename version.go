// Copyright 2021 The OpenSSL Project Authors. All rights reserved.
// Use of this source code is governed by an Apache-2.0 license
// that can be found in the LICENSE file.

package tools

import "v.io/x/lib/metadata"

// Version identifies the tools build.  Release builds override it via
// -ldflags "-X github.com/mspncp/tools.Version=<tag>".
var Version = "manual-build"

func init() {
	metadata.Insert("ossl.Version", Version)
}
