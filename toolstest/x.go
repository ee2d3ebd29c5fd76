// Copyright 2021 The OpenSSL Project Authors. All rights reserved.
// Use of this source code is governed by an Apache-2.0 license
// that can be found in the LICENSE file.

// Package toolstest provides utilities for testing ossl functionality.
package toolstest

import (
	"bytes"
	"testing"

	"github.com/mspncp/tools"
	"github.com/mspncp/tools/tool"
)

// NewX is similar to tools.NewX, but is meant for usage in a testing
// environment: the returned context reads from an empty stdin and its
// output streams are connected to the returned buffers.
func NewX(t *testing.T) (*tools.X, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	opts := tool.ContextOpts{
		Stdin:  &bytes.Buffer{},
		Stdout: &stdout,
		Stderr: &stderr,
	}
	return &tools.X{Context: tool.NewContext(opts)}, &stdout, &stderr
}
