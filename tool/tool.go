// Copyright 2021 The OpenSSL Project Authors. All rights reserved.
// Use of this source code is governed by an Apache-2.0 license
// that can be found in the LICENSE file.

// Package tool carries the state shared by a single invocation of a
// command line tool.
package tool

import (
	"flag"
)

var (
	// Flags for running commands.
	ColorFlag   bool
	VerboseFlag bool
)

// InitializeRunFlags initializes flags for running commands.
func InitializeRunFlags(flags *flag.FlagSet) {
	flags.BoolVar(&ColorFlag, "color", true, "Use color to format output.")
	flags.BoolVar(&VerboseFlag, "v", false, "Print verbose output.")
}
