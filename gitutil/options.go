// Copyright 2021 The OpenSSL Project Authors. All rights reserved.
// Use of this source code is governed by an Apache-2.0 license
// that can be found in the LICENSE file.

package gitutil

type CheckoutOpt interface {
	checkoutOpt()
}
type DeleteBranchOpt interface {
	deleteBranchOpt()
}
type FetchOpt interface {
	fetchOpt()
}
type PushOpt interface {
	pushOpt()
}
type ResetOpt interface {
	resetOpt()
}

type ForceOpt bool

func (ForceOpt) checkoutOpt()     {}
func (ForceOpt) deleteBranchOpt() {}

type ModeOpt string

func (ModeOpt) resetOpt() {}

type TagsOpt bool

func (TagsOpt) fetchOpt() {}

type VerifyOpt bool

func (VerifyOpt) pushOpt() {}
