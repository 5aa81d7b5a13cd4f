// Copyright 2023 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package workload

var (
	PullError  = pullError
	IsNotFound = isNotFound
)
