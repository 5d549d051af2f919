// Copyright (c) 2025-2026 The binform Authors
// SPDX-License-Identifier: MIT

package main

import "github.com/binform/binform/cmd/binform/cmd"

func main() {
	cmd.Execute()
}
