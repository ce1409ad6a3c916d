// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// onebus runs a single-wire bus node on a GPIO pin, or simulates one.
package main

import "github.com/GermanBionicSystems/wirebus/cmd/onebus/cmd"

func main() {
	cmd.Execute()
}
