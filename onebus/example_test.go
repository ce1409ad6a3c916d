// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package onebus_test

import (
	"fmt"
	"log"
	"time"

	"github.com/GermanBionicSystems/wirebus/onebus"
	"github.com/GermanBionicSystems/wirebus/onebus/onebustest"
)

// This example runs a master and a slave on a simulated line. The slave
// answers a two byte request in the same transaction.
func Example() {
	sim := onebustest.NewSim()
	master, err := onebus.New(sim.Line.Pin("master"), &onebus.Opts{
		TimeoutMultiplier: 1,
		Role:              onebus.Master,
		Clock:             sim.Clock(),
	})
	if err != nil {
		log.Fatal(err)
	}
	slave, err := onebus.New(sim.Line.Pin("slave"), &onebus.Opts{
		TimeoutMultiplier: 1,
		Role:              onebus.Slave,
		Clock:             sim.Clock(),
	})
	if err != nil {
		log.Fatal(err)
	}
	sim.Add(master, slave)

	slave.OnRequest(func(data []byte, r *onebus.Responder) {
		if len(data) == 2 {
			fmt.Printf("slave got % x\n", data)
			_ = r.Respond([]byte{0xbe, 0xef})
		}
	})
	done := false
	err = master.Transact([]byte{0xde, 0xad}, 2, func(ok bool) {
		fmt.Printf("master got % x, ok=%t\n", master.Received(), ok)
		done = true
	})
	if err != nil {
		log.Fatal(err)
	}
	sim.RunUntil(func() bool { return done }, 10*time.Millisecond)
	// Output:
	// slave got de ad
	// master got be ef, ok=true
}
