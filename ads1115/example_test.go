// Copyright 2026 The Travelmetry Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ads1115_test

import (
	"fmt"
	"log"

	"github.com/opensusp/travelmetry/ads1115"
	"github.com/opensusp/travelmetry/i2cbus/periphbus"
)

func Example() {
	// Open the first available I²C bus.
	b, err := periphbus.Open("")
	if err != nil {
		log.Fatal(err)
	}
	defer b.Close()

	adc := ads1115.New(b, ads1115.DefaultAddress)
	adc.SetInputMux(ads1115.MuxSingle0)
	adc.SetPGA(ads1115.PGA4096)
	adc.SetOperatingMode(ads1115.ModeContinuous)
	adc.SetDataRate(ads1115.Rate860SPS)
	if err := adc.WriteConfig(); err != nil {
		log.Fatal(err)
	}

	raw, err := adc.ReadConversion()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("AIN0: %d counts\n", int16(raw))
}
