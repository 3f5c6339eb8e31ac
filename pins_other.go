//go:build !linux

package main

import (
	"errors"

	"i4.energy/across/ltem/gpio"
)

func openPins(string) (gpio.Pins, error) {
	return nil, errors.New("gpio character device requires linux")
}
