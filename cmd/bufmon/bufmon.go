package main

import (
	"flag"
	"fmt"
	"time"

	"mtcircbuf/pkg/bufconfig"
	"mtcircbuf/pkg/bufmon"
)

func main() {
	configPath := flag.String("config", "", "optional config file")
	capacity := flag.Int("capacity", 8, "number of buffer slots")
	timeout := flag.Duration("timeout", time.Second, "lock timeout for every blocking operation")
	flag.Parse()

	slots, lockTimeout := *capacity, *timeout
	if *configPath != "" {
		config, err := bufconfig.ParseConfig(*configPath)
		if err != nil {
			fmt.Println(err)
			return
		}
		slots, lockTimeout = config.Capacity, config.LockTimeout
	}
	if slots < 1 {
		fmt.Println("usage: bufmon [--config <file>] [--capacity <n>] [--timeout <d>]")
		return
	}

	mon := bufmon.New(slots, lockTimeout)
	fmt.Printf("bufmon: %d slots, %s lock timeout\n", slots, lockTimeout)

	r := bufmon.MonRepl(mon)
	r.Run()
}
