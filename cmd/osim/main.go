// Command osim boots the simulated machine and kernel described by
// SPEC_FULL.md. It is the Go analogue of the teacher's kmain.go entry
// point: parse boot arguments, build the machine, and hand control to the
// booted system (spec.md §6 "CLI").
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"osim/config"
	"osim/kernel/boot"
	"osim/kernel/kfmt"
	"osim/machine"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML machine/kernel configuration file")
	flag.Parse()

	args := flag.Args()
	cmd := "run"
	if len(args) > 0 && args[0] == "monitor" {
		cmd = "monitor"
		args = args[1:]
	}

	initName := "init"
	var initArgv []string
	if len(args) > 0 {
		initName = args[0]
		initArgv = args
	} else {
		initArgv = []string{initName}
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "osim: %v\n", err)
		os.Exit(1)
	}

	sys, kerr := boot.Boot(cfg.BootConfig(), lookup, initName, initArgv)
	if kerr != nil {
		fmt.Fprintf(os.Stderr, "osim: boot failed: %v\n", kerr)
		os.Exit(1)
	}

	kfmt.SetOutputSink(os.Stdout)
	kfmt.Printf("osim: booted %s (pid %d), %d ttys, %d frames\n",
		initName, sys.Kernel.Sched.Current.PID, len(sys.Machine.TTYs), sys.Machine.TotalFrames())

	if cmd == "monitor" {
		ttyID := 0
		if err := runMonitor(sys, ttyID); err != nil {
			fmt.Fprintf(os.Stderr, "osim: monitor: %v\n", err)
			os.Exit(1)
		}
		return
	}

	sys.Machine.TTYs[0].Sink = func(b []byte) { os.Stdout.Write(b) }
	runClock(sys)
}

// runClock drives the simulated machine's clock at wall-clock pace,
// raising TrapClock once per jiffy so pending timers (sys_delay) and
// round-robin preemption fire the same way a real hardware clock
// interrupt would (spec.md §4.8, §4.9 "Boot" hands control to the CPU
// which does this forever after KernelStart returns).
func runClock(sys *boot.System) {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		sys.Machine.Clock.Tick()
		current := sys.Kernel.Sched.Current
		sys.Machine.Vector.Raise(machine.TrapClock, machine.TrapInfo{Regs: &current.UserContext})
	}
}
