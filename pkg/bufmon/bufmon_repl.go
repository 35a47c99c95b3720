package bufmon

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"mtcircbuf/pkg/repl"
)

func MonRepl(mon *BufMon) *repl.REPL {
	r := repl.NewRepl()
	r.AddCommand("w", wHandler(mon), "Writes a value into the next slot. usage: w [value]")
	r.AddCommand("r", rHandler(mon), "Reads a slot without consuming it. usage: r <slot>")
	r.AddCommand("rn", rnHandler(mon), "Reads the newest produced slot without consuming it. usage: rn")
	r.AddCommand("c", cHandler(mon), "Consumes the oldest produced slot. usage: c")
	r.AddCommand("clear", clearHandler(mon), "Discards all consumable slots and resets the cursor. usage: clear")
	r.AddCommand("ls", lsHandler(mon), "Prints the buffer snapshot. usage: ls")
	r.AddCommand("start", startHandler(mon), "Starts the background workers. usage: start [interval ms]")
	r.AddCommand("stop", stopHandler(mon), "Stops the background workers. usage: stop")
	return r
}

func wHandler(mon *BufMon) func(string, *repl.REPLConfig) error {
	return func(input string, config *repl.REPLConfig) error {
		args := strings.Split(input, " ")
		if len(args) > 2 {
			return fmt.Errorf("usage: w [value]")
		}
		value := ""
		if len(args) == 2 {
			value = args[1]
		}
		slot, overwrite, err := mon.WriteOnce(value)
		if err != nil {
			return err
		}
		if overwrite {
			_, err = io.WriteString(config.Writer, fmt.Sprintf("Wrote slot %d (overwrote unconsumed data)\n", slot))
		} else {
			_, err = io.WriteString(config.Writer, fmt.Sprintf("Wrote slot %d\n", slot))
		}
		return err
	}
}

func rHandler(mon *BufMon) func(string, *repl.REPLConfig) error {
	return func(input string, config *repl.REPLConfig) error {
		args := strings.Split(input, " ")
		if len(args) != 2 {
			return fmt.Errorf("usage: r <slot>")
		}
		slot, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("usage: r <slot>")
		}
		value, err := mon.ReadAt(slot)
		if err != nil {
			return err
		}
		_, err = io.WriteString(config.Writer, fmt.Sprintf("Slot %d: %q\n", slot, value))
		return err
	}
}

func rnHandler(mon *BufMon) func(string, *repl.REPLConfig) error {
	return func(input string, config *repl.REPLConfig) error {
		args := strings.Split(input, " ")
		if len(args) != 1 {
			return fmt.Errorf("usage: rn")
		}
		slot, value, err := mon.PeekNewest()
		if err != nil {
			return err
		}
		_, err = io.WriteString(config.Writer, fmt.Sprintf("Newest slot %d: %q\n", slot, value))
		return err
	}
}

func cHandler(mon *BufMon) func(string, *repl.REPLConfig) error {
	return func(input string, config *repl.REPLConfig) error {
		args := strings.Split(input, " ")
		if len(args) != 1 {
			return fmt.Errorf("usage: c")
		}
		slot, value, err := mon.ConsumeOnce()
		if err != nil {
			return err
		}
		_, err = io.WriteString(config.Writer, fmt.Sprintf("Consumed slot %d: %q\n", slot, value))
		return err
	}
}

func clearHandler(mon *BufMon) func(string, *repl.REPLConfig) error {
	return func(input string, config *repl.REPLConfig) error {
		args := strings.Split(input, " ")
		if len(args) != 1 {
			return fmt.Errorf("usage: clear")
		}
		if err := mon.Buff.Clear(); err != nil {
			return err
		}
		_, err := io.WriteString(config.Writer, "Buffer cleared\n")
		return err
	}
}

func lsHandler(mon *BufMon) func(string, *repl.REPLConfig) error {
	return func(input string, config *repl.REPLConfig) error {
		args := strings.Split(input, " ")
		if len(args) != 1 {
			return fmt.Errorf("usage: ls")
		}
		_, err := io.WriteString(config.Writer,
			fmt.Sprintf("%s  consumable: %d\n", mon.Buff.String(), mon.Buff.NumConsumableSlots()))
		return err
	}
}

func startHandler(mon *BufMon) func(string, *repl.REPLConfig) error {
	return func(input string, config *repl.REPLConfig) error {
		args := strings.Split(input, " ")
		if len(args) > 2 {
			return fmt.Errorf("usage: start [interval ms]")
		}
		interval := 500 * time.Millisecond
		if len(args) == 2 {
			ms, err := strconv.Atoi(args[1])
			if err != nil || ms <= 0 {
				return fmt.Errorf("usage: start [interval ms]")
			}
			interval = time.Duration(ms) * time.Millisecond
		}
		if err := mon.StartWorkers(interval); err != nil {
			return err
		}
		_, err := io.WriteString(config.Writer, "Workers started\n")
		return err
	}
}

func stopHandler(mon *BufMon) func(string, *repl.REPLConfig) error {
	return func(input string, config *repl.REPLConfig) error {
		args := strings.Split(input, " ")
		if len(args) != 1 {
			return fmt.Errorf("usage: stop")
		}
		if err := mon.StopWorkers(); err != nil {
			return err
		}
		_, err := io.WriteString(config.Writer, "Workers stopped\n")
		return err
	}
}
