package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"
	"github.com/rs/zerolog"

	"buspirate/host/arafe"
	"buspirate/host/serial"
)

// openMaster is replaced in tests
var openMaster = arafe.Open

// arafeSession holds the master an arafe shell drives
type arafeSession struct {
	m   *arafe.Master
	out io.Writer
}

type arafeCommand struct {
	name  string
	usage string
	help  string
	run   func(s *arafeSession, args []string) error
}

var arafeCommands = []arafeCommand{
	{"slave-power", "SLAVE on|off", "Switch one slave channel, turning the other three off", cmdSlavePower},
	{"allslave-power", "S0 S1 S2 S3", "Switch every slave channel, 1 for on and 0 for off", cmdAllSlavePower},
}

func arafeConfig(opts options, log zerolog.Logger) *arafe.Config {
	cfg := arafe.DefaultConfig(opts.device)
	cfg.Serial.Driver = serial.Driver(opts.driver)
	cfg.Logger = log
	return cfg
}

// runArafe opens the master and either runs the one command given in args
// or starts an interactive shell
func runArafe(cfg *arafe.Config, args []string, stdout io.Writer) error {
	m, err := openMaster(cfg)
	if err != nil {
		return fmt.Errorf("failed to open master: %w", err)
	}
	defer m.Close()

	s := &arafeSession{m: m, out: stdout}
	if len(args) > 0 {
		return s.dispatch(args)
	}

	sh := ishell.New()
	sh.SetPrompt("ARAFE> ")
	for _, c := range arafeCommands {
		sh.AddCmd(arafeShellCmd(s, c))
	}
	sh.Println("ARAFE master shell, type 'help' for commands")
	sh.Run()
	return nil
}

func arafeShellCmd(s *arafeSession, cmd arafeCommand) *ishell.Cmd {
	return &ishell.Cmd{
		Name: cmd.name,
		Help: cmd.usage + ": " + cmd.help,
		Func: func(c *ishell.Context) {
			if err := cmd.run(s, c.Args); err != nil {
				c.Err(err)
			}
		},
	}
}

func (s *arafeSession) dispatch(words []string) error {
	for _, c := range arafeCommands {
		if c.name == words[0] {
			return c.run(s, words[1:])
		}
	}
	return fmt.Errorf("unknown command: %s", words[0])
}

func (s *arafeSession) printReply(lines []string) {
	for _, line := range lines {
		fmt.Fprintln(s.out, line)
	}
}

// splitArgs accepts "0 1", "0,1" and "0, 1"
func splitArgs(args []string) []string {
	return strings.FieldsFunc(strings.Join(args, " "), func(r rune) bool {
		return r == ',' || r == ' '
	})
}

func parseSwitch(arg string) (bool, error) {
	switch strings.ToLower(arg) {
	case "1", "on":
		return true, nil
	case "0", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid switch %q, want on/off or 1/0", arg)
}

func cmdSlavePower(s *arafeSession, args []string) error {
	args = splitArgs(args)
	if len(args) != 2 {
		return fmt.Errorf("slave-power takes a slave number and on or off")
	}
	slave, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid slave %q", args[0])
	}
	on, err := parseSwitch(args[1])
	if err != nil {
		return err
	}

	lines, err := s.m.SlavePower(slave, on)
	if err != nil {
		return err
	}
	s.printReply(lines)
	return nil
}

func cmdAllSlavePower(s *arafeSession, args []string) error {
	args = splitArgs(args)
	if len(args) != arafe.Slaves {
		return fmt.Errorf("allslave-power takes %d channel states", arafe.Slaves)
	}
	var on [arafe.Slaves]bool
	for i, arg := range args {
		v, err := parseSwitch(arg)
		if err != nil {
			return err
		}
		on[i] = v
	}

	lines, err := s.m.AllSlavePower(on)
	if err != nil {
		return err
	}
	s.printReply(lines)
	return nil
}
